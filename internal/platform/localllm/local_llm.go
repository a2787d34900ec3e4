package localllm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
)

const (
	// DefaultURL is the chat completions endpoint of a local LM Studio server.
	DefaultURL = "http://localhost:1234/v1/chat/completions"
	// DefaultModel is used when no model is configured.
	DefaultModel = "gemma-3-12b-it:2"
)

// ErrNoContent is returned when the local LLM answers without a choice.
var ErrNoContent = errors.New("no content found in response")

// Client represents a client for an OpenAI-compatible local LLM.
type Client struct {
	httpClient *http.Client
	apiURL     string
	model      string
}

// NewClient creates a new client for the local LLM. Empty arguments fall back
// to DefaultURL and DefaultModel.
func NewClient(apiURL, model string) *Client {
	if apiURL == "" {
		apiURL = DefaultURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		httpClient: &http.Client{},
		apiURL:     apiURL,
		model:      model,
	}
}

// Request represents the request body for the local LLM.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Message represents a message in the request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response represents the response from the local LLM.
type Response struct {
	Choices []Choice `json:"choices"`
}

// Choice represents a choice in the response.
type Choice struct {
	Message Message `json:"message"`
}

// GenerateContent sends a single user message to the local LLM and returns the reply.
func (c *Client) GenerateContent(ctx context.Context, text string) (string, error) {
	reqBody := Request{
		Model: c.model,
		Messages: []Message{
			{Role: "user", Content: text},
		},
		Temperature: 1,
		MaxTokens:   2048,
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("received non-OK status code: %d", resp.StatusCode)
	}

	var llmResp Response
	if err := json.NewDecoder(resp.Body).Decode(&llmResp); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	if len(llmResp.Choices) > 0 {
		zerolog.Ctx(ctx).Debug().Int("length", len(llmResp.Choices[0].Message.Content)).Msg("local llm responded")
		return llmResp.Choices[0].Message.Content, nil
	}

	return "", ErrNoContent
}

// GenerateStructured appends the expected JSON shape of schema to prompt and
// returns the reply with any markdown fence removed.
func (c *Client) GenerateStructured(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	shape, err := json.MarshalIndent(schemaExample(schema), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render schema: %w", err)
	}
	prompt += "\n\nOutput should be a single JSON object of this shape:\n" + string(shape) +
		"\nThe JSON response should be clean and not contain any markdown formatting."

	responseText, err := c.GenerateContent(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	// Clean up the response text
	cleanedResponse := strings.TrimSpace(responseText)
	cleanedResponse = strings.TrimPrefix(cleanedResponse, "```json")
	cleanedResponse = strings.TrimPrefix(cleanedResponse, "```")
	cleanedResponse = strings.TrimSuffix(cleanedResponse, "```")
	return strings.TrimSpace(cleanedResponse), nil
}

// schemaExample turns a schema into a sample value whose leaves name their types.
func schemaExample(s *genai.Schema) any {
	if s == nil {
		return nil
	}
	switch s.Type {
	case genai.TypeObject:
		obj := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			obj[name] = schemaExample(prop)
		}
		return obj
	case genai.TypeArray:
		return []any{schemaExample(s.Items)}
	case genai.TypeInteger:
		return "integer"
	case genai.TypeNumber:
		return "number"
	case genai.TypeBoolean:
		return "boolean"
	default:
		return "string"
	}
}
