package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultTextModel is used when no text model is configured.
const DefaultTextModel = "gemini-1.5-flash"

// ErrEmptyResponse is returned when Gemini answers without any text.
var ErrEmptyResponse = errors.New("empty response from Gemini")

// Client is a client for the Gemini API.
type Client struct {
	client    *genai.Client
	modelName string
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, apiKey, modelName string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = DefaultTextModel
	}
	return &Client{client: client, modelName: modelName}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// GenerateStructured sends prompt with schema declared as the JSON response shape
// and returns the text of the first candidate.
func (c *Client) GenerateStructured(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	model := c.client.GenerativeModel(c.modelName)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = schema

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: no text parts", ErrEmptyResponse)
	}
	return sb.String(), nil
}
