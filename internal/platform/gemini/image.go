package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the public Gemini REST endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	// DefaultImageModel is used when no image model is configured.
	DefaultImageModel = "gemini-2.0-flash-exp"

	imageRequestTimeout = 60 * time.Second
)

// The Go SDK does not expose response modalities, so image generation talks
// to the REST API directly.

type imagePayload struct {
	Contents         []imageContent        `json:"contents"`
	GenerationConfig imageGenerationConfig `json:"generationConfig"`
}

type imageContent struct {
	Role  string      `json:"role,omitempty"`
	Parts []imagePart `json:"parts"`
}

type imagePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type imageGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

type imageResponse struct {
	Candidates []struct {
		Content imageContent `json:"content"`
	} `json:"candidates"`
}

// ImageClient generates meal images through the Gemini REST API.
type ImageClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewImageClient creates a new ImageClient. Empty baseURL and model fall back to
// DefaultBaseURL and DefaultImageModel.
func NewImageClient(baseURL, apiKey, model string) *ImageClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultImageModel
	}
	return &ImageClient{
		httpClient: &http.Client{Timeout: imageRequestTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
	}
}

// GenerateImage sends parts as one user turn and returns the first inline image
// of the response.
func (c *ImageClient) GenerateImage(ctx context.Context, parts ...string) (string, []byte, error) {
	payload := imagePayload{
		Contents: []imageContent{{Role: "user"}},
		GenerationConfig: imageGenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}
	for _, p := range parts {
		payload.Contents[0].Parts = append(payload.Contents[0].Parts, imagePart{Text: p})
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", nil, fmt.Errorf("API returned non-200 status: %s, Body: %s", resp.Status, string(body))
	}

	var imageResp imageResponse
	if err := json.NewDecoder(resp.Body).Decode(&imageResp); err != nil {
		return "", nil, fmt.Errorf("failed to decode response: %w", err)
	}

	for _, candidate := range imageResp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return "", nil, fmt.Errorf("failed to decode image data: %w", err)
			}
			return part.InlineData.MimeType, data, nil
		}
	}
	return "", nil, fmt.Errorf("%w: no inline image", ErrEmptyResponse)
}
