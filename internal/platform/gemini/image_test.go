package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageClient_GenerateImage(t *testing.T) {
	var received imagePayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/image-model:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates": [{"content": {"parts": [
			{"text": "Here is your salad."},
			{"inlineData": {"mimeType": "image/png", "data": "aGVsbG8="}}
		]}}]}`))
	}))
	defer server.Close()

	client := NewImageClient(server.URL, "secret", "image-model")
	mimeType, data, err := client.GenerateImage(context.Background(), "Generate an image of Greek Salad (veg)", "Tomatoes, cucumber and feta")
	require.NoError(t, err)

	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, []byte("hello"), data)
	assert.Equal(t, []string{"TEXT", "IMAGE"}, received.GenerationConfig.ResponseModalities)
	require.Len(t, received.Contents, 1)
	require.Len(t, received.Contents[0].Parts, 2)
	assert.Equal(t, "Generate an image of Greek Salad (veg)", received.Contents[0].Parts[0].Text)
	assert.Equal(t, "Tomatoes, cucumber and feta", received.Contents[0].Parts[1].Text)
}

func TestImageClient_NoImageInResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "I can't draw that."}]}}]}`))
	}))
	defer server.Close()

	_, _, err := NewImageClient(server.URL, "secret", "").GenerateImage(context.Background(), "Generate an image of soup (food)")
	assert.True(t, errors.Is(err, ErrEmptyResponse))
}

func TestImageClient_Non200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, _, err := NewImageClient(server.URL, "secret", "").GenerateImage(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestResponseText(t *testing.T) {
	_, err := responseText(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, ErrEmptyResponse)

	text, err := responseText(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"a":`), genai.Text(`1}`)}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, text)
}
