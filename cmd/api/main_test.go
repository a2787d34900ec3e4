package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriai/internal/api"
	"nutriai/internal/auth"
	"nutriai/internal/config"
	"nutriai/internal/diet"
	"nutriai/internal/flow"
	"nutriai/internal/photo"
	"nutriai/internal/server"
)

const testSecret = "end-to-end-secret-long-enough!!!"

// mockTextModel answers the recommendation and analysis prompts with canned JSON.
type mockTextModel struct {
	prompts []string
}

func (m *mockTextModel) GenerateStructured(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if schema == flow.AnalysisSchema {
		return `{"alignmentAssessment": "Pizza and soda are far from the vegetarian plan.", "suggestions": "Swap soda for water and add the lentil soup at dinner."}`, nil
	}
	return `{"recommendation": "A vegetarian plan of about 1,800 kcal.", "meals": [
		{"name": "Paneer Tikka Bowl", "description": "150g paneer with peppers and rice"},
		{"name": "Lentil Soup", "description": "2 cups red lentil soup"}
	]}`, nil
}

// mockImageModel returns a tiny fake image for every meal.
type mockImageModel struct {
	calls int
}

func (m *mockImageModel) GenerateImage(ctx context.Context, parts ...string) (string, []byte, error) {
	m.calls++
	return "image/png", []byte("fake-png"), nil
}

func newTestServer(t *testing.T) (http.Handler, *mockTextModel, *mockImageModel, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := diet.Open("memory", "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	text := &mockTextModel{}
	images := &mockImageModel{}
	handler := api.NewHandler(store, store, flow.NewRecommender(text, images), flow.NewAnalyzer(text))
	gateway := auth.NewGateway(auth.Config{SessionSecret: testSecret, AppURL: "http://app.test", PublicURL: "http://api.test"})

	cfg := config.Default()
	cfg.SessionSecret = testSecret
	router := server.NewRouter(server.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         newLogger(&cfg).Level(zerolog.Disabled),
	}, handler, gateway)

	token, err := auth.NewTokenIssuer(testSecret).Issue(diet.AuthenticatedUser{ID: "github:42", DisplayName: "octocat"})
	require.NoError(t, err)
	return router, text, images, token
}

func doJSON(t *testing.T, h http.Handler, token, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: auth.DefaultCookieName, Value: token})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRecommendThenAnalyze(t *testing.T) {
	h, text, images, token := newTestServer(t)

	rr := doJSON(t, h, token, http.MethodPut, "/api/profile",
		`{"age": 30, "weight": 70, "activityLevel": "moderately_active", "dietaryGoals": "lose_weight", "dietaryPreference": "veg"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, h, token, http.MethodPost, "/api/recommendations", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var rec diet.DietRecommendation
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	require.Len(t, rec.Meals, 2)
	for _, m := range rec.Meals {
		assert.True(t, photo.IsDataURI(m.PhotoDataURI))
	}
	assert.Equal(t, 2, images.calls)
	assert.Contains(t, text.prompts[0], "Dietary Preference: veg")

	rr = doJSON(t, h, token, http.MethodPut, "/api/meal-logs/2024-05-10", `{"description": "Pizza and soda all day"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, h, token, http.MethodPost, "/api/analysis",
		`{"recommendedDiet": "`+rec.Recommendation+`", "date": "2024-05-10"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var result diet.AnalysisResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.NotEmpty(t, result.AlignmentAssessment)
	assert.NotEmpty(t, result.Suggestions)

	analysisPrompt := text.prompts[len(text.prompts)-1]
	assert.Contains(t, analysisPrompt, "Logged Meals: Pizza and soda all day")
	assert.Contains(t, analysisPrompt, "Age: 30, Weight: 70kg, Activity Level: moderately_active")
}

func TestRecommend_IncompleteProfileMakesNoCalls(t *testing.T) {
	h, text, images, token := newTestServer(t)

	rr := doJSON(t, h, token, http.MethodPost, "/api/recommendations", `{"weight": 70}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "age"))
	assert.Empty(t, text.prompts)
	assert.Zero(t, images.calls)
}
