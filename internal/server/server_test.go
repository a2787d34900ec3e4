package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"nutriai/internal/api"
	"nutriai/internal/auth"
	"nutriai/internal/diet"
	"nutriai/internal/flow"
)

func newTestRouter(t *testing.T, logs *bytes.Buffer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := diet.NewMemoryStore(8)
	if err != nil {
		t.Fatal(err)
	}
	handler := api.NewHandler(store, store, flow.NewRecommender(nil, nil), flow.NewAnalyzer(nil))
	gateway := auth.NewGateway(auth.Config{
		SessionSecret: "test-secret-that-is-long-enough!",
		AppURL:        "http://app.test",
		PublicURL:     "http://api.test",
	})

	return NewRouter(Options{
		AllowedOrigins: []string{"http://app.test"},
		Logger:         zerolog.New(logs),
	}, handler, gateway)
}

func TestHealth(t *testing.T) {
	var logs bytes.Buffer
	r := newTestRouter(t, &logs)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(RequestIDHeader))
	assert.Contains(t, logs.String(), `"path":"/health"`)
	assert.Contains(t, logs.String(), `"request_id":"`+rr.Header().Get(RequestIDHeader)+`"`)
}

func TestRequestIDIsPropagated(t *testing.T) {
	var logs bytes.Buffer
	r := newTestRouter(t, &logs)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "6f1c2b1e-8a52-4f0e-9c4d-2b0f3a9e7d11")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, "6f1c2b1e-8a52-4f0e-9c4d-2b0f3a9e7d11", rr.Header().Get(RequestIDHeader))
}

func TestAPIRequiresSession(t *testing.T) {
	var logs bytes.Buffer
	r := newTestRouter(t, &logs)

	for _, path := range []string{"/api/profile", "/api/meal-logs", "/auth/session"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/recommendations", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	var logs bytes.Buffer
	r := newTestRouter(t, &logs)

	req := httptest.NewRequest(http.MethodOptions, "/api/profile", nil)
	req.Header.Set("Origin", "http://app.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://app.test", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}
