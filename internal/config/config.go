// Package config loads the service configuration from config.json, a .env file
// and the process environment, in increasing order of precedence.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config represents the application configuration.
type Config struct {
	GeminiAPIKey     string `json:"gemini_api_key"`
	GeminiTextModel  string `json:"gemini_text_model"`
	GeminiImageModel string `json:"gemini_image_model"`
	GeminiBaseURL    string `json:"gemini_base_url"`

	// TextBackend selects the structured text model: "gemini" or "local".
	TextBackend   string `json:"text_backend"`
	LocalLLMURL   string `json:"local_llm_url"`
	LocalLLMModel string `json:"local_llm_model"`

	DatabaseDriver string `json:"database_driver"`
	DatabaseURL    string `json:"DATABASE_URL"`
	MemoryUsers    int    `json:"memory_users"`

	Port           int      `json:"port"`
	AllowedOrigins []string `json:"allowed_origins"`
	// AppURL is where the browser client is served; sign-in redirects go there.
	AppURL string `json:"app_url"`
	// PublicURL is where this API is reachable; OAuth callbacks go there.
	PublicURL string `json:"public_url"`

	SessionSecret      string `json:"session_secret"`
	GoogleClientID     string `json:"google_client_id"`
	GoogleClientSecret string `json:"google_client_secret"`
	GitHubClientID     string `json:"github_client_id"`
	GitHubClientSecret string `json:"github_client_secret"`

	Env      string `json:"env"`
	LogLevel string `json:"log_level"`
}

// Default returns the configuration used for every key that is not set.
func Default() Config {
	return Config{
		TextBackend:    "gemini",
		DatabaseDriver: "memory",
		MemoryUsers:    10000,
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000"},
		AppURL:         "http://localhost:3000",
		PublicURL:      "http://localhost:8080",
		Env:            "development",
		LogLevel:       "info",
	}
}

// Load reads path (optional), then .env (optional), then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		configData, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		default:
			if err := json.Unmarshal(configData, &cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal %s: %w", path, err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	stringVars := map[string]*string{
		"GEMINI_API_KEY":       &c.GeminiAPIKey,
		"GEMINI_TEXT_MODEL":    &c.GeminiTextModel,
		"GEMINI_IMAGE_MODEL":   &c.GeminiImageModel,
		"GEMINI_BASE_URL":      &c.GeminiBaseURL,
		"TEXT_BACKEND":         &c.TextBackend,
		"LOCAL_LLM_URL":        &c.LocalLLMURL,
		"LOCAL_LLM_MODEL":      &c.LocalLLMModel,
		"DATABASE_DRIVER":      &c.DatabaseDriver,
		"DATABASE_URL":         &c.DatabaseURL,
		"APP_URL":              &c.AppURL,
		"PUBLIC_URL":           &c.PublicURL,
		"SESSION_SECRET":       &c.SessionSecret,
		"GOOGLE_CLIENT_ID":     &c.GoogleClientID,
		"GOOGLE_CLIENT_SECRET": &c.GoogleClientSecret,
		"GITHUB_CLIENT_ID":     &c.GitHubClientID,
		"GITHUB_CLIENT_SECRET": &c.GitHubClientSecret,
		"APP_ENV":              &c.Env,
		"LOG_LEVEL":            &c.LogLevel,
	}
	for key, dst := range stringVars {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	intVars := map[string]*int{
		"PORT":         &c.Port,
		"MEMORY_USERS": &c.MemoryUsers,
	}
	for key, dst := range intVars {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", key, err)
		}
		*dst = n
	}

	if v, ok := os.LookupEnv("ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = splitList(v)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return errors.New("gemini_api_key (GEMINI_API_KEY) must be set")
	}
	switch c.TextBackend {
	case "gemini", "local":
	default:
		return fmt.Errorf("text_backend must be gemini or local, got %q", c.TextBackend)
	}
	switch c.DatabaseDriver {
	case "memory":
	case "postgres", "sqlite":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for the %s driver", c.DatabaseDriver)
		}
	default:
		return fmt.Errorf("database_driver must be postgres, sqlite or memory, got %q", c.DatabaseDriver)
	}
	if c.MemoryUsers <= 0 {
		return errors.New("memory_users must be positive")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.Port)
	}
	if c.SessionSecret == "" {
		return errors.New("session_secret (SESSION_SECRET) must be set")
	}
	if c.IsProduction() && len(c.SessionSecret) < 32 {
		return errors.New("session_secret must be at least 32 bytes in production")
	}
	if c.AppURL == "" || c.PublicURL == "" {
		return errors.New("app_url and public_url must be set")
	}
	if (c.GoogleClientID == "") != (c.GoogleClientSecret == "") {
		return errors.New("google_client_id and google_client_secret must be set together")
	}
	if (c.GitHubClientID == "") != (c.GitHubClientSecret == "") {
		return errors.New("github_client_id and github_client_secret must be set together")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Level returns the configured zerolog level.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
