package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"nutriai/internal/api"
	"nutriai/internal/auth"
	"nutriai/internal/config"
	"nutriai/internal/diet"
	"nutriai/internal/flow"
	"nutriai/internal/platform/gemini"
	"nutriai/internal/platform/localllm"
	"nutriai/internal/server"
)

func newLogger(cfg *config.Config) zerolog.Logger {
	zerolog.SetGlobalLevel(cfg.Level())
	if cfg.IsProduction() {
		return zerolog.New(os.Stdout).With().Timestamp().Str("service", "nutriai").Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
}

func gracefulShutdown(logger zerolog.Logger, apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info().Msg("shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// In-flight recommendations get a few seconds to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	done <- true
}

func main() {
	cfg, err := config.Load("config.json")
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := newLogger(cfg)
	ctx := logger.WithContext(context.Background())

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := diet.Open(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.MemoryUsers)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("error creating store")
	}
	defer store.Close()

	geminiClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiTextModel)
	if err != nil {
		logger.Fatal().Err(err).Msg("error creating gemini client")
	}
	defer geminiClient.Close()

	var textModel flow.TextModel = geminiClient
	if cfg.TextBackend == "local" {
		textModel = localllm.NewClient(cfg.LocalLLMURL, cfg.LocalLLMModel)
	}
	imageModel := gemini.NewImageClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiImageModel)

	handler := api.NewHandler(store, store, flow.NewRecommender(textModel, imageModel), flow.NewAnalyzer(textModel))

	gateway := auth.NewGateway(auth.Config{
		SessionSecret:      cfg.SessionSecret,
		AppURL:             cfg.AppURL,
		PublicURL:          cfg.PublicURL,
		Secure:             cfg.IsProduction(),
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		GitHubClientID:     cfg.GitHubClientID,
		GitHubClientSecret: cfg.GitHubClientSecret,
	})
	if len(gateway.Providers()) == 0 {
		logger.Warn().Msg("no sign-in provider configured; set google or github client credentials")
	}

	srv := server.New(server.Options{
		Port:           cfg.Port,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	}, handler, gateway)

	done := make(chan bool, 1)
	go gracefulShutdown(logger, srv, done)

	logger.Info().
		Int("port", cfg.Port).
		Str("store", cfg.DatabaseDriver).
		Str("text_backend", cfg.TextBackend).
		Strs("providers", gateway.Providers()).
		Msg("nutriai api listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("http server error")
	}

	<-done
	logger.Info().Msg("graceful shutdown complete")
}
