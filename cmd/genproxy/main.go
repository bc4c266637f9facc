package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/gokatarajesh/quizforge/internal/genproxy"
	"github.com/gokatarajesh/quizforge/internal/logging"
)

type config struct {
	Env            string        `env:"APP_ENV" envDefault:"development"`
	Addr           string        `env:"GENPROXY_ADDR" envDefault:"0.0.0.0:9090"`
	APIKey         string        `env:"GEMINI_API_KEY,notEmpty"`
	Model          string        `env:"GEMINI_MODEL" envDefault:"models/gemini-2.5-flash"`
	BaseURL        string        `env:"GEMINI_BASE_URL"`
	Attempts       int           `env:"GEMINI_ATTEMPTS" envDefault:"3"`
	RequestTimeout time.Duration `env:"GENPROXY_REQUEST_TIMEOUT" envDefault:"25s"`
	MaxCount       int           `env:"AI_MAX_QUESTION_COUNT" envDefault:"20"`
	// Shared with the quiz service's AI_GENERATOR_API_KEY; empty disables the check.
	ProxyKey string `env:"AI_GENERATOR_API_KEY"`
}

func main() {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger := logging.New("genproxy", cfg.Env)
	client := genproxy.NewClient(genproxy.ClientConfig{
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
		BaseURL:  cfg.BaseURL,
		Attempts: cfg.Attempts,
	}, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(logger))
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodPost, "/generate", genproxy.NewHandler(client, cfg.ProxyKey, cfg.MaxCount, cfg.RequestTimeout, logger))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("model", cfg.Model).Msg("gemini proxy listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		logger.Fatal().Err(err).Msg("http server error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
}
