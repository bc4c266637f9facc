package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizforge/internal/config"
	"github.com/gokatarajesh/quizforge/internal/identity"
	"github.com/gokatarajesh/quizforge/internal/logging"
	"github.com/gokatarajesh/quizforge/internal/metrics"
	"github.com/gokatarajesh/quizforge/internal/question/ai"
	"github.com/gokatarajesh/quizforge/internal/quiz"
	"github.com/gokatarajesh/quizforge/internal/server"
	"github.com/gokatarajesh/quizforge/internal/store"
	"github.com/gokatarajesh/quizforge/internal/web"
)

// Application aggregates shared infrastructure (session store, HTTP server,
// background janitor).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	store   store.Store
	http    *http.Server
	janitor *store.Janitor

	bgCancels []context.CancelFunc
}

// New bootstraps the logger, session store, quiz service and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Str("store", cfg.Store.Driver).Msg("starting application bootstrap")

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var janitor *store.Janitor
	if purger, ok := st.(store.Purger); ok && cfg.Store.JanitorInterval > 0 {
		janitor = store.NewJanitor(purger, cfg.Store.JanitorInterval, logger)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	if cfg.AI.GeneratorURL == "" {
		logger.Warn().Msg("AI_GENERATOR_URL not set; generation requests will fail, uploads still work")
	}
	generator := ai.NewGenerator(ai.Config{
		GeneratorURL: cfg.AI.GeneratorURL,
		GeneratorKey: cfg.AI.GeneratorKey,
		Timeout:      cfg.AI.HTTPTimeout,
	}, logger)

	svc := quiz.NewService(st, generator, m, quiz.ServiceOptions{
		DefaultCount: cfg.AI.DefaultCount,
		MaxCount:     cfg.AI.MaxCount,
		UploadLimit:  cfg.Upload.MaxBytes,
	}, logger)

	webHandler, err := web.NewHandler(svc, web.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		UploadLimit:    cfg.Upload.MaxBytes,
	}, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	secret, err := sessionSecret(cfg, logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	sessions := identity.NewManager(identity.TokenConfig{
		Secret: secret,
		TTL:    cfg.Store.SessionTTL,
		Issuer: cfg.Name,
	})

	apiServer := server.NewHTTPServer(cfg, logger, server.Deps{
		Web:      webHandler,
		Sessions: sessions,
		Store:    st,
		Gatherer: reg,
	})

	return &Application{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		http:      apiServer,
		janitor:   janitor,
		bgCancels: make([]context.CancelFunc, 0, 1),
	}, nil
}

func openStore(ctx context.Context, cfg *config.App) (store.Store, error) {
	ttl := cfg.Store.SessionTTL
	switch cfg.Store.Driver {
	case store.DriverMemory:
		return store.NewMemory(ttl), nil

	case store.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return store.NewRedis(client, ttl, cfg.Redis.KeyPrefix), nil

	case store.DriverPostgres:
		poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("parse postgres dsn: %w", err)
		}
		poolCfg.MaxConns = cfg.Postgres.MaxConns
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		return store.NewPostgres(pool, ttl), nil

	case store.DriverSQLite:
		s, err := store.OpenSQLite(ctx, cfg.SQLite.DSN, ttl)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// sessionSecret returns the configured secret, or a random one outside
// production. Random secrets do not survive a restart.
func sessionSecret(cfg *config.App, logger zerolog.Logger) ([]byte, error) {
	if cfg.Security.SessionSecret != "" {
		return []byte(cfg.Security.SessionSecret), nil
	}
	if cfg.IsProduction() {
		return nil, errors.New("SESSION_SECRET must be configured")
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate session secret: %w", err)
	}
	logger.Warn().Msg("SESSION_SECRET not set; using a random secret, sessions reset on restart")
	return secret, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}

	if err := a.store.Close(); err != nil {
		a.logger.Error().Err(err).Msg("store shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return runErr
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	if a.janitor == nil {
		return
	}
	bgCtx, cancel := context.WithCancel(ctx)
	a.bgCancels = append(a.bgCancels, cancel)
	go func() {
		if err := a.janitor.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn().Err(err).Msg("store janitor stopped")
		}
	}()
}
