package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"quizforge"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Store    Store
	Redis    Redis
	Postgres Postgres
	SQLite   SQLite
	Security Security
	AI       AI
	Upload   Upload
	CORS     CORS
}

// IsProduction reports whether APP_ENV is "production".
func (a *App) IsProduction() bool { return a.Env == "production" }

// Store selects the session store backend.
type Store struct {
	Driver          string        `env:"STORE_DRIVER" envDefault:"memory"`
	SessionTTL      time.Duration `env:"STORE_SESSION_TTL" envDefault:"72h"`
	JanitorInterval time.Duration `env:"STORE_JANITOR_INTERVAL" envDefault:"10m"`
}

// Redis holds connection settings for the redis store.
type Redis struct {
	Addr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password  string `env:"REDIS_PASSWORD"`
	DB        int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize  int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"quiz"`
}

// Postgres captures connection info for the postgres store.
type Postgres struct {
	Host     string `env:"PG_HOST" envDefault:"localhost"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER"`
	Password string `env:"PG_PASSWORD"`
	Database string `env:"PG_DATABASE"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int32  `env:"PG_MAX_CONNS" envDefault:"10"`
}

// DSN renders the pgx connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

type SQLite struct {
	DSN string `env:"SQLITE_DSN" envDefault:"file:quizforge.db?mode=rwc&_pragma=busy_timeout(5000)"`
}

// Security stores the session cookie signing secret.
type Security struct {
	SessionSecret string `env:"SESSION_SECRET"`
	CookieName    string `env:"SESSION_COOKIE_NAME" envDefault:"quiz_session"`
}

// AI configures the question generator service.
type AI struct {
	GeneratorURL string        `env:"AI_GENERATOR_URL"`
	GeneratorKey string        `env:"AI_GENERATOR_API_KEY"`
	HTTPTimeout  time.Duration `env:"AI_HTTP_TIMEOUT" envDefault:"30s"`
	DefaultCount int           `env:"AI_DEFAULT_QUESTION_COUNT" envDefault:"5"`
	MaxCount     int           `env:"AI_MAX_QUESTION_COUNT" envDefault:"20"`
}

type Upload struct {
	MaxBytes int64 `env:"UPLOAD_MAX_BYTES" envDefault:"1048576"`
}

// CORS holds Cross-Origin Resource Sharing configuration for the JSON API.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks settings that depend on each other.
func (a *App) Validate() error {
	switch a.Store.Driver {
	case "memory", "redis", "sqlite":
	case "postgres":
		if a.Postgres.User == "" || a.Postgres.Database == "" {
			return errors.New("PG_USER and PG_DATABASE are required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", a.Store.Driver)
	}
	if a.IsProduction() && a.Security.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required in production")
	}
	if a.AI.MaxCount < 1 {
		return errors.New("AI_MAX_QUESTION_COUNT must be at least 1")
	}
	if a.AI.DefaultCount < 1 || a.AI.DefaultCount > a.AI.MaxCount {
		return fmt.Errorf("AI_DEFAULT_QUESTION_COUNT must be between 1 and %d", a.AI.MaxCount)
	}
	if a.Upload.MaxBytes <= 0 {
		return errors.New("UPLOAD_MAX_BYTES must be positive")
	}
	return nil
}
