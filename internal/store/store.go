// Package store persists per-browser quiz values (question set, result,
// raw generator text, session progress) keyed by session id.
package store

import (
	"context"
	"errors"
	"time"
)

// Keys stored per browser session.
const (
	KeyQuizData   = "quizData"
	KeyQuizResult = "quizResult"
	KeyRawText    = "testData"
	KeyQuizState  = "quizState"
)

// sessionKeys lists every key a session may hold.
var sessionKeys = []string{KeyQuizData, KeyQuizResult, KeyRawText, KeyQuizState}

// Supported drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("store: value not found")

// Store is a key/value space partitioned by browser session id.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, sessionID, key string) ([]byte, error)
	Set(ctx context.Context, sessionID, key string, value []byte) error
	Delete(ctx context.Context, sessionID, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Purger is implemented by stores that need explicit expiry sweeps.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

const defaultTTL = 72 * time.Hour

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return defaultTTL
	}
	return ttl
}
