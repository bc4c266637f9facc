package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Janitor periodically removes expired session values from stores that do
// not expire keys on their own.
type Janitor struct {
	purger   Purger
	logger   zerolog.Logger
	interval time.Duration
	now      func() time.Time
}

func NewJanitor(purger Purger, interval time.Duration, logger zerolog.Logger) *Janitor {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Janitor{
		purger:   purger,
		logger:   logger.With().Str("component", "store_janitor").Logger(),
		interval: interval,
		now:      time.Now,
	}
}

// Run blocks until context cancellation.
func (j *Janitor) Run(ctx context.Context) error {
	if j.purger == nil {
		return nil
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	n, err := j.purger.PurgeExpired(ctx, j.now())
	if err != nil {
		j.logger.Warn().Err(err).Msg("purge expired session values failed")
		return
	}
	if n > 0 {
		j.logger.Info().Int64("purged", n).Msg("expired session values removed")
	}
}
