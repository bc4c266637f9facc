package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores values in the session_values table created by cmd/migrator.
type Postgres struct {
	pool *pgxpool.Pool
	ttl  time.Duration
	now  func() time.Time
}

var (
	_ Store  = (*Postgres)(nil)
	_ Purger = (*Postgres)(nil)
)

func NewPostgres(pool *pgxpool.Pool, ttl time.Duration) *Postgres {
	return &Postgres{pool: pool, ttl: ttlOrDefault(ttl), now: time.Now}
}

func (p *Postgres) Get(ctx context.Context, sessionID, key string) ([]byte, error) {
	var value []byte
	err := p.pool.QueryRow(ctx,
		`SELECT value FROM session_values WHERE session_id = $1 AND key_name = $2 AND expires_at > $3`,
		sessionID, key, p.now().UTC(),
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

func (p *Postgres) Set(ctx context.Context, sessionID, key string, value []byte) error {
	now := p.now().UTC()
	expires := now.Add(p.ttl)

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `
		INSERT INTO session_values (session_id, key_name, value, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id, key_name)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at, expires_at = EXCLUDED.expires_at`,
		sessionID, key, value, now, expires,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE session_values SET expires_at = $2 WHERE session_id = $1`,
		sessionID, expires,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *Postgres) Delete(ctx context.Context, sessionID, key string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM session_values WHERE session_id = $1 AND key_name = $2`, sessionID, key)
	return err
}

func (p *Postgres) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM session_values WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
