package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite" // driver: sqlite
)

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS session_values (
  session_id TEXT NOT NULL,
  key_name TEXT NOT NULL,
  value BLOB NOT NULL,
  updated_at INTEGER NOT NULL,
  expires_at INTEGER NOT NULL,
  PRIMARY KEY (session_id, key_name)
);
CREATE INDEX IF NOT EXISTS idx_session_values_expires_at ON session_values(expires_at);
`

// SQLite stores values in a local database file. Timestamps are unix seconds.
type SQLite struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

var (
	_ Store  = (*SQLite)(nil)
	_ Purger = (*SQLite)(nil)
)

// OpenSQLite opens (or creates) the database at dsn and ensures the schema.
func OpenSQLite(ctx context.Context, dsn string, ttl time.Duration) (*SQLite, error) {
	if dsn == "" {
		dsn = "file:quizforge.db?mode=rwc&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// a single writer avoids SQLITE_BUSY and keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schemaSQLite); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db, ttl: ttlOrDefault(ttl), now: time.Now}, nil
}

func (s *SQLite) Get(ctx context.Context, sessionID, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_values WHERE session_id = ? AND key_name = ? AND expires_at > ?`,
		sessionID, key, s.now().Unix(),
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

func (s *SQLite) Set(ctx context.Context, sessionID, key string, value []byte) error {
	now := s.now()
	expires := now.Add(s.ttl).Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO session_values (session_id, key_name, value, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (session_id, key_name)
		DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at, expires_at = excluded.expires_at`,
		sessionID, key, value, now.Unix(), expires,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE session_values SET expires_at = ? WHERE session_id = ?`,
		expires, sessionID,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) Delete(ctx context.Context, sessionID, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_values WHERE session_id = ? AND key_name = ?`, sessionID, key)
	return err
}

func (s *SQLite) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM session_values WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
