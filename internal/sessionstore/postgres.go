package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS client_sessions (
	key           TEXT PRIMARY KEY,
	auth_token    TEXT NOT NULL,
	refresh_token TEXT NOT NULL DEFAULT '',
	saved_at      TIMESTAMPTZ NOT NULL
)`

const upsertSQL = `
INSERT INTO client_sessions (key, auth_token, refresh_token, saved_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (key) DO UPDATE SET
	auth_token    = EXCLUDED.auth_token,
	refresh_token = EXCLUDED.refresh_token,
	saved_at      = EXCLUDED.saved_at`

const selectSQL = `SELECT auth_token, refresh_token, saved_at FROM client_sessions WHERE key = $1`

const deleteSQL = `DELETE FROM client_sessions WHERE key = $1`

// DB is the subset of *pgxpool.Pool used by PostgresStore.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps records in the client_sessions table.
type PostgresStore struct {
	db DB
}

// NewPostgresStore returns a store backed by db. Call EnsureSchema once
// before first use.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the client_sessions table if it does not exist.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create client_sessions: %w", err)
	}
	return nil
}

func (p *PostgresStore) Save(ctx context.Context, key string, rec Record) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if _, err := p.db.Exec(ctx, upsertSQL, key, rec.AuthToken, rec.RefreshToken, rec.SavedAt.UTC()); err != nil {
		return fmt.Errorf("save session %q: %w", key, err)
	}
	return nil
}

func (p *PostgresStore) Load(ctx context.Context, key string) (Record, error) {
	if err := ValidateKey(key); err != nil {
		return Record{}, err
	}

	var rec Record
	var savedAt time.Time
	err := p.db.QueryRow(ctx, selectSQL, key).Scan(&rec.AuthToken, &rec.RefreshToken, &savedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load session %q: %w", key, err)
	}
	rec.SavedAt = savedAt.UTC()
	return rec, nil
}

func (p *PostgresStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if _, err := p.db.Exec(ctx, deleteSQL, key); err != nil {
		return fmt.Errorf("delete session %q: %w", key, err)
	}
	return nil
}
