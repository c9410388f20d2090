package savedviews

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool used by PostgresKV.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS saved_view_sets (
	key        TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	selectPayloadSQL = `SELECT payload FROM saved_view_sets WHERE key = $1`
	upsertPayloadSQL = `INSERT INTO saved_view_sets (key, payload, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`
)

// PostgresKV keeps one row per list page in saved_view_sets.
type PostgresKV struct {
	db Querier
}

// NewPostgresKV wraps a pool or connection.
func NewPostgresKV(db Querier) *PostgresKV {
	return &PostgresKV{db: db}
}

// EnsureSchema creates the backing table when missing.
func (p *PostgresKV) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("savedviews: ensure schema: %w", err)
	}
	return nil
}

// Get loads the payload stored under key.
func (p *PostgresKV) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := p.db.QueryRow(ctx, selectPayloadSQL, key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("savedviews: select %s: %w", key, err)
	}
	return payload, nil
}

// Set upserts the payload under key.
func (p *PostgresKV) Set(ctx context.Context, key string, value []byte) error {
	if _, err := p.db.Exec(ctx, upsertPayloadSQL, key, value); err != nil {
		return fmt.Errorf("savedviews: upsert %s: %w", key, err)
	}
	return nil
}
