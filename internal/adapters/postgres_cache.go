// Copyright 2025 Takhin Data, Inc.

package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCacheStore implements cache.L3Adapter over a single table holding
// value bytes plus a text[] tags column, so DeleteByTag can be expressed as
// one indexed query instead of a key-by-key scan. Grounded on the same
// jsonb-per-table shape as PostgresStore, specialized for the Multi-Level
// Cache's L3 durable layer (spec.md §4.4).
type PostgresCacheStore struct {
	db    dbExecer
	table string
}

// NewPostgresCacheStore wraps pool for the given cache table name (expected
// to have columns key text primary key, value bytea, tags text[],
// expires_at timestamptz).
func NewPostgresCacheStore(pool *pgxpool.Pool, table string) *PostgresCacheStore {
	return &PostgresCacheStore{db: pool, table: table}
}

func (s *PostgresCacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())`, s.table)
	var data []byte
	err := s.db.QueryRow(ctx, query, key).Scan(&data)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("postgres cache: get %q: %w", key, err)
	}
	return data, true, nil
}

func (s *PostgresCacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt any
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, tags, expires_at)
		VALUES ($1, $2, '{}', $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`, s.table)
	if _, err := s.db.Exec(ctx, query, key, value, expiresAt); err != nil {
		return fmt.Errorf("postgres cache: set %q: %w", key, err)
	}
	return nil
}

func (s *PostgresCacheStore) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table)
	if _, err := s.db.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("postgres cache: delete %q: %w", key, err)
	}
	return nil
}

// Tag appends tag to key's tags array unless it is already present. A key
// with no row is left untouched; no row is created.
func (s *PostgresCacheStore) Tag(ctx context.Context, key, tag string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET tags = array_append(tags, $2)
		WHERE key = $1 AND NOT ($2 = ANY(tags))`, s.table)
	if _, err := s.db.Exec(ctx, query, key, tag); err != nil {
		return fmt.Errorf("postgres cache: tag %q: %w", key, err)
	}
	return nil
}

// DeleteByTag removes every row carrying tag and reports the count removed.
func (s *PostgresCacheStore) DeleteByTag(ctx context.Context, tag string) (int, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE $1 = ANY(tags)`, s.table)
	tag2, err := s.db.Exec(ctx, query, tag)
	if err != nil {
		return 0, fmt.Errorf("postgres cache: delete by tag %q: %w", tag, err)
	}
	return int(tag2.RowsAffected()), nil
}
