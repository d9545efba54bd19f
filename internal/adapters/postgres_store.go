// Copyright 2025 Takhin Data, Inc.

package adapters

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/takhin-data/stratum/internal/tier"
)

// dbExecer abstracts the subset of pgxpool.Pool / pgx.Tx this adapter needs,
// so tests can stub it without a live Postgres connection.
type dbExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore implements tier.StructuredStoreAdapter over a single
// jsonb-valued column per logical table (tiered_storage_warm,
// tiered_storage_cold, tiered_storage_backup, ...), per spec.md §6's
// persisted schema. Table names are caller-chosen and created lazily by the
// migration tooling, not by this adapter.
type PostgresStore struct {
	db dbExecer
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool}
}

func (s *PostgresStore) Put(ctx context.Context, table, id string, row tier.Row) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("postgres: marshal row %q/%q: %w", table, id, err)
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, value, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (id) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, table)
	if _, err := s.db.Exec(ctx, query, id, data); err != nil {
		return fmt.Errorf("postgres: put %q/%q: %w", table, id, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, table, id string) (tier.Row, bool, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE id = $1`, table)
	var data []byte
	err := s.db.QueryRow(ctx, query, id).Scan(&data)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("postgres: get %q/%q: %w", table, id, err)
	}
	var row tier.Row
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, false, fmt.Errorf("postgres: unmarshal %q/%q: %w", table, id, err)
	}
	return row, true, nil
}

func (s *PostgresStore) Delete(ctx context.Context, table, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table)
	if _, err := s.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("postgres: delete %q/%q: %w", table, id, err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, table string, filter func(tier.Row) bool) ([]tier.Row, error) {
	query := fmt.Sprintf(`SELECT value FROM %s`, table)
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: query %q: %w", table, err)
	}
	defer rows.Close()

	var out []tier.Row
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("postgres: scan %q: %w", table, err)
		}
		var row tier.Row
		if err := json.Unmarshal(data, &row); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal %q: %w", table, err)
		}
		if filter == nil || filter(row) {
			out = append(out, row)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate %q: %w", table, err)
	}
	return out, nil
}

// Transaction runs fn against a tx-scoped StructuredStoreAdapter, committing
// on success and rolling back on error or panic.
func (s *PostgresStore) Transaction(ctx context.Context, fn func(ctx context.Context, tx tier.StructuredStoreAdapter) error) error {
	pool, ok := s.db.(*pgxpool.Pool)
	if !ok {
		// Test doubles that aren't a real pool run fn directly, non-transactionally.
		return fn(ctx, s)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	txStore := &PostgresStore{db: tx}
	if err := fn(ctx, txStore); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	committed = true
	return nil
}

var _ tier.StructuredStoreAdapter = (*PostgresStore)(nil)
