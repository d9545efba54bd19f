package adapters

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takhin-data/stratum/internal/tier"
)

// fakeDB is a minimal dbExecer test double storing one JSON blob per
// (table, id) pair, enough to exercise Put/Get/Delete without a live
// Postgres connection.
type fakeDB struct {
	rows map[string][]byte
}

func newFakeDB() *fakeDB { return &fakeDB{rows: make(map[string][]byte)} }

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	// args: either [id, data] for an upsert or [id] for a delete, with the
	// table name baked into sql by the caller; tests only exercise Put/Delete.
	if len(args) == 2 {
		id := args[0].(string)
		data := args[1].([]byte)
		f.rows[sqlTableHack(sql)+"/"+id] = data
	} else if len(args) == 1 {
		id := args[0].(string)
		delete(f.rows, sqlTableHack(sql)+"/"+id)
	}
	return pgconn.CommandTag{}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	id := args[0].(string)
	data, ok := f.rows[sqlTableHack(sql)+"/"+id]
	return &fakeRow{data: data, found: ok}
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, assertNotImplemented
}

type fakeRow struct {
	data  []byte
	found bool
}

func (r *fakeRow) Scan(dest ...any) error {
	if !r.found {
		return pgx.ErrNoRows
	}
	ptr := dest[0].(*[]byte)
	*ptr = r.data
	return nil
}

var assertNotImplemented = errorString("not implemented in fakeDB")

type errorString string

func (e errorString) Error() string { return string(e) }

// sqlTableHack extracts the first identifier following FROM/INTO, since the
// real table name is interpolated into the SQL string by PostgresStore.
func sqlTableHack(sql string) string {
	for _, marker := range []string{"INTO ", "FROM "} {
		if idx := indexOf(sql, marker); idx >= 0 {
			rest := sql[idx+len(marker):]
			end := indexOfAny(rest, " \n(")
			if end < 0 {
				end = len(rest)
			}
			return rest[:end]
		}
	}
	return ""
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func indexOfAny(s, chars string) int {
	for i, c := range s {
		for _, target := range chars {
			if c == target {
				return i
			}
		}
	}
	return -1
}

func TestPostgresStorePutThenGet(t *testing.T) {
	db := newFakeDB()
	store := &PostgresStore{db: db}
	ctx := context.Background()

	row := tier.Row{"value": "hello"}
	require.NoError(t, store.Put(ctx, "tiered_storage_warm", "id1", row))

	got, ok, err := store.Get(ctx, "tiered_storage_warm", "id1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", got["value"])
}

func TestPostgresStoreGetMissingReturnsAbsent(t *testing.T) {
	db := newFakeDB()
	store := &PostgresStore{db: db}

	_, ok, err := store.Get(context.Background(), "tiered_storage_warm", "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostgresStoreDelete(t *testing.T) {
	db := newFakeDB()
	store := &PostgresStore{db: db}
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "tiered_storage_warm", "id1", tier.Row{"value": "hello"}))
	require.NoError(t, store.Delete(ctx, "tiered_storage_warm", "id1"))

	_, ok, err := store.Get(ctx, "tiered_storage_warm", "id1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostgresStoreTransactionNonPoolRunsDirectly(t *testing.T) {
	db := newFakeDB()
	store := &PostgresStore{db: db}
	ctx := context.Background()

	err := store.Transaction(ctx, func(ctx context.Context, tx tier.StructuredStoreAdapter) error {
		return tx.Put(ctx, "tiered_storage_warm", "id1", tier.Row{"value": "in-tx"})
	})
	require.NoError(t, err)

	got, ok, err := store.Get(ctx, "tiered_storage_warm", "id1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "in-tx", got["value"])
}
