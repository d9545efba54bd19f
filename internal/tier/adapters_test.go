package tier

import (
	"context"
	"sync"
	"time"
)

// memKV is a minimal in-memory KeyValueAdapter used only by this package's
// tests, in the teacher's own style of hand-rolled in-memory test doubles.
type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemKV() *memKV { return &memKV{data: make(map[string][]byte)} }

func (m *memKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Del(ctx context.Context, key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; !ok {
		return 0, nil
	}
	delete(m.data, key)
	return 1, nil
}

func (m *memKV) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *memKV) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return true, nil
}

func (m *memKV) TTL(ctx context.Context, key string) (time.Duration, error) { return 0, nil }

func (m *memKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	return out, nil
}

func (m *memKV) InfoStats(ctx context.Context) (KeyValueStats, error) { return KeyValueStats{}, nil }

// memRows is a minimal in-memory StructuredStoreAdapter.
type memRows struct {
	mu     sync.Mutex
	tables map[string]map[string]Row
}

func newMemRows() *memRows { return &memRows{tables: make(map[string]map[string]Row)} }

func (m *memRows) Put(ctx context.Context, table, id string, row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tables[table] == nil {
		m.tables[table] = make(map[string]Row)
	}
	m.tables[table][id] = row
	return nil
}

func (m *memRows) Get(ctx context.Context, table, id string) (Row, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.tables[table][id]
	return r, ok, nil
}

func (m *memRows) Delete(ctx context.Context, table, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables[table], id)
	return nil
}

func (m *memRows) Query(ctx context.Context, table string, filter func(Row) bool) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Row
	for _, r := range m.tables[table] {
		if filter == nil || filter(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRows) Transaction(ctx context.Context, fn func(ctx context.Context, tx StructuredStoreAdapter) error) error {
	return fn(ctx, m)
}

// memObjects is a minimal in-memory ObjectStoreAdapter.
type memObjects struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemObjects() *memObjects { return &memObjects{data: make(map[string][]byte)} }

func (m *memObjects) Upload(ctx context.Context, key string, data []byte, opts ObjectUploadOptions) (ObjectUploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := append([]byte(nil), data...)
	m.data[key] = cp
	return ObjectUploadResult{ETag: key}, nil
}

func (m *memObjects) Download(ctx context.Context, key string, opts ObjectDownloadOptions) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memObjects) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memObjects) List(ctx context.Context, prefix string, max int) ([]string, error) {
	return nil, nil
}

func (m *memObjects) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *memObjects) Head(ctx context.Context, key string) (ObjectMetadata, error) {
	return ObjectMetadata{}, nil
}
