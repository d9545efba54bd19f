package cache

import (
	"context"
	"sync"
	"time"
)

// memAdapter is a trivial in-memory L2Adapter/L3Adapter test double, with no
// TTL enforcement (tests control time explicitly via the fake clock where it
// matters).
type memAdapter struct {
	mu   sync.Mutex
	data map[string][]byte
	tags map[string]map[string]struct{} // tag -> keys
}

func newMemAdapter() *memAdapter {
	return &memAdapter{data: make(map[string][]byte), tags: make(map[string]map[string]struct{})}
}

func (m *memAdapter) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memAdapter) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memAdapter) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memAdapter) DeleteByTag(_ context.Context, tag string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := m.tags[tag]
	for k := range keys {
		delete(m.data, k)
	}
	n := len(keys)
	delete(m.tags, tag)
	return n, nil
}

// tagKey lets tests register L2/L3-side tag membership explicitly, since the
// real adapters (Redis sets, Postgres columns) index tags server-side.
func (m *memAdapter) tagKey(tag, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tags[tag] == nil {
		m.tags[tag] = make(map[string]struct{})
	}
	m.tags[tag][key] = struct{}{}
}

type memPublisher struct {
	mu        sync.Mutex
	published []string
}

func (p *memPublisher) Publish(_ context.Context, channel string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, channel)
	return nil
}
