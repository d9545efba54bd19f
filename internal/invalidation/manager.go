// Copyright 2025 Takhin Data, Inc.

package invalidation

import (
	"sync"
	"time"

	"github.com/takhin-data/stratum/internal/clock"
	"github.com/takhin-data/stratum/internal/pubsub"
	"github.com/takhin-data/stratum/pkg/logger"
)

// Remover performs the actual removal of a key once this manager decides it
// is invalid. Wired to the Multi-Level Cache's Delete in production; kept as
// an interface so this package never imports internal/cache.
type Remover interface {
	Delete(key string) error
}

type ttlEntry struct {
	ttl    time.Duration
	cancel chan struct{}
}

// Manager is the Cache Invalidation Manager from spec.md §4.5.
type Manager struct {
	mu sync.Mutex

	clock   clock.Clock
	cfg     Config
	remover Remover
	pub     Publisher
	pattern PatternAdapter
	log     *logger.Logger

	timers map[string]*ttlEntry

	tagToKeys map[string]map[string]struct{}
	keyToTags map[string]map[string]struct{}

	dependsOn  map[string]map[string]struct{} // key -> keys it depends on
	dependents map[string]map[string]struct{} // key -> keys that depend on it

	history []Event

	events *pubsub.Bus[Event]

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

func New(clk clock.Clock, log *logger.Logger, cfg Config, remover Remover, pub Publisher, pattern PatternAdapter) *Manager {
	return &Manager{
		clock:      clk,
		cfg:        cfg,
		remover:    remover,
		pub:        pub,
		pattern:    pattern,
		log:        log.WithComponent("invalidation"),
		timers:     make(map[string]*ttlEntry),
		tagToKeys:  make(map[string]map[string]struct{}),
		keyToTags:  make(map[string]map[string]struct{}),
		dependsOn:  make(map[string]map[string]struct{}),
		dependents: make(map[string]map[string]struct{}),
		events:     pubsub.New[Event](),
		stopCh:     make(chan struct{}),
	}
}

// Events exposes the local invalidation event bus.
func (m *Manager) Events() *pubsub.Bus[Event] { return m.events }

// History returns a snapshot of the bounded invalidation history, most
// recent last.
func (m *Manager) History() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.history))
	copy(out, m.history)
	return out
}

func (m *Manager) appendHistory(ev Event) {
	m.history = append(m.history, ev)
	if max := m.cfg.MaxHistorySize; max > 0 && len(m.history) > max {
		m.history = m.history[len(m.history)-max:]
	}
}

// SetTTL arms (or re-arms, cancelling any existing timer) a one-shot expiry
// callback for key. A ttl of zero uses cfg.DefaultTTL.
func (m *Manager) SetTTL(key string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.cfg.DefaultTTL
	}

	m.mu.Lock()
	if existing, ok := m.timers[key]; ok {
		close(existing.cancel)
	}
	cancel := make(chan struct{})
	m.timers[key] = &ttlEntry{ttl: ttl, cancel: cancel}
	m.mu.Unlock()

	ch := m.clock.After(ttl)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		select {
		case <-ch:
			m.expire(key)
		case <-cancel:
		case <-m.stopCh:
		}
	}()
}

// Touch re-arms key's TTL timer from now, if sliding TTL is enabled and a
// timer is currently registered for key.
func (m *Manager) Touch(key string) {
	if !m.cfg.SlidingTTL {
		return
	}
	m.mu.Lock()
	existing, ok := m.timers[key]
	m.mu.Unlock()
	if !ok {
		return
	}
	m.SetTTL(key, existing.ttl)
}

// CancelTTL cancels key's timer without invalidating it, e.g. on explicit
// overwrite via Set.
func (m *Manager) CancelTTL(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.timers[key]; ok {
		close(t.cancel)
		delete(m.timers, key)
	}
}

func (m *Manager) expire(key string) {
	m.mu.Lock()
	delete(m.timers, key)
	m.mu.Unlock()
	m.invalidate(key, "ttl", "expired")
}

// Tag registers key as a member of tag, symmetrically.
func (m *Manager) Tag(key, tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tagToKeys[tag] == nil {
		m.tagToKeys[tag] = make(map[string]struct{})
	}
	m.tagToKeys[tag][key] = struct{}{}
	if m.keyToTags[key] == nil {
		m.keyToTags[key] = make(map[string]struct{})
	}
	m.keyToTags[key][tag] = struct{}{}
}

func (m *Manager) untagLocked(key string) {
	for tag := range m.keyToTags[key] {
		if keys, ok := m.tagToKeys[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(m.tagToKeys, tag)
			}
		}
	}
	delete(m.keyToTags, key)
}

// InvalidateByTag invalidates every key registered under tag, returning the
// number of keys invalidated.
func (m *Manager) InvalidateByTag(tag string) int {
	m.mu.Lock()
	keys := make([]string, 0, len(m.tagToKeys[tag]))
	for k := range m.tagToKeys[tag] {
		keys = append(keys, k)
	}
	m.mu.Unlock()

	for _, k := range keys {
		m.invalidate(k, "tag", "tag:"+tag)
	}
	return len(keys)
}

// DependsOn records that key depends on parent: invalidating parent cascades
// to key (and transitively to key's own dependents).
func (m *Manager) DependsOn(key, parent string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dependsOn[key] == nil {
		m.dependsOn[key] = make(map[string]struct{})
	}
	m.dependsOn[key][parent] = struct{}{}
	if m.dependents[parent] == nil {
		m.dependents[parent] = make(map[string]struct{})
	}
	m.dependents[parent][key] = struct{}{}
}

// CascadeInvalidate invalidates key and breadth-first traverses its
// dependents up to cfg.CascadeDepth levels, cycle-safe via a visited set.
func (m *Manager) CascadeInvalidate(key string) []string {
	depth := m.cfg.CascadeDepth
	if depth <= 0 {
		depth = 5
	}

	visited := map[string]struct{}{key: {}}
	order := []string{key}
	frontier := []string{key}

	for level := 0; level < depth && len(frontier) > 0; level++ {
		m.mu.Lock()
		var next []string
		for _, k := range frontier {
			for d := range m.dependents[k] {
				if _, seen := visited[d]; seen {
					continue
				}
				visited[d] = struct{}{}
				next = append(next, d)
				order = append(order, d)
			}
		}
		m.mu.Unlock()
		frontier = next
	}

	for _, k := range order {
		m.invalidate(k, "dependency", "cascade")
	}
	return order
}

// InvalidateByPattern resolves pattern via the configured PatternAdapter and
// invalidates every matching key.
func (m *Manager) InvalidateByPattern(pattern string) (int, error) {
	if m.pattern == nil {
		return 0, nil
	}
	keys, err := m.pattern.Match(pattern)
	if err != nil {
		return 0, err
	}
	for _, k := range keys {
		m.invalidate(k, "pattern", "pattern:"+pattern)
	}
	return len(keys), nil
}

// Invalidate performs a direct, manually-triggered invalidation of key.
func (m *Manager) Invalidate(key, reason string) {
	m.invalidate(key, "manual", reason)
}

func (m *Manager) invalidate(key, typ, reason string) {
	m.mu.Lock()
	if t, ok := m.timers[key]; ok {
		close(t.cancel)
		delete(m.timers, key)
	}
	m.untagLocked(key)
	m.mu.Unlock()

	if m.remover != nil {
		if err := m.remover.Delete(key); err != nil {
			m.log.Warn("invalidation remove failed", "key", key, "error", err)
		}
	}

	ev := Event{Type: typ, Key: key, At: m.clock.Now(), Reason: reason}

	m.mu.Lock()
	m.appendHistory(ev)
	m.mu.Unlock()

	m.events.Publish(ev)

	if m.pub != nil {
		if err := m.pub.Publish(m.cfg.EventChannel, []byte(typ+":"+key)); err != nil {
			m.log.Warn("invalidation publish failed", "key", key, "error", err)
		}
	}
}

// Close cancels every outstanding TTL timer and waits for their goroutines
// to exit.
func (m *Manager) Close() {
	m.once.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}
