// Copyright 2025 Takhin Data, Inc.

// Package invalidation implements the Cache Invalidation Manager: explicit
// TTL timers, a symmetric tag index, a dependency graph with cascade
// invalidation, glob pattern invalidation delegated to an adapter, and a
// bounded history of InvalidationEvent rows — independent of the
// Multi-Level Cache's own lazy L1 eviction (spec.md §4.5).
//
// Grounded on the teacher's pkg/storage/tiered/tier_manager.go timer-per-key
// bookkeeping pattern (map + mutex + time.AfterFunc-style callback
// registration) and other_examples/222b1aa7_vasic-digital-SuperAgent__..
// tiered_cache.go's tag-set invalidation, generalized to add the dependency
// graph and pattern delegation spec.md requires.
package invalidation

import "time"

// Event is one invalidation occurrence, recorded into the bounded history
// ring buffer and fanned out to local/remote subscribers.
type Event struct {
	Type     string // "ttl" | "tag" | "dependency" | "pattern" | "manual"
	Key      string
	At       time.Time
	Reason   string
	Metadata map[string]string
}

// PatternAdapter performs glob-style key matching against whatever store
// backs the pattern (spec.md §4.5: "delegated to adapter").
type PatternAdapter interface {
	Match(pattern string) ([]string, error)
}

// Publisher fans out invalidation events to peer instances.
type Publisher interface {
	Publish(channel string, payload []byte) error
}

// Config bounds the manager's TTL defaults, cascade depth, and history size,
// per the Invalidation section of §6's configuration surface.
type Config struct {
	DefaultTTL     time.Duration
	SlidingTTL     bool
	EventChannel   string
	CascadeDepth   int
	MaxHistorySize int
}

func DefaultConfig() Config {
	return Config{
		DefaultTTL:     300 * time.Second,
		EventChannel:   "cache_invalidation",
		CascadeDepth:   5,
		MaxHistorySize: 1000,
	}
}
