// Copyright 2025 Takhin Data, Inc.

// Package cache implements the Multi-Level Cache: transparent read-through
// across L1 (process-local)/L2 (shared fast store)/L3 (shared durable
// store) with promotion, write fan-out, tag invalidation, and analytics.
// Independent of the Tiered Storage Engine, though it shares the same
// adapter-interface shape and the lifecycle package's access-interval
// bookkeeping for predictive preloading.
//
// Grounded on other_examples/3049fd1f_okinrev-veza-full-stack__..
// multilevel_cache_service.go (L1(mem)/L2(redis) read-through-with-promote,
// concurrent write fan-out via goroutines+WaitGroup, hit/miss counters with
// computed ratios), adapted into the teacher's locking/logging idiom.
package cache

import "time"

// entry is one L1 row.
type entry struct {
	Key         string
	Value       []byte
	CreatedAt   time.Time
	AccessedAt  time.Time
	AccessCount int64
	TTL         time.Duration
	Tags        map[string]struct{}
	Priority    int
}

func (e *entry) expiresAt() time.Time { return e.CreatedAt.Add(e.TTL) }

func (e *entry) expired(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return !now.Before(e.expiresAt())
}

// SetOptions configures one Set call.
type SetOptions struct {
	TTL      *time.Duration
	Tags     []string
	Priority int
	Layers   []Layer
}

// Layer identifies one of the three cache tiers for Set's optional `layers`.
type Layer int

const (
	L1 Layer = iota
	L2
	L3
)

func allLayers() []Layer { return []Layer{L1, L2, L3} }

// Config bounds the cache's capacity, default TTLs, and feature flags, per
// the Cache section of §6's configuration surface.
type Config struct {
	L1MaxSize              int
	L1TTL                  time.Duration
	L2TTL                  time.Duration
	L3TTL                  time.Duration
	EvictionPolicy         string
	SlidingTTL             bool
	PredictiveEnabled      bool
	PredictiveThreshold    float64
	MaxPredictiveKeys      int
	DistributedCoordEnabled bool
	CoordChannel           string
	AnalyticsEnabled       bool
	AnalyticsRetention     time.Duration
}

func DefaultConfig() Config {
	return Config{
		L1MaxSize:           1000,
		L1TTL:               300 * time.Second,
		L2TTL:               3600 * time.Second,
		L3TTL:               86400 * time.Second,
		EvictionPolicy:      "lru",
		PredictiveEnabled:   true,
		PredictiveThreshold: 0.7,
		MaxPredictiveKeys:   10,
		CoordChannel:        "cache_invalidation",
		AnalyticsEnabled:    true,
		AnalyticsRetention:  24 * time.Hour,
	}
}

// InvalidationEvent is the payload published on distributed writes/deletes
// so peer instances can flush their own L1 copies.
type InvalidationEvent struct {
	Type string // "set" | "delete" | "invalidate_tag"
	Key  string
	Tag  string
	At   time.Time
}

// PreloadCandidate is one key nominated by the predictive-preloading pass.
type PreloadCandidate struct {
	Key   string
	Score float64
}
