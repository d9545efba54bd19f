// Copyright 2025 Takhin Data, Inc.

// Package warmer implements the Cache Warmer: strategy-driven
// pre-population of the Multi-Level Cache, per spec.md §4.6.
//
// Grounded on the teacher's pkg/storage/tiered/tier_manager.go migration
// worker shape (batch, bounded parallelism via a semaphore channel,
// retry-with-backoff) generalized from tier migration batches to warm-up
// entry batches, plus the minimal interval-only cron parser documented as
// acceptable in spec.md §9 Open Questions (full cron parsing is out of
// scope).
package warmer

import "time"

// Strategy identifies how a warm-up run was triggered.
type Strategy string

const (
	StrategyOnStartup Strategy = "ON_STARTUP"
	StrategyScheduled Strategy = "SCHEDULED"
	StrategyPredictive Strategy = "PREDICTIVE"
	StrategyManual    Strategy = "MANUAL"
)

// Entry is one key nominated for warming.
type Entry struct {
	Key      string
	Priority int
	Fetch    func() ([]byte, error)
}

// Config bounds batching, retry, and predictive-warming behavior, per the
// Warming section of §6's configuration surface.
type Config struct {
	BatchSize           int
	Parallelism         int
	DelayBetweenBatches time.Duration
	MaxRetries          int
	RetryDelay          time.Duration
	Timeout             time.Duration
	PredictiveThreshold float64
	MaxPredictiveKeys   int

	// MaxEntriesPerSecond bounds warm-up dispatch rate across all workers in
	// a batch, independent of Parallelism's concurrency cap. Zero disables
	// rate limiting (dispatch is bounded by Parallelism alone).
	MaxEntriesPerSecond float64
}

func DefaultConfig() Config {
	return Config{
		BatchSize:           50,
		Parallelism:         5,
		DelayBetweenBatches: 100 * time.Millisecond,
		MaxRetries:          3,
		RetryDelay:          200 * time.Millisecond,
		Timeout:             5 * time.Second,
		PredictiveThreshold: 0.7,
		MaxPredictiveKeys:   20,
		MaxEntriesPerSecond: 0,
	}
}

// Stats is the warm-up run counters from spec.md §4.6.
type Stats struct {
	Total           int64
	Success         int64
	Failure         int64
	Pending         int64
	AvgWarmupTimeMs float64
	LastWarmupAt    time.Time
}

// Schedule is a named, periodic warm-up trigger.
type Schedule struct {
	ID      string
	Cron    string
	Entries []Entry
	Enabled bool
}

// Setter writes a fetched value into the cache being warmed. Kept as an
// interface so this package never imports internal/cache.
type Setter interface {
	Set(key string, value []byte) error
}

// Predictor supplies predictive-warming candidates, matching the Multi-Level
// Cache's own predictor shape so both draw from identical per-key interval
// history (spec.md §4.6: "consumes per-key access intervals identically to
// the Multi-Level Cache's predictor").
type Predictor interface {
	PredictiveCandidates() []PreloadCandidate
}

// PreloadCandidate mirrors internal/cache.PreloadCandidate without importing
// that package.
type PreloadCandidate struct {
	Key   string
	Score float64
}
