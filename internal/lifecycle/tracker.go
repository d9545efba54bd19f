// Copyright 2025 Takhin Data, Inc.

// Package lifecycle implements the Access-Pattern Tracker: per-key access
// bookkeeping, derived frequency/recency/trend analysis, and migration
// candidate nomination.
//
// Grounded on the teacher's pkg/storage/tiered/tier_manager.go AccessPattern
// bookkeeping (RecordAccess under a sync.RWMutex, access-count/time-windowed
// frequency), generalized from a single AverageReadHz figure into the
// (avg_interval_ms, peak_hour, trend) tuple this spec requires.
package lifecycle

import (
	"sort"
	"sync"
	"time"

	"github.com/takhin-data/stratum/internal/clock"
)

// Trend is the derived access-interval direction over the tracked window.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// Tier is a thin re-declaration to avoid an import cycle with internal/tier;
// the tracker only ever forwards the value it was given.
type Tier = int

// event is one (tier, at) access record for a key.
type event struct {
	tier Tier
	at   time.Time
}

// entry is the per-key bookkeeping row.
type entry struct {
	firstAccessAt time.Time
	lastAccessAt  time.Time
	accessCount   int64
	events        []event
}

// AccessPattern is the derived per-key summary returned by Analyze.
type AccessPattern struct {
	AccessCount  int64
	AvgIntervalMs float64
	LastAccessAt time.Time
	PeakHour     int
	Trend        Trend
}

// Candidate is one item nominated by MigrationCandidates.
type Candidate struct {
	Key          string
	LastAccessAt time.Time
}

// Config bounds the tracker's in-memory event retention.
type Config struct {
	// EventWindow discards events older than this when a pattern is read.
	EventWindow time.Duration
	// EventSampleSize caps how many recent events Analyze inspects for
	// peak-hour and trend computation (spec default: 100).
	EventSampleSize int
	// StaleAfter is the threshold MigrationCandidates uses (spec default: 1h).
	StaleAfter time.Duration
}

func DefaultConfig() Config {
	return Config{
		EventWindow:     30 * 24 * time.Hour,
		EventSampleSize: 100,
		StaleAfter:      time.Hour,
	}
}

// Tracker is the Access-Pattern Tracker.
type Tracker struct {
	mu      sync.RWMutex
	clock   clock.Clock
	cfg     Config
	entries map[string]*entry
}

func New(clk clock.Clock, cfg Config) *Tracker {
	return &Tracker{clock: clk, cfg: cfg, entries: make(map[string]*entry)}
}

// Track upserts the metadata row on create: first_access_at = last_access_at
// = now, access_count = 1.
func (t *Tracker) Track(key string) {
	now := t.clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[key] = &entry{
		firstAccessAt: now,
		lastAccessAt:  now,
		accessCount:   1,
	}
}

// RecordAccess atomically bumps last_access_at/access_count and appends an
// event to the log.
func (t *Tracker) RecordAccess(key string, tr Tier) {
	now := t.clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		e = &entry{firstAccessAt: now}
		t.entries[key] = e
	}
	e.lastAccessAt = now
	e.accessCount++
	e.events = append(e.events, event{tier: tr, at: now})
	t.pruneLocked(e, now)
}

func (t *Tracker) pruneLocked(e *entry, now time.Time) {
	if t.cfg.EventWindow <= 0 {
		return
	}
	cutoff := now.Add(-t.cfg.EventWindow)
	i := 0
	for ; i < len(e.events); i++ {
		if e.events[i].at.After(cutoff) {
			break
		}
	}
	if i > 0 {
		e.events = e.events[i:]
	}
}

// Remove purges metadata and event rows for key.
func (t *Tracker) Remove(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}

// AccessCount returns the live access_count for key, or 0 if untracked.
func (t *Tracker) AccessCount(key string) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if e, ok := t.entries[key]; ok {
		return e.accessCount
	}
	return 0
}

// FirstAccessAt/LastAccessAt expose the raw timestamps the engine needs for
// age/staleness computation.
func (t *Tracker) FirstAccessAt(key string) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[key]
	if !ok {
		return time.Time{}, false
	}
	return e.firstAccessAt, true
}

func (t *Tracker) LastAccessAt(key string) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[key]
	if !ok {
		return time.Time{}, false
	}
	return e.lastAccessAt, true
}

// Analyze computes the derived AccessPattern for key, or nil if untracked.
func (t *Tracker) Analyze(key string) *AccessPattern {
	now := t.clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		return nil
	}
	t.pruneLocked(e, now)

	denom := e.accessCount - 1
	if denom < 1 {
		denom = 1
	}
	avgIntervalMs := float64(e.lastAccessAt.Sub(e.firstAccessAt).Milliseconds()) / float64(denom)

	sample := e.events
	if n := t.cfg.EventSampleSize; n > 0 && len(sample) > n {
		sample = sample[len(sample)-n:]
	}

	peakHour := peakHourOf(sample)
	trend := trendOf(sample)

	return &AccessPattern{
		AccessCount:   e.accessCount,
		AvgIntervalMs: avgIntervalMs,
		LastAccessAt:  e.lastAccessAt,
		PeakHour:      peakHour,
		Trend:         trend,
	}
}

func peakHourOf(events []event) int {
	if len(events) == 0 {
		return 0
	}
	counts := make(map[int]int, 24)
	for _, ev := range events {
		counts[ev.at.Hour()]++
	}
	best, bestCount := 0, -1
	for h := 0; h < 24; h++ {
		if counts[h] > bestCount {
			best, bestCount = h, counts[h]
		}
	}
	return best
}

// trendOf splits the sample at its midpoint and compares average intervals
// of the two halves, per §4.2's analyze() rule.
func trendOf(events []event) Trend {
	if len(events) < 3 {
		return TrendStable
	}
	mid := len(events) / 2
	first := avgInterval(events[:mid])
	second := avgInterval(events[mid:])
	if first <= 0 || second <= 0 {
		return TrendStable
	}
	switch {
	case second < 0.8*first:
		return TrendIncreasing
	case second > 1.2*first:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func avgInterval(events []event) float64 {
	if len(events) < 2 {
		return 0
	}
	total := events[len(events)-1].at.Sub(events[0].at)
	return float64(total.Milliseconds()) / float64(len(events)-1)
}

// MigrationCandidates returns up to limit items whose last_access_at is
// older than StaleAfter, ordered ascending by last_access_at (staleness).
func (t *Tracker) MigrationCandidates(limit int) []Candidate {
	now := t.clock.Now()
	cutoff := now.Add(-t.cfg.StaleAfter)

	t.mu.RLock()
	candidates := make([]Candidate, 0, len(t.entries))
	for key, e := range t.entries {
		if e.lastAccessAt.Before(cutoff) {
			candidates = append(candidates, Candidate{Key: key, LastAccessAt: e.lastAccessAt})
		}
	}
	t.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].LastAccessAt.Before(candidates[j].LastAccessAt)
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}
