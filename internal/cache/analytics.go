// Copyright 2025 Takhin Data, Inc.

package cache

import (
	"sync"
	"time"
)

// LayerStats holds the hit/miss counters for one cache layer.
type LayerStats struct {
	Hits   int64
	Misses int64
}

// HitRate returns hits / (hits + misses), or 0 if the layer has never been
// queried.
func (s LayerStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Snapshot is a point-in-time read of the CacheAnalytics surface from
// spec.md §3.
type Snapshot struct {
	L1              LayerStats
	L2              LayerStats
	L3              LayerStats
	OverallHitRate  float64
	AvgLatencyMs    float64
	TopKeys         []KeyAccess
}

// KeyAccess is one entry of the bounded key-access table.
type KeyAccess struct {
	Key    string
	Count  int64
}

const maxTrackedKeys = 1000

// latencyEMAAlpha is the smoothing factor for the exponential running mean
// of request latency (spec.md §3: "average latency (exponential running
// mean)"). 0.2 weights roughly the last ~10 samples, tracking recent
// latency shifts without being noisy on a single outlier request.
const latencyEMAAlpha = 0.2

type analytics struct {
	mu sync.Mutex

	l1, l2, l3 LayerStats

	avgLatencyMs   float64
	latencySamples int64

	keyAccess map[string]int64
}

func newAnalytics() *analytics {
	return &analytics{keyAccess: make(map[string]int64)}
}

func (a *analytics) recordHit(layer Layer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch layer {
	case L1:
		a.l1.Hits++
	case L2:
		a.l2.Hits++
	case L3:
		a.l3.Hits++
	}
}

func (a *analytics) recordMiss(layer Layer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch layer {
	case L1:
		a.l1.Misses++
	case L2:
		a.l2.Misses++
	case L3:
		a.l3.Misses++
	}
}

// recordAccess tracks a key touch for the bounded top-keys table, and folds
// a request's end-to-end latency into the exponential running mean. Bounded
// by maxTrackedKeys; once full, new unseen keys are dropped rather than
// evicting existing counters (spec.md §9: analytics are best-effort, never
// load-bearing for correctness).
func (a *analytics) recordAccess(key string, elapsed time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sampleMs := float64(elapsed.Nanoseconds()) / 1e6
	if a.latencySamples == 0 {
		a.avgLatencyMs = sampleMs
	} else {
		a.avgLatencyMs += latencyEMAAlpha * (sampleMs - a.avgLatencyMs)
	}
	a.latencySamples++

	if _, ok := a.keyAccess[key]; !ok && len(a.keyAccess) >= maxTrackedKeys {
		return
	}
	a.keyAccess[key]++
}

func (a *analytics) snapshot(topN int) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	totalHits := a.l1.Hits + a.l2.Hits + a.l3.Hits
	totalReq := totalHits + a.l1.Misses + a.l2.Misses + a.l3.Misses
	var overall float64
	if totalReq > 0 {
		overall = float64(totalHits) / float64(totalReq)
	}

	keys := make([]KeyAccess, 0, len(a.keyAccess))
	for k, c := range a.keyAccess {
		keys = append(keys, KeyAccess{Key: k, Count: c})
	}
	sortKeyAccessDesc(keys)
	if topN > 0 && len(keys) > topN {
		keys = keys[:topN]
	}

	return Snapshot{
		L1: a.l1, L2: a.l2, L3: a.l3,
		OverallHitRate: overall,
		AvgLatencyMs:   a.avgLatencyMs,
		TopKeys:        keys,
	}
}

func sortKeyAccessDesc(keys []KeyAccess) {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j].Count > keys[j-1].Count; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
}

// Analytics returns a point-in-time snapshot of hit/miss counters, overall
// hit rate, average latency, and the topN most-accessed keys.
func (c *MultiLevelCache) Analytics(topN int) Snapshot {
	return c.analytics.snapshot(topN)
}
