// Copyright 2025 Takhin Data, Inc.

package cache

import (
	"sort"
)

// PredictionScore computes the predictive-warming score from spec.md §4.4:
//
//	score = 1 - (time_since_last_access / avg_interval), clamped to [0, 1]
//
// avgIntervalMS <= 0 means there is not yet enough history to predict
// anything, so the key never qualifies (score 0). This formula is shared
// verbatim with internal/warmer's PREDICTIVE strategy (spec.md §4.6 note:
// "consumes per-key access intervals identically to the Multi-Level Cache's
// predictor").
func PredictionScore(timeSinceLastAccessMS, avgIntervalMS float64) float64 {
	if avgIntervalMS <= 0 {
		return 0
	}
	score := 1 - (timeSinceLastAccessMS / avgIntervalMS)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// PredictiveCandidates ranks every key currently held in L1 and returns the highest-scoring ones above cfg.PredictiveThreshold, capped
// at cfg.MaxPredictiveKeys, descending by score.
func (c *MultiLevelCache) PredictiveCandidates() []PreloadCandidate {
	if !c.cfg.PredictiveEnabled {
		return nil
	}

	now := c.clock.Now()

	c.mu.RLock()
	keys := make([]string, 0, len(c.l1))
	for k := range c.l1 {
		keys = append(keys, k)
	}
	c.mu.RUnlock()

	candidates := make([]PreloadCandidate, 0, len(keys))
	for _, key := range keys {
		pattern := c.tracker.Analyze(key)
		if pattern == nil || pattern.AvgIntervalMs <= 0 {
			continue
		}
		last, ok := c.tracker.LastAccessAt(key)
		if !ok {
			continue
		}
		sinceMS := float64(now.Sub(last).Milliseconds())
		score := PredictionScore(sinceMS, pattern.AvgIntervalMs)
		if score < c.cfg.PredictiveThreshold {
			continue
		}
		candidates = append(candidates, PreloadCandidate{Key: key, Score: score})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if c.cfg.MaxPredictiveKeys > 0 && len(candidates) > c.cfg.MaxPredictiveKeys {
		candidates = candidates[:c.cfg.MaxPredictiveKeys]
	}
	return candidates
}
