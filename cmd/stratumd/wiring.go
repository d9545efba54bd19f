package main

import (
	"context"

	"github.com/takhin-data/stratum/internal/adapters"
	"github.com/takhin-data/stratum/internal/cache"
	"github.com/takhin-data/stratum/internal/warmer"
)

// cacheRemover adapts *cache.MultiLevelCache.Delete (ctx-taking) to
// invalidation.Remover's ctx-free shape.
type cacheRemover struct{ c *cache.MultiLevelCache }

func (r cacheRemover) Delete(key string) error {
	return r.c.Delete(context.Background(), key)
}

// cacheSetter adapts *cache.MultiLevelCache.Set to warmer.Setter's
// simpler two-arg shape, defaulting to the cache's configured TTLs.
type cacheSetter struct{ c *cache.MultiLevelCache }

func (s cacheSetter) Set(key string, value []byte) error {
	return s.c.Set(context.Background(), key, value, cache.SetOptions{})
}

// cachePredictor re-exposes *cache.MultiLevelCache.PredictiveCandidates under
// warmer.Predictor's identically-shaped but independently-declared return
// type (spec.md §4.6: "consumes per-key access intervals identically to the
// Multi-Level Cache's predictor").
type cachePredictor struct{ c *cache.MultiLevelCache }

func (p cachePredictor) PredictiveCandidates() []warmer.PreloadCandidate {
	cands := p.c.PredictiveCandidates()
	out := make([]warmer.PreloadCandidate, len(cands))
	for i, c := range cands {
		out[i] = warmer.PreloadCandidate{Key: c.Key, Score: c.Score}
	}
	return out
}

// publisherNoCtx adapts *adapters.RedisKV.Publish (ctx-taking) to
// invalidation.Publisher's ctx-free shape, used for remote invalidation
// fan-out over the configured Redis pub/sub channel.
type publisherNoCtx struct{ kv *adapters.RedisKV }

func (p publisherNoCtx) Publish(channel string, payload []byte) error {
	return p.kv.Publish(context.Background(), channel, payload)
}
