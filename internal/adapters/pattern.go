// Copyright 2025 Takhin Data, Inc.

package adapters

import "context"

// KeysMatcher is the narrow surface RedisPatternAdapter needs from a
// KeyValueAdapter-shaped store (Redis's KEYS command already speaks glob).
type KeysMatcher interface {
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// RedisPatternAdapter implements invalidation.PatternAdapter by delegating
// glob matching straight to the key-value store's native KEYS command.
type RedisPatternAdapter struct {
	ctx   context.Context
	store KeysMatcher
}

func NewRedisPatternAdapter(ctx context.Context, store KeysMatcher) *RedisPatternAdapter {
	return &RedisPatternAdapter{ctx: ctx, store: store}
}

func (a *RedisPatternAdapter) Match(pattern string) ([]string, error) {
	return a.store.Keys(a.ctx, pattern)
}
