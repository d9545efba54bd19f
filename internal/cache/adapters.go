// Copyright 2025 Takhin Data, Inc.

package cache

import (
	"context"
	"time"
)

// L2Adapter is the shared fast key-value store backing layer L2. It mirrors
// (but is declared independently of) internal/tier.KeyValueAdapter — the
// cache is independent of the Tiered Storage Engine even though a single
// concrete adapter (e.g. internal/adapters.RedisKV) can satisfy both.
type L2Adapter interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByTag(ctx context.Context, tag string) (int, error)
}

// L3Adapter is the shared durable store backing layer L3.
type L3Adapter interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByTag(ctx context.Context, tag string) (int, error)
}

// Publisher is the distributed-invalidation fan-out primitive.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}
