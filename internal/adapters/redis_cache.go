// Copyright 2025 Takhin Data, Inc.

package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements the shape of internal/cache's L2Adapter/L3Adapter
// interfaces (declared independently there per spec.md's cache/engine
// independence requirement; Go's structural typing lets this satisfy both
// without either package importing the other). Tag membership is tracked in
// a parallel Redis set per tag.
type RedisCache struct {
	client    *redis.Client
	tagPrefix string
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, tagPrefix: "tag:"}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis cache get %q: %w", key, err)
	}
	return v, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis cache set %q: %w", key, err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis cache delete %q: %w", key, err)
	}
	return nil
}

// Tag records key as a member of tag, for later DeleteByTag sweeps.
func (r *RedisCache) Tag(ctx context.Context, key, tag string) error {
	if err := r.client.SAdd(ctx, r.tagPrefix+tag, key).Err(); err != nil {
		return fmt.Errorf("redis cache tag %q/%q: %w", tag, key, err)
	}
	return nil
}

func (r *RedisCache) DeleteByTag(ctx context.Context, tag string) (int, error) {
	setKey := r.tagPrefix + tag
	keys, err := r.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis cache members %q: %w", tag, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, keys...)
	pipe.Del(ctx, setKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis cache delete by tag %q: %w", tag, err)
	}
	return len(keys), nil
}
