package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisKV(t *testing.T) (*RedisKV, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisKVFromClient(client), mr
}

func TestRedisKVSetGetDel(t *testing.T) {
	kv, _ := newTestRedisKV(t)
	defer kv.Close()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k1", []byte("v1"), time.Minute))

	v, ok, err := kv.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), v)

	n, err := kv.Del(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok, err = kv.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisKVGetMissingReturnsAbsentNoError(t *testing.T) {
	kv, _ := newTestRedisKV(t)
	defer kv.Close()

	_, ok, err := kv.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisKVExistsExpireTTL(t *testing.T) {
	kv, _ := newTestRedisKV(t)
	defer kv.Close()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k1", []byte("v1"), 0))

	ok, err := kv.Exists(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = kv.Expire(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ttl, err := kv.TTL(ctx, "k1")
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRedisKVKeysGlob(t *testing.T) {
	kv, _ := newTestRedisKV(t)
	defer kv.Close()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "user:1", []byte("a"), 0))
	require.NoError(t, kv.Set(ctx, "user:2", []byte("b"), 0))
	require.NoError(t, kv.Set(ctx, "other", []byte("c"), 0))

	keys, err := kv.Keys(ctx, "user:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user:1", "user:2"}, keys)
}

func TestParseRedisInfoStats(t *testing.T) {
	raw := "# Stats\r\nkeyspace_hits:42\r\nkeyspace_misses:7\r\n# Memory\r\nused_memory:1024\r\nmaxmemory:0\r\n"
	stats := parseRedisInfoStats(raw)
	assert.Equal(t, int64(42), stats.KeyspaceHits)
	assert.Equal(t, int64(7), stats.KeyspaceMisses)
	assert.Equal(t, int64(1024), stats.UsedMemory)
	assert.Equal(t, int64(0), stats.MaxMemory)
}

func TestRedisCacheTagAndDeleteByTag(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	rc := NewRedisCache(client)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "user:1", []byte("a"), 0))
	require.NoError(t, rc.Set(ctx, "user:1:profile", []byte("b"), 0))
	require.NoError(t, rc.Tag(ctx, "user:1", "user:1"))
	require.NoError(t, rc.Tag(ctx, "user:1:profile", "user:1"))

	n, err := rc.DeleteByTag(ctx, "user:1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok, err := rc.Get(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, ok)
}
