package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetRedisClient(nil) })
	return mr
}

func TestCacheRoundTrip(t *testing.T) {
	withMiniRedis(t)
	ctx := context.Background()

	CacheSetJSON(ctx, "question:detail:1", map[string]int{"id": 1}, time.Minute)

	var got map[string]int
	require.True(t, CacheGetJSON(ctx, "question:detail:1", &got))
	assert.Equal(t, 1, got["id"])

	_, ok := CacheGetBytes(ctx, "question:detail:2")
	assert.False(t, ok)
}

func TestInvalidateByPrefix(t *testing.T) {
	mr := withMiniRedis(t)
	ctx := context.Background()

	CacheSetBytes(ctx, "question:list:0:", []byte("a"), time.Minute)
	CacheSetBytes(ctx, "question:list:1:kw", []byte("b"), time.Minute)
	CacheSetBytes(ctx, "stats:counts", []byte("c"), 0)

	InvalidateByPrefix(ctx, "question:list:")

	assert.False(t, mr.Exists("question:list:0:"))
	assert.False(t, mr.Exists("question:list:1:kw"))
	assert.True(t, mr.Exists("stats:counts"))
	assert.Equal(t, defaultCacheTTL, mr.TTL("stats:counts"))
}

func TestCacheWithoutRedis(t *testing.T) {
	SetRedisClient(nil)
	ctx := context.Background()

	CacheSetBytes(ctx, "k", []byte("v"), time.Minute)
	_, ok := CacheGetBytes(ctx, "k")
	assert.False(t, ok)
	InvalidateByPrefix(ctx, "k")
}

func TestCacheGeneration(t *testing.T) {
	mr := withMiniRedis(t)
	ctx := context.Background()

	gen, ok := CacheGeneration(ctx, "question")
	require.True(t, ok)
	assert.Zero(t, gen)

	BumpGeneration(ctx, "question")
	BumpGeneration(ctx, "question")
	gen, ok = CacheGeneration(ctx, "question")
	require.True(t, ok)
	assert.Equal(t, int64(2), gen)

	// prefix sweeps of the namespace keep the counter
	InvalidateByPrefix(ctx, "cache:question:")
	assert.True(t, mr.Exists("cache:gen:question"))

	SetRedisClient(nil)
	_, ok = CacheGeneration(ctx, "question")
	assert.False(t, ok)
	BumpGeneration(ctx, "question")
}
