package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, CacheKey("title", "dQw4w9WgXcQ"), CacheKey("title", "dQw4w9WgXcQ"))
	})

	t.Run("different inputs differ", func(t *testing.T) {
		assert.NotEqual(t, CacheKey("title", "dQw4w9WgXcQ"), CacheKey("title", "jNQXAC9IVRw"))
	})

	t.Run("has prefix", func(t *testing.T) {
		assert.Equal(t, "yt:", CacheKey("test")[:3])
	})
}

func TestCacheGetSet(t *testing.T) {
	// Init minimal cache (no Redis)
	InitCache("", time.Minute, 100, 5*time.Minute)

	ctx := context.Background()
	key := CacheKey("test", "round-trip")

	_, ok := CacheGet(ctx, key)
	assert.False(t, ok, "expected cache miss on empty cache")

	CacheSet(ctx, key, "Never Gonna Give You Up")

	got, ok := CacheGet(ctx, key)
	require.True(t, ok, "expected cache hit after set")
	assert.Equal(t, "Never Gonna Give You Up", got)
}

func TestCacheExpiration(t *testing.T) {
	InitCache("", time.Millisecond, 100, 5*time.Minute)

	ctx := context.Background()
	key := CacheKey("test", "expiry")

	CacheSet(ctx, key, "temp")
	time.Sleep(5 * time.Millisecond)

	_, ok := CacheGet(ctx, key)
	assert.False(t, ok, "expected cache miss after TTL expiry")
}

func TestCacheEviction(t *testing.T) {
	InitCache("", time.Minute, 3, 5*time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		CacheSet(ctx, CacheKey("evict", fmt.Sprint(i)), fmt.Sprint(i))
		time.Sleep(time.Millisecond)
	}

	count := 0
	metaCache.l1.Range(func(_, _ any) bool {
		count++
		return true
	})
	assert.LessOrEqual(t, count, 3)

	got, ok := CacheGet(ctx, CacheKey("evict", "4"))
	require.True(t, ok, "newest entry must survive eviction")
	assert.Equal(t, "4", got)
}

func TestCacheStatsCount(t *testing.T) {
	InitCache("", time.Minute, 10, 5*time.Minute)
	ctx := context.Background()
	h0, m0 := CacheStats()

	CacheGet(ctx, CacheKey("stats", "miss"))
	CacheSet(ctx, CacheKey("stats", "hit"), "x")
	CacheGet(ctx, CacheKey("stats", "hit"))

	h1, m1 := CacheStats()
	assert.Equal(t, h0+1, h1)
	assert.Equal(t, m0+1, m1)
}
