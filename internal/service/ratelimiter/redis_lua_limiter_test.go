package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, buckets map[string]BucketConfig) *RedisLua {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLua(rdb, buckets)
}

func TestAllowConsumesTokens(t *testing.T) {
	l := newTestLimiter(t, map[string]BucketConfig{
		"ai:ollama": {Capacity: 2, RefillRate: 2.0 / 60.0},
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, _, err := l.Allow(ctx, "ai:ollama")
		require.NoError(t, err)
		assert.True(t, allowed, "call %d within capacity", i+1)
	}

	allowed, retryAfter, err := l.Allow(ctx, "ai:ollama")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.LessOrEqual(t, retryAfter, time.Minute)
}

func TestAllowSubSecondRetryAfter(t *testing.T) {
	// A fast bucket refills in well under a second. The fractional wait must
	// survive the trip through Redis instead of rounding down to zero.
	l := newTestLimiter(t, map[string]BucketConfig{
		"ai:ollama": {Capacity: 1, RefillRate: 60}, // next token in ~17ms
	})
	ctx := context.Background()

	allowed, _, err := l.Allow(ctx, "ai:ollama")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, retryAfter, err := l.Allow(ctx, "ai:ollama")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.Less(t, retryAfter, time.Second)
}

func TestAllowSeparateKeysSeparateBudgets(t *testing.T) {
	l := newTestLimiter(t, map[string]BucketConfig{
		"ai:ollama": {Capacity: 1, RefillRate: 1.0 / 60.0},
		"ai:gemini": {Capacity: 1, RefillRate: 1.0 / 60.0},
	})
	ctx := context.Background()

	allowed, _, err := l.Allow(ctx, "ai:ollama")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, _, err = l.Allow(ctx, "ai:ollama")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, _, err = l.Allow(ctx, "ai:gemini")
	require.NoError(t, err)
	assert.True(t, allowed, "gemini bucket is untouched by ollama consumption")
}

func TestAllowUnconfiguredKeyAlwaysAllows(t *testing.T) {
	l := newTestLimiter(t, nil)
	allowed, retryAfter, err := l.Allow(context.Background(), "ai:unbounded")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, retryAfter)
}

func TestAllowNilClientAllows(t *testing.T) {
	l := NewRedisLua(nil, map[string]BucketConfig{"k": {Capacity: 1, RefillRate: 1}})
	allowed, _, err := l.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAllowFailsOpenOnRedisError(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := NewRedisLua(rdb, map[string]BucketConfig{"k": {Capacity: 1, RefillRate: 1}})
	mr.Close()

	allowed, _, err := l.Allow(context.Background(), "k")
	assert.Error(t, err)
	assert.True(t, allowed, "redis outage must not block provider calls")
}

func TestPerMinute(t *testing.T) {
	t.Parallel()
	cfg := PerMinute(30)
	assert.Equal(t, int64(30), cfg.Capacity)
	assert.InDelta(t, 0.5, cfg.RefillRate, 1e-9)

	assert.Zero(t, PerMinute(0).Capacity)
	assert.Zero(t, PerMinute(-5).Capacity)
}

func TestSetBucket(t *testing.T) {
	l := newTestLimiter(t, nil)
	l.SetBucket("ai:openai", BucketConfig{Capacity: 1, RefillRate: 1.0 / 60.0})

	allowed, _, err := l.Allow(context.Background(), "ai:openai")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, err = l.Allow(context.Background(), "ai:openai")
	require.NoError(t, err)
	assert.False(t, allowed)
}
