package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	limiter := NewRedisRateLimiter(client)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "pay:1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := limiter.Allow(ctx, "pay:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(time.Minute + time.Second)
	ok, err = limiter.Allow(ctx, "pay:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryRateLimiter(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := NewMemoryRateLimiter()
	limiter.now = clock.Now
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _ := limiter.Allow(ctx, "k", 2, time.Minute)
		assert.True(t, ok)
	}
	ok, _ := limiter.Allow(ctx, "k", 2, time.Minute)
	assert.False(t, ok)

	ok, _ = limiter.Allow(ctx, "other", 2, time.Minute)
	assert.True(t, ok)

	clock.Advance(time.Minute)
	ok, _ = limiter.Allow(ctx, "k", 2, time.Minute)
	assert.True(t, ok)
}
