package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter counts hits per key inside a fixed window
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RedisRateLimiter keeps counters in redis so limits hold across instances
type RedisRateLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisRateLimiter creates a limiter on an existing client
func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, prefix: "rate_limit"}
}

// Allow increments the counter and reports whether it is still within limit
func (r *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", r.prefix, key)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}

	return incr.Val() <= int64(limit), nil
}

// MemoryRateLimiter is the single-process fallback when redis is absent
type MemoryRateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	now     func() time.Time
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

// NewMemoryRateLimiter creates an in-process limiter
func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{windows: make(map[string]*rateWindow), now: time.Now}
}

// Allow increments the counter and reports whether it is still within limit
func (m *MemoryRateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &rateWindow{resetAt: now.Add(window)}
		m.windows[key] = w
	}
	w.count++

	// drop expired windows opportunistically
	if len(m.windows) > 1024 {
		for k, other := range m.windows {
			if !now.Before(other.resetAt) {
				delete(m.windows, k)
			}
		}
	}

	return w.count <= limit, nil
}
