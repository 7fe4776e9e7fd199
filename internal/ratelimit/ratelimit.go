// Package ratelimit throttles repeated attempts per key, e.g. logins per client ip.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter decides whether one more attempt for key is allowed.
// An error means the decision could not be made; callers choose whether to fail open.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Unlimited allows everything.
type Unlimited struct{}

// Allow implements Limiter.
func (Unlimited) Allow(context.Context, string) (bool, error) { return true, nil }

// MemoryLimiter keeps one token bucket per key in process memory.
type MemoryLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	every    rate.Limit
	burst    int
	idleTTL  time.Duration
	lastScan time.Time
	now      func() time.Time
}

type bucket struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewMemoryLimiter allows attempts per window for each key, refilling evenly.
func NewMemoryLimiter(attempts int, window time.Duration) *MemoryLimiter {
	if attempts <= 0 {
		attempts = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		every:   rate.Every(window / time.Duration(attempts)),
		burst:   attempts,
		idleTTL: window * 2,
		now:     time.Now,
	}
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictIdle(now)
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.lastAccess = now
	return b.limiter.AllowN(now, 1), nil
}

// evictIdle drops buckets that have been full for a while. Callers hold mu.
func (l *MemoryLimiter) evictIdle(now time.Time) {
	if now.Sub(l.lastScan) < l.idleTTL {
		return
	}
	l.lastScan = now
	threshold := now.Add(-l.idleTTL)
	for key, b := range l.buckets {
		if b.lastAccess.Before(threshold) {
			delete(l.buckets, key)
		}
	}
}

// RedisLimiter counts attempts in fixed windows shared by every replica.
type RedisLimiter struct {
	client   redis.UniversalClient
	prefix   string
	attempts int64
	window   time.Duration
}

// NewRedisLimiter allows attempts per window for each key, counted in redis.
func NewRedisLimiter(client redis.UniversalClient, prefix string, attempts int, window time.Duration) *RedisLimiter {
	if attempts <= 0 {
		attempts = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if prefix == "" {
		prefix = "markermap:ratelimit"
	}
	return &RedisLimiter{client: client, prefix: prefix, attempts: int64(attempts), window: window}
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, l.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("ratelimit: redis: %w", err)
	}
	return incr.Val() <= l.attempts, nil
}
