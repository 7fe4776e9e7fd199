package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestMemoryLimiterPerKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(3, time.Minute)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "10.0.0.1")
		if err != nil || !allowed {
			t.Fatalf("attempt %d: expected allowed, got %v, %v", i+1, allowed, err)
		}
	}
	if allowed, _ := limiter.Allow(ctx, "10.0.0.1"); allowed {
		t.Fatalf("expected fourth attempt to be throttled")
	}
	if allowed, _ := limiter.Allow(ctx, "10.0.0.2"); !allowed {
		t.Fatalf("expected other key to be allowed")
	}

	now = now.Add(20 * time.Second)
	if allowed, _ := limiter.Allow(ctx, "10.0.0.1"); !allowed {
		t.Fatalf("expected a token to be refilled after 20s")
	}
}

func TestMemoryLimiterEvictsIdleKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(1, time.Minute)
	limiter.now = func() time.Time { return now }

	_, _ = limiter.Allow(ctx, "a")
	now = now.Add(5 * time.Minute)
	_, _ = limiter.Allow(ctx, "b")

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if _, ok := limiter.buckets["a"]; ok {
		t.Fatalf("expected idle bucket to be evicted")
	}
}

func TestRedisLimiterReportsUnreachableServer(t *testing.T) {
	t.Parallel()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	limiter := NewRedisLimiter(client, "", 5, time.Minute)
	if _, err := limiter.Allow(context.Background(), "10.0.0.1"); err == nil {
		t.Fatalf("expected error from unreachable redis")
	}
}

func TestUnlimited(t *testing.T) {
	t.Parallel()

	if allowed, err := (Unlimited{}).Allow(context.Background(), "x"); !allowed || err != nil {
		t.Fatalf("expected unlimited to allow, got %v, %v", allowed, err)
	}
}
