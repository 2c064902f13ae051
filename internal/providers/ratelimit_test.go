package providers

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterTryConsume(t *testing.T) {
	t.Run("consumes up to the bucket size", func(t *testing.T) {
		rl := NewRateLimiter(5)
		for i := 0; i < 5; i++ {
			if !rl.TryConsume() {
				t.Fatalf("token %d should be available", i+1)
			}
		}
		if rl.TryConsume() {
			t.Error("bucket should be empty")
		}
	})

	t.Run("zero rpm falls back to default", func(t *testing.T) {
		rl := NewRateLimiter(0)
		if !rl.TryConsume() {
			t.Error("default limiter should start with tokens")
		}
	})
}

func TestRateLimiterWait(t *testing.T) {
	t.Run("returns immediately when tokens available", func(t *testing.T) {
		rl := NewRateLimiter(60)
		start := time.Now()
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
		if time.Since(start) > 100*time.Millisecond {
			t.Error("Wait blocked despite available tokens")
		}
	})

	t.Run("respects context cancellation when drained", func(t *testing.T) {
		rl := NewRateLimiter(1)
		if !rl.TryConsume() {
			t.Fatal("first token should be available")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := rl.Wait(ctx); err == nil {
			t.Error("expected context deadline error")
		}
	})
}
