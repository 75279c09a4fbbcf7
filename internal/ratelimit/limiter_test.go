package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestDomainLimiter_PerHostBuckets(t *testing.T) {
	dl := NewDomainLimiter(1, 1, 0, 0)
	ctx := context.Background()

	start := time.Now()
	if err := dl.Wait(ctx, "https://a.example/p1"); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if err := dl.Wait(ctx, "https://b.example/p1"); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("Different hosts should not share a bucket, waited %v", elapsed)
	}

	if len(dl.limiters) != 2 {
		t.Errorf("Expected 2 host limiters, got %d", len(dl.limiters))
	}
}

func TestDomainLimiter_CancelledWhileWaiting(t *testing.T) {
	dl := NewDomainLimiter(0.1, 1, 0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := dl.Wait(ctx, "https://a.example/"); err != nil {
		t.Fatalf("First token should be free: %v", err)
	}
	if err := dl.Wait(ctx, "https://a.example/"); err == nil {
		t.Error("Expected error when context expires before the next token")
	}
}

func TestDomainLimiter_JitterWithinBounds(t *testing.T) {
	dl := NewDomainLimiter(100, 100, 10*time.Millisecond, 20*time.Millisecond)

	var seen []time.Duration
	dl.jitter = func(lo, hi time.Duration) time.Duration {
		d := uniform(lo, hi)
		seen = append(seen, d)
		return d
	}

	for i := 0; i < 5; i++ {
		if err := dl.Wait(context.Background(), "https://a.example/"); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
	}

	for _, d := range seen {
		if d < 10*time.Millisecond || d >= 20*time.Millisecond {
			t.Errorf("Jitter %v outside [10ms, 20ms)", d)
		}
	}
}

func TestUnlimited(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	if err := (Unlimited{}).Wait(ctx, "x"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	cancel()
	if err := (Unlimited{}).Wait(ctx, "x"); err == nil {
		t.Error("Expected error after cancel")
	}
}
