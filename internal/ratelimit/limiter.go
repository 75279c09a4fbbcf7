package ratelimit

import (
	"context"
	"math/rand/v2"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter throttles outgoing requests.
//
// Implementations decide per URL how long a caller must wait; the pipeline
// calls Wait before every page fetch.
type RateLimiter interface {
	// Wait blocks until a request for the given URL can proceed.
	// If the context is cancelled first, the context error is returned.
	Wait(ctx context.Context, urlStr string) error
}

// DomainLimiter provides per-host token bucket limiting followed by a random
// pause in [minDelay, maxDelay] so consecutive requests do not arrive on a
// fixed cadence.
type DomainLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	perHost  rate.Limit
	burst    int
	minDelay time.Duration
	maxDelay time.Duration
	jitter   func(lo, hi time.Duration) time.Duration
}

// NewDomainLimiter creates a limiter allowing requestsPerSecond per host.
func NewDomainLimiter(requestsPerSecond float64, burst int, minDelay, maxDelay time.Duration) *DomainLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1.0
	}
	if burst <= 0 {
		burst = 1
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}

	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		perHost:  rate.Limit(requestsPerSecond),
		burst:    burst,
		minDelay: minDelay,
		maxDelay: maxDelay,
		jitter:   uniform,
	}
}

// Wait blocks on the host's token bucket, then sleeps a random pause.
func (dl *DomainLimiter) Wait(ctx context.Context, urlStr string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if host := extractHost(urlStr); host != "" {
		if err := dl.getLimiter(host).Wait(ctx); err != nil {
			return err
		}
	}

	pause := dl.jitter(dl.minDelay, dl.maxDelay)
	if pause <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(pause)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetLimit updates the rate limit for a specific host
func (dl *DomainLimiter) SetLimit(host string, requestsPerSecond float64, burst int) {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	if limiter, exists := dl.limiters[host]; exists {
		limiter.SetLimit(rate.Limit(requestsPerSecond))
		limiter.SetBurst(burst)
		return
	}
	dl.limiters[host] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

func (dl *DomainLimiter) getLimiter(host string) *rate.Limiter {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	limiter, exists := dl.limiters[host]
	if !exists {
		limiter = rate.NewLimiter(dl.perHost, dl.burst)
		dl.limiters[host] = limiter
	}
	return limiter
}

// Unlimited never waits. Useful for tests and one-off fetches.
type Unlimited struct{}

// Wait returns immediately unless ctx is already done
func (Unlimited) Wait(ctx context.Context, _ string) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}

func uniform(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo)
}

func extractHost(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Host
}
