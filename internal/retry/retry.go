// Package retry runs an operation with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"slices"
	"time"

	"github.com/law-makers/propcrawl/internal/errs"
	"github.com/rs/zerolog/log"
)

// Config defines retry behavior with exponential backoff
type Config struct {
	MaxAttempts          int           // Total attempts including the first one
	InitialBackoff       time.Duration // Delay before the first retry
	MaxBackoff           time.Duration // Upper bound for any single delay
	Multiplier           float64       // Growth factor between consecutive delays
	RetryableStatusCodes []int         // HTTP statuses that trigger a retry

	// OnRetry, when set, is called before sleeping for the given delay.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultConfig returns the retry policy used when nothing is configured
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    6,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		RetryableStatusCodes: []int{
			http.StatusTooManyRequests,     // 429
			http.StatusInternalServerError, // 500
			http.StatusBadGateway,          // 502
			http.StatusServiceUnavailable,  // 503
			http.StatusGatewayTimeout,      // 504
		},
	}
}

// IsRetryableStatus reports whether status is in the configured set
func (c Config) IsRetryableStatus(status int) bool {
	return slices.Contains(c.RetryableStatusCodes, status)
}

// Do executes fn until it succeeds, returns a non-retryable error, the
// attempt ceiling is reached, or ctx is done. fn receives the 1-based attempt
// number. The returned int is the number of attempts made.
func Do(ctx context.Context, cfg Config, fn func(attempt int) error) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		err := fn(attempt)
		if err == nil {
			if attempt > 1 {
				log.Debug().
					Int("attempts", attempt).
					Msg("Retry succeeded")
			}
			return attempt, nil
		}

		lastErr = err

		if !shouldRetry(err) {
			return attempt, err
		}

		// No sleep after the last attempt
		if attempt == cfg.MaxAttempts {
			break
		}

		backoff := Backoff(attempt-1, cfg)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, backoff, err)
		}

		log.Debug().
			Int("attempt", attempt).
			Int("max_attempts", cfg.MaxAttempts).
			Dur("backoff", backoff).
			Err(err).
			Msg("Retrying after backoff")

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		}
	}

	log.Warn().
		Int("attempts", cfg.MaxAttempts).
		Err(lastErr).
		Msg("Max retry attempts exceeded")

	return cfg.MaxAttempts, fmt.Errorf("operation failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// Backoff returns the delay after the n-th failure (0-based):
// initial * multiplier^n, capped at MaxBackoff.
func Backoff(n int, cfg Config) time.Duration {
	mult := cfg.Multiplier
	if mult < 1 {
		mult = 1
	}
	backoff := float64(cfg.InitialBackoff) * math.Pow(mult, float64(n))

	if cfg.MaxBackoff > 0 && backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}

	return time.Duration(backoff)
}

// shouldRetry determines if an error is retryable
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var e *errs.Error
	if errors.As(err, &e) {
		return e.Retry
	}

	// Timeouts are always retryable
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) {
		return timeoutErr.Timeout()
	}

	return false
}
