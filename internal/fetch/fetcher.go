// Package fetch issues page requests with retries, header rotation and
// captcha detection.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/law-makers/propcrawl/internal/errs"
	"github.com/law-makers/propcrawl/internal/retry"
	"github.com/law-makers/propcrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

// DefaultMaxBodyBytes caps how much of a page is read
const DefaultMaxBodyBytes = 10 * 1024 * 1024

// Client is the HTTP capability a Fetcher drives. *Session implements it.
type Client interface {
	Do(req *http.Request) (*http.Response, error)
}

// proxyReporter is implemented by clients that rotate proxies on failure.
type proxyReporter interface {
	reportFailure()
	reportSuccess()
}

// Options configures a Fetcher
type Options struct {
	Retry        retry.Config
	Captcha      CaptchaPolicy
	Headers      *HeaderSet
	MinBodyBytes int
	MaxBodyBytes int64
}

// Fetcher performs GET requests. It holds no per-request state and is safe
// for concurrent use; connection state lives in the Client passed to Fetch.
type Fetcher struct {
	opts Options
}

// NewFetcher creates a Fetcher
func NewFetcher(opts Options) *Fetcher {
	if opts.Headers == nil {
		opts.Headers = NewHeaderSet(nil, nil)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Fetcher{opts: opts}
}

// Fetch retrieves rawURL. Retryable failures are retried with backoff; a
// captcha redirect yields OutcomeBlocked immediately. No request is issued
// once ctx is done.
func (f *Fetcher) Fetch(ctx context.Context, client Client, rawURL string) models.FetchResult {
	start := time.Now()
	res := models.FetchResult{URL: rawURL}

	attempts, err := retry.Do(ctx, f.opts.Retry, func(attempt int) error {
		return f.attempt(ctx, client, rawURL, attempt, &res)
	})

	res.Attempts = attempts
	res.Elapsed = time.Since(start)

	switch {
	case err == nil:
		res.Outcome = models.OutcomeSuccess
	case errors.Is(err, errs.ErrCaptchaBlocked):
		res.Outcome = models.OutcomeBlocked
		res.Err = err
	default:
		res.Outcome = models.OutcomeFailed
		res.Err = err
	}

	log.Debug().
		Str("url", rawURL).
		Str("outcome", res.Outcome.String()).
		Int("status", res.Status).
		Int("attempts", res.Attempts).
		Dur("elapsed", res.Elapsed).
		Msg("Fetch completed")

	return res
}

func (f *Fetcher) attempt(ctx context.Context, client Client, rawURL string, attempt int, res *models.FetchResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errs.New(errs.CodeNetwork, "invalid request", err).WithDetail("url", rawURL)
	}
	ua := f.opts.Headers.Apply(req)

	log.Debug().
		Str("url", rawURL).
		Int("attempt", attempt).
		Str("user_agent", ua).
		Msg("Requesting page")

	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		report(client, false)
		return errs.Network(rawURL, err)
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode
	res.FinalURL = rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		res.FinalURL = resp.Request.URL.String()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		report(client, false)
		return errs.Network(rawURL, fmt.Errorf("read body: %w", err))
	}
	html := string(body)

	if f.opts.Captcha.Blocked(res.FinalURL, html) {
		log.Warn().
			Str("url", rawURL).
			Str("final_url", res.FinalURL).
			Msg("Blocked by captcha")
		return errs.Captcha(rawURL, res.FinalURL)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		retryable := f.opts.Retry.IsRetryableStatus(resp.StatusCode)
		if retryable {
			report(client, false)
		}
		return errs.HTTPStatus(rawURL, resp.StatusCode, retryable)
	}

	report(client, true)

	if len(html) < f.opts.MinBodyBytes {
		return errs.Parse(rawURL, html, errs.ErrShortBody)
	}

	res.HTML = html
	return nil
}

func report(client Client, ok bool) {
	r, isReporter := client.(proxyReporter)
	if !isReporter {
		return
	}
	if ok {
		r.reportSuccess()
	} else {
		r.reportFailure()
	}
}
