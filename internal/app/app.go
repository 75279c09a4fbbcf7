// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/law-makers/propcrawl/internal/config"
	"github.com/law-makers/propcrawl/internal/extract"
	"github.com/law-makers/propcrawl/internal/fetch"
	"github.com/law-makers/propcrawl/internal/listing"
	"github.com/law-makers/propcrawl/internal/normalize"
	"github.com/law-makers/propcrawl/internal/pipeline"
	"github.com/law-makers/propcrawl/internal/proxy"
	"github.com/law-makers/propcrawl/internal/ratelimit"
	"github.com/law-makers/propcrawl/internal/retry"
	"github.com/law-makers/propcrawl/internal/store"
	urlutil "github.com/law-makers/propcrawl/internal/utils/url"
	"github.com/law-makers/propcrawl/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once per command invocation. Use Close() to release resources.
type Application struct {
	Config      *config.Config
	Logger      *zerolog.Logger
	RateLimiter ratelimit.RateLimiter
	Proxies     *proxy.Pool
	Fetcher     *fetch.Fetcher
	Extractor   *extract.Extractor
	Normalizer  *normalize.Normalizer
	Follower    *listing.Follower
	startTime   time.Time
}

// ScrapeOptions describes one scrape run
type ScrapeOptions struct {
	Input  string
	Output string

	// OnStart receives the number of items that will actually be fetched
	OnStart    func(pending int)
	OnProgress func(models.Stats)
}

// SetupLogger configures the global zerolog logger from cfg and returns it
func SetupLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if w == nil {
		w = os.Stderr
	}
	if cfg.JSONLog {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	}
	return log.Logger
}

// New creates and initializes a new Application with all dependencies.
//
// It performs the following initialization steps:
//   - Configures logging based on the provided config
//   - Creates the per-host rate limiter
//   - Builds the proxy pool
//   - Creates the fetcher with retry, captcha and header policies
//   - Creates the extractor, normalizer and, when enabled, the listing follower
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := SetupLogger(cfg, nil)
	logger.Debug().
		Str("level", cfg.LogLevel).
		Bool("json", cfg.JSONLog).
		Msg("Logger initialized")

	limiter := ratelimit.NewDomainLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.MinDelay.Duration, cfg.MaxDelay.Duration)
	logger.Debug().
		Float64("rps", cfg.RateLimitRPS).
		Int("burst", cfg.RateLimitBurst).
		Dur("min_delay", cfg.MinDelay.Duration).
		Dur("max_delay", cfg.MaxDelay.Duration).
		Msg("Rate limiter initialized")

	proxies, err := proxy.NewPool(cfg.Proxies, cfg.ProxyCooldown.Duration)
	if err != nil {
		return nil, fmt.Errorf("proxy pool: %w", err)
	}
	if proxies.Len() > 0 {
		logger.Debug().Int("proxies", proxies.Len()).Msg("Proxy pool initialized")
	}

	policy, err := fetch.NewCaptchaPolicy(cfg.CaptchaURLPatterns, cfg.CaptchaBodyMarkers)
	if err != nil {
		return nil, fmt.Errorf("captcha policy: %w", err)
	}

	fetcher := fetch.NewFetcher(fetch.Options{
		Retry:        RetryConfig(cfg),
		Captcha:      policy,
		Headers:      fetch.NewHeaderSet(cfg.UserAgents, cfg.Headers),
		MinBodyBytes: cfg.MinBodyBytes,
	})

	extractor := extract.New(cfg.StartToken)
	normalizer := normalize.New(cfg.BaseURL, cfg.IncludeListings, cfg.IncludeMetrics)

	var follower *listing.Follower
	if cfg.FollowListings {
		follower = listing.New(fetcher, extractor, listing.Options{
			BaseURL:  cfg.BaseURL,
			PageSize: cfg.ListingPageSize,
			MaxPages: cfg.MaxListingPages,
			Limiter:  limiter,
		})
	}

	a := &Application{
		Config:      cfg,
		Logger:      &logger,
		RateLimiter: limiter,
		Proxies:     proxies,
		Fetcher:     fetcher,
		Extractor:   extractor,
		Normalizer:  normalizer,
		Follower:    follower,
		startTime:   time.Now(),
	}

	logger.Debug().Msg("Application initialized successfully")
	return a, nil
}

// RetryConfig derives the fetch retry policy from cfg
func RetryConfig(cfg *config.Config) retry.Config {
	return retry.Config{
		MaxAttempts:          cfg.MaxRetries + 1,
		InitialBackoff:       cfg.InitialBackoff.Duration,
		MaxBackoff:           cfg.MaxBackoff.Duration,
		Multiplier:           cfg.BackoffMultiplier,
		RetryableStatusCodes: cfg.RetryableStatuses,
	}
}

// NewSession creates the HTTP session a single worker owns
func (a *Application) NewSession() *fetch.Session {
	return fetch.NewSession(fetch.SessionOptions{
		Timeout:            a.Config.HTTPTimeout.Duration,
		ConnectTimeout:     a.Config.ConnectTimeout.Duration,
		Proxies:            a.Proxies,
		TLSFingerprint:     a.Config.TLSFingerprint,
		InsecureSkipVerify: a.Config.InsecureSkipVerify,
	})
}

func (a *Application) pipeline(opts pipeline.Options) (*pipeline.Pipeline, error) {
	opts.Fetcher = a.Fetcher
	opts.Extractor = a.Extractor
	opts.Normalizer = a.Normalizer
	opts.Limiter = a.RateLimiter
	if a.Follower != nil {
		opts.Follower = a.Follower
	}
	return pipeline.New(opts)
}

// Scrape runs the full pipeline from opts.Input into opts.Output
func (a *Application) Scrape(ctx context.Context, opts ScrapeOptions) (models.Stats, error) {
	items, err := store.LoadWorkItems(opts.Input)
	if err != nil {
		return models.Stats{}, err
	}

	seen := map[string]struct{}{}
	if a.Config.Resume {
		seen, err = store.SeenURLs(opts.Output)
		if err != nil {
			return models.Stats{}, fmt.Errorf("read existing output: %w", err)
		}
	}

	pending := 0
	for _, it := range items {
		if _, ok := seen[urlutil.Key(it.URL)]; !ok {
			pending++
		}
	}

	a.Logger.Info().
		Str("input", opts.Input).
		Str("output", opts.Output).
		Int("items", len(items)).
		Int("pending", pending).
		Int("workers", a.Config.Workers).
		Msg("Starting scrape")

	if opts.OnStart != nil {
		opts.OnStart(pending)
	}

	sink, err := store.OpenNDJSON(opts.Output)
	if err != nil {
		return models.Stats{}, err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			a.Logger.Error().Err(err).Str("output", opts.Output).Msg("Failed to close output")
		}
	}()

	p, err := a.pipeline(pipeline.Options{
		Workers:    a.Config.Workers,
		SaveEvery:  a.Config.SaveEvery,
		Sink:       sink,
		Seen:       seen,
		OnProgress: opts.OnProgress,
		NewClient: func(int) fetch.Client {
			return a.NewSession()
		},
	})
	if err != nil {
		return models.Stats{}, err
	}

	return p.Run(ctx, items)
}

// Get runs a single URL through fetch, extract and normalize without persisting it
func (a *Application) Get(ctx context.Context, rawURL string) (*models.Record, error) {
	if err := urlutil.ValidateURL(rawURL); err != nil {
		return nil, err
	}

	p, err := a.pipeline(pipeline.Options{})
	if err != nil {
		return nil, err
	}

	session := a.NewSession()
	defer session.Close()

	return p.Process(ctx, session, models.WorkItem{URL: rawURL})
}

// Close gracefully shuts down the application and all its resources.
func (a *Application) Close(ctx context.Context) error {
	a.Logger.Debug().Dur("uptime", time.Since(a.startTime)).Msg("Application shutdown complete")
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
