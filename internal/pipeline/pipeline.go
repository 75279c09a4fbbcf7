// Package pipeline runs fetch, extract, normalize and append over a fixed
// pool of workers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/law-makers/propcrawl/internal/errs"
	"github.com/law-makers/propcrawl/internal/fetch"
	"github.com/law-makers/propcrawl/internal/normalize"
	"github.com/law-makers/propcrawl/internal/ratelimit"
	"github.com/law-makers/propcrawl/internal/reqctx"
	urlutil "github.com/law-makers/propcrawl/internal/utils/url"
	"github.com/law-makers/propcrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultWorkers is the size of the worker pool
	DefaultWorkers = 2
	// DefaultSaveEvery is the number of records buffered before a flush
	DefaultSaveEvery = 10
)

// Fetcher retrieves a page
type Fetcher interface {
	Fetch(ctx context.Context, client fetch.Client, rawURL string) models.FetchResult
}

// Extractor decodes the embedded page state of a page
type Extractor interface {
	Extract(pageURL, html string) (map[string]any, error)
}

// Follower collects the listing items linked from a project page
type Follower interface {
	Follow(ctx context.Context, client fetch.Client, components map[string]any) (map[models.ListingType][]any, error)
}

// Sink persists records
type Sink interface {
	Append(records []*models.Record) error
}

// Options configures a Pipeline. Fetcher, Extractor and Normalizer are
// required; Run also needs Sink and NewClient.
type Options struct {
	Workers    int
	SaveEvery  int
	Fetcher    Fetcher
	Extractor  Extractor
	Normalizer *normalize.Normalizer
	Follower   Follower
	Sink       Sink
	Limiter    ratelimit.RateLimiter

	// NewClient builds the session owned by one worker
	NewClient func(workerID int) fetch.Client

	// Seen holds the URL keys already persisted; matching items are skipped
	Seen map[string]struct{}

	// OnProgress is called after every finished item
	OnProgress func(models.Stats)
}

// Pipeline processes work items. A Pipeline runs once.
type Pipeline struct {
	opts Options

	stopped atomic.Bool
	cancel  context.CancelFunc
	blocked error

	mu     sync.Mutex
	buffer []*models.Record

	total     int
	skipped   int
	succeeded atomic.Int64
	failed    atomic.Int64
	blockedN  atomic.Int64
	persisted atomic.Int64
	lost      atomic.Int64
	start     time.Time
}

// New creates a Pipeline
func New(opts Options) (*Pipeline, error) {
	if opts.Fetcher == nil || opts.Extractor == nil || opts.Normalizer == nil {
		return nil, errors.New("pipeline: fetcher, extractor and normalizer are required")
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.SaveEvery <= 0 {
		opts.SaveEvery = DefaultSaveEvery
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}
	return &Pipeline{opts: opts}, nil
}

// Run processes items until all are done, a captcha block stops the run, or
// ctx is cancelled. Buffered records are flushed before Run returns. The
// returned error wraps errs.ErrStopped after a block and is ctx.Err() after
// cancellation.
func (p *Pipeline) Run(ctx context.Context, items []models.WorkItem) (models.Stats, error) {
	if p.opts.Sink == nil || p.opts.NewClient == nil {
		return models.Stats{}, errors.New("pipeline: sink and client factory are required to run")
	}
	p.start = time.Now()
	p.total = len(items)

	pending := make([]models.WorkItem, 0, len(items))
	for _, it := range items {
		if _, ok := p.opts.Seen[urlutil.Key(it.URL)]; ok {
			p.skipped++
			continue
		}
		pending = append(pending, it)
	}
	if p.skipped > 0 {
		log.Info().Int("skipped", p.skipped).Int("remaining", len(pending)).Msg("Resuming, skipping URLs already in output")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	p.cancel = cancel

	jobs := make(chan models.WorkItem)
	go func() {
		defer close(jobs)
		for _, it := range pending {
			select {
			case jobs <- it:
			case <-runCtx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(runCtx, id, jobs)
		}(i + 1)
	}
	wg.Wait()

	p.flush()

	stats := p.Stats()
	log.Info().
		Int("total", stats.Total).
		Int("skipped", stats.Skipped).
		Int64("succeeded", stats.Succeeded).
		Int64("failed", stats.Failed).
		Int64("blocked", stats.Blocked).
		Int64("persisted", stats.Persisted).
		Dur("elapsed", stats.Elapsed).
		Msg("Run finished")

	switch {
	case p.stopped.Load():
		return stats, fmt.Errorf("%w: %v", errs.ErrStopped, p.blocked)
	case ctx.Err() != nil:
		return stats, ctx.Err()
	}
	return stats, nil
}

// Stats returns a snapshot of the counters
func (p *Pipeline) Stats() models.Stats {
	return models.Stats{
		Total:         p.total,
		Skipped:       p.skipped,
		Succeeded:     p.succeeded.Load(),
		Failed:        p.failed.Load(),
		Blocked:       p.blockedN.Load(),
		Persisted:     p.persisted.Load(),
		PersistFailed: p.lost.Load(),
		Stopped:       p.stopped.Load(),
		Elapsed:       time.Since(p.start),
	}
}

func (p *Pipeline) worker(ctx context.Context, id int, jobs <-chan models.WorkItem) {
	client := p.opts.NewClient(id)
	if c, ok := client.(interface{ Close() }); ok {
		defer c.Close()
	}

	for item := range jobs {
		if p.stopped.Load() || ctx.Err() != nil {
			return
		}

		itemCtx := reqctx.WithItem(ctx, id, item.URL)
		rec, err := p.Process(itemCtx, client, item)
		switch {
		case err == nil:
			p.succeeded.Add(1)
			p.add(rec)
		case errors.Is(err, errs.ErrCaptchaBlocked):
			p.blockedN.Add(1)
			p.stop(err)
			logger := reqctx.Logger(itemCtx)
			logger.Error().Err(err).Msg("Captcha challenge, stopping run")
			p.progress()
			return
		case ctx.Err() != nil:
			// interrupted, not a failure of the item
			return
		default:
			p.failed.Add(1)
			logger := reqctx.Logger(itemCtx)
			logger.Warn().Err(reqctx.NewItemError(itemCtx, err)).Str("code", string(errs.CodeOf(err))).Msg("Item failed")
		}
		p.progress()
	}
}

// Process runs one item through throttle, fetch, extract, listing follow
// and normalize. It does not touch the counters or the buffer.
func (p *Pipeline) Process(ctx context.Context, client fetch.Client, item models.WorkItem) (*models.Record, error) {
	logger := reqctx.Logger(ctx)

	if err := p.opts.Limiter.Wait(ctx, item.URL); err != nil {
		return nil, err
	}

	res := p.opts.Fetcher.Fetch(ctx, client, item.URL)
	fetchedAt := time.Now().UTC()
	if res.Outcome != models.OutcomeSuccess {
		return nil, res.Err
	}

	parseStart := time.Now()
	data, err := p.opts.Extractor.Extract(item.URL, res.HTML)
	parseTime := time.Since(parseStart)
	if err != nil {
		return nil, err
	}

	var followed map[models.ListingType][]any
	var listingTime time.Duration
	if p.opts.Follower != nil && p.opts.Normalizer.IncludeListings {
		listingStart := time.Now()
		components := normalize.Map(data, "projectDetailState", "pageData", "components")
		followed, err = p.opts.Follower.Follow(ctx, client, components)
		listingTime = time.Since(listingStart)
		if err != nil {
			return nil, err
		}
	}

	rec, problems := p.opts.Normalizer.Normalize(normalize.Input{
		URL:       item.URL,
		Source:    item.Source,
		Data:      data,
		Followed:  followed,
		FetchedAt: fetchedAt,
		Timings: normalize.Timings{
			Fetch:    res.Elapsed,
			Parse:    parseTime,
			Listing:  listingTime,
			Attempts: res.Attempts,
		},
	})
	for _, problem := range problems {
		logger.Warn().Err(problem).Msg("Record incomplete")
	}

	logger.Debug().Int("attempts", res.Attempts).Dur("fetch", res.Elapsed).Msg("Item extracted")
	return rec, nil
}

// stop sets the stop flag once and cancels in-flight work
func (p *Pipeline) stop(cause error) {
	if p.stopped.CompareAndSwap(false, true) {
		p.mu.Lock()
		p.blocked = cause
		p.mu.Unlock()
		p.cancel()
	}
}

func (p *Pipeline) add(rec *models.Record) {
	p.mu.Lock()
	p.buffer = append(p.buffer, rec)
	full := len(p.buffer) >= p.opts.SaveEvery
	p.mu.Unlock()

	if full {
		p.flush()
	}
}

// flush writes out the buffered records. Records that cannot be written are
// logged and counted, never retried.
func (p *Pipeline) flush() {
	p.mu.Lock()
	batch := p.buffer
	p.buffer = nil
	p.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	if err := p.opts.Sink.Append(batch); err != nil {
		urls := make([]string, len(batch))
		for i, r := range batch {
			urls[i] = r.URL
		}
		p.lost.Add(int64(len(batch)))
		log.Error().Err(err).Strs("urls", urls).Msg("Failed to persist records")
		return
	}
	p.persisted.Add(int64(len(batch)))
	log.Debug().Int("records", len(batch)).Msg("Flushed records")
}

func (p *Pipeline) progress() {
	if p.opts.OnProgress != nil {
		p.opts.OnProgress(p.Stats())
	}
}
