// Package listing pages through the rental and resale search pages linked
// from a project page and collects every property they list.
package listing

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/law-makers/propcrawl/internal/fetch"
	"github.com/law-makers/propcrawl/internal/normalize"
	"github.com/law-makers/propcrawl/internal/ratelimit"
	urlutil "github.com/law-makers/propcrawl/internal/utils/url"
	"github.com/law-makers/propcrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

// DefaultPageSize is the number of properties a search page carries
const DefaultPageSize = 25

// DefaultMaxPages bounds pagination per listing type
const DefaultMaxPages = 20

// Fetcher retrieves a page
type Fetcher interface {
	Fetch(ctx context.Context, client fetch.Client, rawURL string) models.FetchResult
}

// Extractor decodes the embedded page state of a page
type Extractor interface {
	Extract(pageURL, html string) (map[string]any, error)
}

// Options configures a Follower
type Options struct {
	BaseURL  string
	PageSize int
	MaxPages int
	Limiter  ratelimit.RateLimiter
}

// Follower collects listing items for a project page
type Follower struct {
	fetcher   Fetcher
	extractor Extractor
	opts      Options
}

// sections maps each listing type to its component key on a project page
var sections = []struct {
	kind models.ListingType
	key  string
}{
	{models.ListingSale, "resaleProperties"},
	{models.ListingRent, "rentalProperties"},
}

// New creates a Follower
func New(fetcher Fetcher, extractor Extractor, opts Options) *Follower {
	if opts.BaseURL == "" {
		opts.BaseURL = normalize.DefaultBaseURL
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}
	return &Follower{fetcher: fetcher, extractor: extractor, opts: opts}
}

// Follow collects the items of every listing linked from components. A page
// that fails to fetch or parse ends that listing with what was collected so
// far. A blocked page aborts with a CAPTCHA_BLOCKED error.
func (f *Follower) Follow(ctx context.Context, client fetch.Client, components map[string]any) (map[models.ListingType][]any, error) {
	out := make(map[models.ListingType][]any)

	for _, s := range sections {
		canonical := normalize.String(normalize.Map(components, s.key, "data", "metaTagInfo"), "CANONICAL_URL")
		if canonical == "" {
			continue
		}
		items, err := f.collect(ctx, client, urlutil.ResolveURL(f.opts.BaseURL, canonical))
		if len(items) > 0 {
			out[s.kind] = items
		}
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

func (f *Follower) collect(ctx context.Context, client fetch.Client, listURL string) ([]any, error) {
	var items []any

	for page := 1; page <= f.opts.MaxPages; page++ {
		pageURL := urlutil.WithPage(listURL, page)

		if err := f.opts.Limiter.Wait(ctx, pageURL); err != nil {
			return items, err
		}

		res := f.fetcher.Fetch(ctx, client, pageURL)
		switch res.Outcome {
		case models.OutcomeBlocked:
			return items, res.Err
		case models.OutcomeFailed:
			if ctx.Err() != nil {
				return items, ctx.Err()
			}
			log.Warn().Err(res.Err).Str("url", pageURL).Int("page", page).Msg("Listing page failed, keeping partial results")
			return items, nil
		}

		data, err := f.extractor.Extract(pageURL, res.HTML)
		if err != nil {
			log.Warn().Err(err).Str("url", pageURL).Int("page", page).Msg("Listing page has no data, keeping partial results")
			return items, nil
		}

		pageData := normalize.Map(data, "srp", "pageData")
		props := normalize.Items(pageData["properties"])
		items = append(items, props...)
		total := count(pageData["count"])

		log.Debug().
			Str("url", pageURL).
			Int("page", page).
			Int("found", len(props)).
			Int("collected", len(items)).
			Int("total", total).
			Msg("Listing page collected")

		if len(props) < f.opts.PageSize || (total > 0 && len(items) >= total) {
			break
		}
	}
	return items, nil
}

func count(v any) int {
	switch t := v.(type) {
	case json.Number:
		n, _ := strconv.Atoi(t.String())
		return n
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	default:
		return 0
	}
}
