// Package normalize turns the embedded page state of a project page into an output record.
package normalize

import (
	"fmt"
	"time"

	"github.com/law-makers/propcrawl/internal/errs"
	urlutil "github.com/law-makers/propcrawl/internal/utils/url"
	"github.com/law-makers/propcrawl/pkg/models"
)

// DefaultBaseURL is used to absolutize relative listing links
const DefaultBaseURL = "https://www.99acres.com"

var (
	idKeys       = []string{"propertyId", "PROP_ID", "SPID", "id"}
	unitTypeKeys = []string{"unitType", "UNIT_TYPE", "propertyType", "PROPERTY_TYPE", "BEDROOM_NUM"}
	sizeKeys     = []string{"size", "areaLabel", "SUPERBUILTUP_SQFT", "CARPET_SQFT", "BUILTUP_SQFT"}
	priceKeys    = []string{"price", "formattedPrice", "PRICE", "MIN_PRICE"}
	postedByKeys = []string{"postedBy", "CLASS_LABEL", "dealerName", "PROFILE_NAME"}
)

// Timings are the measured durations of one item
type Timings struct {
	Fetch    time.Duration
	Parse    time.Duration
	Listing  time.Duration
	Attempts int
}

// Input is everything known about one fetched page
type Input struct {
	URL       string
	Source    string
	Data      map[string]any
	Followed  map[models.ListingType][]any
	FetchedAt time.Time
	Timings   Timings
}

// Normalizer builds records. It holds no state between calls.
type Normalizer struct {
	BaseURL         string
	IncludeListings bool
	IncludeMetrics  bool
}

// New creates a Normalizer
func New(baseURL string, listings, metrics bool) *Normalizer {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Normalizer{BaseURL: baseURL, IncludeListings: listings, IncludeMetrics: metrics}
}

// Normalize builds the record for in. The returned errors are VALIDATION
// errors only; the record is always usable.
func (n *Normalizer) Normalize(in Input) (*models.Record, []error) {
	var problems []error

	pageData := Map(in.Data, "projectDetailState", "pageData")
	rec := &models.Record{
		URL:       in.URL,
		SourceURL: in.Source,
		RawData: models.RawData{
			BasicDetails: Map(pageData, "basicDetails"),
			Components:   Map(pageData, "components"),
		},
	}

	if len(rec.RawData.BasicDetails) == 0 && len(rec.RawData.Components) == 0 {
		problems = append(problems, errs.Validation(in.URL, "page data has neither basicDetails nor components"))
	}

	if n.IncludeListings {
		fetchedAt := in.FetchedAt
		if fetchedAt.IsZero() {
			fetchedAt = time.Now().UTC()
		}
		listings, summary := n.listings(rec.RawData.Components, in.Followed, fetchedAt)
		rec.PropertyListings = listings
		rec.ExtractionSummary = summary
		if summary.FailedExtractions > 0 {
			problems = append(problems, errs.Validation(in.URL,
				fmt.Sprintf("%d listing items could not be extracted", summary.FailedExtractions)))
		}
	}

	if n.IncludeMetrics {
		t := in.Timings
		rec.PerformanceMetrics = &models.PerformanceMetrics{
			FetchTime:           t.Fetch.Seconds(),
			ParseTime:           t.Parse.Seconds(),
			ListingTime:         t.Listing.Seconds(),
			TotalExtractionTime: (t.Fetch + t.Parse + t.Listing).Seconds(),
			FetchAttempts:       t.Attempts,
		}
	}

	return rec, problems
}

func (n *Normalizer) listings(components map[string]any, followed map[models.ListingType][]any, fetchedAt time.Time) (*models.PropertyListings, *models.ExtractionSummary) {
	out := &models.PropertyListings{
		RentalProperties: []models.Property{},
		ResaleProperties: []models.Property{},
	}
	summary := &models.ExtractionSummary{}

	rental := concat(Items(Map(components, "rentalProperties")["data"]), followed[models.ListingRent])
	resale := concat(Items(Map(components, "resaleProperties")["data"]), followed[models.ListingSale])

	summary.TotalRentalFound = len(rental)
	summary.TotalResaleFound = len(resale)

	out.RentalProperties = n.collect(models.ListingRent, rental, fetchedAt, summary)
	out.ResaleProperties = n.collect(models.ListingSale, resale, fetchedAt, summary)

	summary.SuccessfulRentalExtractions = len(out.RentalProperties)
	summary.SuccessfulResaleExtractions = len(out.ResaleProperties)
	return out, summary
}

// collect converts items, dropping duplicates by property URL
func (n *Normalizer) collect(kind models.ListingType, items []any, fetchedAt time.Time, summary *models.ExtractionSummary) []models.Property {
	props := make([]models.Property, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for i, item := range items {
		p, err := n.property(kind, item, fetchedAt)
		if err != nil {
			summary.FailedExtractions++
			summary.ExtractionErrors = append(summary.ExtractionErrors, fmt.Sprintf("%s[%d]: %v", kind, i, err))
			continue
		}
		key := urlutil.Key(p.PropertyURL)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		props = append(props, p)
	}
	return props
}

func (n *Normalizer) property(kind models.ListingType, item any, fetchedAt time.Time) (models.Property, error) {
	m, ok := item.(map[string]any)
	if !ok {
		return models.Property{}, fmt.Errorf("item is %T, not an object", item)
	}

	seo := String(m, "seoUrl", "SEO_URL", "PROP_DETAILS_URL")
	if seo == "" {
		return models.Property{}, fmt.Errorf("missing seoUrl")
	}

	return models.Property{
		PropertyID:  String(m, idKeys...),
		PropertyURL: urlutil.ResolveURL(n.BaseURL, seo),
		ListingType: kind,
		UnitType:    String(m, unitTypeKeys...),
		Size:        String(m, sizeKeys...),
		Price:       String(m, priceKeys...),
		PostedBy:    String(m, postedByKeys...),
		FetchedAt:   fetchedAt,
		Details:     m,
	}, nil
}

func concat(a, b []any) []any {
	out := make([]any, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
