package models

import "time"

// WorkItem is one URL to fetch, optionally tagged with the listing page it came from.
type WorkItem struct {
	URL    string `json:"url"`
	Source string `json:"source,omitempty"`
}

// Record is one line of the NDJSON output. It is never mutated once persisted.
type Record struct {
	URL                string              `json:"url"`
	SourceURL          string              `json:"source_url,omitempty"`
	RawData            RawData             `json:"raw_data"`
	PropertyListings   *PropertyListings   `json:"property_listings,omitempty"`
	ExtractionSummary  *ExtractionSummary  `json:"extraction_summary,omitempty"`
	PerformanceMetrics *PerformanceMetrics `json:"performance_metrics,omitempty"`
}

// RawData holds the two project sections copied out of the embedded page state.
type RawData struct {
	BasicDetails map[string]any `json:"basicDetails"`
	Components   map[string]any `json:"components"`
}

// ListingType distinguishes rental from resale listings.
type ListingType string

const (
	ListingRent ListingType = "rent"
	ListingSale ListingType = "sale"
)

// PropertyListings groups the individual units advertised on a project page
type PropertyListings struct {
	RentalProperties []Property `json:"rental_properties"`
	ResaleProperties []Property `json:"resale_properties"`
}

// Property is a single rental or resale unit
type Property struct {
	PropertyID  string         `json:"property_id,omitempty"`
	PropertyURL string         `json:"property_url"`
	ListingType ListingType    `json:"listing_type"`
	UnitType    string         `json:"unit_type,omitempty"`
	Size        string         `json:"size,omitempty"`
	Price       string         `json:"price,omitempty"`
	PostedBy    string         `json:"posted_by,omitempty"`
	FetchedAt   time.Time      `json:"fetched_at"`
	Details     map[string]any `json:"details,omitempty"`
}

// ExtractionSummary counts how many listing items could be turned into properties.
type ExtractionSummary struct {
	TotalRentalFound            int      `json:"total_rental_found"`
	TotalResaleFound            int      `json:"total_resale_found"`
	SuccessfulRentalExtractions int      `json:"successful_rental_extractions"`
	SuccessfulResaleExtractions int      `json:"successful_resale_extractions"`
	FailedExtractions           int      `json:"failed_extractions"`
	ExtractionErrors            []string `json:"extraction_errors,omitempty"`
}

// PerformanceMetrics are wall-clock timings in seconds.
type PerformanceMetrics struct {
	FetchTime           float64 `json:"fetch_time"`
	ParseTime           float64 `json:"parse_time"`
	ListingTime         float64 `json:"listing_time,omitempty"`
	TotalExtractionTime float64 `json:"total_extraction_time"`
	FetchAttempts       int     `json:"fetch_attempts"`
}

// Outcome classifies a fetch
type Outcome int

const (
	// OutcomeSuccess means the page body is usable
	OutcomeSuccess Outcome = iota

	// OutcomeBlocked means the server redirected to a captcha challenge
	OutcomeBlocked

	// OutcomeFailed means the item could not be fetched
	OutcomeFailed
)

// String returns the string representation of the outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FetchResult is the transient result of fetching one URL.
type FetchResult struct {
	Outcome  Outcome
	URL      string
	FinalURL string
	Status   int
	HTML     string
	Attempts int
	Err      error
	Elapsed  time.Duration
}

// Stats are the counters of a single pipeline run
type Stats struct {
	Total         int           `json:"total"`
	Skipped       int           `json:"skipped"`
	Succeeded     int64         `json:"succeeded"`
	Failed        int64         `json:"failed"`
	Blocked       int64         `json:"blocked"`
	Persisted     int64         `json:"persisted"`
	PersistFailed int64         `json:"persist_failed"`
	Stopped       bool          `json:"stopped"`
	Elapsed       time.Duration `json:"elapsed"`
}

// SuccessRate returns the percentage of attempted items that produced a record.
func (s Stats) SuccessRate() float64 {
	attempted := s.Succeeded + s.Failed
	if attempted == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(attempted) * 100
}
