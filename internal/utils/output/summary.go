package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/law-makers/propcrawl/internal/store"
	"github.com/law-makers/propcrawl/internal/ui"
	"github.com/law-makers/propcrawl/pkg/models"
)

// Summary aggregates the records of an output file
type Summary struct {
	Records          int            `json:"records"`
	WithListings     int            `json:"records_with_listings"`
	Rental           int            `json:"rental_properties"`
	Resale           int            `json:"resale_properties"`
	Found            int            `json:"listing_items_found"`
	Extracted        int            `json:"listing_items_extracted"`
	Failed           int            `json:"listing_items_failed"`
	UnitTypes        map[string]int `json:"unit_types"`
	PostedBy         map[string]int `json:"posted_by"`
	TotalExtractTime float64        `json:"total_extraction_time"`
	timedRecords     int
}

// NewSummary creates an empty Summary
func NewSummary() *Summary {
	return &Summary{UnitTypes: map[string]int{}, PostedBy: map[string]int{}}
}

// Add folds one record into the summary
func (s *Summary) Add(rec *models.Record) {
	s.Records++

	if l := rec.PropertyListings; l != nil {
		s.WithListings++
		s.Rental += len(l.RentalProperties)
		s.Resale += len(l.ResaleProperties)
		for _, group := range [][]models.Property{l.RentalProperties, l.ResaleProperties} {
			for _, p := range group {
				s.UnitTypes[orUnknown(p.UnitType)]++
				s.PostedBy[orUnknown(p.PostedBy)]++
			}
		}
	}

	if e := rec.ExtractionSummary; e != nil {
		s.Found += e.TotalRentalFound + e.TotalResaleFound
		s.Extracted += e.SuccessfulRentalExtractions + e.SuccessfulResaleExtractions
		s.Failed += e.FailedExtractions
	}

	if m := rec.PerformanceMetrics; m != nil {
		s.TotalExtractTime += m.TotalExtractionTime
		s.timedRecords++
	}
}

// ExtractionRate is the percentage of listing items turned into properties
func (s *Summary) ExtractionRate() float64 {
	if s.Found == 0 {
		return 0
	}
	return float64(s.Extracted) / float64(s.Found) * 100
}

// AverageExtractTime is the mean total_extraction_time in seconds over records that carry metrics
func (s *Summary) AverageExtractTime() float64 {
	if s.timedRecords == 0 {
		return 0
	}
	return s.TotalExtractTime / float64(s.timedRecords)
}

// Summarize reads the NDJSON file at path
func Summarize(path string) (*Summary, error) {
	s := NewSummary()
	err := store.ReadRecords(path, func(rec *models.Record) error {
		s.Add(rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Render prints a human-readable report
func (s *Summary) Render(w io.Writer) {
	fmt.Fprintf(w, "\n%sRecords%s\n", ui.ColorBold+ui.ColorWhite, ui.ColorReset)
	fmt.Fprintf(w, "  %-24s %d\n", "projects", s.Records)
	fmt.Fprintf(w, "  %-24s %d\n", "with listings", s.WithListings)
	fmt.Fprintf(w, "  %-24s %d\n", "rental properties", s.Rental)
	fmt.Fprintf(w, "  %-24s %d\n", "resale properties", s.Resale)

	if s.Found > 0 {
		fmt.Fprintf(w, "\n%sExtraction%s\n", ui.ColorBold+ui.ColorWhite, ui.ColorReset)
		fmt.Fprintf(w, "  %-24s %d\n", "items found", s.Found)
		fmt.Fprintf(w, "  %-24s %d\n", "items extracted", s.Extracted)
		fmt.Fprintf(w, "  %-24s %d\n", "items failed", s.Failed)
		fmt.Fprintf(w, "  %-24s %.1f%%\n", "success rate", s.ExtractionRate())
	}

	if s.timedRecords > 0 {
		fmt.Fprintf(w, "  %-24s %.2fs\n", "avg extraction time", s.AverageExtractTime())
	}

	renderCounts(w, "Unit types", s.UnitTypes)
	renderCounts(w, "Posted by", s.PostedBy)
	fmt.Fprintln(w)
}

func renderCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	fmt.Fprintf(w, "\n%s%s%s\n", ui.ColorBold+ui.ColorWhite, title, ui.ColorReset)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s%-24s%s %d\n", ui.ColorCyan, k, ui.ColorReset, counts[k])
	}
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}
