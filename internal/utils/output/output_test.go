package output

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/law-makers/propcrawl/internal/store"
	"github.com/law-makers/propcrawl/pkg/models"
)

func sampleRecords() []*models.Record {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return []*models.Record{
		{
			URL:       "https://site/p1",
			SourceURL: "https://site/list",
			RawData:   models.RawData{BasicDetails: map[string]any{}, Components: map[string]any{}},
			PropertyListings: &models.PropertyListings{
				RentalProperties: []models.Property{
					{PropertyURL: "https://site/r1", ListingType: models.ListingRent, UnitType: "2 BHK", Price: "25000", PostedBy: "Owner", FetchedAt: at},
				},
				ResaleProperties: []models.Property{
					{PropertyURL: "https://site/s1", ListingType: models.ListingSale, UnitType: "2 BHK", PostedBy: "Dealer", FetchedAt: at},
					{PropertyURL: "https://site/s2", ListingType: models.ListingSale, FetchedAt: at},
				},
			},
			ExtractionSummary: &models.ExtractionSummary{
				TotalRentalFound: 1, TotalResaleFound: 3,
				SuccessfulRentalExtractions: 1, SuccessfulResaleExtractions: 2,
				FailedExtractions: 1,
			},
			PerformanceMetrics: &models.PerformanceMetrics{TotalExtractionTime: 3},
		},
		{
			URL:                "https://site/p2",
			RawData:            models.RawData{BasicDetails: map[string]any{}, Components: map[string]any{}},
			PerformanceMetrics: &models.PerformanceMetrics{TotalExtractionTime: 1},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	rows, err := WriteCSV(&buf, sampleRecords())
	if err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	if rows != 3 {
		t.Fatalf("expected 3 rows, got %d", rows)
	}

	lines, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(lines) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(lines))
	}
	first := lines[1]
	if first[0] != "https://site/p1" || first[1] != "https://site/list" || first[2] != "rent" || first[7] != "25000" {
		t.Errorf("unexpected first row: %v", first)
	}
	if first[9] != "2026-03-01T10:00:00Z" {
		t.Errorf("unexpected fetched_at %q", first[9])
	}
}

func TestSaveCSV_FromNDJSON(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "out.ndjson")
	s, err := store.OpenNDJSON(src)
	if err != nil {
		t.Fatalf("OpenNDJSON failed: %v", err)
	}
	if err := s.Append(sampleRecords()); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	s.Close()

	dst := filepath.Join(dir, "listings.csv")
	rows, err := SaveCSV(src, dst)
	if err != nil {
		t.Fatalf("SaveCSV failed: %v", err)
	}
	if rows != 3 {
		t.Errorf("expected 3 rows, got %d", rows)
	}
	data, _ := os.ReadFile(dst)
	if !strings.HasPrefix(string(data), "project_url,source_url,listing_type") {
		t.Errorf("missing header: %q", string(data))
	}
}

func TestSummary(t *testing.T) {
	s := NewSummary()
	for _, r := range sampleRecords() {
		s.Add(r)
	}

	if s.Records != 2 || s.WithListings != 1 || s.Rental != 1 || s.Resale != 2 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if s.UnitTypes["2 BHK"] != 2 || s.UnitTypes["unknown"] != 1 {
		t.Errorf("unexpected unit types: %v", s.UnitTypes)
	}
	if s.PostedBy["Owner"] != 1 || s.PostedBy["Dealer"] != 1 {
		t.Errorf("unexpected posted_by: %v", s.PostedBy)
	}
	if rate := s.ExtractionRate(); rate != 75 {
		t.Errorf("expected 75%% extraction rate, got %.1f", rate)
	}
	if avg := s.AverageExtractTime(); avg != 2 {
		t.Errorf("expected 2s average, got %.2f", avg)
	}

	var buf bytes.Buffer
	s.Render(&buf)
	if !strings.Contains(buf.String(), "75.0%") || !strings.Contains(buf.String(), "2 BHK") {
		t.Errorf("report missing figures:\n%s", buf.String())
	}
}

func TestWriteJSON_NoHTMLEscape(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, map[string]string{"name": "<A & B>"}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	if !strings.Contains(buf.String(), "<A & B>") {
		t.Errorf("HTML was escaped: %s", buf.String())
	}
}
