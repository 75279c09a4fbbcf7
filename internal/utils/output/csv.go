package output

import (
	"encoding/csv"
	"io"
	"os"
	"time"

	"github.com/law-makers/propcrawl/internal/store"
	"github.com/law-makers/propcrawl/pkg/models"
)

// CSVHeader lists the columns of a listings export
var CSVHeader = []string{
	"project_url", "source_url", "listing_type", "property_id", "property_url",
	"unit_type", "size", "price", "posted_by", "fetched_at",
}

// WriteCSV writes one row per property of records. Returns the number of rows written.
func WriteCSV(w io.Writer, records []*models.Record) (int, error) {
	writer := csv.NewWriter(w)
	if err := writer.Write(CSVHeader); err != nil {
		return 0, err
	}

	rows := 0
	for _, rec := range records {
		n, err := writeRecord(writer, rec)
		rows += n
		if err != nil {
			return rows, err
		}
	}

	writer.Flush()
	return rows, writer.Error()
}

// SaveCSV exports every property found in the NDJSON file at src to a CSV file at dst.
func SaveCSV(src, dst string) (int, error) {
	file, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(CSVHeader); err != nil {
		return 0, err
	}

	rows := 0
	err = store.ReadRecords(src, func(rec *models.Record) error {
		n, err := writeRecord(writer, rec)
		rows += n
		return err
	})
	if err != nil {
		return rows, err
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return rows, err
	}
	return rows, file.Close()
}

func writeRecord(writer *csv.Writer, rec *models.Record) (int, error) {
	if rec.PropertyListings == nil {
		return 0, nil
	}
	rows := 0
	for _, group := range [][]models.Property{rec.PropertyListings.RentalProperties, rec.PropertyListings.ResaleProperties} {
		for _, p := range group {
			fetched := ""
			if !p.FetchedAt.IsZero() {
				fetched = p.FetchedAt.Format(time.RFC3339)
			}
			row := []string{
				rec.URL, rec.SourceURL, string(p.ListingType), p.PropertyID, p.PropertyURL,
				p.UnitType, p.Size, p.Price, p.PostedBy, fetched,
			}
			if err := writer.Write(row); err != nil {
				return rows, err
			}
			rows++
		}
	}
	return rows, nil
}
