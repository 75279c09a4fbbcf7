package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/law-makers/propcrawl/internal/store"
	"github.com/law-makers/propcrawl/internal/ui"
	"github.com/law-makers/propcrawl/pkg/models"
)

func init() {
	ui.DisableColor()
}

func writeRecords(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.ndjson")
	s, err := store.OpenNDJSON(path)
	if err != nil {
		t.Fatalf("OpenNDJSON failed: %v", err)
	}
	defer s.Close()

	err = s.Append([]*models.Record{
		{
			URL:     "https://site/p1",
			RawData: models.RawData{BasicDetails: map[string]any{}, Components: map[string]any{}},
			PropertyListings: &models.PropertyListings{
				RentalProperties: []models.Property{{PropertyURL: "https://site/r1", ListingType: models.ListingRent, UnitType: "3 BHK"}},
				ResaleProperties: []models.Property{},
			},
		},
		{
			URL:     "https://site/p2",
			RawData: models.RawData{BasicDetails: map[string]any{}, Components: map[string]any{}},
		},
	})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, int) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--quiet", "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	code := ExecuteContext(context.Background())
	return out.String(), code
}

func TestStatsCommand_JSON(t *testing.T) {
	path := writeRecords(t)

	out, code := execute(t, "stats", path, "--as-json")
	statsJSON = false
	if code != ExitOK {
		t.Fatalf("expected exit %d, got %d: %s", ExitOK, code, out)
	}

	var summary map[string]any
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("stats output is not JSON: %v\n%s", err, out)
	}
	if summary["records"] != float64(2) || summary["rental_properties"] != float64(1) {
		t.Errorf("unexpected summary: %v", summary)
	}
}

func TestExportCommand(t *testing.T) {
	path := writeRecords(t)
	dst := filepath.Join(t.TempDir(), "listings.csv")

	out, code := execute(t, "export", path, "-o", dst)
	exportOutput = "listings.csv"
	if code != ExitOK {
		t.Fatalf("expected exit %d, got %d: %s", ExitOK, code, out)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("csv not written: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], "https://site/r1") {
		t.Errorf("unexpected csv:\n%s", data)
	}
}

func TestScrapeCommand_MissingInput(t *testing.T) {
	_, code := execute(t, "scrape")
	if code != ExitError {
		t.Errorf("expected exit %d without --input, got %d", ExitError, code)
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four\n\n- item stays whole", 9)
	want := "one two\nthree\nfour\n\n- item stays whole"
	if got != want {
		t.Errorf("wrapText:\n got %q\nwant %q", got, want)
	}
}

func TestRenderHelp_ListsCommands(t *testing.T) {
	var buf bytes.Buffer
	renderHelp(&buf, rootCmd, true)

	for _, name := range []string{"scrape", "get", "stats", "export", "--config"} {
		if !strings.Contains(buf.String(), name) {
			t.Errorf("help is missing %q:\n%s", name, buf.String())
		}
	}
}
