// internal/cli/scrape.go
package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/law-makers/propcrawl/internal/app"
	"github.com/law-makers/propcrawl/internal/config"
	"github.com/law-makers/propcrawl/internal/ui"
	"github.com/law-makers/propcrawl/pkg/models"
)

var (
	scrapeInput  string
	scrapeOutput string
	noProgress   bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape every URL of an input file into an NDJSON output",
	Long: `Reads project URLs from the input file and runs them through a pool of
workers. Each worker owns its own HTTP session. Records are appended to the
output file in batches.

Input formats by extension:
- .json: array of URLs, {"url": ...} objects or {"urls": [...], "source_url": ...} groups
- .ndjson / .jsonl: one such value per line
- anything else: one URL per line, # starts a comment

URLs already present in the output are skipped unless --no-resume is set.
A captcha challenge stops the run; rerun the same command later to resume.`,
	Example: `  # Scrape a list of URLs
  propcrawl scrape -i urls.txt -o records.ndjson

  # Four workers, with listings and metrics
  propcrawl scrape -i projects.json -o records.ndjson -w 4 --listings --metrics

  # Route through a proxy pool
  propcrawl scrape -i urls.txt -o records.ndjson --proxy http://p1:8080 --proxy socks5://p2:1080`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVarP(&scrapeInput, "input", "i", "", "Input file with project URLs (required)")
	scrapeCmd.Flags().StringVarP(&scrapeOutput, "output", "o", "records.ndjson", "NDJSON file records are appended to")
	scrapeCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	_ = scrapeCmd.MarkFlagRequired("input")

	config.RegisterScrapeFlags(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	if a == nil {
		return fmt.Errorf("application not initialized")
	}

	showBar := !noProgress && !a.Config.JSONLog && a.Config.LogLevel != "error"

	var bar *progressbar.ProgressBar
	stats, err := a.Scrape(cmd.Context(), app.ScrapeOptions{
		Input:  scrapeInput,
		Output: scrapeOutput,
		OnStart: func(pending int) {
			if showBar && pending > 0 {
				bar = newProgressBar(os.Stderr, pending)
			}
		},
		OnProgress: func(s models.Stats) {
			if bar != nil {
				_ = bar.Set(int(s.Succeeded + s.Failed + s.Blocked))
			}
		},
	})
	if bar != nil {
		_ = bar.Finish()
	}

	if err == nil || stats.Total > 0 {
		printRunSummary(cmd.ErrOrStderr(), stats)
	}
	if err != nil {
		return fmt.Errorf("scrape: %w", err)
	}
	return nil
}

func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("scraping"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func printRunSummary(w io.Writer, s models.Stats) {
	status := ui.Success("completed")
	if s.Stopped {
		status = ui.Error("stopped")
	}

	fmt.Fprintf(w, "\n%s %s\n", ui.Bold("Scrape"), status)
	fmt.Fprintf(w, "  %-16s %d\n", "input urls", s.Total)
	fmt.Fprintf(w, "  %-16s %s\n", "skipped", ui.Warn(fmt.Sprint(s.Skipped)))
	fmt.Fprintf(w, "  %-16s %d\n", "succeeded", s.Succeeded)
	fmt.Fprintf(w, "  %-16s %d\n", "failed", s.Failed)
	if s.Blocked > 0 {
		fmt.Fprintf(w, "  %-16s %s\n", "blocked", ui.Error(fmt.Sprint(s.Blocked)))
	}
	fmt.Fprintf(w, "  %-16s %d\n", "persisted", s.Persisted)
	if s.PersistFailed > 0 {
		fmt.Fprintf(w, "  %-16s %s\n", "persist failed", ui.Error(fmt.Sprint(s.PersistFailed)))
	}
	fmt.Fprintf(w, "  %-16s %.1f%%\n", "success rate", s.SuccessRate())
	fmt.Fprintf(w, "  %-16s %s\n\n", "elapsed", s.Elapsed.Round(time.Millisecond))
}
