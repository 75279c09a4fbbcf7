// internal/cli/export.go
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/propcrawl/internal/ui"
	"github.com/law-makers/propcrawl/internal/utils/output"
)

var exportOutput string

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Flatten the listings of an NDJSON output file into CSV",
	Long: `Writes one CSV row per rental or resale property found in the records of
an NDJSON output file. Records without listings contribute no rows.`,
	Example: `  # Export listings
  propcrawl export records.ndjson -o listings.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "listings.csv", "CSV file to write")
}

func runExport(cmd *cobra.Command, args []string) error {
	rows, err := output.SaveCSV(args[0], exportOutput)
	if err != nil {
		return fmt.Errorf("export %s: %w", args[0], err)
	}

	log.Info().Str("input", args[0]).Str("file", exportOutput).Int("rows", rows).Msg("Export complete")
	fmt.Fprintf(os.Stderr, "%s Wrote %d rows to %s\n", ui.Success("✓"), rows, exportOutput)
	return nil
}
