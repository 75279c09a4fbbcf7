// internal/cli/stats.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/law-makers/propcrawl/internal/utils/output"
)

var statsJSON bool

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats <file>",
	Short: "Summarize the records of an NDJSON output file",
	Example: `  # Human-readable report
  propcrawl stats records.ndjson

  # Machine-readable report
  propcrawl stats records.ndjson --as-json`,
	Args: cobra.ExactArgs(1),
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().BoolVar(&statsJSON, "as-json", false, "Print the summary as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	summary, err := output.Summarize(args[0])
	if err != nil {
		return fmt.Errorf("summarize %s: %w", args[0], err)
	}

	if statsJSON {
		return output.WriteJSON(cmd.OutOrStdout(), summary)
	}
	summary.Render(cmd.OutOrStdout())
	return nil
}
