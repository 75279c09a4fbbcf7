// internal/cli/get.go
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/propcrawl/internal/ui"
	"github.com/law-makers/propcrawl/internal/utils/output"
)

var getOutput string

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <url>",
	Short: "Fetch and normalize a single project page",
	Long: `Runs one URL through fetch, extraction and normalization and prints the
resulting record as JSON. Nothing is appended to an output file and resume
state is not consulted.`,
	Example: `  # Print one record
  propcrawl get https://www.99acres.com/some-project-npxid-r12345

  # Include listings, following the linked listing searches
  propcrawl get https://www.99acres.com/some-project-npxid-r12345 --listings --follow-listings

  # Save to a file
  propcrawl get https://www.99acres.com/some-project-npxid-r12345 -o record.json`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().StringVarP(&getOutput, "output", "o", "", "Write the record to this JSON file instead of stdout")
	getCmd.Flags().Bool("listings", false, "Include rental/resale property listings")
	getCmd.Flags().Bool("follow-listings", false, "Page through linked listing searches (implies --listings)")
	getCmd.Flags().Bool("metrics", false, "Include performance metrics")
	getCmd.Flags().Bool("fingerprint", false, "Use a Chrome TLS fingerprint for direct connections")
}

func runGet(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	if a == nil {
		return fmt.Errorf("application not initialized")
	}

	url := args[0]
	log.Info().Str("url", url).Msg("Fetching project page")

	rec, err := a.Get(cmd.Context(), url)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}

	if getOutput != "" {
		if err := output.SaveJSON(rec, getOutput); err != nil {
			return err
		}
		log.Info().Str("file", getOutput).Msg("Output saved")
		fmt.Fprintf(os.Stderr, "%s Saved to %s\n", ui.Success("✓"), getOutput)
		return nil
	}

	return output.WriteJSON(cmd.OutOrStdout(), rec)
}
