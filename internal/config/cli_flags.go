package config

import "github.com/spf13/cobra"

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress all output except errors")
	cmd.PersistentFlags().Bool("json", false, "Write logs as JSON")
	cmd.PersistentFlags().StringArray("proxy", nil, "HTTP/SOCKS5 proxy to rotate through (repeatable)")
	cmd.PersistentFlags().String("timeout", "", "Per-request timeout (e.g. 30s)")
	cmd.PersistentFlags().String("user-agent", "", "Use a single fixed user agent")
	cmd.PersistentFlags().StringArrayP("header", "H", nil, "Extra request header 'Key: Value' (repeatable)")
	cmd.PersistentFlags().String("config", "", "Path to YAML configuration file (optional)")
	cmd.PersistentFlags().String("env-file", DefaultEnvFile, "Path to .env file (ignored when missing)")
}

// RegisterScrapeFlags registers the flags that shape a scrape run
func RegisterScrapeFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("workers", "w", 0, "Number of concurrent workers")
	cmd.Flags().Int("save-every", 0, "Flush to disk after this many records")
	cmd.Flags().Bool("listings", false, "Include rental/resale property listings")
	cmd.Flags().Bool("follow-listings", false, "Page through linked listing searches (implies --listings)")
	cmd.Flags().Bool("metrics", false, "Include per-record performance metrics")
	cmd.Flags().Bool("no-resume", false, "Do not skip URLs already present in the output")
	cmd.Flags().Bool("fingerprint", false, "Use a Chrome TLS fingerprint for direct connections")
}
