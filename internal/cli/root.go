package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var serviceURL string

var rootCmd = &cobra.Command{
	Use:   "chorusctl",
	Short: "Maintenance tooling for the chorus search service",
	Long: `chorusctl performs offline maintenance against a running chorus
search deployment: bulk-loading chorus files into the vector store and
cleaning up duplicate points left behind by earlier ingesters.

Example usage:
  chorusctl load "data/choruses/**/*.json"   # Bulk-ingest chorus files
  chorusctl dedupe --dry-run                 # Report duplicate points`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Optional .env, same convention as the server.
		_ = godotenv.Load()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serviceURL, "service", "http://localhost:8000",
		"base URL of the running search service")
}
