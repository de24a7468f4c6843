package main

import (
	"fmt"
	"os"

	"github.com/chroniclehq/chronicle/internal/cli"
	"github.com/chroniclehq/chronicle/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "chronicle",
		Short: "Chronicle CLI - Ask questions about your days",
		Long: `Chronicle CLI asks questions against your personal timeline and documents.

Environment variables:
  CHRONICLE_USER_ID   User id to act as (required)
  CHRONICLE_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().Int64("user", 0, "User id to act as (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.InitCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.SourcesCmd())
	rootCmd.AddCommand(client.TimelineCmd())
	rootCmd.AddCommand(client.SessionCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
