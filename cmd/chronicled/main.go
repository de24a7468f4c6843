package main

import (
	"fmt"
	"os"

	"github.com/chroniclehq/chronicle/internal/cli"
	"github.com/chroniclehq/chronicle/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chronicled",
		Short: "Chronicle daemon",
		Long:  "Chronicle daemon for running the query API server and the session summary worker",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
