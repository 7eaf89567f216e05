package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd runs the API server when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:          "newstrust",
	Short:        "Community trust and moderation engine for news",
	SilenceUsage: true,
	RunE:         runServe,
}

func main() {
	rootCmd.AddCommand(serveCmd, reconcileCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
