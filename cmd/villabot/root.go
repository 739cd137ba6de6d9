package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "villabot",
	Short: "villabot serves bots for the Villa chat platform",
	Long: `villabot receives Villa platform callbacks over HTTP, verifies their
signatures, dispatches events to registered handlers and answers through the
bot REST API.`,
	SilenceUsage: true,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}
