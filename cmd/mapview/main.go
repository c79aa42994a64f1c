package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-preview"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "mapview",
		Short: "mapview - pan and zoom large SVG scenes",
		Long: `mapview serves an SVG scene behind a pan and zoom viewport. The view
state lives either in a WASM module in the browser or in a server session
driven over a WebSocket, and can also be explored from the terminal.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newBuildCommand())
	rootCmd.AddCommand(newTUICommand())
	rootCmd.AddCommand(newReplayCommand())
	rootCmd.AddCommand(newSnapshotCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
