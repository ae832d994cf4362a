// Package cli implements the todomock command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build metadata, injected via ldflags.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "todomock",
	Short: "todomock is a mock todo API backend for frontend testing",
	Long: `todomock serves the todo REST API contract from an in-memory store,
so frontends and test suites can run without the real backend.

Responses carry a configurable artificial delay to keep loading states
observable, and a test-control surface under /__test__/ lets harnesses
reset, inspect, and replace state between cases. State can optionally
persist across restarts through a session snapshot file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	initServeCmd()
	initVersionCmd()
}
