// todomock CLI - mock todo API backend for frontend testing
package main

import (
	"github.com/todomock/todomock/pkg/cli"
)

// Build-time variables set via ldflags
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.BuildDate = buildDate
	cli.Execute()
}
