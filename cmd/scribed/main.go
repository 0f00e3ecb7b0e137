// Command scribed runs the Scribe server roles: the coordinator and the
// storage node, plus operational helpers (init, config, status, logs).
package main

import (
	"os"

	"github.com/scribefs/scribe/cmd/scribed/commands"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		commands.PrintErr("Error: %v", err)
		os.Exit(1)
	}
}
