// Command scrib is the Scribe client.
package main

import (
	"fmt"
	"os"

	"github.com/scribefs/scribe/cmd/scrib/commands"
)

var version = "dev"

func main() {
	commands.Version = version

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
