// Package commands implements the scrib client CLI: one-shot subcommands
// for every document operation plus the interactive shell.
package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/scribefs/scribe/pkg/client"
)

var (
	// Version information injected at build time.
	Version = "dev"

	// Global flags.
	coordinatorAddr string
	username        string
)

var rootCmd = &cobra.Command{
	Use:   "scrib",
	Short: "Scribe client",
	Long: `scrib is the Scribe client. Every command registers with the
coordinator, performs one operation and exits; "scrib shell" keeps the
session open for interactive use.

Examples:
  scrib --user alice create notes.txt
  scrib --user alice write notes.txt 0 --edit "0 Hello" --edit "1 world."
  scrib --user bob read notes.txt
  scrib --user alice shell`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&coordinatorAddr, "coordinator", "127.0.0.1:8090", "coordinator address (host:port)")
	rootCmd.PersistentFlags().StringVar(&username, "user", os.Getenv("USER"), "username to register as")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(mkdirCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(grantCmd)
	rootCmd.AddCommand(revokeCmd)
	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(requestsCmd)
	rootCmd.AddCommand(checkpointCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// withClient dials the coordinator for one operation and closes the session
// afterwards, releasing any locks it held.
func withClient(fn func(*client.Client) error) error {
	c, err := client.Dial(coordinatorAddr, username)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()
	return fn(c)
}
