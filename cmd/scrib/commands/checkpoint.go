package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scribefs/scribe/pkg/client"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Manage named document checkpoints",
}

var checkpointCreateCmd = &cobra.Command{
	Use:   "create <file> <tag>",
	Short: "Snapshot the current content under a tag",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *client.Client) error {
			msg, err := c.CheckpointCreate(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		})
	},
}

var checkpointListCmd = &cobra.Command{
	Use:   "list <file>",
	Short: "List a document's checkpoints",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *client.Client) error {
			msg, err := c.CheckpointList(args[0])
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		})
	},
}

var checkpointRevertCmd = &cobra.Command{
	Use:   "revert <file> <tag>",
	Short: "Restore a document to a checkpoint",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *client.Client) error {
			msg, err := c.Revert(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		})
	},
}

func init() {
	checkpointCmd.AddCommand(checkpointCreateCmd)
	checkpointCmd.AddCommand(checkpointListCmd)
	checkpointCmd.AddCommand(checkpointRevertCmd)
}
