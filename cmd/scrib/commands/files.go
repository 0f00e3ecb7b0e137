package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scribefs/scribe/internal/cli/prompt"
	"github.com/scribefs/scribe/pkg/client"
)

var createCmd = &cobra.Command{
	Use:   "create <file>",
	Short: "Create an empty document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *client.Client) error {
			msg, err := c.Create(args[0])
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		})
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <folder>",
	Short: "Create a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *client.Client) error {
			msg, err := c.Mkdir(args[0])
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		})
	},
}

var readCmd = &cobra.Command{
	Use:   "read <file>",
	Short: "Print a document's content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *client.Client) error {
			content, err := c.Read(args[0])
			if err != nil {
				return err
			}
			fmt.Println(content)
			return nil
		})
	},
}

var deleteForce bool

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "skip the confirmation prompt")
}

var deleteCmd = &cobra.Command{
	Use:   "delete <file>",
	Short: "Delete a document (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete %s", args[0]), deleteForce)
		if err != nil && !prompt.IsAborted(err) {
			return err
		}
		if !ok {
			fmt.Println("Aborted")
			return nil
		}
		return withClient(func(c *client.Client) error {
			msg, err := c.Delete(args[0])
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		})
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Show word, character and sentence counts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *client.Client) error {
			msg, err := c.Info(args[0])
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		})
	},
}

var undoCmd = &cobra.Command{
	Use:   "undo <file>",
	Short: "Revert a document to its previous version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *client.Client) error {
			msg, err := c.Undo(args[0])
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		})
	},
}
