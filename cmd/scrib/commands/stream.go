package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scribefs/scribe/pkg/client"
)

var streamCmd = &cobra.Command{
	Use:   "stream <file>",
	Short: "Stream a document word by word",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *client.Client) error {
			first := true
			err := c.Stream(args[0], func(word string) {
				if !first {
					fmt.Print(" ")
				}
				fmt.Print(word)
				first = false
			})
			if err != nil {
				return err
			}
			fmt.Println()
			return nil
		})
	},
}
