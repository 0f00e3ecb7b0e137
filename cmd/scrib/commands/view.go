package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scribefs/scribe/pkg/client"
)

var (
	viewAll  bool
	viewLong bool
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "List files you own or can access",
	Long: `List files visible to you. By default only files you own are shown;
-a includes files shared with you, -l adds owner and permission details.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *client.Client) error {
			listing, err := c.View(viewAll, viewLong)
			if err != nil {
				return err
			}
			fmt.Println(listing)
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registered users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *client.Client) error {
			listing, err := c.List()
			if err != nil {
				return err
			}
			fmt.Println(listing)
			return nil
		})
	},
}

func init() {
	viewCmd.Flags().BoolVarP(&viewAll, "all", "a", false, "include files shared with you")
	viewCmd.Flags().BoolVarP(&viewLong, "long", "l", false, "show owner and permissions")
}
