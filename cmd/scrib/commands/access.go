package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scribefs/scribe/internal/protocol"
	"github.com/scribefs/scribe/pkg/client"
)

var (
	grantRead    bool
	grantWrite   bool
	requestRead  bool
	requestWrite bool
)

var grantCmd = &cobra.Command{
	Use:   "grant <file> <user>",
	Short: "Grant a user access to a file you own",
	Long: `Grant read (-R), write (-W) or both (-R -W) permissions on a file
to another user. Only the owner can grant access.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		perms, err := permBits(grantRead, grantWrite)
		if err != nil {
			return err
		}
		return withClient(func(c *client.Client) error {
			msg, err := c.Grant(args[0], args[1], perms)
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		})
	},
}

var revokeCmd = &cobra.Command{
	Use:   "revoke <file> <user>",
	Short: "Revoke a user's access to a file you own",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *client.Client) error {
			msg, err := c.Revoke(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		})
	},
}

var requestCmd = &cobra.Command{
	Use:   "request <file>",
	Short: "Request access to another user's file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		perms, err := permBits(requestRead, requestWrite)
		if err != nil {
			return err
		}
		return withClient(func(c *client.Client) error {
			msg, err := c.RequestAccess(args[0], perms)
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		})
	},
}

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "List pending access requests for files you own",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *client.Client) error {
			msg, err := c.ViewRequests()
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		})
	},
}

func init() {
	grantCmd.Flags().BoolVarP(&grantRead, "read", "R", false, "grant read permission")
	grantCmd.Flags().BoolVarP(&grantWrite, "write", "W", false, "grant write permission")
	requestCmd.Flags().BoolVarP(&requestRead, "read", "R", false, "request read permission")
	requestCmd.Flags().BoolVarP(&requestWrite, "write", "W", false, "request write permission")
}

func permBits(read, write bool) (int, error) {
	perms := 0
	if read {
		perms |= protocol.PermRead
	}
	if write {
		perms |= protocol.PermWrite
	}
	if perms == 0 {
		return 0, fmt.Errorf("specify at least one of -R or -W")
	}
	return perms, nil
}
