package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scribefs/scribe/internal/cli/prompt"
	"github.com/scribefs/scribe/internal/protocol"
	"github.com/scribefs/scribe/pkg/client"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive session",
	Long: `Open one session with the coordinator and run commands against it
until "exit". Locks acquired during the session are released when the
session closes.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func runShell(cmd *cobra.Command, args []string) error {
	c, err := client.Dial(coordinatorAddr, username)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	fmt.Printf("Connected to %s as %s. Type \"help\" for commands, \"exit\" to quit.\n",
		coordinatorAddr, c.User())

	for {
		line, err := prompt.Input("scrib", "")
		if err != nil {
			if prompt.IsAborted(err) {
				return nil
			}
			return err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "exit" || fields[0] == "quit" {
			return nil
		}
		if out, err := shellDispatch(c, fields[0], fields[1:]); err != nil {
			fmt.Println("Error:", err)
		} else if out != "" {
			fmt.Println(out)
		}
	}
}

func shellDispatch(c *client.Client, command string, args []string) (string, error) {
	switch command {
	case "help":
		return shellHelp, nil

	case "create":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: create <file>")
		}
		return c.Create(args[0])

	case "mkdir":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: mkdir <folder>")
		}
		return c.Mkdir(args[0])

	case "read":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: read <file>")
		}
		return c.Read(args[0])

	case "write":
		if len(args) != 2 {
			return "", fmt.Errorf("usage: write <file> <sentence>")
		}
		idx, err := strconv.Atoi(args[1])
		if err != nil || idx < 0 {
			return "", fmt.Errorf("invalid sentence index %q", args[1])
		}
		edits, err := collectEdits(nil)
		if err != nil {
			return "", err
		}
		if len(edits) == 0 {
			return "", fmt.Errorf("no edits given")
		}
		return c.Write(args[0], idx, edits)

	case "delete":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: delete <file>")
		}
		return c.Delete(args[0])

	case "view":
		all, long := false, false
		for _, a := range args {
			switch a {
			case "-a":
				all = true
			case "-l":
				long = true
			case "-al", "-la":
				all, long = true, true
			default:
				return "", fmt.Errorf("usage: view [-a] [-l]")
			}
		}
		return c.View(all, long)

	case "list":
		return c.List()

	case "info":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: info <file>")
		}
		return c.Info(args[0])

	case "stream":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: stream <file>")
		}
		var words []string
		if err := c.Stream(args[0], func(word string) {
			words = append(words, word)
		}); err != nil {
			return "", err
		}
		return strings.Join(words, " "), nil

	case "undo":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: undo <file>")
		}
		return c.Undo(args[0])

	case "grant":
		if len(args) != 3 {
			return "", fmt.Errorf("usage: grant <file> <user> <R|W|RW>")
		}
		perms, err := parsePerms(args[2])
		if err != nil {
			return "", err
		}
		return c.Grant(args[0], args[1], perms)

	case "revoke":
		if len(args) != 2 {
			return "", fmt.Errorf("usage: revoke <file> <user>")
		}
		return c.Revoke(args[0], args[1])

	case "request":
		if len(args) != 2 {
			return "", fmt.Errorf("usage: request <file> <R|W|RW>")
		}
		perms, err := parsePerms(args[1])
		if err != nil {
			return "", err
		}
		return c.RequestAccess(args[0], perms)

	case "requests":
		return c.ViewRequests()

	case "checkpoint":
		return shellCheckpoint(c, args)

	default:
		return "", fmt.Errorf("unknown command %q (try \"help\")", command)
	}
}

func shellCheckpoint(c *client.Client, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("usage: checkpoint create|list|revert ...")
	}
	switch args[0] {
	case "create":
		if len(args) != 3 {
			return "", fmt.Errorf("usage: checkpoint create <file> <tag>")
		}
		return c.CheckpointCreate(args[1], args[2])
	case "list":
		if len(args) != 2 {
			return "", fmt.Errorf("usage: checkpoint list <file>")
		}
		return c.CheckpointList(args[1])
	case "revert":
		if len(args) != 3 {
			return "", fmt.Errorf("usage: checkpoint revert <file> <tag>")
		}
		return c.Revert(args[1], args[2])
	default:
		return "", fmt.Errorf("unknown checkpoint command %q", args[0])
	}
}

func parsePerms(s string) (int, error) {
	switch strings.ToUpper(s) {
	case "R":
		return protocol.PermRead, nil
	case "W":
		return protocol.PermWrite, nil
	case "RW", "WR":
		return protocol.PermRead | protocol.PermWrite, nil
	default:
		return 0, fmt.Errorf("invalid permissions %q (want R, W or RW)", s)
	}
}

const shellHelp = `Commands:
  create <file>                     create an empty document
  mkdir <folder>                    create a folder
  read <file>                       print a document
  write <file> <sentence>           edit one sentence (interactive)
  delete <file>                     delete a document
  view [-a] [-l]                    list visible files
  list                              list registered users
  info <file>                       show document statistics
  stream <file>                     stream a document word by word
  undo <file>                       revert the last write
  grant <file> <user> <R|W|RW>      grant access
  revoke <file> <user>              revoke access
  request <file> <R|W|RW>           request access
  requests                          list pending access requests
  checkpoint create <file> <tag>    snapshot the current content
  checkpoint list <file>            list checkpoints
  checkpoint revert <file> <tag>    restore a checkpoint
  exit                              close the session`
