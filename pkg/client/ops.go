package client

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/scribefs/scribe/internal/logger"
	"github.com/scribefs/scribe/internal/protocol"
)

// Create registers the file with the coordinator and initializes it on the
// assigned nodes. The replica initialization is best effort; the first
// committed write replicates the content anyway.
func (c *Client) Create(file string) (string, error) {
	redirect, err := c.redirectCall(protocol.TagCreate, file, "")
	if err != nil {
		return "", err
	}

	resp, err := c.nodeCall(redirect.Primary, protocol.TagCreate, file, "")
	if err != nil {
		return "", err
	}
	if redirect.Replica != "" {
		if _, err := c.nodeCall(redirect.Replica, protocol.TagCreate, file, ""); err != nil {
			logger.Warn("Replica initialization failed",
				logger.File(file),
				logger.NodeAddr(redirect.Replica),
				logger.Err(err))
		}
	}
	return string(resp.Payload), nil
}

// Mkdir creates a folder. Folders are catalog-only, no node round trip.
func (c *Client) Mkdir(folder string) (string, error) {
	resp, err := c.call(protocol.TagCreateFolder, folder, "")
	if err != nil {
		return "", err
	}
	return string(resp.Payload), nil
}

// Read fetches the file content, failing over to the replica when the
// primary is unreachable.
func (c *Client) Read(file string) (string, error) {
	redirect, err := c.redirectCall(protocol.TagRead, file, "")
	if err != nil {
		return "", err
	}
	resp, err := c.nodeCallFailover(redirect, protocol.TagRead, file, "")
	if err != nil {
		return "", err
	}
	return string(resp.Payload), nil
}

// Delete removes the file: node-side cleanup on every returned endpoint,
// then the coordinator-side success stands. A coordinator with no endpoint
// on record acknowledges without a redirect; there is nothing to clean up
// then.
func (c *Client) Delete(file string) (string, error) {
	resp, err := c.call(protocol.TagDelete, file, "")
	if err != nil {
		return "", err
	}

	payload := string(resp.Payload)
	if !strings.HasPrefix(payload, "SS:") {
		return fmt.Sprintf("File deleted: %s", file), nil
	}
	redirect, err := protocol.ParseRedirect(payload)
	if err != nil {
		return "", err
	}

	for _, addr := range []string{redirect.Primary, redirect.Replica} {
		if addr == "" {
			continue
		}
		if _, err := c.nodeCall(addr, protocol.TagDelete, file, ""); err != nil {
			logger.Warn("Node-side delete failed",
				logger.File(file),
				logger.NodeAddr(addr),
				logger.Err(err))
		}
	}
	return fmt.Sprintf("File deleted: %s", file), nil
}

// View lists catalog entries. all includes files the user cannot access;
// long selects the detailed listing.
func (c *Client) View(all, long bool) (string, error) {
	var flags []string
	if all {
		flags = append(flags, "-a")
	}
	if long {
		flags = append(flags, "-l")
	}
	resp, err := c.call(protocol.TagView, "", strings.Join(flags, " "))
	if err != nil {
		return "", err
	}
	return string(resp.Payload), nil
}

// List returns the registered user roster.
func (c *Client) List() (string, error) {
	resp, err := c.call(protocol.TagList, "", "")
	if err != nil {
		return "", err
	}
	return string(resp.Payload), nil
}

// Info returns the node-side counters for the file.
func (c *Client) Info(file string) (string, error) {
	redirect, err := c.redirectCall(protocol.TagInfo, file, "")
	if err != nil {
		return "", err
	}
	resp, err := c.nodeCallFailover(redirect, protocol.TagInfo, file, "")
	if err != nil {
		return "", err
	}
	return string(resp.Payload), nil
}

// Undo swaps the file content with its last snapshot on the primary node.
func (c *Client) Undo(file string) (string, error) {
	redirect, err := c.redirectCall(protocol.TagUndo, file, "")
	if err != nil {
		return "", err
	}
	resp, err := c.nodeCall(redirect.Primary, protocol.TagUndo, file, "")
	if err != nil {
		return "", err
	}
	return string(resp.Payload), nil
}

// Stream reads the file word by word, calling fn for each word as it
// arrives.
func (c *Client) Stream(file string, fn func(word string)) error {
	redirect, err := c.redirectCall(protocol.TagStream, file, "")
	if err != nil {
		return err
	}
	return c.streamFrom(redirect, file, fn)
}

// Grant gives target the permission bits on the file.
func (c *Client) Grant(file, target string, perms int) (string, error) {
	resp, err := c.call(protocol.TagAddAccess, file,
		fmt.Sprintf("%s|%d", target, perms))
	if err != nil {
		return "", err
	}
	return string(resp.Payload), nil
}

// Revoke removes target's grant on the file.
func (c *Client) Revoke(file, target string) (string, error) {
	resp, err := c.call(protocol.TagRemAccess, file, target)
	if err != nil {
		return "", err
	}
	return string(resp.Payload), nil
}

// RequestAccess files an access request with the owner.
func (c *Client) RequestAccess(file string, perms int) (string, error) {
	resp, err := c.call(protocol.TagRequestAccess, file, strconv.Itoa(perms))
	if err != nil {
		return "", err
	}
	return string(resp.Payload), nil
}

// ViewRequests lists pending requests on files the user owns.
func (c *Client) ViewRequests() (string, error) {
	resp, err := c.call(protocol.TagViewRequests, "", "")
	if err != nil {
		return "", err
	}
	return string(resp.Payload), nil
}

// CheckpointCreate tags the current content.
func (c *Client) CheckpointCreate(file, tag string) (string, error) {
	return c.checkpointCommand(file, "CREATE|"+tag)
}

// CheckpointList renders the file's checkpoints.
func (c *Client) CheckpointList(file string) (string, error) {
	return c.checkpointCommand(file, "LIST")
}

// Revert restores a checkpoint as the current content.
func (c *Client) Revert(file, tag string) (string, error) {
	return c.checkpointCommand(file, "REVERT|"+tag)
}

// checkpointCommand runs one checkpoint sub-command: the coordinator
// authorizes and echoes the command in the redirect, the node executes it.
func (c *Client) checkpointCommand(file, command string) (string, error) {
	redirect, err := c.redirectCall(protocol.TagCheckpoint, file, command)
	if err != nil {
		return "", err
	}
	resp, err := c.nodeCall(redirect.Primary, protocol.TagCheckpoint, file, redirect.Command)
	if err != nil {
		return "", err
	}
	return string(resp.Payload), nil
}

// streamFrom drives the multi-frame stream exchange against a node.
func (c *Client) streamFrom(redirect protocol.Redirect, file string, fn func(string)) error {
	addr := redirect.Primary
	conn, err := dialNodeWithFailover(redirect, &addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	req := &protocol.Message{Type: protocol.TagStream, Username: c.user, Filename: file}
	if err := protocol.WriteMessage(conn, req, c.maxPayload); err != nil {
		return fmt.Errorf("send STREAM to %s: %w", addr, err)
	}

	for {
		frame, err := protocol.ReadMessage(conn, c.maxPayload)
		if err != nil {
			return fmt.Errorf("read stream frame from %s: %w", addr, err)
		}
		if frame.ErrorCode != uint32(protocol.CodeSuccess) {
			return protocol.ResponseError(frame)
		}
		switch frame.Type {
		case protocol.TagStreamStart:
		case protocol.TagStreamWord:
			fn(string(frame.Payload))
		case protocol.TagStreamEnd:
			return nil
		default:
			return fmt.Errorf("unexpected stream frame %q", frame.Type)
		}
	}
}
