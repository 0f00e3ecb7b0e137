// Package client implements the scrib side of the protocol: one coordinator
// session for metadata operations, short-lived storage node connections for
// content I/O, and the client half of the two-phase write.
package client

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/scribefs/scribe/internal/logger"
	"github.com/scribefs/scribe/internal/protocol"
)

const nodeDialTimeout = 5 * time.Second

// Client is one registered coordinator session.
type Client struct {
	user       string
	maxPayload uint32
	conn       net.Conn
}

// Dial connects to the coordinator and registers the user. The returned
// client owns the connection; Close releases the session and with it any
// sentence locks it still holds.
func Dial(coordinator, user string) (*Client, error) {
	if err := protocol.ValidateUsername(user); err != nil {
		return nil, err
	}

	conn, err := net.DialTimeout("tcp", coordinator, nodeDialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial coordinator %s: %w", coordinator, err)
	}

	c := &Client{user: user, conn: conn}
	if _, err := c.call(protocol.TagRegisterClient, "", ""); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// User returns the registered username.
func (c *Client) User() string { return c.user }

// Close ends the coordinator session.
func (c *Client) Close() error {
	return c.conn.Close()
}

// call performs one round trip on the coordinator session. Error responses
// come back as *protocol.Error.
func (c *Client) call(tag, file, payload string) (*protocol.Message, error) {
	req := &protocol.Message{
		Type:     tag,
		Username: c.user,
		Filename: file,
		Payload:  []byte(payload),
	}
	if err := protocol.WriteMessage(c.conn, req, c.maxPayload); err != nil {
		return nil, fmt.Errorf("send %s: %w", tag, err)
	}
	resp, err := protocol.ReadMessage(c.conn, c.maxPayload)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", tag, err)
	}
	if resp.ErrorCode != uint32(protocol.CodeSuccess) {
		return nil, protocol.ResponseError(resp)
	}
	return resp, nil
}

// redirectCall performs a coordinator call whose payload is an endpoint
// redirect.
func (c *Client) redirectCall(tag, file, payload string) (protocol.Redirect, error) {
	resp, err := c.call(tag, file, payload)
	if err != nil {
		return protocol.Redirect{}, err
	}
	return protocol.ParseRedirect(string(resp.Payload))
}

// nodeCall opens a connection to one storage node, performs a single round
// trip and closes it.
func (c *Client) nodeCall(addr, tag, file, payload string) (*protocol.Message, error) {
	conn, err := net.DialTimeout("tcp", addr, nodeDialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial storage node %s: %w", addr, err)
	}
	defer conn.Close()

	req := &protocol.Message{
		Type:     tag,
		Username: c.user,
		Filename: file,
		Payload:  []byte(payload),
	}
	if err := protocol.WriteMessage(conn, req, c.maxPayload); err != nil {
		return nil, fmt.Errorf("send %s to %s: %w", tag, addr, err)
	}
	resp, err := protocol.ReadMessage(conn, c.maxPayload)
	if err != nil {
		return nil, fmt.Errorf("read %s response from %s: %w", tag, addr, err)
	}
	if resp.ErrorCode != uint32(protocol.CodeSuccess) {
		return nil, protocol.ResponseError(resp)
	}
	return resp, nil
}

// nodeCallFailover tries the primary endpoint and falls back to the replica
// when the primary cannot be reached. Protocol-level errors do not fail
// over: a file_not_found from a live primary is the answer.
func (c *Client) nodeCallFailover(r protocol.Redirect, tag, file, payload string) (*protocol.Message, error) {
	resp, err := c.nodeCall(r.Primary, tag, file, payload)
	if err == nil || r.Replica == "" {
		return resp, err
	}
	var protoErr *protocol.Error
	if errors.As(err, &protoErr) {
		return nil, err
	}

	logger.Warn("Primary unreachable, trying replica",
		logger.File(file),
		logger.NodeAddr(r.Primary),
		logger.Err(err))
	return c.nodeCall(r.Replica, tag, file, payload)
}

// dialNodeWithFailover opens a node connection, preferring the primary and
// falling back to the replica on dial failure. addr is updated to the
// endpoint actually connected.
func dialNodeWithFailover(r protocol.Redirect, addr *string) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", r.Primary, nodeDialTimeout)
	if err == nil {
		*addr = r.Primary
		return conn, nil
	}
	if r.Replica == "" {
		return nil, fmt.Errorf("dial storage node %s: %w", r.Primary, err)
	}

	logger.Warn("Primary unreachable, trying replica",
		logger.NodeAddr(r.Primary),
		logger.Err(err))
	conn, rerr := net.DialTimeout("tcp", r.Replica, nodeDialTimeout)
	if rerr != nil {
		return nil, fmt.Errorf("dial storage nodes %s, %s: %w", r.Primary, r.Replica, rerr)
	}
	*addr = r.Replica
	return conn, nil
}
