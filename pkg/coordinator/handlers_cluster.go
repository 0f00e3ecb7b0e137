package coordinator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/scribefs/scribe/internal/logger"
	"github.com/scribefs/scribe/internal/protocol"
	"github.com/scribefs/scribe/internal/telemetry"
)

// registerClient handles the REGISTER_CLIENT handshake: record the user name
// and bind it to the session. Reconnecting under an already registered name
// succeeds.
func (s *Service) registerClient(sess *Session, req *protocol.Message) (string, error) {
	if err := protocol.ValidateUsername(req.Username); err != nil {
		return "", err
	}
	if err := s.users.Add(req.Username); err != nil {
		return "", err
	}
	s.bindUser(sess, req.Username)

	logger.Info("Client registered",
		logger.User(req.Username),
		logger.Session(sess.Token),
		logger.ClientIP(sess.RemoteAddr))
	return "Registered successfully", nil
}

// registerNode handles REGISTER_SS. The payload is the address the node
// serves clients on; the node advertises it explicitly because the address
// it dialed from is not the address it listens on.
func (s *Service) registerNode(ctx context.Context, sess *Session, req *protocol.Message) (string, error) {
	address := strings.TrimSpace(string(req.Payload))
	if address == "" || !strings.Contains(address, ":") {
		return "", protocol.NewInvalidParam("Invalid storage server address")
	}

	id, err := s.registry.Register(address)
	if err != nil {
		return "", err
	}
	s.bindNode(sess, id)

	telemetry.SetAttributes(ctx, telemetry.NodeID(id), telemetry.NodeAddr(address))
	logger.Info("Storage node registered",
		logger.NodeID(id),
		logger.NodeAddr(address))
	return fmt.Sprintf("SS_ID:%d", id), nil
}

// heartbeat handles HEARTBEAT. The payload carries the node id so heartbeats
// work over short-lived connections; a node session that already registered
// on this connection may omit it.
func (s *Service) heartbeat(sess *Session, req *protocol.Message) (string, error) {
	payload := strings.TrimSpace(string(req.Payload))

	id := sess.NodeID
	if payload != "" {
		n, err := strconv.Atoi(payload)
		if err != nil {
			return "", protocol.NewInvalidParam("Invalid storage server id")
		}
		id = n
	}
	if id <= 0 {
		return "", protocol.NewInvalidParam("Invalid storage server id")
	}

	if err := s.registry.Heartbeat(id); err != nil {
		return "", protocol.NewInvalidParam("Unknown storage server id")
	}
	return "OK", nil
}
