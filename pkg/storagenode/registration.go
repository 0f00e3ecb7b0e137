package storagenode

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/scribefs/scribe/internal/logger"
	"github.com/scribefs/scribe/internal/protocol"
)

const (
	dialTimeout    = 5 * time.Second
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Register announces the node to the coordinator, retrying with backoff
// until an id is assigned or ctx is cancelled. It must complete before
// Serve and HeartbeatLoop start.
func (s *Server) Register(ctx context.Context) (int, error) {
	backoff := initialBackoff
	for {
		id, err := s.tryRegister()
		if err == nil {
			s.id = id
			logger.Info("Registered with coordinator",
				logger.NodeID(id),
				logger.Address(s.cfg.Coordinator))
			return id, nil
		}

		logger.Warn("Registration failed, retrying",
			logger.Address(s.cfg.Coordinator),
			logger.DurationMs(float64(backoff.Milliseconds())),
			logger.Err(err))

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < maxBackoff {
			backoff *= 2
		}
	}
}

// tryRegister performs one registration round trip.
func (s *Server) tryRegister() (int, error) {
	advertise := s.cfg.AdvertiseAddress
	if advertise == "" {
		// Prefer the bound address; the configured one may have port 0.
		if addr := s.Addr(); addr != nil {
			advertise = addr.String()
		} else {
			advertise = s.cfg.Listen
		}
	}

	resp, err := s.exchange(&protocol.Message{
		Type:     protocol.TagRegisterNode,
		Username: "node",
		Payload:  []byte(advertise),
	})
	if err != nil {
		return 0, err
	}

	var id int
	if _, err := fmt.Sscanf(string(resp.Payload), "SS_ID:%d", &id); err != nil {
		return 0, fmt.Errorf("unexpected registration ack %q", resp.Payload)
	}
	return id, nil
}

// HeartbeatLoop reports liveness on a ticker until ctx is cancelled. Each
// beat is its own short-lived connection; a missed beat only logs, the
// coordinator's sweep decides when the node counts as dead.
func (s *Server) HeartbeatLoop(ctx context.Context) {
	interval := s.cfg.HeartbeatInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case <-ticker.C:
			if err := s.sendHeartbeat(); err != nil {
				logger.Warn("Heartbeat failed",
					logger.NodeID(s.id),
					logger.Address(s.cfg.Coordinator),
					logger.Err(err))
			}
		}
	}
}

func (s *Server) sendHeartbeat() error {
	_, err := s.exchange(&protocol.Message{
		Type:     protocol.TagHeartbeat,
		Username: "node",
		Payload:  []byte(strconv.Itoa(s.id)),
	})
	return err
}

// exchange dials the coordinator, performs one request/response round trip
// and closes the connection.
func (s *Server) exchange(req *protocol.Message) (*protocol.Message, error) {
	conn, err := net.DialTimeout("tcp", s.cfg.Coordinator, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial coordinator %s: %w", s.cfg.Coordinator, err)
	}
	defer conn.Close()

	if err := protocol.WriteMessage(conn, req, s.maxPayload); err != nil {
		return nil, err
	}
	resp, err := protocol.ReadMessage(conn, s.maxPayload)
	if err != nil {
		return nil, err
	}
	if resp.ErrorCode != uint32(protocol.CodeSuccess) {
		return nil, protocol.ResponseError(resp)
	}
	return resp, nil
}
