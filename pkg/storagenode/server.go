package storagenode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/scribefs/scribe/internal/logger"
	"github.com/scribefs/scribe/internal/protocol"
	"github.com/scribefs/scribe/internal/telemetry"
	"github.com/scribefs/scribe/pkg/config"
	"github.com/scribefs/scribe/pkg/metrics"
)

// Server is the storage node's TCP listener plus its coordinator link. It
// serves content operations against the local store; clients reach it only
// after the coordinator redirected them here.
type Server struct {
	cfg     config.NodeConfig
	store   *Store
	metrics metrics.NodeMetrics

	maxPayload uint32

	// id is assigned by the coordinator at registration, before the serve
	// and heartbeat loops start.
	id int

	mu       sync.Mutex
	listener net.Listener

	activeConns sync.WaitGroup

	// activeConnections tracks open client connections for shutdown
	// interruption and forced close, keyed by remote address.
	activeConnections sync.Map

	shutdown     chan struct{}
	shutdownOnce sync.Once

	shutdownCtx    context.Context
	cancelRequests context.CancelFunc
}

// NewServer creates a storage node server over the store.
func NewServer(cfg config.NodeConfig, store *Store, m metrics.NodeMetrics) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:            cfg,
		store:          store,
		metrics:        m,
		maxPayload:     uint32(cfg.MaxMessageSize),
		shutdown:       make(chan struct{}),
		shutdownCtx:    ctx,
		cancelRequests: cancel,
	}
}

// ID returns the coordinator-assigned node id, zero before registration.
func (s *Server) ID() int { return s.id }

// Listen binds the configured address. Serve calls it implicitly; tests call
// it first so Addr is valid before the accept loop starts.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Listen, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts client connections until ctx is cancelled or Shutdown is
// called, then drains active connections within the shutdown timeout.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	logger.Info("Storage node listening",
		logger.NodeID(s.id),
		logger.Address(s.Addr().String()))

	go func() {
		select {
		case <-ctx.Done():
			s.initiateShutdown()
		case <-s.shutdown:
		}
	}()

	for {
		s.mu.Lock()
		ln := s.listener
		s.mu.Unlock()

		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				s.gracefulShutdown()
				return nil
			default:
				var ne net.Error
				if errors.As(err, &ne) && ne.Timeout() {
					continue
				}
				return fmt.Errorf("accept: %w", err)
			}
		}

		s.activeConns.Add(1)
		go s.handleConnection(conn)
	}
}

// Shutdown triggers the same graceful stop as cancelling Serve's context.
func (s *Server) Shutdown() {
	s.initiateShutdown()
}

// handleConnection serves one client: read a frame, dispatch, write the
// response. STREAM is the one request that answers with multiple frames, so
// it bypasses the single-response path.
func (s *Server) handleConnection(conn net.Conn) {
	remote := conn.RemoteAddr().String()
	s.activeConnections.Store(remote, conn)

	defer func() {
		s.activeConnections.Delete(remote)
		conn.Close()
		s.activeConns.Done()
	}()

	for {
		req, err := protocol.ReadMessage(conn, s.maxPayload)
		if err != nil {
			if err == io.EOF {
				return
			}
			select {
			case <-s.shutdown:
				return
			default:
			}
			logger.Debug("Connection read failed",
				logger.ClientIP(remote), logger.Err(err))
			return
		}

		if req.Type == protocol.TagStream {
			if err := s.streamFile(s.shutdownCtx, conn, req); err != nil {
				logger.Debug("Stream aborted",
					logger.ClientIP(remote), logger.Err(err))
				return
			}
			continue
		}

		resp := s.process(s.shutdownCtx, req)
		if err := protocol.WriteMessage(conn, resp, s.maxPayload); err != nil {
			logger.Debug("Connection write failed",
				logger.ClientIP(remote), logger.Err(err))
			return
		}
	}
}

// process runs one request through the handler and wraps the result in a
// response envelope, recording metrics and logging the outcome.
func (s *Server) process(ctx context.Context, req *protocol.Message) *protocol.Message {
	start := time.Now()
	ctx, span := telemetry.StartNodeSpan(ctx, req.Type,
		telemetry.Username(req.Username),
		telemetry.Filename(req.Filename),
		telemetry.NodeID(s.id))

	payload, err := s.handle(ctx, req)

	code := protocol.CodeOf(err)
	telemetry.EndRequestSpan(span, int(code), err)
	var resp *protocol.Message
	switch {
	case err == nil:
		resp = protocol.Response(req, payload)
		logger.Debug("Request served",
			logger.Tag(req.Type),
			logger.User(req.Username),
			logger.File(req.Filename),
			logger.DurationMs(logger.Duration(start)))
	case code == protocol.CodeServerError:
		logger.Error("Request failed",
			logger.Tag(req.Type),
			logger.User(req.Username),
			logger.File(req.Filename),
			logger.Err(err))
		resp = protocol.ErrorResponse(req, err)
	default:
		logger.Debug("Request rejected",
			logger.Tag(req.Type),
			logger.User(req.Username),
			logger.File(req.Filename),
			logger.ErrorCode(int(code)),
			logger.Err(err))
		resp = protocol.ErrorResponse(req, err)
	}

	if s.metrics != nil {
		s.metrics.RecordRequest(req.Type, uint32(code), time.Since(start))
	}
	return resp
}

// initiateShutdown closes the listener and nudges blocked reads so the
// accept loop can move on to draining.
func (s *Server) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Info("Storage node shutting down", logger.NodeID(s.id))
		close(s.shutdown)

		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Unlock()

		s.activeConnections.Range(func(_, value any) bool {
			if conn, ok := value.(net.Conn); ok {
				conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
			}
			return true
		})
	})
}

// gracefulShutdown waits for active connections up to the shutdown timeout,
// then force-closes whatever is left.
func (s *Server) gracefulShutdown() {
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("All node connections drained", logger.NodeID(s.id))
	case <-time.After(timeout):
		logger.Warn("Shutdown timeout reached, closing remaining connections",
			logger.NodeID(s.id))
		s.activeConnections.Range(func(_, value any) bool {
			if conn, ok := value.(net.Conn); ok {
				conn.Close()
			}
			return true
		})
		<-done
	}

	s.cancelRequests()
}
