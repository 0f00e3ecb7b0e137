package coordinator

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
	"github.com/scribefs/scribe/pkg/config"
)

// Server is the coordinator's TCP listener. Each accepted connection becomes
// a session served by its own goroutine; a connection semaphore caps
// concurrency and graceful shutdown drains the active sessions before
// forcing the stragglers closed.
type Server struct {
	cfg     config.CoordinatorConfig
	service *Service

	maxPayload uint32

	mu       sync.Mutex
	listener net.Listener

	connSemaphore chan struct{}
	activeConns   sync.WaitGroup

	// activeConnections maps session token -> net.Conn for shutdown
	// interruption and forced close.
	activeConnections sync.Map

	shutdown     chan struct{}
	shutdownOnce sync.Once

	// shutdownCtx is handed to handlers so in-flight catalog calls are
	// cancelled when the drain deadline passes.
	shutdownCtx    context.Context
	cancelRequests context.CancelFunc
}

// NewServer creates a coordinator server around the service.
func NewServer(cfg config.CoordinatorConfig, service *Service) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	maxClients := cfg.MaxClients
	if maxClients <= 0 {
		maxClients = 100
	}

	return &Server{
		cfg:            cfg,
		service:        service,
		maxPayload:     uint32(cfg.MaxMessageSize),
		connSemaphore:  make(chan struct{}, maxClients),
		shutdown:       make(chan struct{}),
		shutdownCtx:    ctx,
		cancelRequests: cancel,
	}
}

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

// Serve accepts sessions until ctx is cancelled or Shutdown is called, then
// drains active sessions within the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	logger.Info("Coordinator listening",
		logger.Address(s.Addr().String()),
		logger.Count(cap(s.connSemaphore)))

	go func() {
		select {
		case <-ctx.Done():
			s.initiateShutdown()
		case <-s.shutdown:
		}
	}()

	for {
		conn, err := s.acceptConnection()
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
		if conn == nil {
			continue // rejected at the connection cap
		}

		s.activeConns.Add(1)
		go s.handleConnection(conn)
	}
}

// Shutdown triggers the same graceful stop as cancelling Serve's context.
func (s *Server) Shutdown() {
	s.initiateShutdown()
}

// acceptConnection takes one connection from the listener, applying the
// connection cap. A nil, nil return means the connection was rejected.
func (s *Server) acceptConnection() (net.Conn, error) {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	conn, err := ln.Accept()
	if err != nil {
		return nil, err
	}

	select {
	case s.connSemaphore <- struct{}{}:
		return conn, nil
	default:
		logger.Warn("Connection limit reached, rejecting client",
			logger.ClientIP(conn.RemoteAddr().String()))
		conn.Close()
		return nil, nil
	}
}

// handleConnection runs one session: read a frame, dispatch, write the
// response, until the peer hangs up or shutdown interrupts the read. The
// deferred cleanup releases the session's locks no matter how the loop
// exits.
func (s *Server) handleConnection(conn net.Conn) {
	sess := NewSession(conn.RemoteAddr().String())
	s.activeConnections.Store(sess.Token, conn)
	s.service.BeginSession(sess)

	defer func() {
		s.service.EndSession(sess)
		s.activeConnections.Delete(sess.Token)
		conn.Close()
		<-s.connSemaphore
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
			logger.Debug("Session read failed",
				logger.Session(sess.Token), logger.Err(err))
			return
		}

		resp := s.service.Handle(s.shutdownCtx, sess, req)
		if err := protocol.WriteMessage(conn, resp, s.maxPayload); err != nil {
			logger.Debug("Session write failed",
				logger.Session(sess.Token), logger.Err(err))
			return
		}
	}
}

// initiateShutdown closes the listener and nudges blocked session reads so
// the accept loop can move on to draining.
func (s *Server) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Info("Coordinator shutting down")
		close(s.shutdown)

		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Unlock()

		s.interruptBlockingReads()
	})
}

// interruptBlockingReads forces a short read deadline on every active
// connection so sessions blocked in ReadMessage wake up and observe the
// shutdown.
func (s *Server) interruptBlockingReads() {
	s.activeConnections.Range(func(_, value any) bool {
		if conn, ok := value.(net.Conn); ok {
			conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		}
		return true
	})
}

// gracefulShutdown waits for active sessions up to the shutdown timeout,
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
		logger.Info("All coordinator sessions drained")
	case <-time.After(timeout):
		logger.Warn("Shutdown timeout reached, closing remaining sessions",
			logger.DurationMs(float64(timeout.Milliseconds())))
		s.forceCloseConnections()
		<-done
	}

	s.cancelRequests()
}

// forceCloseConnections closes every connection still tracked.
func (s *Server) forceCloseConnections() {
	s.activeConnections.Range(func(_, value any) bool {
		if conn, ok := value.(net.Conn); ok {
			conn.Close()
		}
		return true
	})
}
