// Package coordinator implements the metadata server: the session listener,
// the request dispatcher, and the handlers behind every wire tag. The
// coordinator owns the file catalog, the storage node registry, the sentence
// lock table and the user set; file content never flows through it.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/scribefs/scribe/internal/logger"
	"github.com/scribefs/scribe/internal/protocol"
	"github.com/scribefs/scribe/internal/telemetry"
	"github.com/scribefs/scribe/pkg/coordinator/catalog"
	"github.com/scribefs/scribe/pkg/coordinator/lock"
	"github.com/scribefs/scribe/pkg/coordinator/registry"
	"github.com/scribefs/scribe/pkg/metrics"
)

// Service dispatches coordinator requests. Handlers run under a single
// coordinator-wide mutex taken at dispatch, so every cross-component invariant
// (lock implies file, grant implies file, cascade on delete) holds by
// serialization; the registry, lock table and user set keep their own
// internal locks so the admin API can snapshot them without stalling
// dispatch.
type Service struct {
	mu sync.Mutex

	catalog  *catalog.Store
	registry *registry.Registry
	locks    *lock.Manager
	users    *UserSet
	metrics  metrics.CoordinatorMetrics

	sessmu   sync.RWMutex
	sessions map[string]*Session
}

// NewService wires the coordinator components together. The metrics
// interface may be nil when collection is disabled.
func NewService(cat *catalog.Store, reg *registry.Registry, locks *lock.Manager, users *UserSet, m metrics.CoordinatorMetrics) *Service {
	return &Service{
		catalog:  cat,
		registry: reg,
		locks:    locks,
		users:    users,
		metrics:  m,
		sessions: make(map[string]*Session),
	}
}

// Catalog returns the catalog store, for the admin API.
func (s *Service) Catalog() *catalog.Store { return s.catalog }

// Registry returns the node registry, for the admin API.
func (s *Service) Registry() *registry.Registry { return s.registry }

// Locks returns the lock table, for the admin API.
func (s *Service) Locks() *lock.Manager { return s.locks }

// Users returns the user set, for the admin API.
func (s *Service) Users() *UserSet { return s.users }

// BeginSession records a freshly accepted session.
func (s *Service) BeginSession(sess *Session) {
	s.sessmu.Lock()
	s.sessions[sess.Token] = sess
	active := len(s.sessions)
	s.sessmu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordSessionOpened(string(sess.Kind))
		s.metrics.SetActiveSessions(active)
	}
	logger.Debug("Session opened",
		logger.Session(sess.Token),
		logger.ClientIP(sess.RemoteAddr))
}

// EndSession releases everything the session holds. Lock release here is the
// only automatic release path: a session's locks live exactly as long as its
// connection, however it ends.
func (s *Service) EndSession(sess *Session) {
	released := s.locks.ReleaseSession(sess.Token)

	s.sessmu.Lock()
	kind := sess.Kind
	delete(s.sessions, sess.Token)
	active := len(s.sessions)
	s.sessmu.Unlock()

	if released > 0 {
		logger.Info("Released locks held by closed session",
			logger.Session(sess.Token),
			logger.User(sess.User),
			logger.Count(released))
	}
	if s.metrics != nil {
		s.metrics.RecordSessionClosed(string(kind))
		s.metrics.SetActiveSessions(active)
		s.metrics.SetActiveLocks(s.locks.Count())
	}
	logger.Debug("Session closed", logger.Session(sess.Token))
}

// Sessions returns a snapshot of the active sessions, for the admin API.
func (s *Service) Sessions() []Session {
	s.sessmu.RLock()
	defer s.sessmu.RUnlock()

	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, *sess)
	}
	return out
}

// bindUser attaches the registered user name to the session under the
// session lock, so admin snapshots never race the handshake.
func (s *Service) bindUser(sess *Session, user string) {
	s.sessmu.Lock()
	sess.User = user
	s.sessmu.Unlock()
}

// bindNode marks the session as a storage node session.
func (s *Service) bindNode(sess *Session, id int) {
	s.sessmu.Lock()
	sess.Kind = SessionNode
	sess.NodeID = id
	s.sessmu.Unlock()
}

// Handle processes one request and always produces a response envelope.
// Handler failures become error responses; anything that is not a
// *protocol.Error is collapsed to server_error with a generic message and
// the cause goes to the log.
func (s *Service) Handle(ctx context.Context, sess *Session, req *protocol.Message) *protocol.Message {
	start := time.Now()
	ctx, span := telemetry.StartCoordinatorSpan(ctx, req.Type,
		telemetry.Username(req.Username),
		telemetry.Filename(req.Filename),
		telemetry.SessionToken(sess.Token),
		telemetry.ClientAddr(sess.RemoteAddr))
	if s.metrics != nil {
		s.metrics.RecordRequestStart(req.Type)
	}

	payload, err := s.dispatch(ctx, sess, req)

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
			logger.Session(sess.Token),
			logger.DurationMs(logger.Duration(start)))
	case code == protocol.CodeServerError:
		logger.Error("Request failed",
			logger.Tag(req.Type),
			logger.User(req.Username),
			logger.File(req.Filename),
			logger.Session(sess.Token),
			logger.Err(err))
		resp = protocol.ErrorResponse(req, err)
	default:
		logger.Debug("Request rejected",
			logger.Tag(req.Type),
			logger.User(req.Username),
			logger.File(req.Filename),
			logger.Session(sess.Token),
			logger.ErrorCode(int(code)),
			logger.Err(err))
		resp = protocol.ErrorResponse(req, err)
	}

	if s.metrics != nil {
		s.metrics.RecordRequestEnd(req.Type)
		s.metrics.RecordRequest(req.Type, uint32(code), time.Since(start))
		s.metrics.SetActiveLocks(s.locks.Count())
		s.metrics.SetNodesAlive(s.registry.Stats().Alive)
		s.metrics.SetUsersRegistered(s.users.Count())
	}
	return resp
}

// dispatch routes the request to its handler under the coordinator mutex.
func (s *Service) dispatch(ctx context.Context, sess *Session, req *protocol.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.Type {
	case protocol.TagRegisterClient:
		return s.registerClient(sess, req)
	case protocol.TagRegisterNode:
		return s.registerNode(ctx, sess, req)
	case protocol.TagHeartbeat:
		return s.heartbeat(sess, req)
	case protocol.TagCreate:
		return s.create(ctx, req)
	case protocol.TagCreateFolder:
		return s.createFolder(ctx, req)
	case protocol.TagRead:
		return s.read(ctx, req)
	case protocol.TagInfo, protocol.TagStream:
		return s.lookup(ctx, req, protocol.PermRead)
	case protocol.TagUndo:
		return s.lookup(ctx, req, protocol.PermWrite)
	case protocol.TagWriteLock:
		return s.writeLock(ctx, sess, req)
	case protocol.TagWriteCommit:
		return s.writeCommit(ctx, sess, req)
	case protocol.TagDelete:
		return s.delete(ctx, req)
	case protocol.TagView:
		return s.view(ctx, req)
	case protocol.TagList:
		return s.list(req)
	case protocol.TagAddAccess:
		return s.addAccess(ctx, req)
	case protocol.TagRemAccess:
		return s.remAccess(ctx, req)
	case protocol.TagRequestAccess:
		return s.requestAccess(ctx, req)
	case protocol.TagViewRequests:
		return s.viewRequests(ctx, req)
	case protocol.TagCheckpoint:
		return s.checkpoint(ctx, req)
	case protocol.TagListCheckpts:
		return s.listCheckpoints(ctx, req)
	case protocol.TagRevert:
		return s.revert(ctx, req, string(req.Payload))
	default:
		return "", protocol.NewInvalidParam(fmt.Sprintf("Unknown request type %q", req.Type))
	}
}

// authorize resolves the file and checks that user holds the required
// permission bits on it. The owner passes implicitly.
func (s *Service) authorize(ctx context.Context, name, user string, required int) (*catalog.FileEntry, error) {
	if err := protocol.ValidateName(name); err != nil {
		return nil, err
	}
	if err := protocol.ValidateUsername(user); err != nil {
		return nil, err
	}

	entry, err := s.catalog.GetFile(ctx, name)
	if err != nil {
		if errors.Is(err, catalog.ErrFileNotFound) {
			return nil, protocol.NewFileNotFound(name)
		}
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}
	if !entry.Allows(user, required) {
		return nil, protocol.NewPermissionDenied(name)
	}
	return entry, nil
}

// endpoints resolves the file's placement to live addresses.
func (s *Service) endpoints(entry *catalog.FileEntry) (protocol.Redirect, error) {
	return s.registry.Lookup(entry.PrimaryNodeID, entry.ReplicaNodeID)
}
