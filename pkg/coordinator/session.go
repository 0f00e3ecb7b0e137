package coordinator

import (
	"time"

	"github.com/google/uuid"
)

// SessionKind distinguishes client sessions from storage node sessions.
type SessionKind string

const (
	// SessionClient is a client connection.
	SessionClient SessionKind = "client"

	// SessionNode is a storage node connection (registration or heartbeat).
	SessionNode SessionKind = "node"
)

// Session is one accepted coordinator connection. The Token is the lock
// holder identity: two concurrent connections of the same user hold distinct
// tokens, so their locks never alias. Tokens are never reused.
type Session struct {
	// Token is the opaque session identity, allocated at accept time.
	Token string `json:"token"`

	// Kind starts as client and flips to node on REGISTER_SS.
	Kind SessionKind `json:"kind"`

	// User is set by REGISTER_CLIENT, empty before the handshake.
	User string `json:"user,omitempty"`

	// NodeID is set by REGISTER_SS for node sessions, 0 otherwise.
	NodeID int `json:"node_id,omitempty"`

	// RemoteAddr is the peer address, for logging and the admin API.
	RemoteAddr string `json:"remote_addr"`

	StartedAt time.Time `json:"started_at"`
}

// NewSession allocates a session for a freshly accepted connection.
func NewSession(remoteAddr string) *Session {
	return &Session{
		Token:      uuid.NewString(),
		Kind:       SessionClient,
		RemoteAddr: remoteAddr,
		StartedAt:  time.Now(),
	}
}
