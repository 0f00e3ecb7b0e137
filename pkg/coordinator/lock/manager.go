// Package lock implements the coordinator's in-memory sentence lock table.
//
// Locks are keyed by (file, sentence index) and held by a session token, not
// a user: two connections of the same user are distinct holders. The table
// is deliberately not persistent; locks never survive a coordinator restart,
// and a session's locks are released when its connection closes.
package lock

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/scribefs/scribe/internal/protocol"
)

// SentenceLock is one entry in the lock table.
type SentenceLock struct {
	// File is the locked file's name.
	File string

	// Sentence is the 0-based sentence index. The coordinator treats it as
	// an opaque integer; range checks against content happen on the storage
	// side and in the client.
	Sentence int

	// HolderUser is the user name of the holder, used in conflict messages.
	HolderUser string

	// HolderSession is the opaque session token that owns the lock.
	HolderSession string

	// AcquiredAt is when the lock was first acquired. Idempotent
	// re-acquisition does not refresh it.
	AcquiredAt time.Time
}

type key struct {
	file     string
	sentence int
}

// Stats is a point-in-time snapshot of the lock table, served by the admin
// API and sampled by metrics.
type Stats struct {
	Active      int `json:"active"`
	Capacity    int `json:"capacity"`
	FilesLocked int `json:"files_locked"`

	// Cumulative counters since process start.
	Acquired  uint64 `json:"acquired"`
	Released  uint64 `json:"released"`
	Conflicts uint64 `json:"conflicts"`
}

// Manager owns the sentence lock table. All methods are safe for concurrent
// use; the internal mutex lets the admin API and metrics snapshot the table
// without holding the coordinator's dispatch mutex.
type Manager struct {
	mu       sync.RWMutex
	locks    map[key]SentenceLock
	capacity int

	acquired  uint64
	released  uint64
	conflicts uint64
}

// NewManager creates a lock table bounded to capacity entries. A
// non-positive capacity falls back to the protocol default of 100.
func NewManager(capacity int) *Manager {
	if capacity <= 0 {
		capacity = 100
	}
	return &Manager{
		locks:    make(map[key]SentenceLock),
		capacity: capacity,
	}
}

// Acquire takes the lock on (file, sentence) for the given user and session.
//
// Acquisition is idempotent for the holding session: re-acquiring an already
// held lock succeeds without creating a second entry. A lock held by any
// other session fails with CodeLocked naming the holder's user, and a full
// table fails with CodeServerError.
func (m *Manager) Acquire(file string, sentence int, user, session string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{file: file, sentence: sentence}
	if existing, ok := m.locks[k]; ok {
		if existing.HolderSession == session {
			return nil
		}
		m.conflicts++
		return protocol.NewLocked(file, sentence, existing.HolderUser)
	}

	if len(m.locks) >= m.capacity {
		return protocol.NewServerError("Lock table full")
	}

	m.locks[k] = SentenceLock{
		File:          file,
		Sentence:      sentence,
		HolderUser:    user,
		HolderSession: session,
		AcquiredAt:    time.Now(),
	}
	m.acquired++
	return nil
}

// Release removes the lock on (file, sentence) if it is held by exactly this
// user and session. It reports whether a lock was released; releasing a lock
// that is not held is not an error, because a commit may legitimately arrive
// after the holding session already died.
func (m *Manager) Release(file string, sentence int, user, session string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{file: file, sentence: sentence}
	existing, ok := m.locks[k]
	if !ok || existing.HolderUser != user || existing.HolderSession != session {
		return false
	}
	delete(m.locks, k)
	m.released++
	return true
}

// ReleaseSession removes every lock held by the session and returns how many
// were released. This is the only automatic release path; it runs when the
// session's connection closes for any reason.
func (m *Manager) ReleaseSession(session string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	released := 0
	for k, l := range m.locks {
		if l.HolderSession == session {
			delete(m.locks, k)
			released++
		}
	}
	m.released += uint64(released)
	return released
}

// ReleaseFile removes every lock on the file, regardless of holder. Called
// when the file is deleted so no lock outlives its file.
func (m *Manager) ReleaseFile(file string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	released := 0
	for k := range m.locks {
		if k.file == file {
			delete(m.locks, k)
			released++
		}
	}
	m.released += uint64(released)
	return released
}

// Get returns the lock on (file, sentence) if one exists.
func (m *Manager) Get(file string, sentence int) (SentenceLock, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.locks[key{file: file, sentence: sentence}]
	return l, ok
}

// Count returns the number of active locks.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.locks)
}

// List returns a copy of all active locks ordered by file then sentence.
func (m *Manager) List() []SentenceLock {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]SentenceLock, 0, len(m.locks))
	for _, l := range m.locks {
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b SentenceLock) int {
		if c := cmp.Compare(a.File, b.File); c != 0 {
			return c
		}
		return cmp.Compare(a.Sentence, b.Sentence)
	})
	return out
}

// Stats returns a snapshot of table occupancy and cumulative counters.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make(map[string]struct{}, len(m.locks))
	for k := range m.locks {
		files[k.file] = struct{}{}
	}
	return Stats{
		Active:      len(m.locks),
		Capacity:    m.capacity,
		FilesLocked: len(files),
		Acquired:    m.acquired,
		Released:    m.released,
		Conflicts:   m.conflicts,
	}
}
