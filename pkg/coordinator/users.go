package coordinator

import (
	"sort"
	"sync"

	"github.com/scribefs/scribe/internal/protocol"
)

// UserSet is the in-memory table of registered user names. Registration is
// a prerequisite for being the target of an access grant; the set is capped
// and, like the lock table, rebuilt from scratch after a restart.
type UserSet struct {
	mu       sync.RWMutex
	names    map[string]struct{}
	capacity int
}

// NewUserSet creates a user set bounded to capacity names. A non-positive
// capacity falls back to 100.
func NewUserSet(capacity int) *UserSet {
	if capacity <= 0 {
		capacity = 100
	}
	return &UserSet{
		names:    make(map[string]struct{}),
		capacity: capacity,
	}
}

// Add registers a user name. Re-registering is a no-op success, so a client
// reconnecting under the same name never fails its handshake.
func (u *UserSet) Add(name string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, ok := u.names[name]; ok {
		return nil
	}
	if len(u.names) >= u.capacity {
		return protocol.NewServerError("User limit reached")
	}
	u.names[name] = struct{}{}
	return nil
}

// Has reports whether the name is registered.
func (u *UserSet) Has(name string) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()

	_, ok := u.names[name]
	return ok
}

// Count returns the number of registered users.
func (u *UserSet) Count() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.names)
}

// List returns the registered names in sorted order.
func (u *UserSet) List() []string {
	u.mu.RLock()
	defer u.mu.RUnlock()

	out := make([]string, 0, len(u.names))
	for name := range u.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
