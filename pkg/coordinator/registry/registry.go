// Package registry tracks storage nodes: registration, liveness, and the
// per-node file counts that drive placement. The registry is in-memory and
// rebuilt by node re-registration after a coordinator restart; node ids are
// monotonic for the life of the process and never reused.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/scribefs/scribe/internal/logger"
	"github.com/scribefs/scribe/internal/protocol"
)

// Node is a registry record. Copies of it are handed out in snapshots; the
// registry's internal state is never exposed.
type Node struct {
	// ID is assigned at registration, starting at 1.
	ID int `json:"id"`

	// Address is the host:port the node serves clients on.
	Address string `json:"address"`

	// Alive is authoritative for placement and lookup.
	Alive bool `json:"alive"`

	// FileCount counts files whose primary is this node. Placement only;
	// it may drift from the node's own view.
	FileCount int `json:"file_count"`

	RegisteredAt  time.Time `json:"registered_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// Stats is a point-in-time registry summary for the admin API and metrics.
type Stats struct {
	Total    int `json:"total"`
	Alive    int `json:"alive"`
	Capacity int `json:"capacity"`
}

// Registry owns the storage node table. All methods are safe for concurrent
// use.
type Registry struct {
	mu       sync.RWMutex
	nodes    map[int]*Node
	nextID   int
	capacity int
}

// New creates a registry bounded to capacity nodes. A non-positive capacity
// falls back to 10.
func New(capacity int) *Registry {
	if capacity <= 0 {
		capacity = 10
	}
	return &Registry{
		nodes:    make(map[int]*Node),
		nextID:   1,
		capacity: capacity,
	}
}

// Register adds a node and returns its fresh id. A node reconnecting after a
// restart registers again and receives a new id; the old record stays dead.
func (r *Registry) Register(address string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.nodes) >= r.capacity {
		return 0, protocol.NewServerError("Max storage servers reached")
	}

	id := r.nextID
	r.nextID++
	now := time.Now()
	r.nodes[id] = &Node{
		ID:            id,
		Address:       address,
		Alive:         true,
		RegisteredAt:  now,
		LastHeartbeat: now,
	}
	return id, nil
}

// Heartbeat refreshes the node's liveness, reviving it if the sweep had
// marked it dead.
func (r *Registry) Heartbeat(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[id]
	if !ok {
		return fmt.Errorf("registry: unknown node id %d", id)
	}
	n.LastHeartbeat = time.Now()
	n.Alive = true
	return nil
}

// SetAlive flips the liveness bit directly. This is the admin override path;
// heartbeats from the node will revive it again.
func (r *Registry) SetAlive(id int, alive bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[id]
	if !ok {
		return fmt.Errorf("registry: unknown node id %d", id)
	}
	n.Alive = alive
	if alive {
		n.LastHeartbeat = time.Now()
	}
	return nil
}

// Get returns a copy of the node record.
func (r *Registry) Get(id int) (Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// List returns copies of all records ordered by id.
func (r *Registry) List() []Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Node, 0, len(r.nodes))
	for id := 1; id < r.nextID; id++ {
		if n, ok := r.nodes[id]; ok {
			out = append(out, *n)
		}
	}
	return out
}

// Stats returns the registry summary.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alive := 0
	for _, n := range r.nodes {
		if n.Alive {
			alive++
		}
	}
	return Stats{Total: len(r.nodes), Alive: alive, Capacity: r.capacity}
}

// Place picks a primary and, when a second alive node exists, a replica for
// a new file. The primary is the alive node with the smallest file count,
// ties broken by smallest id; the replica is the first alive node other than
// the primary in id order. withReplica is false for folders.
//
// The file count is incremented on the primary here, so a successful Place
// must be followed by either a catalog insert or ReleasePlacement.
func (r *Registry) Place(withReplica bool) (primary Node, replica *Node, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *Node
	for id := 1; id < r.nextID; id++ {
		n, ok := r.nodes[id]
		if !ok || !n.Alive {
			continue
		}
		if best == nil || n.FileCount < best.FileCount {
			best = n
		}
	}
	if best == nil {
		return Node{}, nil, protocol.NewStorageUnavailable("No storage servers available")
	}

	best.FileCount++
	primary = *best

	if withReplica {
		for id := 1; id < r.nextID; id++ {
			n, ok := r.nodes[id]
			if !ok || !n.Alive || n.ID == best.ID {
				continue
			}
			cp := *n
			replica = &cp
			break
		}
	}
	return primary, replica, nil
}

// ReleasePlacement undoes the file count increment of a Place whose catalog
// insert failed.
func (r *Registry) ReleasePlacement(primaryID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n, ok := r.nodes[primaryID]; ok && n.FileCount > 0 {
		n.FileCount--
	}
}

// DecrementFiles reduces the primary's file count after a delete.
func (r *Registry) DecrementFiles(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n, ok := r.nodes[id]; ok && n.FileCount > 0 {
		n.FileCount--
	}
}

// Lookup resolves the serving endpoint for a file placed on (primaryID,
// replicaID). The replica id may be 0 for none. A dead primary falls back to
// an alive replica; when both are dead the file is unreachable until a
// heartbeat revives one of them.
//
// The returned redirect has the alive endpoint as Primary. The replica
// endpoint rides along as a failover hint only when its node is alive.
func (r *Registry) Lookup(primaryID, replicaID int) (protocol.Redirect, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	redirect := protocol.Redirect{Sentence: -1}

	primary, replica := r.nodes[primaryID], r.nodes[replicaID]
	switch {
	case primary != nil && primary.Alive:
		redirect.Primary = primary.Address
		if replica != nil && replica.Alive {
			redirect.Replica = replica.Address
		}
	case replica != nil && replica.Alive:
		redirect.Primary = replica.Address
	default:
		return redirect, protocol.NewStorageUnavailable("Storage server not found")
	}
	return redirect, nil
}

// Monitor sweeps the registry every interval and marks nodes dead when their
// last heartbeat is older than timeout. It blocks until ctx is cancelled.
func (r *Registry) Monitor(ctx context.Context, timeout, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range r.sweep(timeout) {
				logger.Warn("Storage node missed heartbeats, marking dead",
					logger.NodeID(id))
			}
		}
	}
}

// sweep flips the alive bit on expired nodes and returns their ids.
func (r *Registry) sweep(timeout time.Duration) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	deadline := time.Now().Add(-timeout)
	var expired []int
	for _, n := range r.nodes {
		if n.Alive && n.LastHeartbeat.Before(deadline) {
			n.Alive = false
			expired = append(expired, n.ID)
		}
	}
	return expired
}
