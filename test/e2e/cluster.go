//go:build e2e

package e2e

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scribefs/scribe/internal/bytesize"
	"github.com/scribefs/scribe/internal/protocol"
	"github.com/scribefs/scribe/pkg/client"
	"github.com/scribefs/scribe/pkg/config"
	"github.com/scribefs/scribe/pkg/coordinator"
	"github.com/scribefs/scribe/pkg/coordinator/catalog"
	"github.com/scribefs/scribe/pkg/coordinator/lock"
	"github.com/scribefs/scribe/pkg/coordinator/registry"
	"github.com/scribefs/scribe/pkg/storagenode"
)

// NodeHandle is one storage node in the test cluster.
type NodeHandle struct {
	ID     int
	Server *storagenode.Server
	done   chan error
}

// Cluster is a full in-process deployment: one coordinator and N storage
// nodes, all on loopback.
type Cluster struct {
	t         *testing.T
	CoordAddr string
	Service   *coordinator.Service
	Nodes     []*NodeHandle

	coord     *coordinator.Server
	coordDone chan error
}

// StartCluster brings up a coordinator and numNodes registered storage nodes.
// Everything is shut down via t.Cleanup.
func StartCluster(t *testing.T, numNodes int) *Cluster {
	t.Helper()

	store, err := catalog.New(&catalog.Config{
		Type:   catalog.DatabaseTypeSQLite,
		SQLite: catalog.SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, err, "catalog")
	t.Cleanup(func() { store.Close() })

	svc := coordinator.NewService(store,
		registry.New(16), lock.NewManager(256), coordinator.NewUserSet(64), nil)

	coord := coordinator.NewServer(config.CoordinatorConfig{
		Listen:          "127.0.0.1:0",
		MaxClients:      32,
		ShutdownTimeout: 2 * time.Second,
		MaxMessageSize:  bytesize.ByteSize(protocol.DefaultMaxPayloadSize),
	}, svc)
	require.NoError(t, coord.Listen(), "coordinator listen")

	c := &Cluster{
		t:         t,
		Service:   svc,
		coord:     coord,
		coordDone: make(chan error, 1),
	}
	go func() { c.coordDone <- coord.Serve(context.Background()) }()
	t.Cleanup(func() {
		coord.Shutdown()
		select {
		case <-c.coordDone:
		case <-time.After(5 * time.Second):
			t.Error("coordinator did not shut down")
		}
	})
	c.CoordAddr = coord.Addr().String()

	for i := 0; i < numNodes; i++ {
		c.Nodes = append(c.Nodes, c.startNode())
	}
	return c
}

func (c *Cluster) startNode() *NodeHandle {
	c.t.Helper()

	store, err := storagenode.Open(c.t.TempDir())
	require.NoError(c.t, err, "node store")
	c.t.Cleanup(func() { store.Close() })

	node := storagenode.NewServer(config.NodeConfig{
		Listen:          "127.0.0.1:0",
		Coordinator:     c.CoordAddr,
		StreamDelay:     time.Millisecond,
		ShutdownTimeout: 2 * time.Second,
		MaxMessageSize:  bytesize.ByteSize(protocol.DefaultMaxPayloadSize),
	}, store, nil)
	require.NoError(c.t, node.Listen(), "node listen")

	handle := &NodeHandle{Server: node, done: make(chan error, 1)}
	go func() { handle.done <- node.Serve(context.Background()) }()
	c.t.Cleanup(func() { c.stop(handle) })

	id, err := node.Register(context.Background())
	require.NoError(c.t, err, "node register")
	handle.ID = id
	return handle
}

// StopNode takes a node's TCP server down, as if the process died. The
// registry keeps whatever liveness state it had.
func (c *Cluster) StopNode(handle *NodeHandle) {
	c.t.Helper()
	c.stop(handle)
}

func (c *Cluster) stop(handle *NodeHandle) {
	handle.Server.Shutdown()
	select {
	case <-handle.done:
	case <-time.After(5 * time.Second):
		c.t.Error("node did not shut down")
	}
}

// Client opens a registered client session against the coordinator.
func (c *Cluster) Client(user string) *client.Client {
	c.t.Helper()
	cl, err := client.Dial(c.CoordAddr, user)
	require.NoError(c.t, err, "client dial")
	c.t.Cleanup(func() { cl.Close() })
	return cl
}

// rawSession is a bare protocol connection to the coordinator, for driving
// individual messages (e.g. holding a lock without committing).
type rawSession struct {
	t    *testing.T
	conn net.Conn
	user string
}

func (c *Cluster) rawClient(user string) *rawSession {
	c.t.Helper()
	conn, err := net.Dial("tcp", c.CoordAddr)
	require.NoError(c.t, err, "raw dial")
	c.t.Cleanup(func() { conn.Close() })

	s := &rawSession{t: c.t, conn: conn, user: user}
	resp := s.call(protocol.TagRegisterClient, "", "")
	require.EqualValues(c.t, protocol.CodeSuccess, resp.ErrorCode, "register: %s", resp.ErrorMsg)
	return s
}

func (s *rawSession) call(tag, file, payload string) *protocol.Message {
	s.t.Helper()
	err := protocol.WriteMessage(s.conn, &protocol.Message{
		Type:     tag,
		Username: s.user,
		Filename: file,
		Payload:  []byte(payload),
	}, 0)
	require.NoError(s.t, err, "write %s", tag)

	resp, err := protocol.ReadMessage(s.conn, 0)
	require.NoError(s.t, err, "read %s response", tag)
	return resp
}

func (s *rawSession) close() {
	_ = s.conn.Close()
}
