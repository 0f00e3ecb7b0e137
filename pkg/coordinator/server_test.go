package coordinator

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/scribefs/scribe/internal/bytesize"
	"github.com/scribefs/scribe/internal/protocol"
	"github.com/scribefs/scribe/pkg/config"
)

func startTestServer(t *testing.T, svc *Service) *Server {
	t.Helper()
	srv := NewServer(config.CoordinatorConfig{
		Listen:          "127.0.0.1:0",
		MaxClients:      8,
		ShutdownTimeout: 2 * time.Second,
		MaxMessageSize:  bytesize.ByteSize(protocol.DefaultMaxPayloadSize),
	}, svc)
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background()) }()
	t.Cleanup(func() {
		srv.Shutdown()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return srv
}

func dialServer(t *testing.T, srv *Server) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func roundTrip(t *testing.T, conn net.Conn, typ, user, file, payload string) *protocol.Message {
	t.Helper()
	req := &protocol.Message{Type: typ, Username: user, Filename: file, Payload: []byte(payload)}
	if err := protocol.WriteMessage(conn, req, 0); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
	resp, err := protocol.ReadMessage(conn, 0)
	if err != nil {
		t.Fatalf("read %s response: %v", typ, err)
	}
	return resp
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestServerSessionLifecycle(t *testing.T) {
	svc := newTestService(t)
	srv := startTestServer(t, svc)

	// A storage node registers over the wire, then a client creates and
	// locks a file.
	nodeConn := dialServer(t, srv)
	defer nodeConn.Close()
	if resp := roundTrip(t, nodeConn, protocol.TagRegisterNode, "", "", "127.0.0.1:9001"); string(resp.Payload) != "SS_ID:1" {
		t.Fatalf("node registration payload = %q (code %d)", resp.Payload, resp.ErrorCode)
	}

	clientA := dialServer(t, srv)
	mustSucceed(t, roundTrip(t, clientA, protocol.TagRegisterClient, "alice", "", ""))
	mustSucceed(t, roundTrip(t, clientA, protocol.TagCreate, "alice", "doc.txt", ""))
	mustSucceed(t, roundTrip(t, clientA, protocol.TagWriteLock, "alice", "doc.txt", "0"))

	clientB := dialServer(t, srv)
	defer clientB.Close()
	mustSucceed(t, roundTrip(t, clientB, protocol.TagRegisterClient, "alice", "", ""))
	wantCode(t, roundTrip(t, clientB, protocol.TagWriteLock, "alice", "doc.txt", "0"),
		protocol.CodeLocked)

	// Killing the holder's connection without a commit releases its locks
	// and unblocks the second session.
	clientA.Close()
	waitFor(t, "lock release on disconnect", func() bool {
		return svc.Locks().Count() == 0
	})
	mustSucceed(t, roundTrip(t, clientB, protocol.TagWriteLock, "alice", "doc.txt", "0"))

	// Requests on one connection stay serialized: a second request on the
	// same session observes the first one's effect.
	mustSucceed(t, roundTrip(t, clientB, protocol.TagWriteCommit, "alice", "doc.txt", "0"))
	if n := svc.Locks().Count(); n != 0 {
		t.Errorf("lock count after commit = %d, want 0", n)
	}
}

func TestServerSessionTracking(t *testing.T) {
	svc := newTestService(t)
	srv := startTestServer(t, svc)

	conn := dialServer(t, srv)
	mustSucceed(t, roundTrip(t, conn, protocol.TagRegisterClient, "alice", "", ""))

	waitFor(t, "session registration", func() bool {
		sessions := svc.Sessions()
		return len(sessions) == 1 && sessions[0].User == "alice"
	})

	conn.Close()
	waitFor(t, "session removal", func() bool {
		return len(svc.Sessions()) == 0
	})
}
