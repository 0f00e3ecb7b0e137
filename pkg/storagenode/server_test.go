package storagenode

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/scribefs/scribe/internal/bytesize"
	"github.com/scribefs/scribe/internal/protocol"
	"github.com/scribefs/scribe/pkg/config"
)

func startTestNode(t *testing.T) *Server {
	t.Helper()
	store := newTestStore(t)

	srv := NewServer(config.NodeConfig{
		Listen:          "127.0.0.1:0",
		StreamDelay:     time.Millisecond,
		ShutdownTimeout: 2 * time.Second,
		MaxMessageSize:  bytesize.ByteSize(protocol.DefaultMaxPayloadSize),
	}, store, nil)

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
			t.Error("Serve did not return after Shutdown")
		}
	})
	return srv
}

func dialNode(t *testing.T, srv *Server) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial node: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func nodeCall(t *testing.T, conn net.Conn, tag, file, payload string) *protocol.Message {
	t.Helper()
	req := &protocol.Message{Type: tag, Username: "alice", Filename: file, Payload: []byte(payload)}
	if err := protocol.WriteMessage(conn, req, 0); err != nil {
		t.Fatalf("write %s: %v", tag, err)
	}
	resp, err := protocol.ReadMessage(conn, 0)
	if err != nil {
		t.Fatalf("read %s response: %v", tag, err)
	}
	return resp
}

func nodeOK(t *testing.T, conn net.Conn, tag, file, payload string) string {
	t.Helper()
	resp := nodeCall(t, conn, tag, file, payload)
	if resp.ErrorCode != uint32(protocol.CodeSuccess) {
		t.Fatalf("%s failed: code=%d msg=%q", tag, resp.ErrorCode, resp.ErrorMsg)
	}
	return string(resp.Payload)
}

func TestNodeContentOperations(t *testing.T) {
	srv := startTestNode(t)
	conn := dialNode(t, srv)

	if got := nodeOK(t, conn, protocol.TagCreate, "doc.txt", ""); got != "File created" {
		t.Errorf("CREATE ack = %q", got)
	}
	if got := nodeOK(t, conn, protocol.TagWrite, "doc.txt", "The cat sat. The dog ran!"); got != "Write successful" {
		t.Errorf("WRITE ack = %q", got)
	}

	t.Run("read back", func(t *testing.T) {
		if got := nodeOK(t, conn, protocol.TagRead, "doc.txt", ""); got != "The cat sat. The dog ran!" {
			t.Errorf("READ = %q", got)
		}
	})

	t.Run("word edit", func(t *testing.T) {
		nodeOK(t, conn, protocol.TagWrite, "doc.txt", "0|1|fox")
		if got := nodeOK(t, conn, protocol.TagRead, "doc.txt", ""); got != "The fox sat. The dog ran!" {
			t.Errorf("READ after edit = %q", got)
		}
	})

	t.Run("info", func(t *testing.T) {
		got := nodeOK(t, conn, protocol.TagInfo, "doc.txt", "")
		if !strings.HasPrefix(got, "Words: 6 | Characters: 25 | Sentences: 2 | Modified: ") {
			t.Errorf("INFO = %q", got)
		}
	})

	t.Run("undo reverses the edit", func(t *testing.T) {
		if got := nodeOK(t, conn, protocol.TagUndo, "doc.txt", ""); got != "Undo successful" {
			t.Errorf("UNDO ack = %q", got)
		}
		if got := nodeOK(t, conn, protocol.TagRead, "doc.txt", ""); got != "The cat sat. The dog ran!" {
			t.Errorf("READ after undo = %q", got)
		}
	})

	t.Run("validation", func(t *testing.T) {
		resp := nodeCall(t, conn, protocol.TagRead, "../etc/passwd", "")
		if resp.ErrorCode != uint32(protocol.CodeInvalidParam) {
			t.Errorf("traversal name: code=%d msg=%q", resp.ErrorCode, resp.ErrorMsg)
		}
		resp = nodeCall(t, conn, protocol.TagRead, "ghost.txt", "")
		if resp.ErrorCode != uint32(protocol.CodeFileNotFound) {
			t.Errorf("missing file: code=%d", resp.ErrorCode)
		}
		resp = nodeCall(t, conn, "EXEC", "doc.txt", "")
		if resp.ErrorCode != uint32(protocol.CodeInvalidParam) {
			t.Errorf("unknown tag: code=%d", resp.ErrorCode)
		}
	})
}

func TestNodeCheckpointCommands(t *testing.T) {
	srv := startTestNode(t)
	conn := dialNode(t, srv)

	nodeOK(t, conn, protocol.TagCreate, "doc.txt", "")
	nodeOK(t, conn, protocol.TagWrite, "doc.txt", "Version one.")

	if got := nodeOK(t, conn, protocol.TagCheckpoint, "doc.txt", "CREATE|v1"); got != "Checkpoint 'v1' created" {
		t.Errorf("CHECKPOINT ack = %q", got)
	}
	nodeOK(t, conn, protocol.TagWrite, "doc.txt", "Version two.")

	t.Run("list", func(t *testing.T) {
		got := nodeOK(t, conn, protocol.TagListCheckpts, "doc.txt", "LIST")
		if !strings.HasPrefix(got, "Checkpoints:") || !strings.Contains(got, "v1") {
			t.Errorf("LIST = %q", got)
		}
	})

	t.Run("revert", func(t *testing.T) {
		if got := nodeOK(t, conn, protocol.TagRevert, "doc.txt", "REVERT|v1"); got != "Reverted to checkpoint 'v1'" {
			t.Errorf("REVERT ack = %q", got)
		}
		if got := nodeOK(t, conn, protocol.TagRead, "doc.txt", ""); got != "Version one." {
			t.Errorf("READ after revert = %q", got)
		}
	})

	t.Run("unknown tag", func(t *testing.T) {
		resp := nodeCall(t, conn, protocol.TagRevert, "doc.txt", "REVERT|v9")
		if resp.ErrorCode != uint32(protocol.CodeCheckpointNotFound) {
			t.Errorf("code=%d msg=%q", resp.ErrorCode, resp.ErrorMsg)
		}
		if resp.ErrorMsg != "Checkpoint 'v9' not found" {
			t.Errorf("msg = %q", resp.ErrorMsg)
		}
	})

	t.Run("replicate", func(t *testing.T) {
		if got := nodeOK(t, conn, protocol.TagReplicate, "copy.txt", "Replica content."); got != "Replicated successfully" {
			t.Errorf("REPLICATE ack = %q", got)
		}
		if got := nodeOK(t, conn, protocol.TagRead, "copy.txt", ""); got != "Replica content." {
			t.Errorf("READ replica = %q", got)
		}
	})
}

func TestNodeStreaming(t *testing.T) {
	srv := startTestNode(t)
	conn := dialNode(t, srv)

	nodeOK(t, conn, protocol.TagCreate, "doc.txt", "")
	nodeOK(t, conn, protocol.TagWrite, "doc.txt", "Words arrive one by one.")

	req := &protocol.Message{Type: protocol.TagStream, Username: "alice", Filename: "doc.txt"}
	if err := protocol.WriteMessage(conn, req, 0); err != nil {
		t.Fatalf("write STREAM: %v", err)
	}

	var words []string
	started, ended := false, false
	for !ended {
		frame, err := protocol.ReadMessage(conn, 0)
		if err != nil {
			t.Fatalf("read stream frame: %v", err)
		}
		switch frame.Type {
		case protocol.TagStreamStart:
			started = true
		case protocol.TagStreamWord:
			words = append(words, string(frame.Payload))
		case protocol.TagStreamEnd:
			ended = true
		default:
			t.Fatalf("unexpected frame type %q", frame.Type)
		}
	}

	if !started {
		t.Error("no STREAM_START frame")
	}
	if got := strings.Join(words, " "); got != "Words arrive one by one." {
		t.Errorf("streamed words = %q", got)
	}

	// The connection is still usable for regular requests afterwards.
	if got := nodeOK(t, conn, protocol.TagInfo, "doc.txt", ""); !strings.HasPrefix(got, "Words: 5") {
		t.Errorf("INFO after stream = %q", got)
	}
}
