package storagenode

import (
	"context"
	"errors"
	"testing"

	"github.com/scribefs/scribe/internal/protocol"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func wantProtoCode(t *testing.T, err error, code protocol.Code) {
	t.Helper()
	if protocol.CodeOf(err) != code {
		t.Fatalf("error code = %v (%v), want %v", protocol.CodeOf(err), err, code)
	}
}

func TestWriteReadUndo(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, "doc.txt"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	t.Run("create is idempotent", func(t *testing.T) {
		if err := store.Create(ctx, "doc.txt"); err != nil {
			t.Fatalf("second Create: %v", err)
		}
		content, err := store.Read(ctx, "doc.txt")
		if err != nil || len(content) != 0 {
			t.Fatalf("Read = %q, %v, want empty", content, err)
		}
	})

	t.Run("write saves the undo snapshot", func(t *testing.T) {
		if err := store.Write(ctx, "doc.txt", []byte("First draft.")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := store.Write(ctx, "doc.txt", []byte("Second draft.")); err != nil {
			t.Fatalf("Write: %v", err)
		}

		if err := store.Undo(ctx, "doc.txt"); err != nil {
			t.Fatalf("Undo: %v", err)
		}
		content, _ := store.Read(ctx, "doc.txt")
		if string(content) != "First draft." {
			t.Errorf("content after undo = %q", content)
		}
	})

	t.Run("undo is a two-way toggle", func(t *testing.T) {
		if err := store.Undo(ctx, "doc.txt"); err != nil {
			t.Fatalf("second Undo: %v", err)
		}
		content, _ := store.Read(ctx, "doc.txt")
		if string(content) != "Second draft." {
			t.Errorf("content after double undo = %q", content)
		}
	})

	t.Run("meta tracks the last write", func(t *testing.T) {
		meta, err := store.Meta(ctx, "doc.txt")
		if err != nil {
			t.Fatalf("Meta: %v", err)
		}
		if meta.Words != 2 || meta.Sentences != 1 || meta.Chars != len("Second draft.") {
			t.Errorf("meta = %+v", meta)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := store.Read(ctx, "ghost.txt")
		wantProtoCode(t, err, protocol.CodeFileNotFound)

		err = store.Write(ctx, "ghost.txt", []byte("x"))
		wantProtoCode(t, err, protocol.CodeFileNotFound)

		err = store.Undo(ctx, "ghost.txt")
		wantProtoCode(t, err, protocol.CodeFileNotFound)
	})
}

func TestCheckpointLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Create(ctx, "doc.txt")
	store.Write(ctx, "doc.txt", []byte("Version one."))

	if err := store.Checkpoint(ctx, "doc.txt", "v1"); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}
	store.Write(ctx, "doc.txt", []byte("Version two, heavily edited."))
	if err := store.Checkpoint(ctx, "doc.txt", "v2"); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}

	t.Run("list is oldest first", func(t *testing.T) {
		checkpoints, err := store.Checkpoints(ctx, "doc.txt")
		if err != nil {
			t.Fatalf("Checkpoints: %v", err)
		}
		if len(checkpoints) != 2 || checkpoints[0].Tag != "v1" || checkpoints[1].Tag != "v2" {
			t.Errorf("checkpoints = %+v", checkpoints)
		}
	})

	t.Run("revert restores the blob and is undoable", func(t *testing.T) {
		if err := store.Revert(ctx, "doc.txt", "v1"); err != nil {
			t.Fatalf("Revert: %v", err)
		}
		content, _ := store.Read(ctx, "doc.txt")
		if string(content) != "Version one." {
			t.Errorf("content after revert = %q", content)
		}

		if err := store.Undo(ctx, "doc.txt"); err != nil {
			t.Fatalf("Undo after revert: %v", err)
		}
		content, _ = store.Read(ctx, "doc.txt")
		if string(content) != "Version two, heavily edited." {
			t.Errorf("content after undoing revert = %q", content)
		}
	})

	t.Run("unknown tag", func(t *testing.T) {
		err := store.Revert(ctx, "doc.txt", "v9")
		wantProtoCode(t, err, protocol.CodeCheckpointNotFound)
	})

	t.Run("delete removes checkpoints too", func(t *testing.T) {
		if err := store.Delete(ctx, "doc.txt"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		checkpoints, err := store.Checkpoints(ctx, "doc.txt")
		if err != nil || len(checkpoints) != 0 {
			t.Errorf("checkpoints after delete = %+v, %v", checkpoints, err)
		}
		_, err = store.Read(ctx, "doc.txt")
		wantProtoCode(t, err, protocol.CodeFileNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		if err := store.Delete(ctx, "doc.txt"); err != nil {
			t.Errorf("re-delete: %v", err)
		}
	})
}

func TestReplicateSkipsUndo(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Replicate(ctx, "doc.txt", []byte("Replica copy.")); err != nil {
		t.Fatalf("Replicate: %v", err)
	}

	content, err := store.Read(ctx, "doc.txt")
	if err != nil || string(content) != "Replica copy." {
		t.Fatalf("Read = %q, %v", content, err)
	}

	// Replication writes no snapshot, so there is nothing to undo.
	err = store.Undo(ctx, "doc.txt")
	wantProtoCode(t, err, protocol.CodeFileNotFound)

	count, err := store.FileCount(ctx)
	if err != nil || count != 1 {
		t.Errorf("FileCount = %d, %v", count, err)
	}
}

func TestContextCancellation(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Create(ctx, "doc.txt"); !errors.Is(err, context.Canceled) {
		t.Errorf("Create with cancelled ctx = %v", err)
	}
	if _, err := store.Read(ctx, "doc.txt"); !errors.Is(err, context.Canceled) {
		t.Errorf("Read with cancelled ctx = %v", err)
	}
}
