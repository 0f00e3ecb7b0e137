//go:build integration

package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// createPostgresStore starts a throwaway PostgreSQL container and opens the
// catalog against it. Requires Docker; run with -tags integration.
func createPostgresStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("scribe_test"),
		postgres.WithUsername("scribe_test"),
		postgres.WithPassword("scribe_test"),
		testcontainers.WithWaitStrategyAndDeadline(5*time.Minute,
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	store, err := New(&Config{
		Type: DatabaseTypePostgres,
		Postgres: PostgresConfig{
			Host:     host,
			Port:     port.Int(),
			Database: "scribe_test",
			User:     "scribe_test",
			Password: "scribe_test",
			SSLMode:  "disable",
		},
	})
	if err != nil {
		t.Fatalf("failed to open postgres store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestPostgresBackend runs the cross-backend behaviors that depend on SQL
// dialect differences: unique constraint detection and ON CONFLICT upserts.
func TestPostgresBackend(t *testing.T) {
	ctx := context.Background()
	store := createPostgresStore(t)

	f := &FileEntry{Name: "doc.txt", Owner: "alice", PrimaryNodeID: 1}
	if err := store.CreateFile(ctx, f); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	t.Run("duplicate create maps to ErrFileExists", func(t *testing.T) {
		err := store.CreateFile(ctx, &FileEntry{Name: "doc.txt", Owner: "bob", PrimaryNodeID: 2})
		if !errors.Is(err, ErrFileExists) {
			t.Errorf("expected ErrFileExists, got %v", err)
		}
	})

	t.Run("grant upsert replaces", func(t *testing.T) {
		if err := store.UpsertGrant(ctx, f.ID, "bob", 1); err != nil {
			t.Fatalf("UpsertGrant: %v", err)
		}
		if err := store.UpsertGrant(ctx, f.ID, "bob", 3); err != nil {
			t.Fatalf("UpsertGrant: %v", err)
		}
		got, err := store.GetFile(ctx, "doc.txt")
		if err != nil {
			t.Fatalf("GetFile: %v", err)
		}
		if len(got.Grants) != 1 || got.Grants[0].Permissions != 3 {
			t.Errorf("unexpected grants: %+v", got.Grants)
		}
	})

	t.Run("checkpoint upsert replaces", func(t *testing.T) {
		if err := store.UpsertCheckpoint(ctx, f.ID, "v1", "checkpoint/doc.txt/v1", "alice"); err != nil {
			t.Fatalf("UpsertCheckpoint: %v", err)
		}
		if err := store.UpsertCheckpoint(ctx, f.ID, "v1", "checkpoint/doc.txt/v1", "bob"); err != nil {
			t.Fatalf("UpsertCheckpoint replace: %v", err)
		}
		list, err := store.ListCheckpoints(ctx, f.ID)
		if err != nil {
			t.Fatalf("ListCheckpoints: %v", err)
		}
		if len(list) != 1 || list[0].CreatedBy != "bob" {
			t.Errorf("unexpected checkpoints: %+v", list)
		}
	})

	t.Run("delete cascade", func(t *testing.T) {
		if _, err := store.DeleteFile(ctx, "doc.txt"); err != nil {
			t.Fatalf("DeleteFile: %v", err)
		}
		var n int64
		if err := store.DB().Model(&AccessGrant{}).Where("file_id = ?", f.ID).Count(&n).Error; err != nil {
			t.Fatalf("count grants: %v", err)
		}
		if n != 0 {
			t.Errorf("%d grants survived delete", n)
		}
	})
}
