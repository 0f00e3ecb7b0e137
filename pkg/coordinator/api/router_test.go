package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/scribefs/scribe/pkg/coordinator"
	"github.com/scribefs/scribe/pkg/coordinator/catalog"
	"github.com/scribefs/scribe/pkg/coordinator/lock"
	"github.com/scribefs/scribe/pkg/coordinator/registry"
)

func newTestRouter(t *testing.T) (http.Handler, *coordinator.Service) {
	t.Helper()
	store, err := catalog.New(&catalog.Config{
		Type:   catalog.DatabaseTypeSQLite,
		SQLite: catalog.SQLiteConfig{Path: ":memory:"},
	})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	svc := coordinator.NewService(store,
		registry.New(10), lock.NewManager(100), coordinator.NewUserSet(100), nil)
	return NewRouter(svc), svc
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode %s %s response: %v", method, path, err)
	}
	return rec, resp
}

func TestHealthAndSnapshots(t *testing.T) {
	router, svc := newTestRouter(t)
	svc.Registry().Register("127.0.0.1:9001")
	svc.Users().Add("alice")
	svc.Locks().Acquire("doc.txt", 0, "alice", "session-1")

	t.Run("healthz", func(t *testing.T) {
		rec, resp := doRequest(t, router, http.MethodGet, "/healthz", "")
		if rec.Code != http.StatusOK || resp.Status != "ok" {
			t.Errorf("healthz: code=%d status=%q", rec.Code, resp.Status)
		}
	})

	t.Run("nodes", func(t *testing.T) {
		rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/nodes", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d", rec.Code)
		}
		nodes, ok := resp.Data.([]any)
		if !ok || len(nodes) != 1 {
			t.Errorf("nodes data = %#v", resp.Data)
		}
	})

	t.Run("locks", func(t *testing.T) {
		_, resp := doRequest(t, router, http.MethodGet, "/api/v1/locks", "")
		data, ok := resp.Data.(map[string]any)
		if !ok {
			t.Fatalf("locks data = %#v", resp.Data)
		}
		if locks, ok := data["locks"].([]any); !ok || len(locks) != 1 {
			t.Errorf("locks = %#v", data["locks"])
		}
	})

	t.Run("users", func(t *testing.T) {
		_, resp := doRequest(t, router, http.MethodGet, "/api/v1/users", "")
		users, ok := resp.Data.([]any)
		if !ok || len(users) != 1 || users[0] != "alice" {
			t.Errorf("users data = %#v", resp.Data)
		}
	})
}

func TestNodeAliveOverride(t *testing.T) {
	router, svc := newTestRouter(t)
	id, _ := svc.Registry().Register("127.0.0.1:9001")

	t.Run("flip dead", func(t *testing.T) {
		rec, _ := doRequest(t, router, http.MethodPut, "/api/v1/nodes/1/alive", `{"alive": false}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d", rec.Code)
		}
		if n, _ := svc.Registry().Get(id); n.Alive {
			t.Error("node still alive after override")
		}
	})

	t.Run("unknown node", func(t *testing.T) {
		rec, _ := doRequest(t, router, http.MethodPut, "/api/v1/nodes/42/alive", `{"alive": true}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %d, want 404", rec.Code)
		}
	})

	t.Run("bad body", func(t *testing.T) {
		rec, _ := doRequest(t, router, http.MethodPut, "/api/v1/nodes/1/alive", `nonsense`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %d, want 400", rec.Code)
		}
	})
}

func TestRequestResolution(t *testing.T) {
	router, svc := newTestRouter(t)
	ctx := context.Background()

	entry := &catalog.FileEntry{Name: "doc.txt", Owner: "alice", PrimaryNodeID: 1}
	if err := svc.Catalog().CreateFile(ctx, entry); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if err := svc.Catalog().CreateRequest(ctx, entry.ID, "bob", 1); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	t.Run("list shows the request", func(t *testing.T) {
		_, resp := doRequest(t, router, http.MethodGet, "/api/v1/requests", "")
		requests, ok := resp.Data.([]any)
		if !ok || len(requests) != 1 {
			t.Fatalf("requests data = %#v", resp.Data)
		}
	})

	t.Run("approve", func(t *testing.T) {
		rec, _ := doRequest(t, router, http.MethodPut, "/api/v1/requests/1/status", `{"status": "approved"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d", rec.Code)
		}

		// Record-keeping only: approval writes no grant.
		got, err := svc.Catalog().GetFile(ctx, "doc.txt")
		if err != nil {
			t.Fatalf("GetFile: %v", err)
		}
		if len(got.Grants) != 0 {
			t.Errorf("approval created a grant: %+v", got.Grants)
		}
	})

	t.Run("resolve twice", func(t *testing.T) {
		rec, _ := doRequest(t, router, http.MethodPut, "/api/v1/requests/1/status", `{"status": "denied"}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %d, want 404", rec.Code)
		}
	})

	t.Run("invalid status", func(t *testing.T) {
		rec, _ := doRequest(t, router, http.MethodPut, "/api/v1/requests/1/status", `{"status": "maybe"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %d, want 400", rec.Code)
		}
	})
}
