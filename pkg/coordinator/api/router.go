package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/scribefs/scribe/internal/logger"
	"github.com/scribefs/scribe/pkg/coordinator"
	"github.com/scribefs/scribe/pkg/coordinator/catalog"
)

// NewRouter builds the admin router over the coordinator service.
//
// Routes:
//   - GET /healthz                       liveness + component summary
//   - GET /api/v1/nodes                  registry snapshot
//   - PUT /api/v1/nodes/{id}/alive       flip the alive bit
//   - GET /api/v1/locks                  lock table snapshot + stats
//   - GET /api/v1/sessions               active sessions
//   - GET /api/v1/users                  registered users
//   - GET /api/v1/requests               access requests (all states)
//   - PUT /api/v1/requests/{id}/status   resolve a pending request
func NewRouter(svc *coordinator.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	h := &handler{svc: svc}

	r.Get("/healthz", h.health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/nodes", h.listNodes)
		r.Put("/nodes/{id}/alive", h.setNodeAlive)
		r.Get("/locks", h.listLocks)
		r.Get("/sessions", h.listSessions)
		r.Get("/users", h.listUsers)
		r.Get("/requests", h.listRequests)
		r.Put("/requests/{id}/status", h.resolveRequest)
	})

	return r
}

type handler struct {
	svc *coordinator.Service
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	nodes := h.svc.Registry().Stats()
	locks := h.svc.Locks().Stats()

	JSON(w, http.StatusOK, OKResponse(map[string]any{
		"nodes":    nodes,
		"locks":    locks,
		"sessions": len(h.svc.Sessions()),
		"users":    h.svc.Users().Count(),
	}))
}

func (h *handler) listNodes(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, OKResponse(h.svc.Registry().List()))
}

func (h *handler) setNodeAlive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		JSON(w, http.StatusBadRequest, ErrorResponse("invalid node id"))
		return
	}

	var body struct {
		Alive bool `json:"alive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		JSON(w, http.StatusBadRequest, ErrorResponse("invalid request body"))
		return
	}

	if err := h.svc.Registry().SetAlive(id, body.Alive); err != nil {
		JSON(w, http.StatusNotFound, ErrorResponse(err.Error()))
		return
	}

	logger.Info("Node liveness overridden",
		logger.NodeID(id), "alive", body.Alive)
	node, _ := h.svc.Registry().Get(id)
	JSON(w, http.StatusOK, OKResponse(node))
}

func (h *handler) listLocks(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, OKResponse(map[string]any{
		"locks": h.svc.Locks().List(),
		"stats": h.svc.Locks().Stats(),
	}))
}

func (h *handler) listSessions(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, OKResponse(h.svc.Sessions()))
}

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, OKResponse(h.svc.Users().List()))
}

func (h *handler) listRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.svc.Catalog().ListRequests(r.Context())
	if err != nil {
		JSON(w, http.StatusInternalServerError, ErrorResponse("failed to list requests"))
		return
	}
	JSON(w, http.StatusOK, OKResponse(requests))
}

// resolveRequest flips a pending access request to approved or denied.
// Record-keeping only: no grant is written, the owner issues ADDACCESS
// separately.
func (h *handler) resolveRequest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		JSON(w, http.StatusBadRequest, ErrorResponse("invalid request id"))
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		JSON(w, http.StatusBadRequest, ErrorResponse("invalid request body"))
		return
	}
	if body.Status != catalog.RequestApproved && body.Status != catalog.RequestDenied {
		JSON(w, http.StatusBadRequest, ErrorResponse("status must be approved or denied"))
		return
	}

	if err := h.svc.Catalog().ResolveRequest(r.Context(), uint(id), body.Status); err != nil {
		if errors.Is(err, catalog.ErrRequestNotFound) {
			JSON(w, http.StatusNotFound, ErrorResponse("no pending request with that id"))
			return
		}
		JSON(w, http.StatusInternalServerError, ErrorResponse("failed to resolve request"))
		return
	}

	logger.Info("Access request resolved", logger.Count(id), "status", body.Status)
	JSON(w, http.StatusOK, OKResponse(map[string]any{"id": id, "status": body.Status}))
}

// requestLogger logs admin requests through the internal logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Debug("Admin request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			logger.ClientIP(r.RemoteAddr),
			logger.DurationMs(logger.Duration(start)))
	})
}
