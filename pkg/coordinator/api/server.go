package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/scribefs/scribe/internal/logger"
	"github.com/scribefs/scribe/pkg/config"
	"github.com/scribefs/scribe/pkg/coordinator"
)

// Server is the admin HTTP server. It is created stopped; Start blocks until
// the context is cancelled and then shuts down gracefully.
type Server struct {
	server       *http.Server
	cfg          config.AdminConfig
	shutdownOnce sync.Once
}

// NewServer creates the admin server over the coordinator service.
func NewServer(cfg config.AdminConfig, svc *coordinator.Service) *Server {
	return &Server{
		cfg: cfg,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      NewRouter(svc),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("Admin API listening", logger.Address(s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("admin API failed: %w", err)
	}
}

// Stop shuts the server down gracefully. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("admin API shutdown: %w", err)
		} else {
			logger.Info("Admin API stopped")
		}
	})
	return shutdownErr
}
