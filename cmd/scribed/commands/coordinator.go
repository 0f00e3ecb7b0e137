package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scribefs/scribe/internal/logger"
	"github.com/scribefs/scribe/pkg/config"
	"github.com/scribefs/scribe/pkg/coordinator"
	"github.com/scribefs/scribe/pkg/coordinator/api"
	"github.com/scribefs/scribe/pkg/coordinator/catalog"
	"github.com/scribefs/scribe/pkg/coordinator/lock"
	"github.com/scribefs/scribe/pkg/coordinator/registry"
	"github.com/scribefs/scribe/pkg/metrics"
	promMetrics "github.com/scribefs/scribe/pkg/metrics/prometheus"
)

var coordinatorCmd = &cobra.Command{
	Use:   "coordinator",
	Short: "Run the Scribe coordinator",
	Long: `Run the Scribe coordinator: the session listener that brokers the
file catalog, node placement, access control and sentence locks, plus the
admin HTTP API.

Examples:
  # Run with the default config location
  scribed coordinator

  # Run with a custom config file
  scribed coordinator --config /etc/scribe/config.yaml

  # Override settings through the environment
  SCRIBE_LOGGING_LEVEL=DEBUG scribed coordinator`,
	RunE: runCoordinator,
}

func runCoordinator(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := initTelemetry(ctx, cfg, "scribe-coordinator")
	if err != nil {
		return err
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("Telemetry shutdown error", logger.Err(err))
		}
	}()

	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))

	metricsServer := startMetricsServer(cfg)
	if metricsServer != nil {
		defer metricsServer.Shutdown(context.Background())
	}
	var coordMetrics metrics.CoordinatorMetrics
	if cfg.Metrics.Enabled {
		coordMetrics = promMetrics.NewCoordinatorMetrics()
	}

	store, err := catalog.New(&cfg.Coordinator.Database)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Catalog close error", logger.Err(err))
		}
	}()

	svc := coordinator.NewService(store,
		registry.New(cfg.Coordinator.MaxNodes),
		lock.NewManager(cfg.Coordinator.MaxLocks),
		coordinator.NewUserSet(cfg.Coordinator.MaxUsers),
		coordMetrics)

	go svc.Registry().Monitor(ctx,
		cfg.Coordinator.HeartbeatTimeout,
		cfg.Coordinator.HeartbeatSweepInterval)

	if cfg.Coordinator.Admin.Enabled {
		adminServer := api.NewServer(cfg.Coordinator.Admin, svc)
		go func() {
			if err := adminServer.Start(ctx); err != nil {
				logger.Error("Admin API error", logger.Err(err))
			}
		}()
	}

	server := coordinator.NewServer(cfg.Coordinator, svc)
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Coordinator is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()
		if err := <-serverDone; err != nil {
			logger.Error("Coordinator shutdown error", logger.Err(err))
			return err
		}
		logger.Info("Coordinator stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Coordinator error", logger.Err(err))
			return err
		}
		logger.Info("Coordinator stopped")
	}

	return nil
}
