package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/scribefs/scribe/internal/logger"
	"github.com/scribefs/scribe/pkg/config"
	"github.com/scribefs/scribe/pkg/metrics"
	promMetrics "github.com/scribefs/scribe/pkg/metrics/prometheus"
	"github.com/scribefs/scribe/pkg/storagenode"
)

// cacheStatsInterval is how often the Badger cache gauges refresh.
const cacheStatsInterval = 30 * time.Second

// collectCacheStats refreshes the storage engine cache gauges until ctx is
// cancelled.
func collectCacheStats(ctx context.Context, store *storagenode.Store, m metrics.BadgerMetrics) {
	ticker := time.NewTicker(cacheStatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			block, index := store.CacheStats()
			m.RecordCacheStats("block", block.Hits, block.Misses, block.Ratio)
			m.RecordCacheStats("index", index.Hits, index.Misses, index.Ratio)
		}
	}
}

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Run a Scribe storage node",
	Long: `Run a Scribe storage node: registers with the coordinator, serves
content operations from its local store, and heartbeats for liveness.

Examples:
  # Run with the default config location
  scribed node

  # Run against a specific coordinator
  SCRIBE_NODE_COORDINATOR=10.0.0.5:8090 scribed node`,
	RunE: runNode,
}

func runNode(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := initTelemetry(ctx, cfg, "scribe-node")
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
	var nodeMetrics metrics.NodeMetrics
	if cfg.Metrics.Enabled {
		nodeMetrics = promMetrics.NewNodeMetrics()
	}

	store, err := storagenode.Open(cfg.Node.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open node store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Store close error", logger.Err(err))
		}
	}()

	if cfg.Metrics.Enabled {
		go collectCacheStats(ctx, store, promMetrics.NewBadgerMetrics())
	}

	server := storagenode.NewServer(cfg.Node, store, nodeMetrics)

	// Bind before registering so the advertised address is live when the
	// coordinator starts redirecting clients here.
	if err := server.Listen(); err != nil {
		return err
	}
	if _, err := server.Register(ctx); err != nil {
		return fmt.Errorf("failed to register with coordinator: %w", err)
	}
	go server.HeartbeatLoop(ctx)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Storage node is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()
		if err := <-serverDone; err != nil {
			logger.Error("Node shutdown error", logger.Err(err))
			return err
		}
		logger.Info("Storage node stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Node error", logger.Err(err))
			return err
		}
		logger.Info("Storage node stopped")
	}

	return nil
}
