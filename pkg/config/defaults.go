package config

import (
	"strings"
	"time"

	"github.com/scribefs/scribe/internal/bytesize"
	"github.com/scribefs/scribe/internal/protocol"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. Zero values (0, "", false, nil) are replaced with defaults;
// explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyCoordinatorDefaults(&cfg.Coordinator)
	applyNodeDefaults(&cfg.Node)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	// Enabled defaults to false (opt-in for telemetry)

	// Default endpoint is localhost:4317 (standard OTLP gRPC port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}

	// Default sample rate is 1.0 (sample all traces)
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}

	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false (opt-in for metrics)
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyCoordinatorDefaults sets coordinator defaults.
func applyCoordinatorDefaults(cfg *CoordinatorConfig) {
	if cfg.Listen == "" {
		cfg.Listen = ":8090"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.MaxClients == 0 {
		cfg.MaxClients = 100
	}
	if cfg.MaxUsers == 0 {
		cfg.MaxUsers = 100
	}
	if cfg.MaxNodes == 0 {
		cfg.MaxNodes = 10
	}
	if cfg.MaxLocks == 0 {
		cfg.MaxLocks = 100
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = bytesize.ByteSize(protocol.DefaultMaxPayloadSize)
	}
	if cfg.HeartbeatTimeout == 0 {
		cfg.HeartbeatTimeout = 15 * time.Second
	}
	if cfg.HeartbeatSweepInterval == 0 {
		cfg.HeartbeatSweepInterval = 5 * time.Second
	}

	cfg.Database.ApplyDefaults()
	applyAdminDefaults(&cfg.Admin)
}

// applyAdminDefaults sets admin API defaults.
func applyAdminDefaults(cfg *AdminConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8091
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
}

// applyNodeDefaults sets storage node defaults.
func applyNodeDefaults(cfg *NodeConfig) {
	if cfg.Listen == "" {
		cfg.Listen = ":8100"
	}
	if cfg.AdvertiseAddress == "" {
		cfg.AdvertiseAddress = cfg.Listen
	}
	if cfg.Coordinator == "" {
		cfg.Coordinator = "127.0.0.1:8090"
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = 5 * time.Second
	}
	if cfg.StreamDelay == 0 {
		cfg.StreamDelay = 100 * time.Millisecond
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = bytesize.ByteSize(protocol.DefaultMaxPayloadSize)
	}
	// DataDir has no default - it's required and must be configured when
	// running the node role.
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for generating sample configuration files, testing, and
// documentation.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Node: NodeConfig{
			DataDir: "/var/lib/scribe/node",
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
