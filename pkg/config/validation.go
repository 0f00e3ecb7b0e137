package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration against the struct validation tags plus
// the cross-field rules the tags cannot express.
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			// Report the first violation with its config path; the rest
			// usually follow from the same mistake.
			e := errs[0]
			return fmt.Errorf("invalid value for %s: failed %q rule", e.Namespace(), e.Tag())
		}
		return err
	}

	if err := cfg.Coordinator.Database.Validate(); err != nil {
		return fmt.Errorf("coordinator database: %w", err)
	}

	if cfg.Node.HeartbeatInterval >= cfg.Coordinator.HeartbeatTimeout {
		return fmt.Errorf("node heartbeat_interval (%s) must undercut coordinator heartbeat_timeout (%s)",
			cfg.Node.HeartbeatInterval, cfg.Coordinator.HeartbeatTimeout)
	}

	if cfg.Coordinator.HeartbeatSweepInterval > cfg.Coordinator.HeartbeatTimeout {
		return fmt.Errorf("heartbeat_sweep_interval (%s) exceeds heartbeat_timeout (%s)",
			cfg.Coordinator.HeartbeatSweepInterval, cfg.Coordinator.HeartbeatTimeout)
	}

	return nil
}
