package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scribefs/scribe/internal/cli/output"
	"github.com/scribefs/scribe/internal/cli/prompt"
	"github.com/scribefs/scribe/pkg/config"
	"github.com/scribefs/scribe/pkg/coordinator/catalog"
)

var (
	initForce bool
	initYes   bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a configuration file",
	Long: `Initialize a Scribe configuration file covering both the coordinator
and storage node roles. Without --yes an interactive setup asks for the
common settings; everything else takes its default.

By default, the configuration file is created at
$XDG_CONFIG_HOME/scribe/config.yaml. Use --config to specify a custom path.

Examples:
  # Interactive setup at the default location
  scribed init

  # Non-interactive, defaults only
  scribed init --yes

  # Force overwrite existing config
  scribed init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "Accept all defaults without prompting")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
	}

	cfg := config.GetDefaultConfig()
	if !initYes {
		if err := promptSetup(cfg); err != nil {
			if prompt.IsAborted(err) {
				return fmt.Errorf("setup aborted")
			}
			return err
		}
	}

	if err := config.SaveConfig(cfg, configPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	p := output.DefaultPrinter()
	p.Success(fmt.Sprintf("Configuration file created at: %s", configPath))
	p.Println("\nNext steps:")
	p.Println("  1. Edit the configuration file to customize your setup")
	p.Println("  2. Start a coordinator with: scribed coordinator")
	p.Println("  3. Start storage nodes with: scribed node")
	p.Printf("  4. Or specify the config explicitly: scribed coordinator --config %s\n", configPath)

	return nil
}

// promptSetup walks the common settings interactively and writes the answers
// into cfg.
func promptSetup(cfg *config.Config) error {
	listen, err := prompt.Input("Coordinator listen address", cfg.Coordinator.Listen)
	if err != nil {
		return err
	}
	cfg.Coordinator.Listen = listen

	dbType, err := prompt.SelectString("Catalog database", []string{"sqlite", "postgres"})
	if err != nil {
		return err
	}
	cfg.Coordinator.Database.Type = catalog.DatabaseType(dbType)

	switch cfg.Coordinator.Database.Type {
	case catalog.DatabaseTypeSQLite:
		path, err := prompt.Input("SQLite database path", cfg.Coordinator.Database.SQLite.Path)
		if err != nil {
			return err
		}
		cfg.Coordinator.Database.SQLite.Path = path

	case catalog.DatabaseTypePostgres:
		pg := &cfg.Coordinator.Database.Postgres
		if pg.Host, err = prompt.Input("PostgreSQL host", "localhost"); err != nil {
			return err
		}
		if pg.Port, err = prompt.InputPort("PostgreSQL port", 5432); err != nil {
			return err
		}
		if pg.Database, err = prompt.InputRequired("Database name"); err != nil {
			return err
		}
		if pg.User, err = prompt.InputRequired("Database user"); err != nil {
			return err
		}
		if pg.Password, err = prompt.Password("Database password"); err != nil {
			return err
		}
	}

	dataDir, err := prompt.Input("Storage node data directory", cfg.Node.DataDir)
	if err != nil {
		return err
	}
	cfg.Node.DataDir = dataDir

	coordAddr, err := prompt.Input("Coordinator address for storage nodes", cfg.Node.Coordinator)
	if err != nil {
		return err
	}
	cfg.Node.Coordinator = coordAddr

	metricsOn, err := prompt.Confirm("Enable Prometheus metrics", cfg.Metrics.Enabled)
	if err != nil {
		return err
	}
	cfg.Metrics.Enabled = metricsOn
	if metricsOn {
		if cfg.Metrics.Port, err = prompt.InputPort("Metrics port", 9090); err != nil {
			return err
		}
	}

	return nil
}
