// Package cli implements the susu command-line interface.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/susu-network/susu/internal/app/engine"
	"github.com/susu-network/susu/internal/daemon"
	"github.com/susu-network/susu/internal/infra/sqlite"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "susu",
	Short: "Agent-run savings ledger",
	Long: `susu keeps the books for an agent-run savings scheme: clients deposit
fixed-size boxes and withdraw accumulated savings; the agent earns one box of
commission each time a client completes a page of 31 boxes of withdrawal.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "Path to config file")
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "susu.toml"
	}
	return filepath.Join(home, ".susu", "susu.toml")
}

// loadConfig reads and validates the configuration.
func loadConfig() (daemon.Config, error) {
	cfg, err := daemon.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// openEngine opens the configured database and builds the ledger engine.
// The caller must invoke the returned closer.
func openEngine() (*engine.Engine, func() error, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		return nil, nil, err
	}
	return engine.New(db, engineConfig(cfg)), db.Close, nil
}

func engineConfig(cfg daemon.Config) engine.Config {
	ecfg := engine.DefaultConfig()
	if cfg.Ledger.FullWithdrawalComparator == "strictly_below" {
		ecfg.FullWithdrawal = engine.FullStrictlyBelow
	}
	return ecfg
}
