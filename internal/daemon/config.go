// Package daemon holds the service configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the susu service configuration, loaded from a TOML file with
// defaults for every field.
type Config struct {
	API     APIConfig     `toml:"api"`
	Storage StorageConfig `toml:"storage"`
	Ledger  LedgerConfig  `toml:"ledger"`
	Metrics MetricsConfig `toml:"metrics"`
}

// APIConfig configures the HTTP listener.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig configures the SQLite database location.
type StorageConfig struct {
	Path string `toml:"path"`
}

// LedgerConfig configures engine policy.
type LedgerConfig struct {
	// FullWithdrawalComparator selects when a withdrawal counts as draining
	// the account to its last box: "at_or_below" (default) or
	// "strictly_below". The two differ exactly at the last box.
	FullWithdrawalComparator string `toml:"full_withdrawal_comparator"`
}

// MetricsConfig configures Prometheus metrics exposure.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8931,
		},
		Storage: StorageConfig{
			Path: defaultDBPath(),
		},
		Ledger: LedgerConfig{
			FullWithdrawalComparator: "at_or_below",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads the config file at path, overlaying it on the defaults.
// A missing file is not an error — defaults apply.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Addr returns the host:port the API listens on.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// Validate checks the configuration for usable values.
func (c Config) Validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path must not be empty")
	}
	switch c.Ledger.FullWithdrawalComparator {
	case "at_or_below", "strictly_below":
	default:
		return fmt.Errorf("ledger.full_withdrawal_comparator %q unknown (want at_or_below or strictly_below)",
			c.Ledger.FullWithdrawalComparator)
	}
	return nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "susu.db"
	}
	return filepath.Join(home, ".susu", "susu.db")
}
