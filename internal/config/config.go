// Package config resolves runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config carries the settings shared by every command.
type Config struct {
	// DataDir holds the container, its restore points and the backup
	// bookkeeping database.
	DataDir string `env:"STRONGBOX_DATA_DIR"`

	// BackupPath is the file the backup command writes, kept outside
	// the data directory so it survives losing that directory.
	BackupPath string `env:"STRONGBOX_BACKUP_PATH"`

	// Debug switches on verbose logging.
	Debug bool `env:"STRONGBOX_DEBUG"`
}

// Load reads a .env file when one is present, then the environment,
// and fills the remaining settings with defaults under the user's home
// directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if cfg.DataDir == "" || cfg.BackupPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		if cfg.DataDir == "" {
			cfg.DataDir = filepath.Join(home, ".strongbox")
		}
		if cfg.BackupPath == "" {
			cfg.BackupPath = filepath.Join(home, "secrets-backup")
		}
	}
	return cfg, nil
}
