// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	appDirName = "moonrock-orbs"
	dbFileName = "orbs.db"
)

// Config holds the settings shared by the orb binaries.
type Config struct {
	HTTPAddr       string        `env:"ORBS_HTTP_ADDR" envDefault:"127.0.0.1:17890"`
	DBPath         string        `env:"ORBS_DB_PATH"`
	APIToken       string        `env:"ORBS_API_TOKEN"`
	KeyringService string        `env:"ORBS_KEYRING_SERVICE" envDefault:"moonrock-orbs"`
	RequestTimeout time.Duration `env:"ORBS_REQUEST_TIMEOUT" envDefault:"30s"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment and fills in derived defaults.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout <= 0 {
		return Config{}, fmt.Errorf("ORBS_REQUEST_TIMEOUT must be positive, got %s", cfg.RequestTimeout)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(AppDir(), dbFileName)
	}
	return cfg, nil
}

// AppDir is the per-user directory for the database and token fallback
// file. It falls back to the working directory when no config dir exists.
func AppDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = "."
	}
	return filepath.Join(configDir, appDirName)
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
