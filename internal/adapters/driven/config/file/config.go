// Package file loads casesync configuration from a TOML file.
// Configuration lives in ~/.casesync/config.toml unless a path is
// given explicitly.
package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full casesync configuration.
type Config struct {
	Storage StorageConfig `toml:"storage"`
	Remote  RemoteConfig  `toml:"remote"`
	Sync    SyncConfig    `toml:"sync"`
	Intake  IntakeConfig  `toml:"intake"`
}

// StorageConfig locates the durable state database.
type StorageConfig struct {
	// DataDir holds the SQLite database. Empty means ~/.casesync/data.
	DataDir string `toml:"data_dir"`
}

// RemoteConfig describes the ticketing API deployment.
type RemoteConfig struct {
	// BaseURL is the ticketing API root.
	BaseURL string `toml:"base_url"`

	// Token is the bearer token. Empty disables remote writes.
	Token string `toml:"token"`

	// MinIntervalMS is the minimum spacing between remote calls in
	// milliseconds. Zero means the client default.
	MinIntervalMS int `toml:"min_interval_ms"`

	// TimeoutSeconds is the per-request timeout. Zero means the
	// client default.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// SyncConfig tunes run behaviour.
type SyncConfig struct {
	// DryRun skips all remote writes while still persisting state.
	DryRun bool `toml:"dry_run"`
}

// IntakeConfig describes the snapshot drop directory.
type IntakeConfig struct {
	// DropDir is watched for new extract files.
	DropDir string `toml:"drop_dir"`
}

// MinInterval returns the configured pacing interval as a duration.
func (r RemoteConfig) MinInterval() time.Duration {
	return time.Duration(r.MinIntervalMS) * time.Millisecond
}

// Timeout returns the configured request timeout as a duration.
func (r RemoteConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".casesync", "config.toml"), nil
}

// Load reads configuration from path. If path is empty the default
// location is used; a missing file yields the zero config rather
// than an error, so a bare install works with flags alone.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes configuration to path, creating the directory with
// restrictive permissions; the file may hold an API token.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
