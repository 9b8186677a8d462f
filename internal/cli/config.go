package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration file shape.
type Config struct {
	// DataDir holds the local SQLite database.
	DataDir string `yaml:"data_dir"`

	Remote struct {
		// BaseURL of the collection API (e.g. http://localhost:8090).
		BaseURL string `yaml:"base_url"`
		// AuthToken is the bearer token; empty disables auth.
		AuthToken string `yaml:"auth_token"`
		// TimeoutSeconds bounds each remote insert attempt.
		TimeoutSeconds int `yaml:"timeout_seconds"`
	} `yaml:"remote"`

	Sync struct {
		// MaxRetries is the per-item retry ceiling before dead-lettering.
		MaxRetries int `yaml:"max_retries"`
		// ProbeURL is the connectivity probe target. Defaults to the
		// remote base URL's health endpoint.
		ProbeURL string `yaml:"probe_url"`
		// IntervalSeconds is the watch-mode polling cadence.
		IntervalSeconds int `yaml:"interval_seconds"`
	} `yaml:"sync"`

	Server struct {
		// Addr the dev server listens on.
		Addr string `yaml:"addr"`
	} `yaml:"server"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	var cfg Config
	cfg.DataDir = ".fleetsync"
	cfg.Remote.BaseURL = "http://localhost:8090"
	cfg.Remote.TimeoutSeconds = 10
	cfg.Sync.MaxRetries = 3
	cfg.Sync.IntervalSeconds = 15
	cfg.Server.Addr = ":8090"
	return cfg
}

// LoadConfig reads the YAML file at path, falling back to defaults when the
// file does not exist, then applies FLEETSYNC_* environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults plus env is a valid setup.
	case err != nil:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.Sync.ProbeURL == "" {
		cfg.Sync.ProbeURL = cfg.Remote.BaseURL + "/healthz"
	}

	return cfg, nil
}

// applyEnv overrides file values from the environment.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("FLEETSYNC_DATA_DIR")); v != "" {
		cfg.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv("FLEETSYNC_REMOTE_URL")); v != "" {
		cfg.Remote.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("FLEETSYNC_AUTH_TOKEN")); v != "" {
		cfg.Remote.AuthToken = v
	}
	if v := strings.TrimSpace(os.Getenv("FLEETSYNC_PROBE_URL")); v != "" {
		cfg.Sync.ProbeURL = v
	}
	if v := strings.TrimSpace(os.Getenv("FLEETSYNC_SERVER_ADDR")); v != "" {
		cfg.Server.Addr = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv("FLEETSYNC_MAX_RETRIES"))); err == nil && v > 0 {
		cfg.Sync.MaxRetries = v
	}
}

// DatabasePath returns the SQLite file location under the data dir.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "fleetsync.db")
}

// AttemptTimeout returns the per-attempt timeout as a duration.
func (c Config) AttemptTimeout() time.Duration {
	return time.Duration(c.Remote.TimeoutSeconds) * time.Second
}

// WatchInterval returns the watch-mode polling cadence as a duration.
func (c Config) WatchInterval() time.Duration {
	return time.Duration(c.Sync.IntervalSeconds) * time.Second
}
