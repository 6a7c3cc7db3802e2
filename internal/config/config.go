package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
// It captures the backend endpoint, local storage, metrics, and sync cadence.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
	Sync    SyncConfig    `yaml:"sync"`
}

type ServerConfig struct {
	// Base URL of the littleX backend. If empty, read from env LITTLEX_BASE_URL.
	BaseURL string `yaml:"baseURL"`
	// Per-request timeout in seconds.
	TimeoutSeconds int `yaml:"timeoutSeconds"`
}

type StorageConfig struct {
	// Path of the local SQLite database holding session and notifications.
	DBPath string `yaml:"dbPath"`
}

type MetricsConfig struct {
	// Listen address for /metrics and /health, e.g. ":9090". Empty disables.
	Addr string `yaml:"addr"`
}

type SyncConfig struct {
	// Feed refresh interval in seconds for the watch command.
	IntervalSeconds int `yaml:"intervalSeconds"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Server:  ServerConfig{BaseURL: "http://localhost:8000", TimeoutSeconds: 15},
		Storage: StorageConfig{DBPath: "./littlex.db"},
		Metrics: MetricsConfig{Addr: ""},
		Sync:    SyncConfig{IntervalSeconds: 60},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if v := os.Getenv("LITTLEX_BASE_URL"); v != "" && c.Server.BaseURL == "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("LITTLEX_DB_PATH"); v != "" && c.Storage.DBPath == "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("LITTLEX_METRICS_ADDR"); v != "" && c.Metrics.Addr == "" {
		c.Metrics.Addr = v
	}
}

// Timeout returns the per-request timeout as a duration.
func (c Config) Timeout() time.Duration {
	if c.Server.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}

// SyncInterval returns the feed refresh interval as a duration.
func (c Config) SyncInterval() time.Duration {
	if c.Sync.IntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.Sync.IntervalSeconds) * time.Second
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
