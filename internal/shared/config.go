package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Session   SessionConfig   `toml:"session"`
	Poller    PollerConfig    `toml:"poller"`
	Database  DatabaseConfig  `toml:"database"`
	Downloads DownloadsConfig `toml:"downloads"`
}

// ServerConfig contains backend connection settings.
type ServerConfig struct {
	BaseURL               string `toml:"base_url"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// SessionConfig controls session persistence across process restarts.
//
// Persist defaults to false: every run starts with a fresh login, trading
// convenience for credential freshness.
type SessionConfig struct {
	Persist bool `toml:"persist"`
}

// PollerConfig contains job status polling settings.
//
// MaxAttempts of 0 means a poller retries until its job resolves or the
// registry is torn down. A positive value caps attempts per job.
type PollerConfig struct {
	IntervalMS  int `toml:"interval_ms"`
	MaxAttempts int `toml:"max_attempts"`
}

// DatabaseConfig contains local SQLite settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// DownloadsConfig contains settings for saving fetched MP3 files.
type DownloadsConfig struct {
	Dir string `toml:"dir"`
}

// RequestTimeout returns the configured HTTP request timeout.
func (c *Config) RequestTimeout() time.Duration {
	if c.Server.RequestTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// PollInterval returns the configured poller tick interval.
func (c *Config) PollInterval() time.Duration {
	if c.Poller.IntervalMS <= 0 {
		return 2500 * time.Millisecond
	}
	return time.Duration(c.Poller.IntervalMS) * time.Millisecond
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
