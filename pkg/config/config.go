package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the monitor configuration loaded from the YAML config file
type Config struct {
	// ComposeFiles lists the descriptor paths whose containers are managed
	ComposeFiles []string `yaml:"compose_files"`

	// CheckIntervalSeconds is the period of the reconciliation timer
	CheckIntervalSeconds int `yaml:"check_interval_seconds"`

	// StatusIntervalSeconds is the period of the status/rediscovery timer
	StatusIntervalSeconds int `yaml:"status_interval_seconds"`

	// MaxConsecutiveFailures is the failure streak after which a
	// container is no longer restarted until rediscovery
	MaxConsecutiveFailures int `yaml:"max_consecutive_failures"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		CheckIntervalSeconds:   30,
		StatusIntervalSeconds:  300,
		MaxConsecutiveFailures: 5,
	}
}

// Load reads and parses the config file, applying defaults to any
// interval or threshold left unset
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if cfg.CheckIntervalSeconds <= 0 {
		cfg.CheckIntervalSeconds = 30
	}
	if cfg.StatusIntervalSeconds <= 0 {
		cfg.StatusIntervalSeconds = 300
	}
	if cfg.MaxConsecutiveFailures <= 0 {
		cfg.MaxConsecutiveFailures = 5
	}

	return cfg, nil
}

// CheckInterval returns the reconciliation period as a Duration
func (c Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSeconds) * time.Second
}

// StatusInterval returns the status/rediscovery period as a Duration
func (c Config) StatusInterval() time.Duration {
	return time.Duration(c.StatusIntervalSeconds) * time.Second
}

// PathsEqual reports whether both configs manage the same descriptor
// paths in the same order. Only a path-list change triggers rediscovery.
func (c Config) PathsEqual(other Config) bool {
	if len(c.ComposeFiles) != len(other.ComposeFiles) {
		return false
	}
	for i, path := range c.ComposeFiles {
		if other.ComposeFiles[i] != path {
			return false
		}
	}
	return true
}
