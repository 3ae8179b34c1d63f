// Package config loads the server configuration from a YAML file,
// writing a default file on first run.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that (un)marshals as a duration string
// like "5s" or "1m30s".
type Duration time.Duration

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the server configuration. Zero fields fall back to the
// defaults below.
type Config struct {
	// ListenAddr is the address the WebSocket listener binds to.
	ListenAddr string `yaml:"listen_addr"`

	// DataDir holds the player database. Empty selects the
	// platform-specific default data directory.
	DataDir string `yaml:"data_dir"`

	// MatchmakingInterval is the period of the queue sweep.
	MatchmakingInterval Duration `yaml:"matchmaking_interval"`

	// LoginDeadline is how long an anonymous connection may stay
	// unauthenticated before it is closed.
	LoginDeadline Duration `yaml:"login_deadline"`

	// LogLevel is a logrus level name.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:          ":8888",
		MatchmakingInterval: Duration(5 * time.Second),
		LoginDeadline:       Duration(10 * time.Second),
		LogLevel:            "info",
	}
}

// Load reads the configuration at path. A missing file is created
// with the defaults and returned as such.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		if err := writeDefault(path, cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = Default().ListenAddr
	}
	if cfg.MatchmakingInterval <= 0 {
		cfg.MatchmakingInterval = Default().MatchmakingInterval
	}
	if cfg.LoginDeadline <= 0 {
		cfg.LoginDeadline = Default().LoginDeadline
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = Default().LogLevel
	}
	return cfg, nil
}

func writeDefault(path string, cfg Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config dir: %w", err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
