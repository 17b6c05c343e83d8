// Package config loads aepbridge settings from AEPBRIDGE_* environment
// variables. Command-line flags override what is loaded here.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every variable name.
const Prefix = "AEPBRIDGE"

// Config holds the runtime settings.
type Config struct {
	// Journal is the sqlite path for the call journal. Empty disables it.
	Journal string `envconfig:"JOURNAL"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// ListenAddr is where serve binds. Port 0 picks a free port.
	ListenAddr string `envconfig:"LISTEN_ADDR" default:"127.0.0.1:0"`

	// Fixture seeds the simulator (.cue, .yaml or .json). Empty starts from
	// an empty fixture.
	Fixture string `envconfig:"FIXTURE"`

	// PackageName prefixes messaging surface URIs.
	PackageName string `envconfig:"PACKAGE_NAME" default:"com.example.app"`

	// CallTimeout bounds a single boundary call made from the CLI.
	CallTimeout time.Duration `envconfig:"CALL_TIMEOUT" default:"30s"`
}

// Load reads the environment.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process(Prefix, &c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &c, nil
}

// Validate checks values envconfig cannot check by type.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("config: %s_LISTEN_ADDR %q: %w", Prefix, c.ListenAddr, err)
	}
	if c.PackageName == "" {
		return fmt.Errorf("config: %s_PACKAGE_NAME must not be empty", Prefix)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("config: %s_CALL_TIMEOUT must be positive", Prefix)
	}
	return nil
}

// SlogLevel is LogLevel as a slog level. Invalid levels read as info.
func (c *Config) SlogLevel() slog.Level {
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("config: %s_LOG_LEVEL %q: want debug, info, warn or error", Prefix, s)
}
