// Package config provides configuration loading for term-cli.
//
// Configuration is optional: every value has a working default, and the
// tool runs with no config file at all. When present, the file is loaded
// from:
//   - TERM_CLI_CONFIG environment variable, or
//   - ~/.config/term-cli/config.yaml
//
// Environment variables do not override individual config values. The
// file is the single source of truth so behavior stays deterministic
// across invocations.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for term-cli.
type Config struct {
	// Socket configures which tmux server the tool talks to.
	Socket SocketConfig `yaml:"socket"`

	// Session configures session creation defaults.
	Session SessionConfig `yaml:"session"`

	// Wait configures the polling engines.
	Wait WaitConfig `yaml:"wait"`

	// Prompt configures prompt detection.
	Prompt PromptConfig `yaml:"prompt"`
}

// SocketConfig selects the tmux server socket. Path wins over Name when
// both are set.
type SocketConfig struct {
	// Name is the socket name (tmux -L). Default: term-cli.
	Name string `yaml:"name"`

	// Path is an explicit socket path (tmux -S). Default: unset.
	Path string `yaml:"path"`
}

// SessionConfig configures session creation defaults.
type SessionConfig struct {
	// Cols and Rows are the default geometry for new sessions.
	// Default: 80x24.
	Cols int `yaml:"cols"`
	Rows int `yaml:"rows"`

	// Shell is the command run in new sessions. Empty means the
	// user's login shell.
	Shell string `yaml:"shell"`
}

// WaitConfig configures the polling engines.
type WaitConfig struct {
	// PollInterval is the delay between pane polls. Default: 250ms.
	PollInterval string `yaml:"poll_interval"`

	// IdleDefault is the default quiet period for wait-idle.
	// Default: 2s.
	IdleDefault string `yaml:"idle_default"`

	// TimeoutDefault is the default deadline for wait commands.
	// Default: 30s.
	TimeoutDefault string `yaml:"timeout_default"`
}

// PromptConfig configures prompt detection.
type PromptConfig struct {
	// ExtraMarkers are additional characters accepted as prompt
	// terminators, beyond the built-in set.
	ExtraMarkers string `yaml:"extra_markers"`

	// ProfilesFile points to a JSONC file of per-program prompt
	// patterns. Default: unset.
	ProfilesFile string `yaml:"profiles_file"`
}

// Default returns the default configuration. These are complete working
// values, not placeholders: term-cli runs without any config file.
func Default() *Config {
	return &Config{
		Socket: SocketConfig{
			Name: "term-cli",
		},
		Session: SessionConfig{
			Cols: 80,
			Rows: 24,
		},
		Wait: WaitConfig{
			PollInterval:   "250ms",
			IdleDefault:    "2s",
			TimeoutDefault: "30s",
		},
	}
}

// Load loads configuration from TERM_CLI_CONFIG, falling back to
// ~/.config/term-cli/config.yaml. A missing file is not an error; the
// defaults apply. A file that exists but fails to parse is an error.
func Load() (*Config, error) {
	if path := os.Getenv("TERM_CLI_CONFIG"); path != "" {
		return LoadFile(path)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Default(), nil
	}
	path := filepath.Join(homeDir, ".config", "term-cli", "config.yaml")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path, merged over
// the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Socket.Name == "" && c.Socket.Path == "" {
		errs = append(errs, fmt.Errorf("socket.name or socket.path is required"))
	}
	if c.Session.Cols < 0 || c.Session.Rows < 0 {
		errs = append(errs, fmt.Errorf("session geometry must not be negative"))
	}
	for _, field := range []struct {
		name, value string
	}{
		{"wait.poll_interval", c.Wait.PollInterval},
		{"wait.idle_default", c.Wait.IdleDefault},
		{"wait.timeout_default", c.Wait.TimeoutDefault},
	} {
		if _, err := time.ParseDuration(field.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field.name, err))
		}
	}

	return errors.Join(errs...)
}

// PollInterval returns the parsed poll interval.
func (c *Config) PollInterval() time.Duration {
	return mustDuration(c.Wait.PollInterval, 250*time.Millisecond)
}

// IdleDefault returns the parsed default idle period.
func (c *Config) IdleDefault() time.Duration {
	return mustDuration(c.Wait.IdleDefault, 2*time.Second)
}

// TimeoutDefault returns the parsed default wait deadline.
func (c *Config) TimeoutDefault() time.Duration {
	return mustDuration(c.Wait.TimeoutDefault, 30*time.Second)
}

// mustDuration parses a duration that Validate has already checked. The
// fallback covers a Config constructed without Load, such as a zero
// value in tests.
func mustDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
