// Package config loads the client configuration.
//
// Values come from, in increasing priority: built-in defaults, a TOML file
// (~/.msds/config.toml unless another path is given), MSDS_* environment
// variables, and command-line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/erazemk/msds/internal/api"
	"github.com/erazemk/msds/internal/audit"
	"github.com/erazemk/msds/internal/logging"
	"github.com/erazemk/msds/internal/session"
)

// Environment variables read by ApplyEnv.
const (
	EnvServer   = "MSDS_SERVER"
	EnvTimeout  = "MSDS_TIMEOUT"
	EnvLog      = "MSDS_LOG"
	EnvLogLevel = "MSDS_LOG_LEVEL"
)

// Config is the client configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Session SessionConfig `toml:"session"`
	Log     LogConfig     `toml:"log"`
}

// ServerConfig describes the remote service.
type ServerConfig struct {
	// URL is the web service root; endpoint files live directly under it.
	URL     string        `toml:"url"`
	Timeout time.Duration `toml:"timeout"`
}

// SessionConfig controls session timing.
type SessionConfig struct {
	Lifetime     time.Duration `toml:"lifetime"`
	TickInterval time.Duration `toml:"tick_interval"`
	AuditTimeout time.Duration `toml:"audit_timeout"`
}

// LogConfig controls local diagnostics.
type LogConfig struct {
	Path  string `toml:"path"`
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			URL:     api.DefaultBaseURL,
			Timeout: api.DefaultTimeout,
		},
		Session: SessionConfig{
			Lifetime:     session.DefaultLifetime,
			TickInterval: session.DefaultInterval,
			AuditTimeout: audit.DefaultTimeout,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Dir returns the configuration directory, ~/.msds.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".msds"), nil
}

// Path returns the default configuration file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the configuration. An empty path selects the default location,
// where a missing file is not an error. An explicitly named file must exist.
// Environment overrides are applied and the result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile decodes a TOML file over the current values. Keys absent from the
// file keep their current values.
func (c *Config) LoadFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("loading config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("loading config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv overrides values from the environment. getenv is normally os.Getenv.
// MSDS_TIMEOUT accepts a Go duration ("45s") or a whole number of seconds.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvServer); v != "" {
		c.Server.URL = v
	}
	if v := getenv(EnvTimeout); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Server.Timeout = d
	}
	if v := getenv(EnvLog); v != "" {
		c.Log.Path = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// ValidationError describes one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid setting.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs ValidationErrors

	u, err := url.Parse(c.Server.URL)
	switch {
	case c.Server.URL == "":
		errs = append(errs, ValidationError{"server.url", "must not be empty"})
	case err != nil:
		errs = append(errs, ValidationError{"server.url", err.Error()})
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, ValidationError{"server.url", fmt.Sprintf("unsupported scheme %q, must be http or https", u.Scheme)})
	case u.Host == "":
		errs = append(errs, ValidationError{"server.url", "missing host"})
	}

	positive := []struct {
		field string
		value time.Duration
	}{
		{"server.timeout", c.Server.Timeout},
		{"session.lifetime", c.Session.Lifetime},
		{"session.tick_interval", c.Session.TickInterval},
		{"session.audit_timeout", c.Session.AuditTimeout},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, ValidationError{p.field, "must be positive"})
		}
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, ValidationError{"log.level", err.Error()})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
