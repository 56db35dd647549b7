// Package config loads player settings from a YAML file, the environment
// and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"sfzplayer/internal/logging"
	"sfzplayer/internal/vfs"
)

var (
	logger = logging.GetLogger().WithPrefix("config")

	// ErrNoSource is returned when neither a root nor a repository is set.
	ErrNoSource = errors.New("either a root or a repository is required")
)

const (
	defaultStatePath      = ".sfzplayer/session.json"
	defaultHTTPTimeout    = 30 * time.Second
	defaultPreloadWorkers = 4
)

// Config holds everything the player needs to start.
type Config struct {
	// Root is a local directory or a remote base URL.
	Root string `yaml:"root"`
	// Repository is an "owner/name" GitHub repository indexed instead of Root.
	Repository string `yaml:"repository"`
	APIBase    string `yaml:"api_base"`

	StatePath  string `yaml:"state_path"`
	MountPoint string `yaml:"mount_point"`
	Instrument string `yaml:"instrument"`
	MIDIPort   string `yaml:"midi_port"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	PreloadWorkers int           `yaml:"preload_workers"`
	Preload        bool          `yaml:"preload"`
}

// Default returns a config with every optional field filled in.
func Default() *Config {
	return &Config{
		APIBase:        vfs.DefaultAPIBase,
		StatePath:      defaultStatePath,
		LogLevel:       logging.LevelInfo.String(),
		HTTPTimeout:    defaultHTTPTimeout,
		PreloadWorkers: defaultPreloadWorkers,
	}
}

// Load reads the YAML file at path over the defaults. An empty path
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	logger.Debug("Loading config from: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	logger.Info("Config loaded from %s", path)
	return cfg, nil
}

// ApplyEnv overrides fields from the environment through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	overrides := []struct {
		name  string
		field *string
	}{
		{"SFZ_ROOT", &c.Root},
		{"SFZ_REPO", &c.Repository},
		{"LOG_LEVEL", &c.LogLevel},
		{"LOG_FORMAT", &c.LogFormat},
	}
	for _, o := range overrides {
		if v := getenv(o.name); v != "" {
			logger.Trace("Environment override %s=%s", o.name, v)
			*o.field = v
		}
	}
	if v := getenv("SFZ_PRELOAD_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.PreloadWorkers = n
		} else {
			logger.Warn("Ignoring SFZ_PRELOAD_WORKERS=%q: %v", v, err)
		}
	}
}

// RegisterFlags binds flags to c. Flags keep the current field values as
// defaults, so parsing after Load and ApplyEnv only overrides what was set.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Root, "root", c.Root, "Local directory or remote base URL of the instrument library")
	fs.StringVar(&c.Repository, "repo", c.Repository, "GitHub repository (owner/name) to index instead of -root")
	fs.StringVar(&c.APIBase, "api", c.APIBase, "GitHub API base URL")
	fs.StringVar(&c.StatePath, "state", c.StatePath, "Session state file path")
	fs.StringVar(&c.MountPoint, "mount", c.MountPoint, "Mount point for the read-only library view")
	fs.StringVar(&c.Instrument, "instrument", c.Instrument, "Instrument key to load")
	fs.StringVar(&c.MIDIPort, "midi", c.MIDIPort, "MIDI input port name to listen on")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (error, warn, info, debug, trace)")
	fs.DurationVar(&c.HTTPTimeout, "timeout", c.HTTPTimeout, "HTTP request timeout")
	fs.IntVar(&c.PreloadWorkers, "workers", c.PreloadWorkers, "Parallel sample loads during preload")
	fs.BoolVar(&c.Preload, "preload", c.Preload, "Decode every mapped sample after loading")
}

// Validate checks that the config names a library to open.
func (c *Config) Validate() error {
	if c.Root == "" && c.Repository == "" {
		return ErrNoSource
	}
	if c.Repository != "" {
		if _, err := vfs.ParseRepository(c.Repository); err != nil {
			return fmt.Errorf("invalid repository: %w", err)
		}
	}
	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if c.PreloadWorkers <= 0 {
		return fmt.Errorf("preload workers must be positive, got %d", c.PreloadWorkers)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http timeout must not be negative, got %v", c.HTTPTimeout)
	}
	return nil
}

// Level returns the configured log level, INFO when unset or unknown.
func (c *Config) Level() logging.LogLevel {
	level, _ := logging.ParseLevel(c.LogLevel)
	return level
}
