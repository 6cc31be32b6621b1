// Package config loads and validates vigil configuration.
//
// Configuration is resolved in three layers, later layers winning:
//  1. built-in defaults
//  2. .vigil.yaml at the watched root
//  3. VIGIL_* environment variables
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	verrors "github.com/vigil-dev/vigil/internal/errors"
)

// FileName is the per-root configuration file name.
const FileName = ".vigil.yaml"

// DataDirName is the per-root state directory (journal, lock).
const DataDirName = ".vigil"

// Config is the complete vigil configuration.
type Config struct {
	// Root is the directory to watch. Defaults to the working directory.
	Root string `yaml:"root"`

	// IgnorePatterns are ordered glob patterns excluding paths from
	// watching, evaluated with gitignore semantics.
	IgnorePatterns []string `yaml:"ignore_patterns"`

	// RespectGitignore loads .gitignore files found under the root.
	RespectGitignore bool `yaml:"respect_gitignore"`

	// DebounceWindowMS is the quiet window in milliseconds. 0 disables
	// coalescing and delivers every raw event immediately.
	DebounceWindowMS int `yaml:"debounce_window_ms"`

	// EventBufferSize is the delivery queue capacity.
	EventBufferSize int `yaml:"event_buffer_size"`

	// PollIntervalMS is the scan interval for the polling fallback.
	PollIntervalMS int `yaml:"poll_interval_ms"`

	// ForcePolling skips the native watch backend entirely.
	ForcePolling bool `yaml:"force_polling"`

	// Journal configures the SQLite event journal.
	Journal JournalConfig `yaml:"journal"`

	// Logging configures structured log output.
	Logging LoggingConfig `yaml:"logging"`
}

// JournalConfig configures the SQLite event journal.
type JournalConfig struct {
	// Enabled turns on journaling of delivered events.
	Enabled bool `yaml:"enabled"`
	// Path overrides the journal database location.
	// Default: <root>/.vigil/journal.db
	Path string `yaml:"path"`
}

// LoggingConfig configures structured log output.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	File      string `yaml:"file"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Root: ".",
		IgnorePatterns: []string{
			".git/",
			DataDirName + "/",
			"node_modules/",
			"__pycache__/",
			"*.swp",
			"*~",
		},
		RespectGitignore: true,
		DebounceWindowMS: 400,
		EventBufferSize:  1024,
		PollIntervalMS:   5000,
		Journal:          JournalConfig{Enabled: true},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// Load resolves the configuration for the given root directory.
// A missing .vigil.yaml is not an error; defaults apply.
func Load(root string) (*Config, error) {
	cfg := Default()
	cfg.Root = root

	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only
	case err != nil:
		return nil, verrors.Newf(verrors.ErrCodeConfigNotFound, err,
			"cannot read %s", path)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, verrors.Newf(verrors.ErrCodeConfigInvalid, err,
				"invalid YAML in %s", path).
				WithSuggestion("check indentation and field names")
		}
		if cfg.Root == "" {
			cfg.Root = root
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies VIGIL_* environment overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv("VIGIL_DEBOUNCE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.DebounceWindowMS = ms
		}
	}
	if v := os.Getenv("VIGIL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("VIGIL_POLL_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.PollIntervalMS = ms
		}
	}
	if v := os.Getenv("VIGIL_JOURNAL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Journal.Enabled = b
		}
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.DebounceWindowMS < 0 {
		return verrors.Newf(verrors.ErrCodeConfigInvalid, nil,
			"debounce_window_ms must be >= 0, got %d", c.DebounceWindowMS).
			WithDetail("field", "debounce_window_ms")
	}
	if c.EventBufferSize <= 0 {
		return verrors.Newf(verrors.ErrCodeConfigInvalid, nil,
			"event_buffer_size must be > 0, got %d", c.EventBufferSize).
			WithDetail("field", "event_buffer_size")
	}
	if c.PollIntervalMS <= 0 {
		return verrors.Newf(verrors.ErrCodeConfigInvalid, nil,
			"poll_interval_ms must be > 0, got %d", c.PollIntervalMS).
			WithDetail("field", "poll_interval_ms")
	}
	return nil
}

// DebounceWindow returns the quiet window as a duration.
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.DebounceWindowMS) * time.Millisecond
}

// PollInterval returns the polling interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// DataDir returns the per-root state directory.
func (c *Config) DataDir() string {
	return filepath.Join(c.Root, DataDirName)
}

// JournalPath returns the journal database path.
func (c *Config) JournalPath() string {
	if c.Journal.Path != "" {
		return c.Journal.Path
	}
	return filepath.Join(c.DataDir(), "journal.db")
}

// LockPath returns the single-instance lock file path.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir(), "vigil.lock")
}

// String renders the effective configuration as YAML.
func (c *Config) String() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<unprintable config: %v>", err)
	}
	return string(out)
}
