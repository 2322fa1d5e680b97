package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file looked up next to the executable.
const DefaultPath = "report.yaml"

// Config represents the application configuration. Every field has a default
// that reproduces the plain "compile src/main.tex into build/" behavior, so a
// missing configuration file is not an error.
type Config struct {
	// Root overrides the project root. Empty means the directory containing
	// the running executable.
	Root   string       `yaml:"root,omitempty"`
	Engine EngineConfig `yaml:"engine"`
	Build  BuildConfig  `yaml:"build"`
	Daemon DaemonConfig `yaml:"daemon"`
}

// EngineConfig describes the external typesetting engine invocation.
type EngineConfig struct {
	Command   string   `yaml:"command"`              // e.g. pdflatex, xelatex, lualatex
	ExtraArgs []string `yaml:"extra_args,omitempty"` // appended before the source path
	Timeout   Duration `yaml:"timeout,omitempty"`    // 0 disables the wall-clock timeout
}

// BuildConfig controls the build pipeline around the engine.
type BuildConfig struct {
	Passes int   `yaml:"passes"` // engine invocations per build; references need 2+
	Notes  *bool `yaml:"notes,omitempty"` // convert src/notes/*.md chapters (default true)
	Stamp  *bool `yaml:"stamp,omitempty"` // write buildinfo.tex with git metadata (default true)
}

// DaemonConfig controls watch/daemon mode.
type DaemonConfig struct {
	Listen           string     `yaml:"listen"`                      // status/metrics HTTP address
	QuietWindow      Duration   `yaml:"quiet_window,omitempty"`      // debounce quiet window
	MaxDelay         Duration   `yaml:"max_delay,omitempty"`         // debounce upper bound
	ScheduleInterval Duration   `yaml:"schedule_interval,omitempty"` // periodic rebuild; 0 disables
	HistoryDB        string     `yaml:"history_db,omitempty"`        // sqlite path; empty = <root>/.reportbuild/history.db
	NATS             NATSConfig `yaml:"nats"`
}

// NATSConfig configures optional build-event publishing.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// Duration wraps time.Duration with YAML string parsing ("30s", "2m").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// NotesEnabled reports whether markdown chapter conversion is on.
func (b BuildConfig) NotesEnabled() bool { return b.Notes == nil || *b.Notes }

// StampEnabled reports whether buildinfo stamping is on.
func (b BuildConfig) StampEnabled() bool { return b.Stamp == nil || *b.Stamp }

// Default returns the configuration reproducing the bare build contract.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Engine.Command == "" {
		c.Engine.Command = "pdflatex"
	}
	if c.Build.Passes <= 0 {
		c.Build.Passes = 1
	}
	if c.Daemon.Listen == "" {
		c.Daemon.Listen = ":8321"
	}
	if c.Daemon.QuietWindow <= 0 {
		c.Daemon.QuietWindow = Duration(500 * time.Millisecond)
	}
	if c.Daemon.MaxDelay <= 0 {
		c.Daemon.MaxDelay = Duration(5 * time.Second)
	}
	if c.Daemon.NATS.Subject == "" {
		c.Daemon.NATS.Subject = "reportbuild.builds"
	}
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists; a missing file is fine.
	_ = godotenv.Load()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

// LoadIfPresent loads the configuration file when it exists and falls back to
// defaults when it does not. An unreadable or invalid file is still an error.
func LoadIfPresent(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		_ = godotenv.Load()
		return Default(), nil
	}
	return Load(configPath)
}
