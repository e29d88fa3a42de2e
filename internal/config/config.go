// Package config handles configuration loading from YAML files and environment variables.
// Configuration precedence: CLI flags > environment variables > config file > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "1s", "30s", "1m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
// It accepts string formats such as "500ms" or "1m30s".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds all harvester configuration.
type Config struct {
	// ID identifies this harvester in recorded snapshots. A random one is
	// generated at startup when empty.
	ID         string           `yaml:"id"`
	Collection CollectionConfig `yaml:"collection"`
	Processes  ProcessConfig    `yaml:"processes"`
	Features   FeatureConfig    `yaml:"features"`
	Buffer     BufferConfig     `yaml:"buffer"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// CollectionConfig holds tick settings.
type CollectionConfig struct {
	Interval      Duration `yaml:"interval"`
	BatchInterval Duration `yaml:"batch_interval"`
	TopProcesses  int      `yaml:"top_processes"`
}

// ProcessConfig holds process sampler settings.
type ProcessConfig struct {
	// Backend selects the process provider: auto, procfs or gopsutil.
	Backend string `yaml:"backend"`
	// UnnormalizedCPU reports process CPU relative to one core.
	UnnormalizedCPU bool `yaml:"unnormalized_cpu"`
	// CurrentCPUTotal reports process CPU against busy ticks only.
	CurrentCPUTotal bool `yaml:"current_cpu_total"`
	// ConcurrentReads is the number of procfs reader workers; 0 or 1 reads sequentially.
	ConcurrentReads int `yaml:"concurrent_reads"`
	// IdentityRetry suppresses repeated lookups of unresolvable owners for
	// this long. 0 retries on every tick.
	IdentityRetry Duration `yaml:"identity_retry"`
}

// FeatureConfig toggles optional collectors.
type FeatureConfig struct {
	GPU         bool `yaml:"gpu"`
	ZFS         bool `yaml:"zfs"`
	Network     bool `yaml:"network"`
	Disk        bool `yaml:"disk"`
	Temperature bool `yaml:"temperature"`
}

// BufferConfig holds local snapshot buffer settings.
type BufferConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Dir       string `yaml:"dir"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Collection: CollectionConfig{
			Interval:      Duration{1 * time.Second},
			BatchInterval: Duration{30 * time.Second},
			TopProcesses:  15,
		},
		Processes: ProcessConfig{
			Backend: "auto",
		},
		Features: FeatureConfig{
			GPU:         true,
			ZFS:         true,
			Network:     true,
			Disk:        true,
			Temperature: true,
		},
		Buffer: BufferConfig{
			Enabled:   true,
			Dir:       "./buffer",
			MaxSizeMB: 50,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromBytes parses YAML configuration from a byte slice and merges with defaults.
// Environment variables take highest precedence and override values from the byte slice.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config data: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads configuration from a YAML file and merges with defaults.
// If path is empty or the file does not exist, only defaults and environment
// variables are used.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromBytes(nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		return LoadFromBytes(nil)
	}

	return LoadFromBytes(data)
}

// CLIOverrides holds values from command-line flags.
// Zero values are treated as "not set" and skipped.
type CLIOverrides struct {
	Interval time.Duration
	LogLevel string
}

// Locate searches standard config file paths and returns the first one found.
// Returns empty string if no config file exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadLayered loads configuration with the full precedence chain:
// CLI flags > env vars > YAML file > defaults.
//
// An optional configPath argument controls file discovery:
//   - omitted        → auto-discover via Locate()
//   - explicit value  → use that path ("" means no file)
func LoadLayered(cli CLIOverrides, configPath ...string) (*Config, error) {
	var filePath string
	if len(configPath) > 0 {
		filePath = configPath[0]
	} else {
		filePath = Locate()
	}

	cfg, err := Load(filePath)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", filePath, err)
	}

	if cli.Interval > 0 {
		cfg.Collection.Interval = Duration{cli.Interval}
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}

	return cfg, nil
}

// WriteConfig serializes the config to a YAML file at the given path.
// Creates parent directories if needed.
func WriteConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0640)
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) error {
	if level := os.Getenv("HV_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if interval := os.Getenv("HV_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return fmt.Errorf("HV_INTERVAL: %w", err)
		}
		cfg.Collection.Interval = Duration{d}
	}
	if dir := os.Getenv("HV_BUFFER_DIR"); dir != "" {
		cfg.Buffer.Dir = dir
	}
	return nil
}

var (
	validBackends  = map[string]bool{"auto": true, "procfs": true, "gopsutil": true}
	validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
)

// Validate checks that the configuration can be run.
func (c *Config) Validate() error {
	if c.Collection.Interval.Duration <= 0 {
		return fmt.Errorf("collection.interval must be positive (got %s)", c.Collection.Interval)
	}
	if c.Collection.BatchInterval.Duration <= 0 {
		return fmt.Errorf("collection.batch_interval must be positive (got %s)", c.Collection.BatchInterval)
	}
	if c.Collection.TopProcesses < 0 {
		return fmt.Errorf("collection.top_processes must not be negative (got %d)", c.Collection.TopProcesses)
	}
	if !validBackends[c.Processes.Backend] {
		return fmt.Errorf("processes.backend must be auto, procfs or gopsutil (got %q)", c.Processes.Backend)
	}
	if c.Processes.ConcurrentReads < 0 {
		return fmt.Errorf("processes.concurrent_reads must not be negative (got %d)", c.Processes.ConcurrentReads)
	}
	if c.Processes.IdentityRetry.Duration < 0 {
		return fmt.Errorf("processes.identity_retry must not be negative (got %s)", c.Processes.IdentityRetry)
	}
	if c.Buffer.MaxSizeMB < 0 {
		return fmt.Errorf("buffer.max_size_mb must not be negative (got %d)", c.Buffer.MaxSizeMB)
	}
	if c.Buffer.Enabled && c.Buffer.Dir == "" {
		return fmt.Errorf("buffer.dir is required when the buffer is enabled")
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be debug, info, warn or error (got %q)", c.Logging.Level)
	}
	return nil
}
