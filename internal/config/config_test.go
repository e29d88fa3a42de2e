package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadLayered_CLIOverridesEverything(t *testing.T) {
	path := writeFile(t, "collection:\n  interval: 5s\nlogging:\n  level: warn\n")
	t.Setenv("HV_INTERVAL", "3s")
	t.Setenv("HV_LOG_LEVEL", "error")
	cli := CLIOverrides{Interval: 250 * time.Millisecond, LogLevel: "debug"}

	cfg, err := LoadLayered(cli, path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Collection.Interval.Duration != 250*time.Millisecond {
		t.Errorf("Interval = %v, want CLI override", cfg.Collection.Interval.Duration)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want CLI override", cfg.Logging.Level)
	}
}

func TestLoadLayered_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "collection:\n  interval: 5s\nbuffer:\n  dir: /from/file\n")
	t.Setenv("HV_INTERVAL", "3s")
	t.Setenv("HV_BUFFER_DIR", "/from/env")

	cfg, err := LoadLayered(CLIOverrides{}, path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Collection.Interval.Duration != 3*time.Second {
		t.Errorf("Interval = %v, want env override", cfg.Collection.Interval.Duration)
	}
	if cfg.Buffer.Dir != "/from/env" {
		t.Errorf("Dir = %q, want env override", cfg.Buffer.Dir)
	}
}

func TestLoadLayered_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
collection:
  top_processes: 40
processes:
  backend: gopsutil
  unnormalized_cpu: true
  concurrent_reads: 8
  identity_retry: 1m
features:
  gpu: false
`)

	cfg, err := LoadLayered(CLIOverrides{}, path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Collection.TopProcesses != 40 {
		t.Errorf("TopProcesses = %d, want 40", cfg.Collection.TopProcesses)
	}
	if cfg.Processes.Backend != "gopsutil" || !cfg.Processes.UnnormalizedCPU || cfg.Processes.ConcurrentReads != 8 {
		t.Errorf("Processes = %+v, want file values", cfg.Processes)
	}
	if cfg.Processes.IdentityRetry.Duration != time.Minute {
		t.Errorf("IdentityRetry = %v, want 1m", cfg.Processes.IdentityRetry.Duration)
	}
	if cfg.Features.GPU {
		t.Error("GPU feature should be disabled by file")
	}
	if !cfg.Features.ZFS {
		t.Error("ZFS feature should keep its default")
	}
	if cfg.Collection.Interval.Duration != time.Second {
		t.Errorf("Interval = %v, want 1s default", cfg.Collection.Interval.Duration)
	}
}

func TestLoadLayered_DefaultsWhenEmpty(t *testing.T) {
	cfg, err := LoadLayered(CLIOverrides{}, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Collection.Interval.Duration != time.Second {
		t.Errorf("Interval = %v, want 1s default", cfg.Collection.Interval.Duration)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Processes.Backend != "auto" {
		t.Errorf("Backend = %q, want auto", cfg.Processes.Backend)
	}
}

func TestLoadFromBytes_Errors(t *testing.T) {
	if _, err := LoadFromBytes([]byte("collection:\n  interval: soon\n")); err == nil {
		t.Error("expected error for bad duration")
	}

	t.Setenv("HV_INTERVAL", "often")
	_, err := LoadFromBytes(nil)
	if err == nil || !strings.Contains(err.Error(), "HV_INTERVAL") {
		t.Errorf("err = %v, want HV_INTERVAL error", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero interval", func(c *Config) { c.Collection.Interval = Duration{} }, "collection.interval"},
		{"negative batch", func(c *Config) { c.Collection.BatchInterval = Duration{-time.Second} }, "collection.batch_interval"},
		{"negative top", func(c *Config) { c.Collection.TopProcesses = -1 }, "collection.top_processes"},
		{"bad backend", func(c *Config) { c.Processes.Backend = "wmi" }, "processes.backend"},
		{"negative workers", func(c *Config) { c.Processes.ConcurrentReads = -2 }, "processes.concurrent_reads"},
		{"negative retry", func(c *Config) { c.Processes.IdentityRetry = Duration{-time.Second} }, "processes.identity_retry"},
		{"negative buffer", func(c *Config) { c.Buffer.MaxSizeMB = -1 }, "buffer.max_size_mb"},
		{"buffer without dir", func(c *Config) { c.Buffer.Dir = "" }, "buffer.dir"},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error mentioning %s", err, tt.want)
			}
		})
	}
}

func TestWriteConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.ID = "bench-01"
	cfg.Collection.Interval = Duration{2500 * time.Millisecond}

	if err := WriteConfig(cfg, path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "interval: 2.5s") {
		t.Errorf("config file missing duration string:\n%s", data)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ID != "bench-01" || loaded.Collection.Interval.Duration != 2500*time.Millisecond {
		t.Errorf("loaded = %+v, want written values", loaded.Collection)
	}
}
