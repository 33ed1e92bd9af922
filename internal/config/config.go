// Package config loads service configuration from an optional YAML file and
// RESEARCH_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	Collect  CollectConfig  `koanf:"collect"`
	Output   OutputConfig   `koanf:"output"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // memory, sqlite
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type PipelineConfig struct {
	Timeouts TimeoutConfig `koanf:"timeouts"`
	Retry    RetryConfig   `koanf:"retry"`
}

// TimeoutConfig overrides per-stage timeout budgets; empty values keep the
// registry defaults. Values are duration strings like "30s".
type TimeoutConfig struct {
	Collect    string `koanf:"collect"`
	Verify     string `koanf:"verify"`
	Synthesize string `koanf:"synthesize"`
	Render     string `koanf:"render"`
}

// RetryConfig configures the optional stage retry wrapper. Attempts is the
// total invocation count per stage; 1 disables retries.
type RetryConfig struct {
	Attempts int    `koanf:"attempts"`
	Backoff  string `koanf:"backoff"`
}

type CollectConfig struct {
	FanoutLimit int `koanf:"fanout_limit"`
}

type OutputConfig struct {
	Dir string `koanf:"dir"`
}

// Load reads configuration. path may be empty or point to a YAML file;
// environment variables override file values.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Default values
	k.Set("server.port", 8080)
	k.Set("storage.type", "memory")
	k.Set("storage.sqlite.path", "./data/research.db")
	k.Set("pipeline.retry.attempts", 1)
	k.Set("pipeline.retry.backoff", "2s")
	k.Set("collect.fanout_limit", 4)
	k.Set("output.dir", "reports")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider("RESEARCH_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "RESEARCH_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// StageTimeouts parses the configured overrides, skipping empty entries.
func (t TimeoutConfig) StageTimeouts() (map[string]time.Duration, error) {
	out := make(map[string]time.Duration)
	for stage, raw := range map[string]string{
		"collect":    t.Collect,
		"verify":     t.Verify,
		"synthesize": t.Synthesize,
		"render":     t.Render,
	} {
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s timeout %q: %w", stage, raw, err)
		}
		out[stage] = d
	}
	return out, nil
}

// BackoffDuration parses the retry backoff, defaulting to zero when unset.
func (r RetryConfig) BackoffDuration() (time.Duration, error) {
	if r.Backoff == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(r.Backoff)
	if err != nil {
		return 0, fmt.Errorf("invalid retry backoff %q: %w", r.Backoff, err)
	}
	return d, nil
}
