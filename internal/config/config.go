// Package config loads the YAML configuration that declares input roots,
// output locations, engine settings and the pipelines to run.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/retry"
)

// CurrentVersion is the configuration format written by Init.
const CurrentVersion = "1"

// Config is the complete configuration file.
type Config struct {
	Version   string           `yaml:"version"`
	Input     InputConfig      `yaml:"input"`
	Output    OutputConfig     `yaml:"output"`
	Engine    EngineConfig     `yaml:"engine"`
	Tracker   TrackerConfig    `yaml:"tracker"`
	Logging   LoggingConfig    `yaml:"logging"`
	Metrics   MetricsConfig    `yaml:"metrics,omitempty"`
	Notify    *NotifyConfig    `yaml:"notify,omitempty"`
	Watch     WatchConfig      `yaml:"watch,omitempty"`
	Settings  map[string]any   `yaml:"settings,omitempty"`
	Pipelines []PipelineConfig `yaml:"pipelines"`

	// Path of the file the configuration was read from, if any.
	path string
}

// InputConfig lists the directories modules read from by default.
type InputConfig struct {
	Roots []string `yaml:"roots"`
}

// OutputConfig holds the written-site and scratch locations.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Temp      string `yaml:"temp"`
	Cache     string `yaml:"cache"`
}

// EngineConfig controls execution.
type EngineConfig struct {
	Serial       bool `yaml:"serial"`
	Concurrency  int  `yaml:"concurrency"`
	ProcessCache bool `yaml:"process_cache"`
}

// TrackerConfig selects where write history is persisted between runs.
type TrackerConfig struct {
	Backend TrackerBackend `yaml:"backend"`
	Path    string         `yaml:"path"`
}

// MetricsConfig enables Prometheus export.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Textfile string `yaml:"textfile,omitempty"`
	Listen   string `yaml:"listen,omitempty"`
	Path     string `yaml:"path,omitempty"`
}

// NotifyConfig publishes a run summary to NATS after every run.
type NotifyConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
	Timeout string `yaml:"timeout,omitempty"`
	// Retries is the number of extra publish attempts after a failure.
	Retries int    `yaml:"retries,omitempty"`
	Backoff string `yaml:"backoff,omitempty"`
}

// WatchConfig drives the watch command.
type WatchConfig struct {
	Debounce string `yaml:"debounce,omitempty"`
	Interval string `yaml:"interval,omitempty"`
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string { return c.path }

// Load reads, normalizes, defaults and validates the configuration at path.
// Environment variables from .env files next to the working directory and the
// configuration file are loaded first, and ${VAR} references are expanded.
func Load(path string) (*Config, error) {
	dir := filepath.Dir(path)
	for _, f := range LoadEnvFiles(".", dir) {
		slog.Debug("Loaded environment file", slog.String("path", f))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ferrors.ConfigError(fmt.Sprintf("configuration file not found: %s", path)).
				WithContext("path", path).
				Build()
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	cfg.path = path
	if err := cfg.resolvePaths(dir); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a configuration, expanding environment references, then runs
// the normalization, default and validation passes. Relative paths are left
// as written.
func Parse(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to decode configuration").Build()
	}

	if cfg.Version != "" && !strings.HasPrefix(cfg.Version, CurrentVersion) {
		return nil, ferrors.ConfigError(fmt.Sprintf("unsupported configuration version: %s (expected %s)", cfg.Version, CurrentVersion)).
			Build()
	}

	res, err := NormalizeConfig(&cfg)
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		slog.Warn("Configuration normalized", slog.String("detail", w))
	}
	if err := applyDefaults(&cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolvePaths anchors relative locations at the configuration directory.
func (c *Config) resolvePaths(base string) error {
	abs, err := filepath.Abs(base)
	if err != nil {
		return fmt.Errorf("resolve config directory: %w", err)
	}
	anchor := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(abs, p)
	}
	for i, r := range c.Input.Roots {
		c.Input.Roots[i] = anchor(r)
	}
	c.Output.Directory = anchor(c.Output.Directory)
	c.Output.Temp = anchor(c.Output.Temp)
	c.Output.Cache = anchor(c.Output.Cache)
	c.Tracker.Path = anchor(c.Tracker.Path)
	c.Metrics.Textfile = anchor(c.Metrics.Textfile)
	return nil
}

// DebounceDuration returns the parsed watch debounce.
func (w WatchConfig) DebounceDuration() time.Duration { return mustDuration(w.Debounce) }

// IntervalDuration returns the parsed rebuild interval; zero disables it.
func (w WatchConfig) IntervalDuration() time.Duration { return mustDuration(w.Interval) }

// TimeoutDuration returns the parsed publish timeout.
func (n NotifyConfig) TimeoutDuration() time.Duration { return mustDuration(n.Timeout) }

// RetryPolicy returns the publish retry schedule.
func (n NotifyConfig) RetryPolicy() retry.Policy {
	mode, err := retry.ParseBackoffMode(n.Backoff)
	if err != nil {
		mode = ""
	}
	return retry.NewPolicy(mode, 0, 0, n.Retries)
}

// mustDuration parses values that validation has already checked.
func mustDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
