package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitepipe/internal/engine"
	"git.home.luguber.info/inful/sitepipe/internal/fileio"
	"git.home.luguber.info/inful/sitepipe/internal/writetracker"
)

// EngineSettings converts the engine section.
func (c *Config) EngineSettings() engine.Settings {
	return engine.Settings{
		Serial:       c.Engine.Serial,
		Concurrency:  c.Engine.Concurrency,
		ProcessCache: c.Engine.ProcessCache,
		Global:       c.Settings,
		TempDir:      c.Output.Temp,
	}
}

// TrackerRoots returns the directories the write tracker filters on.
func (c *Config) TrackerRoots() writetracker.Roots {
	return writetracker.Roots{
		Output: c.Output.Directory,
		Temp:   c.Output.Temp,
		Cache:  c.Output.Cache,
	}
}

// OpenSnapshotStore returns the configured snapshot store, or nil when
// persistence is disabled. The closer releases the store's resources.
func (c *Config) OpenSnapshotStore(fsys fileio.FileSystem) (writetracker.SnapshotStore, io.Closer, error) {
	switch c.Tracker.Backend {
	case TrackerBackendNone:
		return nil, nopCloser{}, nil
	case TrackerBackendSQLite:
		if err := os.MkdirAll(filepath.Dir(c.Tracker.Path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create tracker directory: %w", err)
		}
		store, err := writetracker.NewSQLiteStore(c.Tracker.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return writetracker.NewJSONFileStore(fsys, c.Tracker.Path), nopCloser{}, nil
	}
}

// Snapshot returns a stable hash of the fields that affect what a run
// produces or where its write history lives. Logging, metrics, notification
// and watch settings are left out.
func (c *Config) Snapshot() string {
	if c == nil {
		return ""
	}
	view := struct {
		Input     InputConfig      `yaml:"input"`
		Output    OutputConfig     `yaml:"output"`
		Engine    EngineConfig     `yaml:"engine"`
		Tracker   TrackerConfig    `yaml:"tracker"`
		Settings  map[string]any   `yaml:"settings"`
		Pipelines []PipelineConfig `yaml:"pipelines"`
	}{c.Input, c.Output, c.Engine, c.Tracker, c.Settings, c.Pipelines}
	data, err := yaml.Marshal(view)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
