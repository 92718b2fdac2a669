package config

import (
	"path/filepath"
)

// DefaultApplier fills unset fields of one configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// DefaultApplierChain runs appliers in registration order.
type DefaultApplierChain struct {
	appliers []DefaultApplier
}

// NewDefaultApplier returns the chain used by Load.
func NewDefaultApplier() *DefaultApplierChain {
	return &DefaultApplierChain{appliers: []DefaultApplier{
		&InputDefaultApplier{},
		&OutputDefaultApplier{},
		&TrackerDefaultApplier{},
		&LoggingDefaultApplier{},
		&MetricsDefaultApplier{},
		&NotifyDefaultApplier{},
		&WatchDefaultApplier{},
	}}
}

// ApplyDefaults runs every applier.
func (c *DefaultApplierChain) ApplyDefaults(cfg *Config) error {
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	for _, a := range c.appliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

func applyDefaults(cfg *Config) error {
	return NewDefaultApplier().ApplyDefaults(cfg)
}

// InputDefaultApplier defaults the input roots.
type InputDefaultApplier struct{}

func (InputDefaultApplier) Domain() string { return "input" }

func (InputDefaultApplier) ApplyDefaults(cfg *Config) error {
	if len(cfg.Input.Roots) == 0 {
		cfg.Input.Roots = []string{"content"}
	}
	return nil
}

// OutputDefaultApplier defaults the output, temp and cache directories.
type OutputDefaultApplier struct{}

func (OutputDefaultApplier) Domain() string { return "output" }

func (OutputDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = "public"
	}
	if cfg.Output.Cache == "" {
		cfg.Output.Cache = ".sitepipe"
	}
	if cfg.Output.Temp == "" {
		cfg.Output.Temp = filepath.Join(cfg.Output.Cache, "tmp")
	}
	return nil
}

// TrackerDefaultApplier places the snapshot inside the cache directory.
type TrackerDefaultApplier struct{}

func (TrackerDefaultApplier) Domain() string { return "tracker" }

func (TrackerDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Tracker.Backend == "" {
		cfg.Tracker.Backend = TrackerBackendJSON
	}
	if cfg.Tracker.Path == "" && cfg.Tracker.Backend != TrackerBackendNone {
		cfg.Tracker.Path = filepath.Join(cfg.Output.Cache, cfg.Tracker.Backend.defaultFile())
	}
	return nil
}

// LoggingDefaultApplier defaults to info-level text logs.
type LoggingDefaultApplier struct{}

func (LoggingDefaultApplier) Domain() string { return "logging" }

func (LoggingDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}
	return nil
}

// MetricsDefaultApplier defaults the scrape path.
type MetricsDefaultApplier struct{}

func (MetricsDefaultApplier) Domain() string { return "metrics" }

func (MetricsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	return nil
}

// NotifyDefaultApplier defaults subject and timeout when notification is on.
type NotifyDefaultApplier struct{}

func (NotifyDefaultApplier) Domain() string { return "notify" }

func (NotifyDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Notify == nil {
		return nil
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = "sitepipe.runs"
	}
	if cfg.Notify.Timeout == "" {
		cfg.Notify.Timeout = "5s"
	}
	return nil
}

// WatchDefaultApplier defaults the change debounce.
type WatchDefaultApplier struct{}

func (WatchDefaultApplier) Domain() string { return "watch" }

func (WatchDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = "500ms"
	}
	return nil
}
