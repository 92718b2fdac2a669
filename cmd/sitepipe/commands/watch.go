package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitepipe/internal/config"
	"git.home.luguber.info/inful/sitepipe/internal/daemon"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
	"git.home.luguber.info/inful/sitepipe/internal/metrics"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Listen   string `help:"Serve metrics, /healthz and /status on this address (overrides metrics.listen)"`
	Interval string `help:"Also rebuild on this interval, e.g. 10m (overrides watch.interval)"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if w.Interval != "" {
		cfg.Watch.Interval = w.Interval
		if err := config.ValidateConfig(cfg); err != nil {
			return err
		}
	}
	logger := configureLogger(cfg, root.Verbose)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	b := newRebuilder(root.Config, cfg, logger)
	defer b.close()

	listen := cfg.Metrics.Listen
	if w.Listen != "" {
		listen = w.Listen
	}
	var reg *prom.Registry
	if b.recorder != nil {
		reg = b.recorder.Registry()
	}
	d, err := daemon.New(b.build, daemon.Options{
		WatchRoots: cfg.Input.Roots,
		WatchFiles: []string{cfg.Path()},
		Ignore:     []string{cfg.Output.Directory, cfg.Output.Cache, cfg.Output.Temp},
		Debounce:   cfg.Watch.DebounceDuration(),
		Interval:   cfg.Watch.IntervalDuration(),
		Listen:     listen,
		Path:       cfg.Metrics.Path,
		Registry:   reg,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	return d.Run(ctx)
}

// rebuilder keeps one engine alive between builds so the write tracker and
// process cache carry over, and reassembles it when the configuration file
// changes in a way that matters.
type rebuilder struct {
	path     string
	logger   *slog.Logger
	recorder *metrics.PrometheusRecorder
	load     func(string) (*config.Config, error)
	opts     appOptions

	mu       sync.Mutex
	cfg      *config.Config
	snapshot string
	app      *app
}

func newRebuilder(path string, cfg *config.Config, logger *slog.Logger) *rebuilder {
	b := &rebuilder{
		path:     path,
		logger:   logger,
		load:     config.Load,
		cfg:      cfg,
		snapshot: cfg.Snapshot(),
	}
	if cfg.Metrics.Enabled {
		b.recorder = metrics.NewPrometheusRecorder(nil)
	}
	return b
}

func (b *rebuilder) build(ctx context.Context, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if reason != "initial" {
		b.reload()
	}
	if b.app == nil {
		opts := b.opts
		opts.recorder = b.recorder
		a, err := newApp(b.cfg, b.logger, opts)
		if err != nil {
			return err
		}
		b.app = a
	}
	_, err := b.app.Run(ctx)
	return err
}

// reload re-reads the configuration. A broken file keeps the previous one.
func (b *rebuilder) reload() {
	cfg, err := b.load(b.path)
	if err != nil {
		b.logger.Warn("Configuration reload failed, keeping previous configuration", logfields.Error(err))
		return
	}
	snap := cfg.Snapshot()
	if snap == b.snapshot {
		return
	}
	b.logger.Info("Configuration changed, rebuilding engine", slog.String("config", b.path))
	b.cfg = cfg
	b.snapshot = snap
	if b.app != nil {
		b.app.Close()
		b.app = nil
	}
}

func (b *rebuilder) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.app != nil {
		b.app.Close()
		b.app = nil
	}
}
