// Package daemon keeps a site up to date: it rebuilds when inputs change or
// on a fixed interval and serves metrics and status over HTTP.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitepipe/internal/logfields"
)

// BuildFunc runs one build. reason describes what triggered it.
type BuildFunc func(ctx context.Context, reason string) error

// Options configures a Daemon.
type Options struct {
	// WatchRoots are watched recursively for changes.
	WatchRoots []string
	// WatchFiles are single files, such as the configuration file.
	WatchFiles []string
	// Ignore lists trees whose changes never trigger a build, such as the
	// output directory.
	Ignore   []string
	Debounce time.Duration
	// Interval schedules periodic rebuilds; zero disables them.
	Interval time.Duration
	// Listen serves Path (metrics), /healthz and /status when set.
	Listen   string
	Path     string
	Registry *prom.Registry
	Logger   *slog.Logger
}

// Status describes the most recent build.
type Status struct {
	Builds     int       `json:"builds"`
	Failures   int       `json:"failures"`
	Running    bool      `json:"running"`
	LastReason string    `json:"last_reason,omitempty"`
	LastStart  time.Time `json:"last_start,omitempty"`
	LastEnd    time.Time `json:"last_end,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
}

// Daemon serializes builds requested by the watcher, the scheduler and
// Trigger. Requests arriving during a build coalesce into one follow-up.
type Daemon struct {
	build    BuildFunc
	opts     Options
	logger   *slog.Logger
	requests chan string

	mu     sync.Mutex
	status Status
}

// New validates opts and returns a daemon.
func New(build BuildFunc, opts Options) (*Daemon, error) {
	if build == nil {
		return nil, errors.New("build function is required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if opts.Path == "" {
		opts.Path = "/metrics"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Daemon{
		build:    build,
		opts:     opts,
		logger:   opts.Logger,
		requests: make(chan string, 1),
	}, nil
}

// Trigger requests a build. It never blocks.
func (d *Daemon) Trigger(reason string) {
	select {
	case d.requests <- reason:
	default:
	}
}

// Status returns a copy of the current status.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Run performs an initial build, then rebuilds on demand until ctx is done.
// Build failures are logged and recorded; they do not stop the daemon.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	debouncer := NewDebouncer(d.opts.Debounce, d.Trigger)
	defer debouncer.Stop()

	if len(d.opts.WatchRoots) > 0 || len(d.opts.WatchFiles) > 0 {
		w, err := NewWatcher(d.opts.WatchRoots, d.opts.WatchFiles, d.opts.Ignore, d.logger)
		if err != nil {
			return err
		}
		defer func() { _ = w.Close() }()
		go w.Run(ctx, func(string) { debouncer.Trigger("change") })
		d.logger.Info("Watching for changes",
			slog.Int("roots", len(d.opts.WatchRoots)),
			slog.Duration("debounce", d.opts.Debounce))
	}

	if d.opts.Interval > 0 {
		s, err := NewScheduler(d.logger)
		if err != nil {
			return err
		}
		if _, err := s.SchedulePeriodicBuild(d.opts.Interval, d.Trigger); err != nil {
			return err
		}
		s.Start()
		defer func() {
			if err := s.Stop(); err != nil {
				d.logger.Warn("Scheduler shutdown failed", logfields.Error(err))
			}
		}()
	}

	if d.opts.Listen != "" {
		srv, err := d.startHTTP()
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer stop()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				d.logger.Warn("HTTP server shutdown failed", logfields.Error(err))
			}
		}()
	}

	d.runBuild(ctx, "initial")
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Daemon stopping")
			return nil
		case reason := <-d.requests:
			d.runBuild(ctx, reason)
		}
	}
}

func (d *Daemon) runBuild(ctx context.Context, reason string) {
	start := time.Now()
	d.mu.Lock()
	d.status.Running = true
	d.status.LastReason = reason
	d.status.LastStart = start
	d.mu.Unlock()

	d.logger.Info("Build started", slog.String("reason", reason))
	err := d.build(ctx, reason)

	d.mu.Lock()
	d.status.Running = false
	d.status.Builds++
	d.status.LastEnd = time.Now()
	d.status.LastError = ""
	if err != nil {
		d.status.Failures++
		d.status.LastError = err.Error()
	}
	d.mu.Unlock()

	if err != nil {
		if ctx.Err() == nil {
			d.logger.Error("Build failed", slog.String("reason", reason), logfields.Duration(time.Since(start)), logfields.Error(err))
		}
		return
	}
	d.logger.Info("Build finished", slog.String("reason", reason), logfields.Duration(time.Since(start)))
}

func (d *Daemon) startHTTP() (*http.Server, error) {
	srv := &http.Server{
		Addr:              d.opts.Listen,
		Handler:           d.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	ln, err := listen(d.opts.Listen)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", d.opts.Listen, err)
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("HTTP server failed", logfields.Error(err))
		}
	}()
	d.logger.Info("Serving metrics", slog.String("addr", ln.Addr().String()), slog.String("path", d.opts.Path))
	return srv, nil
}
