package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"git.home.luguber.info/inful/sitepipe/internal/config"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
	"git.home.luguber.info/inful/sitepipe/internal/fileio"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
	"git.home.luguber.info/inful/sitepipe/internal/metrics"
	"git.home.luguber.info/inful/sitepipe/internal/modules"
	"git.home.luguber.info/inful/sitepipe/internal/notify"
	"git.home.luguber.info/inful/sitepipe/internal/writetracker"
)

// app is an engine assembled from a configuration together with the
// resources it owns.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	engine   *engine.Engine
	recorder *metrics.PrometheusRecorder
	closers  []io.Closer
}

// appOptions overrides parts of the assembly, mainly for tests and watch mode.
type appOptions struct {
	fs fileio.FileSystem
	// recorder is reused across reloads so metrics register only once.
	recorder *metrics.PrometheusRecorder
	// notifier replaces the NATS notifier built from the configuration.
	notifier engine.Notifier
}

func newApp(cfg *config.Config, logger *slog.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	fsys := opts.fs
	if fsys == nil {
		fsys = fileio.NewOS(cfg.Input.Roots...)
	}

	pipelines, err := cfg.BuildPipelines(modules.NewRegistry())
	if err != nil {
		return nil, err
	}

	store, closer, err := cfg.OpenSnapshotStore(fsys)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closer)

	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithFileSystem(fsys),
		engine.WithTracker(writetracker.New(cfg.TrackerRoots(), logger)),
	}
	if store != nil {
		engineOpts = append(engineOpts, engine.WithSnapshotStore(store))
	}

	switch {
	case opts.notifier != nil:
		engineOpts = append(engineOpts, engine.WithNotifier(opts.notifier))
	case cfg.Notify != nil:
		n, err := notify.Connect(cfg.Notify.URL, cfg.Notify.Subject, cfg.Notify.TimeoutDuration(), logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		n.WithRetry(cfg.Notify.RetryPolicy())
		a.closers = append(a.closers, n)
		engineOpts = append(engineOpts, engine.WithNotifier(n))
	}

	if cfg.Metrics.Enabled {
		a.recorder = opts.recorder
		if a.recorder == nil {
			a.recorder = metrics.NewPrometheusRecorder(nil)
		}
		engineOpts = append(engineOpts, engine.WithRecorder(a.recorder))
	}

	a.engine = engine.New(cfg.EngineSettings(), engineOpts...)
	for _, p := range pipelines {
		if err := a.engine.Add(p); err != nil {
			a.Close()
			return nil, err
		}
	}
	if _, err := a.engine.Order(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Run executes one engine run and exports metrics when configured.
func (a *app) Run(ctx context.Context) (*engine.Report, error) {
	report, err := a.engine.Run(ctx)
	if a.recorder != nil && a.cfg.Metrics.Textfile != "" {
		if werr := metrics.WriteTextfile(a.recorder.Registry(), a.cfg.Metrics.Textfile); werr != nil {
			a.logger.Warn("Failed to write metrics textfile", logfields.Error(werr))
		}
	}
	return report, err
}

// Close releases the engine and every owned resource.
func (a *app) Close() {
	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			a.logger.Warn("Engine close failed", logfields.Error(err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("Resource close failed", logfields.Error(err))
		}
	}
	a.closers = nil
}

// configureLogger replaces the bootstrap logger with one built from cfg.
func configureLogger(cfg *config.Config, verbose bool) *slog.Logger {
	logger := cfg.Logging.NewLogger(os.Stderr, verbose)
	slog.SetDefault(logger)
	return logger
}

// printSummary writes a per-pipeline result table.
func printSummary(w io.Writer, report *engine.Report) {
	if report == nil {
		return
	}
	for _, p := range report.Pipelines {
		line := fmt.Sprintf("%-24s %-10s %8s", p.Name, p.State, p.Duration.Round(1e6))
		if p.ProcessSkipped {
			line += "  (process cached)"
		}
		if p.Err != nil {
			line += "  " + firstLine(p.Err.Error())
		}
		_, _ = fmt.Fprintln(w, line)
	}
	_, _ = fmt.Fprintf(w, "\n%d pipelines, %d failed, %d writes (%d changed) in %s\n",
		len(report.Pipelines), report.FailedCount(), report.TotalWrites, report.ActualWrites, report.Duration.Round(1e6))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
