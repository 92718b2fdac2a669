package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitepipe/internal/content"
	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/fileio"
	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
	"git.home.luguber.info/inful/sitepipe/internal/metrics"
	"git.home.luguber.info/inful/sitepipe/internal/observability"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
	"git.home.luguber.info/inful/sitepipe/internal/writetracker"
)

// Settings control scheduling for every run of an engine.
type Settings struct {
	// Serial disables the worker pool; documents are handled one at a time
	// in input order.
	Serial bool
	// Concurrency bounds per-document workers. Zero means GOMAXPROCS.
	Concurrency int
	// ProcessCache lets pipelines whose inputs did not change since the
	// previous run reuse their Process outputs.
	ProcessCache bool
	// Global becomes the bottom metadata layer of every document.
	Global map[string]any
	// TempDir receives scratch content created by modules.
	TempDir string
}

// Notifier receives the report at the end of every run.
type Notifier interface {
	Notify(ctx context.Context, report *Report) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the base logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithFileSystem sets the file system handed to modules.
func WithFileSystem(fs fileio.FileSystem) Option {
	return func(e *Engine) {
		if fs != nil {
			e.fs = fs
		}
	}
}

// WithTracker sets the write tracker.
func WithTracker(t *writetracker.Tracker) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracker = t
		}
	}
}

// WithSnapshotStore persists the tracker after every run.
func WithSnapshotStore(s writetracker.SnapshotStore) Option {
	return func(e *Engine) { e.snapshots = s }
}

// WithNotifier publishes run reports.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// Engine owns pipelines, the document factory and the write tracker.
// Runs are serialized; an Engine never executes two runs at once.
type Engine struct {
	settings  Settings
	logger    *slog.Logger
	recorder  metrics.Recorder
	fs        fileio.FileSystem
	tracker   *writetracker.Tracker
	snapshots writetracker.SnapshotStore
	notifier  Notifier
	factory   *document.Factory

	mu        sync.Mutex
	pipelines []*pipeline.Pipeline
	byKey     map[string]*pipeline.Pipeline
	cache     map[string]*cacheEntry
	loaded    bool
}

// New creates an engine.
func New(settings Settings, opts ...Option) *Engine {
	if settings.Concurrency <= 0 {
		settings.Concurrency = runtime.GOMAXPROCS(0)
	}
	e := &Engine{
		settings: settings,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
		byKey:    make(map[string]*pipeline.Pipeline),
		cache:    make(map[string]*cacheEntry),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.fs == nil {
		e.fs = fileio.NewOS()
	}
	if e.tracker == nil {
		e.tracker = writetracker.New(writetracker.Roots{Temp: settings.TempDir}, e.logger)
	}
	e.factory = document.NewFactory(content.NewLifetimes(e.logger), settings.Global)
	return e
}

// Factory returns the engine's document factory.
func (e *Engine) Factory() *document.Factory { return e.factory }

// Tracker returns the engine's write tracker.
func (e *Engine) Tracker() *writetracker.Tracker { return e.tracker }

// FileSystem returns the file system handed to modules.
func (e *Engine) FileSystem() fileio.FileSystem { return e.fs }

// Settings returns the engine settings with defaults applied.
func (e *Engine) Settings() Settings { return e.settings }

// Add registers a pipeline. Names are unique regardless of case.
func (e *Engine) Add(p *pipeline.Pipeline) error {
	if p == nil || p.Name == "" {
		return ferrors.ConfigError("pipeline name is required").Build()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	key := pipeline.Key(p.Name)
	if existing, ok := e.byKey[key]; ok {
		return ferrors.ConfigError(fmt.Sprintf("duplicate pipeline name %q", p.Name)).
			WithContext("existing", existing.Name).
			Build()
	}
	e.byKey[key] = p
	e.pipelines = append(e.pipelines, p)
	return nil
}

// Order validates the graph and returns pipeline names in execution order.
func (e *Engine) Order() ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	order, err := validate(e.pipelines)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(order))
	for i, p := range order {
		names[i] = p.Name
	}
	return names, nil
}

// Pipelines returns the registered pipelines in registration order.
func (e *Engine) Pipelines() []*pipeline.Pipeline {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*pipeline.Pipeline, len(e.pipelines))
	copy(out, e.pipelines)
	return out
}

// Run executes every pipeline once. Graph errors are returned before any
// phase runs and yield a nil report. Otherwise the report is always returned,
// together with the joined pipeline errors.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, err := validate(e.pipelines)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx = observability.WithRunID(ctx, runID)
	logger := observability.Logger(ctx, e.logger)

	if e.snapshots != nil && !e.loaded {
		if err := e.tracker.Load(ctx, e.snapshots); err != nil {
			return nil, err
		}
		e.loaded = true
	}
	e.tracker.Reset()
	e.recorder.SetWorkerConcurrency(e.workerLimit())

	logger.Info("Run started", slog.Int("pipelines", len(order)))
	start := time.Now()

	r := newRun(e, order, logger)
	r.execute(ctx)

	report := r.report(runID)
	report.Duration = time.Since(start)
	report.TotalWrites = e.tracker.CurrentTotalWritesCount()
	report.ActualWrites = e.tracker.CurrentActualWritesCount()

	e.commitCache(r)
	disposed := e.factory.Drain(e.retainer())
	logger.Debug("Run documents disposed", logfields.Documents(disposed))

	// Persistence and notification run even when the run was canceled.
	finishCtx := context.WithoutCancel(ctx)
	if e.snapshots != nil {
		if err := e.tracker.Save(finishCtx, e.snapshots); err != nil {
			logger.Warn("Failed to save write snapshot", logfields.Error(err))
		}
	}

	e.recorder.ObserveRunDuration(report.Duration)
	e.recorder.AddWrites(report.TotalWrites, report.ActualWrites)
	for _, pr := range report.Pipelines {
		e.recorder.IncPipelineOutcome(pr.outcome())
	}

	level := slog.LevelInfo
	if !report.Succeeded() {
		level = slog.LevelWarn
	}
	logger.LogAttrs(ctx, level, "Run finished",
		logfields.Duration(report.Duration),
		logfields.Writes(report.TotalWrites),
		logfields.ActualWrites(report.ActualWrites),
		slog.Int("failed", report.FailedCount()))

	if e.notifier != nil {
		if err := e.notifier.Notify(finishCtx, report); err != nil {
			logger.Warn("Failed to publish run report", logfields.Error(err))
		}
	}
	return report, report.Err()
}

// Close disposes documents retained by the process cache.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]*cacheEntry)
	e.factory.Drain(nil)
	return nil
}

func (e *Engine) workerLimit() int {
	if e.settings.Serial {
		return 1
	}
	return e.settings.Concurrency
}
