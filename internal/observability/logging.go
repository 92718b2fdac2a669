// Package observability scopes loggers and timing spans to the run, pipeline
// and phase being executed.
package observability

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/sitepipe/internal/logfields"
)

// LogContext is the run position carried through a context.
type LogContext struct {
	RunID    string
	Pipeline string
	Phase    string
}

type logContextKey struct{}

func update(ctx context.Context, set func(*LogContext)) context.Context {
	lc := GetContext(ctx)
	set(&lc)
	return context.WithValue(ctx, logContextKey{}, lc)
}

// WithRunID records the run identifier.
func WithRunID(ctx context.Context, runID string) context.Context {
	return update(ctx, func(lc *LogContext) { lc.RunID = runID })
}

// WithPipeline records the executing pipeline.
func WithPipeline(ctx context.Context, pipeline string) context.Context {
	return update(ctx, func(lc *LogContext) { lc.Pipeline = pipeline })
}

// WithPhase records the executing phase.
func WithPhase(ctx context.Context, phase string) context.Context {
	return update(ctx, func(lc *LogContext) { lc.Phase = phase })
}

// GetContext returns the run position stored in ctx.
func GetContext(ctx context.Context) LogContext {
	if lc, ok := ctx.Value(logContextKey{}).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

// Attrs returns the non-empty run position fields as slog attributes.
func Attrs(ctx context.Context) []slog.Attr {
	lc := GetContext(ctx)
	var attrs []slog.Attr
	if lc.RunID != "" {
		attrs = append(attrs, logfields.RunID(lc.RunID))
	}
	if lc.Pipeline != "" {
		attrs = append(attrs, logfields.Pipeline(lc.Pipeline))
	}
	if lc.Phase != "" {
		attrs = append(attrs, logfields.Phase(lc.Phase))
	}
	return attrs
}

// Logger returns base decorated with the run position carried by ctx.
// A nil base falls back to slog.Default().
func Logger(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	attrs := Attrs(ctx)
	if len(attrs) == 0 {
		return base
	}
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return base.With(args...)
}
