package observability

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/sitepipe/internal/logfields"
)

// Span times one unit of work, usually a phase, and logs it on End.
type Span struct {
	name   string
	logger *slog.Logger
	start  time.Time
	attrs  []slog.Attr
	err    error
}

type spanKey struct{}

// StartSpan starts a span logging through the run-scoped logger of ctx.
func StartSpan(ctx context.Context, logger *slog.Logger, name string) (context.Context, *Span) {
	s := &Span{
		name:   name,
		logger: Logger(ctx, logger),
		start:  time.Now(),
	}
	return context.WithValue(ctx, spanKey{}, s), s
}

// SpanFromContext returns the innermost span of ctx.
func SpanFromContext(ctx context.Context) (*Span, bool) {
	s, ok := ctx.Value(spanKey{}).(*Span)
	return s, ok
}

// SetAttribute attaches a field reported when the span ends.
func (s *Span) SetAttribute(key string, value any) {
	s.attrs = append(s.attrs, slog.Any(key, value))
}

// RecordError marks the span failed. Nil is ignored.
func (s *Span) RecordError(err error) {
	if err != nil {
		s.err = err
	}
}

// End logs the span at debug level, or warn when it failed, and returns its duration.
func (s *Span) End() time.Duration {
	d := time.Since(s.start)
	attrs := append([]slog.Attr{slog.String("span", s.name), logfields.Duration(d)}, s.attrs...)
	level := slog.LevelDebug
	msg := "Span ended"
	if s.err != nil {
		level = slog.LevelWarn
		msg = "Span failed"
		attrs = append(attrs, logfields.Error(s.err))
	}
	s.logger.LogAttrs(context.Background(), level, msg, attrs...)
	return d
}

// Name returns the span name.
func (s *Span) Name() string { return s.name }

// Err returns the recorded error.
func (s *Span) Err() error { return s.err }
