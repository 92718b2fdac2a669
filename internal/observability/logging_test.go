package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	ctx = WithRunID(ctx, "run-1")
	ctx = WithPipeline(ctx, "posts")
	ctx = WithPhase(ctx, "process")

	lc := GetContext(ctx)
	if lc.RunID != "run-1" || lc.Pipeline != "posts" || lc.Phase != "process" {
		t.Fatalf("unexpected log context: %+v", lc)
	}
	if len(Attrs(ctx)) != 3 {
		t.Fatalf("expected 3 attrs, got %d", len(Attrs(ctx)))
	}
	if len(Attrs(context.Background())) != 0 {
		t.Fatal("expected no attrs for empty context")
	}
}

func TestLoggerDecoratesWithContext(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := WithPipeline(WithRunID(context.Background(), "run-9"), "assets")
	Logger(ctx, base).Info("phase complete")

	out := buf.String()
	if !strings.Contains(out, "run_id=run-9") || !strings.Contains(out, "pipeline=assets") {
		t.Fatalf("expected context attributes in output, got %q", out)
	}
}

func TestSpanEndLogsDuration(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, span := StartSpan(context.Background(), base, "phase.render")
	span.SetAttribute("documents", 4)
	if _, ok := SpanFromContext(ctx); !ok {
		t.Fatal("expected span in context")
	}
	if d := span.End(); d < 0 {
		t.Fatalf("unexpected negative duration %v", d)
	}
	if !strings.Contains(buf.String(), "span=phase.render") {
		t.Fatalf("expected span name in output, got %q", buf.String())
	}
}

func TestSpanRecordsFailure(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithPhase(WithPipeline(context.Background(), "pages"), "render")
	_, span := StartSpan(ctx, base, "phase")
	span.RecordError(nil)
	span.RecordError(errors.New("template missing"))
	span.End()

	out := buf.String()
	for _, want := range []string{"Span failed", "pipeline=pages", "phase=render", "template missing"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}
