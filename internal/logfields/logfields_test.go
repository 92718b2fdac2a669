package logfields

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"RunID", KeyRunID, "r1", RunID("r1")},
		{"Pipeline", KeyPipeline, "posts", Pipeline("posts")},
		{"Phase", KeyPhase, "process", Phase("process")},
		{"Module", KeyModule, "markdown", Module("markdown")},
		{"State", KeyState, "done", State("done")},
		{"DocumentID", KeyDocumentID, "abc", DocumentID("abc")},
		{"Path", KeyPath, "out/a.html", Path("out/a.html")},
		{"Source", KeySource, "/input/a.md", Source("/input/a.md")},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if c.attr.Key != c.attrKey {
				t.Fatalf("key mismatch: got %s want %s", c.attr.Key, c.attrKey)
			}
			if c.attr.Value.String() != c.attrVal {
				t.Fatalf("value mismatch: got %s want %s", c.attr.Value.String(), c.attrVal)
			}
		})
	}
}

func TestNumericHelpers(t *testing.T) {
	if a := Documents(3); a.Key != KeyDocuments || a.Value.Int64() != 3 {
		t.Fatalf("unexpected documents attr: %v", a)
	}
	if a := Writes(5); a.Key != KeyWrites || a.Value.Int64() != 5 {
		t.Fatalf("unexpected writes attr: %v", a)
	}
	if a := ActualWrites(2); a.Key != KeyActual || a.Value.Int64() != 2 {
		t.Fatalf("unexpected actual writes attr: %v", a)
	}
	if a := Duration(1500 * time.Millisecond); a.Value.Int64() != 1500 {
		t.Fatalf("unexpected duration attr: %v", a)
	}
}

func TestErrorHelper(t *testing.T) {
	if a := Error(nil); a.Value.String() != "" {
		t.Fatalf("expected empty error value, got %q", a.Value.String())
	}
	if a := Error(errors.New("boom")); a.Value.String() != "boom" {
		t.Fatalf("expected boom, got %q", a.Value.String())
	}
}
