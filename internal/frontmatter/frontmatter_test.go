package frontmatter

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		present bool
		body    string
		title   any
	}{
		{"no front matter", "# Title\n", false, "# Title\n", nil},
		{"yaml block", "---\ntitle: Hello\n---\nbody\n", true, "body\n", "Hello"},
		{"crlf", "---\r\ntitle: Hi\r\n---\r\nbody\r\n", true, "body\r\n", "Hi"},
		{"empty block", "---\n---\nbody", true, "body", nil},
		{"block at end of file", "---\ntitle: End\n---", true, "", "End"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Parse([]byte(tt.in))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if b.Present != tt.present {
				t.Fatalf("Present = %v, want %v", b.Present, tt.present)
			}
			if string(b.Body) != tt.body {
				t.Fatalf("Body = %q, want %q", b.Body, tt.body)
			}
			if got := b.Fields["title"]; got != tt.title {
				t.Fatalf("title = %v, want %v", got, tt.title)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse([]byte("---\ntitle: x\nbody")); !errors.Is(err, ErrUnterminated) {
		t.Fatalf("expected ErrUnterminated, got %v", err)
	}
	if _, err := Parse([]byte("---\ntitle: [unclosed\n---\n")); err == nil {
		t.Fatal("expected YAML error")
	}
}

func TestMarshalSortsKeysRecursively(t *testing.T) {
	out, err := Marshal(map[string]any{
		"zeta":  1,
		"alpha": map[string]any{"b": true, "a": "x"},
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := "alpha:\n  a: x\n  b: true\nzeta: 1\n"
	if string(out) != want {
		t.Fatalf("Marshal = %q, want %q", out, want)
	}
}

func TestCanonicalExcludesKeys(t *testing.T) {
	got, err := Canonical(map[string]any{"title": "T", "fingerprint": "abc", "lastmod": "2024-01-01"}, "fingerprint", "lastmod")
	if err != nil {
		t.Fatalf("Canonical: %v", err)
	}
	if got != "title: T" {
		t.Fatalf("Canonical = %q", got)
	}
}

func TestJoinRoundTrip(t *testing.T) {
	out, err := Join(map[string]any{"title": "T"}, []byte("body\n"))
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	b, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if b.Fields["title"] != "T" || string(b.Body) != "body\n" {
		t.Fatalf("round trip mismatch: %+v", b)
	}
}
