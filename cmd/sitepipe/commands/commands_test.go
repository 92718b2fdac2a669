package commands

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepipe/internal/config"
	"git.home.luguber.info/inful/sitepipe/internal/engine"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newProject initializes a configuration and a small content tree in a
// temporary directory and returns the configuration path.
func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sitepipe.yaml")
	require.NoError(t, (&InitCmd{}).Run(&Global{}, &CLI{Config: cfgPath}))

	write := func(rel, body string) {
		p := filepath.Join(dir, "content", rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	write("index.md", "---\ntitle: Home\n---\n# Welcome\n")
	write("guide/intro.md", "# Intro\n\nSome text.\n")
	write("css/site.css", "body { margin: 0 }\n")
	return cfgPath
}

func TestInitRefusesToOverwrite(t *testing.T) {
	cfgPath := newProject(t)
	err := (&InitCmd{}).Run(&Global{}, &CLI{Config: cfgPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	require.NoError(t, (&InitCmd{Force: true}).Run(&Global{}, &CLI{Config: cfgPath}))
}

func TestBuildWritesSiteAndSkipsUnchangedOutputs(t *testing.T) {
	cfgPath := newProject(t)
	root := &CLI{Config: cfgPath}
	out := filepath.Join(filepath.Dir(cfgPath), "public")

	var first bytes.Buffer
	require.NoError(t, (&BuildCmd{Summary: true, out: &first}).Run(&Global{}, root))
	assert.Contains(t, first.String(), "2 pipelines, 0 failed, 3 writes (3 changed)")

	html, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "Welcome")
	assert.FileExists(t, filepath.Join(out, "guide", "intro.html"))
	assert.FileExists(t, filepath.Join(out, "css", "site.css"))

	// A fresh process reloads the persisted write history.
	var second bytes.Buffer
	require.NoError(t, (&BuildCmd{Summary: true, out: &second}).Run(&Global{}, root))
	assert.Contains(t, second.String(), "3 writes (0 changed)")
}

func TestBuildOverrides(t *testing.T) {
	cfg := config.Example()
	cfg.Engine.Concurrency = 8
	(&BuildCmd{Serial: true, Concurrency: 2, NoCache: true}).applyOverrides(cfg)
	assert.True(t, cfg.Engine.Serial)
	assert.Equal(t, 2, cfg.Engine.Concurrency)
	assert.False(t, cfg.Engine.ProcessCache)
}

func TestBuildReportsFailedPipelines(t *testing.T) {
	cfgPath := newProject(t)
	bad := filepath.Join(filepath.Dir(cfgPath), "content", "broken.md")
	require.NoError(t, os.WriteFile(bad, []byte("---\ntitle: [unterminated\n---\nbody\n"), 0o644))

	var buf bytes.Buffer
	err := (&BuildCmd{Summary: true, out: &buf}).Run(&Global{}, &CLI{Config: cfgPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline pages")
	assert.Contains(t, buf.String(), "1 failed")
	assert.FileExists(t, filepath.Join(filepath.Dir(cfgPath), "public", "css", "site.css"),
		"isolated pipelines still write")
}

func TestVisualizeCommand(t *testing.T) {
	cfgPath := newProject(t)

	var buf bytes.Buffer
	require.NoError(t, (&VisualizeCmd{Format: "mermaid", out: &buf}).Run(&Global{}, &CLI{Config: cfgPath}))
	assert.Contains(t, buf.String(), "graph TD")
	assert.Contains(t, buf.String(), "p_pages")

	buf.Reset()
	require.NoError(t, (&VisualizeCmd{List: true, out: &buf}).Run(&Global{}, &CLI{Config: cfgPath}))
	for _, f := range engine.SupportedFormats() {
		assert.Contains(t, buf.String(), string(f))
	}

	buf.Reset()
	require.NoError(t, (&VisualizeCmd{Modules: true, out: &buf}).Run(&Global{}, &CLI{Config: cfgPath}))
	assert.Contains(t, buf.String(), "read_files")

	target := filepath.Join(t.TempDir(), "graph.dot")
	buf.Reset()
	require.NoError(t, (&VisualizeCmd{Format: "dot", Output: target, out: &buf}).Run(&Global{}, &CLI{Config: cfgPath}))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "digraph Pipelines {"))
}

type countingNotifier struct{ reports int }

func (c *countingNotifier) Notify(context.Context, *engine.Report) error {
	c.reports++
	return nil
}

func TestRebuilderReloadsOnlyOnRelevantChanges(t *testing.T) {
	cfgPath := newProject(t)
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	n := &countingNotifier{}
	b := newRebuilder(cfgPath, cfg, quietLogger())
	b.opts = appOptions{notifier: n}
	t.Cleanup(b.close)

	ctx := context.Background()
	require.NoError(t, b.build(ctx, "initial"))
	first := b.app

	// Unchanged configuration keeps the engine and its write history.
	require.NoError(t, b.build(ctx, "change"))
	assert.Same(t, first, b.app)

	// A changed pipeline definition rebuilds the engine.
	changed := *cfg
	changed.Pipelines = cfg.Pipelines[:1]
	b.load = func(string) (*config.Config, error) { return &changed, nil }
	require.NoError(t, b.build(ctx, "change"))
	assert.NotSame(t, first, b.app)
	assert.Len(t, b.app.engine.Pipelines(), 1)

	// A broken configuration keeps the last good one.
	current := b.app
	b.load = func(string) (*config.Config, error) { return nil, assert.AnError }
	require.NoError(t, b.build(ctx, "change"))
	assert.Same(t, current, b.app)
	assert.Equal(t, 4, n.reports)
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "a", firstLine("a"))
	assert.Equal(t, "a ...", firstLine("a\nb"))
}
