package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/modules"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
	"git.home.luguber.info/inful/sitepipe/internal/retry"
)

const sample = `
version: "1"
input:
  roots: [" content ", ""]
logging:
  level: WARNING
  format: JSON
tracker:
  backend: SQLite3
engine:
  concurrency: -3
settings:
  site_title: Example
pipelines:
  - name: pages
    input:
      - module: read_files
        args: {patterns: ["**/*.md"]}
    process:
      - Front_Matter
      - markdown
    write: [write_files]
  - name: feed
    dependencies: [pages]
    process:
      - module: from_pipelines
`

func TestParseNormalizesAndDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, []string{"content"}, cfg.Input.Roots)
	assert.Equal(t, LogLevelWarn, cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
	assert.Equal(t, TrackerBackendSQLite, cfg.Tracker.Backend)
	assert.Equal(t, filepath.Join(".sitepipe", "writes.db"), cfg.Tracker.Path)
	assert.Equal(t, 0, cfg.Engine.Concurrency)
	assert.Equal(t, "public", cfg.Output.Directory)
	assert.Equal(t, filepath.Join(".sitepipe", "tmp"), cfg.Output.Temp)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.DebounceDuration())
	assert.Zero(t, cfg.Watch.IntervalDuration())
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Nil(t, cfg.Notify)

	require.Len(t, cfg.Pipelines, 2)
	assert.Equal(t, "front_matter", cfg.Pipelines[0].Process[0].Name)
	assert.Nil(t, cfg.Pipelines[0].Process[0].Args)
	require.NotNil(t, cfg.Pipelines[0].Input[0].Args)
}

func TestBuildPipelines(t *testing.T) {
	cfg, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	ps, err := cfg.BuildPipelines(modules.NewRegistry())
	require.NoError(t, err)
	require.Len(t, ps, 2)

	pages := ps[0]
	assert.Equal(t, "pages", pages.Name)
	require.Len(t, pages.Modules(pipeline.PhaseInput), 1)
	assert.Equal(t, "read_files", pipeline.NameOf(pages.Modules(pipeline.PhaseInput)[0]))
	assert.Len(t, pages.Modules(pipeline.PhaseProcess), 2)
	assert.Len(t, pages.Modules(pipeline.PhaseWrite), 1)
	assert.Equal(t, []string{"pages"}, ps[1].Dependencies)
}

func TestBuildPipelinesUnknownModule(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
pipelines:
  - name: p
    render: [does_not_exist]
`))
	require.NoError(t, err)
	_, err = cfg.BuildPipelines(modules.NewRegistry())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
	assert.Contains(t, err.Error(), `pipeline "p" render module 1`)
}

func TestValidationCollectsProblems(t *testing.T) {
	_, err := Parse(strings.NewReader(`
tracker:
  backend: postgres
watch:
  debounce: soon
notify:
  url: ""
  retries: -1
  backoff: random
pipelines:
  - name: a
  - name: A
  - name: ""
`))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
	msg := err.Error()
	for _, want := range []string{
		`pipeline "A" duplicates "a"`,
		"pipelines[2].name: must not be empty",
		`invalid tracker backend "postgres"`,
		`watch.debounce: invalid duration "soon"`,
		"notify.url: must not be empty",
		"notify.retries",
		`invalid backoff mode "random"`,
	} {
		assert.Contains(t, msg, want)
	}
}

func TestNotifyRetryPolicy(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
notify:
  url: nats://localhost:4222
  retries: 3
  backoff: Linear
pipelines: [{name: a}]
`))
	require.NoError(t, err)
	require.NotNil(t, cfg.Notify)
	assert.Equal(t, "sitepipe.runs", cfg.Notify.Subject)

	p := cfg.Notify.RetryPolicy()
	assert.Equal(t, retry.BackoffLinear, p.Mode)
	assert.Equal(t, 3, p.MaxRetries)
	require.NoError(t, p.Validate())

	assert.Zero(t, NotifyConfig{}.RetryPolicy().MaxRetries)
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"no pipelines":   "version: \"1\"\n",
		"bad version":    "version: \"9\"\npipelines: [{name: a}]\n",
		"unknown field":  "pipelines: [{name: a}]\nbogus: true\n",
		"module no name": "pipelines: [{name: a, input: [{args: {x: 1}}]}]\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(src))
			require.Error(t, err)
		})
	}
}

func TestLoadExpandsEnvAndResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SITEPIPE_TEST_OUT=dist\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("SITEPIPE_TEST_OUT") })

	path := filepath.Join(dir, "sitepipe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
output:
  directory: ${SITEPIPE_TEST_OUT}
input:
  roots: [docs, /abs/root]
pipelines:
  - name: a
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path())
	assert.Equal(t, filepath.Join(dir, "dist"), cfg.Output.Directory)
	assert.Equal(t, []string{filepath.Join(dir, "docs"), "/abs/root"}, cfg.Input.Roots)
	assert.Equal(t, filepath.Join(dir, ".sitepipe", "writes.json"), cfg.Tracker.Path)

	roots := cfg.TrackerRoots()
	assert.Equal(t, cfg.Output.Directory, roots.Output)
	settings := cfg.EngineSettings()
	assert.Equal(t, cfg.Output.Temp, settings.TempDir)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestInitRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitepipe.yaml")
	require.NoError(t, Init(path, false))
	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	ps, err := cfg.BuildPipelines(modules.NewRegistry())
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.True(t, ps[1].Isolated)
	assert.Len(t, ps[0].Modules(pipeline.PhaseProcess), 4)
}

func TestSnapshotTracksBuildFields(t *testing.T) {
	a, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	b, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Equal(t, a.Snapshot(), b.Snapshot())

	b.Logging.Level = LogLevelDebug
	assert.Equal(t, a.Snapshot(), b.Snapshot(), "logging does not affect output")

	b.Settings["site_title"] = "Other"
	assert.NotEqual(t, a.Snapshot(), b.Snapshot())
}

func TestSnapshotTracksTrackerSection(t *testing.T) {
	a, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	b, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	b.Tracker.Path = a.Tracker.Path + ".moved"
	assert.NotEqual(t, a.Snapshot(), b.Snapshot(), "tracker path selects the snapshot store")

	b.Tracker = a.Tracker
	b.Tracker.Backend = TrackerBackendNone
	if a.Tracker.Backend == TrackerBackendNone {
		b.Tracker.Backend = TrackerBackendSQLite
	}
	assert.NotEqual(t, a.Snapshot(), b.Snapshot(), "tracker backend selects the snapshot store")
}

func TestOpenSnapshotStore(t *testing.T) {
	cfg, err := Parse(strings.NewReader("tracker: {backend: none}\npipelines: [{name: a}]\n"))
	require.NoError(t, err)
	store, closer, err := cfg.OpenSnapshotStore(nil)
	require.NoError(t, err)
	assert.Nil(t, store)
	require.NoError(t, closer.Close())

	cfg.Tracker.Backend = TrackerBackendSQLite
	cfg.Tracker.Path = filepath.Join(t.TempDir(), "nested", "writes.db")
	store, closer, err = cfg.OpenSnapshotStore(nil)
	require.NoError(t, err)
	assert.NotNil(t, store)
	require.NoError(t, closer.Close())
}
