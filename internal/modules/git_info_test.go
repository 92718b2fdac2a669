package modules

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepipe/internal/fileio"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

func commitFile(t *testing.T, repo *git.Repository, dir, rel, body, msg string, when time.Time) {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(filepath.ToSlash(rel))
	require.NoError(t, err)
	_, err = wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "Ada", Email: "ada@example.com", When: when},
	})
	require.NoError(t, err)
}

func TestGitInfoAddsLastCommit(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	first := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	commitFile(t, repo, dir, "content/a.md", "# A\n", "add a", first)
	commitFile(t, repo, dir, "content/b.md", "# B\n", "add b", first.Add(time.Hour))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "content", "untracked.md"), []byte("x"), 0o644))

	e := newSite(t, fileio.NewOS())
	require.NoError(t, e.Add(&pipeline.Pipeline{
		Name:    "docs",
		Input:   []pipeline.Module{build(t, "read_files", "{patterns: ['*.md'], roots: ['"+filepath.ToSlash(filepath.Join(dir, "content"))+"']}")},
		Process: []pipeline.Module{build(t, "git_info", "")},
	}))

	report, err := e.Run(context.Background())
	require.NoError(t, err)
	byDest := map[string]map[string]any{}
	for _, d := range report.Outputs("docs") {
		m, err := d.Metadata().ToMap()
		require.NoError(t, err)
		byDest[d.Destination()] = m
	}
	require.Len(t, byDest, 3)

	assert.Equal(t, "add a", byDest["a.md"]["git_message"])
	assert.Equal(t, "Ada", byDest["a.md"]["git_author"])
	assert.Equal(t, "ada@example.com", byDest["a.md"]["git_email"])
	date, ok := byDest["a.md"]["git_date"].(time.Time)
	require.True(t, ok)
	assert.True(t, first.Equal(date))
	assert.Equal(t, "add b", byDest["b.md"]["git_message"])
	assert.NotEqual(t, byDest["a.md"]["git_commit"], byDest["b.md"]["git_commit"])

	_, ok = byDest["untracked.md"]["git_commit"]
	assert.False(t, ok)
}

func TestGitInfoOutsideRepository(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.md"), []byte("x"), 0o644))

	e := newSite(t, fileio.NewOS())
	require.NoError(t, e.Add(&pipeline.Pipeline{
		Name:    "docs",
		Input:   []pipeline.Module{build(t, "read_files", "{patterns: ['*.md'], roots: ['"+filepath.ToSlash(dir)+"']}")},
		Process: []pipeline.Module{build(t, "git_info", "")},
	}))
	report, err := e.Run(context.Background())
	require.NoError(t, err)
	out := report.Outputs("docs")
	require.Len(t, out, 1)
	_, ok := out[0].Metadata().Get("git_commit")
	assert.False(t, ok)
}
