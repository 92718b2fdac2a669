package modules

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

var errStopIteration = errors.New("stop iteration")

// GitInfo adds the last commit touching each source file. Sources outside a
// repository pass through unchanged.
type GitInfo struct {
	// Prefix is prepended to the metadata keys.
	Prefix string `yaml:"prefix"`

	mu    sync.Mutex
	repos map[string]*repoHandle
}

type repoHandle struct {
	mu   sync.Mutex
	repo *git.Repository
	root string
}

func newGitInfo(args *yaml.Node) (pipeline.Module, error) {
	m := &GitInfo{Prefix: "git_"}
	if err := decode(args, m); err != nil {
		return nil, err
	}
	m.repos = make(map[string]*repoHandle)
	return m, nil
}

// Execute implements pipeline.Module.
func (m *GitInfo) Execute(ctx *pipeline.Context, inputs []*document.Document) ([]*document.Document, error) {
	return pipeline.DocumentFunc(m.ExecuteDocument).Execute(ctx, inputs)
}

// ExecuteDocument implements pipeline.DocumentModule.
func (m *GitInfo) ExecuteDocument(ctx *pipeline.Context, d *document.Document) ([]*document.Document, error) {
	if d.Source() == "" {
		return []*document.Document{d}, nil
	}
	h := m.open(filepath.Dir(d.Source()))
	if h == nil {
		return []*document.Document{d}, nil
	}
	commit, err := h.lastCommit(d.Source())
	if err != nil {
		ctx.Logger.Debug("Git history unavailable", logfields.Source(d.Source()), logfields.Error(err))
		return []*document.Document{d}, nil
	}
	if commit == nil {
		return []*document.Document{d}, nil
	}
	nd, err := d.Derive(document.WithMetadata(map[string]any{
		m.Prefix + "commit":  commit.Hash.String(),
		m.Prefix + "author":  commit.Author.Name,
		m.Prefix + "email":   commit.Author.Email,
		m.Prefix + "date":    commit.Author.When.UTC(),
		m.Prefix + "message": commit.Message,
	}))
	if err != nil {
		return nil, err
	}
	return []*document.Document{nd}, nil
}

// open returns the repository containing dir, caching by directory.
func (m *GitInfo) open(dir string) *repoHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.repos[dir]; ok {
		return h
	}
	var h *repoHandle
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err == nil {
		if wt, werr := repo.Worktree(); werr == nil {
			h = &repoHandle{repo: repo, root: wt.Filesystem.Root()}
		}
	}
	m.repos[dir] = h
	return h
}

func (h *repoHandle) lastCommit(source string) (*object.Commit, error) {
	rel, err := filepath.Rel(h.root, source)
	if err != nil {
		return nil, err
	}
	rel = filepath.ToSlash(rel)

	h.mu.Lock()
	defer h.mu.Unlock()
	ref, err := h.repo.Head()
	if err != nil {
		return nil, err
	}
	iter, err := h.repo.Log(&git.LogOptions{From: ref.Hash(), FileName: &rel})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var found *object.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		found = c
		return errStopIteration
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		return nil, err
	}
	return found, nil
}
