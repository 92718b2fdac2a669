package modules

import (
	"errors"
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitepipe/internal/content"
	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/fileio"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// ReadFiles creates one document per matching input file. Destinations are
// the paths relative to the input root the file was found under.
type ReadFiles struct {
	Patterns []string `yaml:"patterns"`
	// Roots overrides the file system's input roots.
	Roots []string `yaml:"roots"`
}

func newReadFiles(args *yaml.Node) (pipeline.Module, error) {
	m := &ReadFiles{}
	if err := decode(args, m); err != nil {
		return nil, err
	}
	if len(m.Patterns) == 0 {
		return nil, errors.New("read_files requires at least one pattern")
	}
	for _, p := range m.Patterns {
		if _, err := path.Match(strings.ReplaceAll(p, "**/", ""), ""); err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
	}
	return m, nil
}

// Execute implements pipeline.Module. Inputs are passed through ahead of the
// files read.
func (m *ReadFiles) Execute(ctx *pipeline.Context, inputs []*document.Document) ([]*document.Document, error) {
	roots := m.Roots
	if len(roots) == 0 {
		roots = ctx.FS.EnumerateRoots()
	}
	out := append([]*document.Document(nil), inputs...)
	seen := make(map[string]bool)
	for _, root := range roots {
		files, err := ctx.FS.Enumerate(root)
		if err != nil {
			return nil, fmt.Errorf("enumerate %s: %w", root, err)
		}
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rel := fileio.Rel(root, f)
			if seen[f] || !Match(m.Patterns, rel) {
				continue
			}
			seen[f] = true
			src := filepath.FromSlash(f)
			if !filepath.IsAbs(src) {
				if src, err = filepath.Abs(src); err != nil {
					return nil, err
				}
			}
			d, err := ctx.Documents.New(
				document.WithSource(src),
				document.WithDestination(rel),
				document.WithContent(content.NewFile(ctx.FS, f, MediaType(rel))),
				document.WithMetadata(map[string]any{
					"relative_path": rel,
					"file_name":     path.Base(rel),
					"input_root":    root,
				}),
			)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
	}
	ctx.Logger.Debug("Input files read", logfields.Documents(len(out)-len(inputs)))
	return out, nil
}

// Match reports whether rel matches any pattern. A leading "**/" matches any
// directory depth, and patterns without a slash also match the base name.
func Match(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := path.Match(p, rel); ok {
			return true
		}
		if rest, found := strings.CutPrefix(p, "**/"); found {
			if ok, _ := path.Match(rest, rel); ok {
				return true
			}
			if !strings.Contains(rest, "/") {
				if ok, _ := path.Match(rest, path.Base(rel)); ok {
					return true
				}
			}
			for i := 0; i < len(rel); i++ {
				if rel[i] == '/' {
					if ok, _ := path.Match(rest, rel[i+1:]); ok {
						return true
					}
				}
			}
			continue
		}
		if !strings.Contains(p, "/") {
			if ok, _ := path.Match(p, path.Base(rel)); ok {
				return true
			}
		}
	}
	return false
}

// MediaType guesses a media type from the file extension.
func MediaType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".md", ".markdown":
		return "text/markdown"
	case ".yaml", ".yml":
		return "application/yaml"
	}
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		if i := strings.IndexByte(t, ';'); i > 0 {
			return t[:i]
		}
		return t
	}
	return "application/octet-stream"
}
