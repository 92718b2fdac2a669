package modules

import (
	"fmt"
	"io"
	"path"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// WriteFiles writes every document with a destination below the output
// root. A file whose fingerprint matches the previous run and still exists
// is left untouched.
type WriteFiles struct {
	// Output overrides the tracker's output root.
	Output string `yaml:"output"`
}

func newWriteFiles(args *yaml.Node) (pipeline.Module, error) {
	m := &WriteFiles{}
	return m, decode(args, m)
}

// Execute implements pipeline.Module.
func (m *WriteFiles) Execute(ctx *pipeline.Context, inputs []*document.Document) ([]*document.Document, error) {
	return pipeline.DocumentFunc(m.ExecuteDocument).Execute(ctx, inputs)
}

// ExecuteDocument implements pipeline.DocumentModule.
func (m *WriteFiles) ExecuteDocument(ctx *pipeline.Context, d *document.Document) ([]*document.Document, error) {
	if d.Destination() == "" {
		return []*document.Document{d}, nil
	}
	root := m.Output
	if root == "" {
		root = ctx.Tracker.Roots().Output
	}
	if root == "" {
		return nil, fmt.Errorf("no output root for %s", d.Destination())
	}
	target := path.Join(filepath.ToSlash(root), d.Destination())

	fp, err := d.Fingerprint()
	if err != nil {
		return nil, err
	}
	if prev, ok := ctx.Tracker.TryGetPreviousWrite(target); ok && prev == fp && ctx.FS.Exists(target) {
		ctx.Tracker.TrackWrite(target, fp, false)
		ctx.Tracker.TrackContent(target, fp)
		return []*document.Document{d}, nil
	}

	if err := m.copy(ctx, d, target); err != nil {
		return nil, err
	}
	ctx.Tracker.TrackWrite(target, fp, true)
	ctx.Tracker.TrackContent(target, fp)
	ctx.Logger.Debug("Output written", logfields.Path(target))
	return []*document.Document{d}, nil
}

func (m *WriteFiles) copy(ctx *pipeline.Context, d *document.Document, target string) (err error) {
	src, err := d.OpenRead()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	dst, err := ctx.FS.OpenWrite(target)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "open output file").
			WithContext("path", target).
			Build()
	}
	defer func() {
		if cerr := dst.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", target, cerr)
		}
	}()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	return nil
}
