package pipeline

import (
	"context"
	"log/slog"
	"path"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitepipe/internal/content"
	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/fileio"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
	"git.home.luguber.info/inful/sitepipe/internal/writetracker"
)

// Outputs queries documents published by other pipelines. Visibility
// violations return errors in the visibility category.
type Outputs interface {
	// FromPipeline returns the latest outputs of the named pipeline.
	FromPipeline(name string) ([]*document.Document, error)
	// ExceptPipeline returns the outputs of every visible pipeline except
	// the named one and the caller.
	ExceptPipeline(name string) ([]*document.Document, error)
	// FromAllDependencies returns the outputs of every declared dependency
	// in declaration order.
	FromAllDependencies() ([]*document.Document, error)
}

// Context is handed to modules. It carries the run's cancellation signal and
// the engine-owned services of the current pipeline and phase.
type Context struct {
	context.Context

	Pipeline  string
	Phase     Phase
	Documents *document.Factory
	FS        fileio.FileSystem
	Tracker   *writetracker.Tracker
	Outputs   Outputs
	Logger    *slog.Logger
	// Serial is set when documents must be handled one at a time.
	Serial bool
	// TempDir is where TempContent places scratch files.
	TempDir string
}

// WithContext returns a shallow copy of c bound to ctx.
func (c *Context) WithContext(ctx context.Context) *Context {
	cp := *c
	cp.Context = ctx
	return &cp
}

// TempContent writes data to a scratch file and returns a store that deletes
// the file once the last document referencing it is disposed.
func (c *Context) TempContent(data []byte, mediaType string) (content.Store, error) {
	if c.TempDir == "" || c.FS == nil {
		return content.NewMemory(data, mediaType), nil
	}
	p := path.Join(c.TempDir, uuid.NewString())
	if err := fileio.WriteFile(c.FS, p, data); err != nil {
		return nil, err
	}
	return content.NewTempFile(c.FS, p, mediaType), nil
}

// DiscardContent releases a store returned by TempContent that never made it
// into a document.
func (c *Context) DiscardContent(store content.Store) {
	d, ok := store.(content.Disposer)
	if !ok {
		return
	}
	if err := d.Dispose(); err != nil && c.Logger != nil {
		c.Logger.Warn("Failed to discard scratch content", logfields.Error(err))
	}
}
