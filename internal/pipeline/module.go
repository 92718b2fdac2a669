package pipeline

import (
	"fmt"

	"git.home.luguber.info/inful/sitepipe/internal/document"
)

// Module transforms the documents of one phase. The returned slice becomes
// the input of the next module.
type Module interface {
	Execute(ctx *Context, inputs []*document.Document) ([]*document.Document, error)
}

// DocumentModule handles one document at a time. The engine fans these out
// over its worker pool and concatenates results in input order.
type DocumentModule interface {
	Module
	ExecuteDocument(ctx *Context, doc *document.Document) ([]*document.Document, error)
}

// Named modules report a name for logs and metrics.
type Named interface {
	Name() string
}

// NameOf returns the module name, falling back to its Go type.
func NameOf(m Module) string {
	if n, ok := m.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", m)
}

// ModuleFunc adapts a function to Module.
type ModuleFunc func(ctx *Context, inputs []*document.Document) ([]*document.Document, error)

// Execute implements Module.
func (f ModuleFunc) Execute(ctx *Context, inputs []*document.Document) ([]*document.Document, error) {
	return f(ctx, inputs)
}

// DocumentFunc adapts a per-document function to DocumentModule.
type DocumentFunc func(ctx *Context, doc *document.Document) ([]*document.Document, error)

// ExecuteDocument implements DocumentModule.
func (f DocumentFunc) ExecuteDocument(ctx *Context, doc *document.Document) ([]*document.Document, error) {
	return f(ctx, doc)
}

// Execute runs the function serially over inputs.
func (f DocumentFunc) Execute(ctx *Context, inputs []*document.Document) ([]*document.Document, error) {
	var out []*document.Document
	for _, d := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := f(ctx, d)
		if err != nil {
			return nil, err
		}
		out = append(out, res...)
	}
	return out, nil
}

type named struct {
	Module
	name string
}

func (n named) Name() string { return n.name }

type namedDocument struct {
	DocumentModule
	name string
}

func (n namedDocument) Name() string { return n.name }

// WithName attaches a name to m, keeping its per-document capability.
func WithName(name string, m Module) Module {
	if dm, ok := m.(DocumentModule); ok {
		return namedDocument{DocumentModule: dm, name: name}
	}
	return named{Module: m, name: name}
}
