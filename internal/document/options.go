package document

import (
	"git.home.luguber.info/inful/sitepipe/internal/content"
	"git.home.luguber.info/inful/sitepipe/internal/metadata"
)

// Option configures New and Derive.
type Option func(*params)

type params struct {
	source      *string
	forceSource bool
	destination *string
	layers      []*metadata.Layer
	store       content.Store
	storeSet    bool
}

// WithSource sets the absolute input path. On Derive it only applies when the
// original document has no source.
func WithSource(source string) Option {
	return func(p *params) {
		p.source = &source
		p.forceSource = false
	}
}

// WithForcedSource replaces the source even when one is already set.
func WithForcedSource(source string) Option {
	return func(p *params) {
		p.source = &source
		p.forceSource = true
	}
}

// WithDestination sets the output-relative destination path.
func WithDestination(destination string) Option {
	return func(p *params) {
		p.destination = &destination
	}
}

// WithMetadata pushes m as a new layer on top of the metadata stack.
func WithMetadata(m map[string]any) Option {
	return WithLayer(metadata.NewLayer(m))
}

// WithLayer pushes l on top of the metadata stack.
func WithLayer(l *metadata.Layer) Option {
	return func(p *params) {
		if l != nil {
			p.layers = append(p.layers, l)
		}
	}
}

// WithContent attaches s. Passing content.Null detaches any inherited store.
func WithContent(s content.Store) Option {
	return func(p *params) {
		p.store = s
		p.storeSet = true
	}
}

// WithoutContent is WithContent(content.Null).
func WithoutContent() Option {
	return WithContent(content.Null)
}

func collect(opts []Option) params {
	var p params
	for _, opt := range opts {
		if opt != nil {
			opt(&p)
		}
	}
	return p
}
