package document

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitepipe/internal/content"
	"git.home.luguber.info/inful/sitepipe/internal/metadata"
)

// Factory constructs documents and tracks them so their owner can dispose
// everything a run created. Each engine owns exactly one Factory.
type Factory struct {
	lifetimes *content.Lifetimes
	settings  *metadata.Layer

	mu      sync.Mutex
	created []*Document
}

// NewFactory returns a factory backed by lifetimes. settings becomes the
// bottom layer of every root document's metadata.
func NewFactory(lifetimes *content.Lifetimes, settings map[string]any) *Factory {
	if lifetimes == nil {
		lifetimes = content.NewLifetimes(slog.Default())
	}
	return &Factory{
		lifetimes: lifetimes,
		settings:  metadata.NewLayer(settings),
	}
}

// Lifetimes returns the reference count table.
func (f *Factory) Lifetimes() *content.Lifetimes { return f.lifetimes }

// Settings returns the global-settings layer.
func (f *Factory) Settings() *metadata.Layer { return f.settings }

// New builds a root document with a fresh ID.
func (f *Factory) New(opts ...Option) (*Document, error) {
	p := collect(opts)

	var source, destination string
	if p.source != nil {
		source = *p.source
	}
	if p.destination != nil {
		destination = *p.destination
	}
	meta := metadata.NewSettingsStack(f.settings)
	for _, l := range p.layers {
		meta = meta.Push(l)
	}
	var store content.Store
	if p.storeSet {
		store = p.store
	}
	return f.build(uuid.NewString(), source, destination, meta, store)
}

func (f *Factory) build(id, source, destination string, meta *metadata.Stack, store content.Store) (*Document, error) {
	source, err := validateSource(source)
	if err != nil {
		return nil, err
	}
	destination, err = normalizeDestination(destination)
	if err != nil {
		return nil, err
	}
	if store != nil && content.IsNull(store) {
		store = nil
	}

	d := &Document{
		id:          id,
		source:      source,
		destination: destination,
		meta:        meta,
		store:       store,
		factory:     f,
	}
	if store != nil {
		f.lifetimes.Acquire(store)
	}

	f.mu.Lock()
	f.created = append(f.created, d)
	f.mu.Unlock()
	return d, nil
}

// Tracked returns the number of live documents built by this factory and not
// yet drained.
func (f *Factory) Tracked() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, d := range f.created {
		if !d.Disposed() {
			n++
		}
	}
	return n
}

// Drain disposes every tracked document for which keep returns false and
// stops tracking disposed ones. A nil keep disposes everything.
// It returns the number of documents disposed.
func (f *Factory) Drain(keep func(*Document) bool) int {
	f.mu.Lock()
	created := f.created
	f.created = nil
	f.mu.Unlock()

	var retained []*Document
	disposed := 0
	for _, d := range created {
		if d.Disposed() {
			continue
		}
		if keep != nil && keep(d) {
			retained = append(retained, d)
			continue
		}
		d.Dispose()
		disposed++
	}

	f.mu.Lock()
	f.created = append(retained, f.created...)
	f.mu.Unlock()
	return disposed
}
