package document

import (
	"io"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"git.home.luguber.info/inful/sitepipe/internal/content"
	"git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/metadata"
)

// ErrDisposed is returned when content or unevaluated metadata of a disposed
// document is accessed.
var ErrDisposed = errors.DisposedError("document disposed").Build()

// Document is an immutable content item with identity, paths, metadata and an
// optional content store.
type Document struct {
	id          string
	source      string
	destination string
	meta        *metadata.Stack
	store       content.Store

	factory  *Factory
	disposed atomic.Bool
}

// ID is assigned once and preserved through every derivation.
func (d *Document) ID() string { return d.id }

// Source is the absolute input path, or empty.
func (d *Document) Source() string { return d.source }

// Destination is the output-relative path in slash form, or empty.
func (d *Document) Destination() string { return d.destination }

// Stack exposes the raw metadata stack without disposal checks.
func (d *Document) Stack() *metadata.Stack { return d.meta }

// Metadata returns a reader over the document's metadata.
func (d *Document) Metadata() *Meta { return &Meta{d: d} }

// Content returns the attached store or nil.
func (d *Document) Content() content.Store { return d.store }

// HasContent reports whether a store is attached.
func (d *Document) HasContent() bool { return d.store != nil }

// MediaType returns the store's media type.
func (d *Document) MediaType() string {
	if d.store == nil {
		return ""
	}
	return d.store.MediaType()
}

// Disposed reports whether Dispose has been called.
func (d *Document) Disposed() bool { return d.disposed.Load() }

// OpenRead opens the document content. A document without content reads empty.
func (d *Document) OpenRead() (io.ReadCloser, error) {
	if d.disposed.Load() {
		return nil, ErrDisposed
	}
	if d.store == nil {
		return content.Null.OpenRead()
	}
	return d.store.OpenRead()
}

// Fingerprint returns the content fingerprint.
func (d *Document) Fingerprint() (uint64, error) {
	if d.disposed.Load() {
		return 0, ErrDisposed
	}
	if d.store == nil {
		return content.Null.Fingerprint()
	}
	return d.store.Fingerprint()
}

// Derive returns a new document with the same ID. Unless WithContent or
// WithoutContent is given, the new document shares this document's store.
func (d *Document) Derive(opts ...Option) (*Document, error) {
	if d.disposed.Load() {
		return nil, ErrDisposed
	}
	p := collect(opts)

	source := d.source
	if p.source != nil && (source == "" || p.forceSource) {
		source = *p.source
	}
	destination := d.destination
	if p.destination != nil {
		destination = *p.destination
	}
	store := d.store
	if p.storeSet {
		store = p.store
	}

	meta := d.meta
	for _, l := range p.layers {
		meta = meta.Push(l)
	}
	return d.factory.build(d.id, source, destination, meta, store)
}

// Dispose releases the content store. Calling it more than once is a no-op.
func (d *Document) Dispose() {
	if !d.disposed.CompareAndSwap(false, true) {
		return
	}
	if d.store != nil {
		d.factory.lifetimes.Release(d.store)
	}
}

func validateSource(source string) (string, error) {
	if source == "" {
		return "", nil
	}
	if !filepath.IsAbs(source) && !path.IsAbs(filepath.ToSlash(source)) {
		return "", errors.ConfigError("document source must be an absolute path").
			WithContext("source", source).
			Build()
	}
	return filepath.Clean(source), nil
}

func normalizeDestination(destination string) (string, error) {
	if destination == "" {
		return "", nil
	}
	slashed := filepath.ToSlash(destination)
	if path.IsAbs(slashed) || filepath.IsAbs(destination) {
		return "", errors.ConfigError("document destination must be output-relative").
			WithContext("destination", destination).
			Build()
	}
	cleaned := path.Clean(slashed)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.ConfigError("document destination escapes the output root").
			WithContext("destination", destination).
			Build()
	}
	return cleaned, nil
}
