package document

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepipe/internal/content"
	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/metadata"
)

type countingStore struct {
	*content.MemoryStore
	disposed int
}

func (c *countingStore) Dispose() error {
	c.disposed++
	return nil
}

func newFactory() *Factory {
	return NewFactory(content.NewLifetimes(slog.Default()), map[string]any{"site": "docs"})
}

func TestNewAssignsIDAndSettings(t *testing.T) {
	f := newFactory()
	d, err := f.New(WithSource("/input/a.txt"), WithDestination("a.txt"), WithMetadata(map[string]any{"title": "A"}))
	require.NoError(t, err)

	assert.NotEmpty(t, d.ID())
	assert.Equal(t, "/input/a.txt", d.Source())
	assert.Equal(t, "a.txt", d.Destination())

	v, ok := d.Metadata().String("site")
	assert.True(t, ok)
	assert.Equal(t, "docs", v)
	_, ok = d.Metadata().WithoutSettings().Get("site")
	assert.False(t, ok)
	v, _ = d.Metadata().WithoutSettings().String("title")
	assert.Equal(t, "A", v)

	other, err := f.New()
	require.NoError(t, err)
	assert.NotEqual(t, d.ID(), other.ID())
}

func TestRelativeSourceIsConfigError(t *testing.T) {
	f := newFactory()
	_, err := f.New(WithSource("input/a.txt"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))

	_, err = f.New(WithDestination("../escape.txt"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestDeriveKeepsSourceAndID(t *testing.T) {
	f := newFactory()
	d, err := f.New(WithSource("/input/a.txt"), WithMetadata(map[string]any{"k": 1}))
	require.NoError(t, err)

	derived, err := d.Derive(WithSource("/other.txt"), WithDestination("out/a.html"), WithMetadata(map[string]any{"processed": true}))
	require.NoError(t, err)
	assert.Equal(t, d.ID(), derived.ID())
	assert.Equal(t, "/input/a.txt", derived.Source())
	assert.Equal(t, "out/a.html", derived.Destination())

	b, ok := derived.Metadata().Bool("Processed")
	assert.True(t, ok)
	assert.True(t, b)
	_, ok = d.Metadata().Get("processed")
	assert.False(t, ok)
	assert.Same(t, d.Stack(), derived.Stack().Parent())

	forced, err := derived.Derive(WithForcedSource("/moved.txt"))
	require.NoError(t, err)
	assert.Equal(t, "/moved.txt", forced.Source())

	noSource, err := f.New()
	require.NoError(t, err)
	withSource, err := noSource.Derive(WithSource("/late.txt"))
	require.NoError(t, err)
	assert.Equal(t, "/late.txt", withSource.Source())
}

func TestDeriveAcquiresSharedStoreOnce(t *testing.T) {
	f := newFactory()
	store := &countingStore{MemoryStore: content.NewString("body", "text/plain")}

	d, err := f.New(WithContent(store))
	require.NoError(t, err)
	assert.Equal(t, 1, f.Lifetimes().Count(store))

	d2, err := d.Derive(WithMetadata(map[string]any{"x": 1}))
	require.NoError(t, err)
	assert.Equal(t, 2, f.Lifetimes().Count(store))
	assert.Same(t, store, d2.Content())

	d.Dispose()
	assert.Equal(t, 0, store.disposed)
	body, err := ReadString(d2)
	require.NoError(t, err)
	assert.Equal(t, "body", body)

	d2.Dispose()
	d2.Dispose()
	assert.Equal(t, 1, store.disposed)
	assert.Equal(t, 0, f.Lifetimes().Count(store))
}

func TestNullContentDetaches(t *testing.T) {
	f := newFactory()
	store := &countingStore{MemoryStore: content.NewString("body", "text/plain")}
	d, err := f.New(WithContent(store))
	require.NoError(t, err)

	detached, err := d.Derive(WithoutContent())
	require.NoError(t, err)
	assert.False(t, detached.HasContent())
	assert.Equal(t, 1, f.Lifetimes().Count(store))

	body, err := ReadString(detached)
	require.NoError(t, err)
	assert.Empty(t, body)

	detached.Dispose()
	d.Dispose()
	assert.Equal(t, 1, store.disposed)
}

func TestDisposedAccess(t *testing.T) {
	f := newFactory()
	d, err := f.New(
		WithContent(content.NewString("body", "text/plain")),
		WithMetadata(map[string]any{
			"plain": "value",
			"eager": metadata.Memoized(func(metadata.Reader) (any, error) { return "seen", nil }),
			"late":  metadata.Memoized(func(metadata.Reader) (any, error) { return "never", nil }),
		}),
	)
	require.NoError(t, err)

	v, _ := d.Metadata().Get("eager")
	assert.Equal(t, "seen", v)

	d.Dispose()

	_, err = d.OpenRead()
	assert.True(t, errors.Is(err, ErrDisposed))
	_, err = d.Fingerprint()
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryDisposed))

	v, ok := d.Metadata().Get("plain")
	assert.True(t, ok)
	assert.Equal(t, "value", v)
	v, _ = d.Metadata().Get("eager")
	assert.Equal(t, "seen", v)

	_, _, err = d.Metadata().Lookup("late")
	assert.ErrorIs(t, err, ErrDisposed)

	_, err = d.Derive()
	assert.ErrorIs(t, err, ErrDisposed)
}

func TestDrainKeepsRetainedDocuments(t *testing.T) {
	f := newFactory()
	store := &countingStore{MemoryStore: content.NewString("x", "")}
	keep, err := f.New(WithContent(store))
	require.NoError(t, err)
	_, err = f.New()
	require.NoError(t, err)
	drop, err := keep.Derive()
	require.NoError(t, err)

	n := f.Drain(func(d *Document) bool { return d == keep })
	assert.Equal(t, 2, n)
	assert.True(t, drop.Disposed())
	assert.False(t, keep.Disposed())
	assert.Equal(t, 1, f.Tracked())
	assert.Equal(t, 0, store.disposed)

	assert.Equal(t, 1, f.Drain(nil))
	assert.Equal(t, 1, store.disposed)
	assert.Equal(t, 0, f.Tracked())
}

func TestDedupByID(t *testing.T) {
	f := newFactory()
	a, _ := f.New()
	b, _ := f.New()
	a2, _ := a.Derive(WithMetadata(map[string]any{"rev": 2}))

	out := DedupByID([]*Document{a, b, a2})
	require.Len(t, out, 2)
	assert.Same(t, a2, out[0])
	assert.Same(t, b, out[1])
	assert.True(t, Equal(a, a2))
	assert.False(t, Equal(a, b))
}
