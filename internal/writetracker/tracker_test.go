package writetracker

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepipe/internal/fileio"
)

var testRoots = Roots{Output: "/site/out", Temp: "/site/tmp", Cache: "/site/cache"}

func TestTrackerPathRules(t *testing.T) {
	tr := New(testRoots, nil)

	assert.True(t, tr.IsTracked("/site/out/index.html"))
	assert.True(t, tr.IsTracked("/elsewhere/file"))
	assert.False(t, tr.IsTracked("/site/tmp/x"))
	assert.False(t, tr.IsTracked("/site/cache/y"))
	assert.False(t, tr.IsTracked(""))

	tr.TrackWrite("/site/out/index.html", 1, true)
	tr.TrackWrite("/site/tmp/scratch", 2, true)

	fp, ok := tr.TryGetCurrentWrite("/site/out/index.html")
	require.True(t, ok)
	assert.EqualValues(t, 1, fp)
	assert.Equal(t, []string{"index.html"}, tr.ActualWrites())
	assert.Equal(t, 1, tr.CurrentTotalWritesCount())
	assert.Equal(t, 1, tr.CurrentActualWritesCount())
	assert.Equal(t, map[string]uint64{"index.html": 1}, tr.Snapshot().Writes)
}

func TestResetRotatesGenerations(t *testing.T) {
	tr := New(testRoots, nil)
	tr.TrackWrite("/site/out/a", 10, true)
	tr.TrackContent("/site/out/a", 11)
	tr.TrackWrite("/site/out/b", 20, false)

	_, ok := tr.TryGetPreviousWrite("/site/out/a")
	assert.False(t, ok)

	tr.Reset()
	assert.Equal(t, 0, tr.CurrentTotalWritesCount())
	assert.Equal(t, 0, tr.CurrentActualWritesCount())

	fp, ok := tr.TryGetPreviousWrite("/site/out/a")
	require.True(t, ok)
	assert.EqualValues(t, 10, fp)
	fp, ok = tr.TryGetPreviousContent("/site/out/a")
	require.True(t, ok)
	assert.EqualValues(t, 11, fp)
	_, ok = tr.TryGetCurrentWrite("/site/out/a")
	assert.False(t, ok)
}

func TestConcurrentTracking(t *testing.T) {
	tr := New(testRoots, nil)
	var wg sync.WaitGroup
	for i := range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := fmt.Sprintf("/site/out/p%d", i%16)
			tr.TrackWrite(p, uint64(i), i%2 == 0)
			tr.TrackContent(p, uint64(i))
			_, _ = tr.TryGetPreviousWrite(p)
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, tr.CurrentTotalWritesCount())
	assert.Equal(t, 8, tr.CurrentActualWritesCount())
}

func TestJSONStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fsys := fileio.NewMemory()
	store := NewJSONFileStore(fsys, "/site/cache/writes.json")

	tr := New(testRoots, nil)
	require.NoError(t, tr.Load(ctx, store))
	tr.TrackWrite("/site/out/a.html", 42, true)
	tr.TrackContent("/site/out/a.html", 43)
	require.NoError(t, tr.Save(ctx, store))

	next := New(testRoots, nil)
	require.NoError(t, next.Load(ctx, store))
	next.Reset()
	fp, ok := next.TryGetPreviousWrite("/site/out/a.html")
	require.True(t, ok)
	assert.EqualValues(t, 42, fp)
	fp, ok = next.TryGetPreviousContent("a.html")
	require.True(t, ok)
	assert.EqualValues(t, 43, fp)
}

func TestCorruptSnapshotLoadsEmpty(t *testing.T) {
	ctx := context.Background()
	fsys := fileio.NewMemory()
	require.NoError(t, fileio.WriteFile(fsys, "/snap.json", []byte("{not json")))

	tr := New(testRoots, nil)
	require.NoError(t, tr.Load(ctx, NewJSONFileStore(fsys, "/snap.json")))
	tr.Reset()
	_, ok := tr.TryGetPreviousWrite("/site/out/a.html")
	assert.False(t, ok)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tracker.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Load(ctx)
	require.ErrorIs(t, err, ErrNoSnapshot)

	snap := Snapshot{
		Writes:   map[string]uint64{"a.html": ^uint64(0), "b.html": 7},
		Contents: map[string]uint64{"a.html": 1},
	}
	require.NoError(t, store.Save(ctx, snap))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	require.NoError(t, store.Save(ctx, Snapshot{Writes: map[string]uint64{"c.html": 3}}))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"c.html": 3}, got.Writes)
	assert.Empty(t, got.Contents)
}
