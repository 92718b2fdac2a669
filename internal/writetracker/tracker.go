// Package writetracker records output fingerprints across runs so unchanged
// outputs can skip their physical write.
package writetracker

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"git.home.luguber.info/inful/sitepipe/internal/fileio"
	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
)

// Roots tells the tracker which paths it may track. Paths under Temp or
// Cache are never tracked; paths under Output are stored output-relative.
type Roots struct {
	Output string
	Temp   string
	Cache  string
}

// Tracker holds the previous and current generation of fingerprints.
// It is safe for concurrent use.
type Tracker struct {
	roots  Roots
	logger *slog.Logger

	mu           sync.RWMutex
	prevWrites   map[string]uint64
	prevContents map[string]uint64
	curWrites    map[string]uint64
	curContents  map[string]uint64
	actual       map[string]struct{}
}

// New returns an empty tracker.
func New(roots Roots, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		roots:        roots,
		logger:       logger,
		prevWrites:   map[string]uint64{},
		prevContents: map[string]uint64{},
		curWrites:    map[string]uint64{},
		curContents:  map[string]uint64{},
		actual:       map[string]struct{}{},
	}
}

// Roots returns the configured roots.
func (t *Tracker) Roots() Roots { return t.roots }

// IsTracked reports whether writes to p are recorded.
func (t *Tracker) IsTracked(p string) bool {
	_, ok := t.key(p)
	return ok
}

func (t *Tracker) key(p string) (string, bool) {
	if p == "" {
		return "", false
	}
	if fileio.IsWithin(t.roots.Temp, p) || fileio.IsWithin(t.roots.Cache, p) {
		return "", false
	}
	if fileio.IsWithin(t.roots.Output, p) {
		rel := fileio.Rel(t.roots.Output, p)
		if rel == path.Clean(filepath.ToSlash(t.roots.Output)) {
			return "", false
		}
		return rel, true
	}
	return path.Clean(filepath.ToSlash(p)), true
}

// TrackWrite records that p would be written with fingerprint fp during this
// run. actual reports whether bytes were physically written.
func (t *Tracker) TrackWrite(p string, fp uint64, actual bool) {
	k, ok := t.key(p)
	if !ok {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.curWrites[k] = fp
	if actual {
		t.actual[k] = struct{}{}
	}
}

// TrackContent records the fingerprint of the content that ended up at p.
func (t *Tracker) TrackContent(p string, fp uint64) {
	k, ok := t.key(p)
	if !ok {
		return
	}
	t.mu.Lock()
	t.curContents[k] = fp
	t.mu.Unlock()
}

func (t *Tracker) lookup(m func() map[string]uint64, p string) (uint64, bool) {
	k, ok := t.key(p)
	if !ok {
		return 0, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	fp, ok := m()[k]
	return fp, ok
}

// TryGetPreviousWrite returns the would-write fingerprint recorded for p by
// the previous run.
func (t *Tracker) TryGetPreviousWrite(p string) (uint64, bool) {
	return t.lookup(func() map[string]uint64 { return t.prevWrites }, p)
}

// TryGetPreviousContent returns the content fingerprint recorded for p by the
// previous run.
func (t *Tracker) TryGetPreviousContent(p string) (uint64, bool) {
	return t.lookup(func() map[string]uint64 { return t.prevContents }, p)
}

// TryGetCurrentWrite returns the fingerprint recorded for p in this run.
func (t *Tracker) TryGetCurrentWrite(p string) (uint64, bool) {
	return t.lookup(func() map[string]uint64 { return t.curWrites }, p)
}

// Reset starts a new run: the current generation becomes the previous one.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prevWrites, t.prevContents = t.curWrites, t.curContents
	t.curWrites = map[string]uint64{}
	t.curContents = map[string]uint64{}
	t.actual = map[string]struct{}{}
}

// CurrentTotalWritesCount counts distinct paths tracked in this run.
func (t *Tracker) CurrentTotalWritesCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.curWrites)
}

// CurrentActualWritesCount counts distinct paths physically written in this run.
func (t *Tracker) CurrentActualWritesCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.actual)
}

// ActualWrites lists the paths physically written in this run, sorted.
func (t *Tracker) ActualWrites() []string {
	t.mu.RLock()
	out := make([]string, 0, len(t.actual))
	for k := range t.actual {
		out = append(out, k)
	}
	t.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Snapshot returns a copy of the current generation.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{Writes: copyMap(t.curWrites), Contents: copyMap(t.curContents)}
}

// Load reads a snapshot into the current generation so the next Reset makes
// it the previous run. A missing or unreadable snapshot leaves the tracker
// empty; corruption is logged and never returned.
func (t *Tracker) Load(ctx context.Context, store SnapshotStore) error {
	snap, err := store.Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ferrors.CanceledError("snapshot load canceled").WithCause(ctx.Err()).Build()
		}
		if errors.Is(err, ErrNoSnapshot) {
			t.logger.Debug("No write snapshot found, starting empty")
		} else {
			t.logger.Warn("Write snapshot unreadable, starting empty", logfields.Error(err))
		}
		snap = Snapshot{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.curWrites = copyMap(snap.Writes)
	t.curContents = copyMap(snap.Contents)
	t.actual = map[string]struct{}{}
	return nil
}

// Save persists the current generation.
func (t *Tracker) Save(ctx context.Context, store SnapshotStore) error {
	if err := store.Save(ctx, t.Snapshot()); err != nil {
		return ferrors.WrapError(err, ferrors.CategorySnapshot, "save write snapshot").Build()
	}
	return nil
}

func copyMap(m map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
