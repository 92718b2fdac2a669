package content

import (
	"log/slog"
	"sync"
)

// Lifetimes counts live documents per store and disposes a store when its
// count drops to zero. It is owned by one engine; nothing here is global.
type Lifetimes struct {
	mu     sync.Mutex
	counts map[Store]int
	logger *slog.Logger
}

// NewLifetimes creates an empty reference table.
func NewLifetimes(logger *slog.Logger) *Lifetimes {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifetimes{counts: make(map[Store]int), logger: logger}
}

// Acquire records one more reference to s. Nil and Null are ignored.
func (l *Lifetimes) Acquire(s Store) {
	if IsNull(s) {
		return
	}
	l.mu.Lock()
	l.counts[s]++
	l.mu.Unlock()
}

// Release drops one reference to s and reports whether the store was disposed.
// Cleanup runs after the lock is released so a Dispose that releases further
// stores cannot deadlock. Releasing an unknown store is a no-op.
func (l *Lifetimes) Release(s Store) bool {
	if IsNull(s) {
		return false
	}
	l.mu.Lock()
	n, ok := l.counts[s]
	if !ok {
		l.mu.Unlock()
		return false
	}
	n--
	if n > 0 {
		l.counts[s] = n
		l.mu.Unlock()
		return false
	}
	delete(l.counts, s)
	l.mu.Unlock()

	if d, ok := s.(Disposer); ok {
		if err := d.Dispose(); err != nil {
			l.logger.Warn("Content store cleanup failed", "error", err)
		}
	}
	return true
}

// Count returns the live reference count for s.
func (l *Lifetimes) Count(s Store) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[s]
}

// Live returns the number of stores with at least one reference.
func (l *Lifetimes) Live() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counts)
}
