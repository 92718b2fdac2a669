package metadata

import "sync"

// Lazy is a metadata value computed on read. The computation receives the
// reader the lookup started from so it can derive values from other keys.
type Lazy struct {
	fn     func(Reader) (any, error)
	cached bool

	mu    sync.Mutex
	done  bool
	value any
}

// Deferred returns a value computed on every read.
func Deferred(fn func(Reader) (any, error)) *Lazy {
	return &Lazy{fn: fn}
}

// Memoized returns a value computed on first successful read and reused after.
func Memoized(fn func(Reader) (any, error)) *Lazy {
	return &Lazy{fn: fn, cached: true}
}

// Evaluated reports whether a memoized result is available.
func (l *Lazy) Evaluated() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

// Evaluate resolves the value against r.
func (l *Lazy) Evaluate(r Reader) (any, error) {
	if l.cached {
		l.mu.Lock()
		if l.done {
			v := l.value
			l.mu.Unlock()
			return v, nil
		}
		l.mu.Unlock()
	}

	// Computed outside the lock: fn may read other lazy keys.
	v, err := l.fn(r)
	if err != nil {
		return nil, err
	}
	if !l.cached {
		return v, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.done {
		l.value, l.done = v, true
	}
	return l.value, nil
}
