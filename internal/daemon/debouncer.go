package daemon

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of triggers into one call of fire after a quiet
// window. The reason of the last trigger is passed on.
type Debouncer struct {
	wait time.Duration
	fire func(reason string)

	mu      sync.Mutex
	timer   *time.Timer
	reason  string
	stopped bool
}

// NewDebouncer returns a debouncer with the given quiet window.
func NewDebouncer(wait time.Duration, fire func(reason string)) *Debouncer {
	return &Debouncer{wait: wait, fire: fire}
}

// Trigger (re)starts the quiet window.
func (d *Debouncer) Trigger(reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.reason = reason
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, d.flush)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	reason := d.reason
	d.timer = nil
	d.mu.Unlock()
	d.fire(reason)
}

// Stop cancels a pending call; later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
