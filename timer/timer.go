// Package timer provides deferred actions where every new trigger replaces
// the pending one.
package timer

import (
	"sync"
	"time"

	"github.com/bep/debounce"
)

// Debouncer runs the most recently triggered function once the configured
// delay has passed without another Trigger. Cancel drops the pending
// function.
type Debouncer interface {
	Trigger(f func())
	Cancel()
}

// Factory builds a Debouncer for the given delay.
type Factory func(after time.Duration) Debouncer

type debouncer struct {
	mu        sync.Mutex
	gen       uint64
	debounced func(f func())
}

// New returns a Debouncer backed by a single rescheduled timer.
func New(after time.Duration) Debouncer {
	return &debouncer{debounced: debounce.New(after)}
}

func (d *debouncer) Trigger(f func()) {
	d.mu.Lock()
	d.gen++
	gen := d.gen
	d.mu.Unlock()

	d.debounced(func() {
		d.mu.Lock()
		current := d.gen == gen
		d.mu.Unlock()
		if current {
			f()
		}
	})
}

// Cancel invalidates the pending function. The underlying timer still fires
// but runs nothing.
func (d *debouncer) Cancel() {
	d.mu.Lock()
	d.gen++
	d.mu.Unlock()
}
