// Package watcher implements vault watching and the debounced
// scheduling of housekeeping sweeps.
package watcher

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid render events into one batched callback.
// The sweep is deliberately delayed after a render event so the host's
// display can stabilize before its documents are scanned again.
type Debouncer struct {
	mu       sync.Mutex
	pending  map[string]struct{}
	timer    *time.Timer
	window   time.Duration
	callback func(docs []string)

	// inFlight tracks a callback started by an expired timer, so Flush
	// can wait for it instead of returning mid-sweep.
	inFlight sync.WaitGroup
}

// NewDebouncer creates a debouncer with the given window and callback.
func NewDebouncer(window time.Duration, callback func(docs []string)) *Debouncer {
	return &Debouncer{
		pending:  make(map[string]struct{}),
		window:   window,
		callback: callback,
	}
}

// Add records a document event and (re)starts the debounce window.
func (d *Debouncer) Add(doc string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[doc] = struct{}{}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

// fire runs on the timer goroutine when the debounce window expires.
// The callback runs synchronously here; the waitgroup is raised under
// the mutex so a concurrent Flush either drains pending first or waits
// for this callback to finish.
func (d *Debouncer) fire() {
	d.mu.Lock()

	if len(d.pending) == 0 {
		d.timer = nil
		d.mu.Unlock()
		return
	}

	docs := make([]string, 0, len(d.pending))
	for doc := range d.pending {
		docs = append(docs, doc)
	}
	d.pending = make(map[string]struct{})
	d.timer = nil
	d.inFlight.Add(1)
	d.mu.Unlock()

	defer d.inFlight.Done()
	if d.callback != nil {
		d.callback(docs)
	}
}

// Flush triggers the callback synchronously with all pending documents.
// It blocks until the callback completes, including a callback already
// started by an expired timer, which makes it suitable for shutdown
// paths where the final sweep must land before exiting.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	docs := make([]string, 0, len(d.pending))
	for doc := range d.pending {
		docs = append(docs, doc)
	}
	d.pending = make(map[string]struct{})
	d.mu.Unlock()

	d.inFlight.Wait()

	if len(docs) > 0 && d.callback != nil {
		d.callback(docs)
	}
}
