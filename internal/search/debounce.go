package search

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period after the last keystroke before a
// query is committed.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer commits the last pushed value once no new value has arrived
// for the configured interval.
type Debouncer struct {
	interval time.Duration
	commit   func(string)

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	stopped bool
}

// NewDebouncer creates a debouncer calling commit on its own goroutine.
func NewDebouncer(interval time.Duration, commit func(string)) *Debouncer {
	if interval <= 0 {
		interval = DefaultDebounce
	}
	return &Debouncer{interval: interval, commit: commit}
}

// Push records raw and restarts the quiet period. A pending emission for an
// earlier value is cancelled.
func (d *Debouncer) Push(raw string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.interval, func() { d.fire(seq, raw) })
}

// Pending reports whether an emission is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels any pending emission. No commit starts after Stop returns;
// a commit already running is not interrupted.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) fire(seq uint64, raw string) {
	d.mu.Lock()
	// A timer that lost the race with Push or Stop must not commit.
	if d.stopped || seq != d.seq {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.commit(raw)
}
