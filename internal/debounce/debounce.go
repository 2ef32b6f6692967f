// Package debounce groups rapid successive calls into a single deferred
// call.
package debounce

import (
	"sync"
	"time"

	"github.com/dshills/inkwell/internal/clock"
)

// Scheduler runs a callback after a delay. clock.Clock satisfies it, and so
// does an editor that posts the callback onto its event queue.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) clock.Timer
}

// Debouncer fires its callback once after a quiet period.
//
// A delay of zero or less disables deferral: Call runs the callback
// synchronously.
//
// Thread-safety: all methods are safe for concurrent use. The callback is
// never invoked while the internal lock is held.
type Debouncer struct {
	mu       sync.Mutex
	sched    Scheduler
	delay    time.Duration
	timer    clock.Timer
	pending  bool
	seq      uint64 // detects stale timer callbacks
	callback func()
}

// New creates a debouncer that runs callback delay after the last Call.
func New(sched Scheduler, delay time.Duration, callback func()) *Debouncer {
	return &Debouncer{
		sched:    sched,
		delay:    delay,
		callback: callback,
	}
}

// Delay returns the configured delay.
func (d *Debouncer) Delay() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.delay
}

// Call schedules the callback, restarting the quiet period if one is
// already running.
func (d *Debouncer) Call() {
	d.mu.Lock()
	if d.delay <= 0 {
		d.stopLocked()
		d.mu.Unlock()
		if d.callback != nil {
			d.callback()
		}
		return
	}

	d.pending = true
	d.seq++
	currentSeq := d.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.sched.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.pending && d.seq == currentSeq && d.callback != nil {
			d.pending = false
			d.timer = nil
			d.mu.Unlock()
			d.callback()
			return
		}
		d.mu.Unlock()
	})
	d.mu.Unlock()
}

// Flush runs a pending callback now and cancels its timer.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	wasPending := d.pending
	d.stopLocked()
	d.mu.Unlock()

	if wasPending && d.callback != nil {
		d.callback()
	}
}

// Cancel drops any pending call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

// IsPending reports whether a call is scheduled.
func (d *Debouncer) IsPending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	// Invalidate a callback that is already queued.
	d.seq++
	d.pending = false
}
