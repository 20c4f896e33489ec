// Package debounce coalesces bursts of triggers into a single call that runs
// once the burst has been quiet for the configured wait.
package debounce

import (
	"sync"
	"time"
)

// Debouncer owns one pending timer slot. Each Trigger resets the slot; Stop
// cancels it permanently. fn must not call Stop.
type Debouncer struct {
	mu      sync.Mutex
	running sync.WaitGroup
	wait    time.Duration
	fn      func()
	timer   *time.Timer
	gen     uint64
	stopped bool
}

// New returns a debouncer calling fn after wait of inactivity. A negative wait
// is treated as zero.
func New(wait time.Duration, fn func()) *Debouncer {
	if wait < 0 {
		wait = 0
	}
	return &Debouncer{wait: wait, fn: fn}
}

// Trigger (re)starts the quiet period. It is a no-op after Stop.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped || d.fn == nil {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.wait, func() { d.fire(gen) })
}

// Pending reports whether a call is scheduled and has not run yet.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Flush runs the pending call now, if any, and reports whether it ran.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.stopped || d.timer == nil {
		d.mu.Unlock()
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.gen++
	fn := d.fn
	d.running.Add(1)
	d.mu.Unlock()
	defer d.running.Done()
	fn()
	return true
}

// Cancel drops the pending call, if any. Later triggers still schedule.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Stop cancels any pending call and waits for a call already running. A
// timer that fired but has not yet acquired the lock observes the bumped
// generation and does nothing, so no call starts once Stop returns.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		d.gen++
		if d.timer != nil {
			d.timer.Stop()
			d.timer = nil
		}
	}
	d.mu.Unlock()
	d.running.Wait()
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	fn := d.fn
	d.running.Add(1)
	d.mu.Unlock()
	defer d.running.Done()
	fn()
}
