package debounce

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTriggerCoalescesBurst(t *testing.T) {
	var calls atomic.Int32
	done := make(chan struct{}, 4)
	d := New(20*time.Millisecond, func() {
		calls.Add(1)
		done <- struct{}{}
	})

	for i := 0; i < 10; i++ {
		d.Trigger()
		time.Sleep(2 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("debounced call never ran")
	}
	time.Sleep(50 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single call, got %d", got)
	}
	if d.Pending() {
		t.Fatalf("expected no pending call after fire")
	}
}

func TestStopCancelsPending(t *testing.T) {
	var calls atomic.Int32
	d := New(10*time.Millisecond, func() { calls.Add(1) })

	d.Trigger()
	d.Stop()
	d.Stop()
	d.Trigger()

	time.Sleep(40 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Fatalf("expected no calls after stop, got %d", got)
	}
}

func TestStaleGenerationDoesNotRun(t *testing.T) {
	var calls atomic.Int32
	d := New(time.Hour, func() { calls.Add(1) })

	d.Trigger()
	d.mu.Lock()
	stale := d.gen
	d.mu.Unlock()
	d.Stop()

	d.fire(stale)
	if got := calls.Load(); got != 0 {
		t.Fatalf("expected stale fire to be ignored, got %d calls", got)
	}
}

func TestFlushRunsImmediately(t *testing.T) {
	var calls atomic.Int32
	d := New(time.Hour, func() { calls.Add(1) })

	if d.Flush() {
		t.Fatalf("flush without a pending call should report false")
	}
	d.Trigger()
	if !d.Flush() {
		t.Fatalf("expected flush to run the pending call")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 call, got %d", got)
	}
	if d.Pending() {
		t.Fatalf("flush must clear the slot")
	}
}

func TestCancelKeepsDebouncerUsable(t *testing.T) {
	var calls atomic.Int32
	d := New(10*time.Millisecond, func() { calls.Add(1) })

	d.Trigger()
	d.Cancel()
	time.Sleep(30 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Fatalf("expected canceled call not to run, got %d", got)
	}

	d.Trigger()
	time.Sleep(40 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected trigger after cancel to run once, got %d", got)
	}
}

func TestStopWaitsForRunningCall(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	d := New(time.Millisecond, func() {
		close(started)
		<-release
		finished.Store(true)
	})

	d.Trigger()
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatalf("debounced call never started")
	}

	stopped := make(chan struct{})
	go func() {
		d.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatalf("stop returned while the call was still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatalf("stop never returned")
	}
	if !finished.Load() {
		t.Fatalf("expected the running call to finish before stop returned")
	}
}
