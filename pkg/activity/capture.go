package activity

import (
	"context"
	"sync"
)

// CaptureHook keeps every event it is notified of. It backs tests and the
// example programs; Err, when set, is returned from Notify after recording.
type CaptureHook struct {
	Err error

	mu     sync.Mutex
	events []Event
}

func (h *CaptureHook) Notify(_ context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, NormalizeEvent(event))
	return h.Err
}

// Snapshot returns a copy of the recorded events.
func (h *CaptureHook) Snapshot() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.events...)
}

// Verbs returns the recorded verbs in order.
func (h *CaptureHook) Verbs() []string {
	events := h.Snapshot()
	verbs := make([]string, len(events))
	for i, event := range events {
		verbs[i] = event.Verb
	}
	return verbs
}

// ForKey returns the events recorded for one storage key.
func (h *CaptureHook) ForKey(key string) []Event {
	var out []Event
	for _, event := range h.Snapshot() {
		if event.ObjectID == key {
			out = append(out, event)
		}
	}
	return out
}

// Reset forgets recorded events.
func (h *CaptureHook) Reset() {
	h.mu.Lock()
	h.events = nil
	h.mu.Unlock()
}
