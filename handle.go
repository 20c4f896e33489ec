package formsaver

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-formsaver/internal/debounce"
	"github.com/goliatone/go-formsaver/pkg/activity"
	"github.com/goliatone/go-formsaver/pkg/form"
	"github.com/goliatone/go-formsaver/pkg/storage"
)

// Handle is one attached control. It saves on change until Destroy.
type Handle struct {
	service   *Service
	control   form.Control
	settings  Settings
	key       string
	store     storage.Deferred
	storeName string
	writeCtx  context.Context

	debouncer   *debounce.Debouncer
	unsubscribe func()
	destroyed   atomic.Bool
	destroyOnce sync.Once
}

// Key returns the storage key the handle writes to.
func (h *Handle) Key() string { return h.key }

// Control returns the attached control.
func (h *Handle) Control() form.Control { return h.control }

// Settings returns the resolved settings.
func (h *Handle) Settings() Settings { return h.settings }

// Destroyed reports whether Destroy has been called.
func (h *Handle) Destroyed() bool { return h.destroyed.Load() }

// Save writes the current value and metadata now. Failures are logged; the
// returned Pending carries them for callers that want to wait. After Destroy
// Save does nothing.
func (h *Handle) Save() *storage.Pending {
	if h.destroyed.Load() {
		return storage.Resolved(nil)
	}
	s := h.service
	raw, err := Encode(h.control.Value(), CollectMeta(h.control), h.settings.Version)
	if err != nil {
		s.log(LogEvent{Op: "save", Key: h.key, Level: LevelWarn, Err: err})
		return storage.Resolved(err)
	}

	start := time.Now()
	saveID := uuid.NewString()
	pending := h.store.Set(h.writeCtx, h.key, raw)
	go func() {
		<-pending.Done()
		input := activity.FormEventInput{
			Key:     h.key,
			Storage: h.storeName,
			SaveID:  saveID,
			Version: h.settings.Version.Value(),
		}
		if err := pending.Err(); err != nil {
			err = fmt.Errorf("%w: set %q: %w", ErrStorage, h.key, err)
			s.log(LogEvent{Op: "save", Key: h.key, Level: LevelWarn, Duration: time.Since(start), Err: err})
			input.Err = err
		} else {
			s.log(LogEvent{Op: "save", Key: h.key, Level: LevelDebug, Duration: time.Since(start), Fields: map[string]any{
				"save_id": saveID,
				"bytes":   len(raw),
			}})
		}
		s.emit(h.writeCtx, activity.BuildFormSavedEvent, input)
	}()
	return pending
}

// Flush runs a pending debounced save immediately and reports whether one
// was pending.
func (h *Handle) Flush() bool {
	if h.debouncer == nil {
		return false
	}
	return h.debouncer.Flush()
}

// Clear removes the stored entry. A save still waiting on the debounce is
// dropped so it cannot write the entry back. After Destroy Clear does nothing.
func (h *Handle) Clear() *storage.Pending {
	if h.destroyed.Load() {
		return storage.Resolved(nil)
	}
	if h.debouncer != nil {
		h.debouncer.Cancel()
	}
	return h.service.remove(h.writeCtx, h.store, h.storeName, h.key)
}

// Submit signals a form submission: the entry is cleared when ClearOnSubmit
// is set, otherwise nothing happens.
func (h *Handle) Submit() *storage.Pending {
	if !h.settings.clearOnSubmit() {
		return storage.Resolved(nil)
	}
	return h.Clear()
}

// Destroy unsubscribes from the control and cancels any pending save. A
// debounced save already running finishes before Destroy returns; no save
// starts afterwards. It is safe to call more than once.
func (h *Handle) Destroy() {
	h.destroyOnce.Do(func() {
		if h.unsubscribe != nil {
			h.unsubscribe()
		}
		// Stop waits for a debounced save already running, so none can
		// start once destroyed is set.
		if h.debouncer != nil {
			h.debouncer.Stop()
		}
		h.destroyed.Store(true)
		h.service.log(LogEvent{Op: "destroy", Key: h.key, Level: LevelDebug})
	})
}
