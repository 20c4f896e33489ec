// Package activity reports form persistence events (saved, restored, cleared,
// migrated) to pluggable sinks.
package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Event is one persistence occurrence. ObjectID holds the storage key. IDs
// are strings so call sites are not tied to a UUID type.
type Event struct {
	Verb       string
	ActorID    string
	UserID     string
	TenantID   string
	ObjectType string
	ObjectID   string
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivityHook receives normalized events. Hooks run on the goroutine that
// finished the storage operation and should return quickly.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc adapts a function to ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans an event out to every hook.
type Hooks []ActivityHook

// Enabled reports whether there is at least one hook.
func (h Hooks) Enabled() bool {
	return len(h.compact()) > 0
}

// compact drops nil hooks. It returns nil when none remain.
func (h Hooks) compact() Hooks {
	var out Hooks
	for _, hook := range h {
		if hook != nil {
			out = append(out, hook)
		}
	}
	return out
}

// Notify normalizes event and forwards it to every hook. Events without a
// verb or key are dropped. Hook errors and panics are joined into the
// returned error; one failing hook does not stop the others.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}
	normalized := NormalizeEvent(event)
	if normalized.Verb == "" || normalized.ObjectID == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := notifyOne(ctx, hook, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func notifyOne(ctx context.Context, hook ActivityHook, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("activity: hook %T panicked on %s: %v", hook, event.Verb, r)
		}
	}()
	return hook.Notify(ctx, event)
}

// NormalizeEvent trims identifiers, copies metadata, defaults ObjectType to
// ObjectTypeForm and stamps OccurredAt when missing.
func NormalizeEvent(event Event) Event {
	normalized := Event{
		Verb:       strings.TrimSpace(event.Verb),
		ActorID:    strings.TrimSpace(event.ActorID),
		UserID:     strings.TrimSpace(event.UserID),
		TenantID:   strings.TrimSpace(event.TenantID),
		ObjectType: strings.TrimSpace(event.ObjectType),
		ObjectID:   strings.TrimSpace(event.ObjectID),
		Channel:    strings.TrimSpace(event.Channel),
		Metadata:   cloneMap(event.Metadata),
		OccurredAt: event.OccurredAt,
	}
	if normalized.ObjectType == "" {
		normalized.ObjectType = ObjectTypeForm
	}
	if normalized.OccurredAt.IsZero() {
		normalized.OccurredAt = time.Now()
	}
	return normalized
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
