// Package usersink forwards form state activity to a go-users ActivitySink so
// saves, restores and clears show up in a user's activity feed.
package usersink

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-formsaver/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts activity events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
	// Actor is used when an event carries no parseable actor ID.
	Actor uuid.UUID
	// Verbs limits forwarding to the listed verbs. Empty forwards everything.
	Verbs []string
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := activity.NormalizeEvent(event)
	if normalized.Verb == "" || normalized.ObjectType == "" || normalized.ObjectID == "" {
		return nil
	}
	if !h.accepts(normalized.Verb) {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	actor := parseUUID(normalized.ActorID)
	if actor == uuid.Nil {
		actor = h.Actor
	}
	data := cloneMap(normalized.Metadata)
	if data == nil {
		data = map[string]any{}
	}
	data["key"] = normalized.ObjectID

	record := usertypes.ActivityRecord{
		ActorID:    actor,
		UserID:     parseUUID(normalized.UserID),
		TenantID:   parseUUID(normalized.TenantID),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Data:       data,
		OccurredAt: normalized.OccurredAt,
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}
	return h.Sink.Log(ctx, record)
}

func (h Hook) accepts(verb string) bool {
	if len(h.Verbs) == 0 {
		return true
	}
	for _, allowed := range h.Verbs {
		if strings.TrimSpace(allowed) == verb {
			return true
		}
	}
	return false
}

func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
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
