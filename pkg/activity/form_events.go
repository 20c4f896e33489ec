package activity

import (
	"strings"
	"time"
)

// Verbs emitted for form state lifecycle events.
const (
	VerbFormSaved         = "formsaver.saved"
	VerbFormRestored      = "formsaver.restored"
	VerbFormRestoreFailed = "formsaver.restore_failed"
	VerbFormCleared       = "formsaver.cleared"
	VerbFormMigrated      = "formsaver.migrated"
)

// ObjectTypeForm is the object type carried by every form event; the
// object ID is the storage key.
const ObjectTypeForm = "form"

// FormEventInput describes the common fields for form state events.
type FormEventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	Key        string
	Channel    string
	SaveID     string
	Storage    string
	Version    any
	FromVer    any
	Err        error
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildFormSavedEvent reports a payload written to storage.
func BuildFormSavedEvent(input FormEventInput) Event {
	return buildFormEvent(VerbFormSaved, input)
}

// BuildFormRestoredEvent reports a stored payload applied to a form.
func BuildFormRestoredEvent(input FormEventInput) Event {
	return buildFormEvent(VerbFormRestored, input)
}

// BuildFormRestoreFailedEvent reports a stored payload that could not be applied.
func BuildFormRestoreFailedEvent(input FormEventInput) Event {
	return buildFormEvent(VerbFormRestoreFailed, input)
}

// BuildFormClearedEvent reports a removed entry.
func BuildFormClearedEvent(input FormEventInput) Event {
	return buildFormEvent(VerbFormCleared, input)
}

// BuildFormMigratedEvent reports a stored payload moved between versions.
func BuildFormMigratedEvent(input FormEventInput) Event {
	return buildFormEvent(VerbFormMigrated, input)
}

func buildFormEvent(verb string, input FormEventInput) Event {
	metadata := cloneMap(input.Metadata)
	set := func(name string, value any) {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[name] = value
	}
	if id := strings.TrimSpace(input.SaveID); id != "" {
		set("save_id", id)
	}
	if name := strings.TrimSpace(input.Storage); name != "" {
		set("storage", name)
	}
	if input.Version != nil {
		set("version", input.Version)
	}
	if input.FromVer != nil {
		set("from_version", input.FromVer)
	}
	if input.Err != nil {
		set("error", input.Err.Error())
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: ObjectTypeForm,
		ObjectID:   strings.TrimSpace(input.Key),
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}
