package activity

import (
	"context"
	"strings"
	"time"
)

// DefaultChannel is stamped on events that carry no channel.
const DefaultChannel = "formsaver"

// Config controls an Emitter.
type Config struct {
	Enabled bool
	// Channel defaults to DefaultChannel.
	Channel string
	// Now stamps OccurredAt; it defaults to time.Now.
	Now func() time.Time
}

// Emitter applies defaults to events and sends them to its hooks. A nil or
// disabled Emitter drops every event.
type Emitter struct {
	hooks   Hooks
	channel string
	now     func() time.Time
}

// NewEmitter returns an emitter, or one that drops everything when cfg is
// disabled or hooks is empty.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	e := &Emitter{channel: strings.TrimSpace(cfg.Channel), now: cfg.Now}
	if e.channel == "" {
		e.channel = DefaultChannel
	}
	if e.now == nil {
		e.now = time.Now
	}
	if cfg.Enabled {
		e.hooks = hooks.compact()
	}
	return e
}

// Enabled reports whether Emit reaches any hook.
func (e *Emitter) Enabled() bool {
	return e != nil && len(e.hooks) > 0
}

// Channel returns the channel stamped on events without one.
func (e *Emitter) Channel() string {
	if e == nil {
		return DefaultChannel
	}
	return e.channel
}

// Emit fills in Channel and OccurredAt and notifies the hooks.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = e.now()
	}
	return e.hooks.Notify(ctx, event)
}
