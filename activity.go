package formsaver

import (
	"context"

	"github.com/goliatone/go-formsaver/pkg/activity"
)

// ActivityHooks returns a copy of the hooks the service notifies.
func (s *Service) ActivityHooks() activity.Hooks {
	if s == nil {
		return nil
	}
	return cloneActivityHooks(s.hooks)
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}

// emit sends an event built from input. Hook failures are logged, never
// returned.
func (s *Service) emit(ctx context.Context, build func(activity.FormEventInput) activity.Event, input activity.FormEventInput) {
	if !s.emitter.Enabled() {
		return
	}
	if err := s.emitter.Emit(ctx, build(input)); err != nil {
		s.log(LogEvent{Op: "activity", Key: input.Key, Level: LevelWarn, Err: err})
	}
}
