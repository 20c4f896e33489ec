package formsaver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-formsaver/internal/debounce"
	"github.com/goliatone/go-formsaver/pkg/activity"
	"github.com/goliatone/go-formsaver/pkg/form"
	"github.com/goliatone/go-formsaver/pkg/storage"
)

const fallbackStoreName = "memory"

// Service attaches form controls to storage. It is safe for concurrent use.
type Service struct {
	cfg      Config
	hooks    activity.Hooks
	emitter  *activity.Emitter
	fallback *storage.Memory

	mu     sync.Mutex
	opened map[string]storage.Storage
}

// NewService builds a Service. The zero Config is valid.
func NewService(cfg Config) *Service {
	cfg = cfg.withDefaults()
	hooks := cloneActivityHooks(cfg.Hooks)
	return &Service{
		cfg:   cfg,
		hooks: hooks,
		emitter: activity.NewEmitter(hooks, activity.Config{
			Enabled: len(hooks) > 0,
			Channel: cfg.ActivityChannel,
		}),
		fallback: storage.NewMemory(),
		opened:   map[string]storage.Storage{},
	}
}

func (s *Service) log(event LogEvent) {
	s.cfg.Logger.Log(event)
}

// ResolveSettings merges opts over the configured defaults and the built-in
// settings.
func (s *Service) ResolveSettings(opts ...Option) (*Resolved[Settings], error) {
	return ResolveSettings(s.cfg.Defaults, opts...)
}

// Key reports the storage key settings resolve to.
func (s *Service) Key(settings Settings) string {
	return resolveKey(settings, s.cfg.Location, s.cfg.AutoKeyPrefix, s.cfg.FallbackKey)
}

// Attach restores the stored state of control, if any, and keeps saving it
// on change until the returned Handle is destroyed. Errors are returned only
// for a nil control or invalid settings; storage and payload problems are
// logged and leave control as supplied.
func (s *Service) Attach(ctx context.Context, control form.Control, opts ...Option) (*Handle, error) {
	if control == nil {
		return nil, ErrNilControl
	}
	if ctx == nil {
		ctx = context.Background()
	}
	resolved, err := s.ResolveSettings(opts...)
	if err != nil {
		return nil, err
	}
	settings := resolved.Value
	key := s.Key(settings)

	if err := ValidateMigrations(settings.Migrations); err != nil {
		s.log(LogEvent{Op: "attach", Key: key, Level: LevelWarn, Err: err})
	}

	store, storeName := s.storageFor(settings.Storage, key)
	h := &Handle{
		service:   s,
		control:   control,
		settings:  settings,
		key:       key,
		store:     storage.Async(store),
		storeName: storeName,
		writeCtx:  context.WithoutCancel(ctx),
	}

	s.restore(ctx, h)

	h.debouncer = debounce.New(settings.DebounceOrDefault(), func() { h.Save() })
	h.unsubscribe = control.Subscribe(func(any) { h.debouncer.Trigger() })
	h.debouncer.Trigger()

	s.log(LogEvent{Op: "attach", Key: key, Level: LevelDebug, Fields: map[string]any{
		"storage":  storeName,
		"debounce": settings.DebounceOrDefault(),
		"version":  settings.Version.Value(),
	}})
	return h, nil
}

// restore loads, decodes, migrates and applies the stored payload. Any
// failure leaves the control untouched.
func (s *Service) restore(ctx context.Context, h *Handle) {
	start := time.Now()
	input := activity.FormEventInput{Key: h.key, Storage: h.storeName}
	fail := func(level Level, err error) {
		s.log(LogEvent{Op: "restore", Key: h.key, Level: level, Duration: time.Since(start), Err: err})
		input.Err = err
		s.emit(ctx, activity.BuildFormRestoreFailedEvent, input)
	}

	readCtx, cancel := context.WithTimeout(ctx, s.cfg.RestoreTimeout)
	defer cancel()
	raw, ok, err := h.store.Get(readCtx, h.key).Await(readCtx)
	if err != nil {
		fail(LevelWarn, fmt.Errorf("%w: get %q: %w", ErrStorage, h.key, err))
		return
	}
	if !ok || raw == "" {
		s.log(LogEvent{Op: "restore", Key: h.key, Level: LevelDebug, Duration: time.Since(start), Fields: map[string]any{"found": false}})
		return
	}

	payload, err := Decode(raw)
	if err != nil {
		fail(LevelInfo, err)
		return
	}
	from := payload.Version
	payload, err = Migrate(payload, h.settings.Version, h.settings.Migrations)
	if err != nil {
		input.FromVer = from.Value()
		fail(LevelInfo, err)
		return
	}
	if payload.Version != from {
		s.log(LogEvent{Op: "migrate", Key: h.key, Level: LevelDebug, Fields: map[string]any{
			"from": from.Value(),
			"to":   payload.Version.Value(),
		}})
		s.emit(ctx, activity.BuildFormMigratedEvent, activity.FormEventInput{
			Key:     h.key,
			Storage: h.storeName,
			FromVer: from.Value(),
			Version: payload.Version.Value(),
		})
	}

	if err := applyPayload(h.control, payload); err != nil {
		fail(LevelInfo, err)
		return
	}

	s.log(LogEvent{Op: "restore", Key: h.key, Level: LevelDebug, Duration: time.Since(start), Fields: map[string]any{"found": true}})
	input.Version = payload.Version.Value()
	s.emit(ctx, activity.BuildFormRestoredEvent, input)
}

// applyPayload writes data into control, tolerant first and strict second.
// When both fail the previous value is put back and metadata is skipped.
func applyPayload(control form.Control, payload Payload) error {
	before := control.Value()
	patchErr := control.Patch(payload.Data, form.Silent())
	if patchErr != nil {
		if setErr := control.Set(payload.Data, form.Silent()); setErr != nil {
			_ = control.Set(before, form.Silent())
			return fmt.Errorf("%w: %w", ErrPatch, errors.Join(patchErr, setErr))
		}
	}
	ApplyMeta(control, payload.Meta)
	return nil
}

// Clear removes the entry the options resolve to, or key when it is not
// empty. Failures are logged and carried by the returned Pending.
func (s *Service) Clear(ctx context.Context, key string, opts ...Option) *storage.Pending {
	if ctx == nil {
		ctx = context.Background()
	}
	resolved, err := s.ResolveSettings(opts...)
	if err != nil {
		s.log(LogEvent{Op: "clear", Key: key, Level: LevelWarn, Err: err})
		return storage.Resolved(err)
	}
	if key == "" {
		key = s.Key(resolved.Value)
	}
	store, name := s.storageFor(resolved.Value.Storage, key)
	return s.remove(context.WithoutCancel(ctx), storage.Async(store), name, key)
}

func (s *Service) remove(ctx context.Context, store storage.Deferred, storeName, key string) *storage.Pending {
	start := time.Now()
	pending := store.Remove(ctx, key)
	go func() {
		<-pending.Done()
		err := pending.Err()
		input := activity.FormEventInput{Key: key, Storage: storeName}
		if err != nil {
			err = fmt.Errorf("%w: remove %q: %w", ErrStorage, key, err)
			s.log(LogEvent{Op: "clear", Key: key, Level: LevelWarn, Duration: time.Since(start), Err: err})
			input.Err = err
		} else {
			s.log(LogEvent{Op: "clear", Key: key, Level: LevelDebug, Duration: time.Since(start)})
		}
		s.emit(ctx, activity.BuildFormClearedEvent, input)
	}()
	return pending
}

// storageFor resolves ref. Session falls back to local, local falls back to
// the service's memory store, and a DSN that cannot be opened falls back to
// the memory store with a warning.
func (s *Service) storageFor(ref StorageRef, key string) (storage.Storage, string) {
	if adapter := ref.Adapter(); adapter != nil {
		return adapter, ref.String()
	}
	switch name := ref.Name(); name {
	case "", StorageLocal:
		return s.local()
	case StorageSession:
		if s.cfg.Session != nil {
			return s.cfg.Session, StorageSession
		}
		return s.local()
	default:
		store, err := s.openDSN(name)
		if err != nil {
			s.log(LogEvent{Op: "storage", Key: key, Level: LevelWarn, Err: err, Fields: map[string]any{"dsn": name}})
			return s.fallback, fallbackStoreName
		}
		return store, name
	}
}

func (s *Service) local() (storage.Storage, string) {
	if s.cfg.Local != nil {
		return s.cfg.Local, StorageLocal
	}
	return s.fallback, fallbackStoreName
}

func (s *Service) openDSN(dsn string) (storage.Storage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if store, ok := s.opened[dsn]; ok {
		return store, nil
	}
	store, err := storage.Open(dsn)
	if err != nil {
		return nil, err
	}
	s.opened[dsn] = store
	return store, nil
}

// Close releases stores the service opened from DSNs. Stores supplied in
// Config belong to the caller.
func (s *Service) Close() error {
	s.mu.Lock()
	opened := s.opened
	s.opened = map[string]storage.Storage{}
	s.mu.Unlock()

	var errs []error
	for dsn, store := range opened {
		if err := storage.Close(store); err != nil {
			errs = append(errs, fmt.Errorf("formsaver: close %s: %w", dsn, err))
		}
	}
	return errors.Join(errs...)
}
