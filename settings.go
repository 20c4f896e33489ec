package formsaver

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-formsaver/pkg/storage"
)

// DefaultDebounce is the quiet period before a change is saved.
const DefaultDebounce = 300 * time.Millisecond

// Duration is a time.Duration that reads "300ms" style strings or integer
// milliseconds from configuration files.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch typed := raw.(type) {
	case float64:
		*d = Duration(time.Duration(typed) * time.Millisecond)
		return nil
	case string:
		parsed, err := time.ParseDuration(strings.TrimSpace(typed))
		if err != nil {
			return fmt.Errorf("formsaver: duration %q: %w", typed, err)
		}
		*d = Duration(parsed)
		return nil
	default:
		return fmt.Errorf("formsaver: duration must be a string or milliseconds, got %T", raw)
	}
}

// Storage names accepted by StorageNamed besides DSNs.
const (
	StorageLocal   = "local"
	StorageSession = "session"
)

// StorageRef selects the store an attachment persists to: a named built-in
// ("local", "session"), a DSN opened by the service, or a custom adapter.
type StorageRef struct {
	name    string
	adapter storage.Storage
}

// StorageNamed refers to a built-in store name or a DSN. The browser names
// "localStorage" and "sessionStorage" are accepted as aliases.
func StorageNamed(name string) StorageRef {
	name = strings.TrimSpace(name)
	switch {
	case strings.EqualFold(name, "localStorage"):
		name = StorageLocal
	case strings.EqualFold(name, "sessionStorage"):
		name = StorageSession
	}
	return StorageRef{name: name}
}

// StorageAdapter refers to a caller supplied adapter.
func StorageAdapter(s storage.Storage) StorageRef {
	return StorageRef{adapter: s}
}

func (r StorageRef) IsZero() bool { return r.name == "" && r.adapter == nil }

func (r StorageRef) Name() string { return r.name }

func (r StorageRef) Adapter() storage.Storage { return r.adapter }

func (r StorageRef) String() string {
	switch {
	case r.adapter != nil:
		return fmt.Sprintf("custom(%T)", r.adapter)
	case r.name != "":
		return r.name
	default:
		return "<default>"
	}
}

func (r StorageRef) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(r.String())
}

// Settings configure one attachment. Pointer fields distinguish "unset" from
// an explicit false or empty value so layers merge correctly.
type Settings struct {
	Key           *string     `json:"key,omitempty" validate:"omitempty,min=1"`
	AutoKey       *bool       `json:"auto_key,omitempty"`
	Debounce      *Duration   `json:"debounce,omitempty" validate:"omitempty,gte=0"`
	Version       Version     `json:"version"`
	Migrations    []Migration `json:"-"`
	ClearOnSubmit *bool       `json:"clear_on_submit,omitempty"`
	Storage       StorageRef  `json:"storage"`
}

// DebounceOrDefault returns the configured debounce or DefaultDebounce.
func (s Settings) DebounceOrDefault() time.Duration {
	if s.Debounce == nil {
		return DefaultDebounce
	}
	return s.Debounce.Std()
}

// KeyValue returns the explicit key, or "".
func (s Settings) KeyValue() string {
	if s.Key == nil {
		return ""
	}
	return *s.Key
}

func (s Settings) autoKey() bool {
	return s.AutoKey != nil && *s.AutoKey
}

func (s Settings) clearOnSubmit() bool {
	return s.ClearOnSubmit != nil && *s.ClearOnSubmit
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func settingsValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks field constraints. Migration graph problems are reported
// separately by ValidateMigrations.
func (s Settings) Validate() error {
	if err := settingsValidator().Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return nil
}

// Option adjusts Settings.
type Option func(*Settings)

// Apply returns a copy of s with opts applied.
func (s Settings) Apply(opts ...Option) Settings {
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// WithKey sets the storage key. Surrounding whitespace is trimmed and a blank
// key leaves the key unset.
func WithKey(key string) Option {
	return func(s *Settings) {
		key = strings.TrimSpace(key)
		if key == "" {
			s.Key = nil
			return
		}
		s.Key = &key
	}
}

// WithAutoKey derives the key from the current location when no key is set.
func WithAutoKey(enabled bool) Option {
	return func(s *Settings) {
		s.AutoKey = &enabled
	}
}

// WithDebounce sets the quiet period before a change is saved.
func WithDebounce(d time.Duration) Option {
	return func(s *Settings) {
		v := Duration(d)
		s.Debounce = &v
	}
}

// WithVersion sets the payload version written on save and targeted on restore.
func WithVersion(v Version) Option {
	return func(s *Settings) {
		s.Version = v
	}
}

// WithMigrations appends migration steps.
func WithMigrations(steps ...Migration) Option {
	return func(s *Settings) {
		s.Migrations = append(append([]Migration{}, s.Migrations...), steps...)
	}
}

// WithClearOnSubmit clears the stored entry when Handle.Submit is called.
func WithClearOnSubmit(enabled bool) Option {
	return func(s *Settings) {
		s.ClearOnSubmit = &enabled
	}
}

// WithStorage persists through a caller supplied adapter.
func WithStorage(adapter storage.Storage) Option {
	return func(s *Settings) {
		s.Storage = StorageAdapter(adapter)
	}
}

// WithStorageName persists through a named store ("local", "session") or a DSN.
func WithStorageName(name string) Option {
	return func(s *Settings) {
		s.Storage = StorageNamed(name)
	}
}

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }

// DurationOf returns a pointer to d as a Duration.
func DurationOf(d time.Duration) *Duration {
	v := Duration(d)
	return &v
}

// Settings layer priorities; higher wins.
const (
	PriorityBuiltin  = 100
	PriorityDefaults = 200
	PriorityCall     = 300
)

// BuiltinSettings returns the engine defaults.
func BuiltinSettings() Settings {
	return Settings{
		AutoKey:       Bool(false),
		Debounce:      DurationOf(DefaultDebounce),
		ClearOnSubmit: Bool(false),
	}
}

// ResolveSettings layers call options over defaults over BuiltinSettings.
func ResolveSettings(defaults Settings, opts ...Option) (*Resolved[Settings], error) {
	call := Settings{}.Apply(opts...)
	stack, err := NewStack(
		NewLayer(NewScope("call", PriorityCall, WithScopeLabel("Attach options")), call),
		NewLayer(NewScope("defaults", PriorityDefaults, WithScopeLabel("Configured defaults")), defaults),
		NewLayer(NewScope("builtin", PriorityBuiltin, WithScopeLabel("Built-in defaults")), BuiltinSettings()),
	)
	if err != nil {
		return nil, err
	}
	resolved, err := stack.Merge()
	if err != nil {
		return nil, err
	}
	if err := resolved.Value.Validate(); err != nil {
		return nil, err
	}
	return resolved, nil
}
