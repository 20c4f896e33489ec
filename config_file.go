package formsaver

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/goliatone/go-formsaver/internal/hydrate"
	"github.com/goliatone/go-formsaver/pkg/storage"
)

// FileSettings is the file form of Settings.
type FileSettings struct {
	Key           string    `json:"key,omitempty"`
	AutoKey       *bool     `json:"auto_key,omitempty"`
	Debounce      *Duration `json:"debounce,omitempty"`
	Version       Version   `json:"version"`
	ClearOnSubmit *bool     `json:"clear_on_submit,omitempty"`
	Storage       string    `json:"storage,omitempty" validate:"omitempty,min=1"`
}

// Settings converts the file form. Migrations are supplied separately.
func (f FileSettings) Settings() Settings {
	s := Settings{
		AutoKey:       f.AutoKey,
		Debounce:      f.Debounce,
		Version:       f.Version,
		ClearOnSubmit: f.ClearOnSubmit,
	}
	if key := strings.TrimSpace(f.Key); key != "" {
		s.Key = &key
	}
	if f.Storage != "" {
		s.Storage = StorageNamed(f.Storage)
	}
	return s
}

// FileStorage names the DSNs backing the local and session stores.
type FileStorage struct {
	Local   string `json:"local,omitempty"`
	Session string `json:"session,omitempty"`
}

// FileConfig is the on-disk configuration read by LoadConfigFile.
type FileConfig struct {
	Defaults        FileSettings    `json:"defaults"`
	Storage         FileStorage     `json:"storage"`
	RestoreTimeout  *Duration       `json:"restore_timeout,omitempty" validate:"omitempty,gt=0"`
	FallbackKey     string          `json:"fallback_key,omitempty"`
	AutoKeyPrefix   string          `json:"auto_key_prefix,omitempty"`
	ActivityChannel string          `json:"activity_channel,omitempty"`
	Migrations      []MigrationRule `json:"migrations,omitempty" validate:"dive"`
}

// LoadConfigFile reads a YAML (.yaml, .yml) or JSON/JSONC (anything else)
// configuration file.
func LoadConfigFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("formsaver: read config %s: %w", path, err)
	}
	return ParseConfig(raw, hydrate.Context{Source: path, Format: hydrate.FormatFromPath(path)})
}

var configDecoder = hydrate.NewDecoder[FileConfig](
	hydrate.WithPreHook[FileConfig](normalizeConfigKeys),
	hydrate.WithDisallowUnknownFields[FileConfig](),
	hydrate.WithPostHook[FileConfig](validateFileConfig),
)

// ParseConfig decodes raw as the format named in ctx ("yaml" or "json").
// JSON input may carry comments and trailing commas.
func ParseConfig(raw []byte, ctx hydrate.Context) (FileConfig, error) {
	cfg, err := configDecoder.DecodeBytes(ctx, raw)
	if err != nil {
		return FileConfig{}, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return cfg, nil
}

// normalizeConfigKeys accepts camelCase and kebab-case keys by rewriting them
// to snake_case. Keys inside values are left alone.
func normalizeConfigKeys(_ hydrate.Context, document map[string]any) (map[string]any, error) {
	return normalizeMapKeys(document), nil
}

func normalizeMapKeys(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[snakeCase(key)] = normalizeNested(value)
	}
	return out
}

func normalizeNested(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return normalizeMapKeys(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = normalizeNested(item)
		}
		return out
	default:
		return value
	}
}

func snakeCase(key string) string {
	key = strings.TrimSpace(key)
	var b strings.Builder
	for i, r := range key {
		switch {
		case r == '-' || r == ' ':
			b.WriteByte('_')
		case unicode.IsUpper(r):
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func validateFileConfig(_ hydrate.Context, cfg *FileConfig) error {
	if err := settingsValidator().Struct(cfg); err != nil {
		return err
	}
	return nil
}

// Apply builds a Config from the file on top of base. Storage DSNs are
// opened and migration rules compiled with base's functions and cache.
// Stores opened here are owned by the returned Config's caller.
func (f FileConfig) Apply(base Config) (Config, error) {
	cfg := base
	cfg.Defaults = f.Defaults.Settings()
	if f.RestoreTimeout != nil {
		cfg.RestoreTimeout = f.RestoreTimeout.Std()
	}
	if f.FallbackKey != "" {
		cfg.FallbackKey = f.FallbackKey
	}
	if f.AutoKeyPrefix != "" {
		cfg.AutoKeyPrefix = f.AutoKeyPrefix
	}
	if f.ActivityChannel != "" {
		cfg.ActivityChannel = f.ActivityChannel
	}

	var (
		errs   []error
		opened []storage.Storage
	)
	open := func(name, dsn string) storage.Storage {
		s, err := storage.Open(dsn)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s storage: %w", name, err))
			return nil
		}
		opened = append(opened, s)
		return s
	}
	if f.Storage.Local != "" {
		cfg.Local = open(StorageLocal, f.Storage.Local)
	}
	if f.Storage.Session != "" {
		cfg.Session = open(StorageSession, f.Storage.Session)
	}
	if len(f.Migrations) > 0 {
		migrations, err := base.RuleCompiler().CompileAll(f.Migrations)
		if err != nil {
			errs = append(errs, err)
		}
		cfg.Defaults.Migrations = migrations
	}
	if len(errs) > 0 {
		for _, s := range opened {
			_ = storage.Close(s)
		}
		return Config{}, fmt.Errorf("formsaver: apply config: %w", errors.Join(errs...))
	}
	return cfg, nil
}
