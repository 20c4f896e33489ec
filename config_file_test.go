package formsaver

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-formsaver/internal/hydrate"
	"github.com/goliatone/go-formsaver/pkg/storage"
)

const yamlConfig = `
defaults:
  autoKey: true
  debounce: 500ms
  version: 2
  clear-on-submit: true
storage:
  local: memory://
restoreTimeout: 2s
fallbackKey: drafts
migrations:
  - from: 1
    to: 2
    expr: '{"first": data.name}'
`

const jsoncConfig = `{
  // comments and trailing commas are fine
  "defaults": {"key": " signup ", "version": "v2", "storage": "session"},
  "storage": {"session": "memory://"},
  "migrations": [
    {"from": "v1", "to": "v2", "engine": "cel", "expr": "data"},
  ],
}`

func writeConfigFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadConfigFileYAML(t *testing.T) {
	cfg, err := LoadConfigFile(writeConfigFile(t, "formsaver.yaml", yamlConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defaults := cfg.Defaults.Settings()
	if !defaults.autoKey() || !defaults.clearOnSubmit() || defaults.DebounceOrDefault() != 500*time.Millisecond {
		t.Fatalf("unexpected defaults %+v", cfg.Defaults)
	}
	if defaults.Version != NumberVersion(2) {
		t.Fatalf("unexpected version %v", defaults.Version)
	}
	if cfg.Storage.Local != "memory://" || cfg.FallbackKey != "drafts" || cfg.RestoreTimeout.Std() != 2*time.Second {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if len(cfg.Migrations) != 1 || cfg.Migrations[0].From != NumberVersion(1) {
		t.Fatalf("unexpected migrations %+v", cfg.Migrations)
	}
}

func TestLoadConfigFileJSONC(t *testing.T) {
	cfg, err := LoadConfigFile(writeConfigFile(t, "formsaver.jsonc", jsoncConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defaults := cfg.Defaults.Settings()
	if defaults.KeyValue() != "signup" || defaults.Version != StringVersion("v2") || defaults.Storage.Name() != StorageSession {
		t.Fatalf("unexpected defaults %+v", defaults)
	}
	if cfg.Migrations[0].Engine != "cel" {
		t.Fatalf("unexpected migrations %+v", cfg.Migrations)
	}
}

func TestParseConfigRejects(t *testing.T) {
	cases := map[string]struct {
		format string
		body   string
	}{
		"unknown field":   {"yaml", "defaults:\n  debounse: 1s\n"},
		"bad engine":      {"yaml", "migrations:\n  - {from: 1, to: 2, engine: lua, expr: data}\n"},
		"missing expr":    {"json", `{"migrations":[{"from":1,"to":2}]}`},
		"bad duration":    {"json", `{"defaults":{"debounce":"soon"}}`},
		"zero timeout":    {"json", `{"restore_timeout":"0s"}`},
		"malformed yaml":  {"yaml", "defaults: [\n"},
		"malformed jsonc": {"json", `{"defaults": }`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tc.body), hydrate.Context{Source: name, Format: tc.format})
			if !errors.Is(err, ErrInvalidSettings) {
				t.Fatalf("expected ErrInvalidSettings, got %v", err)
			}
		})
	}
}

func TestParseConfigEmptyDocument(t *testing.T) {
	cfg, err := ParseConfig(nil, hydrate.Context{Source: "empty", Format: "json"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cfg.Migrations) != 0 || cfg.Storage.Local != "" {
		t.Fatalf("expected zero config, got %+v", cfg)
	}
}

func TestFileConfigApply(t *testing.T) {
	file, err := LoadConfigFile(writeConfigFile(t, "formsaver.yml", yamlConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg, err := file.Apply(Config{ActivityChannel: "base"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, ok := cfg.Local.(*storage.Memory); !ok {
		t.Fatalf("expected memory local store, got %T", cfg.Local)
	}
	if cfg.RestoreTimeout != 2*time.Second || cfg.FallbackKey != "drafts" || cfg.ActivityChannel != "base" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if len(cfg.Defaults.Migrations) != 1 {
		t.Fatalf("expected compiled migration, got %d", len(cfg.Defaults.Migrations))
	}
	data, err := cfg.Defaults.Migrations[0].Migrate(map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if m, _ := data.(map[string]any); m["first"] != "Ada" {
		t.Fatalf("unexpected migrated data %#v", data)
	}
}

func TestFileConfigApplyBadDSN(t *testing.T) {
	file := FileConfig{Storage: FileStorage{Local: "ftp://nowhere"}}
	if _, err := file.Apply(Config{}); !errors.Is(err, storage.ErrUnsupportedScheme) {
		t.Fatalf("expected unsupported scheme, got %v", err)
	}
}
