package formsaver

import (
	"time"

	"github.com/goliatone/go-formsaver/pkg/activity"
	"github.com/goliatone/go-formsaver/pkg/storage"
)

// DefaultRestoreTimeout bounds the storage read performed by Attach.
const DefaultRestoreTimeout = 5 * time.Second

// Config is supplied to NewService. The zero value is usable: attachments
// persist to a per-service memory store with built-in settings.
type Config struct {
	// Defaults sit between built-in settings and per-call options.
	Defaults Settings
	// Local backs StorageLocal and is the default store.
	Local storage.Storage
	// Session backs StorageSession; it falls back to Local.
	Session storage.Storage
	// Location feeds AutoKey.
	Location LocationProvider

	Logger          Logger
	Hooks           activity.Hooks
	ActivityChannel string

	RestoreTimeout time.Duration
	FallbackKey    string
	AutoKeyPrefix  string

	// Functions and ProgramCache are shared by declarative migration rules.
	Functions       *FunctionRegistry
	ProgramCache    ProgramCache
	EvaluatorLogger EvaluatorLogger
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = noopLogger{}
	}
	if c.RestoreTimeout <= 0 {
		c.RestoreTimeout = DefaultRestoreTimeout
	}
	if c.FallbackKey == "" {
		c.FallbackKey = DefaultFallbackKey
	}
	if c.AutoKeyPrefix == "" {
		c.AutoKeyPrefix = DefaultAutoKeyPrefix
	}
	if c.ProgramCache == nil {
		c.ProgramCache = NewMemoryProgramCache()
	}
	if c.EvaluatorLogger == nil {
		c.EvaluatorLogger = evaluatorLoggerFor(c.Logger)
	}
	return c
}

// RuleCompiler returns a compiler sharing the config's functions, program
// cache and evaluator logger.
func (c Config) RuleCompiler() *RuleCompiler {
	c = c.withDefaults()
	return NewRuleCompiler(
		RuleFunctions(c.Functions),
		RuleProgramCache(c.ProgramCache),
		RuleEvaluatorLogger(c.EvaluatorLogger),
	)
}
