package formsaver

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoEvaluator reports an engine name with no available evaluator.
var ErrNoEvaluator = errors.New("formsaver: evaluator not available")

// Evaluator engine names accepted by NewEvaluator and MigrationRule.Engine.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// StepInput is what a migration expression sees. Data is bound to `data`,
// the versions to `args.from` and `args.to`, and Now to `now`.
type StepInput struct {
	Data any
	From Version
	To   Version
	Now  time.Time
	// Rule names the step in errors and log events.
	Rule string
}

func (in StepInput) withDefaults() StepInput {
	if in.Now.IsZero() {
		in.Now = time.Now()
	}
	if in.Rule == "" {
		in.Rule = fmt.Sprintf("%s->%s", in.From, in.To)
	}
	return in
}

// variables returns the expression environment shared by every engine.
func (in StepInput) variables() map[string]any {
	return map[string]any{
		"data": in.Data,
		"args": map[string]any{"from": in.From.Value(), "to": in.To.Value()},
		"now":  in.Now,
	}
}

// reservedNames are bound by every engine and cannot be registered as
// functions.
var reservedNames = map[string]struct{}{"data": {}, "args": {}, "now": {}, "call": {}}

// Evaluator compiles migration expressions for one engine.
type Evaluator interface {
	Engine() string
	Compile(expression string) (Program, error)
}

// Program is a compiled expression. Run must be safe for concurrent use.
type Program interface {
	Run(in StepInput) (any, error)
}

// EvaluatorOption configures NewEvaluator.
type EvaluatorOption func(*evaluatorConfig)

type evaluatorConfig struct {
	cache     ProgramCache
	functions *FunctionRegistry
}

// WithProgramCache shares compiled programs between evaluators. Entries are
// keyed per engine so one cache can serve all of them.
func WithProgramCache(cache ProgramCache) EvaluatorOption {
	return func(cfg *evaluatorConfig) {
		cfg.cache = cache
	}
}

// WithFunctions exposes registry functions to expressions.
func WithFunctions(registry *FunctionRegistry) EvaluatorOption {
	return func(cfg *evaluatorConfig) {
		if registry != nil {
			cfg.functions = registry.Clone()
		}
	}
}

func applyEvaluatorOptions(opts []EvaluatorOption) evaluatorConfig {
	cfg := evaluatorConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// NewEvaluator builds the evaluator for engine. An empty engine selects expr.
// The js engine needs the js_eval build tag.
func NewEvaluator(engine string, opts ...EvaluatorOption) (Evaluator, error) {
	switch normalizeEngine(engine) {
	case EngineExpr:
		return NewExprEvaluator(opts...), nil
	case EngineCEL:
		return NewCELEvaluator(opts...), nil
	case EngineJS:
		if evaluator := NewJSEvaluator(opts...); evaluator != nil {
			return evaluator, nil
		}
		return nil, fmt.Errorf("%w: js (build with -tags js_eval)", ErrNoEvaluator)
	default:
		return nil, fmt.Errorf("%w: %q", ErrNoEvaluator, engine)
	}
}

func normalizeEngine(engine string) string {
	engine = strings.ToLower(strings.TrimSpace(engine))
	if engine == "" {
		return EngineExpr
	}
	return engine
}

// cachedProgram looks expression up in cache under engine, compiling and
// storing it on a miss.
func cachedProgram[P any](cache ProgramCache, engine, expression string, compile func() (P, error)) (P, error) {
	key := engine + ":" + expression
	if cache != nil {
		if cached, ok := cache.Get(key); ok {
			if program, ok := cached.(P); ok {
				return program, nil
			}
		}
	}
	program, err := compile()
	if err != nil {
		return program, err
	}
	if cache != nil {
		cache.Set(key, program)
	}
	return program, nil
}

// runLogged runs program and reports the attempt to logger.
func runLogged(logger EvaluatorLogger, engine, expression string, program Program, in StepInput) (any, error) {
	if logger == nil {
		logger = noopEvaluatorLogger{}
	}
	in = in.withDefaults()
	start := time.Now()
	value, err := program.Run(in)
	if err != nil {
		err = runError(engine, expression, in.Rule, err)
	}
	logger.LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expression,
		Rule:     in.Rule,
		Duration: time.Since(start),
		Err:      err,
	})
	return value, err
}
