package formsaver

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MigrationRule is a migration step written as an expression. The expression
// sees the stored data as `data`, the versions as `args.from` and `args.to`,
// the evaluation time as `now`, and any registered functions. Its result
// replaces the data.
type MigrationRule struct {
	From   Version `json:"from" yaml:"from"`
	To     Version `json:"to" yaml:"to"`
	Engine string  `json:"engine,omitempty" yaml:"engine,omitempty" validate:"omitempty,oneof=expr cel js"`
	Expr   string  `json:"expr" yaml:"expr" validate:"required"`
}

func (r MigrationRule) label() string {
	return fmt.Sprintf("%s->%s", r.From, r.To)
}

// RuleCompiler turns MigrationRules into Migrations.
type RuleCompiler struct {
	functions *FunctionRegistry
	cache     ProgramCache
	logger    EvaluatorLogger
	engines   map[string]Evaluator
}

// RuleCompilerOption configures a RuleCompiler.
type RuleCompilerOption func(*RuleCompiler)

// RuleFunctions exposes registry functions to rule expressions.
func RuleFunctions(registry *FunctionRegistry) RuleCompilerOption {
	return func(c *RuleCompiler) {
		if registry != nil {
			c.functions = registry.Clone()
		}
	}
}

// RuleProgramCache shares compiled programs across rules.
func RuleProgramCache(cache ProgramCache) RuleCompilerOption {
	return func(c *RuleCompiler) {
		c.cache = cache
	}
}

// RuleEvaluatorLogger records every rule evaluation.
func RuleEvaluatorLogger(logger EvaluatorLogger) RuleCompilerOption {
	return func(c *RuleCompiler) {
		c.logger = logger
	}
}

// RuleEvaluator overrides the evaluator used for engine.
func RuleEvaluator(engine string, evaluator Evaluator) RuleCompilerOption {
	return func(c *RuleCompiler) {
		if evaluator != nil {
			c.engines[normalizeEngine(engine)] = evaluator
		}
	}
}

func NewRuleCompiler(opts ...RuleCompilerOption) *RuleCompiler {
	c := &RuleCompiler{engines: map[string]Evaluator{}}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.logger == nil {
		c.logger = noopEvaluatorLogger{}
	}
	return c
}

func (c *RuleCompiler) evaluator(engine string) (Evaluator, error) {
	engine = normalizeEngine(engine)
	if evaluator, ok := c.engines[engine]; ok {
		return evaluator, nil
	}
	evaluator, err := NewEvaluator(engine, WithFunctions(c.functions), WithProgramCache(c.cache))
	if err != nil {
		return nil, err
	}
	c.engines[engine] = evaluator
	return evaluator, nil
}

// Compile validates and compiles rule.
func (c *RuleCompiler) Compile(rule MigrationRule) (Migration, error) {
	if rule.From.IsZero() || rule.To.IsZero() {
		return Migration{}, fmt.Errorf("%w: rule %s: from and to versions are required", ErrInvalidSettings, rule.label())
	}
	expr := strings.TrimSpace(rule.Expr)
	if expr == "" {
		return Migration{}, fmt.Errorf("%w: rule %s: expression is required", ErrInvalidSettings, rule.label())
	}
	evaluator, err := c.evaluator(rule.Engine)
	if err != nil {
		return Migration{}, fmt.Errorf("formsaver: rule %s: %w", rule.label(), err)
	}
	program, err := evaluator.Compile(expr)
	if err != nil {
		return Migration{}, fmt.Errorf("formsaver: rule %s: %w", rule.label(), err)
	}

	engine := evaluator.Engine()
	logger := c.logger
	from, to, label := rule.From, rule.To, rule.label()
	return Migration{
		From: from,
		To:   to,
		Migrate: func(data any) (any, error) {
			value, err := runLogged(logger, engine, expr, program, StepInput{
				Data: data,
				From: from,
				To:   to,
				Rule: label,
			})
			if err != nil {
				return nil, err
			}
			return jsonNative(value)
		},
	}, nil
}

// CompileAll compiles rules in order, collecting every failure.
func (c *RuleCompiler) CompileAll(rules []MigrationRule) ([]Migration, error) {
	migrations := make([]Migration, 0, len(rules))
	var errs []error
	for _, rule := range rules {
		migration, err := c.Compile(rule)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		migrations = append(migrations, migration)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return migrations, nil
}

// jsonNative round trips value through JSON so migrated data has the same
// shape as data decoded from storage.
func jsonNative(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("formsaver: migrated data is not JSON: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
