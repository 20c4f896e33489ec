package formsaver

import (
	"fmt"
	"strings"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

type exprEvaluator struct {
	cache     ProgramCache
	functions *FunctionRegistry
}

// NewExprEvaluator returns the default engine, backed by expr-lang/expr.
func NewExprEvaluator(opts ...EvaluatorOption) Evaluator {
	cfg := applyEvaluatorOptions(opts)
	return &exprEvaluator{cache: cfg.cache, functions: cfg.functions}
}

func (e *exprEvaluator) Engine() string { return EngineExpr }

func (e *exprEvaluator) Compile(expression string) (Program, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, compileError(EngineExpr, expression, fmt.Errorf("expression must not be empty"))
	}
	names := e.functions.Names()
	// The program is typed against the function names, so they are part of
	// the cache key.
	key := expression + "\x00" + strings.Join(names, ",")
	program, err := cachedProgram(e.cache, EngineExpr, key, func() (*exprvm.Program, error) {
		return exprlang.Compile(expression,
			exprlang.Env(exprCallables(names, nil)),
			exprlang.AllowUndefinedVariables(),
		)
	})
	if err != nil {
		return nil, compileError(EngineExpr, expression, err)
	}
	return &exprProgram{program: program, functions: e.functions}, nil
}

// exprCallables binds call and every registry function. A nil registry yields
// stubs with the right signature, which is all compilation needs.
func exprCallables(names []string, registry *FunctionRegistry) map[string]any {
	env := map[string]any{
		"call": func(name string, args ...any) (any, error) {
			return registry.Call(name, args...)
		},
	}
	for _, name := range names {
		env[name] = registry.bound(name)
	}
	return env
}

type exprProgram struct {
	program   *exprvm.Program
	functions *FunctionRegistry
}

func (p *exprProgram) Run(in StepInput) (any, error) {
	env := exprCallables(p.functions.Names(), p.functions)
	for name, value := range in.withDefaults().variables() {
		env[name] = value
	}
	return exprlang.Run(p.program, env)
}
