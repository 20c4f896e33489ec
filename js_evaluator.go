//go:build js_eval

package formsaver

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

type jsEvaluator struct {
	cache     ProgramCache
	functions *FunctionRegistry
}

// NewJSEvaluator returns an engine backed by goja. The expression is the
// body of a return statement, so object literals need no extra parentheses.
func NewJSEvaluator(opts ...EvaluatorOption) Evaluator {
	cfg := applyEvaluatorOptions(opts)
	return &jsEvaluator{cache: cfg.cache, functions: cfg.functions}
}

func (e *jsEvaluator) Engine() string { return EngineJS }

func (e *jsEvaluator) Compile(expression string) (Program, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, compileError(EngineJS, expression, fmt.Errorf("expression must not be empty"))
	}
	program, err := cachedProgram(e.cache, EngineJS, expression, func() (*goja.Program, error) {
		return goja.Compile("migration", fmt.Sprintf("(function(){ return (%s); })()", expression), true)
	})
	if err != nil {
		return nil, compileError(EngineJS, expression, err)
	}
	return &jsProgram{program: program, functions: e.functions}, nil
}

type jsProgram struct {
	program   *goja.Program
	functions *FunctionRegistry
}

// Run uses a fresh runtime per call; goja runtimes are not safe for
// concurrent use.
func (p *jsProgram) Run(in StepInput) (any, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	for name, value := range in.withDefaults().variables() {
		if err := vm.Set(name, value); err != nil {
			return nil, err
		}
	}
	if err := vm.Set("call", func(name string, args ...any) (any, error) {
		return p.functions.Call(name, args...)
	}); err != nil {
		return nil, err
	}
	for _, name := range p.functions.Names() {
		if err := vm.Set(name, p.functions.bound(name)); err != nil {
			return nil, err
		}
	}
	value, err := vm.RunProgram(p.program)
	if err != nil {
		return nil, err
	}
	return value.Export(), nil
}
