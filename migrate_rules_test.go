package formsaver

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
)

func TestRuleCompilerEngines(t *testing.T) {
	cases := []struct {
		name string
		rule MigrationRule
		in   any
		want any
	}{
		{
			name: "expr rename",
			rule: MigrationRule{From: NumberVersion(1), To: NumberVersion(2), Expr: `{"first": data.name, "from": args.from}`},
			in:   map[string]any{"name": "Ada"},
			want: map[string]any{"first": "Ada", "from": 1.0},
		},
		{
			name: "expr split",
			rule: MigrationRule{From: NumberVersion(1), To: NumberVersion(2), Expr: `split(data, ",")`},
			in:   "a,b",
			want: []any{"a", "b"},
		},
		{
			name: "cel rename",
			rule: MigrationRule{From: StringVersion("a"), To: StringVersion("b"), Engine: "CEL", Expr: `{"first": data.name, "to": args.to}`},
			in:   map[string]any{"name": "Ada"},
			want: map[string]any{"first": "Ada", "to": "b"},
		},
		{
			name: "cel list",
			rule: MigrationRule{From: NumberVersion(1), To: NumberVersion(2), Engine: EngineCEL, Expr: `[data.a, data.a + 1.0]`},
			in:   map[string]any{"a": 1.0},
			want: []any{1.0, 2.0},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			step, err := NewRuleCompiler().Compile(tc.rule)
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			if step.From != tc.rule.From || step.To != tc.rule.To {
				t.Fatalf("unexpected edge %v -> %v", step.From, step.To)
			}
			got, err := step.Migrate(tc.in)
			if err != nil {
				t.Fatalf("migrate: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("want %#v got %#v", tc.want, got)
			}
		})
	}
}

func TestRuleCompilerRejectsInvalidRules(t *testing.T) {
	compiler := NewRuleCompiler()
	cases := []struct {
		name string
		rule MigrationRule
		want error
	}{
		{"missing from", MigrationRule{To: NumberVersion(1), Expr: "data"}, ErrInvalidSettings},
		{"missing expr", MigrationRule{From: NumberVersion(1), To: NumberVersion(2), Expr: "  "}, ErrInvalidSettings},
		{"unknown engine", MigrationRule{From: NumberVersion(1), To: NumberVersion(2), Engine: "lua", Expr: "data"}, ErrNoEvaluator},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := compiler.Compile(tc.rule); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if _, err := compiler.Compile(MigrationRule{From: NumberVersion(1), To: NumberVersion(2), Expr: "data +"}); err == nil {
		t.Fatalf("expected syntax error")
	}
}

func TestCompileAllJoinsErrors(t *testing.T) {
	_, err := NewRuleCompiler().CompileAll([]MigrationRule{
		{From: NumberVersion(1), To: NumberVersion(2), Expr: "data"},
		{To: NumberVersion(3), Expr: "data"},
		{From: NumberVersion(3), To: NumberVersion(4)},
	})
	if err == nil || strings.Count(err.Error(), "formsaver: invalid settings") != 2 {
		t.Fatalf("expected two joined errors, got %v", err)
	}
}

func TestRuleFunctionsAndLogging(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("upper", func(args ...any) (any, error) {
		s, _ := args[0].(string)
		return strings.ToUpper(s), nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	var (
		mu     sync.Mutex
		events []EvaluatorLogEvent
	)
	logger := EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, event)
	})
	compiler := NewRuleCompiler(RuleFunctions(registry), RuleProgramCache(NewMemoryProgramCache()), RuleEvaluatorLogger(logger))

	step, err := compiler.Compile(MigrationRule{From: NumberVersion(1), To: NumberVersion(2), Expr: `upper(data)`})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got, err := step.Migrate("ada")
	if err != nil || got != "ADA" {
		t.Fatalf("expected ADA, got %v err=%v", got, err)
	}

	celStep, err := compiler.Compile(MigrationRule{From: NumberVersion(2), To: NumberVersion(3), Engine: EngineCEL, Expr: `call("upper", data)`})
	if err != nil {
		t.Fatalf("compile cel: %v", err)
	}
	got, err = celStep.Migrate("lovelace")
	if err != nil || got != "LOVELACE" {
		t.Fatalf("expected LOVELACE, got %v err=%v", got, err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 || events[0].Engine != EngineExpr || events[1].Engine != EngineCEL || events[0].Rule != "1->2" {
		t.Fatalf("unexpected evaluator events %+v", events)
	}
}

func TestRuleRuntimeErrorIsEvaluationError(t *testing.T) {
	step, err := NewRuleCompiler().Compile(MigrationRule{From: NumberVersion(1), To: NumberVersion(2), Engine: EngineCEL, Expr: `data.missing`})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	_, err = Migrate(Payload{Version: NumberVersion(1), Data: map[string]any{}}, NumberVersion(2), []Migration{step})
	var evalErr *EvaluationError
	if !errors.Is(err, ErrMigration) || !errors.As(err, &evalErr) || evalErr.Engine != EngineCEL {
		t.Fatalf("expected migration error wrapping cel evaluation error, got %v", err)
	}
}

func TestRuleEvaluatorOverride(t *testing.T) {
	custom := NewExprEvaluator()
	compiler := NewRuleCompiler(RuleEvaluator("mine", custom))
	step, err := compiler.Compile(MigrationRule{From: NumberVersion(1), To: NumberVersion(2), Engine: "mine", Expr: `data * 2`})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got, err := step.Migrate(2)
	if err != nil || got != 4.0 {
		t.Fatalf("expected 4, got %v err=%v", got, err)
	}
}

func TestRuleCompilerJSWithoutTag(t *testing.T) {
	if NewJSEvaluator() != nil {
		t.Skip("built with js_eval")
	}
	_, err := NewRuleCompiler().Compile(MigrationRule{From: NumberVersion(1), To: NumberVersion(2), Engine: EngineJS, Expr: "data"})
	if !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("expected ErrNoEvaluator without js_eval, got %v", err)
	}
}
