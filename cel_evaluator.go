package formsaver

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"google.golang.org/protobuf/types/known/structpb"
)

type celEvaluator struct {
	cache     ProgramCache
	functions *FunctionRegistry
}

// NewCELEvaluator returns an engine backed by cel-go. Expressions see data
// and args as dyn values and now as a timestamp; registry functions are
// reachable through call("name", ...) with up to two arguments.
func NewCELEvaluator(opts ...EvaluatorOption) Evaluator {
	cfg := applyEvaluatorOptions(opts)
	return &celEvaluator{cache: cfg.cache, functions: cfg.functions}
}

func (e *celEvaluator) Engine() string { return EngineCEL }

func (e *celEvaluator) Compile(expression string) (Program, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, compileError(EngineCEL, expression, fmt.Errorf("expression must not be empty"))
	}
	withCall := e.functions != nil
	key := expression
	if withCall {
		key += "\x00call"
	}
	prg, err := cachedProgram(e.cache, EngineCEL, key, func() (celgo.Program, error) {
		env, err := e.env(withCall)
		if err != nil {
			return nil, err
		}
		ast, issues := env.Compile(expression)
		if issues != nil && issues.Err() != nil {
			return nil, issues.Err()
		}
		return env.Program(ast)
	})
	if err != nil {
		return nil, compileError(EngineCEL, expression, err)
	}
	return &celProgram{program: prg}, nil
}

func (e *celEvaluator) env(withCall bool) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("data", celgo.DynType),
		celgo.Variable("args", celgo.MapType(celgo.StringType, celgo.DynType)),
		celgo.Variable("now", celgo.TimestampType),
	}
	if withCall {
		call := celCall(e.functions)
		opts = append(opts, celgo.Function("call",
			celgo.Overload("call_string",
				[]*celgo.Type{celgo.StringType}, celgo.DynType,
				celgo.UnaryBinding(func(name ref.Val) ref.Val { return call(name) })),
			celgo.Overload("call_string_dyn",
				[]*celgo.Type{celgo.StringType, celgo.DynType}, celgo.DynType,
				celgo.BinaryBinding(func(name, arg ref.Val) ref.Val { return call(name, arg) })),
			celgo.Overload("call_string_dyn_dyn",
				[]*celgo.Type{celgo.StringType, celgo.DynType, celgo.DynType}, celgo.DynType,
				celgo.FunctionBinding(call)),
		))
	}
	return celgo.NewEnv(opts...)
}

type celProgram struct {
	program celgo.Program
}

func (p *celProgram) Run(in StepInput) (any, error) {
	out, _, err := p.program.Eval(in.withDefaults().variables())
	if err != nil {
		return nil, err
	}
	return celToNative(out)
}

var structValueType = reflect.TypeOf(&structpb.Value{})

// celToNative converts a CEL result into plain JSON values (map[string]any,
// []any, float64, string, bool, nil) so it can be persisted unchanged.
func celToNative(out ref.Val) (any, error) {
	if out == nil || out == types.NullValue {
		return nil, nil
	}
	if ts, ok := out.(types.Timestamp); ok {
		return ts.Time.UTC().Format(time.RFC3339Nano), nil
	}
	converted, err := out.ConvertToNative(structValueType)
	if err != nil {
		return nil, fmt.Errorf("convert result %s: %w", out.Type().TypeName(), err)
	}
	value, ok := converted.(*structpb.Value)
	if !ok {
		return out.Value(), nil
	}
	return value.AsInterface(), nil
}

// celCall dispatches call(name, args...) to registry.
func celCall(registry *FunctionRegistry) func(...ref.Val) ref.Val {
	return func(values ...ref.Val) ref.Val {
		if len(values) == 0 {
			return types.NewErr("formsaver: call requires a function name")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("formsaver: call name must be a string")
		}
		args := make([]any, 0, len(values)-1)
		for _, val := range values[1:] {
			native, err := celToNative(val)
			if err != nil {
				return types.WrapErr(err)
			}
			args = append(args, native)
		}
		result, err := registry.Call(name, args...)
		if err != nil {
			return types.WrapErr(err)
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
