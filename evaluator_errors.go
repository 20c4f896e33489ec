package formsaver

import (
	"errors"
	"fmt"
)

// Phases reported by EvaluationError.
const (
	PhaseCompile = "compile"
	PhaseRun     = "run"
)

// EvaluationError reports a migration expression that failed to compile or
// run.
type EvaluationError struct {
	Engine string
	Phase  string
	Expr   string
	// Rule is empty for compile failures outside a rule.
	Rule string
	Err  error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	rule := ""
	if e.Rule != "" {
		rule = " rule " + e.Rule
	}
	return fmt.Sprintf("formsaver: %s %s%s %s: %v", e.Engine, e.Phase, rule, quoteExpression(e.Expr), e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func quoteExpression(expr string) string {
	const limit = 80
	if expr == "" {
		return "<empty>"
	}
	if len(expr) > limit {
		expr = expr[:limit] + "..."
	}
	return fmt.Sprintf("%q", expr)
}

func compileError(engine, expr string, err error) error {
	return newEvaluationError(engine, PhaseCompile, expr, "", err)
}

func runError(engine, expr, rule string, err error) error {
	return newEvaluationError(engine, PhaseRun, expr, rule, err)
}

// newEvaluationError wraps err, or completes it when it already is an
// EvaluationError so nested failures are not reported twice.
func newEvaluationError(engine, phase, expr, rule string, err error) error {
	if err == nil {
		return nil
	}
	var existing *EvaluationError
	if errors.As(err, &existing) {
		if existing.Rule == "" {
			existing.Rule = rule
		}
		return existing
	}
	return &EvaluationError{Engine: engine, Phase: phase, Expr: expr, Rule: rule, Err: err}
}
