//go:build !js_eval

package formsaver

// NewJSEvaluator returns nil unless the module is built with the js_eval tag.
func NewJSEvaluator(...EvaluatorOption) Evaluator {
	return nil
}
