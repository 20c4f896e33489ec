package formsaver

import "time"

// EvaluatorLogEvent describes an evaluation attempt for logging.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Rule     string
	Duration time.Duration
	Err      error
}

// EvaluatorLogger records evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// evaluatorLoggerFor forwards evaluator events to logger as "evaluate" events.
func evaluatorLoggerFor(logger Logger) EvaluatorLogger {
	if logger == nil {
		return noopEvaluatorLogger{}
	}
	return EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		level := LevelDebug
		if event.Err != nil {
			level = LevelInfo
		}
		logger.Log(LogEvent{
			Op:       "evaluate",
			Level:    level,
			Duration: event.Duration,
			Err:      event.Err,
			Fields: map[string]any{
				"engine": event.Engine,
				"expr":   event.Expr,
				"rule":   event.Rule,
			},
		})
	})
}
