package formsaver

import (
	"context"
	"log/slog"
	"time"
)

// Level is the severity of a LogEvent.
type Level = slog.Level

// Log levels used by the engine.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
)

// LogEvent describes one engine operation (attach, restore, save, clear,
// migrate, evaluate).
type LogEvent struct {
	Op       string
	Key      string
	Level    Level
	Duration time.Duration
	Err      error
	Fields   map[string]any
}

// Logger receives engine log events. Storage and decode failures never reach
// the caller as errors; they are reported here.
type Logger interface {
	Log(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

func (f LoggerFunc) Log(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) Log(LogEvent) {}

// SlogLogger forwards events to a slog.Logger. A nil logger uses slog.Default.
func SlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return LoggerFunc(func(event LogEvent) {
		attrs := make([]slog.Attr, 0, len(event.Fields)+3)
		if event.Key != "" {
			attrs = append(attrs, slog.String("key", event.Key))
		}
		if event.Duration > 0 {
			attrs = append(attrs, slog.Duration("duration", event.Duration))
		}
		if event.Err != nil {
			attrs = append(attrs, slog.Any("error", event.Err))
		}
		for name, value := range event.Fields {
			attrs = append(attrs, slog.Any(name, value))
		}
		logger.LogAttrs(context.Background(), event.Level, "formsaver."+event.Op, attrs...)
	})
}
