package log

import (
	"log/slog"
	"os"
)

// Logger is a slog.Logger that permanently carries its component attribute.
// Every record it emits is attributable to one part of the system.
type Logger struct {
	*slog.Logger
	component string
}

// Config selects the level, the component attribute and optionally a shared
// handler. Without a handler, records go to stdout as JSON.
type Config struct {
	Level     slog.Level
	Component string
	Handler   slog.Handler
}

func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: config.Level})
	}
	component := config.Component
	if component == "" {
		component = ComponentApp
	}
	return &Logger{
		Logger:    slog.New(handler).With(FieldComponent, component),
		component: component,
	}
}

// With returns a logger carrying extra attributes under the same component.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), component: l.component}
}

// WithComponent returns a logger attributed to a different component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With(FieldComponent, component), component: component}
}

// Component reports which part of the system this logger speaks for.
func (l *Logger) Component() string {
	return l.component
}

// SetDefault installs l as the process-wide slog default so that packages
// logging through slog directly share the same handler.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}
