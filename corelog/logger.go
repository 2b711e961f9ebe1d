// Package corelog defines the structured logging contract the breaker,
// bulkhead, and invoker packages consume. They never construct a logger
// themselves; one is injected at construction time, defaulting to
// NoOpLogger.
package corelog

import "context"

// Logger is the minimal logging contract consumed throughout this module.
type Logger interface {
	Info(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Debug(msg string, fields map[string]any)

	InfoWithContext(ctx context.Context, msg string, fields map[string]any)
	ErrorWithContext(ctx context.Context, msg string, fields map[string]any)
	WarnWithContext(ctx context.Context, msg string, fields map[string]any)
	DebugWithContext(ctx context.Context, msg string, fields map[string]any)
}

// ComponentAwareLogger lets a package tag its own log lines with a stable
// component name (e.g. "latchbreaker/breaker") while sharing one base
// configuration, so operators can filter logs by subsystem.
type ComponentAwareLogger interface {
	Logger
	WithComponent(component string) Logger
}

// NoOpLogger discards everything. It is the zero-value default for every
// constructor in this module that accepts a Logger.
type NoOpLogger struct{}

func (NoOpLogger) Info(string, map[string]any)  {}
func (NoOpLogger) Error(string, map[string]any) {}
func (NoOpLogger) Warn(string, map[string]any)  {}
func (NoOpLogger) Debug(string, map[string]any) {}

func (NoOpLogger) InfoWithContext(context.Context, string, map[string]any)  {}
func (NoOpLogger) ErrorWithContext(context.Context, string, map[string]any) {}
func (NoOpLogger) WarnWithContext(context.Context, string, map[string]any)  {}
func (NoOpLogger) DebugWithContext(context.Context, string, map[string]any) {}
