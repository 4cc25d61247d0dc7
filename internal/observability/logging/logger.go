package logging

import (
	"context"
	"io"
	"os"
)

type Logger interface {
	Debug(component, msg string, fields ...any)
	Info(component, msg string, fields ...any)
	Warn(component, msg string, fields ...any)
	Error(component, msg string, fields ...any)
	Event(ctx context.Context, event string, fields map[string]any)
	Close() error
}

type loggerKey struct{}

func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func From(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey{}).(Logger); ok {
		return l
	}
	return Nop()
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &noopLogger{}
}

func NewLogger(cfg Config) (Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Format == FormatOff {
		return Nop(), nil
	}

	var w io.Writer
	var closer io.Closer

	switch cfg.Output {
	case "", "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		w = f
		closer = f
	}

	minLevel := levelPriority(cfg.Level)
	if cfg.Format == FormatJSONL {
		return &jsonlLogger{
			writer:   w,
			closer:   closer,
			minLevel: minLevel,
			opID:     cfg.OpID,
		}, nil
	}

	return &textLogger{
		writer:   w,
		closer:   closer,
		minLevel: minLevel,
		opID:     cfg.OpID,
	}, nil
}

type noopLogger struct{}

func (n *noopLogger) Debug(component, msg string, fields ...any) {}
func (n *noopLogger) Info(component, msg string, fields ...any)  {}
func (n *noopLogger) Warn(component, msg string, fields ...any)  {}
func (n *noopLogger) Error(component, msg string, fields ...any) {}
func (n *noopLogger) Event(ctx context.Context, event string, fields map[string]any) {
}
func (n *noopLogger) Close() error { return nil }
