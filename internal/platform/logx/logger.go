// Package logx defines the structured logging interface used throughout the
// deposit engine, and a no-op implementation used as the context default.
package logx

import "context"

// Logger is the common interface implementations of the logging layer must
// satisfy. It intentionally mirrors a plain leveled-logger shape so call
// sites never depend on a concrete logging library.
type Logger interface {
	Info(args ...any)
	Infof(format string, args ...any)

	Error(args ...any)
	Errorf(format string, args ...any)

	Warn(args ...any)
	Warnf(format string, args ...any)

	Debug(args ...any)
	Debugf(format string, args ...any)

	Fatal(args ...any)
	Fatalf(format string, args ...any)

	// With returns a derived Logger that always includes the given
	// key/value pairs in subsequent entries. It must not mutate the
	// receiver.
	With(fields ...any) Logger

	Sync() error
}

// NoneLogger discards everything. It is the context default so that code
// reached outside of a properly wired call chain never panics on a nil
// logger.
type NoneLogger struct{}

func (l *NoneLogger) Info(args ...any)                  {}
func (l *NoneLogger) Infof(format string, args ...any)  {}
func (l *NoneLogger) Error(args ...any)                 {}
func (l *NoneLogger) Errorf(format string, args ...any) {}
func (l *NoneLogger) Warn(args ...any)                  {}
func (l *NoneLogger) Warnf(format string, args ...any)  {}
func (l *NoneLogger) Debug(args ...any)                 {}
func (l *NoneLogger) Debugf(format string, args ...any) {}
func (l *NoneLogger) Fatal(args ...any)                 {}
func (l *NoneLogger) Fatalf(format string, args ...any) {}
func (l *NoneLogger) Sync() error                       { return nil }

//nolint:ireturn
func (l *NoneLogger) With(fields ...any) Logger { return l }

type loggerContextKey string

const ctxKey = loggerContextKey("logger")

// ContextWithLogger returns a context carrying the given Logger.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, ctxKey, logger)
}

// FromContext extracts the Logger previously attached with
// ContextWithLogger, or a NoneLogger if none was attached.
//
//nolint:ireturn
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(ctxKey).(Logger); ok && logger != nil {
		return logger
	}

	return &NoneLogger{}
}
