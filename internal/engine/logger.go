package engine

import "log/slog"

// Logger records leveled pipeline events. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// OrDefault returns l, or slog.Default() when l is nil.
func OrDefault(l Logger) Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// NopLogger discards every event. Useful in tests.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
