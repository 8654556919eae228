package linestream

import "log/slog"

// Logger is the interface for structured logging.
// It is designed to be compatible with *slog.Logger from the standard library.
// Applications can provide their own implementation or use the default slog logger.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, args ...any)
	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, args ...any)
	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, args ...any)
	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, args ...any)
}

// defaultLogger returns the default slog logger from the standard library.
func defaultLogger() Logger {
	return slog.Default()
}

// Tracer receives protocol transcript records such as "S:* OK ready" or
// "C:a1 LOGIN". Records never contain raw block content, only its size.
type Tracer interface {
	Trace(record string)
}

// TraceFunc adapts a function to the Tracer interface.
type TraceFunc func(record string)

// Trace calls fn(record).
func (fn TraceFunc) Trace(record string) {
	fn(record)
}

// LogTracer returns a Tracer that writes each record to logger at debug
// level under the "record" key.
func LogTracer(logger Logger) Tracer {
	return TraceFunc(func(record string) {
		logger.Debug("trace", "record", record)
	})
}
