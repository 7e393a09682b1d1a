// Package log provides the structured logging interface used across gboost.
//
// The interface is slog-compatible so that backends can be swapped. The
// default backend is zerolog (see GetLogger); SetupLogger can switch the
// process to a log/slog JSON handler that expands cockroachdb/errors stack
// traces.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("learner").With(
//	    log.ObjectiveKey, "binary:logistic",
//	    log.BoosterKey, "gbtree",
//	)
//	logger.Info("boosting round finished",
//	    log.IterationKey, 3,
//	    log.SamplesKey, 1000,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key/value pairs. With returns a child logger whose
// fields are attached to every subsequent record.
type Logger interface {
	// Debug logs detailed diagnostic information.
	Debug(msg string, fields ...any)

	// Info logs general operational information.
	Info(msg string, fields ...any)

	// Warn logs a recoverable condition, such as a prediction cache miss.
	Warn(msg string, fields ...any)

	// Error logs an error condition. If the first field is an error value it
	// is attached under ErrAttrKey.
	//
	//   logger.Error("model load failed", err, log.OperationKey, log.OperationLoad)
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates loggers. The package-level GetLogger and
// GetLoggerWithName delegate to the active provider.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
