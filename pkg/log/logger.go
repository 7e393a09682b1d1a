package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}

// SetupLogger configures the process-wide logger.
//
// format "console" (default) uses zerolog's console writer on stderr.
// format "json" uses a slog JSON handler on stdout with Cloud Logging field
// names and stack trace expansion.
func SetupLogger(level, format string) error {
	lv, err := ParseLevel(level)
	if err != nil {
		return err
	}
	switch format {
	case "", "console":
		SetProvider(&zerologProvider{base: NewConsoleLogger(os.Stderr, lv)})
	case "json":
		SetProvider(newSlogProvider(os.Stdout, lv))
	default:
		return fmt.Errorf("invalid log format: %s", format)
	}
	return nil
}

// ParseLevel maps "debug", "info", "warn", "error" to a Level.
func ParseLevel(level string) (Level, error) {
	switch level {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

func newJSONHandler(w io.Writer, level slog.Leveler) slog.Handler {
	ops := slog.HandlerOptions{
		AddSource: true,
		Level:     level,
		// Replace attributes to convert to CloudLogging format.
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				attr.Key = "severity"
			case slog.MessageKey:
				attr.Key = "message"
			case slog.SourceKey:
				attr.Key = "logging.googleapis.com/sourceLocation"
			}
			return attr
		},
	}
	return WrapByErrFmtHandler(slog.NewJSONHandler(w, &ops))
}

// SlogLogger adapts a *slog.Logger to Logger.
type SlogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps l.
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

func (s *SlogLogger) Debug(msg string, fields ...any) { s.l.Debug(msg, fields...) }
func (s *SlogLogger) Info(msg string, fields ...any)  { s.l.Info(msg, fields...) }
func (s *SlogLogger) Warn(msg string, fields ...any)  { s.l.Warn(msg, fields...) }

func (s *SlogLogger) Error(msg string, fields ...any) {
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			fields = append([]any{ErrAttr(err)}, fields[1:]...)
		}
	}
	s.l.Error(msg, fields...)
}

func (s *SlogLogger) With(fields ...any) Logger {
	return &SlogLogger{l: s.l.With(fields...)}
}

func (s *SlogLogger) Enabled(ctx context.Context, level Level) bool {
	return s.l.Enabled(ctx, slog.Level(level))
}

type slogProvider struct {
	level *slog.LevelVar
	base  *SlogLogger
}

func newSlogProvider(w io.Writer, level Level) *slogProvider {
	lv := new(slog.LevelVar)
	lv.Set(slog.Level(level))
	return &slogProvider{level: lv, base: NewSlogLogger(slog.New(newJSONHandler(w, lv)))}
}

func (p *slogProvider) GetLogger() Logger { return p.base }

func (p *slogProvider) GetLoggerWithName(name string) Logger {
	return p.base.With(ComponentKey, name)
}

func (p *slogProvider) SetLevel(level Level) { p.level.Set(slog.Level(level)) }
