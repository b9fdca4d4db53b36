// Package logger provides structured logging built on log/slog.
package logger

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

// contextKey is the type used for context-carried logging attributes.
type contextKey string

const (
	RequestIDKey   contextKey = "request_id"
	UserIDKey      contextKey = "user_id"
	AggregateIDKey contextKey = "aggregate_id"
)

var defaultLogger *slog.Logger

// Init configures the package-level logger.
func Init(level, format, outputPath string, addSource bool) error {
	logLevel := parseLevel(level)

	var output *os.File
	switch outputPath {
	case "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		// #nosec G304 - outputPath comes from config, not user input
		file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return err
		}
		output = file
	}

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: addSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format("2006-01-02T15:04:05.000Z"))
				}
			}
			return a
		},
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	handler = &contextHandler{Handler: handler}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)

	return nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// contextHandler lifts request/user/aggregate identifiers out of the
// context so callers never have to thread them through every log call.
type contextHandler struct {
	slog.Handler
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		r.AddAttrs(slog.String("request_id", requestID))
	}
	if userID, ok := ctx.Value(UserIDKey).(string); ok && userID != "" {
		r.AddAttrs(slog.String("user_id", userID))
	}
	if aggregateID, ok := ctx.Value(AggregateIDKey).(string); ok && aggregateID != "" {
		r.AddAttrs(slog.String("aggregate_id", aggregateID))
	}
	return h.Handler.Handle(ctx, r)
}

// WithContext returns the package logger; kept for symmetry with
// WithRequestID/WithUserID even though the context is applied at Handle time.
func WithContext(ctx context.Context) *slog.Logger {
	if defaultLogger == nil {
		return slog.Default()
	}
	return defaultLogger
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func WithAggregateID(ctx context.Context, aggregateID string) context.Context {
	return context.WithValue(ctx, AggregateIDKey, aggregateID)
}

func Debug(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Debug(msg, args...)
	}
}

func Info(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Info(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Warn(msg, args...)
	}
}

func Error(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Error(msg, args...)
	}
}

// LogError logs an error along with the caller's file/line/function.
func LogError(ctx context.Context, msg string, err error) {
	l := WithContext(ctx)

	pc, file, line, ok := runtime.Caller(1)
	if ok {
		fn := runtime.FuncForPC(pc)
		l.Error(msg,
			slog.String("error", err.Error()),
			slog.String("file", file),
			slog.Int("line", line),
			slog.String("function", fn.Name()),
		)
	} else {
		l.Error(msg, slog.String("error", err.Error()))
	}
}

// Metrics logs a timed operation in a consistent shape.
func Metrics(ctx context.Context, operation string, duration time.Duration, attrs ...slog.Attr) {
	l := WithContext(ctx)

	baseAttrs := []any{
		slog.String("operation", operation),
		slog.Duration("duration", duration),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	}
	for _, attr := range attrs {
		baseAttrs = append(baseAttrs, attr)
	}

	l.Info("metrics", baseAttrs...)
}
