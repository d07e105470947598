package observability

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/kg-road/roadrag/internal/contextkeys"
)

// NewLogger builds the process logger from cfg. Unknown levels fall back to info.
func NewLogger(cfg LoggingConfig, w io.Writer) *slog.Logger {
	level := ParseLevel(cfg.Level)
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(NewJSONHandler(w, level))
	}
	return slog.New(NewTextHandler(w, level))
}

// ParseLevel maps a config level name to a slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewJSONHandler creates a JSON log handler writing to w at level.
func NewJSONHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

// NewTextHandler creates a human-readable text handler writing to w at level.
func NewTextHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}

// TracedLogger is a structured logger with automatic trace correlation.
// It wraps slog.Logger and stamps every entry with the component name, the
// chat session (when set) and the OpenTelemetry trace and span ids.
type TracedLogger struct {
	logger          *slog.Logger
	component       string
	sessionID       string
	redactSensitive bool
}

// NewTracedLogger wraps logger for one component. A nil logger uses slog.Default().
func NewTracedLogger(logger *slog.Logger, component string) *TracedLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &TracedLogger{
		logger:          logger,
		component:       component,
		redactSensitive: true,
	}
}

// WithSession returns a copy of l that tags entries with sessionID.
func (l *TracedLogger) WithSession(sessionID string) *TracedLogger {
	cp := *l
	cp.sessionID = sessionID
	return &cp
}

// Debug logs without redaction; generated Cypher and prompts are only
// ever logged at this level.
func (l *TracedLogger) Debug(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).Debug(msg, args...)
}

func (l *TracedLogger) Info(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).Info(msg, l.redact(args)...)
}

func (l *TracedLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).Warn(msg, l.redact(args)...)
}

func (l *TracedLogger) Error(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).Error(msg, l.redact(args)...)
}

// WithContext returns a slog.Logger carrying the component and session,
// plus the turn, aspect and trace correlation fields found in ctx.
func (l *TracedLogger) WithContext(ctx context.Context) *slog.Logger {
	logger := l.logger.With(slog.String("component", l.component))
	if l.sessionID != "" {
		logger = logger.With(slog.String("session_id", l.sessionID))
	}
	if turnID := contextkeys.GetTurnID(ctx); turnID != "" {
		logger = logger.With(slog.String("turn_id", turnID))
	}
	if aspect := contextkeys.GetAspect(ctx); aspect != "" {
		logger = logger.With(slog.String("aspect", aspect))
	}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		spanCtx := span.SpanContext()
		logger = logger.With(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		)
	}
	return logger
}

func (l *TracedLogger) redact(args []any) []any {
	if !l.redactSensitive {
		return args
	}
	return redactSensitiveData(args)
}

var sensitiveFields = map[string]bool{
	"prompt":     true,
	"apikey":     true,
	"secret":     true,
	"password":   true,
	"token":      true,
	"credential": true,
}

// redactSensitiveData replaces values of sensitive keys with "[REDACTED]".
// Keys are compared case-insensitively with underscores removed.
func redactSensitiveData(args []any) []any {
	if len(args)%2 != 0 {
		return args
	}

	redacted := make([]any, len(args))
	copy(redacted, args)

	for i := 0; i < len(args); i += 2 {
		if key, ok := args[i].(string); ok {
			normalized := strings.ToLower(strings.ReplaceAll(key, "_", ""))
			if sensitiveFields[normalized] {
				redacted[i+1] = "[REDACTED]"
			}
		}
	}
	return redacted
}
