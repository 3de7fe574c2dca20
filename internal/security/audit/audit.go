package audit

import (
	"context"
	"log/slog"
	"time"
)

type requestIDKey struct{}

// WithRequestID stores the request ID so audit records can be correlated with access logs
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID stored in ctx, if any
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger.With(slog.String("log_type", "audit"))}
}

// LogBatch records the outcome of a batch write against the employee collection
func (al *Logger) LogBatch(ctx context.Context, action, clientAddr string, size, succeeded, failed int) {
	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", "employee"),
		slog.String("client", clientAddr),
		slog.Int("batch_size", size),
		slog.Int("succeeded", succeeded),
		slog.Int("failed", failed),
		slog.String("request_id", RequestID(ctx)),
		slog.Time("timestamp", time.Now()),
	)
}

// LogRejected records a batch refused before any item was processed
func (al *Logger) LogRejected(ctx context.Context, action, clientAddr, reason string) {
	al.logger.Warn("audit",
		slog.String("action", action),
		slog.String("resource", "employee"),
		slog.String("client", clientAddr),
		slog.String("status", "rejected"),
		slog.String("details", reason),
		slog.String("request_id", RequestID(ctx)),
		slog.Time("timestamp", time.Now()),
	)
}
