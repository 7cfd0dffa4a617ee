package logger

import (
	"context"

	"github.com/google/uuid"
)

// WithTraceID adds a trace ID to the context, generating one when traceID is
// empty.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		traceID = NewTraceID()
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID extracts the trace ID from the context, or "".
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// NewTraceID generates a new trace ID using UUID v4.
func NewTraceID() string {
	return uuid.New().String()
}

// WithGuildID tags the context with the guild an operation acts on.
func WithGuildID(ctx context.Context, guildID int64) context.Context {
	return context.WithValue(ctx, GuildIDKey, guildID)
}

// GetGuildID returns the guild tagged on ctx, or 0.
func GetGuildID(ctx context.Context) int64 {
	if id, ok := ctx.Value(GuildIDKey).(int64); ok {
		return id
	}
	return 0
}
