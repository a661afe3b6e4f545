package services

import "context"

type contextKey string

const (
	broadcastIDKey contextKey = "broadcast_id"
	actionIDKey    contextKey = "action_id"
	requestIDKey   contextKey = "request_id"
)

// WithBroadcastID annotates context with the YouTube broadcast identifier.
func WithBroadcastID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, broadcastIDKey, id)
}

// BroadcastIDFromContext extracts the broadcast identifier if present.
func BroadcastIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(broadcastIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithActionID annotates context with the scheduled action identifier.
func WithActionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, actionIDKey, id)
}

// ActionIDFromContext extracts the action identifier if present.
func ActionIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(actionIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
