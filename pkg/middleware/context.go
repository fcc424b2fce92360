// Package middleware provides MCP protocol-level middleware for the
// server: structured call logging and audit event emission.
package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

// contextKey is a private type for context keys.
type contextKey int

const requestIDContextKey contextKey = iota

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// GetRequestID retrieves the request ID from the context, or "" if none
// was set.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDContextKey).(string); ok {
		return id
	}
	return ""
}

// generateRequestID generates a random request ID.
func generateRequestID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return "req-" + hex.EncodeToString(b)
}
