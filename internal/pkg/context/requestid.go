// Package context provides request-scoped context helpers.
package context

import (
	"context"

	"github.com/ricesearch/relevance/internal/pkg/logger"
)

// WithRequestID adds a request ID to the context. Loggers derived with
// logger.WithContext pick it up.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, logger.RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
