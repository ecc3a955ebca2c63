// Package observability bridges the shared HTTP logging infrastructure to
// the use case logging ports.
package observability

import (
	"context"

	"github.com/sherpai/sherpai/internal/adapter/httpclient"
	"github.com/sherpai/sherpai/internal/usecase/review"
)

// ReviewLogger adapts httpclient.Logger to the review.Logger interface, so
// the orchestrator and trigger gate log through the same sink as the API
// clients.
type ReviewLogger struct {
	logger httpclient.Logger
}

// NewReviewLogger creates a new review logger adapter.
func NewReviewLogger(logger httpclient.Logger) review.Logger {
	return &ReviewLogger{logger: logger}
}

// LogInfo logs an informational message with structured fields.
func (l *ReviewLogger) LogInfo(ctx context.Context, message string, fields map[string]interface{}) {
	l.logger.LogInfo(ctx, message, fields)
}

// LogWarning logs a warning message with structured fields.
func (l *ReviewLogger) LogWarning(ctx context.Context, message string, fields map[string]interface{}) {
	l.logger.LogWarning(ctx, message, fields)
}
