package logger

import (
	"context"
	"log/slog"
)

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields added to every log record emitted with a context.
// A triage pass sets them once at the handler boundary so every downstream log line
// carries the delivery and issue it belongs to.
type LogFields struct {
	DeliveryID  *string // X-GitHub-Delivery header
	PassID      *int64  // Snowflake id of the triage pass
	Repository  *string // owner/name
	IssueNumber *int    // Issue number within the repository
	EventType   *string // Canonical event (e.g. "issue_opened", "comment_created")
	Component   string  // Component name (e.g. "triage.brain.dispatcher")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.DeliveryID != nil {
		result.DeliveryID = next.DeliveryID
	}
	if next.PassID != nil {
		result.PassID = next.PassID
	}
	if next.Repository != nil {
		result.Repository = next.Repository
	}
	if next.IssueNumber != nil {
		result.IssueNumber = next.IssueNumber
	}
	if next.EventType != nil {
		result.EventType = next.EventType
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// attrs renders the set fields in a stable order.
func (f LogFields) attrs() []slog.Attr {
	out := make([]slog.Attr, 0, 6)
	if f.DeliveryID != nil {
		out = append(out, slog.String("delivery_id", *f.DeliveryID))
	}
	if f.PassID != nil {
		out = append(out, slog.Int64("pass_id", *f.PassID))
	}
	if f.Repository != nil {
		out = append(out, slog.String("repository", *f.Repository))
	}
	if f.IssueNumber != nil {
		out = append(out, slog.Int("issue_number", *f.IssueNumber))
	}
	if f.EventType != nil {
		out = append(out, slog.String("event_type", *f.EventType))
	}
	if f.Component != "" {
		out = append(out, slog.String("component", f.Component))
	}
	return out
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{PassID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen bytes, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
