package middleware

import (
	"log/slog"
	"time"

	"basegraph.app/triage/common/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v68/github"
)

// Logger attaches the webhook delivery id to the request context and logs
// every request once it completes.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}

		if deliveryID := github.DeliveryID(c.Request); deliveryID != "" {
			ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{DeliveryID: &deliveryID})
			c.Request = c.Request.WithContext(ctx)
		}

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		ctx := c.Request.Context()

		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		}
		if event := github.WebHookType(c.Request); event != "" {
			attrs = append(attrs, "github_event", event)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			slog.ErrorContext(ctx, "request failed", attrs...)
		case status >= 400:
			slog.WarnContext(ctx, "request error", attrs...)
		default:
			slog.InfoContext(ctx, "request", attrs...)
		}
	}
}
