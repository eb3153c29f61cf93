package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kindredlabs/kindred-backend/internal/platform/ctxutil"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

// RequestLogger emits one structured line per request after the handler
// chain finishes. Server faults log at Error, client mistakes at Warn,
// everything else at Info.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if log == nil {
			return
		}

		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"path", routePath(c),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		// The trace middleware mints both ids, so presence implies both.
		if td, ok := ctxutil.TraceDataFrom(c.Request.Context()); ok {
			fields = append(fields, "trace_id", td.TraceID, "request_id", td.RequestID)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "handler_errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Error("http request", fields...)
		case status >= 400:
			log.Warn("http request", fields...)
		default:
			log.Info("http request", fields...)
		}
	}
}

// routePath prefers the registered route pattern so log lines aggregate by
// endpoint rather than by raw URL; unmatched requests fall back to the path.
func routePath(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}
