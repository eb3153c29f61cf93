package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/kindredlabs/kindred-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachTraceContext resolves a trace id and request id for every request and
// makes them available three ways: on the request context (for service-level
// logging), on the gin context, and echoed back as response headers.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		td := ctxutil.TraceData{
			TraceID:   resolveTraceID(c),
			RequestID: resolveRequestID(c),
		}

		c.Request = c.Request.WithContext(ctxutil.WithTraceData(c.Request.Context(), td))
		c.Set("trace_id", td.TraceID)
		c.Set("request_id", td.RequestID)

		h := c.Writer.Header()
		h.Set(headerTraceID, td.TraceID)
		h.Set(headerRequestID, td.RequestID)

		c.Next()
	}
}

// resolveTraceID prefers the caller-supplied header, then an active otel
// span, and mints a fresh id when neither exists.
func resolveTraceID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(headerTraceID)); id != "" {
		return id
	}
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return uuid.New().String()
}

func resolveRequestID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(headerRequestID)); id != "" {
		return id
	}
	return uuid.New().String()
}
