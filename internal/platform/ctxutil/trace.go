// Package ctxutil carries request-scoped identifiers across layer boundaries
// without importing the HTTP stack.
package ctxutil

import "context"

type ctxKey int

const traceKey ctxKey = iota

// TraceData identifies one request for log correlation: the trace id spans
// services, the request id is minted per inbound call.
type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td TraceData) context.Context {
	return context.WithValue(ctx, traceKey, td)
}

func TraceDataFrom(ctx context.Context) (TraceData, bool) {
	td, ok := ctx.Value(traceKey).(TraceData)
	return td, ok
}
