package context

import (
	"context"

	"github.com/google/uuid"
)

// TraceContext ties the log lines of one HTTP request or seqctl run together.
// TraceID may arrive from an upstream caller; RequestID names this hop only.
type TraceContext struct {
	TraceID   string
	RequestID string
}

type traceContextKey struct{}

// NewTraceContext keeps the IDs it is given and generates the missing ones.
func NewTraceContext(traceID, requestID string) *TraceContext {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return &TraceContext{TraceID: traceID, RequestID: requestID}
}

func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// TraceFrom returns the trace attached to ctx, or nil.
func TraceFrom(ctx context.Context) *TraceContext {
	trace, _ := ctx.Value(traceContextKey{}).(*TraceContext)
	return trace
}

// EnsureTrace attaches a fresh trace unless ctx already carries one.
func EnsureTrace(ctx context.Context) (context.Context, *TraceContext) {
	if trace := TraceFrom(ctx); trace != nil {
		return ctx, trace
	}
	trace := NewTraceContext("", "")
	return WithTrace(ctx, trace), trace
}
