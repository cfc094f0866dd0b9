package tracing

import (
	"context"

	"github.com/bwise1/campus_safety/util/values"
)

// Context carries request-scoped identifiers through handlers and logs.
type Context struct {
	RequestID     string
	RequestSource string
}

// FromContext returns the tracing context stored by the request middleware,
// or an empty one for requests that did not pass through it.
func FromContext(ctx context.Context) Context {
	tc, _ := ctx.Value(values.ContextTracingKey).(Context)
	return tc
}
