package context

import (
	"context"

	"github.com/kleimkuhler/tracing/trace/tracer"
)

// NewContextForAsyncTracing returns a context that carries the caller's
// span but none of the caller's cancellation, so background work keeps
// its parent linkage after the request context is canceled. The span must
// stay unfinished until the async work starts its own child span.
func NewContextForAsyncTracing(ctx context.Context) context.Context {
	span := tracer.SpanFromContext(ctx)
	if span == nil {
		return context.Background()
	}
	return tracer.ContextWithSpan(context.Background(), span)
}
