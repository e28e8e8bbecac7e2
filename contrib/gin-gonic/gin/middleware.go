package gin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kleimkuhler/tracing/trace/tracer"
)

// NewMiddleware returns a gin middleware that opens a server span around
// every request and makes it the handler goroutine's current span, so
// events and child spans emitted inside the handler carry the request in
// their ancestry.
func NewMiddleware(tr tracer.Tracer) gin.HandlerFunc {
	if tr == nil {
		panic("tracer is nil")
	}
	return func(c *gin.Context) {
		resourceName := c.FullPath()
		if resourceName == "" {
			resourceName = "unknown"
		}

		requestId := uuid.NewString()
		span, ctx := tr.StartSpanFromContext(c.Request.Context(), "request")
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Add("x-request-id", requestId)

		span.SetField(tracer.RequestID, requestId)
		span.SetField(tracer.HttpMethod, c.Request.Method)
		span.SetField(tracer.HttpPath, resourceName)
		if c.Request.URL != nil {
			span.SetField(tracer.HttpHost, c.Request.URL.Host)
		}

		// Finish must run on the handler goroutine so the span's
		// active-stack entry is released.
		defer span.Finish()

		isPanic := true
		defer func() {
			status := c.Writer.Status()
			if isPanic {
				// Trace middleware runs before gin's recovery handler.
				status = http.StatusInternalServerError
			}
			span.SetField(tracer.HttpStatusCode, status)
		}()

		c.Next()
		isPanic = false
	}
}

// NewGinContextAdapter maps a bare *gin.Context to the request context,
// so code handed a gin.Context can still resolve the active span.
func NewGinContextAdapter() func(context.Context) context.Context {
	return func(ctx context.Context) context.Context {
		if ctx == nil {
			return nil
		}
		if c, ok := ctx.(*gin.Context); ok {
			return c.Request.Context()
		}
		return ctx
	}
}
