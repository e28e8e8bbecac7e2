package tracer

import (
	"context"

	"github.com/kleimkuhler/tracing/trace/tracer/span_store"
)

type registeredTracer struct {
	tracer       Tracer
	isRegistered bool
}

var globalTracer registeredTracer

func SetGlobalTracer(tracer Tracer) {
	globalTracer = registeredTracer{tracer, true}
}

func GlobalTracer() Tracer {
	return globalTracer.tracer
}

func IsGlobalTracerRegistered() bool {
	return globalTracer.isRegistered
}

func StartSpan(operationName string, opts ...StartSpanOption) Span {
	if globalTracer.tracer == nil {
		return noopSpan{}
	}
	return globalTracer.tracer.StartSpan(operationName, opts...)
}

func StartSpanFromContext(ctx context.Context, operationName string, opts ...StartSpanOption) (Span, context.Context) {
	if globalTracer.tracer == nil {
		return noopSpan{}, ctx
	}
	return globalTracer.tracer.StartSpanFromContext(ctx, operationName, opts...)
}

func Event(level span_store.Level, message string, fields ...span_store.Field) {
	if globalTracer.tracer == nil {
		return
	}
	globalTracer.tracer.Event(level, message, fields...)
}

// noopSpan stands in when no global tracer has been registered.
type noopSpan struct{}

func (noopSpan) ID() span_store.ID                     { return 0 }
func (noopSpan) Name() string                          { return "" }
func (noopSpan) SetField(string, interface{}) Span     { return noopSpan{} }
func (noopSpan) RecordFields(...span_store.Field) Span { return noopSpan{} }
func (noopSpan) Finish()                               {}
