package tracer

import (
	"context"
	"io"

	"github.com/kleimkuhler/tracing/trace/tracer/logger"
	"github.com/kleimkuhler/tracing/trace/tracer/span_store"
)

// Tracer is the dispatch surface over the span store. The lower half
// mirrors the store's raw operations for subscriber-style callers; the
// StartSpan family and Event are the ergonomic layer the contrib
// integrations use.
type Tracer interface {
	NewSpan(attrs *span_store.Attributes) span_store.ID
	Record(id span_store.ID, fields ...span_store.Field)
	Enter(id span_store.ID)
	Exit(id span_store.ID)
	CloneSpan(id span_store.ID) span_store.ID
	TryClose(id span_store.ID) bool
	CurrentSpan() (span_store.ID, bool)

	StartSpan(operationName string, opts ...StartSpanOption) Span
	StartSpanFromContext(ctx context.Context, operationName string, opts ...StartSpanOption) (Span, context.Context)

	// Event formats a point-in-time event, prefixed with the calling
	// goroutine's span ancestry, to the configured writer.
	Event(level span_store.Level, message string, fields ...span_store.Field)

	// Context exposes the store's current-span view to a consuming
	// formatter.
	Context() span_store.Context
}

// Span is a handle to one started span. Finish must be called exactly
// once, on the starting goroutine unless the span was started
// WithoutEnter.
type Span interface {
	ID() span_store.ID
	Name() string
	SetField(key string, value interface{}) Span
	RecordFields(fields ...span_store.Field) Span
	Finish()
}

type StartSpanConfig struct {
	parent  span_store.ID
	root    bool
	noEnter bool
	level   span_store.Level
	fields  []span_store.Field
}

type StartSpanOption func(*StartSpanConfig)

// ChildOf makes the new span an explicit child of the given span.
func ChildOf(parent span_store.ID) StartSpanOption {
	return func(config *StartSpanConfig) {
		config.parent = parent
		config.root = false
	}
}

// AsRoot starts the span with no parent, even inside an active span.
func AsRoot() StartSpanOption {
	return func(config *StartSpanConfig) {
		config.root = true
		config.parent = 0
	}
}

// WithoutEnter starts the span without pushing it onto the calling
// goroutine's active-span stack. Required when Finish may run on a
// different goroutine than the start.
func WithoutEnter() StartSpanOption {
	return func(config *StartSpanConfig) {
		config.noEnter = true
	}
}

func WithLevel(level span_store.Level) StartSpanOption {
	return func(config *StartSpanConfig) {
		config.level = level
	}
}

func WithSpanFields(fields ...span_store.Field) StartSpanOption {
	return func(config *StartSpanConfig) {
		config.fields = append(config.fields, fields...)
	}
}

type TracerConfig struct {
	Writer   io.Writer
	Logger   logger.Logger
	Capacity int
	Factory  span_store.VisitorFactory
}

type TracerOption func(*TracerConfig)

func WithWriter(w io.Writer) TracerOption {
	return func(config *TracerConfig) {
		config.Writer = w
	}
}

func WithLogger(l logger.Logger) TracerOption {
	return func(config *TracerConfig) {
		config.Logger = l
	}
}

func WithCapacity(capacity int) TracerOption {
	return func(config *TracerConfig) {
		config.Capacity = capacity
	}
}

func WithVisitorFactory(factory span_store.VisitorFactory) TracerOption {
	return func(config *TracerConfig) {
		config.Factory = factory
	}
}

type spanContextKey struct{}

var activeSpanContextKey spanContextKey

// ContextWithSpan returns ctx carrying sp for downstream callers.
func ContextWithSpan(ctx context.Context, sp Span) context.Context {
	return context.WithValue(ctx, activeSpanContextKey, sp)
}

// SpanFromContext returns the span carried by ctx, or nil.
func SpanFromContext(ctx context.Context) Span {
	if ctx == nil {
		return nil
	}
	sp, _ := ctx.Value(activeSpanContextKey).(Span)
	return sp
}
