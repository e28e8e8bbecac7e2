package tracer

import (
	"bytes"
	"context"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kleimkuhler/tracing/trace/tracer/logger"
	"github.com/kleimkuhler/tracing/trace/tracer/span_store"
)

var _ Tracer = &tracer{}

type tracer struct {
	store   *span_store.Store
	factory span_store.VisitorFactory
	ctx     span_store.Context
	logger  logger.Logger

	instanceId string

	writeMu sync.Mutex
	out     io.Writer
}

func newDefaultTracerConfig() TracerConfig {
	return TracerConfig{
		Writer:   os.Stderr,
		Logger:   &logger.NoopLogger{},
		Capacity: 32,
		Factory:  DefaultVisitorFactory(),
	}
}

func NewTracer(opts ...TracerOption) Tracer {
	config := newDefaultTracerConfig()
	for _, opt := range opts {
		opt(&config)
	}
	t := &tracer{
		factory:    config.Factory,
		logger:     config.Logger,
		instanceId: uuid.NewString(),
		out:        config.Writer,
	}
	// A span's death releases its parent reference through the tracer,
	// so outer layers observe the close; the cascade then unwinds one
	// level at a time.
	t.store = span_store.NewStore(
		span_store.WithCapacity(config.Capacity),
		span_store.WithLogger(config.Logger),
		span_store.WithParentCloser(func(id span_store.ID) {
			t.TryClose(id)
		}),
	)
	t.ctx = span_store.NewContext(t.store, t.factory)
	return t
}

func (t *tracer) NewSpan(attrs *span_store.Attributes) span_store.ID {
	return t.store.NewSpan(attrs, t.factory)
}

func (t *tracer) Record(id span_store.ID, fields ...span_store.Field) {
	t.store.Record(id, span_store.NewRecord(fields...), t.factory)
}

func (t *tracer) Enter(id span_store.ID) {
	t.store.Push(id)
}

func (t *tracer) Exit(id span_store.ID) {
	t.store.Pop(id)
}

func (t *tracer) CloneSpan(id span_store.ID) span_store.ID {
	return t.store.CloneSpan(id)
}

func (t *tracer) TryClose(id span_store.ID) bool {
	return t.store.DropSpan(id)
}

func (t *tracer) CurrentSpan() (span_store.ID, bool) {
	return t.store.Current()
}

func (t *tracer) Context() span_store.Context {
	return t.ctx
}

func (t *tracer) StartSpan(operationName string, opts ...StartSpanOption) Span {
	return t.startSpan(operationName, callerMetadata(operationName, 2), opts...)
}

func (t *tracer) StartSpanFromContext(ctx context.Context, operationName string, opts ...StartSpanOption) (Span, context.Context) {
	md := callerMetadata(operationName, 2)
	if parent := SpanFromContext(ctx); parent != nil {
		opts = append([]StartSpanOption{ChildOf(parent.ID())}, opts...)
	}
	sp := t.startSpan(operationName, md, opts...)
	return sp, ContextWithSpan(ctx, sp)
}

func (t *tracer) startSpan(operationName string, md *span_store.Metadata, opts ...StartSpanOption) Span {
	config := StartSpanConfig{level: span_store.LevelInfo}
	for _, opt := range opts {
		opt(&config)
	}
	md.Level = config.level

	var attrs *span_store.Attributes
	switch {
	case config.root:
		attrs = span_store.NewRootAttributes(md, config.fields...)
	case config.parent != 0:
		attrs = span_store.NewChildAttributes(md, config.parent, config.fields...)
	default:
		attrs = span_store.NewAttributes(md, config.fields...)
	}

	id := t.store.NewSpan(attrs, t.factory)
	sp := &span{id: id, name: operationName, tracer: t}
	if !config.noEnter {
		sp.enter()
	}
	return sp
}

// callerMetadata builds a span's static metadata from the caller's
// callsite. Metadata is immutable once the span is created, so allocating
// per call keeps the process-lifetime contract the store relies on.
func callerMetadata(operationName string, skip int) *span_store.Metadata {
	md := &span_store.Metadata{Name: operationName}
	if _, file, line, ok := runtime.Caller(skip); ok {
		md.File = file
		md.Line = line
	}
	return md
}

// Event formats a point-in-time event to the writer, prefixed with the
// calling goroutine's span ancestry, root first:
//
//	2021-01-27T15:00:59Z INFO request{http.method=GET}:auth: denied user=42
func (t *tracer) Event(level span_store.Level, message string, fields ...span_store.Field) {
	var buf bytes.Buffer
	buf.WriteString(time.Now().Format(time.RFC3339Nano))
	buf.WriteByte(' ')
	buf.WriteString(level.String())
	buf.WriteByte(' ')

	_ = t.ctx.VisitSpans(func(id span_store.ID, sp *span_store.Span) error {
		buf.WriteString(sp.Name())
		if f := sp.Fields(); f != "" {
			buf.WriteByte('{')
			buf.WriteString(f)
			buf.WriteByte('}')
		}
		buf.WriteByte(':')
		return nil
	})
	if buf.Bytes()[buf.Len()-1] == ':' {
		buf.WriteByte(' ')
	}
	buf.WriteString(message)

	if len(fields) > 0 {
		v := t.factory.Make(&buf, false)
		for _, f := range fields {
			v.Visit(f)
		}
	}
	buf.WriteByte('\n')

	t.writeMu.Lock()
	_, err := t.out.Write(buf.Bytes())
	t.writeMu.Unlock()
	if err != nil {
		t.logger.Error("tracer: write event: %v", err)
	}
}
