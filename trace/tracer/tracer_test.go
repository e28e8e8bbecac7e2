package tracer

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleimkuhler/tracing/trace/tracer/span_store"
)

func newTestTracer() (Tracer, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewTracer(WithWriter(&buf), WithCapacity(4)), &buf
}

func TestStartSpanFinishLifecycle(t *testing.T) {
	tr, _ := newTestTracer()

	sp := tr.StartSpan("request")
	require.NotZero(t, sp.ID())

	cur, ok := tr.CurrentSpan()
	require.True(t, ok, "started span must be current on its goroutine")
	assert.Equal(t, sp.ID(), cur)
	tr.TryClose(cur) // CurrentSpan clones

	sp.Finish()
	_, ok = tr.CurrentSpan()
	assert.False(t, ok, "finished span must not remain current")

	// Double finish is a no-op.
	sp.Finish()
}

func TestStartSpanFromContextParenting(t *testing.T) {
	tr, _ := newTestTracer()

	parent, ctx := tr.StartSpanFromContext(context.Background(), "parent")
	require.Nil(t, SpanFromContext(nil))
	require.Equal(t, parent, SpanFromContext(ctx))

	child, _ := tr.StartSpanFromContext(ctx, "child")

	var names []string
	err := tr.Context().VisitSpans(func(_ span_store.ID, sp *span_store.Span) error {
		names = append(names, sp.Name())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"parent", "child"}, names)

	child.Finish()
	parent.Finish()
}

func TestAsRootIgnoresCurrentSpan(t *testing.T) {
	tr, _ := newTestTracer()

	parent := tr.StartSpan("parent")
	detached := tr.StartSpan("detached", AsRoot())

	// The detached span has no parent link, so the ancestry walk from it
	// sees a chain of one.
	var names []string
	err := tr.Context().VisitSpans(func(_ span_store.ID, sp *span_store.Span) error {
		names = append(names, sp.Name())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"detached"}, names)

	detached.Finish()
	parent.Finish()
}

func TestSetFieldRendersThroughVisitor(t *testing.T) {
	tr, _ := newTestTracer()

	sp := tr.StartSpan("q", WithSpanFields(span_store.Field{Key: "db", Value: "users"}))
	sp.SetField("rows", 3)

	ran := tr.Context().WithCurrent(func(_ span_store.ID, view *span_store.Span) {
		assert.Equal(t, "db=users rows=3", view.Fields())
	})
	require.True(t, ran)
	sp.Finish()
}

func TestEventFormatsAncestryPrefix(t *testing.T) {
	tr, out := newTestTracer()

	req := tr.StartSpan("request", WithSpanFields(span_store.Field{Key: "http.method", Value: "GET"}))
	auth := tr.StartSpan("auth")

	tr.Event(span_store.LevelWarn, "denied", span_store.Field{Key: "user", Value: 42})

	line := out.String()
	assert.Contains(t, line, "WARN")
	assert.Contains(t, line, "request{http.method=GET}:auth:")
	assert.Contains(t, line, "denied user=42")
	assert.True(t, strings.HasSuffix(line, "\n"))

	auth.Finish()
	req.Finish()
}

func TestEventOutsideAnySpan(t *testing.T) {
	tr, out := newTestTracer()
	tr.Event(span_store.LevelInfo, "hello")
	assert.Contains(t, out.String(), "INFO hello")
}

func TestFinishOnOtherGoroutineWithoutEnter(t *testing.T) {
	tr, _ := newTestTracer()

	sp := tr.StartSpan("async", WithoutEnter())
	_, ok := tr.CurrentSpan()
	require.False(t, ok, "WithoutEnter must not touch the active stack")

	done := make(chan struct{})
	go func() {
		defer close(done)
		sp.Finish()
	}()
	<-done
}

func TestGlobalTracer(t *testing.T) {
	defer SetGlobalTracer(nil)

	// Unregistered: helpers degrade to no-ops.
	globalTracer = registeredTracer{}
	assert.False(t, IsGlobalTracerRegistered())
	sp := StartSpan("orphan")
	sp.SetField("k", "v").Finish()
	Event(span_store.LevelInfo, "dropped")

	tr, _ := newTestTracer()
	SetGlobalTracer(tr)
	assert.True(t, IsGlobalTracerRegistered())
	sp = StartSpan("real")
	require.NotZero(t, sp.ID())
	sp.Finish()
}
