package tracer

import (
	"sync/atomic"

	"github.com/petermattis/goid"

	"github.com/kleimkuhler/tracing/trace/tracer/span_store"
)

var _ Span = &span{}

type span struct {
	id     span_store.ID
	name   string
	tracer *tracer

	entered bool
	goid    int64

	finished int64
}

func (s *span) ID() span_store.ID { return s.id }

func (s *span) Name() string { return s.name }

func (s *span) enter() {
	s.tracer.store.Push(s.id)
	s.entered = true
	s.goid = goid.Get()
}

func (s *span) SetField(key string, value interface{}) Span {
	return s.RecordFields(span_store.Field{Key: key, Value: value})
}

func (s *span) RecordFields(fields ...span_store.Field) Span {
	if atomic.LoadInt64(&s.finished) == 1 {
		return s
	}
	s.tracer.Record(s.id, fields...)
	return s
}

// Finish exits the span on its starting goroutine and releases the
// creation reference. Safe to call more than once; only the first call
// does anything.
func (s *span) Finish() {
	if !atomic.CompareAndSwapInt64(&s.finished, 0, 1) {
		return
	}
	if s.entered && goid.Get() == s.goid {
		s.tracer.store.Pop(s.id)
	}
	s.tracer.TryClose(s.id)
}
