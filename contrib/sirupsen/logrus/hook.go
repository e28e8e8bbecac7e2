package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/kleimkuhler/tracing/trace/tracer"
	"github.com/kleimkuhler/tracing/trace/tracer/span_store"
)

// NewHook returns a logrus hook that re-emits matching entries as tracer
// events, so log lines written inside a span carry the span's ancestry
// prefix.
func NewHook(tr tracer.Tracer, levels []logrus.Level) logrus.Hook {
	return &Hook{
		tracer: tr,
		levels: levels,
	}
}

type Hook struct {
	tracer tracer.Tracer
	levels []logrus.Level
}

func (h *Hook) Levels() []logrus.Level {
	return h.levels
}

func (h *Hook) Fire(e *logrus.Entry) error {
	if e == nil {
		return nil
	}
	level := span_store.LevelInfo
	switch e.Level {
	case logrus.TraceLevel:
		level = span_store.LevelTrace
	case logrus.DebugLevel:
		level = span_store.LevelDebug
	case logrus.InfoLevel:
		level = span_store.LevelInfo
	case logrus.WarnLevel:
		level = span_store.LevelWarn
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		level = span_store.LevelError
	}

	fields := make([]span_store.Field, 0, len(e.Data))
	for k, v := range e.Data {
		fields = append(fields, span_store.Field{Key: k, Value: v})
	}
	h.tracer.Event(level, e.Message, fields...)
	return nil
}
