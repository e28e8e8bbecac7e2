package span_store

import "bytes"

// Level indicates the verbosity level of a span's callsite.
type Level int8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Metadata describes the static callsite of a span: its name, target and
// source location. Callers allocate a Metadata once and keep it alive for
// the process lifetime; the store only holds the pointer and never copies
// or mutates it.
type Metadata struct {
	Name   string
	Target string
	Level  Level
	File   string
	Line   int
}

// Field is a single key-value pair recorded on a span. Values are opaque
// to the store; only the visitor supplied by the consuming formatter
// interprets them.
type Field struct {
	Key   string
	Value interface{}
}

// Visitor renders fields into a slot's buffer. Implementations are
// supplied by the consuming formatter; the store only routes fields
// through them.
type Visitor interface {
	Visit(field Field)
}

// VisitorFactory builds a Visitor that writes to buf. isEmpty reports
// whether nothing has been rendered into buf yet, so the visitor can
// decide whether a separator is needed before the next field.
type VisitorFactory interface {
	Make(buf *bytes.Buffer, isEmpty bool) Visitor
}
