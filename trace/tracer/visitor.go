package tracer

import (
	"bytes"
	"fmt"

	"github.com/kleimkuhler/tracing/trace/tracer/span_store"
)

// defaultVisitor renders fields as space-separated key=value pairs.
type defaultVisitor struct {
	buf   *bytes.Buffer
	empty bool
}

func (v *defaultVisitor) Visit(f span_store.Field) {
	if !v.empty {
		v.buf.WriteByte(' ')
	}
	v.empty = false
	fmt.Fprintf(v.buf, "%s=%v", f.Key, f.Value)
}

type defaultVisitorFactory struct{}

func (defaultVisitorFactory) Make(buf *bytes.Buffer, isEmpty bool) span_store.Visitor {
	return &defaultVisitor{buf: buf, empty: isEmpty}
}

// DefaultVisitorFactory returns the renderer used when no custom one is
// configured.
func DefaultVisitorFactory() span_store.VisitorFactory {
	return defaultVisitorFactory{}
}
