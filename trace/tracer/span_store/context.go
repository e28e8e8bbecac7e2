package span_store

import "bytes"

// Context is the store's view of the current span context, handed to a
// consuming formatter. It resolves spans against the calling goroutine's
// active-span stack and exposes the renderer injection point.
type Context struct {
	store   *Store
	factory VisitorFactory
}

func NewContext(store *Store, factory VisitorFactory) Context {
	return Context{store: store, factory: factory}
}

// VisitSpans applies f to each span in the calling goroutine's current
// trace context, beginning with the root and ending with the current
// span. If f returns an error the walk short-circuits. Invoked outside of
// any span, VisitSpans does nothing.
//
// The walk recurses into each span's parent before invoking f, using the
// call stack to produce root-first order without allocating a buffer;
// recursion depth equals span nesting depth.
func (c Context) VisitSpans(f func(id ID, span *Span) error) error {
	id, ok := c.store.currentID()
	if !ok {
		return nil
	}
	span, ok := c.store.Get(id)
	if !ok {
		c.store.badRef("visit", id)
		return nil
	}
	return c.visit(span, id, 0, f)
}

// visit owns span and releases it when done. last is the id visit was
// entered from, so a chain that loops back on itself does not revisit it.
func (c Context) visit(span *Span, id, last ID, f func(ID, *Span) error) error {
	defer span.Release()
	if parent, ok := span.Parent(); ok && parent != last {
		if parentSpan, pok := c.store.Get(parent); pok {
			if err := c.visit(parentSpan, parent, id, f); err != nil {
				return err
			}
		} else {
			c.store.badRef("visit parent", parent)
		}
	}
	return f(id, span)
}

// WithCurrent applies f once to the calling goroutine's current span and
// reports whether f ran; outside of any span it does nothing. The view
// passed to f is released when f returns.
func (c Context) WithCurrent(f func(id ID, span *Span)) bool {
	id, ok := c.store.currentID()
	if !ok {
		return false
	}
	span, ok := c.store.Get(id)
	if !ok {
		c.store.badRef("current", id)
		return false
	}
	defer span.Release()
	f(id, span)
	return true
}

// MakeVisitor returns a field renderer writing to buf, built by the
// factory the consuming formatter supplied.
func (c Context) MakeVisitor(buf *bytes.Buffer, isEmpty bool) Visitor {
	return c.factory.Make(buf, isEmpty)
}
