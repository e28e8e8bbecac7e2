package span_store

import (
	"bytes"
	"sync"
)

// A slot is one reusable storage cell in the slab. An occupied slot holds
// a span's data plus the textual rendering of its recorded fields; a
// vacant slot holds the index of the next vacant slot, threading the free
// list. The buffer is cleared but keeps its capacity when the slot is
// reclaimed, so reuse amortizes allocation.
type slot struct {
	mu     sync.RWMutex
	fields bytes.Buffer
	data   *data  // nil when vacant
	next   uint64 // next free index; meaningful only when vacant
}

// fill writes d into the slot and renders the initial fields through the
// supplied factory. The caller holds the slot's exclusive lock.
func (s *slot) fill(d *data, attrs *Attributes, factory VisitorFactory) {
	attrs.Record(factory.Make(&s.fields, true))
	if s.fields.Len() > 0 {
		d.isEmpty = false
	}
	s.data = d
}

// record appends additional fields to an occupied slot. Recording against
// a vacant slot is a legitimate late-arriving update and does nothing.
// The caller holds the slot's exclusive lock.
func (s *slot) record(r *Record, factory VisitorFactory) {
	if s.data == nil {
		return
	}
	r.Record(factory.Make(&s.fields, s.data.isEmpty))
	if s.fields.Len() > 0 {
		s.data.isEmpty = false
	}
}
