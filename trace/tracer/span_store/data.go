package span_store

import "sync/atomic"

// data is the content of an occupied slot: the span's parent (if any), a
// reference to its static metadata, and an atomic reference count. A span
// is created with a count of one; clones and active-stack entries add
// references, drops remove them, and the slot is reclaimed when the count
// reaches zero.
type data struct {
	parent   ID
	metadata *Metadata
	refCount int64
	// isEmpty reports that nothing has been rendered into the slot's
	// buffer yet. Guarded by the slot's lock.
	isEmpty bool
}

func (s *Store) newData(attrs *Attributes) *data {
	var parent ID
	switch {
	case attrs.IsRoot():
		// no parent
	case attrs.IsContextual():
		parent, _ = s.Current()
	default:
		if p := attrs.Parent(); p != 0 {
			parent = s.CloneSpan(p)
		}
	}
	return &data{
		parent:   parent,
		metadata: attrs.Metadata(),
		refCount: 1,
		isEmpty:  true,
	}
}

func (d *data) cloneRef() {
	atomic.AddInt64(&d.refCount, 1)
}

// dropRef reports whether this drop removed the last reference. Go's
// sync/atomic operations are sequentially consistent, so every write made
// to the span before its final drop happens-before the slot's reuse.
func (d *data) dropRef() bool {
	return atomic.AddInt64(&d.refCount, -1) == 0
}
