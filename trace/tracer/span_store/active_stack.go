package span_store

import (
	"github.com/bytedance/gopkg/collection/skipmap"
	"github.com/petermattis/goid"
)

// activeStack is one goroutine's stack of currently-entered span ids.
// Only the owning goroutine ever touches its stack, so the entries need
// no locking; the registry that maps goroutine ids to stacks is a
// concurrent skip list.
type activeStack struct {
	ids []ID
}

type activeRegistry struct {
	stacks *skipmap.Int64Map
}

func newActiveRegistry() activeRegistry {
	return activeRegistry{stacks: skipmap.NewInt64()}
}

func (r *activeRegistry) get() (*activeStack, bool) {
	v, ok := r.stacks.Load(goid.Get())
	if !ok {
		return nil, false
	}
	return v.(*activeStack), true
}

func (r *activeRegistry) getOrCreate() *activeStack {
	gid := goid.Get()
	if v, ok := r.stacks.Load(gid); ok {
		return v.(*activeStack)
	}
	st := &activeStack{}
	r.stacks.Store(gid, st)
	return st
}

func (r *activeRegistry) remove() {
	r.stacks.Delete(goid.Get())
}

// Push makes id the calling goroutine's current span, adding a held
// reference to it. Pushing the id that is already current is an idempotent
// re-entry and takes no extra reference.
//
// A goroutine that exits without popping every id it pushed leaks its
// stack entries and the references they hold; enter and exit must pair on
// the same goroutine.
func (s *Store) Push(id ID) {
	st := s.active.getOrCreate()
	if n := len(st.ids); n > 0 && st.ids[n-1] == id {
		return
	}
	s.CloneSpan(id)
	st.ids = append(st.ids, id)
}

// Pop removes the calling goroutine's current span and releases the
// reference Push took, but only if it is the expected id; a mismatched
// exit, as happens while unwinding, is a no-op.
func (s *Store) Pop(expected ID) {
	st, ok := s.active.get()
	if !ok {
		return
	}
	n := len(st.ids)
	if n == 0 || st.ids[n-1] != expected {
		return
	}
	st.ids = st.ids[:n-1]
	if len(st.ids) == 0 {
		s.active.remove()
	}
	s.DropSpan(expected)
}

// Current returns a cloned reference to the calling goroutine's current
// span. The caller owns the returned reference and must eventually drop
// it.
func (s *Store) Current() (ID, bool) {
	id, ok := s.currentID()
	if !ok {
		return 0, false
	}
	return s.CloneSpan(id), true
}

// currentID peeks at the top of the calling goroutine's stack without
// taking a reference.
func (s *Store) currentID() (ID, bool) {
	st, ok := s.active.get()
	if !ok || len(st.ids) == 0 {
		return 0, false
	}
	return st.ids[len(st.ids)-1], true
}
