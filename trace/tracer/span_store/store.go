package span_store

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/kleimkuhler/tracing/trace/tracer/logger"
)

// ID identifies a span in the store. IDs are 1-based; the zero value never
// identifies a span. An ID is reused once its span has been fully
// reclaimed, so holding an ID without holding a reference to it gives no
// guarantee about which span it names.
type ID uint64

func idxToID(idx uint64) ID { return ID(idx + 1) }

func idToIdx(id ID) uint64 { return uint64(id) - 1 }

// Store holds the data of currently-live spans in a slab of slots, plus
// one active-span stack per goroutine. It is safe for concurrent use.
//
// Each slot carries its own read-write lock, so any individual slot can be
// modified while holding the structural lock in shared mode. The
// structural lock is taken exclusively only to grow the slab.
type Store struct {
	mu    sync.RWMutex
	slots []*slot

	// Head of the slab's free list. A value at or beyond len(slots)
	// means no vacant slot is known and the slab must grow.
	next uint64

	active activeRegistry

	// closer releases a destroyed span's reference to its parent. The
	// dispatch layer installs its own close path here; without one the
	// store drops the parent reference directly.
	closer func(ID)
	logger logger.Logger

	allocated uint64
	reclaimed uint64
	grown     uint64
}

type StoreConfig struct {
	Capacity     int
	Logger       logger.Logger
	ParentCloser func(ID)
}

type StoreOption func(*StoreConfig)

func WithCapacity(capacity int) StoreOption {
	return func(config *StoreConfig) {
		config.Capacity = capacity
	}
}

func WithLogger(l logger.Logger) StoreOption {
	return func(config *StoreConfig) {
		config.Logger = l
	}
}

func WithParentCloser(f func(ID)) StoreOption {
	return func(config *StoreConfig) {
		config.ParentCloser = f
	}
}

func NewStore(opts ...StoreOption) *Store {
	config := StoreConfig{
		Logger: &logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Store{
		slots:  make([]*slot, 0, config.Capacity),
		active: newActiveRegistry(),
		closer: config.ParentCloser,
		logger: config.Logger,
	}
}

// NewSpan inserts a new span with the given attributes into the slab and
// returns its id. Initial fields are rendered through factory into the
// slot's buffer.
//
// The free list is a variant of Treiber's lock-free stack over slab
// indices instead of pointers: allocation pops the head index, guarded by
// the slot's own lock plus a compare-and-swap on the head. A slot freed
// since the last allocation is reused, id included, before the slab grows.
func (s *Store) NewSpan(attrs *Attributes, factory VisitorFactory) ID {
	d := s.newData(attrs)
	for {
		// Snapshot the head of the free list.
		head := atomic.LoadUint64(&s.next)

		s.mu.RLock()
		if head < uint64(len(s.slots)) {
			sl := s.slots[head]
			// If someone else holds the head slot, the snapshot is
			// already stale.
			if sl.mu.TryLock() {
				// The slot may have been filled since the snapshot.
				if sl.data == nil {
					next := sl.next
					if atomic.CompareAndSwapUint64(&s.next, head, next) {
						sl.fill(d, attrs, factory)
						sl.mu.Unlock()
						s.mu.RUnlock()
						atomic.AddUint64(&s.allocated, 1)
						return idxToID(head)
					}
				}
				sl.mu.Unlock()
			}
			s.mu.RUnlock()
			runtime.Gosched()
			continue
		}
		s.mu.RUnlock()

		// No vacant slot was visible: grow the slab. If the exclusive
		// lock is busy another goroutine is growing, or may just have
		// freed a reusable slot; take a fresh snapshot either way.
		if s.mu.TryLock() {
			idx := uint64(len(s.slots))
			sl := &slot{}
			sl.fill(d, attrs, factory)
			s.slots = append(s.slots, sl)
			atomic.StoreUint64(&s.next, idx+1)
			s.mu.Unlock()
			atomic.AddUint64(&s.allocated, 1)
			atomic.AddUint64(&s.grown, 1)
			return idxToID(idx)
		}
		runtime.Gosched()
	}
}

// Get returns a read view of the span with the given id, if one currently
// exists. The view holds the structural and slot read locks until
// released; callers must Release it promptly.
func (s *Store) Get(id ID) (*Span, bool) {
	if id == 0 {
		return nil, false
	}
	idx := idToIdx(id)
	s.mu.RLock()
	if idx >= uint64(len(s.slots)) {
		s.mu.RUnlock()
		return nil, false
	}
	sl := s.slots[idx]
	sl.mu.RLock()
	if sl.data == nil {
		sl.mu.RUnlock()
		s.mu.RUnlock()
		return nil, false
	}
	return &Span{store: s, slot: sl}, true
}

// Record appends the given fields to the span with the given id. If the
// span has already been reclaimed the update arrived late and is dropped.
func (s *Store) Record(id ID, r *Record, factory VisitorFactory) {
	if id == 0 {
		return
	}
	idx := idToIdx(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx >= uint64(len(s.slots)) {
		return
	}
	sl := s.slots[idx]
	sl.mu.Lock()
	sl.record(r, factory)
	sl.mu.Unlock()
}

// CloneSpan adds a reference to the span with the given id and returns the
// same id. Cloning an id that no longer names a live span is an
// internal-consistency violation.
func (s *Store) CloneSpan(id ID) ID {
	idx := idToIdx(id)
	s.mu.RLock()
	if id == 0 || idx >= uint64(len(s.slots)) {
		s.mu.RUnlock()
		s.badRef("clone", id)
		return id
	}
	sl := s.slots[idx]
	sl.mu.RLock()
	if sl.data != nil {
		sl.data.cloneRef()
		sl.mu.RUnlock()
		s.mu.RUnlock()
		return id
	}
	sl.mu.RUnlock()
	s.mu.RUnlock()
	s.badRef("clone", id)
	return id
}

// DropSpan removes a reference from the span with the given id. If it was
// the last reference the span's slot is reclaimed for reuse and, once all
// locks are released, the span's own reference to its parent is released
// exactly once. Reports whether reclamation occurred.
func (s *Store) DropSpan(id ID) bool {
	if id == 0 {
		return false
	}
	idx := idToIdx(id)
	var destroyed *data

	s.mu.RLock()
	if idx >= uint64(len(s.slots)) {
		s.mu.RUnlock()
		s.badRef("drop", id)
		return false
	}
	sl := s.slots[idx]
	sl.mu.RLock()
	last := sl.data != nil && sl.data.dropRef()
	sl.mu.RUnlock()
	if last {
		destroyed = s.reclaim(idx)
	}
	s.mu.RUnlock()

	if destroyed == nil {
		return false
	}
	atomic.AddUint64(&s.reclaimed, 1)
	if destroyed.parent != 0 {
		s.closeParent(destroyed.parent)
	}
	return true
}

// reclaim returns the slot at idx to the free list and hands back the data
// it held, or nil if a racing caller already reclaimed it. The push onto
// the free list is the Treiber-stack counterpart of the pop in NewSpan:
// retried with a fresh head snapshot until the compare-and-swap lands.
// The caller holds the structural lock in shared mode.
func (s *Store) reclaim(idx uint64) *data {
	sl := s.slots[idx]
	sl.mu.Lock()
	d := sl.data
	if d == nil {
		// Already vacant; reclamation is idempotent.
		sl.mu.Unlock()
		return nil
	}
	sl.data = nil
	for {
		head := atomic.LoadUint64(&s.next)
		sl.next = head
		if atomic.CompareAndSwapUint64(&s.next, head, idx) {
			break
		}
		runtime.Gosched()
	}
	// Clear the buffer but keep its capacity for the next occupant.
	sl.fields.Reset()
	sl.mu.Unlock()
	return d
}

func (s *Store) closeParent(parent ID) {
	if s.closer != nil {
		s.closer(parent)
		return
	}
	s.DropSpan(parent)
}

func (s *Store) badRef(op string, id ID) {
	s.logger.Error("span_store: %s of span %d, which no longer exists", op, id)
	debugPanic("span_store: %s of span %d, which no longer exists", op, id)
}

// Len returns the current slab length, counting both occupied and vacant
// slots. The slab never shrinks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}

// StoreStats are cumulative counters over the store's lifetime.
type StoreStats struct {
	// Allocated counts successful NewSpan calls.
	Allocated uint64
	// Reclaimed counts slots returned to the free list.
	Reclaimed uint64
	// Grown counts allocations that had to append a new slot.
	Grown uint64
}

func (s *Store) Stats() StoreStats {
	return StoreStats{
		Allocated: atomic.LoadUint64(&s.allocated),
		Reclaimed: atomic.LoadUint64(&s.reclaimed),
		Grown:     atomic.LoadUint64(&s.grown),
	}
}
