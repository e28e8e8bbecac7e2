package span_store

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

// testVisitor renders fields as comma-separated key=value pairs.
type testVisitor struct {
	buf   *bytes.Buffer
	empty bool
}

func (v *testVisitor) Visit(f Field) {
	if !v.empty {
		v.buf.WriteByte(',')
	}
	v.empty = false
	fmt.Fprintf(v.buf, "%s=%v", f.Key, f.Value)
}

type testFactory struct{}

func (testFactory) Make(buf *bytes.Buffer, isEmpty bool) Visitor {
	return &testVisitor{buf: buf, empty: isEmpty}
}

var factory = testFactory{}

func testMetadata(name string) *Metadata {
	return &Metadata{Name: name, Level: LevelInfo}
}

func TestNewSpanAssignsSequentialIDs(t *testing.T) {
	store := NewStore()
	for want := ID(1); want <= 5; want++ {
		got := store.NewSpan(NewRootAttributes(testMetadata("a")), factory)
		if got != want {
			t.Fatalf("NewSpan returned id %d, want %d", got, want)
		}
	}
	if store.Len() != 5 {
		t.Fatalf("slab length = %d, want 5", store.Len())
	}
}

func TestGetAbsent(t *testing.T) {
	store := NewStore()
	if _, ok := store.Get(0); ok {
		t.Fatal("Get(0) reported a span")
	}
	if _, ok := store.Get(42); ok {
		t.Fatal("Get of unknown id reported a span")
	}
	id := store.NewSpan(NewRootAttributes(testMetadata("a")), factory)
	store.DropSpan(id)
	if _, ok := store.Get(id); ok {
		t.Fatal("Get of reclaimed id reported a span")
	}
}

func TestGetReturnsBoundView(t *testing.T) {
	store := NewStore()
	md := testMetadata("request")
	id := store.NewSpan(NewRootAttributes(md, Field{Key: "k", Value: 1}), factory)

	span, ok := store.Get(id)
	if !ok {
		t.Fatal("Get of live id reported no span")
	}
	if span.Name() != "request" {
		t.Errorf("Name = %q, want %q", span.Name(), "request")
	}
	if span.Metadata() != md {
		t.Error("Metadata does not return the same pointer the span was created with")
	}
	if _, ok := span.Parent(); ok {
		t.Error("root span reported a parent")
	}
	if span.Fields() != "k=1" {
		t.Errorf("Fields = %q, want %q", span.Fields(), "k=1")
	}
	span.Release()
	span.Release() // idempotent
}

// A span stays reachable until the number of drops equals the number of
// creates plus clones, and becomes unreachable exactly then.
func TestRefCountLifecycle(t *testing.T) {
	store := NewStore()
	id := store.NewSpan(NewRootAttributes(testMetadata("a")), factory)

	const clones = 4
	for i := 0; i < clones; i++ {
		if got := store.CloneSpan(id); got != id {
			t.Fatalf("CloneSpan returned %d, want %d", got, id)
		}
	}
	for i := 0; i < clones; i++ {
		if store.DropSpan(id) {
			t.Fatalf("drop %d of %d reclaimed the span early", i+1, clones+1)
		}
		if sp, ok := store.Get(id); !ok {
			t.Fatalf("span unreachable after %d of %d drops", i+1, clones+1)
		} else {
			sp.Release()
		}
	}
	if !store.DropSpan(id) {
		t.Fatal("final drop did not reclaim the span")
	}
	if _, ok := store.Get(id); ok {
		t.Fatal("span reachable after final drop")
	}
}

// create, clone, drop, drop: alive after the first drop, dead after the
// second.
func TestCloneThenDropKeepsAlive(t *testing.T) {
	store := NewStore()
	id := store.NewSpan(NewRootAttributes(testMetadata("a")), factory)
	store.CloneSpan(id)
	if store.DropSpan(id) {
		t.Fatal("span reclaimed while a cloned reference was held")
	}
	if !store.DropSpan(id) {
		t.Fatal("span not reclaimed after last reference dropped")
	}
}

func TestReclaimedSlotIsReusedBeforeGrowth(t *testing.T) {
	store := NewStore()
	a := store.NewSpan(NewRootAttributes(testMetadata("a")), factory)
	store.NewSpan(NewRootAttributes(testMetadata("b")), factory)
	store.DropSpan(a)

	c := store.NewSpan(NewRootAttributes(testMetadata("c")), factory)
	if c != a {
		t.Fatalf("allocation after reclaim returned id %d, want reused id %d", c, a)
	}
	if store.Len() != 2 {
		t.Fatalf("slab grew to %d slots, want 2", store.Len())
	}

	span, ok := store.Get(c)
	if !ok {
		t.Fatal("reused span not reachable")
	}
	if span.Name() != "c" {
		t.Errorf("reused slot holds %q, want %q", span.Name(), "c")
	}
	if span.Fields() != "" {
		t.Errorf("reused slot kept stale fields %q", span.Fields())
	}
	span.Release()
}

func TestRecordAppendsFields(t *testing.T) {
	store := NewStore()
	id := store.NewSpan(NewRootAttributes(testMetadata("a"), Field{Key: "k", Value: "v"}), factory)
	store.Record(id, NewRecord(Field{Key: "k2", Value: 2}), factory)

	span, ok := store.Get(id)
	if !ok {
		t.Fatal("span not reachable")
	}
	defer span.Release()
	if span.Fields() != "k=v,k2=2" {
		t.Errorf("Fields = %q, want %q", span.Fields(), "k=v,k2=2")
	}
}

func TestRecordAgainstReclaimedIDIsNoop(t *testing.T) {
	store := NewStore()
	a := store.NewSpan(NewRootAttributes(testMetadata("a")), factory)
	b := store.NewSpan(NewRootAttributes(testMetadata("b"), Field{Key: "k", Value: "v"}), factory)
	store.DropSpan(a)

	// Late-arriving update against the reclaimed id: must not panic and
	// must not touch any other slot.
	store.Record(a, NewRecord(Field{Key: "stale", Value: true}), factory)
	store.Record(999, NewRecord(Field{Key: "stale", Value: true}), factory)

	span, ok := store.Get(b)
	if !ok {
		t.Fatal("span b not reachable")
	}
	defer span.Release()
	if span.Fields() != "k=v" {
		t.Errorf("slot b mutated by stale record: %q", span.Fields())
	}
}

// A child holds one reference to its parent; reclaiming the child releases
// it exactly once, cascading up the ancestry chain.
func TestParentReleaseCascade(t *testing.T) {
	store := NewStore()
	root := store.NewSpan(NewRootAttributes(testMetadata("root")), factory)
	child := store.NewSpan(NewChildAttributes(testMetadata("child"), root), factory)
	grandchild := store.NewSpan(NewChildAttributes(testMetadata("grandchild"), child), factory)

	// Drop the creation references of the ancestors; each stays alive
	// through its child's reference.
	store.DropSpan(root)
	store.DropSpan(child)
	if sp, ok := store.Get(root); !ok {
		t.Fatal("root reclaimed while grandchild chain still references it")
	} else {
		sp.Release()
	}

	if !store.DropSpan(grandchild) {
		t.Fatal("grandchild not reclaimed")
	}
	if _, ok := store.Get(child); ok {
		t.Fatal("child still reachable after cascade")
	}
	if _, ok := store.Get(root); ok {
		t.Fatal("root still reachable after cascade")
	}
	if got := store.Stats().Reclaimed; got != 3 {
		t.Fatalf("reclaimed = %d, want 3", got)
	}
}

func TestParentCloserRoutesRelease(t *testing.T) {
	var closed []ID
	var store *Store
	store = NewStore(WithParentCloser(func(id ID) {
		closed = append(closed, id)
		store.DropSpan(id)
	}))
	root := store.NewSpan(NewRootAttributes(testMetadata("root")), factory)
	child := store.NewSpan(NewChildAttributes(testMetadata("child"), root), factory)

	store.DropSpan(root)
	store.DropSpan(child)
	if len(closed) != 1 || closed[0] != root {
		t.Fatalf("closer saw %v, want [%d]", closed, root)
	}
}

// Concurrent clone/drop of one id must reclaim the slot exactly once, no
// matter the interleaving.
func TestConcurrentCloneDropReclaimsOnce(t *testing.T) {
	const goroutines = 16
	const rounds = 200

	for round := 0; round < rounds; round++ {
		store := NewStore()
		id := store.NewSpan(NewRootAttributes(testMetadata("a")), factory)

		var reclaims int64
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				store.CloneSpan(id)
				if store.DropSpan(id) {
					atomic.AddInt64(&reclaims, 1)
				}
			}()
		}
		close(start)
		wg.Wait()

		// Creation reference still held here.
		if atomic.LoadInt64(&reclaims) != 0 {
			t.Fatal("span reclaimed while the creation reference was held")
		}
		if store.DropSpan(id) {
			atomic.AddInt64(&reclaims, 1)
		}
		if got := atomic.LoadInt64(&reclaims); got != 1 {
			t.Fatalf("round %d: reclaimed %d times, want exactly 1", round, got)
		}
		if got := store.Stats().Reclaimed; got != 1 {
			t.Fatalf("round %d: stats report %d reclaims, want 1", round, got)
		}
	}
}

// Growing under concurrent allocation must not lose allocations or hand
// the same id to two live spans.
func TestConcurrentAllocationDistinctIDs(t *testing.T) {
	const goroutines = 8
	const perGoroutine = 500

	store := NewStore()
	var live sync.Map
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				id := store.NewSpan(NewRootAttributes(testMetadata("a")), factory)
				if _, loaded := live.LoadOrStore(id, struct{}{}); loaded {
					t.Errorf("id %d handed to two live spans", id)
					return
				}
				if j%2 == 0 {
					live.Delete(id)
					store.DropSpan(id)
				}
			}
		}()
	}
	wg.Wait()

	stats := store.Stats()
	if stats.Allocated != goroutines*perGoroutine {
		t.Fatalf("allocated = %d, want %d", stats.Allocated, goroutines*perGoroutine)
	}

	remaining := 0
	live.Range(func(key, _ interface{}) bool {
		remaining++
		if _, ok := store.Get(key.(ID)); !ok {
			t.Errorf("live id %d not reachable", key.(ID))
		}
		return true
	})
	if remaining != goroutines*perGoroutine/2 {
		t.Fatalf("live spans = %d, want %d", remaining, goroutines*perGoroutine/2)
	}
}

func TestConcurrentReuseKeepsSlabSmall(t *testing.T) {
	const goroutines = 8
	const perGoroutine = 300

	store := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				id := store.NewSpan(NewRootAttributes(testMetadata("a")), factory)
				store.Record(id, NewRecord(Field{Key: "n", Value: j}), factory)
				store.DropSpan(id)
			}
		}()
	}
	wg.Wait()

	// Every span is dropped before its goroutine allocates again, so
	// reuse keeps the slab a small multiple of the concurrency level
	// rather than anywhere near the total allocation count.
	if store.Len() > goroutines*8 {
		t.Fatalf("slab grew to %d slots for %d concurrent spans", store.Len(), goroutines)
	}
}

func TestDropUnknownIDDoesNotPanic(t *testing.T) {
	store := NewStore()
	if store.DropSpan(0) {
		t.Fatal("DropSpan(0) reported a reclaim")
	}
	if store.DropSpan(123) {
		t.Fatal("DropSpan of unknown id reported a reclaim")
	}
	id := store.NewSpan(NewRootAttributes(testMetadata("a")), factory)
	store.DropSpan(id)
	if store.DropSpan(id) {
		t.Fatal("second drop of reclaimed id reported a reclaim")
	}
}
