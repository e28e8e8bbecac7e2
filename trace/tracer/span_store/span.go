package span_store

// Span is a read view of one live span. It bundles the structural and
// per-slot read locks it was created under and holds both until released,
// so the content it exposes cannot be mutated or reclaimed underneath it.
// Callers must Release the view promptly and must not use it afterwards.
type Span struct {
	store    *Store
	slot     *slot
	released bool
}

// Name returns the span's static name.
func (sp *Span) Name() string {
	return sp.slot.data.metadata.Name
}

// Metadata returns the span's static metadata.
func (sp *Span) Metadata() *Metadata {
	return sp.slot.data.metadata
}

// Parent returns the id of the span's parent, if it has one.
func (sp *Span) Parent() (ID, bool) {
	parent := sp.slot.data.parent
	return parent, parent != 0
}

// Fields returns the rendered text of the span's recorded fields.
func (sp *Span) Fields() string {
	return sp.slot.fields.String()
}

// Release unlocks the view. Releasing twice is a no-op.
func (sp *Span) Release() {
	if sp.released {
		return
	}
	sp.released = true
	sp.slot.mu.RUnlock()
	sp.store.mu.RUnlock()
}
