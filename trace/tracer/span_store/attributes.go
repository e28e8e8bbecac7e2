package span_store

type parentKind int8

const (
	contextualParent parentKind = iota
	explicitParent
	rootParent
)

// Attributes carries everything needed to create a span: its static
// metadata, the initial field values, and how its parent should be
// resolved. The zero parent mode is contextual, meaning the new span
// becomes a child of the calling goroutine's current span, if any.
type Attributes struct {
	metadata *Metadata
	fields   []Field
	parent   ID
	kind     parentKind
}

// NewAttributes returns attributes for a contextual span.
func NewAttributes(metadata *Metadata, fields ...Field) *Attributes {
	return &Attributes{metadata: metadata, fields: fields}
}

// NewRootAttributes returns attributes for a span with no parent.
func NewRootAttributes(metadata *Metadata, fields ...Field) *Attributes {
	return &Attributes{metadata: metadata, fields: fields, kind: rootParent}
}

// NewChildAttributes returns attributes for a span with an explicit parent.
func NewChildAttributes(metadata *Metadata, parent ID, fields ...Field) *Attributes {
	return &Attributes{metadata: metadata, fields: fields, parent: parent, kind: explicitParent}
}

func (a *Attributes) Metadata() *Metadata { return a.metadata }

func (a *Attributes) IsRoot() bool { return a.kind == rootParent }

func (a *Attributes) IsContextual() bool { return a.kind == contextualParent }

// Parent returns the explicit parent id, or zero if none was given.
func (a *Attributes) Parent() ID { return a.parent }

// Record passes the initial fields to v in the order they were given.
func (a *Attributes) Record(v Visitor) {
	for _, f := range a.fields {
		v.Visit(f)
	}
}

// Record is a set of additional fields recorded on an existing span.
type Record struct {
	fields []Field
}

func NewRecord(fields ...Field) *Record {
	return &Record{fields: fields}
}

// Record passes the fields to v in the order they were given.
func (r *Record) Record(v Visitor) {
	for _, f := range r.fields {
		v.Visit(f)
	}
}
