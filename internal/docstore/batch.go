package docstore

// OpKind enumerates batch mutation kinds.
type OpKind int

const (
	OpCreate OpKind = iota
	OpUpdate
	OpDelete
)

// Op is a single mutation inside a batch.
type Op struct {
	Kind       OpKind
	Collection string
	ID         string
	Fields     Fields
}

// Batch is an ordered set of mutations committed as one all-or-nothing unit.
// No reads may be interleaved; a batch either fully applies or leaves the
// store untouched. Semantics on Commit: Create fails with ErrExists when the
// key is taken, Update fails with ErrNotFound when the target is missing, and
// Delete of a missing document is a no-op.
type Batch struct {
	ops []Op
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Create queues a document creation.
func (b *Batch) Create(collection, id string, fields Fields) *Batch {
	b.ops = append(b.ops, Op{Kind: OpCreate, Collection: collection, ID: id, Fields: fields})
	return b
}

// Update queues a field merge onto an existing document. A nil field value
// stores an explicit null, which is how weak references are cleared.
func (b *Batch) Update(collection, id string, fields Fields) *Batch {
	b.ops = append(b.ops, Op{Kind: OpUpdate, Collection: collection, ID: id, Fields: fields})
	return b
}

// Delete queues a document deletion.
func (b *Batch) Delete(collection, id string) *Batch {
	b.ops = append(b.ops, Op{Kind: OpDelete, Collection: collection, ID: id})
	return b
}

// Ops exposes the queued mutations in order.
func (b *Batch) Ops() []Op {
	if b == nil {
		return nil
	}
	return b.ops
}

// Len reports the number of queued mutations.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.ops)
}
