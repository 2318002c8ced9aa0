package silo

// ColumnBatch accumulates component values column-by-column for bulk
// ingestion (spec §6: a deserialization collaborator fills one component's
// values for every row of a batch before the next). Finish verifies every
// declared column received exactly n values before the batch can be
// consumed by World.SpawnColumnBatchAt.
type ColumnBatch struct {
	n       int
	types   []TypeInfo
	columns map[TypeID]*column
	filled  map[TypeID]bool
}

// NewColumnBatch declares a batch of n rows across the given component
// types. Every type must be filled via SetColumn before Finish.
func NewColumnBatch(n int, types ...TypeInfo) *ColumnBatch {
	b := &ColumnBatch{
		n:       n,
		types:   types,
		columns: make(map[TypeID]*column, len(types)),
		filled:  make(map[TypeID]bool, len(types)),
	}
	for _, t := range types {
		col := newColumn(t)
		col.grow(n)
		b.columns[t.ID] = &col
	}
	return b
}

// SetColumn writes values[0..n) into the batch's column for T, in row
// order. len(values) must equal the batch's declared row count.
func SetColumn[T any](b *ColumnBatch, values []T) error {
	id := ComponentID[T]()
	col, ok := b.columns[id]
	if !ok {
		info, _ := typeInfoByID(id)
		return TypeUnknownError{ID: info.ID}
	}
	if len(values) != b.n {
		index := 0
		for i, t := range b.types {
			if t.ID == id {
				index = i
				break
			}
		}
		return BatchIncompleteError{Type: col.info, Column: index}
	}
	for row, v := range values {
		putColumn(col, row, v)
	}
	b.filled[id] = true
	return nil
}

// Finish verifies every declared column was filled, returning nil when the
// batch is ready for World.SpawnColumnBatchAt. Returns BatchIncompleteError
// naming the first unfilled column (spec §6).
func (b *ColumnBatch) Finish() error {
	for i, t := range b.types {
		if !b.filled[t.ID] {
			return BatchIncompleteError{Type: t, Column: i}
		}
	}
	return nil
}

func (b *ColumnBatch) schema() Schema {
	return NewSchema(b.types...)
}
