package silo

// archetypeID identifies an archetype within a World's append-only
// archetype vector (spec §4.5: "archetype vector is append-only; indices
// are stable for the life of the World").
type archetypeID uint32

// Archetype is the columnar storage block for every entity sharing an
// exact component schema (spec §4.2). Grounded on delaneyj-arche's
// archetype.go (extend/Alloc/Remove shape) with columns represented as
// plain byte slices (edwinsyarief-lazyecs's componentData), since the
// core deliverable here is the storage itself rather than a wrapper over
// an external table package.
type Archetype struct {
	id       archetypeID
	schema   Schema
	colIndex map[TypeID]int
	columns  []column
	borrows  []borrowState // parallel to columns

	entities []uint32 // slot ids, length == capacity, occupied prefix [0:len)
	len      int
	capacity int

	edges edgeSet
}

func newArchetype(id archetypeID, schema Schema) *Archetype {
	a := &Archetype{
		id:       id,
		schema:   schema,
		colIndex: make(map[TypeID]int, schema.Len()),
		columns:  make([]column, schema.Len()),
		borrows:  make([]borrowState, schema.Len()),
	}
	for i, t := range schema.types {
		a.columns[i] = newColumn(t)
		a.colIndex[t.ID] = i
	}
	return a
}

// ID returns the archetype's stable index within its World.
func (a *Archetype) ID() uint32 { return uint32(a.id) }

// Schema returns the archetype's component schema.
func (a *Archetype) Schema() Schema { return a.schema }

// Len returns the number of occupied rows.
func (a *Archetype) Len() int { return a.len }

// Cap returns the current row capacity.
func (a *Archetype) Cap() int { return a.capacity }

// EntityIDs returns the slot ids occupying rows [0, Len).
func (a *Archetype) EntityIDs() []uint32 { return a.entities[:a.len] }

func (a *Archetype) column(id TypeID) (*column, int, bool) {
	idx, ok := a.colIndex[id]
	if !ok {
		return nil, -1, false
	}
	return &a.columns[idx], idx, true
}

func nextArchetypeCapacity(cur int) int {
	if cur == 0 {
		if Config.InitialArchetypeCapacity > 0 {
			return Config.InitialArchetypeCapacity
		}
		return 64
	}
	return cur * 2
}

// growTo reallocates every column (and the entity-id column) to newCap,
// preserving existing bytes byte-exactly (spec §4.2).
func (a *Archetype) growTo(newCap int) {
	newEntities := make([]uint32, newCap)
	copy(newEntities, a.entities[:a.len])
	a.entities = newEntities
	for i := range a.columns {
		a.columns[i].grow(newCap)
	}
	a.capacity = newCap
}

// allocateRow reserves a new row for slot, growing storage if necessary.
// Component bytes are left uninitialized; the caller must write every
// column before the row is observable by a query (spec §4.2).
func (a *Archetype) allocateRow(slot uint32) int {
	if a.len == a.capacity {
		a.growTo(nextArchetypeCapacity(a.capacity))
	}
	row := a.len
	a.entities[row] = slot
	a.len++
	return row
}

// dropRow runs every column's destructor for row, without touching row
// bookkeeping. Used ahead of a plain remove, or by insert/overwrite when a
// bundle type replaces a value already present at the source.
func (a *Archetype) dropRow(row int) {
	for i := range a.columns {
		a.columns[i].dropAt(row)
	}
}

// compact performs the swap-remove bookkeeping for row: if row isn't the
// last occupied row, the last row's slot id and column bytes are moved
// into row's place (no destructors run here — the caller is responsible
// for having already dropped or relocated row's prior contents). Returns
// the slot id that moved and whether a move happened, so the caller can
// rewrite that entity's location (spec: "forgetting this update is a
// common source of invariant violations").
func (a *Archetype) compact(row int) (movedSlot uint32, moved bool) {
	last := a.len - 1
	if row != last {
		for i := range a.columns {
			a.columns[i].copyRow(last, row)
		}
		a.entities[row] = a.entities[last]
		movedSlot, moved = a.entities[row], true
	}
	a.len--
	return
}

// removeRow drops every component at row and compacts (spec §4.2
// remove: swap-remove).
func (a *Archetype) removeRow(row int) (movedSlot uint32, moved bool) {
	a.dropRow(row)
	return a.compact(row)
}

// rawCopyInto raw-copies every column shared between a and dst at rows
// (srcRow, dstRow), skipping the types listed in skip (already handled,
// e.g. overwritten by bundle values). No destructors run: ownership
// transfers to dst.
func (a *Archetype) rawCopyInto(dst *Archetype, srcRow, dstRow int, skip mask256) {
	for id, idx := range a.colIndex {
		if skip.has(id) {
			continue
		}
		dstCol, _, ok := dst.column(id)
		if !ok {
			continue
		}
		dstCol.copyRowFrom(&a.columns[idx], srcRow, dstRow)
	}
}
