package silo

import (
	"iter"
	"unsafe"
)

// World is the top-level container: it owns every archetype and the entity
// allocator, and owns the schema index (schema → archetype) and the edge
// graph used to accelerate structural moves (spec §2, §4.5).
type World struct {
	alloc       *allocator
	archetypes  []*Archetype
	schemaIndex map[string]archetypeID
	hooks       Hooks
	emptyID     archetypeID
}

// NewWorld creates a World with its empty archetype already registered —
// every entity with zero components lives there (spec B2).
func NewWorld() *World {
	w := &World{
		alloc:       newAllocator(Config.InitialAllocatorCapacity),
		schemaIndex: make(map[string]archetypeID),
		hooks:       Config.Hooks,
	}
	empty := NewSchema()
	arch := newArchetype(0, empty)
	w.archetypes = append(w.archetypes, arch)
	w.schemaIndex[empty.key()] = 0
	return w
}

// Archetypes enumerates every archetype the World has ever created
// (append-only, stable indices) — the serialization collaborator
// interface from spec §6.
func (w *World) Archetypes() []*Archetype {
	return w.archetypes
}

// Len returns the total number of live entities across every archetype.
func (w *World) Len() int {
	n := 0
	for _, a := range w.archetypes {
		n += a.Len()
	}
	return n
}

func (w *World) getOrCreateArchetype(schema Schema) *Archetype {
	key := schema.key()
	if id, ok := w.schemaIndex[key]; ok {
		return w.archetypes[id]
	}
	id := archetypeID(len(w.archetypes))
	arch := newArchetype(id, schema)
	w.archetypes = append(w.archetypes, arch)
	w.schemaIndex[key] = id
	if w.hooks.OnArchetypeCreated != nil {
		w.hooks.OnArchetypeCreated(schema)
	}
	return arch
}

func (w *World) archetypeAfterInsert(src *Archetype, t TypeInfo) *Archetype {
	if id, ok := src.edges.getInsert(t.ID); ok {
		return w.archetypes[id]
	}
	target := w.getOrCreateArchetype(src.schema.union([]TypeInfo{t}))
	src.edges.setInsert(t.ID, target.id)
	return target
}

func (w *World) archetypeAfterRemove(src *Archetype, id TypeID) *Archetype {
	if aid, ok := src.edges.getRemove(id); ok {
		return w.archetypes[aid]
	}
	target := w.getOrCreateArchetype(src.schema.without(id))
	src.edges.setRemove(id, target.id)
	return target
}

// componentValue pairs a component's metadata with a closure that writes
// its value into a destination slot. It is the dynamic-path currency that
// the arity-numbered generic Spawn/Insert helpers build on, the same way
// delaneyj-arche/ecs/generic.go's Add2..Add5 build on World.Add(ids...).
type componentValue struct {
	info  TypeInfo
	write func(dst unsafe.Pointer)
}

func valueOf[T any](v T) componentValue {
	value := v
	return componentValue{
		info:  typeInfoOf[T](),
		write: func(dst unsafe.Pointer) { *(*T)(dst) = value },
	}
}

func idsOf(types []TypeInfo) []TypeID {
	ids := make([]TypeID, len(types))
	for i, t := range types {
		ids[i] = t.ID
	}
	return ids
}

// spawnDynamic is the untyped core of Spawn: compute the bundle's schema
// (rejecting duplicate types as a fatal usage error, spec §4.5), find or
// create the target archetype, allocate a row, write every component, and
// record the entity's location.
func (w *World) spawnDynamic(components []componentValue) Entity {
	types := make([]TypeInfo, len(components))
	for i, c := range components {
		types[i] = c.info
	}
	schema := NewSchema(types...)
	arch := w.getOrCreateArchetype(schema)

	e := w.alloc.alloc()
	row := arch.allocateRow(e.ID())
	for _, c := range components {
		col, _, _ := arch.column(c.info.ID)
		c.write(col.at(row))
	}
	w.alloc.setLocation(e.ID(), location{arch.id, row})
	return e
}

func (w *World) spawnAtDynamic(e Entity, components []componentValue) error {
	if w.alloc.isLive(e) {
		if err := w.Despawn(e); err != nil {
			return err
		}
	}
	types := make([]TypeInfo, len(components))
	for i, c := range components {
		types[i] = c.info
	}
	schema := NewSchema(types...)
	arch := w.getOrCreateArchetype(schema)

	w.alloc.claim(e)
	row := arch.allocateRow(e.ID())
	for _, c := range components {
		col, _, _ := arch.column(c.info.ID)
		c.write(col.at(row))
	}
	w.alloc.setLocation(e.ID(), location{arch.id, row})
	return nil
}

// Spawn1 creates a new entity with a single component.
func Spawn1[A any](w *World, a A) Entity {
	return w.spawnDynamic([]componentValue{valueOf(a)})
}

// Spawn2 creates a new entity with two components.
func Spawn2[A, B any](w *World, a A, b B) Entity {
	return w.spawnDynamic([]componentValue{valueOf(a), valueOf(b)})
}

// Spawn3 creates a new entity with three components.
func Spawn3[A, B, C any](w *World, a A, b B, c C) Entity {
	return w.spawnDynamic([]componentValue{valueOf(a), valueOf(b), valueOf(c)})
}

// Spawn4 creates a new entity with four components.
func Spawn4[A, B, C, D any](w *World, a A, b B, c C, d D) Entity {
	return w.spawnDynamic([]componentValue{valueOf(a), valueOf(b), valueOf(c), valueOf(d)})
}

// SpawnEmpty creates a new entity with no components (spec B2): it matches
// no typed query but is visible to entity enumeration.
func SpawnEmpty(w *World) Entity {
	return w.spawnDynamic(nil)
}

// SpawnAt1 spawns (or replaces, per spec §4.5's chosen contract) a single
// component entity at a specific, previously reserved or freed slot.
func SpawnAt1[A any](w *World, e Entity, a A) error {
	return w.spawnAtDynamic(e, []componentValue{valueOf(a)})
}

// SpawnAt2 spawns (or replaces) a two-component entity at a specific slot.
func SpawnAt2[A, B any](w *World, e Entity, a A, b B) error {
	return w.spawnAtDynamic(e, []componentValue{valueOf(a), valueOf(b)})
}

// SpawnBatch1 spawns one entity per value produced by values, in a single
// pass (spec: iteration is single-pass, batch size need not be known up
// front). Columns grow geometrically as needed (B3); an empty sequence is
// a no-op.
func SpawnBatch1[A any](w *World, values iter.Seq[A]) []Entity {
	var out []Entity
	for v := range values {
		out = append(out, Spawn1(w, v))
	}
	return out
}

// SpawnBatch2 is SpawnBatch1 for two-component bundles.
func SpawnBatch2[A, B any](w *World, values iter.Seq2[A, B]) []Entity {
	var out []Entity
	for a, b := range values {
		out = append(out, Spawn2(w, a, b))
	}
	return out
}

// Despawn swap-removes e's row from its archetype, rewrites the location
// of any entity that row-swapped into its place, and frees e's slot
// (spec §4.5).
func (w *World) Despawn(e Entity) error {
	loc, err := w.alloc.get(e)
	if err != nil {
		return err
	}
	arch := w.archetypes[loc.archetype]
	movedSlot, moved := arch.removeRow(loc.row)
	if moved {
		w.alloc.setLocation(movedSlot, location{arch.id, loc.row})
	}
	if err := w.alloc.free(e); err != nil {
		return err
	}
	if w.hooks.OnEntityDespawned != nil {
		w.hooks.OnEntityDespawned(e)
	}
	return nil
}

// insertDynamic implements spec §4.5's insert contract: if the bundle's
// types are already all present, overwrite those columns in place
// (dropping prior values). Otherwise move every surviving source
// component into a freshly allocated row of the union archetype, drop
// whichever source values the bundle is about to overwrite, write the
// bundle, and swap-remove the source row.
func (w *World) insertDynamic(e Entity, components []componentValue) error {
	loc, err := w.alloc.get(e)
	if err != nil {
		return err
	}
	src := w.archetypes[loc.archetype]

	bundleTypes := make([]TypeInfo, len(components))
	for i, c := range components {
		bundleTypes[i] = c.info
	}
	_ = NewSchema(bundleTypes...) // fatal on duplicate component types within the bundle
	bundleMask := maskOf(idsOf(bundleTypes)...)

	target := src.schema.union(bundleTypes)
	if target.key() == src.schema.key() {
		row := loc.row
		for _, c := range components {
			col, _, _ := src.column(c.info.ID)
			col.dropAt(row)
			c.write(col.at(row))
		}
		return nil
	}

	var dst *Archetype
	if len(bundleTypes) == 1 {
		dst = w.archetypeAfterInsert(src, bundleTypes[0])
	} else {
		dst = w.getOrCreateArchetype(target)
	}
	dstRow := dst.allocateRow(e.ID())

	for _, t := range src.schema.types {
		if bundleMask.has(t.ID) {
			col, _, _ := src.column(t.ID)
			col.dropAt(loc.row)
		}
	}
	src.rawCopyInto(dst, loc.row, dstRow, bundleMask)
	for _, c := range components {
		col, _, _ := dst.column(c.info.ID)
		c.write(col.at(dstRow))
	}

	movedSlot, moved := src.compact(loc.row)
	if moved {
		w.alloc.setLocation(movedSlot, location{src.id, loc.row})
	}
	w.alloc.setLocation(e.ID(), location{dst.id, dstRow})
	return nil
}

// Insert1 adds a single component to e, moving it to the archetype whose
// schema is its old schema plus that component (or overwriting in place
// if it already had it).
func Insert1[A any](w *World, e Entity, a A) error {
	return w.insertDynamic(e, []componentValue{valueOf(a)})
}

// Insert2 adds two components to e.
func Insert2[A, B any](w *World, e Entity, a A, b B) error {
	return w.insertDynamic(e, []componentValue{valueOf(a), valueOf(b)})
}

// Insert3 adds three components to e.
func Insert3[A, B, C any](w *World, e Entity, a A, b B, c C) error {
	return w.insertDynamic(e, []componentValue{valueOf(a), valueOf(b), valueOf(c)})
}

// removeDynamic implements spec §4.5's remove contract: atomic failure if
// any requested type is absent (the entity is left unmodified), otherwise
// extract is called with each removed component's pointer before the
// value is dropped and the entity relocated, so callers can copy the
// bundle out before its storage is reused.
func (w *World) removeDynamic(e Entity, ids []TypeID, extract func(id TypeID, ptr unsafe.Pointer)) error {
	loc, err := w.alloc.get(e)
	if err != nil {
		return err
	}
	src := w.archetypes[loc.archetype]
	for _, id := range ids {
		if !src.schema.Has(id) {
			info, _ := typeInfoByID(id)
			return MissingComponentError{Entity: e, Type: info}
		}
	}
	for _, id := range ids {
		col, _, _ := src.column(id)
		extract(id, col.at(loc.row))
	}

	var dst *Archetype
	if len(ids) == 1 {
		dst = w.archetypeAfterRemove(src, ids[0])
	} else {
		dst = w.getOrCreateArchetype(src.schema.without(ids...))
	}
	dstRow := dst.allocateRow(e.ID())
	removeMask := maskOf(ids...)

	for _, id := range ids {
		col, _, _ := src.column(id)
		col.dropAt(loc.row)
	}
	src.rawCopyInto(dst, loc.row, dstRow, removeMask)

	movedSlot, moved := src.compact(loc.row)
	if moved {
		w.alloc.setLocation(movedSlot, location{src.id, loc.row})
	}
	w.alloc.setLocation(e.ID(), location{dst.id, dstRow})
	return nil
}

// Remove1 removes a single component from e and returns its value.
func Remove1[A any](w *World, e Entity) (A, error) {
	var a A
	idA := ComponentID[A]()
	err := w.removeDynamic(e, []TypeID{idA}, func(_ TypeID, ptr unsafe.Pointer) {
		a = *(*A)(ptr)
	})
	return a, err
}

// Remove2 removes two components from e and returns their values.
func Remove2[A, B any](w *World, e Entity) (A, B, error) {
	var a A
	var b B
	idA, idB := ComponentID[A](), ComponentID[B]()
	err := w.removeDynamic(e, []TypeID{idA, idB}, func(id TypeID, ptr unsafe.Pointer) {
		switch id {
		case idA:
			a = *(*A)(ptr)
		case idB:
			b = *(*B)(ptr)
		}
	})
	return a, b, err
}

// Flush materializes every entity reserved since the last Flush into a row
// of the empty archetype (spec §4.4, §4.5). Reserved entities become
// queryable only after Flush returns.
func (w *World) Flush() []Entity {
	materialized := w.alloc.flush()
	if len(materialized) == 0 {
		return nil
	}
	empty := w.archetypes[w.emptyID]
	for _, e := range materialized {
		row := empty.allocateRow(e.ID())
		w.alloc.setLocation(e.ID(), location{empty.id, row})
	}
	return materialized
}

// Reserve allocates a handle without mutating the allocator's meta or free
// list, suitable for concurrent callers holding only a shared reference to
// the World (spec §4.4). Until Flush runs the handle is invisible to
// queries, Contains reports false for it, and GetShared/GetExclusive
// return NoSuchEntityError for it; they do not report MissingComponentError.
func (w *World) Reserve() Entity {
	return w.alloc.reserve()
}

// Contains reports whether e currently resolves to a live row.
func (w *World) Contains(e Entity) bool {
	return w.alloc.isLive(e)
}

// Ref is a borrow-tracked handle to a single component value, released by
// calling Release. It implements spec §4.3's "held for the lifetime of the
// returned handle" rule for single-entity direct access.
type Ref[T any] struct {
	ptr     *T
	release func()
}

// Get returns the borrowed value's address. Valid until Release is called.
func (r *Ref[T]) Get() *T { return r.ptr }

// Release ends the borrow. Safe to call more than once.
func (r *Ref[T]) Release() {
	if r.release != nil {
		r.release()
		r.release = nil
	}
}

// GetShared acquires a shared borrow on T for e's archetype and returns a
// Ref to the component. Conflicts with a live GetExclusive of the same
// type in the same archetype are fatal (spec §4.3, §7).
func GetShared[T any](w *World, e Entity) (*Ref[T], error) {
	loc, err := w.alloc.get(e)
	if err != nil {
		return nil, err
	}
	arch := w.archetypes[loc.archetype]
	id := ComponentID[T]()
	col, idx, ok := arch.column(id)
	if !ok {
		info, _ := typeInfoByID(id)
		return nil, MissingComponentError{Entity: e, Type: info}
	}
	arch.borrows[idx].borrow(col.info.Name)
	return &Ref[T]{
		ptr:     getColumn[T](col, loc.row),
		release: func() { arch.borrows[idx].release(col.info.Name) },
	}, nil
}

// GetExclusive acquires an exclusive borrow on T for e's archetype and
// returns a Ref to the component.
func GetExclusive[T any](w *World, e Entity) (*Ref[T], error) {
	loc, err := w.alloc.get(e)
	if err != nil {
		return nil, err
	}
	arch := w.archetypes[loc.archetype]
	id := ComponentID[T]()
	col, idx, ok := arch.column(id)
	if !ok {
		info, _ := typeInfoByID(id)
		return nil, MissingComponentError{Entity: e, Type: info}
	}
	arch.borrows[idx].borrowMut(col.info.Name)
	return &Ref[T]{
		ptr:     getColumn[T](col, loc.row),
		release: func() { arch.borrows[idx].releaseMut(col.info.Name) },
	}, nil
}

// Has reports whether e currently has a component of type T.
func Has[T any](w *World, e Entity) bool {
	loc, err := w.alloc.get(e)
	if err != nil {
		return false
	}
	return w.archetypes[loc.archetype].schema.Has(ComponentID[T]())
}

// EntityRef is a row-major, per-entity enumeration handle used by
// serialization layers (spec §6).
type EntityRef struct {
	world *World
	loc   location
}

// EntityRef resolves e to a row-major enumeration handle.
func (w *World) EntityRef(e Entity) (EntityRef, error) {
	loc, err := w.alloc.get(e)
	if err != nil {
		return EntityRef{}, err
	}
	return EntityRef{world: w, loc: loc}, nil
}

// Components returns the component types present on the referenced row.
func (r EntityRef) Components() []TypeInfo {
	return r.world.archetypes[r.loc.archetype].schema.Types()
}

// Get returns a pointer to the named component at the referenced row.
func (r EntityRef) Get(id TypeID) (unsafe.Pointer, bool) {
	arch := r.world.archetypes[r.loc.archetype]
	col, _, ok := arch.column(id)
	if !ok {
		return nil, false
	}
	return col.at(r.loc.row), true
}

// SpawnColumnBatchAt materializes a finished ColumnBatch into n freshly
// claimed entity slots at entities[0..n), one row per batch index, using
// the allocator's claim path (spec §6 bulk ingestion / §4.5 spawn_at
// semantics: any already-live occupant is despawned first).
func (w *World) SpawnColumnBatchAt(entities []Entity, batch *ColumnBatch) error {
	if len(entities) != batch.n {
		return BatchIncompleteError{Column: len(entities)}
	}
	if err := batch.Finish(); err != nil {
		return err
	}
	schema := batch.schema()
	arch := w.getOrCreateArchetype(schema)
	for row, e := range entities {
		if w.alloc.isLive(e) {
			if err := w.Despawn(e); err != nil {
				return err
			}
		}
		w.alloc.claim(e)
		dstRow := arch.allocateRow(e.ID())
		for _, t := range schema.types {
			col, _, _ := arch.column(t.ID)
			col.copyRowFrom(batch.columns[t.ID], row, dstRow)
		}
		w.alloc.setLocation(e.ID(), location{arch.id, dstRow})
	}
	return nil
}

// Column exposes a serialization collaborator's view onto one component
// column: a raw pointer to its first element, the per-element stride, and
// whether the archetype carries that column at all (spec §6).
func (a *Archetype) Column(id TypeID) (ptr unsafe.Pointer, stride uintptr, ok bool) {
	col, _, found := a.column(id)
	if !found {
		return nil, 0, false
	}
	if col.info.Size == 0 || len(col.data) == 0 {
		return nil, col.info.Size, true
	}
	return unsafe.Pointer(&col.data[0]), col.info.Size, true
}
