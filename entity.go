package silo

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// Entity is a generational handle: the low 32 bits are a slot id, the high
// 32 bits are that slot's generation at the time this handle was issued
// (spec §3). It is a plain value type: comparable, hashable, copyable, and
// losslessly convertible to and from a uint64 (spec L1).
type Entity uint64

// NewEntity packs a slot id and generation into an Entity. Exposed for
// collaborators (serialization layers) reconstructing handles from raw
// parts; ordinary callers get Entity values from World operations.
func NewEntity(id, generation uint32) Entity {
	return Entity(uint64(generation)<<32 | uint64(id))
}

// ID returns the handle's slot index.
func (e Entity) ID() uint32 { return uint32(e) }

// Generation returns the handle's generation tag.
func (e Entity) Generation() uint32 { return uint32(e >> 32) }

// Bits returns the lossless 64-bit encoding of e (spec §6).
func (e Entity) Bits() uint64 { return uint64(e) }

// EntityFromBits is the inverse of Entity.Bits (spec L1:
// EntityFromBits(e.Bits()) == e).
func EntityFromBits(bits uint64) Entity { return Entity(bits) }

func (e Entity) String() string {
	return fmt.Sprintf("Entity{id: %d, gen: %d}", e.ID(), e.Generation())
}

// location is the (archetype index, row index) pair identifying an
// entity's storage slot (spec: Location).
type location struct {
	archetype archetypeID
	row       int
}

// entityMeta is the per-slot bookkeeping record (spec: EntityMeta). Meta
// exists for every slot ever allocated; reserved marks a handle issued by
// Reserve that Flush has not yet materialized; retired marks a slot whose
// generation counter overflowed and will never be reused (spec §4.4:
// "on overflow the slot is retired").
type entityMeta struct {
	generation uint32
	location   location
	reserved   bool
	retired    bool
}

// allocator is the generational slot-reuse allocator (spec §4.4). Normal
// alloc/free mutate meta and the free list under a mutex; Reserve claims a
// brand-new slot id via an atomic counter without touching either, so it
// is safe to call from shared-reference contexts while a mutable borrow of
// the allocator is held elsewhere. Flush later folds every pending
// reservation into meta.
type allocator struct {
	mu       sync.Mutex
	meta     []entityMeta
	freeList []uint32

	nextSlot atomic.Uint32 // next brand-new id, kept in sync with len(meta) plus in-flight reservations

	pendingMu sync.Mutex
	pending   []Entity
}

func newAllocator(capacityHint int) *allocator {
	a := &allocator{}
	if capacityHint > 0 {
		a.meta = make([]entityMeta, 0, capacityHint)
	}
	return a
}

// alloc pops a free slot, or grows meta to cover a brand-new slot id, and
// returns a live handle for it (spec: alloc()). Brand-new slot ids are
// drawn from the same atomic nextSlot counter reserve() uses, so the two
// can never race each other onto the same id even though reserve() doesn't
// take a.mu. Slots skipped over belong to pending reservations and stay
// marked reserved until Flush.
func (a *allocator) alloc() Entity {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.freeList); n > 0 {
		id := a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		gen := a.meta[id].generation
		return NewEntity(id, gen)
	}
	id := a.nextSlot.Add(1) - 1
	for uint32(len(a.meta)) <= id {
		a.meta = append(a.meta, entityMeta{reserved: true})
	}
	a.meta[id] = entityMeta{}
	return NewEntity(id, 0)
}

// free validates e, bumps its slot's generation, and pushes the slot back
// onto the free list — unless the generation counter is already at its
// maximum, in which case the slot is retired rather than reused (spec
// §4.4).
func (a *allocator) free(e Entity) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := e.ID()
	if int(id) >= len(a.meta) {
		return NoSuchEntityError{Entity: e}
	}
	m := &a.meta[id]
	if m.retired || m.reserved || m.generation != e.Generation() {
		return NoSuchEntityError{Entity: e}
	}
	if m.generation == math.MaxUint32 {
		m.retired = true
		return nil
	}
	m.generation++
	a.freeList = append(a.freeList, id)
	return nil
}

// get validates e and returns its current storage location (spec: get()).
func (a *allocator) get(e Entity) (location, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := e.ID()
	if int(id) >= len(a.meta) {
		return location{}, NoSuchEntityError{Entity: e}
	}
	m := a.meta[id]
	if m.retired || m.reserved || m.generation != e.Generation() {
		return location{}, NoSuchEntityError{Entity: e}
	}
	return m.location, nil
}

// setLocation rewrites a live slot's location, used after structural
// mutation relocates a row.
func (a *allocator) setLocation(id uint32, loc location) {
	a.mu.Lock()
	a.meta[id].location = loc
	a.mu.Unlock()
}

// isLive reports whether e's generation still matches its slot and the
// slot isn't pending a flush.
func (a *allocator) isLive(e Entity) bool {
	_, err := a.get(e)
	return err == nil
}

// reserve hands out a brand-new slot id via an atomic counter, touching
// neither meta nor the free list (spec §4.4). The handle is valid for
// lookup and bookkeeping purposes but has no backing row until Flush runs.
func (a *allocator) reserve() Entity {
	id := a.nextSlot.Add(1) - 1
	e := NewEntity(id, 0)
	a.pendingMu.Lock()
	a.pending = append(a.pending, e)
	a.pendingMu.Unlock()
	return e
}

// flush materializes every pending reservation into live meta entries
// (generation 0, reserved cleared) and returns them in reservation order,
// so the caller (World.Flush) can allocate their archetype rows.
func (a *allocator) flush() []Entity {
	a.pendingMu.Lock()
	pending := a.pending
	a.pending = nil
	a.pendingMu.Unlock()
	if len(pending) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range pending {
		id := e.ID()
		for uint32(len(a.meta)) <= id {
			a.meta = append(a.meta, entityMeta{reserved: true})
		}
		a.meta[id] = entityMeta{generation: e.Generation()}
	}
	a.nextSlot.Store(uint32(len(a.meta)))
	return pending
}

// claim assigns e to a specific slot for World.SpawnAt/SpawnColumnBatchAt:
// the slot must be free, reserved, or never allocated. If the slot is
// currently live, the caller must have already despawned its occupant.
func (a *allocator) claim(e Entity) {
	id := e.ID()

	a.pendingMu.Lock()
	for i, p := range a.pending {
		if p.ID() == id {
			a.pending[i] = a.pending[len(a.pending)-1]
			a.pending = a.pending[:len(a.pending)-1]
			break
		}
	}
	a.pendingMu.Unlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	for uint32(len(a.meta)) <= id {
		a.meta = append(a.meta, entityMeta{reserved: true})
	}
	// drop id from the free list if it's sitting there
	for i, free := range a.freeList {
		if free == id {
			a.freeList[i] = a.freeList[len(a.freeList)-1]
			a.freeList = a.freeList[:len(a.freeList)-1]
			break
		}
	}
	a.meta[id] = entityMeta{generation: e.Generation()}
	if n := uint32(len(a.meta)); n > a.nextSlot.Load() {
		a.nextSlot.Store(n)
	}
}
