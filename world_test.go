package silo

import (
	"iter"
	"slices"
	"testing"
)

type wPosition struct{ X, Y float64 }
type wVelocity struct{ X, Y float64 }
type wName struct{ Value string }

func TestSpawnAndDespawn(t *testing.T) {
	w := NewWorld()
	e := Spawn2(w, wPosition{X: 1, Y: 2}, wVelocity{X: 3, Y: 4})
	if !w.Contains(e) {
		t.Fatal("newly spawned entity should be live")
	}
	if !Has[wPosition](w, e) || !Has[wVelocity](w, e) {
		t.Fatal("spawned entity should carry both components")
	}
	if err := w.Despawn(e); err != nil {
		t.Fatalf("Despawn: %v", err)
	}
	if w.Contains(e) {
		t.Fatal("despawned entity should no longer be live")
	}
	if err := w.Despawn(e); err == nil {
		t.Fatal("double despawn should return NoSuchEntityError")
	}
}

func TestDespawnRewritesSwappedEntityLocation(t *testing.T) {
	w := NewWorld()
	e1 := Spawn1(w, wPosition{X: 1})
	Spawn1(w, wPosition{X: 2})
	e3 := Spawn1(w, wPosition{X: 3})

	if err := w.Despawn(e1); err != nil {
		t.Fatalf("Despawn: %v", err)
	}
	ref, err := GetShared[wPosition](w, e3)
	if err != nil {
		t.Fatalf("GetShared after swap: %v", err)
	}
	if ref.Get().X != 3 {
		t.Fatalf("e3's position after swap = %+v, want X=3", *ref.Get())
	}
	ref.Release()
}

func TestInsertMovesToUnionArchetype(t *testing.T) {
	w := NewWorld()
	e := Spawn1(w, wPosition{X: 1, Y: 2})
	if err := Insert1(w, e, wVelocity{X: 5, Y: 6}); err != nil {
		t.Fatalf("Insert1: %v", err)
	}
	if !Has[wPosition](w, e) || !Has[wVelocity](w, e) {
		t.Fatal("entity should carry both components after insert")
	}
	pos, err := GetShared[wPosition](w, e)
	if err != nil {
		t.Fatalf("GetShared: %v", err)
	}
	if pos.Get().X != 1 {
		t.Fatalf("original component should survive insert, got %+v", *pos.Get())
	}
	pos.Release()
}

func TestInsertOverwritesInPlaceWhenAlreadyPresent(t *testing.T) {
	w := NewWorld()
	e := Spawn1(w, wPosition{X: 1, Y: 2})
	if err := Insert1(w, e, wPosition{X: 9, Y: 9}); err != nil {
		t.Fatalf("Insert1: %v", err)
	}
	pos, err := GetShared[wPosition](w, e)
	if err != nil {
		t.Fatalf("GetShared: %v", err)
	}
	if pos.Get().X != 9 {
		t.Fatalf("overwritten component = %+v, want X=9", *pos.Get())
	}
	pos.Release()
}

func TestRemoveReturnsValueAndLeavesOthers(t *testing.T) {
	w := NewWorld()
	e := Spawn2(w, wPosition{X: 1, Y: 2}, wVelocity{X: 3, Y: 4})
	vel, err := Remove1[wVelocity](w, e)
	if err != nil {
		t.Fatalf("Remove1: %v", err)
	}
	if vel.X != 3 {
		t.Fatalf("removed value = %+v, want X=3", vel)
	}
	if Has[wVelocity](w, e) {
		t.Fatal("entity should no longer carry the removed component")
	}
	if !Has[wPosition](w, e) {
		t.Fatal("entity should still carry its other component")
	}
}

func TestRemoveMissingComponentLeavesEntityUnmodified(t *testing.T) {
	w := NewWorld()
	e := Spawn1(w, wPosition{X: 1})
	_, err := Remove1[wVelocity](w, e)
	if err == nil {
		t.Fatal("expected MissingComponentError")
	}
	if !Has[wPosition](w, e) {
		t.Fatal("failed remove should not have disturbed the entity")
	}
}

func TestSpawnEmptyIsInvisibleToTypedQueries(t *testing.T) {
	w := NewWorld()
	e := SpawnEmpty(w)
	if !w.Contains(e) {
		t.Fatal("empty-component entity should still be live")
	}
	seen := false
	q := NewQuery1[wPosition, Read[wPosition]](w)
	for range q.All() {
		seen = true
	}
	if seen {
		t.Fatal("empty-component entity should not match a Position query")
	}
}

func TestReserveIsInvisibleUntilFlush(t *testing.T) {
	w := NewWorld()
	r := w.Reserve()
	if w.Contains(r) {
		t.Fatal("reserved entity should not be live before Flush")
	}
	flushed := w.Flush()
	if len(flushed) != 1 || flushed[0] != r {
		t.Fatalf("Flush() = %v, want [%v]", flushed, r)
	}
	if !w.Contains(r) {
		t.Fatal("reserved entity should be live after Flush")
	}
}

func TestSpawnAtReplacesExistingOccupant(t *testing.T) {
	w := NewWorld()
	e := Spawn1(w, wPosition{X: 1})
	if err := SpawnAt1(w, e, wName{Value: "replaced"}); err != nil {
		t.Fatalf("SpawnAt1: %v", err)
	}
	if Has[wPosition](w, e) {
		t.Fatal("SpawnAt should replace the prior occupant entirely")
	}
	if !Has[wName](w, e) {
		t.Fatal("SpawnAt should install the new component set")
	}
}

func TestBorrowConflictIsFatal(t *testing.T) {
	w := NewWorld()
	e := Spawn1(w, wPosition{X: 1})
	shared, err := GetShared[wPosition](w, e)
	if err != nil {
		t.Fatalf("GetShared: %v", err)
	}
	defer shared.Release()

	defer func() {
		if recover() == nil {
			t.Fatal("expected a fatal panic on conflicting exclusive borrow")
		}
	}()
	excl, err := GetExclusive[wPosition](w, e)
	if err == nil {
		excl.Release()
	}
}

func seq2FromSlices[A, B any](as []A, bs []B) iter.Seq2[A, B] {
	return func(yield func(A, B) bool) {
		for i := range as {
			if !yield(as[i], bs[i]) {
				return
			}
		}
	}
}

func TestSpawnBatch1EmptyIteratorIsNoOp(t *testing.T) {
	w := NewWorld()
	entities := SpawnBatch1(w, slices.Values([]wPosition(nil)))
	if len(entities) != 0 {
		t.Fatalf("SpawnBatch1 with an empty iterator returned %d entities, want 0", len(entities))
	}
	if w.Len() != 0 {
		t.Fatalf("world len = %d, want 0", w.Len())
	}
	if len(w.Archetypes()) != 1 {
		t.Fatalf("archetype count = %d, want 1 (only the empty archetype)", len(w.Archetypes()))
	}
}

func TestSpawnBatch1SpawnsOneEntityPerValue(t *testing.T) {
	w := NewWorld()
	values := []wPosition{{X: 1}, {X: 2}, {X: 3}}
	entities := SpawnBatch1(w, slices.Values(values))
	if len(entities) != 3 {
		t.Fatalf("SpawnBatch1 returned %d entities, want 3", len(entities))
	}
	if len(w.Archetypes()) != 2 {
		t.Fatalf("archetype count = %d, want 2 (empty + Position)", len(w.Archetypes()))
	}
	for i, e := range entities {
		ref, err := GetShared[wPosition](w, e)
		if err != nil {
			t.Fatalf("GetShared: %v", err)
		}
		if ref.Get().X != values[i].X {
			t.Fatalf("entity %d position = %+v, want X=%v", i, *ref.Get(), values[i].X)
		}
		ref.Release()
	}
}

func TestSpawnBatch2EmptyIteratorIsNoOp(t *testing.T) {
	w := NewWorld()
	entities := SpawnBatch2[wPosition, wVelocity](w, seq2FromSlices[wPosition, wVelocity](nil, nil))
	if len(entities) != 0 {
		t.Fatalf("SpawnBatch2 with an empty iterator returned %d entities, want 0", len(entities))
	}
	if len(w.Archetypes()) != 1 {
		t.Fatalf("archetype count = %d, want 1 (only the empty archetype)", len(w.Archetypes()))
	}
}

func TestSpawnBatch2SpawnsIntoOneTargetArchetype(t *testing.T) {
	w := NewWorld()
	positions := []wPosition{{X: 1}, {X: 2}}
	velocities := []wVelocity{{X: 10}, {X: 20}}
	entities := SpawnBatch2(w, seq2FromSlices(positions, velocities))
	if len(entities) != 2 {
		t.Fatalf("SpawnBatch2 returned %d entities, want 2", len(entities))
	}
	if len(w.Archetypes()) != 2 {
		t.Fatalf("archetype count = %d, want 2 (empty + Position+Velocity)", len(w.Archetypes()))
	}
	for i, e := range entities {
		pos, err := GetShared[wPosition](w, e)
		if err != nil {
			t.Fatalf("GetShared position: %v", err)
		}
		if pos.Get().X != positions[i].X {
			t.Fatalf("entity %d position = %+v, want X=%v", i, *pos.Get(), positions[i].X)
		}
		pos.Release()
		vel, err := GetShared[wVelocity](w, e)
		if err != nil {
			t.Fatalf("GetShared velocity: %v", err)
		}
		if vel.Get().X != velocities[i].X {
			t.Fatalf("entity %d velocity = %+v, want X=%v", i, *vel.Get(), velocities[i].X)
		}
		vel.Release()
	}
}
