package silo

import (
	"fmt"
	"sort"
	"testing"
)

type exI32 int32
type exString string
type exBool bool
type exA int
type exPosition struct{ X, Y float64 }
type exVelocity struct{ X, Y float64 }

// ExampleSpawn2 demonstrates spawning two heterogeneous bundles and
// querying the type they share.
func ExampleSpawn2() {
	w := NewWorld()
	Spawn2(w, exI32(123), exString("abc"))
	Spawn2(w, exI32(456), exBool(true))

	q := NewQuery1[exI32, Read[exI32]](w)
	var values []int
	for _, v := range q.All() {
		values = append(values, int(*v))
	}
	sort.Ints(values)
	for _, v := range values {
		fmt.Println(v)
	}
	// Output:
	// 123
	// 456
}

func TestScenarioGetMutThenQuerySeesUpdatedValue(t *testing.T) {
	w := NewWorld()
	e := Spawn1(w, exA(1))

	ref, err := GetExclusive[exA](w, e)
	if err != nil {
		t.Fatalf("GetExclusive: %v", err)
	}
	*ref.Get() = exA(2)
	ref.Release()

	q := NewQuery1[exA, Read[exA]](w)
	var got []exA
	for _, v := range q.All() {
		got = append(got, *v)
	}
	if len(got) != 1 || got[0] != exA(2) {
		t.Fatalf("query results = %v, want [2]", got)
	}
}

func TestScenarioBulkUpdateSingleArchetype(t *testing.T) {
	w := NewWorld()
	for i := 0; i < 100; i++ {
		Spawn2(w, exPosition{X: 0, Y: 0}, exVelocity{X: 1, Y: 2})
	}

	q := NewQuery2[exPosition, Write[exPosition], exVelocity, Read[exVelocity]](w)
	count := 0
	q.Each(func(e Entity, pos *exPosition, vel *exVelocity) bool {
		pos.X += vel.X
		pos.Y += vel.Y
		count++
		return true
	})
	if count != 100 {
		t.Fatalf("visited %d entities, want 100", count)
	}
	if len(w.Archetypes()) != 2 { // empty archetype + the one (Position, Velocity) archetype
		t.Fatalf("archetype count = %d, want 2", len(w.Archetypes()))
	}
}

func TestScenarioInsertMovesBetweenArchetypes(t *testing.T) {
	w := NewWorld()
	e := Spawn1(w, exA(1))
	srcArch := w.archetypes[w.alloc.meta[e.ID()].location.archetype]
	srcLenBefore := srcArch.Len()

	if err := Insert1(w, e, exString("b")); err != nil {
		t.Fatalf("Insert1: %v", err)
	}
	if srcArch.Len() != srcLenBefore-1 {
		t.Fatalf("source archetype len = %d, want %d", srcArch.Len(), srcLenBefore-1)
	}
	dstArch := w.archetypes[w.alloc.meta[e.ID()].location.archetype]
	if dstArch.Len() != 1 {
		t.Fatalf("target archetype len = %d, want 1", dstArch.Len())
	}
	if !Has[exA](w, e) || !Has[exString](w, e) {
		t.Fatal("entity should carry both components after insert")
	}
}

func TestScenarioDespawnThenGetFailsThenRespawnGeneration(t *testing.T) {
	w := NewWorld()
	e := Spawn1(w, exA(1))
	if err := w.Despawn(e); err != nil {
		t.Fatalf("Despawn: %v", err)
	}
	if _, err := GetShared[exA](w, e); err == nil {
		t.Fatal("expected NoSuchEntityError for a despawned handle")
	}
	e2 := Spawn1(w, exA(2))
	if e2 == e {
		t.Fatal("respawned handle should compare unequal to the despawned one")
	}
}

// --- Scenario 6: transform hierarchy ---

type exTransform struct{ X, Y float64 }

type exParent struct {
	Entity    Entity
	FromChild exTransform
}

func evalWorldTransform(w *World, e Entity) exTransform {
	parentRef, err := GetShared[exParent](w, e)
	if err != nil {
		// root: its own Transform is the world transform.
		t, err := GetShared[exTransform](w, e)
		if err != nil {
			return exTransform{}
		}
		defer t.Release()
		return *t.Get()
	}
	parent := *parentRef.Get()
	parentRef.Release()

	base := evalWorldTransform(w, parent.Entity)
	return exTransform{X: base.X + parent.FromChild.X, Y: base.Y + parent.FromChild.Y}
}

func TestScenarioTransformHierarchy(t *testing.T) {
	w := NewWorld()
	root := Spawn1(w, exTransform{X: 3, Y: 4})
	child := Spawn2(w, exParent{Entity: root, FromChild: exTransform{X: 1, Y: 1}}, exTransform{})

	q := NewQuery2[exParent, Read[exParent], exTransform, Write[exTransform]](w)
	q.Each(func(e Entity, p *exParent, tr *exTransform) bool {
		*tr = evalWorldTransform(w, e)
		return true
	})

	got, err := GetShared[exTransform](w, child)
	if err != nil {
		t.Fatalf("GetShared: %v", err)
	}
	if got.Get().X != 4 || got.Get().Y != 5 {
		t.Fatalf("child transform = %+v, want {4 5}", *got.Get())
	}
	got.Release()

	rootTr, err := GetExclusive[exTransform](w, root)
	if err != nil {
		t.Fatalf("GetExclusive root: %v", err)
	}
	*rootTr.Get() = exTransform{X: 2, Y: 2}
	rootTr.Release()

	q2 := NewQuery2[exParent, Read[exParent], exTransform, Write[exTransform]](w)
	q2.Each(func(e Entity, p *exParent, tr *exTransform) bool {
		*tr = evalWorldTransform(w, e)
		return true
	})

	got2, err := GetShared[exTransform](w, child)
	if err != nil {
		t.Fatalf("GetShared: %v", err)
	}
	if got2.Get().X != 3 || got2.Get().Y != 3 {
		t.Fatalf("child transform after root move = %+v, want {3 3}", *got2.Get())
	}
	got2.Release()
}
