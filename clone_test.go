package silo

import "testing"

type clPosition struct{ X, Y float64 }

func TestCloneDuplicatesComponentValues(t *testing.T) {
	RegisterClone(func(dst, src *clPosition) { *dst = *src })

	w := NewWorld()
	e := Spawn1(w, clPosition{X: 1, Y: 2})

	dup, err := w.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}

	orig, err := GetShared[clPosition](w, e)
	if err != nil {
		t.Fatalf("GetShared original: %v", err)
	}
	orig.Get().X = 99
	orig.Release()

	cloned, err := GetShared[clPosition](dup, e)
	if err != nil {
		t.Fatalf("GetShared clone: %v", err)
	}
	if cloned.Get().X != 1 {
		t.Fatalf("clone's component = %+v, want X=1 (independent of original mutation)", *cloned.Get())
	}
	cloned.Release()
}

type clUnclonable struct{ X int }

func TestCloneFailsWithoutRegisteredCloneFunction(t *testing.T) {
	w := NewWorld()
	Spawn1(w, clUnclonable{X: 1})
	if _, err := w.Clone(); err == nil {
		t.Fatal("expected TypeUnknownError cloning a type with no registered Clone function")
	}
}

type clZeroSized struct{}

func TestCloneSucceedsForZeroSizedTypesWithoutRegistration(t *testing.T) {
	w := NewWorld()
	Spawn1(w, clZeroSized{})
	if _, err := w.Clone(); err != nil {
		t.Fatalf("Clone: %v", err)
	}
}
