package silo

import "testing"

type cbPosition struct{ X, Y float64 }
type cbTag struct{ Label string }

func TestColumnBatchFinishRequiresEveryColumn(t *testing.T) {
	posType := NewComponent[cbPosition]()
	tagType := NewComponent[cbTag]()
	b := NewColumnBatch(2, posType, tagType)

	if err := b.Finish(); err == nil {
		t.Fatal("expected BatchIncompleteError before any column is filled")
	}
	if err := SetColumn(b, []cbPosition{{X: 1}, {X: 2}}); err != nil {
		t.Fatalf("SetColumn: %v", err)
	}
	if err := b.Finish(); err == nil {
		t.Fatal("expected BatchIncompleteError with one column still unfilled")
	}
	if err := SetColumn(b, []cbTag{{Label: "a"}, {Label: "b"}}); err != nil {
		t.Fatalf("SetColumn: %v", err)
	}
	if err := b.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
}

func TestColumnBatchWrongLengthRejected(t *testing.T) {
	posType := NewComponent[cbPosition]()
	b := NewColumnBatch(3, posType)
	if err := SetColumn(b, []cbPosition{{X: 1}}); err == nil {
		t.Fatal("expected an error for a column shorter than the batch's row count")
	}
}

func TestSpawnColumnBatchAtMaterializesEntities(t *testing.T) {
	w := NewWorld()
	posType := NewComponent[cbPosition]()
	b := NewColumnBatch(2, posType)
	if err := SetColumn(b, []cbPosition{{X: 10}, {X: 20}}); err != nil {
		t.Fatalf("SetColumn: %v", err)
	}
	if err := b.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	e1 := w.Reserve()
	e2 := w.Reserve()
	if err := w.SpawnColumnBatchAt([]Entity{e1, e2}, b); err != nil {
		t.Fatalf("SpawnColumnBatchAt: %v", err)
	}
	ref, err := GetShared[cbPosition](w, e1)
	if err != nil {
		t.Fatalf("GetShared e1: %v", err)
	}
	if ref.Get().X != 10 {
		t.Fatalf("e1 position = %+v, want X=10", *ref.Get())
	}
	ref.Release()
	ref2, err := GetShared[cbPosition](w, e2)
	if err != nil {
		t.Fatalf("GetShared e2: %v", err)
	}
	if ref2.Get().X != 20 {
		t.Fatalf("e2 position = %+v, want X=20", *ref2.Get())
	}
	ref2.Release()
}
