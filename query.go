package silo

import (
	"iter"
	"sort"
)

// term identifies one query position's requirement: which component type it
// names, and whether matching requires that type to be present (true for
// Read/Write/Opt's presence bit is handled separately — see optional) or
// merely checked (Satisfies). Grounded on delaneyj-arche/ecs/generic.go's
// arity-numbered Query/Map helpers, adapted to an explicit per-slot
// read/write/optional marker since Go has no variadic generics to infer it
// from a tuple type the way Rust's Query<(&A, &mut B)> does.
type term struct {
	id       TypeID
	write    bool
	optional bool
}

// Term is implemented by the five query-slot marker types: Read[T],
// Write[T], Opt[T], OptMut[T], and Satisfies[T]. It is only ever used as a type parameter
// constraint; values are never constructed.
type Term[T any] interface {
	termOf() term
}

// Read marks a query slot as a required shared borrow of T.
type Read[T any] struct{}

func (Read[T]) termOf() term { return term{id: ComponentID[T](), write: false} }

// Write marks a query slot as a required exclusive borrow of T.
type Write[T any] struct{}

func (Write[T]) termOf() term { return term{id: ComponentID[T](), write: true} }

// Opt marks a query slot as an optional shared borrow of T: matching
// archetypes need not carry T, and the yielded pointer is nil for
// archetypes that don't carry it.
type Opt[T any] struct{}

func (Opt[T]) termOf() term { return term{id: ComponentID[T](), write: false, optional: true} }

// OptMut marks a query slot as an optional exclusive borrow of T.
type OptMut[T any] struct{}

func (OptMut[T]) termOf() term { return term{id: ComponentID[T](), write: true, optional: true} }

// Satisfies marks a query slot that never excludes an archetype: its
// pointer is non-nil exactly for entities that carry T, so the slot serves
// as a presence flag. Where T is present it takes a shared borrow of T.
type Satisfies[T any] struct{}

func (Satisfies[T]) termOf() term { return term{id: ComponentID[T](), optional: true} }

// Filter further restricts which archetypes a query matches, beyond the
// presence requirements implied by its terms (spec §4.6: With/Without/Or).
type Filter interface {
	matches(s Schema) bool
}

type withFilter struct{ ids []TypeID }

func (f withFilter) matches(s Schema) bool { return s.HasAll(f.ids...) }

// With requires every named type to be present, without binding a query
// slot to it.
func With(types ...TypeInfo) Filter {
	return withFilter{ids: idsOf(types)}
}

type withoutFilter struct{ ids []TypeID }

func (f withoutFilter) matches(s Schema) bool { return s.HasNone(f.ids...) }

// Without excludes archetypes carrying any named type.
func Without(types ...TypeInfo) Filter {
	return withoutFilter{ids: idsOf(types)}
}

type orFilter struct{ a, b Filter }

func (f orFilter) matches(s Schema) bool { return f.a.matches(s) || f.b.matches(s) }

// OrFilter matches archetypes satisfying either a or b.
func OrFilter(a, b Filter) Filter {
	return orFilter{a: a, b: b}
}

func checkAliasing(terms []term) {
	seen := make(map[TypeID]bool, len(terms))
	for _, t := range terms {
		if seen[t.id] {
			info, _ := typeInfoByID(t.id)
			fatalf("query aliases component %s in more than one slot", info.Name)
		}
		seen[t.id] = true
	}
}

func matchesSchema(s Schema, terms []term, filters []Filter) bool {
	for _, t := range terms {
		if !t.optional && !s.Has(t.id) {
			return false
		}
	}
	for _, f := range filters {
		if !f.matches(s) {
			return false
		}
	}
	return true
}

// borrowAll acquires every term's borrow against arch, in ascending
// type-id order so two queries requesting overlapping types always
// acquire in the same order (avoids lock-order deadlocks, though
// violations here are fatal rather than blocking).
func borrowAll(arch *Archetype, terms []term) {
	ordered := append([]term(nil), terms...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].id < ordered[j].id })
	for _, t := range ordered {
		col, idx, ok := arch.column(t.id)
		if !ok {
			continue // optional term absent from this archetype
		}
		if t.write {
			arch.borrows[idx].borrowMut(col.info.Name)
		} else {
			arch.borrows[idx].borrow(col.info.Name)
		}
	}
}

func releaseAll(arch *Archetype, terms []term) {
	for _, t := range terms {
		col, idx, ok := arch.column(t.id)
		if !ok {
			continue
		}
		if t.write {
			arch.borrows[idx].releaseMut(col.info.Name)
		} else {
			arch.borrows[idx].release(col.info.Name)
		}
	}
}

// matchedArchetypes returns, in archetype-creation order, every archetype
// in w currently matching terms and filters.
func matchedArchetypes(w *World, terms []term, filters []Filter) []*Archetype {
	var out []*Archetype
	for _, a := range w.archetypes {
		if matchesSchema(a.schema, terms, filters) {
			out = append(out, a)
		}
	}
	return out
}

// Query1 iterates every entity carrying a single required (or, via Opt,
// optional) component.
type Query1[A any, TA Term[A]] struct {
	w       *World
	terms   []term
	filters []Filter
}

// NewQuery1 prepares a one-component query. Filters narrow which
// archetypes match beyond TA's own presence requirement.
func NewQuery1[A any, TA Term[A]](w *World, filters ...Filter) *Query1[A, TA] {
	var ta TA
	terms := []term{ta.termOf()}
	checkAliasing(terms)
	return &Query1[A, TA]{w: w, terms: terms, filters: filters}
}

func fetch1[A any](arch *Archetype, row int, t term) *A {
	col, _, ok := arch.column(t.id)
	if !ok {
		return nil
	}
	return getColumn[A](col, row)
}

// All returns an iterator over (Entity, component pointer) pairs. The
// pointer is never nil for a required term (Read[A]/Write[A]); for an
// optional term (Opt[A]/OptMut[A]) it is nil for archetypes that do not
// carry A, distinguishing "absent" from "present and zero" the same way
// Query2..Query6's Each does.
func (q *Query1[A, TA]) All() iter.Seq2[Entity, *A] {
	return func(yield func(Entity, *A) bool) {
		for _, arch := range matchedArchetypes(q.w, q.terms, q.filters) {
			if arch.Len() == 0 {
				continue
			}
			borrowAll(arch, q.terms)
			ids := arch.EntityIDs()
			cont := true
			for row := 0; row < arch.Len() && cont; row++ {
				e := NewEntity(ids[row], q.w.alloc.meta[ids[row]].generation)
				v := fetch1[A](arch, row, q.terms[0])
				cont = yield(e, v)
			}
			releaseAll(arch, q.terms)
			if !cont {
				return
			}
		}
	}
}

// Query2 iterates every entity matching two terms.
type Query2[A any, TA Term[A], B any, TB Term[B]] struct {
	w       *World
	terms   []term
	filters []Filter
}

// NewQuery2 prepares a two-component query.
func NewQuery2[A any, TA Term[A], B any, TB Term[B]](w *World, filters ...Filter) *Query2[A, TA, B, TB] {
	var ta TA
	var tb TB
	terms := []term{ta.termOf(), tb.termOf()}
	checkAliasing(terms)
	return &Query2[A, TA, B, TB]{w: w, terms: terms, filters: filters}
}

// Each calls fn for every matching entity with pointers to its A and B
// slots. fn returns false to stop iteration early.
func (q *Query2[A, TA, B, TB]) Each(fn func(e Entity, a *A, b *B) bool) {
	for _, arch := range matchedArchetypes(q.w, q.terms, q.filters) {
		if arch.Len() == 0 {
			continue
		}
		borrowAll(arch, q.terms)
		ids := arch.EntityIDs()
		colA, _, okA := arch.column(q.terms[0].id)
		colB, _, okB := arch.column(q.terms[1].id)
		cont := true
		for row := 0; row < arch.Len() && cont; row++ {
			e := NewEntity(ids[row], q.w.alloc.meta[ids[row]].generation)
			var a *A
			var b *B
			if okA {
				a = getColumn[A](colA, row)
			}
			if okB {
				b = getColumn[B](colB, row)
			}
			cont = fn(e, a, b)
		}
		releaseAll(arch, q.terms)
		if !cont {
			return
		}
	}
}

// Query3 iterates every entity matching three terms.
type Query3[A any, TA Term[A], B any, TB Term[B], C any, TC Term[C]] struct {
	w       *World
	terms   []term
	filters []Filter
}

// NewQuery3 prepares a three-component query.
func NewQuery3[A any, TA Term[A], B any, TB Term[B], C any, TC Term[C]](w *World, filters ...Filter) *Query3[A, TA, B, TB, C, TC] {
	var ta TA
	var tb TB
	var tc TC
	terms := []term{ta.termOf(), tb.termOf(), tc.termOf()}
	checkAliasing(terms)
	return &Query3[A, TA, B, TB, C, TC]{w: w, terms: terms, filters: filters}
}

// Each calls fn for every matching entity with pointers to its A, B, and C
// slots.
func (q *Query3[A, TA, B, TB, C, TC]) Each(fn func(e Entity, a *A, b *B, c *C) bool) {
	for _, arch := range matchedArchetypes(q.w, q.terms, q.filters) {
		if arch.Len() == 0 {
			continue
		}
		borrowAll(arch, q.terms)
		ids := arch.EntityIDs()
		colA, _, okA := arch.column(q.terms[0].id)
		colB, _, okB := arch.column(q.terms[1].id)
		colC, _, okC := arch.column(q.terms[2].id)
		cont := true
		for row := 0; row < arch.Len() && cont; row++ {
			e := NewEntity(ids[row], q.w.alloc.meta[ids[row]].generation)
			var a *A
			var b *B
			var c *C
			if okA {
				a = getColumn[A](colA, row)
			}
			if okB {
				b = getColumn[B](colB, row)
			}
			if okC {
				c = getColumn[C](colC, row)
			}
			cont = fn(e, a, b, c)
		}
		releaseAll(arch, q.terms)
		if !cont {
			return
		}
	}
}

// Query4 iterates every entity matching four terms.
type Query4[A any, TA Term[A], B any, TB Term[B], C any, TC Term[C], D any, TD Term[D]] struct {
	w       *World
	terms   []term
	filters []Filter
}

// NewQuery4 prepares a four-component query.
func NewQuery4[A any, TA Term[A], B any, TB Term[B], C any, TC Term[C], D any, TD Term[D]](w *World, filters ...Filter) *Query4[A, TA, B, TB, C, TC, D, TD] {
	var ta TA
	var tb TB
	var tc TC
	var td TD
	terms := []term{ta.termOf(), tb.termOf(), tc.termOf(), td.termOf()}
	checkAliasing(terms)
	return &Query4[A, TA, B, TB, C, TC, D, TD]{w: w, terms: terms, filters: filters}
}

// Each calls fn for every matching entity with pointers to its A, B, C, and
// D slots.
func (q *Query4[A, TA, B, TB, C, TC, D, TD]) Each(fn func(e Entity, a *A, b *B, c *C, d *D) bool) {
	for _, arch := range matchedArchetypes(q.w, q.terms, q.filters) {
		if arch.Len() == 0 {
			continue
		}
		borrowAll(arch, q.terms)
		ids := arch.EntityIDs()
		colA, _, okA := arch.column(q.terms[0].id)
		colB, _, okB := arch.column(q.terms[1].id)
		colC, _, okC := arch.column(q.terms[2].id)
		colD, _, okD := arch.column(q.terms[3].id)
		cont := true
		for row := 0; row < arch.Len() && cont; row++ {
			e := NewEntity(ids[row], q.w.alloc.meta[ids[row]].generation)
			var a *A
			var b *B
			var c *C
			var d *D
			if okA {
				a = getColumn[A](colA, row)
			}
			if okB {
				b = getColumn[B](colB, row)
			}
			if okC {
				c = getColumn[C](colC, row)
			}
			if okD {
				d = getColumn[D](colD, row)
			}
			cont = fn(e, a, b, c, d)
		}
		releaseAll(arch, q.terms)
		if !cont {
			return
		}
	}
}

// Query5 iterates every entity matching five terms.
type Query5[A any, TA Term[A], B any, TB Term[B], C any, TC Term[C], D any, TD Term[D], E any, TE Term[E]] struct {
	w       *World
	terms   []term
	filters []Filter
}

// NewQuery5 prepares a five-component query.
func NewQuery5[A any, TA Term[A], B any, TB Term[B], C any, TC Term[C], D any, TD Term[D], E any, TE Term[E]](w *World, filters ...Filter) *Query5[A, TA, B, TB, C, TC, D, TD, E, TE] {
	var ta TA
	var tb TB
	var tc TC
	var td TD
	var te TE
	terms := []term{ta.termOf(), tb.termOf(), tc.termOf(), td.termOf(), te.termOf()}
	checkAliasing(terms)
	return &Query5[A, TA, B, TB, C, TC, D, TD, E, TE]{w: w, terms: terms, filters: filters}
}

// Each calls fn for every matching entity with pointers to its A, B, C, D,
// and E slots.
func (q *Query5[A, TA, B, TB, C, TC, D, TD, E, TE]) Each(fn func(e Entity, a *A, b *B, c *C, d *D, e2 *E) bool) {
	for _, arch := range matchedArchetypes(q.w, q.terms, q.filters) {
		if arch.Len() == 0 {
			continue
		}
		borrowAll(arch, q.terms)
		ids := arch.EntityIDs()
		colA, _, okA := arch.column(q.terms[0].id)
		colB, _, okB := arch.column(q.terms[1].id)
		colC, _, okC := arch.column(q.terms[2].id)
		colD, _, okD := arch.column(q.terms[3].id)
		colE, _, okE := arch.column(q.terms[4].id)
		cont := true
		for row := 0; row < arch.Len() && cont; row++ {
			e := NewEntity(ids[row], q.w.alloc.meta[ids[row]].generation)
			var a *A
			var b *B
			var c *C
			var d *D
			var ev *E
			if okA {
				a = getColumn[A](colA, row)
			}
			if okB {
				b = getColumn[B](colB, row)
			}
			if okC {
				c = getColumn[C](colC, row)
			}
			if okD {
				d = getColumn[D](colD, row)
			}
			if okE {
				ev = getColumn[E](colE, row)
			}
			cont = fn(e, a, b, c, d, ev)
		}
		releaseAll(arch, q.terms)
		if !cont {
			return
		}
	}
}

// Query6 iterates every entity matching six terms.
type Query6[A any, TA Term[A], B any, TB Term[B], C any, TC Term[C], D any, TD Term[D], E any, TE Term[E], F any, TF Term[F]] struct {
	w       *World
	terms   []term
	filters []Filter
}

// NewQuery6 prepares a six-component query.
func NewQuery6[A any, TA Term[A], B any, TB Term[B], C any, TC Term[C], D any, TD Term[D], E any, TE Term[E], F any, TF Term[F]](w *World, filters ...Filter) *Query6[A, TA, B, TB, C, TC, D, TD, E, TE, F, TF] {
	var ta TA
	var tb TB
	var tc TC
	var td TD
	var te TE
	var tf TF
	terms := []term{ta.termOf(), tb.termOf(), tc.termOf(), td.termOf(), te.termOf(), tf.termOf()}
	checkAliasing(terms)
	return &Query6[A, TA, B, TB, C, TC, D, TD, E, TE, F, TF]{w: w, terms: terms, filters: filters}
}

// Each calls fn for every matching entity with pointers to its A, B, C, D,
// E, and F slots.
func (q *Query6[A, TA, B, TB, C, TC, D, TD, E, TE, F, TF]) Each(fn func(e Entity, a *A, b *B, c *C, d *D, e2 *E, f *F) bool) {
	for _, arch := range matchedArchetypes(q.w, q.terms, q.filters) {
		if arch.Len() == 0 {
			continue
		}
		borrowAll(arch, q.terms)
		ids := arch.EntityIDs()
		colA, _, okA := arch.column(q.terms[0].id)
		colB, _, okB := arch.column(q.terms[1].id)
		colC, _, okC := arch.column(q.terms[2].id)
		colD, _, okD := arch.column(q.terms[3].id)
		colE, _, okE := arch.column(q.terms[4].id)
		colF, _, okF := arch.column(q.terms[5].id)
		cont := true
		for row := 0; row < arch.Len() && cont; row++ {
			e := NewEntity(ids[row], q.w.alloc.meta[ids[row]].generation)
			var a *A
			var b *B
			var c *C
			var d *D
			var ev *E
			var f *F
			if okA {
				a = getColumn[A](colA, row)
			}
			if okB {
				b = getColumn[B](colB, row)
			}
			if okC {
				c = getColumn[C](colC, row)
			}
			if okD {
				d = getColumn[D](colD, row)
			}
			if okE {
				ev = getColumn[E](colE, row)
			}
			if okF {
				f = getColumn[F](colF, row)
			}
			cont = fn(e, a, b, c, d, ev, f)
		}
		releaseAll(arch, q.terms)
		if !cont {
			return
		}
	}
}

// QueryOne1 looks up a single entity's component directly, without scanning
// every archetype (spec §4.6's "query over a single known entity").
func QueryOne1[A any](w *World, e Entity) (*Ref[A], error) {
	return GetShared[A](w, e)
}
