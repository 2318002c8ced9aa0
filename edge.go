package silo

// edgeSet caches, per archetype, the result of adding or removing a single
// component type — spec §4.5's optional-but-recommended edge graph, which
// keeps hot single-component structural mutations from hashing a schema's
// full type-id list every time. Grounded on delaneyj-arche's
// archetypeNode.toAdd/toRemove (an array indexed by component id); a map is
// used here since TypeID space can exceed a small fixed array without
// wasting memory on archetypes with few transitions.
type edgeSet struct {
	insert map[TypeID]archetypeID
	remove map[TypeID]archetypeID
}

func (e *edgeSet) getInsert(id TypeID) (archetypeID, bool) {
	if e.insert == nil {
		return 0, false
	}
	a, ok := e.insert[id]
	return a, ok
}

func (e *edgeSet) setInsert(id TypeID, target archetypeID) {
	if e.insert == nil {
		e.insert = make(map[TypeID]archetypeID)
	}
	e.insert[id] = target
}

func (e *edgeSet) getRemove(id TypeID) (archetypeID, bool) {
	if e.remove == nil {
		return 0, false
	}
	a, ok := e.remove[id]
	return a, ok
}

func (e *edgeSet) setRemove(id TypeID, target archetypeID) {
	if e.remove == nil {
		e.remove = make(map[TypeID]archetypeID)
	}
	e.remove[id] = target
}
