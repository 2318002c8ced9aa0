package silo

// Clone deep-copies w into a new, independent World: every entity, every
// archetype's row layout, and every component value (via its registered
// Clone function) is duplicated. Zero-sized types need no Clone function
// since they carry no state. Any other present type without one fails the
// clone entirely rather than silently aliasing its storage (spec L2).
func (w *World) Clone() (*World, error) {
	present := make(map[TypeID]TypeInfo)
	for _, a := range w.archetypes {
		for _, t := range a.schema.types {
			info, _ := typeInfoByID(t.ID) // current registration, including later RegisterClone calls
			present[t.ID] = info
		}
	}
	for id, t := range present {
		if t.Size != 0 && t.clone == nil {
			return nil, TypeUnknownError{ID: id}
		}
	}

	dst := NewWorld()
	dst.hooks = w.hooks

	w.alloc.mu.Lock()
	dst.alloc.meta = append([]entityMeta(nil), w.alloc.meta...)
	dst.alloc.freeList = append([]uint32(nil), w.alloc.freeList...)
	dst.alloc.nextSlot.Store(uint32(len(w.alloc.meta)))
	w.alloc.mu.Unlock()

	empty, srcEmpty := dst.archetypes[0], w.archetypes[0]
	empty.growTo(srcEmpty.capacity)
	empty.len = srcEmpty.len
	copy(empty.entities, srcEmpty.entities[:srcEmpty.len])

	for i := 1; i < len(w.archetypes); i++ {
		src := w.archetypes[i]
		arch := newArchetype(archetypeID(i), src.schema)
		arch.growTo(src.capacity)
		arch.len = src.len
		copy(arch.entities, src.entities[:src.len])
		for ci, t := range src.schema.types {
			if t.Size == 0 {
				continue
			}
			for row := 0; row < src.len; row++ {
				present[t.ID].CloneInto(arch.columns[ci].at(row), src.columns[ci].at(row))
			}
		}
		dst.archetypes = append(dst.archetypes, arch)
		dst.schemaIndex[src.schema.key()] = arch.id
	}
	return dst, nil
}
