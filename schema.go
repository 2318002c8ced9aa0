package silo

import (
	"encoding/binary"
	"sort"
)

// Schema is the sorted, deduplicated set of component types characterizing
// an archetype (spec §3). Types are stored in canonical order (TypeInfo.Less:
// alignment descending, type id ascending) so that the storage layout order
// is deterministic and, for naturally-packed buffers, padding-free.
type Schema struct {
	types []TypeInfo
	m     mask256
}

// NewSchema builds a Schema from a set of types, rejecting duplicates as a
// fatal usage error (spec §4.5: "duplicate types are rejected as a fatal
// usage error").
func NewSchema(types ...TypeInfo) Schema {
	seen := make(map[TypeID]struct{}, len(types))
	for _, t := range types {
		if _, dup := seen[t.ID]; dup {
			fatalf("duplicate component type %s in bundle", t.Name)
		}
		seen[t.ID] = struct{}{}
	}
	sorted := append([]TypeInfo(nil), types...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })
	var m mask256
	for _, t := range sorted {
		m.mark(t.ID)
	}
	return Schema{types: sorted, m: m}
}

// Types returns the schema's component types in canonical storage order.
func (s Schema) Types() []TypeInfo {
	return s.types
}

// Len returns the number of component types in the schema.
func (s Schema) Len() int {
	return len(s.types)
}

// Has reports whether id is present in the schema.
func (s Schema) Has(id TypeID) bool {
	return s.m.has(id)
}

// HasAll reports whether every id in ids is present in the schema.
func (s Schema) HasAll(ids ...TypeID) bool {
	return s.m.containsAll(maskOf(ids...))
}

// HasNone reports whether no id in ids is present in the schema.
func (s Schema) HasNone(ids ...TypeID) bool {
	return s.m.containsNone(maskOf(ids...))
}

// key returns the hashable, order-independent identity used by the
// schema index (map from sorted type-id list to archetype index, spec
// §4.5). It is independent of canonical storage order so two schemas
// built from the same type set in any order collide to the same key.
func (s Schema) key() string {
	ids := make([]uint32, len(s.types))
	for i, t := range s.types {
		ids[i] = uint32(t.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	buf := make([]byte, 4*len(ids))
	for i, id := range ids {
		binary.LittleEndian.PutUint32(buf[i*4:], id)
	}
	return string(buf)
}

// union returns the schema containing every type in s plus every type in
// extra not already present, rejecting duplicates within extra itself.
func (s Schema) union(extra []TypeInfo) Schema {
	combined := append([]TypeInfo(nil), s.types...)
	for _, t := range extra {
		if !s.Has(t.ID) {
			combined = append(combined, t)
		}
	}
	return NewSchema(combined...)
}

// without returns the schema containing every type in s except those whose
// id is in ids.
func (s Schema) without(ids ...TypeID) Schema {
	excl := maskOf(ids...)
	var kept []TypeInfo
	for _, t := range s.types {
		if !excl.has(t.ID) {
			kept = append(kept, t)
		}
	}
	return NewSchema(kept...)
}
