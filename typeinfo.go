package silo

import (
	"hash/fnv"
	"reflect"
	"sync"
	"unsafe"
)

// TypeID is the process-stable identity of a registered component type.
// It is assigned on first registration, in registration order, starting
// at zero.
type TypeID uint32

// TypeInfo carries the per-component-type metadata spec.md requires: a
// stable identity, size, alignment, and a type-erased destructor. Ordering
// is primary by Align descending, secondary by ID ascending (spec §4.1);
// this defines canonical schema order and thereby column layout order.
// Equality is by ID alone.
type TypeInfo struct {
	ID      TypeID
	Name    string
	Size    uintptr
	Align   uintptr
	Trivial bool // true if the type holds no pointers worth zeroing on drop

	drop  func(unsafe.Pointer)
	clone func(dst, src unsafe.Pointer)
}

// Less implements the canonical schema ordering (I4).
func (t TypeInfo) Less(other TypeInfo) bool {
	if t.Align != other.Align {
		return t.Align > other.Align
	}
	return t.ID < other.ID
}

// Drop runs the type's destructor at ptr. A no-op for trivially
// destructible types (spec §4.1).
func (t TypeInfo) Drop(ptr unsafe.Pointer) {
	if t.drop != nil {
		t.drop(ptr)
	}
}

// CloneInto copies the value at src into dst using the type's registered
// Clone function. Returns false if no Clone function was registered.
func (t TypeInfo) CloneInto(dst, src unsafe.Pointer) bool {
	if t.clone == nil {
		return false
	}
	t.clone(dst, src)
	return true
}

// StableToken derives a 128-bit-shaped identity from the type's Name (the
// reflect string form: package name plus type name, not the full import
// path). The core does not prescribe how this token is computed
// (spec §6); this is one reasonable derivation for host-language bridges
// that need a wider-than-uint32 identity without adopting this module's
// internal TypeID numbering.
func (t TypeInfo) StableToken() [16]byte {
	h := fnv.New128a()
	_, _ = h.Write([]byte(t.Name))
	var out [16]byte
	copy(out[:], h.Sum(nil))
	return out
}

type registry struct {
	mu      sync.RWMutex
	byType  map[reflect.Type]TypeID
	infos   []TypeInfo
	clones  map[reflect.Type]func(dst, src unsafe.Pointer)
}

var globalRegistry = &registry{
	byType: make(map[reflect.Type]TypeID),
	clones: make(map[reflect.Type]func(dst, src unsafe.Pointer)),
}

const maxRegisteredTypes = 256

// ComponentID registers T if necessary and returns its stable TypeID.
func ComponentID[T any]() TypeID {
	return typeInfoOf[T]().ID
}

// typeInfoOf returns the registered TypeInfo for T, registering it on
// first use.
func typeInfoOf[T any]() TypeInfo {
	var zero T
	rt := reflect.TypeOf(zero)

	globalRegistry.mu.RLock()
	if id, ok := globalRegistry.byType[rt]; ok {
		info := globalRegistry.infos[id]
		globalRegistry.mu.RUnlock()
		return info
	}
	globalRegistry.mu.RUnlock()

	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	if id, ok := globalRegistry.byType[rt]; ok {
		return globalRegistry.infos[id]
	}
	if len(globalRegistry.infos) >= maxRegisteredTypes {
		fatalf("cannot register component %s: maximum of %d component types exceeded", rt, maxRegisteredTypes)
	}

	id := TypeID(len(globalRegistry.infos))
	size := rt.Size()
	align := uintptr(rt.Align())
	info := TypeInfo{
		ID:      id,
		Name:    rt.String(),
		Size:    size,
		Align:   align,
		Trivial: !containsPointer(rt),
	}
	if !info.Trivial {
		info.drop = func(ptr unsafe.Pointer) {
			*(*T)(ptr) = zero
		}
	}
	globalRegistry.byType[rt] = id
	globalRegistry.infos = append(globalRegistry.infos, info)
	return info
}

// RegisterClone attaches a Clone function to T's TypeInfo, required for
// World.Clone (spec L2). Safe to call multiple times; the last call wins.
func RegisterClone[T any](clone func(dst *T, src *T)) {
	info := typeInfoOf[T]()
	rt := reflect.TypeOf(*new(T))
	fn := func(dst, src unsafe.Pointer) {
		clone((*T)(dst), (*T)(src))
	}
	globalRegistry.mu.Lock()
	info.clone = fn
	globalRegistry.infos[info.ID] = info
	globalRegistry.clones[rt] = fn
	globalRegistry.mu.Unlock()
}

// typeInfoByID looks up a previously registered type by id.
func typeInfoByID(id TypeID) (TypeInfo, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	if int(id) >= len(globalRegistry.infos) {
		return TypeInfo{}, false
	}
	return globalRegistry.infos[id], true
}

// containsPointer reports whether t's value could hold a pointer the
// garbage collector cares about, so Drop knows whether zeroing a slot is
// worth doing.
func containsPointer(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map,
		reflect.Chan, reflect.Func, reflect.String, reflect.UnsafePointer:
		return true
	case reflect.Array:
		return containsPointer(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if containsPointer(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
