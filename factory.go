package silo

// Factory is the teacher's preferred entry point for constructing the
// library's core values: a package-level zero-sized value whose methods
// wrap the plain constructors, so call sites read silo.Factory.NewWorld()
// rather than silo.NewWorld() — grounded on warehouse/factory.go's Factory
// package value wrapping NewWorld/NewCursor.
var Factory factory

type factory struct{}

// NewWorld constructs an empty World.
func (factory) NewWorld() *World {
	return NewWorld()
}

// NewColumnBatch constructs a ColumnBatch of n rows across the given types.
func (factory) NewColumnBatch(n int, types ...TypeInfo) *ColumnBatch {
	return NewColumnBatch(n, types...)
}

// NewCache constructs an empty Cache with room for capacityHint items.
func (factory) NewCache(capacityHint int) *Cache[string, any] {
	return NewCache[string, any](capacityHint)
}

// NewComponent registers T as a component type (if not already registered)
// and returns its TypeInfo, for collaborators that want a type's metadata
// without separately calling ComponentID and typeInfoByID.
func NewComponent[T any]() TypeInfo {
	return typeInfoOf[T]()
}
