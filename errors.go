package silo

import (
	"fmt"

	"github.com/TheBitDrifter/bark"
)

// NoSuchEntityError reports a handle whose generation no longer matches its
// slot, or whose id was never allocated.
type NoSuchEntityError struct {
	Entity Entity
}

func (e NoSuchEntityError) Error() string {
	return fmt.Sprintf("no such entity: %v", e.Entity)
}

// MissingComponentError reports an operation that requires a component the
// entity does not have.
type MissingComponentError struct {
	Entity Entity
	Type   TypeInfo
}

func (e MissingComponentError) Error() string {
	return fmt.Sprintf("entity %v is missing component %s", e.Entity, e.Type.Name)
}

// BatchIncompleteError reports a ColumnBatch finalized before every column
// was filled to its declared length.
type BatchIncompleteError struct {
	Column int
	Type   TypeInfo
}

func (e BatchIncompleteError) Error() string {
	return fmt.Sprintf("column batch column %d (%s) was never filled", e.Column, e.Type.Name)
}

// TypeUnknownError reports a type present in an archetype that was not
// registered with the metadata table an operation relies on (clone,
// serialization).
type TypeUnknownError struct {
	ID TypeID
}

func (e TypeUnknownError) Error() string {
	return fmt.Sprintf("type id %d was not registered with the operation's metadata table", e.ID)
}

// fatalf aborts the current operation with a diagnostic naming the
// component type involved, matching the teacher's bark.AddTrace idiom for
// fatal usage errors (§7): borrow conflicts, duplicate bundle types, and
// internally conflicting queries are programming errors, not recoverable
// conditions.
func fatalf(format string, args ...any) {
	panic(bark.AddTrace(fmt.Errorf(format, args...)))
}
