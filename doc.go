/*
Package silo is an archetype-based Entity-Component-System data store.

Silo associates each entity, a lightweight generational handle, with a
heterogeneous set of components stored column-wise and grouped by archetype
(the exact set of component types an entity owns). Archetypes keep
same-shaped entities packed together so that queries walk contiguous memory
instead of chasing pointers.

Core Concepts:

  - Entity: a generational handle (slot id + generation) referring to at
    most one row in one archetype.
  - Component: any Go value type, stored by value inside an archetype's
    column for that type.
  - Archetype: a columnar storage block holding every entity that shares a
    specific, exact set of component types.
  - World: owns every archetype, the entity allocator, and the indices used
    to find or create archetypes during structural mutation.
  - Query: a compile-time-specialized traversal over every archetype whose
    schema is a superset of the query's required types.

Basic Usage:

	w := silo.NewWorld()

	type Position struct{ X, Y float64 }
	type Velocity struct{ X, Y float64 }

	silo.Spawn2(w, Position{X: 10, Y: 20}, Velocity{X: 1, Y: 2})

	q := silo.NewQuery2[Position, silo.Write[Position], Velocity, silo.Read[Velocity]](w)
	q.Each(func(e silo.Entity, pos *Position, vel *Velocity) bool {
		pos.X += vel.X
		pos.Y += vel.Y
		return true
	})

Silo has no external wire format, scheduler, or command buffer. Those are
collaborator concerns built on the operations this package exposes.
*/
package silo
