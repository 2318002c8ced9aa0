package silo

// Hooks are optional callbacks invoked by the World as it creates and
// destroys storage. They generalize the teacher's table.TableEvents hook
// slot to this module's own archetype/entity lifecycle.
type Hooks struct {
	// OnArchetypeCreated fires once, right after a new archetype is
	// registered in the schema index.
	OnArchetypeCreated func(Schema)
	// OnEntityDespawned fires after an entity's row has been reclaimed.
	OnEntityDespawned func(Entity)
}

// Config holds global, process-wide tuning knobs for the storage layer.
var Config config = config{
	InitialArchetypeCapacity: 64,
	InitialAllocatorCapacity: 256,
}

type config struct {
	// InitialArchetypeCapacity is the row capacity an archetype grows to
	// on its first allocation (spec: "starting from e.g. 64").
	InitialArchetypeCapacity int
	// InitialAllocatorCapacity seeds the entity allocator's meta slice to
	// avoid repeated small reallocations during early spawns.
	InitialAllocatorCapacity int
	// Hooks are invoked by every World created after the value is set;
	// set once at startup, not per World.
	Hooks Hooks
}

// SetHooks configures the global lifecycle hooks used by new Worlds.
func (c *config) SetHooks(h Hooks) {
	c.Hooks = h
}
