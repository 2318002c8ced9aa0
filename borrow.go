package silo

// borrowState implements the per-(archetype, component-type) dynamic lock
// described in spec §4.3: a shared count plus an exclusive flag. Violations
// are fatal usage errors (spec §5, §7) rather than recoverable conditions,
// matching hecs's borrow.rs (original_source), which aborts rather than
// deadlocks because Go, like Rust's atomics here, has no native
// dynamic-aliasing primitive to build on.
type borrowState struct {
	shared    int32
	exclusive bool
}

func (b *borrowState) borrow(name string) {
	if b.exclusive {
		fatalf("borrow conflict: shared borrow of %s requested while an exclusive borrow is held", name)
	}
	b.shared++
}

func (b *borrowState) release(name string) {
	if b.shared == 0 {
		fatalf("borrow conflict: releasing a shared borrow of %s that was never taken", name)
	}
	b.shared--
}

func (b *borrowState) borrowMut(name string) {
	if b.exclusive {
		fatalf("borrow conflict: exclusive borrow of %s requested while another exclusive borrow is held", name)
	}
	if b.shared > 0 {
		fatalf("borrow conflict: exclusive borrow of %s requested while a shared borrow is held", name)
	}
	b.exclusive = true
}

func (b *borrowState) releaseMut(name string) {
	if !b.exclusive {
		fatalf("borrow conflict: releasing an exclusive borrow of %s that was never taken", name)
	}
	b.exclusive = false
}
