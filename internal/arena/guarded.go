package arena

// Guarded pairs an entity Index with a guard value, following wasmi's
// GuardedEntity (crates/collections/src/guarded.rs). In wazir the guard is
// always a Store's engine id: every handle an embedder holds is stamped with
// the id of the engine that issued it, so a handle from one engine can never
// be used to dereference an arena belonging to another.
//
// Guarded is Copy-semantic and carries no behavior beyond the guard check;
// all entity state lives in the arena it indexes.
type Guarded[Guard comparable] struct {
	guard Guard
	index Index
}

// NewGuarded pairs idx with guard.
func NewGuarded[Guard comparable](guard Guard, idx Index) Guarded[Guard] {
	return Guarded[Guard]{guard: guard, index: idx}
}

// Index returns the wrapped Index if guard equals the Guarded's own guard.
// A mismatch returns (0, false): never a panic, never a memory-safety
// violation, just an absent lookup.
func (g Guarded[Guard]) Index(guard Guard) (Index, bool) {
	if g.guard != guard {
		return 0, false
	}
	return g.index, true
}

// IsZero reports whether g was never assigned (the zero Guarded value).
func (g Guarded[Guard]) IsZero() bool { return g.index == 0 }
