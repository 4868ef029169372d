// Package arena provides append-only, index-addressed storage for the
// store's runtime entities (functions, tables, memories, globals,
// instances), plus the guarded-handle type engine-scoped handles are built
// from.
//
// This is the Go-native re-architecture of wasmi's ownership model
// (crates/collections/src/arena, crates/collections/src/guarded.rs): where
// the Rust source leans on lifetimes to keep a function from outliving the
// instance it was defined in, arenas plus guarded handles break the same
// cycle at the type level. Entities live in a flat, append-only []T;
// everything else holds an Index, never a pointer.
package arena

import "fmt"

// Index is a lightweight, Copy-semantic key into an Arena. The zero Index is
// never issued by Insert, so a zero Index reliably means "absent" for
// callers that embed one in a larger struct.
type Index uint32

// Arena is append-only storage indexed by a monotonically assigned Index.
// It never removes or reorders elements, so a previously issued Index
// remains valid for the arena's lifetime.
type Arena[T any] struct {
	items []T
}

// New creates an empty Arena.
func New[T any]() *Arena[T] {
	return &Arena[T]{}
}

// Len returns the number of items ever inserted.
func (a *Arena[T]) Len() int { return len(a.items) }

// Insert appends item and returns the Index it was stored at.
//
// Insert fails with ErrNotEnoughKeys if the arena has already issued
// maxArenaLen (math.MaxUint32-1) indices; a single arena is not expected to approach this in
// practice (it would require billions of entities), but the spec requires
// the failure mode be named rather than left as undefined wraparound.
func (a *Arena[T]) Insert(item T) (Index, error) {
	if len(a.items) >= maxArenaLen {
		return 0, ErrNotEnoughKeys
	}
	idx := Index(len(a.items) + 1) // 1-based: 0 is reserved for "absent".
	a.items = append(a.items, item)
	return idx, nil
}

const maxArenaLen = 1<<32 - 2

// Get returns the item at idx, or ErrOutOfBoundsKey if idx was never issued
// by this arena.
func (a *Arena[T]) Get(idx Index) (*T, error) {
	i, err := a.toSlice(idx)
	if err != nil {
		return nil, err
	}
	return &a.items[i], nil
}

// GetPair returns mutable pointers to the items at two distinct indices.
// It fails with ErrAliasingPairAccess when idx1 == idx2, since Go cannot
// safely hand out two mutable references to the same slice element.
func (a *Arena[T]) GetPair(idx1, idx2 Index) (*T, *T, error) {
	if idx1 == idx2 {
		return nil, nil, ErrAliasingPairAccess
	}
	i1, err := a.toSlice(idx1)
	if err != nil {
		return nil, nil, err
	}
	i2, err := a.toSlice(idx2)
	if err != nil {
		return nil, nil, err
	}
	return &a.items[i1], &a.items[i2], nil
}

func (a *Arena[T]) toSlice(idx Index) (int, error) {
	if idx == 0 || int(idx) > len(a.items) {
		return 0, ErrOutOfBoundsKey
	}
	return int(idx) - 1, nil
}

// Error is the typed failure mode of an Arena or DedupArena operation; it
// never surfaces as a trap (see the error taxonomy in internal/wasmruntime).
type Error string

func (e Error) Error() string { return string(e) }

// The four arena failure modes named by the specification, mirroring
// wasmi's ArenaError (crates/collections/src/arena/error.rs).
const (
	ErrOutOfSystemMemory  Error = "arena: ran out of system memory"
	ErrOutOfBoundsKey     Error = "arena: encountered out-of-bounds key"
	ErrNotEnoughKeys      Error = "arena: ran out of valid keys"
	ErrAliasingPairAccess Error = "arena: tried to access an aliasing item pair"
)

// String implements fmt.Stringer, mainly to make Index readable in test
// failures and trap messages.
func (i Index) String() string { return fmt.Sprintf("#%d", uint32(i)) }
