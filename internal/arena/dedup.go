package arena

// DedupArena is an Arena that additionally interns values: inserting a value
// equal to one already present returns the existing Index instead of
// allocating a new slot. wazir uses this for the module's function-type
// table, so two (param i32 i32) (result i32) signatures anywhere in a module
// (or across modules sharing a Store) collapse to one TypeInstance, making
// call_indirect's signature check a cheap Index comparison.
type DedupArena[T comparable] struct {
	arena   Arena[T]
	indices map[T]Index
}

// NewDedup creates an empty DedupArena.
func NewDedup[T comparable]() *DedupArena[T] {
	return &DedupArena[T]{indices: make(map[T]Index)}
}

// Insert returns the Index of an existing equal item, or inserts item and
// returns its freshly allocated Index.
func (d *DedupArena[T]) Insert(item T) (Index, error) {
	if idx, ok := d.indices[item]; ok {
		return idx, nil
	}
	idx, err := d.arena.Insert(item)
	if err != nil {
		return 0, err
	}
	d.indices[item] = idx
	return idx, nil
}

// Get returns the item at idx, or ErrOutOfBoundsKey if idx was never issued.
func (d *DedupArena[T]) Get(idx Index) (*T, error) { return d.arena.Get(idx) }

// Len returns the number of distinct items interned.
func (d *DedupArena[T]) Len() int { return d.arena.Len() }
