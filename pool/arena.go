// Package pool provides slot arenas with dead-slot reuse for transient entities.
package pool

// Arena stores values in slots that are reused after being killed. Slot
// indices stay valid for the life of the arena; growth only happens when no
// dead slot is available.
type Arena[T any] struct {
	items []T
	alive []bool
	free  []int // stack of dead slots
	live  int
}

// NewArena creates an arena with room for capacity slots before growing.
func NewArena[T any](capacity int) *Arena[T] {
	return &Arena[T]{
		items: make([]T, 0, capacity),
		alive: make([]bool, 0, capacity),
	}
}

// Spawn stores v in a dead slot if one exists, else appends, and returns the slot.
func (a *Arena[T]) Spawn(v T) int {
	a.live++
	if n := len(a.free); n > 0 {
		slot := a.free[n-1]
		a.free = a.free[:n-1]
		a.items[slot] = v
		a.alive[slot] = true
		return slot
	}
	a.items = append(a.items, v)
	a.alive = append(a.alive, true)
	return len(a.items) - 1
}

// Kill marks slot dead and pushes it for reuse. Killing a dead slot is a no-op.
func (a *Arena[T]) Kill(slot int) {
	if !a.alive[slot] {
		return
	}
	a.alive[slot] = false
	a.free = append(a.free, slot)
	a.live--
}

// Alive reports whether slot holds a live value.
func (a *Arena[T]) Alive(slot int) bool {
	return slot >= 0 && slot < len(a.alive) && a.alive[slot]
}

// At returns a pointer to the value in slot, live or dead.
func (a *Arena[T]) At(slot int) *T {
	return &a.items[slot]
}

// Len returns the number of slots, live and dead.
func (a *Arena[T]) Len() int { return len(a.items) }

// Count returns the number of live values.
func (a *Arena[T]) Count() int { return a.live }

// Each calls fn for every live slot in slot order. fn may Kill the slot it is given.
func (a *Arena[T]) Each(fn func(slot int, v *T)) {
	for i := range a.items {
		if a.alive[i] {
			fn(i, &a.items[i])
		}
	}
}

// AppendLive appends copies of all live values to dst.
func (a *Arena[T]) AppendLive(dst []T) []T {
	for i := range a.items {
		if a.alive[i] {
			dst = append(dst, a.items[i])
		}
	}
	return dst
}

// Restore replaces the arena contents with items and their liveness flags,
// rebuilding the free stack from the dead slots.
func (a *Arena[T]) Restore(items []T, alive []bool) {
	a.items = append(a.items[:0], items...)
	a.alive = append(a.alive[:0], alive...)
	a.free = a.free[:0]
	a.live = 0
	for i := len(a.alive) - 1; i >= 0; i-- {
		if a.alive[i] {
			a.live++
		} else {
			a.free = append(a.free, i)
		}
	}
}

// Reset kills every slot without shrinking storage.
func (a *Arena[T]) Reset() {
	a.free = a.free[:0]
	for i := len(a.alive) - 1; i >= 0; i-- {
		a.alive[i] = false
		a.free = append(a.free, i)
	}
	a.live = 0
}
