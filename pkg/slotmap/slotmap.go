// Package slotmap provides a generational-handle container.
//
// A SlotMap stores values in a dense slice and hands out Handles made of a
// slot index and a generation counter. Removing a value bumps the slot's
// generation and recycles the index, so a Handle obtained before the removal
// never resolves to whatever value later reuses the slot.
package slotmap

import "fmt"

// Handle identifies a value stored in a SlotMap.
// Two handles are equal iff both Index and Generation match.
type Handle struct {
	Index      uint32
	Generation uint32
}

// String renders the handle for debugging.
func (h Handle) String() string {
	return fmt.Sprintf("Handle(%d:%d)", h.Index, h.Generation)
}

// SlotMap is a generic generational-handle container.
// It is not safe for concurrent use.
type SlotMap[T any] struct {
	values      []T
	generations []uint32
	alive       []bool
	free        []uint32
	live        int
}

// New creates an empty SlotMap.
func New[T any]() *SlotMap[T] {
	return &SlotMap[T]{}
}

// NewWithCapacity creates an empty SlotMap with room for n slots.
func NewWithCapacity[T any](n int) *SlotMap[T] {
	return &SlotMap[T]{
		values:      make([]T, 0, n),
		generations: make([]uint32, 0, n),
		alive:       make([]bool, 0, n),
	}
}

// Insert stores value and returns its handle.
// A recycled slot keeps the generation it was given on removal.
func (m *SlotMap[T]) Insert(value T) Handle {
	m.live++

	if n := len(m.free); n > 0 {
		index := m.free[n-1]
		m.free = m.free[:n-1]
		m.values[index] = value
		m.alive[index] = true
		return Handle{Index: index, Generation: m.generations[index]}
	}

	index := uint32(len(m.values))
	m.values = append(m.values, value)
	m.generations = append(m.generations, 0)
	m.alive = append(m.alive, true)
	return Handle{Index: index, Generation: 0}
}

// Remove frees the slot referenced by h.
// Stale or out-of-range handles are ignored; it reports whether a value was removed.
func (m *SlotMap[T]) Remove(h Handle) bool {
	if !m.valid(h) {
		return false
	}

	var zero T
	m.values[h.Index] = zero
	m.generations[h.Index]++
	m.alive[h.Index] = false
	m.free = append(m.free, h.Index)
	m.live--
	return true
}

// Get returns a pointer to the value referenced by h.
// The pointer is valid until the next Insert.
func (m *SlotMap[T]) Get(h Handle) (*T, bool) {
	if !m.valid(h) {
		return nil, false
	}
	return &m.values[h.Index], true
}

// Value returns a copy of the value referenced by h.
func (m *SlotMap[T]) Value(h Handle) (T, bool) {
	if !m.valid(h) {
		var zero T
		return zero, false
	}
	return m.values[h.Index], true
}

// Contains reports whether h references a live value.
func (m *SlotMap[T]) Contains(h Handle) bool {
	return m.valid(h)
}

// Len returns the number of live values.
func (m *SlotMap[T]) Len() int {
	return m.live
}

// Slots returns the number of allocated slots, live or free.
func (m *SlotMap[T]) Slots() int {
	return len(m.values)
}

// FreeSlots returns the number of slots waiting to be reused.
func (m *SlotMap[T]) FreeSlots() int {
	return len(m.free)
}

// Each calls fn for every live value in ascending slot order.
// Iteration stops early when fn returns false. fn must not insert or remove.
func (m *SlotMap[T]) Each(fn func(h Handle, value *T) bool) {
	for i := range m.values {
		if !m.alive[i] {
			continue
		}
		h := Handle{Index: uint32(i), Generation: m.generations[i]}
		if !fn(h, &m.values[i]) {
			return
		}
	}
}

// Handles returns the handles of all live values in ascending slot order.
func (m *SlotMap[T]) Handles() []Handle {
	out := make([]Handle, 0, m.live)
	for i, ok := range m.alive {
		if ok {
			out = append(out, Handle{Index: uint32(i), Generation: m.generations[i]})
		}
	}
	return out
}

func (m *SlotMap[T]) valid(h Handle) bool {
	if int(h.Index) >= len(m.values) {
		return false
	}
	return m.alive[h.Index] && m.generations[h.Index] == h.Generation
}
