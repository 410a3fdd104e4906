package ecs

import (
	"iter"
	"maps"
	"reflect"
	"slices"
	"sync"
)

// Components is the typed storage for one component type on a World.
// Obtain it with Register; a world holds at most one storage per type.
type Components[T any] struct {
	mu    sync.RWMutex
	world *World
	items map[Entity]T
}

// Register returns the storage for component type T on the world, creating it on first use.
//
// Parameters:
//   - w: the world owning the storage
//
// Returns:
//   - *Components[T]: the storage for T
func Register[T any](w *World) *Components[T] {
	key := reflect.TypeFor[T]()

	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.storages[key]; ok {
		return s.(*Components[T])
	}
	c := &Components[T]{
		world: w,
		items: make(map[Entity]T),
	}
	w.storages[key] = c
	return c
}

// Insert attaches value to entity e, registering the storage for T if needed.
// It returns false when e is not alive.
//
// Parameters:
//   - w: the world the entity belongs to
//   - e: the entity receiving the component
//   - value: the component value
//
// Returns:
//   - bool: true if the component was attached
func Insert[T any](w *World, e Entity, value T) bool {
	return Register[T](w).Insert(e, value)
}

// Insert attaches or replaces the component for entity e.
//
// Parameters:
//   - e: the entity receiving the component
//   - value: the component value
//
// Returns:
//   - bool: false when e is not alive in the owning world
func (c *Components[T]) Insert(e Entity, value T) bool {
	if !c.world.Alive(e) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[e] = value
	return true
}

// Get returns the component attached to e.
//
// Parameters:
//   - e: the entity to look up
//
// Returns:
//   - T: the component value, or the zero value
//   - bool: true if e carries the component
func (c *Components[T]) Get(e Entity) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[e]
	return v, ok
}

// Remove detaches the component from e. No-op if absent.
//
// Parameters:
//   - e: the entity to detach from
func (c *Components[T]) Remove(e Entity) {
	c.remove(e)
}

// Len returns the number of entities carrying the component.
func (c *Components[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// All iterates a snapshot of the storage in ascending entity order.
// The storage may be modified while iterating; changes are not observed.
//
// Returns:
//   - iter.Seq2[Entity, T]: entity/component pairs
func (c *Components[T]) All() iter.Seq2[Entity, T] {
	c.mu.RLock()
	snapshot := maps.Clone(c.items)
	c.mu.RUnlock()

	return func(yield func(Entity, T) bool) {
		for _, e := range slices.Sorted(maps.Keys(snapshot)) {
			if !yield(e, snapshot[e]) {
				return
			}
		}
	}
}

func (c *Components[T]) remove(e Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, e)
}
