// Package ecs provides the minimal entity/component storage shared between the
// simulation side (tick goroutine) and the render side (extraction each frame).
package ecs

import (
	"reflect"
	"sync"
)

// Entity identifies a spawned object in a World. Ids are never reused, so a
// stale Entity held after Despawn can never alias a newer one.
type Entity uint64

// InvalidEntity is the zero Entity. Spawn never returns it.
const InvalidEntity Entity = 0

// storage is implemented by every Components[T] registered on a World so the
// world can strip despawned entities without knowing T.
type storage interface {
	remove(e Entity)
}

// World owns the set of live entities and the typed component storages attached to them.
// Safe for concurrent use.
type World struct {
	mu       sync.RWMutex
	next     Entity
	alive    map[Entity]struct{}
	storages map[reflect.Type]storage
}

// NewWorld creates an empty World.
//
// Returns:
//   - *World: the new world
func NewWorld() *World {
	return &World{
		next:     1,
		alive:    make(map[Entity]struct{}),
		storages: make(map[reflect.Type]storage),
	}
}

// Spawn allocates a new live entity.
//
// Returns:
//   - Entity: the new entity id
func (w *World) Spawn() Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	e := w.next
	w.next++
	w.alive[e] = struct{}{}
	return e
}

// Despawn removes the entity and every component attached to it.
// Despawning an unknown or already despawned entity is a no-op.
//
// Parameters:
//   - e: the entity to remove
func (w *World) Despawn(e Entity) {
	w.mu.Lock()
	if _, ok := w.alive[e]; !ok {
		w.mu.Unlock()
		return
	}
	delete(w.alive, e)
	stores := make([]storage, 0, len(w.storages))
	for _, s := range w.storages {
		stores = append(stores, s)
	}
	w.mu.Unlock()

	for _, s := range stores {
		s.remove(e)
	}
}

// Alive reports whether the entity is currently spawned.
//
// Parameters:
//   - e: the entity to check
//
// Returns:
//   - bool: true if e has been spawned and not despawned
func (w *World) Alive(e Entity) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.alive[e]
	return ok
}

// Len returns the number of live entities.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.alive)
}
