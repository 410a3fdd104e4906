// Package extract copies per-view components from the simulation world into render-side
// snapshots once per frame and packs them into GPU uniform buffers.
package extract

import (
	"iter"
	"maps"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-postpass/engine/ecs"
)

// ComponentExtractor mirrors the T components of the active views into a snapshot that the
// render side reads while the simulation keeps mutating the world.
type ComponentExtractor[T any] struct {
	mu     sync.RWMutex
	source *ecs.Components[T]
	items  map[ecs.Entity]T
}

// NewComponentExtractor registers T on w and returns an extractor for it.
//
// Parameters:
//   - w: the simulation world to extract from
//
// Returns:
//   - *ComponentExtractor[T]: the extractor
func NewComponentExtractor[T any](w *ecs.World) *ComponentExtractor[T] {
	return &ComponentExtractor[T]{
		source: ecs.Register[T](w),
		items:  make(map[ecs.Entity]T),
	}
}

// Extract replaces the snapshot with the T of every entity in views that has one.
// Entities missing from views, or no longer alive, drop out of the snapshot.
//
// Parameters:
//   - views: the entities of the views active this frame
func (x *ComponentExtractor[T]) Extract(views []ecs.Entity) {
	next := make(map[ecs.Entity]T, len(views))
	for _, e := range views {
		if v, ok := x.source.Get(e); ok {
			next[e] = v
		}
	}

	x.mu.Lock()
	x.items = next
	x.mu.Unlock()
}

// Get returns the extracted value for e.
func (x *ComponentExtractor[T]) Get(e ecs.Entity) (T, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	v, ok := x.items[e]
	return v, ok
}

// Len returns the number of extracted values.
func (x *ComponentExtractor[T]) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.items)
}

// All iterates the snapshot in ascending entity order.
func (x *ComponentExtractor[T]) All() iter.Seq2[ecs.Entity, T] {
	x.mu.RLock()
	snapshot := maps.Clone(x.items)
	x.mu.RUnlock()

	return func(yield func(ecs.Entity, T) bool) {
		for _, e := range slices.Sorted(maps.Keys(snapshot)) {
			if !yield(e, snapshot[e]) {
				return
			}
		}
	}
}
