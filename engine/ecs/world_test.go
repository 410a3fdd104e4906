package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tint struct{ rgba [4]float32 }

func TestSpawnNeverReusesIDs(t *testing.T) {
	w := NewWorld()
	a := w.Spawn()
	w.Despawn(a)
	b := w.Spawn()

	assert.NotEqual(t, InvalidEntity, a)
	assert.NotEqual(t, a, b)
	assert.False(t, w.Alive(a))
	assert.True(t, w.Alive(b))
	assert.Equal(t, 1, w.Len())
}

func TestRegisterReturnsSameStorage(t *testing.T) {
	w := NewWorld()
	assert.Same(t, Register[tint](w), Register[tint](w))
}

func TestInsertRequiresLiveEntity(t *testing.T) {
	w := NewWorld()
	e := w.Spawn()

	assert.True(t, Insert(w, e, tint{rgba: [4]float32{1, 0, 0, 1}}))
	assert.False(t, Insert(w, Entity(999), tint{}))

	got, ok := Register[tint](w).Get(e)
	require.True(t, ok)
	assert.Equal(t, float32(1), got.rgba[0])
}

func TestDespawnStripsComponents(t *testing.T) {
	w := NewWorld()
	e := w.Spawn()
	other := w.Spawn()
	Insert(w, e, tint{})
	Insert(w, other, tint{})
	Insert(w, e, "label")

	w.Despawn(e)

	_, ok := Register[tint](w).Get(e)
	assert.False(t, ok)
	_, ok = Register[string](w).Get(e)
	assert.False(t, ok)
	assert.Equal(t, 1, Register[tint](w).Len())

	// despawning twice is harmless
	w.Despawn(e)
}

func TestAllIteratesInEntityOrder(t *testing.T) {
	w := NewWorld()
	var spawned []Entity
	for range 5 {
		e := w.Spawn()
		spawned = append(spawned, e)
	}
	store := Register[int](w)
	for i := len(spawned) - 1; i >= 0; i-- {
		store.Insert(spawned[i], i)
	}

	var seen []Entity
	for e, v := range store.All() {
		seen = append(seen, e)
		assert.Equal(t, int(e-spawned[0]), v)
	}
	assert.Equal(t, spawned, seen)
}
