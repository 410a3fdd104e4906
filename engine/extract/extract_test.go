package extract_test

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-postpass/engine/ecs"
	"github.com/Carmen-Shannon/oxy-postpass/engine/extract"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tint struct {
	value float32
}

func (t tint) Size() int { return 16 }

func (t tint) Marshal() []byte {
	out := make([]byte, 16)
	for i := range 4 {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(t.value))
	}
	return out
}

type empty struct{}

func (empty) Size() int       { return 0 }
func (empty) Marshal() []byte { return nil }

type fakeGPU struct {
	created  []*wgpu.BufferDescriptor
	released int
	writes   [][]byte
	writeErr error
}

func (g *fakeGPU) CreateBuffer(desc *wgpu.BufferDescriptor) (*wgpu.Buffer, error) {
	g.created = append(g.created, desc)
	return &wgpu.Buffer{}, nil
}

func (g *fakeGPU) WriteBuffer(_ *wgpu.Buffer, _ uint64, data []byte) error {
	if g.writeErr != nil {
		return g.writeErr
	}
	g.writes = append(g.writes, append([]byte(nil), data...))
	return nil
}

func (g *fakeGPU) ReleaseBuffer(*wgpu.Buffer) {
	g.released++
}

func TestExtractCopiesOnlyActiveViews(t *testing.T) {
	w := ecs.NewWorld()
	x := extract.NewComponentExtractor[tint](w)
	a, b := w.Spawn(), w.Spawn()
	ecs.Insert(w, a, tint{1})
	ecs.Insert(w, b, tint{2})

	x.Extract([]ecs.Entity{b})
	_, ok := x.Get(a)
	assert.False(t, ok)
	v, ok := x.Get(b)
	require.True(t, ok)
	assert.Equal(t, tint{2}, v)
	assert.Equal(t, 1, x.Len())
}

func TestExtractIsASnapshot(t *testing.T) {
	w := ecs.NewWorld()
	x := extract.NewComponentExtractor[tint](w)
	e := w.Spawn()
	ecs.Insert(w, e, tint{1})
	x.Extract([]ecs.Entity{e})

	ecs.Insert(w, e, tint{5})
	v, _ := x.Get(e)
	assert.Equal(t, tint{1}, v)
}

func TestUniformSlotsAreAligned(t *testing.T) {
	w := ecs.NewWorld()
	x := extract.NewComponentExtractor[tint](w)
	u := extract.NewComponentUniforms("tint", x)
	var views []ecs.Entity
	for i := range 3 {
		e := w.Spawn()
		ecs.Insert(w, e, tint{float32(i)})
		views = append(views, e)
	}

	_, ok := u.Binding(views[0])
	assert.False(t, ok, "no binding before the first upload")

	x.Extract(views)
	gpu := &fakeGPU{}
	require.NoError(t, u.Prepare(gpu))

	require.Len(t, gpu.created, 1)
	assert.EqualValues(t, 3*extract.UniformAlignment, gpu.created[0].Size)
	assert.Equal(t, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst, gpu.created[0].Usage)

	for i, e := range views {
		b, ok := u.Binding(e)
		require.True(t, ok)
		assert.EqualValues(t, i*extract.UniformAlignment, b.Offset)
		assert.EqualValues(t, 16, b.Size)
		assert.Zero(t, b.Offset%extract.UniformAlignment)
		assert.Same(t, u.Buffer(), b.Buffer)
	}

	require.Len(t, gpu.writes, 1)
	data := gpu.writes[0]
	assert.Equal(t, math.Float32bits(2), binary.LittleEndian.Uint32(data[2*extract.UniformAlignment:]))
}

func TestDespawnedEntityLosesBindingNextFrame(t *testing.T) {
	w := ecs.NewWorld()
	x := extract.NewComponentExtractor[tint](w)
	u := extract.NewComponentUniforms("tint", x)
	e := w.Spawn()
	ecs.Insert(w, e, tint{1})
	gpu := &fakeGPU{}

	x.Extract([]ecs.Entity{e})
	require.NoError(t, u.Prepare(gpu))
	_, ok := u.Binding(e)
	require.True(t, ok)

	w.Despawn(e)
	x.Extract([]ecs.Entity{e})
	require.NoError(t, u.Prepare(gpu))
	_, ok = u.Binding(e)
	assert.False(t, ok)
}

func TestBufferGrowsAndReleasesOld(t *testing.T) {
	w := ecs.NewWorld()
	x := extract.NewComponentExtractor[tint](w)
	u := extract.NewComponentUniforms("tint", x)
	gpu := &fakeGPU{}

	a := w.Spawn()
	ecs.Insert(w, a, tint{1})
	x.Extract([]ecs.Entity{a})
	require.NoError(t, u.Prepare(gpu))

	b := w.Spawn()
	ecs.Insert(w, b, tint{2})
	x.Extract([]ecs.Entity{a, b})
	require.NoError(t, u.Prepare(gpu))

	assert.Len(t, gpu.created, 2)
	assert.Equal(t, 1, gpu.released)
	assert.EqualValues(t, 2*extract.UniformAlignment, gpu.created[1].Size)

	// shrinking keeps the larger buffer
	x.Extract([]ecs.Entity{b})
	require.NoError(t, u.Prepare(gpu))
	assert.Len(t, gpu.created, 2)
	binding, ok := u.Binding(b)
	require.True(t, ok)
	assert.Zero(t, binding.Offset)

	u.Release(gpu)
	assert.Equal(t, 2, gpu.released)
	_, ok = u.Binding(b)
	assert.False(t, ok)
}

func TestFailedWriteLeavesNoBindings(t *testing.T) {
	w := ecs.NewWorld()
	x := extract.NewComponentExtractor[tint](w)
	u := extract.NewComponentUniforms("tint", x)
	e := w.Spawn()
	ecs.Insert(w, e, tint{1})
	x.Extract([]ecs.Entity{e})

	boom := errors.New("queue lost")
	err := u.Prepare(&fakeGPU{writeErr: boom})
	assert.ErrorIs(t, err, boom)
	_, ok := u.Binding(e)
	assert.False(t, ok)
}

func TestZeroSizedUniformIsRejected(t *testing.T) {
	w := ecs.NewWorld()
	x := extract.NewComponentExtractor[empty](w)
	u := extract.NewComponentUniforms("empty", x)
	e := w.Spawn()
	ecs.Insert(w, e, empty{})
	x.Extract([]ecs.Entity{e})
	assert.ErrorIs(t, u.Prepare(&fakeGPU{}), extract.ErrEmptyUniform)
}

func TestScheduleRunsExtractThenPrepare(t *testing.T) {
	w := ecs.NewWorld()
	x := extract.NewComponentExtractor[tint](w)
	u := extract.NewComponentUniforms("tint", x)
	e := w.Spawn()
	ecs.Insert(w, e, tint{3})

	var s extract.Schedule
	s.AddExtractor(x)
	s.AddPreparer(u)
	require.NoError(t, s.Run([]ecs.Entity{e}, &fakeGPU{}))

	_, ok := u.Binding(e)
	assert.True(t, ok)
}
