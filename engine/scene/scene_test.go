package scene_test

import (
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-postpass/engine/app"
	"github.com/Carmen-Shannon/oxy-postpass/engine/camera"
	"github.com/Carmen-Shannon/oxy-postpass/engine/core_3d"
	"github.com/Carmen-Shannon/oxy-postpass/engine/ecs"
	"github.com/Carmen-Shannon/oxy-postpass/engine/extract"
	"github.com/Carmen-Shannon/oxy-postpass/engine/game_object"
	"github.com/Carmen-Shannon/oxy-postpass/engine/model"
	"github.com/Carmen-Shannon/oxy-postpass/engine/render_graph"
	"github.com/Carmen-Shannon/oxy-postpass/engine/render_graph/graphtest"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-postpass/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	layouts int
}

func (d *fakeDevice) CreateBindGroupLayout(*wgpu.BindGroupLayoutDescriptor) (*wgpu.BindGroupLayout, error) {
	d.layouts++
	return &wgpu.BindGroupLayout{}, nil
}

func (d *fakeDevice) CreateSampler(*wgpu.SamplerDescriptor) (*wgpu.Sampler, error) {
	return &wgpu.Sampler{}, nil
}

func (d *fakeDevice) CreateBuffer(*wgpu.BufferDescriptor) (*wgpu.Buffer, error) {
	return &wgpu.Buffer{}, nil
}

func (d *fakeDevice) WriteBuffer(*wgpu.Buffer, uint64, []byte) error { return nil }

func (d *fakeDevice) ReleaseBuffer(*wgpu.Buffer) {}

type fakeCompiler struct {
	mu    sync.Mutex
	descs []*pipeline.RenderPipelineDescriptor
}

func (c *fakeCompiler) CompileRenderPipeline(desc *pipeline.RenderPipelineDescriptor) (*wgpu.RenderPipeline, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.descs = append(c.descs, desc)
	return &wgpu.RenderPipeline{}, nil
}

func (c *fakeCompiler) ReleaseRenderPipeline(*wgpu.RenderPipeline) {}

// fakeResources hands out placeholder GPU objects and records uniform writes.
type fakeResources struct {
	meshInits  int
	groupInits int
	writes     []bind_group_provider.BufferWrite
}

func (r *fakeResources) InitMeshBuffers(p bind_group_provider.BindGroupProvider, _, _ []byte, indexCount int) error {
	r.meshInits++
	p.SetVertexBuffer(&wgpu.Buffer{})
	p.SetIndexBuffer(&wgpu.Buffer{})
	p.SetIndexCount(indexCount)
	return nil
}

func (r *fakeResources) InitBindGroup(p bind_group_provider.BindGroupProvider, _ wgpu.BindGroupLayoutDescriptor, _ map[int]uint64) error {
	r.groupInits++
	p.SetBuffer(0, &wgpu.Buffer{})
	p.SetBindGroup(&wgpu.BindGroup{})
	return nil
}

func (r *fakeResources) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	r.writes = append(r.writes, writes...)
}

func newMeshPlugin(t *testing.T) (*scene.Plugin, *pipeline.Cache) {
	t.Helper()
	cache := pipeline.NewCache(&fakeCompiler{}, 1)
	t.Cleanup(cache.Release)
	a := &app.RenderApp{
		World:             ecs.NewWorld(),
		Graph:             render_graph.NewGraph(),
		Schedule:          &extract.Schedule{},
		Pipelines:         cache,
		Device:            &fakeDevice{},
		MainTextureFormat: core_3d.MainTextureFormat,
	}
	p := scene.NewPlugin("")
	require.NoError(t, a.Build(p))
	return p, cache
}

func cubeObject(mdl model.Model) game_object.GameObject {
	return game_object.NewGameObject(
		game_object.WithModel(mdl),
		game_object.WithColor([4]float32{0, 1, 0, 1}),
	)
}

func TestPluginQueuesValidMeshPipeline(t *testing.T) {
	p, cache := newMeshPlugin(t)

	cache.Wait()
	cache.ProcessQueue()

	state, err := cache.State(p.Pipeline().ID)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StateReady, state)
	assert.ErrorIs(t, p.Build(nil), app.ErrAlreadyBuilt)
}

func TestAddAssignsIDs(t *testing.T) {
	p, _ := newMeshPlugin(t)
	s := scene.NewScene("main", camera.NewCamera(), p.Pipeline())
	mdl := model.NewModel(model.WithMesh(model.Cube(3)))

	first := s.Add(cubeObject(mdl))
	second := s.Add(cubeObject(mdl))

	assert.Equal(t, uint64(1), first)
	assert.Equal(t, uint64(2), second)
	assert.Equal(t, 2, s.Count())
	assert.NotNil(t, s.Get(first).Uniforms())

	s.Remove(first)
	assert.Nil(t, s.Get(first))
	assert.Equal(t, 1, s.Count())
}

func TestAddWithoutModelPanics(t *testing.T) {
	p, _ := newMeshPlugin(t)
	s := scene.NewScene("main", camera.NewCamera(), p.Pipeline())

	assert.Panics(t, func() { s.Add(game_object.NewGameObject()) })
}

func TestPrepareUploadsSharedMeshOnce(t *testing.T) {
	p, _ := newMeshPlugin(t)
	s := scene.NewScene("main", camera.NewCamera(), p.Pipeline())
	mdl := model.NewModel(model.WithMesh(model.Cube(3)))
	s.Add(cubeObject(mdl))
	s.Add(cubeObject(mdl))
	res := &fakeResources{}

	require.NoError(t, s.Prepare(res))
	require.NoError(t, s.Prepare(res))

	assert.Equal(t, 1, res.meshInits)
	// camera plus two objects, created once
	assert.Equal(t, 3, res.groupInits)
	// camera plus two objects, written every frame
	assert.Len(t, res.writes, 6)
	assert.Len(t, res.writes[0].Data, 80)
}

func TestViewCarriesCameraAndReadyItems(t *testing.T) {
	p, _ := newMeshPlugin(t)
	cam := camera.NewCamera(camera.WithOrder(2), camera.WithClearColor(render_graph.ClearColorNone()))
	s := scene.NewScene("main", cam, p.Pipeline())
	s.SetEntity(ecs.Entity(7))
	mdl := model.NewModel(model.WithMesh(model.Cube(3)))
	s.Add(cubeObject(mdl))

	before := s.View()
	assert.Empty(t, before.Items)

	require.NoError(t, s.Prepare(&fakeResources{}))
	view := s.View()

	assert.Equal(t, ecs.Entity(7), view.Entity)
	assert.Equal(t, 2, view.Order)
	assert.Equal(t, render_graph.ClearColorNone(), view.ClearColor)
	assert.Len(t, view.Items, 1)
}

func TestDisabledObjectsAreNotDrawn(t *testing.T) {
	p, _ := newMeshPlugin(t)
	s := scene.NewScene("main", camera.NewCamera(), p.Pipeline())
	obj := cubeObject(model.NewModel(model.WithMesh(model.Cube(1))))
	obj.SetEnabled(false)
	s.Add(obj)

	require.NoError(t, s.Prepare(&fakeResources{}))

	assert.Empty(t, s.View().Items)
}

func TestItemsDrawOnceThePipelineIsReady(t *testing.T) {
	p, cache := newMeshPlugin(t)
	s := scene.NewScene("main", camera.NewCamera(), p.Pipeline())
	s.Add(cubeObject(model.NewModel(model.WithMesh(model.Cube(3)))))
	require.NoError(t, s.Prepare(&fakeResources{}))
	view := s.View()
	view.Target = render_graph.NewViewTarget(&wgpu.TextureView{}, &wgpu.TextureView{}, nil, core_3d.MainTextureFormat, 4, 4)

	g, err := core_3d.NewGraph(core_3d.MainPassNode{}, render_graph.EmptyNode{})
	require.NoError(t, err)

	rec := &graphtest.Recorder{}
	require.NoError(t, g.Run(view, rec))
	assert.Empty(t, rec.Draws())

	cache.Wait()
	cache.ProcessQueue()
	rec.Reset()
	require.NoError(t, g.Run(view, rec))

	draws := rec.Draws()
	require.Len(t, draws, 1)
	assert.True(t, draws[0].Indexed)
	assert.Equal(t, render_graph.Range{End: 36}, draws[0].Vertices)
	assert.Equal(t, render_graph.Range{End: 1}, draws[0].Instances)
}

func TestObjectsOutsideTheFrustumAreCulled(t *testing.T) {
	p, _ := newMeshPlugin(t)
	cc := camera.NewCameraController(camera.WithTarget(0, 0, 0), camera.WithPosition(0, 0, 10))
	s := scene.NewScene("main", camera.NewCamera(camera.WithController(cc)), p.Pipeline())
	mdl := model.NewModel(model.WithMesh(model.Cube(1)))

	inside := cubeObject(mdl)
	outside := cubeObject(mdl)
	outside.SetPosition(50, 0, 0)
	behind := cubeObject(mdl)
	behind.SetPosition(0, 0, 20)
	s.Add(inside)
	s.Add(outside)
	s.Add(behind)

	require.NoError(t, s.Prepare(&fakeResources{}))

	assert.Len(t, s.View().Items, 1)

	// Scaling grows the bounding sphere back into view.
	outside.SetPosition(6, 0, 0)
	outside.SetScale(4, 1, 1)
	assert.Len(t, s.View().Items, 2)
}
