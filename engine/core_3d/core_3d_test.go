package core_3d_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-postpass/engine/core_3d"
	"github.com/Carmen-Shannon/oxy-postpass/engine/render_graph"
	"github.com/Carmen-Shannon/oxy-postpass/engine/render_graph/graphtest"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDevice struct{}

func (fakeDevice) CreateBindGroupLayout(*wgpu.BindGroupLayoutDescriptor) (*wgpu.BindGroupLayout, error) {
	return &wgpu.BindGroupLayout{}, nil
}

func (fakeDevice) CreateSampler(*wgpu.SamplerDescriptor) (*wgpu.Sampler, error) {
	return &wgpu.Sampler{}, nil
}

func (fakeDevice) CreateBuffer(*wgpu.BufferDescriptor) (*wgpu.Buffer, error) {
	return &wgpu.Buffer{}, nil
}

func (fakeDevice) WriteBuffer(*wgpu.Buffer, uint64, []byte) error { return nil }

func (fakeDevice) ReleaseBuffer(*wgpu.Buffer) {}

type fakeCompiler struct{}

func (fakeCompiler) CompileRenderPipeline(*pipeline.RenderPipelineDescriptor) (*wgpu.RenderPipeline, error) {
	return &wgpu.RenderPipeline{}, nil
}

func (fakeCompiler) ReleaseRenderPipeline(*wgpu.RenderPipeline) {}

type countingItem struct {
	draws int
}

func (c *countingItem) Draw(pass render_graph.TrackedRenderPass, _ *render_graph.View) {
	c.draws++
	pass.DrawIndexed(render_graph.Range{Start: 0, End: 36}, render_graph.Range{Start: 0, End: 1}, 0)
}

func newView(clear render_graph.ClearColorConfig) (*render_graph.View, *wgpu.TextureView) {
	a := &wgpu.TextureView{}
	return &render_graph.View{
		ClearColor: clear,
		Target:     render_graph.NewViewTarget(a, &wgpu.TextureView{}, &wgpu.TextureView{}, core_3d.MainTextureFormat, 4, 4),
		Output:     &wgpu.TextureView{},
	}, a
}

func TestNewGraphChainsStages(t *testing.T) {
	g, err := core_3d.NewGraph(core_3d.MainPassNode{}, render_graph.EmptyNode{})
	require.NoError(t, err)
	order, err := g.Order()
	require.NoError(t, err)
	assert.Equal(t, core_3d.Stages, order)
	for i := 0; i+1 < len(core_3d.Stages); i++ {
		assert.True(t, g.HasEdge(core_3d.Stages[i], core_3d.Stages[i+1]))
	}
}

func TestMainPassClearsOnFirstWrite(t *testing.T) {
	view, a := newView(render_graph.ClearColorCustom(1, 1, 1, 1))
	item := &countingItem{}
	view.Items = []render_graph.PhaseItem{item}
	g, err := core_3d.NewGraph(core_3d.MainPassNode{}, render_graph.EmptyNode{})
	require.NoError(t, err)

	rec := &graphtest.Recorder{}
	view.Target.BeginFrame()
	require.NoError(t, g.Run(view, rec))

	require.Len(t, rec.Passes, 1)
	att := rec.Passes[0].Descriptor.ColorAttachments[0]
	assert.Same(t, a, att.View)
	assert.Equal(t, wgpu.LoadOpClear, att.LoadOp)
	assert.Equal(t, wgpu.Color{R: 1, G: 1, B: 1, A: 1}, att.ClearValue)
	require.NotNil(t, rec.Passes[0].Descriptor.DepthStencilAttachment)
	assert.Equal(t, 1, item.draws)
	assert.True(t, rec.Passes[0].Ended)
}

func TestMainPassLoadsAfterEarlierClear(t *testing.T) {
	view, a := newView(render_graph.ClearColorCustom(1, 1, 1, 1))
	view.Target.BeginFrame()

	// an earlier pass of the same frame cleared the target and then post-processed it
	att, ok := view.Target.PendingClear(view.ClearColor)
	require.True(t, ok)
	require.Same(t, a, att.View)
	w := view.Target.PostProcessWrite()

	rec := &graphtest.Recorder{}
	g := render_graph.NewGraph()
	require.NoError(t, g.AddNode(core_3d.MainOpaquePass, core_3d.MainPassNode{}))
	require.NoError(t, g.Run(view, rec))

	att = rec.Passes[0].Descriptor.ColorAttachments[0]
	assert.Equal(t, wgpu.LoadOpLoad, att.LoadOp)
	assert.Same(t, w.Destination, att.View)
}

func TestMainPassWithoutClear(t *testing.T) {
	view, _ := newView(render_graph.ClearColorNone())
	view.Target.BeginFrame()
	rec := &graphtest.Recorder{}
	g := render_graph.NewGraph()
	require.NoError(t, g.AddNode(core_3d.MainOpaquePass, core_3d.MainPassNode{}))
	require.NoError(t, g.Run(view, rec))
	assert.Equal(t, wgpu.LoadOpLoad, rec.Passes[0].Descriptor.ColorAttachments[0].LoadOp)
}

func TestUpscalingBlitsMainTextureToOutput(t *testing.T) {
	cache := pipeline.NewCache(fakeCompiler{}, 1)
	t.Cleanup(cache.Release)
	node, err := core_3d.NewUpscalingNode(fakeDevice{}, cache, wgpu.TextureFormatBGRA8UnormSrgb)
	require.NoError(t, err)

	view, a := newView(render_graph.ClearColorDefault())
	g, err := core_3d.NewGraph(render_graph.EmptyNode{}, node)
	require.NoError(t, err)

	rec := &graphtest.Recorder{}
	require.NoError(t, g.Run(view, rec))
	assert.Empty(t, rec.Passes, "skipped until the blit pipeline is ready")

	cache.Wait()
	cache.ProcessQueue()
	state, err := cache.State(node.PipelineID())
	require.NoError(t, err)
	require.Equal(t, pipeline.StateReady, state)

	require.NoError(t, g.Run(view, rec))
	require.Len(t, rec.Passes, 1)
	assert.Same(t, view.Output, rec.Passes[0].Descriptor.ColorAttachments[0].View)
	require.Len(t, rec.BindGroups, 1)
	assert.Same(t, a, rec.BindGroups[0].Entries[0].TextureView)
	assert.Equal(t, []graphtest.DrawCall{{
		Vertices:  render_graph.Range{Start: 0, End: 3},
		Instances: render_graph.Range{Start: 0, End: 1},
	}}, rec.Draws())
}
