package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-postpass/engine/render_graph"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTarget() *render_graph.ViewTarget {
	return render_graph.NewViewTarget(&wgpu.TextureView{}, &wgpu.TextureView{}, &wgpu.TextureView{}, wgpu.TextureFormatRGBA8UnormSrgb, 8, 8)
}

func TestPrepareViewsSortsByOrderStably(t *testing.T) {
	target := newTarget()
	a := &render_graph.View{Entity: 1, Order: 0}
	b := &render_graph.View{Entity: 2, Order: -1}
	c := &render_graph.View{Entity: 3, Order: 0}

	ordered := prepareViews([]*render_graph.View{a, b, c}, target, &wgpu.TextureView{}, wgpu.TextureFormatBGRA8Unorm)

	require.Len(t, ordered, 3)
	assert.Same(t, b, ordered[0])
	assert.Same(t, a, ordered[1])
	assert.Same(t, c, ordered[2])
}

func TestPrepareViewsPointsViewsAtTheFrame(t *testing.T) {
	target := newTarget()
	own := newTarget()
	output := &wgpu.TextureView{}
	shared := &render_graph.View{Entity: 1}
	custom := &render_graph.View{Entity: 2, Target: own}

	prepareViews([]*render_graph.View{shared, custom}, target, output, wgpu.TextureFormatBGRA8Unorm)

	assert.Same(t, target, shared.Target)
	assert.Same(t, own, custom.Target)
	for _, v := range []*render_graph.View{shared, custom} {
		assert.Same(t, output, v.Output)
		assert.Equal(t, wgpu.TextureFormatBGRA8Unorm, v.OutputFormat)
	}
}

func TestPrepareViewsResetsTargets(t *testing.T) {
	target := newTarget()
	target.PostProcessWrite()
	require.True(t, target.Written())

	prepareViews([]*render_graph.View{{Entity: 1}, {Entity: 2}}, target, &wgpu.TextureView{}, wgpu.TextureFormatBGRA8Unorm)

	assert.False(t, target.Written())
}

func TestPrepareViewsDropsViewsWithoutTarget(t *testing.T) {
	ordered := prepareViews([]*render_graph.View{{Entity: 1}}, nil, &wgpu.TextureView{}, wgpu.TextureFormatBGRA8Unorm)
	assert.Empty(t, ordered)
}

func TestDrawStateSkipsRedundantChanges(t *testing.T) {
	s := newDrawState()
	rp := &wgpu.RenderPipeline{}
	bg := &wgpu.BindGroup{}
	buf := &wgpu.Buffer{}

	assert.True(t, s.setPipeline(rp))
	assert.False(t, s.setPipeline(rp))
	assert.True(t, s.setPipeline(&wgpu.RenderPipeline{}))

	assert.True(t, s.setBindGroup(0, bg, nil))
	assert.False(t, s.setBindGroup(0, bg, nil))
	assert.True(t, s.setBindGroup(0, bg, []uint32{256}))
	assert.False(t, s.setBindGroup(0, bg, []uint32{256}))
	assert.True(t, s.setBindGroup(1, bg, []uint32{256}))

	assert.True(t, s.setVertexBuffer(0, buf))
	assert.False(t, s.setVertexBuffer(0, buf))
	assert.True(t, s.setVertexBuffer(1, buf))

	assert.True(t, s.setIndexBuffer(buf, wgpu.IndexFormatUint32))
	assert.False(t, s.setIndexBuffer(buf, wgpu.IndexFormatUint32))
	assert.True(t, s.setIndexBuffer(buf, wgpu.IndexFormatUint16))
}

func TestDrawStateCopiesOffsets(t *testing.T) {
	s := newDrawState()
	bg := &wgpu.BindGroup{}
	offsets := []uint32{0}

	require.True(t, s.setBindGroup(0, bg, offsets))
	offsets[0] = 256

	assert.True(t, s.setBindGroup(0, bg, offsets))
}
