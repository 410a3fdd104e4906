package render_graph_test

import (
	"testing"

	rg "github.com/Carmen-Shannon/oxy-postpass/engine/render_graph"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func newTarget() (*rg.ViewTarget, *wgpu.TextureView, *wgpu.TextureView) {
	a, b := &wgpu.TextureView{}, &wgpu.TextureView{}
	return rg.NewViewTarget(a, b, nil, wgpu.TextureFormatRGBA8UnormSrgb, 64, 32), a, b
}

func TestPostProcessWriteAlternates(t *testing.T) {
	target, a, b := newTarget()
	assert.Same(t, a, target.MainTexture())

	w := target.PostProcessWrite()
	assert.Same(t, a, w.Source)
	assert.Same(t, b, w.Destination)
	assert.Same(t, b, target.MainTexture())

	w = target.PostProcessWrite()
	assert.Same(t, b, w.Source)
	assert.Same(t, a, w.Destination)
	assert.Same(t, a, target.MainTexture())
}

func TestMainColorAttachmentClearsOnFirstWrite(t *testing.T) {
	target, a, _ := newTarget()
	clear := rg.ClearColorCustom(1, 1, 1, 1)

	att := target.MainColorAttachment(clear)
	assert.Same(t, a, att.View)
	assert.Equal(t, wgpu.LoadOpClear, att.LoadOp)
	assert.Equal(t, wgpu.StoreOpStore, att.StoreOp)
	assert.Equal(t, wgpu.Color{R: 1, G: 1, B: 1, A: 1}, att.ClearValue)

	att = target.MainColorAttachment(clear)
	assert.Equal(t, wgpu.LoadOpLoad, att.LoadOp)

	target.BeginFrame()
	assert.False(t, target.Written())
	att = target.MainColorAttachment(clear)
	assert.Equal(t, wgpu.LoadOpClear, att.LoadOp)
}

func TestMainColorAttachmentLoadsAfterPostProcess(t *testing.T) {
	target, _, b := newTarget()
	target.PostProcessWrite()
	assert.True(t, target.Written())

	att := target.MainColorAttachment(rg.ClearColorDefault())
	assert.Same(t, b, att.View)
	assert.Equal(t, wgpu.LoadOpLoad, att.LoadOp)
}

func TestPendingClearRunsOncePerFrame(t *testing.T) {
	target, a, b := newTarget()
	white := rg.ClearColorCustom(1, 1, 1, 1)

	att, ok := target.PendingClear(white)
	assert.True(t, ok)
	assert.Same(t, a, att.View)
	assert.Equal(t, wgpu.LoadOpClear, att.LoadOp)
	assert.Equal(t, wgpu.Color{R: 1, G: 1, B: 1, A: 1}, att.ClearValue)
	assert.True(t, target.Written())

	_, ok = target.PendingClear(white)
	assert.False(t, ok, "already cleared this frame")
	assert.Equal(t, wgpu.LoadOpLoad, target.MainColorAttachment(white).LoadOp)

	target.PostProcessWrite()
	target.BeginFrame()
	att, ok = target.PendingClear(white)
	assert.True(t, ok)
	assert.Same(t, b, att.View, "the next frame clears whichever texture is main")
}

func TestPendingClearWithoutClearColor(t *testing.T) {
	target, _, _ := newTarget()

	_, ok := target.PendingClear(rg.ClearColorNone())
	assert.False(t, ok)
	assert.False(t, target.Written())
}

func TestClearColorNoneNeverClears(t *testing.T) {
	target, _, _ := newTarget()
	att := target.MainColorAttachment(rg.ClearColorNone())
	assert.Equal(t, wgpu.LoadOpLoad, att.LoadOp)
}

func TestClearColorDefaultValue(t *testing.T) {
	c, ok := rg.ClearColorDefault().Value()
	assert.True(t, ok)
	assert.Equal(t, rg.DefaultClearColor, c)
}

func TestDepthAttachment(t *testing.T) {
	target, _, _ := newTarget()
	assert.Nil(t, target.DepthAttachment())

	depth := &wgpu.TextureView{}
	target = rg.NewViewTarget(&wgpu.TextureView{}, &wgpu.TextureView{}, depth, wgpu.TextureFormatRGBA8UnormSrgb, 1, 1)
	att := target.DepthAttachment()
	if assert.NotNil(t, att) {
		assert.Same(t, depth, att.View)
		assert.Equal(t, wgpu.LoadOpClear, att.DepthLoadOp)
	}
}
