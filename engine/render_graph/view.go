package render_graph

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-postpass/engine/ecs"
	"github.com/cogentcore/webgpu/wgpu"
)

// ClearColorMode selects how a camera's first write of the frame treats the existing target contents.
type ClearColorMode int

const (
	// ClearColorModeDefault clears with the renderer's default clear color.
	ClearColorModeDefault ClearColorMode = iota

	// ClearColorModeCustom clears with the camera's own color.
	ClearColorModeCustom

	// ClearColorModeNone keeps whatever earlier cameras left in the target.
	ClearColorModeNone
)

// DefaultClearColor is used by cameras configured with ClearColorModeDefault.
var DefaultClearColor = wgpu.Color{R: 0.1, G: 0.1, B: 0.1, A: 1.0}

// ClearColorConfig is a camera's clear behaviour.
type ClearColorConfig struct {
	Mode  ClearColorMode
	Color wgpu.Color
}

// ClearColorDefault clears with DefaultClearColor.
func ClearColorDefault() ClearColorConfig {
	return ClearColorConfig{Mode: ClearColorModeDefault}
}

// ClearColorCustom clears with the given RGBA color.
func ClearColorCustom(r, g, b, a float64) ClearColorConfig {
	return ClearColorConfig{Mode: ClearColorModeCustom, Color: wgpu.Color{R: r, G: g, B: b, A: a}}
}

// ClearColorNone never clears.
func ClearColorNone() ClearColorConfig {
	return ClearColorConfig{Mode: ClearColorModeNone}
}

// Value returns the color to clear with and whether the config clears at all.
func (c ClearColorConfig) Value() (wgpu.Color, bool) {
	switch c.Mode {
	case ClearColorModeCustom:
		return c.Color, true
	case ClearColorModeNone:
		return wgpu.Color{}, false
	default:
		return DefaultClearColor, true
	}
}

// PhaseItem is something drawn during the main pass of a view.
type PhaseItem interface {
	// Draw records the item's commands into pass.
	//
	// Parameters:
	//   - pass: the main pass of the view
	//   - view: the view being rendered
	Draw(pass TrackedRenderPass, view *View)
}

// View is the render-side snapshot of one camera for the current frame.
type View struct {
	// Entity is the camera's entity in the simulation world.
	Entity ecs.Entity

	// Order sorts views within a frame, lowest first.
	Order int

	// ClearColor decides whether the view's first write clears the target.
	ClearColor ClearColorConfig

	// Target holds the alternating main textures the view renders into.
	Target *ViewTarget

	// Output is the texture view the upscaling stage writes the final image to.
	Output *wgpu.TextureView

	// OutputFormat is the texture format of Output.
	OutputFormat wgpu.TextureFormat

	// Items are drawn in the main pass, in order.
	Items []PhaseItem
}

// PostProcessWrite is the source/destination pair handed to a post-process pass.
// The pass must read only from Source and write only to Destination.
type PostProcessWrite struct {
	Source      *wgpu.TextureView
	Destination *wgpu.TextureView
}

// ViewTarget owns the pair of alternating main color textures (and the depth texture)
// of one render target. Views rendering to the same window share one ViewTarget.
type ViewTarget struct {
	mu sync.Mutex

	main    [2]*wgpu.TextureView
	depth   *wgpu.TextureView
	format  wgpu.TextureFormat
	width   uint32
	height  uint32
	current int

	// written is set once anything wrote the main texture since the last BeginFrame.
	written bool
}

// NewViewTarget creates a ViewTarget from two equally sized color views and a depth view.
// Texture a is the initial main texture.
//
// Parameters:
//   - a, b: the alternating color texture views
//   - depth: the depth texture view used by the main pass (may be nil)
//   - format: the color format shared by a and b
//   - width, height: the size of the textures in pixels
//
// Returns:
//   - *ViewTarget: the new view target
func NewViewTarget(a, b, depth *wgpu.TextureView, format wgpu.TextureFormat, width, height uint32) *ViewTarget {
	return &ViewTarget{
		main:   [2]*wgpu.TextureView{a, b},
		depth:  depth,
		format: format,
		width:  width,
		height: height,
	}
}

// MainTexture returns the texture view currently holding the view's image.
func (t *ViewTarget) MainTexture() *wgpu.TextureView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.main[t.current]
}

// DepthTexture returns the depth texture view, or nil.
func (t *ViewTarget) DepthTexture() *wgpu.TextureView {
	return t.depth
}

// Format returns the main texture format.
func (t *ViewTarget) Format() wgpu.TextureFormat {
	return t.format
}

// Size returns the main texture dimensions in pixels.
func (t *ViewTarget) Size() (width, height uint32) {
	return t.width, t.height
}

// PostProcessWrite returns the current main texture as Source and the other texture as
// Destination, then makes Destination the main texture for every later consumer.
// Calling it twice in a row therefore hands back the pair swapped.
//
// Returns:
//   - PostProcessWrite: the source/destination pair
func (t *ViewTarget) PostProcessWrite() PostProcessWrite {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := PostProcessWrite{
		Source:      t.main[t.current],
		Destination: t.main[1-t.current],
	}
	t.current = 1 - t.current
	t.written = true
	return w
}

// MainColorAttachment returns the main pass attachment, clearing only on the first write since BeginFrame.
//
// Parameters:
//   - clear: the clear configuration of the view
//
// Returns:
//   - wgpu.RenderPassColorAttachment: the attachment to begin the pass with
func (t *ViewTarget) MainColorAttachment(clear ClearColorConfig) wgpu.RenderPassColorAttachment {
	t.mu.Lock()
	defer t.mu.Unlock()

	att, ok := t.clearAttachmentLocked(clear)
	if !ok {
		att = wgpu.RenderPassColorAttachment{
			View:    t.main[t.current],
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}
	}
	t.written = true
	return att
}

// PendingClear returns a clear attachment for the main texture when nothing wrote the target
// since BeginFrame and clear asks for a clear. The target then counts as written.
// Passes that sample the main texture ahead of the main pass begin this clear first.
//
// Parameters:
//   - clear: the clear configuration of the view
//
// Returns:
//   - wgpu.RenderPassColorAttachment: a clearing attachment on the main texture
//   - bool: false when no clear is due; the target is left untouched
func (t *ViewTarget) PendingClear(clear ClearColorConfig) (wgpu.RenderPassColorAttachment, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	att, ok := t.clearAttachmentLocked(clear)
	if ok {
		t.written = true
	}
	return att, ok
}

func (t *ViewTarget) clearAttachmentLocked(clear ClearColorConfig) (wgpu.RenderPassColorAttachment, bool) {
	color, ok := clear.Value()
	if !ok || t.written {
		return wgpu.RenderPassColorAttachment{}, false
	}
	return wgpu.RenderPassColorAttachment{
		View:       t.main[t.current],
		LoadOp:     wgpu.LoadOpClear,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: color,
	}, true
}

// DepthAttachment returns the depth attachment for the main pass, or nil without a depth texture.
// Depth is cleared at the start of each view's main pass.
func (t *ViewTarget) DepthAttachment() *wgpu.RenderPassDepthStencilAttachment {
	if t.depth == nil {
		return nil
	}
	return &wgpu.RenderPassDepthStencilAttachment{
		View:            t.depth,
		DepthLoadOp:     wgpu.LoadOpClear,
		DepthStoreOp:    wgpu.StoreOpStore,
		DepthClearValue: 1.0,
	}
}

// BeginFrame marks the target as not yet written. The renderer calls it once per frame for
// each distinct target, before the first view rendering to it.
func (t *ViewTarget) BeginFrame() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.written = false
}

// Written reports whether anything wrote the main texture since the last BeginFrame.
func (t *ViewTarget) Written() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.written
}
