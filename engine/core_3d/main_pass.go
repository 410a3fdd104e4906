package core_3d

import (
	"github.com/Carmen-Shannon/oxy-postpass/engine/render_graph"
	"github.com/cogentcore/webgpu/wgpu"
)

// MainPassNode draws a view's phase items into its main texture with depth.
type MainPassNode struct{}

var _ render_graph.Node = MainPassNode{}

// Run begins the main pass and draws every item of the view in order. The pass clears with
// the camera's clear color only if nothing wrote the target earlier this frame; otherwise it
// loads the existing contents.
func (MainPassNode) Run(ctx *render_graph.Context, rc render_graph.RenderContext) error {
	view := ctx.View()
	if view == nil || view.Target == nil {
		return nil
	}

	pass := rc.BeginTrackedRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments:       []wgpu.RenderPassColorAttachment{view.Target.MainColorAttachment(view.ClearColor)},
		DepthStencilAttachment: view.Target.DepthAttachment(),
	})
	for _, item := range view.Items {
		item.Draw(pass, view)
	}
	pass.End()
	return nil
}
