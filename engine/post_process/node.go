package post_process

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-postpass/common"
	"github.com/Carmen-Shannon/oxy-postpass/engine/ecs"
	"github.com/Carmen-Shannon/oxy-postpass/engine/extract"
	"github.com/Carmen-Shannon/oxy-postpass/engine/render_graph"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineSource reports whether a queued pipeline has finished compiling.
type PipelineSource interface {
	RenderPipeline(id pipeline.CachedPipelineID) (*wgpu.RenderPipeline, bool)
}

// SettingsSource locates a view's settings in the uniform buffer.
type SettingsSource interface {
	Binding(e ecs.Entity) (extract.UniformBinding, bool)
}

// Node runs the post-process pass for one view: it reads the view's main texture, writes
// the shaded result to the other main texture and makes that the main texture.
type Node struct {
	pipeline  *Pipeline
	pipelines PipelineSource
	settings  SettingsSource
}

var _ render_graph.Node = (*Node)(nil)

// NewNode creates the node.
//
// Parameters:
//   - p: the pipeline state created by NewPipeline
//   - pipelines: the cache the pipeline was queued on
//   - settings: the per-view settings uniforms
//
// Returns:
//   - *Node: the node
func NewNode(p *Pipeline, pipelines PipelineSource, settings SettingsSource) *Node {
	return &Node{pipeline: p, pipelines: pipelines, settings: settings}
}

// Run draws the pass for ctx's view. Views are skipped, without error, while the pipeline
// is still compiling or when the view has no settings this frame. When the node is the first
// writer of the frame and the camera clears, the main texture is cleared before it is sampled.
func (n *Node) Run(ctx *render_graph.Context, rc render_graph.RenderContext) error {
	view := ctx.View()
	if view == nil || view.Target == nil {
		return nil
	}

	rp, ok := n.pipelines.RenderPipeline(n.pipeline.ID)
	if !ok {
		common.Logger().Debug("post process skipped: pipeline not ready", slog.Uint64("view", uint64(view.Entity)))
		return nil
	}
	binding, ok := n.settings.Binding(view.Entity)
	if !ok {
		return nil
	}

	// A camera whose pass runs first this frame still owes its clear; do it before sampling.
	if att, ok := view.Target.PendingClear(view.ClearColor); ok {
		rc.BeginTrackedRenderPass(&wgpu.RenderPassDescriptor{
			ColorAttachments: []wgpu.RenderPassColorAttachment{att},
		}).End()
	}

	// The bind group reads the current main texture, which PostProcessWrite hands out as
	// Source. Building it first keeps the target unflipped if creation fails.
	bindGroup, err := rc.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "post_process_bind_group",
		Layout: n.pipeline.Layout,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding:     0,
				TextureView: view.Target.MainTexture(),
			},
			{
				Binding: 1,
				Sampler: n.pipeline.Sampler,
			},
			{
				Binding: 2,
				Buffer:  binding.Buffer,
				Offset:  binding.Offset,
				Size:    binding.Size,
			},
		},
	})
	if err != nil {
		return err
	}

	write := view.Target.PostProcessWrite()
	pass := rc.BeginTrackedRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    write.Destination,
				LoadOp:  wgpu.LoadOpLoad,
				StoreOp: wgpu.StoreOpStore,
			},
		},
	})
	pass.SetRenderPipeline(rp)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Draw(render_graph.Range{Start: 0, End: 3}, render_graph.Range{Start: 0, End: 1})
	pass.End()
	return nil
}
