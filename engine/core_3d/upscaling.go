package core_3d

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-postpass/engine/app"
	"github.com/Carmen-Shannon/oxy-postpass/engine/render_graph"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/blit.wgsl
var blitSource string

// BlitShaderKey is the key of the upscaling fragment shader.
const BlitShaderKey = "blit"

// UpscalingNode copies a view's main texture to its output texture with a full-screen draw.
type UpscalingNode struct {
	layout    *wgpu.BindGroupLayout
	sampler   *wgpu.Sampler
	id        pipeline.CachedPipelineID
	pipelines *pipeline.Cache
}

var _ render_graph.Node = (*UpscalingNode)(nil)

// NewUpscalingNode creates the blit layout and sampler and queues the blit pipeline.
//
// Parameters:
//   - device: the device creating the layout and sampler
//   - cache: the pipeline cache to queue on
//   - outputFormat: the format of the views' output textures
//
// Returns:
//   - *UpscalingNode: the node
//   - error: an error if GPU objects cannot be created
func NewUpscalingNode(device app.Device, cache *pipeline.Cache, outputFormat wgpu.TextureFormat) (*UpscalingNode, error) {
	layout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "blit_bind_group_layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("core_3d: create blit layout: %w", err)
	}
	sampler, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "blit_sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("core_3d: create blit sampler: %w", err)
	}

	fragment, err := shader.NewShader(BlitShaderKey,
		shader.WithSource(blitSource),
		shader.WithStructs(pipeline.FullscreenVertexOutput),
	)
	if err != nil {
		return nil, err
	}
	id := cache.QueueRenderPipeline(pipeline.NewRenderPipelineDescriptor("blit_pipeline",
		pipeline.WithBindGroupLayouts(layout),
		pipeline.WithVertexState(pipeline.FullscreenVertexState()),
		pipeline.WithFragmentShader(fragment, "fs_main", pipeline.ColorTarget(outputFormat)),
		pipeline.WithoutDepthStencil(),
	))

	return &UpscalingNode{
		layout:    layout,
		sampler:   sampler,
		id:        id,
		pipelines: cache,
	}, nil
}

// PipelineID returns the id of the queued blit pipeline.
func (n *UpscalingNode) PipelineID() pipeline.CachedPipelineID {
	return n.id
}

// Run draws the view's main texture over its whole output. Views without an output, or
// frames where the blit pipeline is still compiling, are skipped.
func (n *UpscalingNode) Run(ctx *render_graph.Context, rc render_graph.RenderContext) error {
	view := ctx.View()
	if view == nil || view.Target == nil || view.Output == nil {
		return nil
	}
	rp, ok := n.pipelines.RenderPipeline(n.id)
	if !ok {
		return nil
	}

	bindGroup, err := rc.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "blit_bind_group",
		Layout: n.layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: view.Target.MainTexture()},
			{Binding: 1, Sampler: n.sampler},
		},
	})
	if err != nil {
		return err
	}

	pass := rc.BeginTrackedRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       view.Output,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{A: 1},
			},
		},
	})
	pass.SetRenderPipeline(rp)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Draw(render_graph.Range{Start: 0, End: 3}, render_graph.Range{Start: 0, End: 1})
	pass.End()
	return nil
}
