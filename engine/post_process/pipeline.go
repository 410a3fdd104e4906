package post_process

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-postpass/engine/app"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/post_process.wgsl
var shaderSource string

// ShaderKey is the key of the post-process fragment shader.
const ShaderKey = "post_process"

// Pipeline is the post-process GPU state. It is created once, before the first frame,
// and only read afterwards.
type Pipeline struct {
	// Layout is the bind group layout: texture at 0, sampler at 1, settings at 2.
	Layout *wgpu.BindGroupLayout

	// Sampler is the linear sampler used to read the source texture.
	Sampler *wgpu.Sampler

	// ID is the queued render pipeline.
	ID pipeline.CachedPipelineID

	// Shader is the fragment shader the pipeline was queued with.
	Shader shader.Shader
}

// NewShader loads the post-process fragment shader, from path when given or from the
// embedded source otherwise.
//
// Parameters:
//   - path: an optional WGSL file overriding the embedded shader
//
// Returns:
//   - shader.Shader: the fragment shader
//   - error: an error if the file cannot be read or pre-processed
func NewShader(path string) (shader.Shader, error) {
	opts := []shader.ShaderBuilderOption{shader.WithStructs(pipeline.FullscreenVertexOutput, SettingsStruct)}
	if path != "" {
		opts = append(opts, shader.WithSourceFromPath(path))
	} else {
		opts = append(opts, shader.WithSource(shaderSource))
	}
	return shader.NewShader(ShaderKey, opts...)
}

// BindGroupLayoutDescriptor describes the post-process bind group layout.
func BindGroupLayoutDescriptor() *wgpu.BindGroupLayoutDescriptor {
	var settings Settings
	return &wgpu.BindGroupLayoutDescriptor{
		Label: "post_process_bind_group_layout",
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
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: uint64(settings.Size()),
				},
			},
		},
	}
}

// SamplerDescriptor describes the linear clamp-to-edge sampler.
func SamplerDescriptor() *wgpu.SamplerDescriptor {
	return &wgpu.SamplerDescriptor{
		Label:         "post_process_sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
}

// NewPipeline creates the layout and sampler and queues the render pipeline.
//
// Parameters:
//   - device: the device creating the layout and sampler
//   - cache: the pipeline cache to queue on
//   - fragment: the post-process fragment shader
//   - format: the main texture format the pass writes
//
// Returns:
//   - *Pipeline: the pipeline state
//   - error: an error if the layout or sampler cannot be created
func NewPipeline(device app.Device, cache *pipeline.Cache, fragment shader.Shader, format wgpu.TextureFormat) (*Pipeline, error) {
	layout, err := device.CreateBindGroupLayout(BindGroupLayoutDescriptor())
	if err != nil {
		return nil, fmt.Errorf("post_process: create bind group layout: %w", err)
	}
	sampler, err := device.CreateSampler(SamplerDescriptor())
	if err != nil {
		return nil, fmt.Errorf("post_process: create sampler: %w", err)
	}

	id := cache.QueueRenderPipeline(PipelineDescriptor(layout, fragment, format))
	return &Pipeline{
		Layout:  layout,
		Sampler: sampler,
		ID:      id,
		Shader:  fragment,
	}, nil
}

// PipelineDescriptor describes the post-process render pipeline: the full-screen vertex
// stage, the fragment entry point, one unblended target in format and no depth.
func PipelineDescriptor(layout *wgpu.BindGroupLayout, fragment shader.Shader, format wgpu.TextureFormat) *pipeline.RenderPipelineDescriptor {
	return pipeline.NewRenderPipelineDescriptor("post_process_pipeline",
		pipeline.WithBindGroupLayouts(layout),
		pipeline.WithVertexState(pipeline.FullscreenVertexState()),
		pipeline.WithFragmentShader(fragment, "fragment", pipeline.ColorTarget(format)),
		pipeline.WithoutDepthStencil(),
	)
}
