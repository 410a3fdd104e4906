package pipeline

import (
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a RenderPipelineDescriptor.
type PipelineBuilderOption func(*RenderPipelineDescriptor)

// WithVertexState sets the vertex stage.
//
// Parameters:
//   - state: the vertex stage
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex stage
func WithVertexState(state VertexState) PipelineBuilderOption {
	return func(d *RenderPipelineDescriptor) {
		d.Vertex = state
	}
}

// WithVertexShader sets the vertex stage from a shader, entry point and vertex buffer layouts.
//
// Parameters:
//   - s: the shader containing the vertex entry point
//   - entryPoint: the vertex entry point name
//   - buffers: the vertex buffer layouts
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex stage
func WithVertexShader(s shader.Shader, entryPoint string, buffers ...wgpu.VertexBufferLayout) PipelineBuilderOption {
	return func(d *RenderPipelineDescriptor) {
		d.Vertex = VertexState{Shader: s, EntryPoint: entryPoint, Buffers: buffers}
	}
}

// WithFragmentShader sets the fragment stage.
//
// Parameters:
//   - s: the shader containing the fragment entry point
//   - entryPoint: the fragment entry point name
//   - targets: the color targets written by the fragment stage
//
// Returns:
//   - PipelineBuilderOption: a function that sets the fragment stage
func WithFragmentShader(s shader.Shader, entryPoint string, targets ...wgpu.ColorTargetState) PipelineBuilderOption {
	return func(d *RenderPipelineDescriptor) {
		d.Fragment = &FragmentState{Shader: s, EntryPoint: entryPoint, Targets: targets}
	}
}

// WithBindGroupLayouts sets the bind group layouts of the pipeline layout.
//
// Parameters:
//   - layouts: the layouts by group index
//
// Returns:
//   - PipelineBuilderOption: a function that sets the layouts
func WithBindGroupLayouts(layouts ...*wgpu.BindGroupLayout) PipelineBuilderOption {
	return func(d *RenderPipelineDescriptor) {
		d.BindGroupLayouts = layouts
	}
}

// WithDepthTestEnabled toggles the depth test. Disabling it keeps the attachment format
// but compares with CompareFunctionAlways.
//
// Parameters:
//   - enabled: whether fragments are depth tested
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth compare function
func WithDepthTestEnabled(enabled bool) PipelineBuilderOption {
	return func(d *RenderPipelineDescriptor) {
		if d.DepthStencil == nil {
			return
		}
		if enabled {
			d.DepthStencil.DepthCompare = wgpu.CompareFunctionLess
		} else {
			d.DepthStencil.DepthCompare = wgpu.CompareFunctionAlways
		}
	}
}

// WithDepthWriteEnabled toggles depth writes.
//
// Parameters:
//   - enabled: whether fragments write depth
//
// Returns:
//   - PipelineBuilderOption: a function that sets depth writes
func WithDepthWriteEnabled(enabled bool) PipelineBuilderOption {
	return func(d *RenderPipelineDescriptor) {
		if d.DepthStencil != nil {
			d.DepthStencil.DepthWriteEnabled = enabled
		}
	}
}

// WithoutDepthStencil removes the depth/stencil state. Full-screen passes render without depth.
//
// Returns:
//   - PipelineBuilderOption: a function that clears the depth/stencil state
func WithoutDepthStencil() PipelineBuilderOption {
	return func(d *RenderPipelineDescriptor) {
		d.DepthStencil = nil
	}
}

// WithCullMode sets the face culling mode.
//
// Parameters:
//   - mode: the cull mode
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(d *RenderPipelineDescriptor) {
		d.Primitive.CullMode = mode
	}
}

// WithTopology sets the primitive topology.
//
// Parameters:
//   - topology: the primitive topology
//
// Returns:
//   - PipelineBuilderOption: a function that sets the topology
func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(d *RenderPipelineDescriptor) {
		d.Primitive.Topology = topology
	}
}

// WithFrontFace sets the front face winding order.
//
// Parameters:
//   - face: the winding order
//
// Returns:
//   - PipelineBuilderOption: a function that sets the front face
func WithFrontFace(face wgpu.FrontFace) PipelineBuilderOption {
	return func(d *RenderPipelineDescriptor) {
		d.Primitive.FrontFace = face
	}
}

// AlphaBlendState is straight (non-premultiplied) alpha blending.
func AlphaBlendState() *wgpu.BlendState {
	return &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorSrcAlpha,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
		Alpha: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
	}
}

// ColorTarget returns an unblended color target writing all channels.
//
// Parameters:
//   - format: the target texture format
//
// Returns:
//   - wgpu.ColorTargetState: the target state
func ColorTarget(format wgpu.TextureFormat) wgpu.ColorTargetState {
	return wgpu.ColorTargetState{
		Format:    format,
		WriteMask: wgpu.ColorWriteMaskAll,
	}
}
