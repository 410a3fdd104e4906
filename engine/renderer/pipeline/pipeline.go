// Package pipeline describes render pipelines independently of the GPU device and compiles
// them asynchronously through a Cache.
package pipeline

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// VertexState is the vertex stage of a render pipeline.
type VertexState struct {
	Shader     shader.Shader
	EntryPoint string
	Buffers    []wgpu.VertexBufferLayout
}

// FragmentState is the fragment stage of a render pipeline.
type FragmentState struct {
	Shader     shader.Shader
	EntryPoint string
	Targets    []wgpu.ColorTargetState
}

// RenderPipelineDescriptor holds everything needed to compile a render pipeline.
// Descriptors are immutable once queued on a Cache.
type RenderPipelineDescriptor struct {
	// Label names the pipeline in logs and GPU debug tooling.
	Label string

	// BindGroupLayouts are the pipeline layout's bind group layouts, by group index.
	BindGroupLayouts []*wgpu.BindGroupLayout

	Vertex VertexState

	// Fragment is nil for depth-only pipelines.
	Fragment *FragmentState

	Primitive wgpu.PrimitiveState

	// DepthStencil is nil for pipelines that do not use a depth attachment.
	DepthStencil *wgpu.DepthStencilState

	Multisample wgpu.MultisampleState
}

// NewRenderPipelineDescriptor creates a descriptor with the engine defaults (triangle list,
// CCW front face, no culling, single sample, depth test with writes) and applies options.
//
// Parameters:
//   - label: the pipeline label
//   - opts: the options to apply
//
// Returns:
//   - *RenderPipelineDescriptor: the descriptor
func NewRenderPipelineDescriptor(label string, opts ...PipelineBuilderOption) *RenderPipelineDescriptor {
	d := &RenderPipelineDescriptor{
		Label: label,
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: DefaultDepthStencilState(),
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DefaultDepthStencilState is a Depth24Plus less-than test with depth writes.
func DefaultDepthStencilState() *wgpu.DepthStencilState {
	return &wgpu.DepthStencilState{
		Format:            DepthFormat,
		DepthWriteEnabled: true,
		DepthCompare:      wgpu.CompareFunctionLess,
		StencilFront: wgpu.StencilFaceState{
			Compare: wgpu.CompareFunctionAlways,
		},
		StencilBack: wgpu.StencilFaceState{
			Compare: wgpu.CompareFunctionAlways,
		},
	}
}

// DepthFormat is the format of every depth attachment the engine creates.
const DepthFormat = wgpu.TextureFormatDepth24Plus

// UsesShader reports whether either stage of d uses the shader with key.
func (d *RenderPipelineDescriptor) UsesShader(key string) bool {
	if d.Vertex.Shader != nil && d.Vertex.Shader.Key() == key {
		return true
	}
	return d.Fragment != nil && d.Fragment.Shader != nil && d.Fragment.Shader.Key() == key
}

// Shaders returns the distinct shaders used by d, vertex stage first.
func (d *RenderPipelineDescriptor) Shaders() []shader.Shader {
	var out []shader.Shader
	if d.Vertex.Shader != nil {
		out = append(out, d.Vertex.Shader)
	}
	if d.Fragment != nil && d.Fragment.Shader != nil && !slices.Contains(out, d.Fragment.Shader) {
		out = append(out, d.Fragment.Shader)
	}
	return out
}
