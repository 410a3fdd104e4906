package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBindGroupLayout shares an existing layout, typically one a pipeline was created with.
// The provider does not release a shared layout.
//
// Parameters:
//   - bgl: the bind group layout to create the bind group against
//
// Returns:
//   - BindGroupProviderOption: a function that sets the shared layout
func WithBindGroupLayout(bgl *wgpu.BindGroupLayout) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.bindGroupLayout = bgl
		p.ownsLayout = false
	}
}

// WithBuffer pre-populates the buffer for a binding so InitBindGroup binds it instead of creating one.
//
// Parameters:
//   - binding: the binding index within the bind group
//   - buf: the buffer
//
// Returns:
//   - BindGroupProviderOption: a function that sets the buffer
func WithBuffer(binding int, buf *wgpu.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
	}
}
