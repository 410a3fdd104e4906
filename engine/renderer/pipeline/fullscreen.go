package pipeline

import (
	_ "embed"
	"sync"

	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/shader"
)

//go:embed assets/fullscreen.wgsl
var fullscreenSource string

//go:embed assets/fullscreen_vertex_output.wgsl
var fullscreenVertexOutputSource string

// FullscreenShaderKey is the key of the built-in full-screen vertex shader.
const FullscreenShaderKey = "fullscreen"

// FullscreenEntryPoint is the vertex entry point of the full-screen shader.
const FullscreenEntryPoint = "fullscreen_vertex_shader"

// FullscreenVertexOutput is the struct the full-screen vertex stage outputs. Fragment shaders
// paired with FullscreenVertexState include it with //@oxy:include fullscreen_vertex_output.
var FullscreenVertexOutput = shader.StructSource{
	Key:    "fullscreen_vertex_output",
	Type:   "FullscreenVertexOutput",
	Source: fullscreenVertexOutputSource,
}

var fullscreenShader = sync.OnceValue(func() shader.Shader {
	return shader.MustShader(FullscreenShaderKey,
		shader.WithSource(fullscreenSource),
		shader.WithStructs(FullscreenVertexOutput),
	)
})

// FullscreenShader returns the shared full-screen vertex shader.
func FullscreenShader() shader.Shader {
	return fullscreenShader()
}

// FullscreenVertexState is a vertex stage drawing one triangle that covers the viewport.
// It needs no vertex buffers; draw it with 3 vertices and 1 instance. The stage outputs
// the clip position and a uv in [0, 1] across the visible area, with v = 0 at the top.
func FullscreenVertexState() VertexState {
	return VertexState{
		Shader:     FullscreenShader(),
		EntryPoint: FullscreenEntryPoint,
	}
}
