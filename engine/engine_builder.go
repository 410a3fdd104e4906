package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-postpass/engine/app"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer"
	"github.com/Carmen-Shannon/oxy-postpass/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithWindow sets a pre-configured window for the engine to use rather than creating one.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithWindowOptions configures the window the engine creates. Ignored when WithWindow is used.
func WithWindowOptions(options ...window.WindowBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.windowOptions = append(e.windowOptions, options...)
	}
}

// WithRendererOptions configures the renderer the engine creates.
//
// Parameters:
//   - options: renderer options such as present mode or compile workers
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRendererOptions(options ...renderer.RendererBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.rendererOptions = append(e.rendererOptions, options...)
	}
}

// WithPlugins adds plugins built into the render app before the first frame, in order.
//
// Parameters:
//   - plugins: the plugins to build
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPlugins(plugins ...app.Plugin) EngineBuilderOption {
	return func(e *engine) {
		e.plugins = append(e.plugins, plugins...)
	}
}

// WithShaderHotReload watches file-backed shaders and recompiles the pipelines that use them
// when the files change.
func WithShaderHotReload(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.hotReload = enabled
	}
}

// WithMeshShaderPath replaces the embedded mesh shader with a WGSL file.
func WithMeshShaderPath(path string) EngineBuilderOption {
	return func(e *engine) {
		e.meshShaderPath = path
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}
