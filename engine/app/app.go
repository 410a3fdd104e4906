// Package app holds the render-side state that plugins extend before the first frame.
package app

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-postpass/engine/ecs"
	"github.com/Carmen-Shannon/oxy-postpass/engine/extract"
	"github.com/Carmen-Shannon/oxy-postpass/engine/render_graph"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrAlreadyBuilt is returned when a plugin is built a second time.
var ErrAlreadyBuilt = errors.New("app: plugin already built")

// Device is the subset of the GPU device that plugins use during setup and preparation.
type Device interface {
	extract.GPU
	CreateBindGroupLayout(desc *wgpu.BindGroupLayoutDescriptor) (*wgpu.BindGroupLayout, error)
	CreateSampler(desc *wgpu.SamplerDescriptor) (*wgpu.Sampler, error)
}

// ShaderWatcher starts hot reloading a file-backed shader.
type ShaderWatcher interface {
	Watch(s shader.Shader) error
}

// RenderApp is the render-side state shared between the engine and its plugins.
type RenderApp struct {
	// World is the simulation world components are extracted from.
	World *ecs.World

	// Graph is the per-view render graph.
	Graph *render_graph.Graph

	// Schedule runs extraction and GPU preparation once per frame.
	Schedule *extract.Schedule

	// Pipelines compiles render pipelines asynchronously.
	Pipelines *pipeline.Cache

	// Device creates GPU objects during setup.
	Device Device

	// MainTextureFormat is the format of every view's main color textures.
	MainTextureFormat wgpu.TextureFormat

	// Shaders hot reloads file-backed shaders. It is nil when hot reload is disabled.
	Shaders ShaderWatcher
}

// Plugin extends a RenderApp. Plugins are built once, in order, before the first frame.
type Plugin interface {
	// Name identifies the plugin in errors and logs.
	Name() string

	// Build registers the plugin's extractors, pipelines and graph nodes.
	//
	// Parameters:
	//   - app: the render app to extend
	//
	// Returns:
	//   - error: an error if the plugin cannot be set up
	Build(app *RenderApp) error
}

// Build builds every plugin in order and stops at the first failure.
//
// Parameters:
//   - app: the render app to extend
//   - plugins: the plugins to build
//
// Returns:
//   - error: the first build error, wrapped with the plugin name
func (a *RenderApp) Build(plugins ...Plugin) error {
	for _, p := range plugins {
		if err := p.Build(a); err != nil {
			return fmt.Errorf("build plugin %s: %w", p.Name(), err)
		}
	}
	return nil
}

// WatchShader hot reloads s when a watcher is configured and s is file backed.
func (a *RenderApp) WatchShader(s shader.Shader) error {
	if a.Shaders == nil || s.Path() == "" {
		return nil
	}
	return a.Shaders.Watch(s)
}
