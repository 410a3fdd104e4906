// Package post_process adds a full-screen post-processing pass to the 3D render graph.
// Attach Settings to a camera entity to enable the pass for that camera's view.
package post_process

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-postpass/engine/app"
	"github.com/Carmen-Shannon/oxy-postpass/engine/extract"
)

// Plugin wires the post-process pass into a RenderApp.
type Plugin struct {
	ordering   Ordering
	shaderPath string

	once     sync.Once
	pipeline *Pipeline
	uniforms *extract.ComponentUniforms[Settings]
}

var _ app.Plugin = (*Plugin)(nil)

// NewPlugin creates the plugin with the given options applied.
//
// Parameters:
//   - options: the plugin options
//
// Returns:
//   - *Plugin: the plugin
func NewPlugin(options ...PluginBuilderOption) *Plugin {
	p := &Plugin{ordering: BeforeMainPass}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Name returns "post_process".
func (p *Plugin) Name() string {
	return string(Label)
}

// Ordering returns where the node runs.
func (p *Plugin) Ordering() Ordering {
	return p.ordering
}

// Pipeline returns the pipeline state, or nil before Build.
func (p *Plugin) Pipeline() *Pipeline {
	return p.pipeline
}

// Uniforms returns the settings uniforms, or nil before Build.
func (p *Plugin) Uniforms() *extract.ComponentUniforms[Settings] {
	return p.uniforms
}

// Build registers Settings extraction, creates the pipeline, and adds the node between the
// two stages selected by the ordering. A plugin can only be built once.
func (p *Plugin) Build(a *app.RenderApp) error {
	err := app.ErrAlreadyBuilt
	p.once.Do(func() {
		err = p.build(a)
	})
	return err
}

func (p *Plugin) build(a *app.RenderApp) error {
	fragment, err := NewShader(p.shaderPath)
	if err != nil {
		return err
	}
	if err := a.WatchShader(fragment); err != nil {
		return fmt.Errorf("watch %s: %w", p.shaderPath, err)
	}

	extractor := extract.NewComponentExtractor[Settings](a.World)
	uniforms := extract.NewComponentUniforms("post_process_settings", extractor)
	a.Schedule.AddExtractor(extractor)
	a.Schedule.AddPreparer(uniforms)

	pl, err := NewPipeline(a.Device, a.Pipelines, fragment, a.MainTextureFormat)
	if err != nil {
		return err
	}

	if err := a.Graph.AddNode(Label, NewNode(pl, a.Pipelines, uniforms)); err != nil {
		return err
	}
	if err := a.Graph.AddNodeEdges(p.ordering.Edges()...); err != nil {
		return err
	}

	p.pipeline = pl
	p.uniforms = uniforms
	return nil
}
