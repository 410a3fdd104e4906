package scene

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-postpass/engine/app"
)

// Plugin creates the MeshPipeline scenes draw with.
type Plugin struct {
	shaderPath string

	once     sync.Once
	pipeline *MeshPipeline
}

var _ app.Plugin = (*Plugin)(nil)

// NewPlugin creates the mesh plugin. A non-empty shaderPath replaces the embedded mesh
// shader with a file that is hot reloaded when the app has a shader watcher.
func NewPlugin(shaderPath string) *Plugin {
	return &Plugin{shaderPath: shaderPath}
}

// Name returns "scene_mesh".
func (p *Plugin) Name() string {
	return "scene_mesh"
}

// Pipeline returns the mesh pipeline, or nil before Build.
func (p *Plugin) Pipeline() *MeshPipeline {
	return p.pipeline
}

// Build loads the mesh shader and queues the mesh pipeline. A plugin can only be built once.
func (p *Plugin) Build(a *app.RenderApp) error {
	err := app.ErrAlreadyBuilt
	p.once.Do(func() {
		err = p.build(a)
	})
	return err
}

func (p *Plugin) build(a *app.RenderApp) error {
	s, err := NewMeshShader(p.shaderPath)
	if err != nil {
		return err
	}
	if err := a.WatchShader(s); err != nil {
		return fmt.Errorf("watch %s: %w", p.shaderPath, err)
	}
	pl, err := NewMeshPipeline(a.Device, a.Pipelines, s, a.MainTextureFormat)
	if err != nil {
		return err
	}
	p.pipeline = pl
	return nil
}
