package scene

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-postpass/engine/app"
	"github.com/Carmen-Shannon/oxy-postpass/engine/camera"
	"github.com/Carmen-Shannon/oxy-postpass/engine/model"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/mesh.wgsl
var meshShaderSource string

// MeshShaderKey is the key of the mesh shader.
const MeshShaderKey = "mesh"

// MeshPipeline is the shared state used to draw scene meshes: the camera layout at group 0,
// the per-object layout at group 1 and the queued pipeline.
type MeshPipeline struct {
	CameraLayout *wgpu.BindGroupLayout
	ObjectLayout *wgpu.BindGroupLayout
	ID           pipeline.CachedPipelineID
	Shader       shader.Shader
	Pipelines    *pipeline.Cache
}

// NewMeshShader loads the mesh shader, from path when given or from the embedded source.
//
// Parameters:
//   - path: an optional WGSL file overriding the embedded shader
//
// Returns:
//   - shader.Shader: the mesh shader (vertex entry vs_main, fragment entry fs_main)
//   - error: an error if the file cannot be read or pre-processed
func NewMeshShader(path string) (shader.Shader, error) {
	opts := []shader.ShaderBuilderOption{
		shader.WithStructs(camera.CameraUniformStruct, model.VertexInputStruct, model.ModelDataStruct),
	}
	if path != "" {
		opts = append(opts, shader.WithSourceFromPath(path))
	} else {
		opts = append(opts, shader.WithSource(meshShaderSource))
	}
	return shader.NewShader(MeshShaderKey, opts...)
}

// CameraLayoutDescriptor describes group 0: the camera uniform, visible to the vertex stage.
func CameraLayoutDescriptor() wgpu.BindGroupLayoutDescriptor {
	var u camera.GPUCameraUniform
	return uniformLayout("scene_camera_layout", uint64(u.Size()))
}

// ObjectLayoutDescriptor describes group 1: the per-object ModelData uniform.
func ObjectLayoutDescriptor() wgpu.BindGroupLayoutDescriptor {
	var d model.GPUModelData
	return uniformLayout("scene_object_layout", uint64(d.Size()))
}

func uniformLayout(label string, size uint64) wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: label,
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: size,
				},
			},
		},
	}
}

// NewMeshPipeline creates both layouts and queues the mesh pipeline on cache.
//
// Parameters:
//   - device: the device creating the layouts
//   - cache: the pipeline cache to queue on
//   - s: the mesh shader
//   - format: the main texture format meshes are drawn into
//
// Returns:
//   - *MeshPipeline: the shared mesh state
//   - error: an error if a layout cannot be created
func NewMeshPipeline(device app.Device, cache *pipeline.Cache, s shader.Shader, format wgpu.TextureFormat) (*MeshPipeline, error) {
	camDesc := CameraLayoutDescriptor()
	camLayout, err := device.CreateBindGroupLayout(&camDesc)
	if err != nil {
		return nil, fmt.Errorf("scene: create camera layout: %w", err)
	}
	objDesc := ObjectLayoutDescriptor()
	objLayout, err := device.CreateBindGroupLayout(&objDesc)
	if err != nil {
		return nil, fmt.Errorf("scene: create object layout: %w", err)
	}

	desc := pipeline.NewRenderPipelineDescriptor("scene_mesh_pipeline",
		pipeline.WithBindGroupLayouts(camLayout, objLayout),
		pipeline.WithVertexShader(s, "vs_main", model.VertexLayout()),
		pipeline.WithFragmentShader(s, "fs_main", pipeline.ColorTarget(format)),
		pipeline.WithCullMode(wgpu.CullModeBack),
	)
	return &MeshPipeline{
		CameraLayout: camLayout,
		ObjectLayout: objLayout,
		ID:           cache.QueueRenderPipeline(desc),
		Shader:       s,
		Pipelines:    cache,
	}, nil
}

// Ready returns the compiled pipeline once it is available.
func (p *MeshPipeline) Ready() (*wgpu.RenderPipeline, bool) {
	return p.Pipelines.RenderPipeline(p.ID)
}
