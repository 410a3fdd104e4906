package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-postpass/common"
	"github.com/Carmen-Shannon/oxy-postpass/engine/app"
	"github.com/Carmen-Shannon/oxy-postpass/engine/core_3d"
	"github.com/Carmen-Shannon/oxy-postpass/engine/render_graph"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

const defaultCompileWorkers = 2

// SurfaceSource provides the platform surface the renderer presents to. Window implements it.
type SurfaceSource interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend
	pipelines   *pipeline.Cache

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	compileWorkers       int
}

// Renderer owns the GPU device, the surface and its view target, and the pipeline cache.
// Each frame it runs the render graph once per view into a single command encoder.
type Renderer interface {
	// Resize reconfigures the surface and recreates the view target.
	//
	// Parameters:
	//   - width: the new surface width in pixels
	//   - height: the new surface height in pixels
	//
	// Returns:
	//   - error: an error if the view target could not be recreated
	Resize(width, height int) error

	// SetPresentMode sets how frames are delivered to the display.
	// A call to Resize is required after changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// SurfaceFormat returns the swapchain texture format.
	SurfaceFormat() wgpu.TextureFormat

	// ViewTarget returns the surface's view target, or nil before the first Resize.
	ViewTarget() *render_graph.ViewTarget

	// Pipelines returns the asynchronous pipeline cache backed by this renderer's device.
	Pipelines() *pipeline.Cache

	// Device returns the device plugins create GPU objects with.
	Device() app.Device

	// InitMeshBuffers creates the vertex and index buffers of a mesh and stores them on provider.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the buffers on
	//   - vertexData: the raw vertex bytes
	//   - indexData: the raw index bytes (uint32 indices)
	//   - indexCount: the number of indices
	//
	// Returns:
	//   - error: an error if the buffers could not be created
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error

	// InitBindGroup creates the buffers of a layout and a bind group over them.
	//
	// Parameters:
	//   - provider: the BindGroupProvider describing and storing the bind group
	//   - descriptor: the bind group layout; only buffer entries are supported
	//   - bufferSizeOverrides: buffer sizes by binding index
	//
	// Returns:
	//   - error: an error if the bind group could not be created
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferSizeOverrides map[int]uint64) error

	// WriteBuffers uploads staged buffer writes.
	//
	// Parameters:
	//   - writes: the staged writes
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// RenderFrame publishes finished pipelines, acquires the swapchain texture, runs graph for
	// every view in camera order, submits and presents. A view whose graph fails is logged and
	// skipped; the rest of the frame still renders.
	//
	// Parameters:
	//   - graph: the render graph to run per view
	//   - views: the views to render this frame
	//
	// Returns:
	//   - error: an error if the frame could not be acquired or submitted
	RenderFrame(graph *render_graph.Graph, views []*render_graph.View) error

	// Release waits for in-flight compilations and releases every GPU resource.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer presenting to the surface of source.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - source: provides the platform-specific surface descriptor, typically the Window
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, source SurfaceSource, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:             &sync.Mutex{},
		backendType:    backendType,
		compileWorkers: defaultCompileWorkers,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	switch backendType {
	case BackendTypeWGPU:
		r.backend = newWGPURendererBackend(source.SurfaceDescriptor(), r.forceFallbackAdapter, core_3d.MainTextureFormat)
	default:
		panic(fmt.Sprintf("unsupported renderer backend type: %d", backendType))
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	r.pipelines = pipeline.NewCache(r.backend, r.compileWorkers)

	return r
}

func (r *renderer) Resize(width, height int) error {
	return r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) SurfaceFormat() wgpu.TextureFormat {
	return r.backend.SurfaceFormat()
}

func (r *renderer) ViewTarget() *render_graph.ViewTarget {
	return r.backend.ViewTarget()
}

func (r *renderer) Pipelines() *pipeline.Cache {
	return r.pipelines
}

func (r *renderer) Device() app.Device {
	return r.backend
}

func (r *renderer) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	return r.backend.InitMeshBuffers(provider, vertexData, indexData, indexCount)
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferSizeOverrides map[int]uint64) error {
	return r.backend.InitBindGroup(provider, descriptor, bufferSizeOverrides)
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	r.backend.WriteBuffers(writes)
}

func (r *renderer) RenderFrame(graph *render_graph.Graph, views []*render_graph.View) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pipelines.ProcessQueue()

	output, rc, err := r.backend.BeginFrame()
	if err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}

	ordered := prepareViews(views, r.backend.ViewTarget(), output, r.backend.SurfaceFormat())
	for _, view := range ordered {
		if err := graph.Run(view, rc); err != nil {
			common.Logger().Warn("render graph failed", "view", view.Entity, "order", view.Order, "error", err)
		}
	}

	if err := r.backend.EndFrame(rc); err != nil {
		return err
	}
	r.backend.Present()
	return nil
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pipelines.Release()
	r.backend.Release()
}
