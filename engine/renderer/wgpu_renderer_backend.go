package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-postpass/engine/app"
	"github.com/Carmen-Shannon/oxy-postpass/engine/render_graph"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrFrameInFlight is returned by BeginFrame when the previous frame has not been presented.
var ErrFrameInFlight = errors.New("renderer: previous frame surface not yet presented")

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	mainFormat    wgpu.TextureFormat
	presentMode   wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)

	// Per-surface render target: two main color textures and a depth texture, recreated on resize.
	mainTextures [2]*wgpu.Texture
	mainViews    [2]*wgpu.TextureView
	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView
	viewTarget   *render_graph.ViewTarget

	// Frame state between BeginFrame and Present.
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

type wgpuRendererBackend interface {
	pipeline.Compiler
	app.Device

	// ConfigureSurface configures the surface for the new size and recreates the view target.
	// A zero width or height (minimised window) keeps the current configuration.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: an error if the view target textures could not be created
	ConfigureSurface(width, height int) error

	// SetPresentMode sets the surface present mode. It takes effect on the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// SurfaceFormat returns the swapchain texture format chosen by ConfigureSurface.
	SurfaceFormat() wgpu.TextureFormat

	// ViewTarget returns the surface's view target, or nil before the first ConfigureSurface.
	ViewTarget() *render_graph.ViewTarget

	// InitMeshBuffers creates the vertex and index buffers of a mesh and stores them on provider.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created vertex and index buffers on
	//   - vertexData: the raw vertex data bytes to upload to the GPU
	//   - indexData: the raw index data bytes to upload to the GPU
	//   - indexCount: the number of indices represented in the indexData, used for draw calls
	//
	// Returns:
	//   - error: an error if the buffers could not be created
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error

	// InitBindGroup creates the buffers described by a layout descriptor and a bind group over them.
	// The provider's layout is used when it has one; otherwise one is created from descriptor.
	//
	// Parameters:
	//   - provider: the BindGroupProvider describing and storing the bind group
	//   - descriptor: the layout of the bind group; only buffer entries are supported
	//   - bufferSizeOverrides: buffer sizes by binding index, replacing the entry's MinBindingSize
	//
	// Returns:
	//   - error: an error if the bind group could not be initialized
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferSizeOverrides map[int]uint64) error

	// WriteBuffers uploads every staged write. Writes to missing buffers are skipped.
	//
	// Parameters:
	//   - writes: the staged writes
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginFrame acquires the next swapchain texture and a command encoder for the frame.
	// Must be paired with EndFrame.
	//
	// Returns:
	//   - *wgpu.TextureView: the swapchain view for this frame
	//   - *encoderContext: the render context graph nodes record into
	//   - error: an error if the swapchain texture or encoder could not be acquired
	BeginFrame() (*wgpu.TextureView, *encoderContext, error)

	// EndFrame finishes the frame's encoder, submits it and releases the frame's transient
	// bind groups. It does not present; call Present afterwards.
	//
	// Parameters:
	//   - rc: the context returned by BeginFrame
	//
	// Returns:
	//   - error: an error if the command buffer could not be finished
	EndFrame(rc *encoderContext) error

	// Present presents the surface to the display and releases the swapchain texture.
	Present()

	// Release releases the view target textures, the device and the surface.
	Release()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, mainFormat wgpu.TextureFormat) wgpuRendererBackend {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		mainFormat:  mainFormat,
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		panic(err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	w.device = d
	w.queue = d.GetQueue()

	return w
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	b.releaseViewTarget()

	size := wgpu.Extent3D{
		Width:              uint32(width),
		Height:             uint32(height),
		DepthOrArrayLayers: 1,
	}

	for i, label := range []string{"Main Texture A", "Main Texture B"} {
		tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label:         label,
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     wgpu.TextureDimension2D,
			Format:        b.mainFormat,
			Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", label, err)
		}
		b.mainTextures[i] = tex
		b.mainViews[i], err = tex.CreateView(nil)
		if err != nil {
			return fmt.Errorf("create %s view: %w", label, err)
		}
	}

	depth, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Depth Texture",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        pipeline.DepthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("create depth texture: %w", err)
	}
	b.depthTexture = depth
	b.depthView, err = depth.CreateView(nil)
	if err != nil {
		return fmt.Errorf("create depth texture view: %w", err)
	}

	b.viewTarget = render_graph.NewViewTarget(b.mainViews[0], b.mainViews[1], b.depthView, b.mainFormat, uint32(width), uint32(height))
	return nil
}

// releaseViewTarget releases the current view target's textures. The caller holds b.mu.
func (b *wgpuRendererBackendImpl) releaseViewTarget() {
	b.viewTarget = nil
	for i := range b.mainTextures {
		if b.mainViews[i] != nil {
			b.mainViews[i].Release()
			b.mainViews[i] = nil
		}
		if b.mainTextures[i] != nil {
			b.mainTextures[i].Release()
			b.mainTextures[i] = nil
		}
	}
	if b.depthView != nil {
		b.depthView.Release()
		b.depthView = nil
	}
	if b.depthTexture != nil {
		b.depthTexture.Release()
		b.depthTexture = nil
	}
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) SurfaceFormat() wgpu.TextureFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaceFormat
}

func (b *wgpuRendererBackendImpl) ViewTarget() *render_graph.ViewTarget {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewTarget
}

// CompileRenderPipeline runs on the pipeline cache's workers.
func (b *wgpuRendererBackendImpl) CompileRenderPipeline(desc *pipeline.RenderPipelineDescriptor) (*wgpu.RenderPipeline, error) {
	if desc.Vertex.Shader == nil {
		return nil, pipeline.ErrNoVertexShader
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// The vertex and fragment stages may share a module.
	modules := make(map[string]*wgpu.ShaderModule, 2)
	defer func() {
		for _, m := range modules {
			m.Release()
		}
	}()
	module := func(s shader.Shader) (*wgpu.ShaderModule, error) {
		if m, ok := modules[s.Key()]; ok {
			return m, nil
		}
		m, err := b.device.CreateShaderModule(s.Module())
		if err != nil {
			return nil, fmt.Errorf("create shader module %s: %w", s.Key(), err)
		}
		modules[s.Key()] = m
		return m, nil
	}

	vs, err := module(desc.Vertex.Shader)
	if err != nil {
		return nil, err
	}

	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: desc.BindGroupLayouts,
	})
	if err != nil {
		return nil, fmt.Errorf("create pipeline layout %s: %w", desc.Label, err)
	}
	defer layout.Release()

	rpd := &wgpu.RenderPipelineDescriptor{
		Label:  desc.Label + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: desc.Vertex.EntryPoint,
			Buffers:    desc.Vertex.Buffers,
		},
		Primitive:    desc.Primitive,
		DepthStencil: desc.DepthStencil,
		Multisample:  desc.Multisample,
	}
	if desc.Fragment != nil {
		fs, err := module(desc.Fragment.Shader)
		if err != nil {
			return nil, err
		}
		rpd.Fragment = &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: desc.Fragment.EntryPoint,
			Targets:    desc.Fragment.Targets,
		}
	}

	created, err := b.device.CreateRenderPipeline(rpd)
	if err != nil {
		return nil, fmt.Errorf("create render pipeline %s: %w", desc.Label, err)
	}
	return created, nil
}

func (b *wgpuRendererBackendImpl) ReleaseRenderPipeline(p *wgpu.RenderPipeline) {
	if p != nil {
		p.Release()
	}
}

func (b *wgpuRendererBackendImpl) CreateBuffer(desc *wgpu.BufferDescriptor) (*wgpu.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.device.CreateBuffer(desc)
}

func (b *wgpuRendererBackendImpl) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue.WriteBuffer(buf, offset, data)
	return nil
}

func (b *wgpuRendererBackendImpl) ReleaseBuffer(buf *wgpu.Buffer) {
	if buf != nil {
		buf.Release()
	}
}

func (b *wgpuRendererBackendImpl) CreateBindGroupLayout(desc *wgpu.BindGroupLayoutDescriptor) (*wgpu.BindGroupLayout, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.device.CreateBindGroupLayout(desc)
}

func (b *wgpuRendererBackendImpl) CreateSampler(desc *wgpu.SamplerDescriptor) (*wgpu.Sampler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.device.CreateSampler(desc)
}

func (b *wgpuRendererBackendImpl) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(vertexData) > 0 {
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: provider.Label() + " Vertex Buffer",
			Size:  uint64(len(vertexData)),
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		b.queue.WriteBuffer(buf, 0, vertexData)
		provider.SetVertexBuffer(buf)
	}

	if len(indexData) > 0 {
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: provider.Label() + " Index Buffer",
			Size:  uint64(len(indexData)),
			Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		b.queue.WriteBuffer(buf, 0, indexData)
		provider.SetIndexBuffer(buf)
	}

	provider.SetIndexCount(indexCount)

	return nil
}

func (b *wgpuRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferSizeOverrides map[int]uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(descriptor.Entries) == 0 {
		return nil
	}

	layout := provider.BindGroupLayout()
	if layout == nil {
		var err error
		layout, err = b.device.CreateBindGroupLayout(&descriptor)
		if err != nil {
			return err
		}
		provider.SetBindGroupLayout(layout)
	}

	entries := make([]wgpu.BindGroupEntry, len(descriptor.Entries))
	for i, entry := range descriptor.Entries {
		binding := int(entry.Binding)

		var usage wgpu.BufferUsage
		switch entry.Buffer.Type {
		case wgpu.BufferBindingTypeUniform:
			usage = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
		case wgpu.BufferBindingTypeStorage, wgpu.BufferBindingTypeReadOnlyStorage:
			usage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
		default:
			return fmt.Errorf("%s: binding %d is not a buffer binding", provider.Label(), binding)
		}

		buf := provider.Buffer(binding)
		if buf == nil {
			size := entry.Buffer.MinBindingSize
			if override, ok := bufferSizeOverrides[binding]; ok {
				size = override
			}
			var err error
			buf, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: provider.Label() + " Buffer",
				Size:  size,
				Usage: usage,
			})
			if err != nil {
				return err
			}
			provider.SetBuffer(binding, buf)
		}
		entries[i] = wgpu.BindGroupEntry{
			Binding: entry.Binding,
			Buffer:  buf,
			Offset:  0,
			Size:    wgpu.WholeSize,
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroup(bindGroup)

	return nil
}

func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		b.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}

func (b *wgpuRendererBackendImpl) BeginFrame() (*wgpu.TextureView, *encoderContext, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface != nil {
		return nil, nil, ErrFrameInFlight
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return nil, nil, err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, nil, err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return nil, nil, err
	}

	b.frameSurface = surfaceTexture
	b.frameView = view

	return view, &encoderContext{mu: b.mu, device: b.device, encoder: encoder}, nil
}

func (b *wgpuRendererBackendImpl) EndFrame(rc *encoderContext) error {
	commandBuffer, err := rc.encoder.Finish(nil)
	if err != nil {
		rc.encoder.Release()
		rc.release()
		b.mu.Lock()
		b.releaseFrame()
		b.mu.Unlock()
		return fmt.Errorf("finish frame: %w", err)
	}

	b.mu.Lock()
	b.queue.Submit(commandBuffer)
	b.mu.Unlock()

	commandBuffer.Release()
	rc.encoder.Release()
	rc.release()
	return nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}
	b.surface.Present()
	b.releaseFrame()
}

// releaseFrame drops the acquired swapchain texture. The caller holds b.mu.
func (b *wgpuRendererBackendImpl) releaseFrame() {
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseFrame()
	b.releaseViewTarget()
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
