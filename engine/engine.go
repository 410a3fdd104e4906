package engine

import (
	"fmt"
	"log"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-postpass/common"
	"github.com/Carmen-Shannon/oxy-postpass/engine/app"
	"github.com/Carmen-Shannon/oxy-postpass/engine/camera"
	"github.com/Carmen-Shannon/oxy-postpass/engine/core_3d"
	"github.com/Carmen-Shannon/oxy-postpass/engine/ecs"
	"github.com/Carmen-Shannon/oxy-postpass/engine/extract"
	"github.com/Carmen-Shannon/oxy-postpass/engine/profiler"
	"github.com/Carmen-Shannon/oxy-postpass/engine/render_graph"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-postpass/engine/scene"
	"github.com/Carmen-Shannon/oxy-postpass/engine/window"
)

// engine implements the Engine interface.
// Coordinates the tick, render and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window          window.Window
	windowOptions   []window.WindowBuilderOption
	renderer        renderer.Renderer
	rendererOptions []renderer.RendererBuilderOption

	world     *ecs.World
	renderApp *app.RenderApp
	plugins   []app.Plugin
	meshes    *scene.Plugin

	hotReload      bool
	meshShaderPath string
	watcher        *shader.Watcher

	// pendingResize holds the latest framebuffer size until the render goroutine applies it.
	pendingResize atomic.Pointer[[2]int]

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	scenesMu sync.RWMutex
	scenes   map[int]scene.Scene

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for the engine.
// It owns the window, the renderer and the render app, and runs the tick and render loops.
type Engine interface {
	// Window returns the underlying window.
	Window() window.Window

	// Renderer returns the renderer drawing into the window.
	Renderer() renderer.Renderer

	// World returns the simulation world. Components attached to a scene's Entity, such as
	// post-process settings, are extracted for that scene's view every frame.
	World() *ecs.World

	// App returns the render app plugins were built into.
	App() *app.RenderApp

	// NewScene creates a scene drawing with the engine's mesh pipeline.
	//
	// Parameters:
	//   - name: the scene name
	//   - cam: the scene camera
	//   - options: scene options
	//
	// Returns:
	//   - scene.Scene: the new scene, not yet registered
	NewScene(name string, cam camera.Camera, options ...scene.SceneBuilderOption) scene.Scene

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick, after every scene was updated.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each rendered frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddScene registers a scene at the given z-index key and spawns its camera entity.
	// The key becomes the camera order: scenes render in ascending key order and later scenes
	// composite over earlier ones.
	//
	// Parameters:
	//   - key: the z-index determining render order (lower renders first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key, despawns its entity and
	// releases its GPU resources.
	//
	// Parameters:
	//   - key: the z-index of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key, or nil.
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	Scenes() map[int]scene.Scene

	// Run starts the tick and render loops and runs the window message loop on the calling
	// goroutine, which must be the main thread. Blocks until the window closes or Quit is called,
	// then releases every resource.
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// SetLogger sets the logger used by every engine package. The default discards all records.
//
// Parameters:
//   - l: the logger, or nil to restore the silent default
func SetLogger(l *slog.Logger) {
	common.SetLogger(l)
}

// NewEngine creates the window (unless WithWindow supplied one), the renderer, the render
// graph and the render app, then builds the mesh plugin followed by every plugin passed
// with WithPlugins. All plugins are built before the first frame.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if the render graph or a plugin cannot be built
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		scenes:          make(map[int]scene.Scene),
		profiler:        profiler.NewProfiler(time.Second),
		engineTickRate:  time.Second / 60,
		world:           ecs.NewWorld(),
	}
	for _, opt := range options {
		opt(e)
	}

	if e.window == nil {
		e.window = window.NewWindow(e.windowOptions...)
	}
	if e.renderer == nil {
		e.renderer = renderer.NewRenderer(renderer.BackendTypeWGPU, e.window, e.rendererOptions...)
	}
	width, height := e.window.Size()
	if err := e.renderer.Resize(width, height); err != nil {
		return nil, fmt.Errorf("engine: configure surface: %w", err)
	}

	if err := e.buildRenderApp(); err != nil {
		e.renderer.Release()
		return nil, err
	}

	e.window.SetResizeCallback(func(width, height int) {
		e.pendingResize.Store(&[2]int{width, height})
	})
	common.Logger().Info("engine ready", "width", width, "height", height, "plugins", len(e.plugins))
	return e, nil
}

// buildRenderApp creates the core 3D graph and builds the plugins into it.
func (e *engine) buildRenderApp() error {
	device := e.renderer.Device()
	pipelines := e.renderer.Pipelines()

	upscaling, err := core_3d.NewUpscalingNode(device, pipelines, e.renderer.SurfaceFormat())
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	graph, err := core_3d.NewGraph(core_3d.MainPassNode{}, upscaling)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	e.renderApp = &app.RenderApp{
		World:             e.world,
		Graph:             graph,
		Schedule:          &extract.Schedule{},
		Pipelines:         pipelines,
		Device:            device,
		MainTextureFormat: core_3d.MainTextureFormat,
	}

	if e.hotReload {
		w, err := shader.NewWatcher(func(s shader.Shader, err error) {
			if err != nil {
				common.Logger().Warn("shader reload failed", "shader", s.Key(), "error", err)
				return
			}
			common.Logger().Info("shader reloaded", "shader", s.Key())
			pipelines.Invalidate(s.Key())
		})
		if err != nil {
			return fmt.Errorf("engine: %w", err)
		}
		e.watcher = w
		e.renderApp.Shaders = w
	}

	e.meshes = scene.NewPlugin(e.meshShaderPath)
	plugins := append([]app.Plugin{e.meshes}, e.plugins...)
	if err := e.renderApp.Build(plugins...); err != nil {
		if e.watcher != nil {
			_ = e.watcher.Close()
		}
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) World() *ecs.World {
	return e.world
}

func (e *engine) App() *app.RenderApp {
	return e.renderApp
}

func (e *engine) NewScene(name string, cam camera.Camera, options ...scene.SceneBuilderOption) scene.Scene {
	return scene.NewScene(name, cam, e.meshes.Pipeline(), options...)
}

func (e *engine) Run() {
	e.running.Store(true)
	e.handle()
	e.window.ProcessMessages()
	e.signalQuit()
	e.wg.Wait()
	e.release()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit and stops the window loop.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
		e.window.RequestClose()
	})
}

// release frees scenes, the watcher, the renderer and the window once every loop has exited.
func (e *engine) release() {
	e.scenesMu.Lock()
	for _, s := range e.scenes {
		s.Release()
	}
	e.scenes = make(map[int]scene.Scene)
	e.scenesMu.Unlock()

	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			common.Logger().Warn("close shader watcher", "error", err)
		}
	}
	e.renderer.Release()
	if err := e.window.Close(); err != nil {
		common.Logger().Warn("close window", "error", err)
	}
}

// handle launches the tick and render goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Updates every scene, then fires the tick callback at the configured tick rate, and listens
// for dynamic rate changes via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			for _, s := range e.activeScenes() {
				s.Update(dt)
			}
			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// activeScenes returns the active scenes in ascending z-index order.
func (e *engine) activeScenes() []scene.Scene {
	e.scenesMu.RLock()
	defer e.scenesMu.RUnlock()
	var out []scene.Scene
	for _, k := range slices.Sorted(maps.Keys(e.scenes)) {
		if s := e.scenes[k]; s.Active() {
			out = append(out, s)
		}
	}
	return out
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("render goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			stats := e.renderFrame()
			stats.Duration = time.Since(now)

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}
			if e.profilingEnabled.Load() {
				e.profiler.Tick(stats)
			}

			if e.renderFrameLimit > 0 {
				if remaining := e.renderFrameLimit - time.Since(now); remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// renderFrame applies a pending resize, prepares every active scene, runs extraction and
// GPU preparation for the scenes' views, and renders the graph once per view.
func (e *engine) renderFrame() profiler.FrameStats {
	if size := e.pendingResize.Swap(nil); size != nil {
		e.resize(size[0], size[1])
	}

	scenes := e.activeScenes()
	views := make([]*render_graph.View, 0, len(scenes))
	entities := make([]ecs.Entity, 0, len(scenes))
	var stats profiler.FrameStats
	for _, s := range scenes {
		if err := s.Prepare(e.renderer); err != nil {
			common.Logger().Warn("prepare scene", "scene", s.Name(), "error", err)
			continue
		}
		v := s.View()
		views = append(views, v)
		entities = append(entities, v.Entity)
		stats.Items += len(v.Items)
	}
	stats.Views = len(views)

	if err := e.renderApp.Schedule.Run(entities, e.renderApp.Device); err != nil {
		common.Logger().Warn("prepare render world", "error", err)
	}
	if err := e.renderer.RenderFrame(e.renderApp.Graph, views); err != nil {
		common.Logger().Debug("frame skipped", "error", err)
	}
	return stats
}

// resize reconfigures the surface and updates every camera's aspect ratio.
// A zero size (minimized window) is ignored.
func (e *engine) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if err := e.renderer.Resize(width, height); err != nil {
		common.Logger().Warn("resize surface", "width", width, "height", height, "error", err)
		return
	}
	aspect := float32(width) / float32(height)
	e.scenesMu.RLock()
	defer e.scenesMu.RUnlock()
	for _, s := range e.scenes {
		s.Camera().SetAspect(aspect)
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if !e.running.Load() {
		e.engineTickRate = newRate
		return
	}
	// Non-blocking send; a pending update is replaced by the newer rate.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.scenesMu.Lock()
	defer e.scenesMu.Unlock()
	if old, ok := e.scenes[key]; ok && old != s {
		e.world.Despawn(old.Entity())
	}
	if s.Entity() == ecs.InvalidEntity {
		s.SetEntity(e.world.Spawn())
	}
	s.Camera().SetOrder(key)
	if width, height := e.window.Size(); height > 0 {
		s.Camera().SetAspect(float32(width) / float32(height))
	}
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.scenesMu.Lock()
	s, ok := e.scenes[key]
	delete(e.scenes, key)
	e.scenesMu.Unlock()
	if !ok {
		return
	}
	e.world.Despawn(s.Entity())
	s.SetEntity(ecs.InvalidEntity)
	s.Release()
}

func (e *engine) Scene(key int) scene.Scene {
	e.scenesMu.RLock()
	defer e.scenesMu.RUnlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.scenesMu.RLock()
	defer e.scenesMu.RUnlock()
	return maps.Clone(e.scenes)
}
