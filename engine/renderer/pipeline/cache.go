package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-postpass/common"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrMissingEntryPoint is reported when a stage names an entry point its shader lacks.
	ErrMissingEntryPoint = errors.New("pipeline: entry point not found")

	// ErrNoVertexShader is reported for descriptors without a vertex shader.
	ErrNoVertexShader = errors.New("pipeline: vertex shader not set")

	// ErrCacheReleased is the error of pipelines queued after Release.
	ErrCacheReleased = errors.New("pipeline: cache released")
)

// CachedPipelineID identifies a pipeline queued on a Cache.
type CachedPipelineID uint64

// State is the compilation state of a cached pipeline.
type State int

const (
	StateQueued State = iota
	StateCompiling
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateCompiling:
		return "compiling"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Compiler turns a validated descriptor into a GPU pipeline. The renderer backend implements it.
type Compiler interface {
	CompileRenderPipeline(desc *RenderPipelineDescriptor) (*wgpu.RenderPipeline, error)
	ReleaseRenderPipeline(p *wgpu.RenderPipeline)
}

type cacheEntry struct {
	desc       *RenderPipelineDescriptor
	state      State
	err        error
	pipeline   *wgpu.RenderPipeline
	generation uint64
}

type compileJob struct {
	id         CachedPipelineID
	generation uint64
	desc       *RenderPipelineDescriptor
}

type compileResult struct {
	id         CachedPipelineID
	generation uint64
	pipeline   *wgpu.RenderPipeline
	err        error
}

// Cache compiles render pipelines on a worker pool. Compiled pipelines only become visible
// to RenderPipeline after ProcessQueue, which the renderer calls once at the start of a frame.
type Cache struct {
	compiler Compiler
	pool     worker.DynamicWorkerPool
	inflight sync.WaitGroup

	mu          sync.Mutex
	entries     []*cacheEntry
	finished    []compileResult
	invalidated map[string]bool
	released    bool
}

// NewCache creates a cache compiling through compiler.
//
// Parameters:
//   - compiler: the backend that creates GPU pipelines
//   - workers: the number of compile workers
//
// Returns:
//   - *Cache: the cache
func NewCache(compiler Compiler, workers int) *Cache {
	return &Cache{
		compiler:    compiler,
		pool:        worker.NewDynamicWorkerPool(max(workers, 1), 64, 1*time.Second),
		invalidated: make(map[string]bool),
	}
}

// QueueRenderPipeline queues desc for compilation and returns its id immediately.
//
// Parameters:
//   - desc: the pipeline descriptor; it must not be modified afterwards
//
// Returns:
//   - CachedPipelineID: the id to look the pipeline up with
func (c *Cache) QueueRenderPipeline(desc *RenderPipelineDescriptor) CachedPipelineID {
	c.mu.Lock()
	id := CachedPipelineID(len(c.entries))
	e := &cacheEntry{desc: desc, state: StateQueued}
	c.entries = append(c.entries, e)
	c.mu.Unlock()

	c.submit(id, e.generation, desc)
	return id
}

// RenderPipeline returns the compiled pipeline for id, or false while it is not ready.
//
// Parameters:
//   - id: the id returned by QueueRenderPipeline
//
// Returns:
//   - *wgpu.RenderPipeline: the compiled pipeline
//   - bool: true if the pipeline is ready
func (c *Cache) RenderPipeline(id CachedPipelineID) (*wgpu.RenderPipeline, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int(id) >= len(c.entries) {
		return nil, false
	}
	e := c.entries[id]
	if e.state != StateReady {
		return nil, false
	}
	return e.pipeline, true
}

// State returns the compilation state of id and, for StateFailed, the error.
func (c *Cache) State(id CachedPipelineID) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int(id) >= len(c.entries) {
		return StateFailed, fmt.Errorf("pipeline: unknown id %d", id)
	}
	e := c.entries[id]
	return e.state, e.err
}

// Descriptor returns the descriptor queued under id.
func (c *Cache) Descriptor(id CachedPipelineID) (*RenderPipelineDescriptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int(id) >= len(c.entries) {
		return nil, false
	}
	return c.entries[id].desc, true
}

// Invalidate marks every pipeline using the shader with key for recompilation. The pipelines
// stop being ready at the next ProcessQueue and become ready again once recompiled.
// It is safe to call from any goroutine.
//
// Parameters:
//   - shaderKey: the key of the changed shader
func (c *Cache) Invalidate(shaderKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated[shaderKey] = true
}

// ProcessQueue applies pending invalidations and publishes finished compilations.
// It must be called from the render goroutine, outside of any frame encoding.
func (c *Cache) ProcessQueue() {
	log := common.Logger()

	c.mu.Lock()
	var requeue []CachedPipelineID
	var stale []*wgpu.RenderPipeline
	for key := range c.invalidated {
		for i, e := range c.entries {
			if !e.desc.UsesShader(key) {
				continue
			}
			if e.pipeline != nil {
				stale = append(stale, e.pipeline)
				e.pipeline = nil
			}
			e.generation++
			e.state = StateQueued
			e.err = nil
			requeue = append(requeue, CachedPipelineID(i))
		}
	}
	clear(c.invalidated)

	finished := c.finished
	c.finished = nil
	for _, r := range finished {
		e := c.entries[r.id]
		if r.generation != e.generation {
			// superseded by an invalidation
			if r.pipeline != nil {
				stale = append(stale, r.pipeline)
			}
			continue
		}
		if r.err != nil {
			e.state = StateFailed
			e.err = r.err
			log.Warn("pipeline compilation failed", slog.String("label", e.desc.Label), slog.Any("error", r.err))
			continue
		}
		e.state = StateReady
		e.pipeline = r.pipeline
		log.Info("pipeline ready", slog.String("label", e.desc.Label))
	}

	jobs := make([]compileJob, 0, len(requeue))
	for _, id := range requeue {
		e := c.entries[id]
		jobs = append(jobs, compileJob{id: id, generation: e.generation, desc: e.desc})
	}
	c.mu.Unlock()

	for _, p := range stale {
		c.compiler.ReleaseRenderPipeline(p)
	}
	for _, j := range jobs {
		log.Debug("pipeline requeued", slog.String("label", j.desc.Label))
		c.submit(j.id, j.generation, j.desc)
	}
}

// Wait blocks until every submitted compilation has finished. Results still need a
// ProcessQueue call to become visible.
func (c *Cache) Wait() {
	c.inflight.Wait()
}

// Release waits for in-flight compilations, stops the worker pool and frees every compiled
// pipeline. Pipelines queued afterwards fail with ErrCacheReleased.
func (c *Cache) Release() {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return
	}
	c.released = true
	c.mu.Unlock()

	c.Wait()
	c.pool.Stop()

	c.mu.Lock()
	var owned []*wgpu.RenderPipeline
	for _, e := range c.entries {
		if e.pipeline != nil {
			owned = append(owned, e.pipeline)
			e.pipeline = nil
		}
		e.state = StateFailed
		e.err = ErrCacheReleased
	}
	for _, r := range c.finished {
		if r.pipeline != nil {
			owned = append(owned, r.pipeline)
		}
	}
	c.finished = nil
	c.mu.Unlock()

	for _, p := range owned {
		c.compiler.ReleaseRenderPipeline(p)
	}
}

func (c *Cache) submit(id CachedPipelineID, generation uint64, desc *RenderPipelineDescriptor) {
	c.mu.Lock()
	if c.released {
		e := c.entries[id]
		e.state = StateFailed
		e.err = ErrCacheReleased
		c.mu.Unlock()
		return
	}
	c.inflight.Add(1)
	c.mu.Unlock()
	c.pool.SubmitTask(worker.Task{
		ID: int(id),
		Do: func() (any, error) {
			defer c.inflight.Done()

			c.setCompiling(id, generation)
			p, err := c.compile(desc)
			c.mu.Lock()
			c.finished = append(c.finished, compileResult{id: id, generation: generation, pipeline: p, err: err})
			c.mu.Unlock()
			return nil, err
		},
	})
}

func (c *Cache) setCompiling(id CachedPipelineID, generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[id]
	if e.generation == generation && e.state == StateQueued {
		e.state = StateCompiling
	}
}

// compile validates every stage with naga before handing the descriptor to the backend,
// so malformed WGSL never reaches the device.
func (c *Cache) compile(desc *RenderPipelineDescriptor) (*wgpu.RenderPipeline, error) {
	if desc.Vertex.Shader == nil {
		return nil, fmt.Errorf("%s: %w", desc.Label, ErrNoVertexShader)
	}
	if err := validateStage(desc.Vertex.Shader, desc.Vertex.EntryPoint, shader.StageVertex); err != nil {
		return nil, fmt.Errorf("%s: %w", desc.Label, err)
	}
	if desc.Fragment != nil {
		if err := validateStage(desc.Fragment.Shader, desc.Fragment.EntryPoint, shader.StageFragment); err != nil {
			return nil, fmt.Errorf("%s: %w", desc.Label, err)
		}
	}
	p, err := c.compiler.CompileRenderPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", desc.Label, err)
	}
	return p, nil
}

func validateStage(s shader.Shader, entryPoint string, stage shader.Stage) error {
	if s == nil {
		return fmt.Errorf("%s shader not set", stage)
	}
	r, err := s.Reflect()
	if err != nil {
		return err
	}
	if !r.HasEntryPoint(entryPoint, stage) {
		return fmt.Errorf("%w: %s entry point %q in shader %s", ErrMissingEntryPoint, stage, entryPoint, s.Key())
	}
	return nil
}
