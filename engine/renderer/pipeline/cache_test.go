package pipeline_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const solidFragment = `//@oxy:include fullscreen_vertex_output

@fragment
fn fragment(in: FullscreenVertexOutput) -> @location(0) vec4<f32> {
    return vec4<f32>(in.uv, 0.0, 1.0);
}
`

type fakeCompiler struct {
	mu       sync.Mutex
	compiled []string
	released int
	err      error
}

func (f *fakeCompiler) CompileRenderPipeline(desc *pipeline.RenderPipelineDescriptor) (*wgpu.RenderPipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.compiled = append(f.compiled, desc.Label)
	return &wgpu.RenderPipeline{}, nil
}

func (f *fakeCompiler) ReleaseRenderPipeline(*wgpu.RenderPipeline) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released++
}

func (f *fakeCompiler) compileCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.compiled)
}

func fullscreenDescriptor(t *testing.T, fragment shader.Shader) *pipeline.RenderPipelineDescriptor {
	t.Helper()
	return pipeline.NewRenderPipelineDescriptor("test",
		pipeline.WithVertexState(pipeline.FullscreenVertexState()),
		pipeline.WithFragmentShader(fragment, "fragment", pipeline.ColorTarget(wgpu.TextureFormatRGBA8UnormSrgb)),
		pipeline.WithoutDepthStencil(),
	)
}

func inlineShader(t *testing.T, key, source string) shader.Shader {
	t.Helper()
	s, err := shader.NewShader(key, shader.WithSource(source), shader.WithStructs(pipeline.FullscreenVertexOutput))
	require.NoError(t, err)
	return s
}

func TestFullscreenShaderIsValid(t *testing.T) {
	r, err := pipeline.FullscreenShader().Reflect()
	require.NoError(t, err)
	assert.True(t, r.HasEntryPoint(pipeline.FullscreenEntryPoint, shader.StageVertex))
	assert.Empty(t, r.Bindings)
	assert.Empty(t, pipeline.FullscreenVertexState().Buffers)
}

func TestReadyOnlyAfterProcessQueue(t *testing.T) {
	compiler := &fakeCompiler{}
	cache := pipeline.NewCache(compiler, 2)
	t.Cleanup(cache.Release)
	id := cache.QueueRenderPipeline(fullscreenDescriptor(t, inlineShader(t, "solid", solidFragment)))

	cache.Wait()
	assert.Equal(t, 1, compiler.compileCount())
	_, ok := cache.RenderPipeline(id)
	assert.False(t, ok)

	cache.ProcessQueue()
	p, ok := cache.RenderPipeline(id)
	assert.True(t, ok)
	assert.NotNil(t, p)
	state, err := cache.State(id)
	assert.Equal(t, pipeline.StateReady, state)
	assert.NoError(t, err)
}

func TestInvalidWGSLFails(t *testing.T) {
	compiler := &fakeCompiler{}
	cache := pipeline.NewCache(compiler, 1)
	t.Cleanup(cache.Release)
	id := cache.QueueRenderPipeline(fullscreenDescriptor(t, inlineShader(t, "broken", "@fragment fn fragment( -> {")))

	cache.Wait()
	cache.ProcessQueue()
	_, ok := cache.RenderPipeline(id)
	assert.False(t, ok)
	state, err := cache.State(id)
	assert.Equal(t, pipeline.StateFailed, state)
	assert.ErrorIs(t, err, shader.ErrInvalidWGSL)
	assert.Zero(t, compiler.compileCount(), "invalid WGSL never reaches the backend")

	cache.ProcessQueue()
	_, ok = cache.RenderPipeline(id)
	assert.False(t, ok)
}

func TestMissingEntryPointFails(t *testing.T) {
	cache := pipeline.NewCache(&fakeCompiler{}, 1)
	t.Cleanup(cache.Release)
	desc := pipeline.NewRenderPipelineDescriptor("test",
		pipeline.WithVertexState(pipeline.FullscreenVertexState()),
		pipeline.WithFragmentShader(inlineShader(t, "solid", solidFragment), "shade"),
	)
	id := cache.QueueRenderPipeline(desc)
	cache.Wait()
	cache.ProcessQueue()

	state, err := cache.State(id)
	assert.Equal(t, pipeline.StateFailed, state)
	assert.ErrorIs(t, err, pipeline.ErrMissingEntryPoint)
}

func TestCompilerErrorFails(t *testing.T) {
	boom := errors.New("device lost")
	cache := pipeline.NewCache(&fakeCompiler{err: boom}, 1)
	t.Cleanup(cache.Release)
	id := cache.QueueRenderPipeline(fullscreenDescriptor(t, inlineShader(t, "solid", solidFragment)))
	cache.Wait()
	cache.ProcessQueue()

	state, err := cache.State(id)
	assert.Equal(t, pipeline.StateFailed, state)
	assert.ErrorIs(t, err, boom)
}

func TestInvalidateRecompiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "solid.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(solidFragment), 0o644))
	frag, err := shader.NewShader("solid", shader.WithSourceFromPath(path), shader.WithStructs(pipeline.FullscreenVertexOutput))
	require.NoError(t, err)

	compiler := &fakeCompiler{}
	cache := pipeline.NewCache(compiler, 1)
	t.Cleanup(cache.Release)
	id := cache.QueueRenderPipeline(fullscreenDescriptor(t, frag))
	other := cache.QueueRenderPipeline(fullscreenDescriptor(t, inlineShader(t, "other", solidFragment)))
	cache.Wait()
	cache.ProcessQueue()
	_, ok := cache.RenderPipeline(id)
	require.True(t, ok)

	// break the shader on disk and reload it
	require.NoError(t, os.WriteFile(path, []byte("@fragment fn fragment( -> {"), 0o644))
	changed, err := frag.Reload()
	require.NoError(t, err)
	require.True(t, changed)

	cache.Invalidate("solid")
	cache.ProcessQueue()
	_, ok = cache.RenderPipeline(id)
	assert.False(t, ok, "invalidated pipeline is not ready until recompiled")
	_, ok = cache.RenderPipeline(other)
	assert.True(t, ok, "pipelines using other shaders are untouched")

	cache.Wait()
	cache.ProcessQueue()
	state, err := cache.State(id)
	assert.Equal(t, pipeline.StateFailed, state)
	assert.ErrorIs(t, err, shader.ErrInvalidWGSL)

	// fix it again
	require.NoError(t, os.WriteFile(path, []byte(solidFragment), 0o644))
	_, err = frag.Reload()
	require.NoError(t, err)
	cache.Invalidate("solid")
	cache.ProcessQueue()
	cache.Wait()
	cache.ProcessQueue()
	_, ok = cache.RenderPipeline(id)
	assert.True(t, ok)
	assert.GreaterOrEqual(t, compiler.released, 1)
}

func TestUnknownID(t *testing.T) {
	cache := pipeline.NewCache(&fakeCompiler{}, 1)
	t.Cleanup(cache.Release)
	_, ok := cache.RenderPipeline(42)
	assert.False(t, ok)
	state, err := cache.State(42)
	assert.Equal(t, pipeline.StateFailed, state)
	assert.Error(t, err)
}

func TestDescriptorDefaults(t *testing.T) {
	d := pipeline.NewRenderPipelineDescriptor("mesh", pipeline.WithCullMode(wgpu.CullModeBack), pipeline.WithDepthWriteEnabled(false))
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, d.Primitive.Topology)
	assert.Equal(t, wgpu.CullModeBack, d.Primitive.CullMode)
	require.NotNil(t, d.DepthStencil)
	assert.False(t, d.DepthStencil.DepthWriteEnabled)
	assert.Equal(t, pipeline.DepthFormat, d.DepthStencil.Format)
	assert.EqualValues(t, 1, d.Multisample.Count)
}

func TestReleaseStopsTheCache(t *testing.T) {
	compiler := &fakeCompiler{}
	cache := pipeline.NewCache(compiler, 2)
	id := cache.QueueRenderPipeline(fullscreenDescriptor(t, inlineShader(t, "solid", solidFragment)))
	cache.Wait()
	cache.ProcessQueue()
	_, ok := cache.RenderPipeline(id)
	require.True(t, ok)

	cache.Release()
	cache.Release()
	assert.Equal(t, 1, compiler.released, "compiled pipelines are freed once")
	_, ok = cache.RenderPipeline(id)
	assert.False(t, ok)

	late := cache.QueueRenderPipeline(fullscreenDescriptor(t, inlineShader(t, "late", solidFragment)))
	cache.Wait()
	cache.ProcessQueue()
	state, err := cache.State(late)
	assert.Equal(t, pipeline.StateFailed, state)
	assert.ErrorIs(t, err, pipeline.ErrCacheReleased)
	assert.Equal(t, 1, compiler.compileCount(), "nothing compiles after release")
}
