package shader_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-postpass/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var settingsStruct = shader.StructSource{
	Key:  "tint",
	Type: "Tint",
	Source: `struct Tint {
    color: vec4<f32>,
}`,
}

const tintShader = `//@oxy:include tint
//@oxy:group 0 2 storage_uniform tint tint
@group(0) @binding(0) var screen_texture: texture_2d<f32>;
@group(0) @binding(1) var texture_sampler: sampler;

@fragment
fn fragment(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    let src = textureSample(screen_texture, texture_sampler, uv);
    return mix(src, tint.color, vec4<f32>(uv.y));
}
`

func TestPreProcessorExpandsAnnotations(t *testing.T) {
	s, err := shader.NewShader("tint", shader.WithSource(tintShader), shader.WithStructs(settingsStruct))
	require.NoError(t, err)

	assert.Contains(t, s.Source(), "struct Tint {")
	assert.Contains(t, s.Source(), "@group(0) @binding(2) var<uniform> tint: Tint;")
	assert.NotContains(t, s.Source(), "@oxy:")

	decls := s.Declarations()
	require.Len(t, decls, 1)
	assert.Equal(t, shader.AnnotationTypeBindingGroup, decls[0].Type)
	assert.Equal(t, 2, *decls[0].Binding)
}

func TestPreProcessorRejectsUnknownStruct(t *testing.T) {
	_, err := shader.NewShader("bad", shader.WithSource("//@oxy:include missing\n"))
	assert.Error(t, err)

	_, err = shader.NewShader("bad", shader.WithSource("//@oxy:group 0 0 storage_uniform x missing\n"))
	assert.Error(t, err)

	_, err = shader.NewShader("bad", shader.WithSource("//@oxy:group zero 0 storage_uniform x tint\n"), shader.WithStructs(settingsStruct))
	assert.Error(t, err)
}

func TestIncludeIsEmittedOnce(t *testing.T) {
	pp := shader.NewPreProcessor(settingsStruct)
	out, err := pp.Process("//@oxy:include tint\n//@oxy:include tint\n")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "struct Tint"))
}

func TestNoSource(t *testing.T) {
	_, err := shader.NewShader("empty")
	assert.ErrorIs(t, err, shader.ErrNoSource)
}

func TestReflectDescribesEntryPointsAndBindings(t *testing.T) {
	s, err := shader.NewShader("tint", shader.WithSource(tintShader), shader.WithStructs(settingsStruct))
	require.NoError(t, err)

	r, err := s.Reflect()
	require.NoError(t, err)
	assert.True(t, r.HasEntryPoint("fragment", shader.StageFragment))
	assert.False(t, r.HasEntryPoint("fragment", shader.StageVertex))

	group := r.Group(0)
	require.Len(t, group, 3)
	kinds := map[uint32]shader.BindingKind{}
	for _, b := range group {
		kinds[b.Binding] = b.Kind
	}
	assert.Equal(t, shader.BindingKindTexture, kinds[0])
	assert.Equal(t, shader.BindingKindSampler, kinds[1])
	assert.Equal(t, shader.BindingKindUniform, kinds[2])
}

func TestReflectRejectsInvalidWGSL(t *testing.T) {
	s, err := shader.NewShader("broken", shader.WithSource("@fragment fn fragment( -> {"))
	require.NoError(t, err)
	_, err = s.Reflect()
	assert.ErrorIs(t, err, shader.ErrInvalidWGSL)
}

func TestReloadAndWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tint.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(tintShader), 0o644))

	s, err := shader.NewShader("tint", shader.WithSourceFromPath(path), shader.WithStructs(settingsStruct))
	require.NoError(t, err)
	assert.EqualValues(t, 1, s.Version())

	reloaded := make(chan shader.Shader, 4)
	w, err := shader.NewWatcher(func(s shader.Shader, err error) {
		if err == nil {
			reloaded <- s
		}
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch(s))

	updated := tintShader + "\n// tweaked\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	select {
	case got := <-reloaded:
		assert.Equal(t, "tint", got.Key())
	case <-time.After(5 * time.Second):
		t.Fatal("shader was not reloaded")
	}
	assert.Contains(t, s.Source(), "// tweaked")
	assert.Greater(t, s.Version(), uint64(1))
}

func TestWatchRequiresFile(t *testing.T) {
	w, err := shader.NewWatcher(func(shader.Shader, error) {})
	require.NoError(t, err)
	defer w.Close()

	s := shader.MustShader("inline", shader.WithSource("@fragment fn f() {}"))
	assert.ErrorIs(t, w.Watch(s), shader.ErrNotFileBacked)
	changed, err := s.Reload()
	assert.NoError(t, err)
	assert.False(t, changed)
}
