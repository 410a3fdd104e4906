package shader

// ShaderBuilderOption configures a shader created by NewShader.
type ShaderBuilderOption func(s *shader, structs *[]StructSource)

// WithSourceFromPath reads the WGSL source from path. Shaders read from a file can be
// reloaded and watched.
//
// Parameters:
//   - path: the WGSL file path
//
// Returns:
//   - ShaderBuilderOption: the option
func WithSourceFromPath(path string) ShaderBuilderOption {
	return func(s *shader, _ *[]StructSource) {
		s.path = path
	}
}

// WithSource uses an inline WGSL source, typically an embedded asset.
//
// Parameters:
//   - source: the WGSL source
//
// Returns:
//   - ShaderBuilderOption: the option
func WithSource(source string) ShaderBuilderOption {
	return func(s *shader, _ *[]StructSource) {
		s.raw = source
	}
}

// WithStructs makes structs available to @oxy:include and @oxy:group annotations.
//
// Parameters:
//   - structs: the struct sources to register
//
// Returns:
//   - ShaderBuilderOption: the option
func WithStructs(structs ...StructSource) ShaderBuilderOption {
	return func(_ *shader, out *[]StructSource) {
		*out = append(*out, structs...)
	}
}
