package post_process

// PluginBuilderOption configures a Plugin.
type PluginBuilderOption func(*Plugin)

// WithOrdering selects where the node runs. The default is BeforeMainPass.
//
// Parameters:
//   - o: the ordering
//
// Returns:
//   - PluginBuilderOption: the option
func WithOrdering(o Ordering) PluginBuilderOption {
	return func(p *Plugin) {
		p.ordering = o
	}
}

// WithShaderPath loads the fragment shader from a WGSL file instead of the embedded one.
// The file is hot reloaded when the render app has a shader watcher.
//
// Parameters:
//   - path: the WGSL file path
//
// Returns:
//   - PluginBuilderOption: the option
func WithShaderPath(path string) PluginBuilderOption {
	return func(p *Plugin) {
		p.shaderPath = path
	}
}
