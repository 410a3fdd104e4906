package shader

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrNoSource is returned by NewShader when neither a path nor inline source is given.
var ErrNoSource = errors.New("shader: no source")

// shader is the implementation of the Shader interface.
type shader struct {
	mu sync.RWMutex

	key     string
	path    string
	raw     string
	source  string
	version uint64

	reflection    *Reflection
	reflectionErr error

	pp PreProcessor
}

// Shader is a pre-processed WGSL module. Shaders loaded from a file can be reloaded in place.
type Shader interface {
	// Key returns the unique identifier of the shader. Pipelines reference shaders by key.
	Key() string

	// Path returns the file the source was read from, or "" for inline sources.
	Path() string

	// Source returns the pre-processed WGSL source.
	Source() string

	// Version increases every time Reload changes the source.
	Version() uint64

	// Module builds a shader module descriptor for the current source.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the descriptor labelled with the shader key
	Module() *wgpu.ShaderModuleDescriptor

	// Reflect validates the current source and describes its entry points and bindings.
	// The result is cached until the next Reload.
	//
	// Returns:
	//   - *Reflection: the module interface
	//   - error: an error wrapping ErrInvalidWGSL if the source does not compile
	Reflect() (*Reflection, error)

	// Declarations returns the binding declarations generated by the pre-processor.
	Declarations() []Annotation

	// Reload reads the source file again. It is a no-op for inline sources.
	//
	// Returns:
	//   - bool: true if the source changed
	//   - error: an error if the file cannot be read or pre-processed
	Reload() (bool, error)
}

var _ Shader = &shader{}

// NewShader creates a shader from the source given through options.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - options: source and struct registry options
//
// Returns:
//   - Shader: the loaded shader
//   - error: ErrNoSource, or an error reading or pre-processing the source
func NewShader(key string, options ...ShaderBuilderOption) (Shader, error) {
	s := &shader{key: key}
	var structs []StructSource
	for _, opt := range options {
		opt(s, &structs)
	}
	s.pp = NewPreProcessor(structs...)

	if s.path != "" {
		data, err := os.ReadFile(s.path)
		if err != nil {
			return nil, fmt.Errorf("shader %s: read %q: %w", key, s.path, err)
		}
		s.raw = string(data)
	}
	if s.raw == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoSource, key)
	}
	if _, err := s.setSource(s.raw); err != nil {
		return nil, err
	}
	return s, nil
}

// MustShader is NewShader that panics on error. It is meant for embedded sources.
func MustShader(key string, options ...ShaderBuilderOption) Shader {
	s, err := NewShader(key, options...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Path() string {
	return s.path
}

func (s *shader) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

func (s *shader) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return &wgpu.ShaderModuleDescriptor{
		Label: s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.Source(),
		},
	}
}

func (s *shader) Reflect() (*Reflection, error) {
	s.mu.RLock()
	if s.reflection != nil || s.reflectionErr != nil {
		defer s.mu.RUnlock()
		return s.reflection, s.reflectionErr
	}
	source, version := s.source, s.version
	s.mu.RUnlock()

	r, err := Reflect(source)
	if err != nil {
		err = fmt.Errorf("shader %s: %w", s.key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// a concurrent Reload owns the cache now
	if s.version == version {
		s.reflection, s.reflectionErr = r, err
	}
	return r, err
}

func (s *shader) Declarations() []Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pp.Declarations()
}

func (s *shader) Reload() (bool, error) {
	if s.path == "" {
		return false, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return false, fmt.Errorf("shader %s: read %q: %w", s.key, s.path, err)
	}
	return s.setSource(string(data))
}

func (s *shader) setSource(raw string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	source, err := s.pp.Process(raw)
	if err != nil {
		return false, fmt.Errorf("shader %s: pre-process: %w", s.key, err)
	}
	if source == s.source && s.version > 0 {
		return false, nil
	}
	s.raw = raw
	s.source = source
	s.version++
	s.reflection, s.reflectionErr = nil, nil
	return true, nil
}
