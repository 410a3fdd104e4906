package extract

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-postpass/engine/ecs"
	"github.com/cogentcore/webgpu/wgpu"
)

// UniformAlignment is the byte alignment of every uniform slot. It matches the WebGPU
// default minUniformBufferOffsetAlignment.
const UniformAlignment = 256

// ErrEmptyUniform is returned when a component reports a zero size.
var ErrEmptyUniform = errors.New("extract: uniform has zero size")

// Uniform is a component that can be uploaded to a uniform buffer.
type Uniform interface {
	// Size returns the byte size of the WGSL struct the value maps to.
	Size() int

	// Marshal returns the value laid out as the WGSL struct expects.
	Marshal() []byte
}

// GPU is the subset of device and queue operations needed to maintain a uniform buffer.
type GPU interface {
	CreateBuffer(desc *wgpu.BufferDescriptor) (*wgpu.Buffer, error)
	WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error
	ReleaseBuffer(buf *wgpu.Buffer)
}

// UniformBinding locates one entity's slot in a uniform buffer.
type UniformBinding struct {
	Buffer *wgpu.Buffer
	Offset uint64
	Size   uint64
}

// ComponentUniforms packs the extracted values of one component type into a single uniform
// buffer, one aligned slot per entity.
type ComponentUniforms[T Uniform] struct {
	mu sync.RWMutex

	label  string
	source *ComponentExtractor[T]

	buffer   *wgpu.Buffer
	capacity uint64
	bindings map[ecs.Entity]UniformBinding
	staging  []byte
}

// NewComponentUniforms creates a packer for the values held by source.
//
// Parameters:
//   - label: the debug label of the GPU buffer
//   - source: the extractor providing this frame's values
//
// Returns:
//   - *ComponentUniforms[T]: the packer
func NewComponentUniforms[T Uniform](label string, source *ComponentExtractor[T]) *ComponentUniforms[T] {
	return &ComponentUniforms[T]{
		label:    label,
		source:   source,
		bindings: make(map[ecs.Entity]UniformBinding),
	}
}

// AlignedSize rounds size up to UniformAlignment.
func AlignedSize(size uint64) uint64 {
	return (size + UniformAlignment - 1) / UniformAlignment * UniformAlignment
}

// Prepare packs this frame's values and uploads them, growing the buffer when needed.
// Bindings from the previous frame are dropped before anything else happens, so a failed
// upload leaves every entity without a binding.
//
// Parameters:
//   - gpu: the device/queue used to create and write the buffer
//
// Returns:
//   - error: an error if a value is empty or the buffer cannot be created or written
func (u *ComponentUniforms[T]) Prepare(gpu GPU) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	clear(u.bindings)

	type slot struct {
		entity ecs.Entity
		data   []byte
		size   uint64
	}
	var slots []slot
	var stride uint64
	for e, v := range u.source.All() {
		size := uint64(v.Size())
		if size == 0 {
			return fmt.Errorf("%w: entity %d", ErrEmptyUniform, e)
		}
		slots = append(slots, slot{entity: e, data: v.Marshal(), size: size})
		stride = max(stride, AlignedSize(size))
	}
	if len(slots) == 0 {
		return nil
	}

	needed := stride * uint64(len(slots))
	if needed > u.capacity {
		capacity := max(needed, 2*u.capacity)
		if u.buffer != nil {
			gpu.ReleaseBuffer(u.buffer)
			u.buffer = nil
			u.capacity = 0
		}
		buf, err := gpu.CreateBuffer(&wgpu.BufferDescriptor{
			Label: u.label,
			Size:  capacity,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create uniform buffer %q: %w", u.label, err)
		}
		u.buffer = buf
		u.capacity = capacity
	}

	if uint64(cap(u.staging)) < needed {
		u.staging = make([]byte, needed)
	}
	u.staging = u.staging[:needed]
	clear(u.staging)

	for i, s := range slots {
		offset := uint64(i) * stride
		copy(u.staging[offset:offset+s.size], s.data)
	}
	if err := gpu.WriteBuffer(u.buffer, 0, u.staging); err != nil {
		return fmt.Errorf("write uniform buffer %q: %w", u.label, err)
	}

	for i, s := range slots {
		u.bindings[s.entity] = UniformBinding{
			Buffer: u.buffer,
			Offset: uint64(i) * stride,
			Size:   s.size,
		}
	}
	return nil
}

// Binding returns e's slot in the uniform buffer. It is unavailable until Prepare has
// uploaded a value for e this frame.
func (u *ComponentUniforms[T]) Binding(e ecs.Entity) (UniformBinding, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	b, ok := u.bindings[e]
	return b, ok
}

// Buffer returns the current GPU buffer, or nil before the first upload.
func (u *ComponentUniforms[T]) Buffer() *wgpu.Buffer {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.buffer
}

// Release frees the GPU buffer.
func (u *ComponentUniforms[T]) Release(gpu GPU) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.buffer != nil {
		gpu.ReleaseBuffer(u.buffer)
	}
	u.buffer = nil
	u.capacity = 0
	clear(u.bindings)
}
