// Package graphtest provides a recording RenderContext for exercising render graph
// nodes without a GPU device.
package graphtest

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-postpass/engine/render_graph"
	"github.com/cogentcore/webgpu/wgpu"
)

// DrawCall is one recorded Draw or DrawIndexed call.
type DrawCall struct {
	Indexed    bool
	Vertices   render_graph.Range
	Instances  render_graph.Range
	BaseVertex int32
}

// Pass is a recorded render pass.
type Pass struct {
	Descriptor *wgpu.RenderPassDescriptor
	Pipeline   *wgpu.RenderPipeline
	BindGroups map[uint32]*wgpu.BindGroup
	Draws      []DrawCall
	Ended      bool
}

// Recorder implements render_graph.RenderContext by recording every call.
// Bind groups it creates are empty placeholders; their descriptors are kept in BindGroups.
type Recorder struct {
	mu sync.Mutex

	// BindGroups holds the descriptor of every bind group created, in order.
	BindGroups []*wgpu.BindGroupDescriptor

	// Passes holds every pass begun, in order.
	Passes []*Pass

	// BindGroupErr, when set, is returned by CreateBindGroup.
	BindGroupErr error
}

var _ render_graph.RenderContext = (*Recorder)(nil)

// CreateBindGroup records desc and returns a placeholder bind group.
func (r *Recorder) CreateBindGroup(desc *wgpu.BindGroupDescriptor) (*wgpu.BindGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.BindGroupErr != nil {
		return nil, r.BindGroupErr
	}
	r.BindGroups = append(r.BindGroups, desc)
	return &wgpu.BindGroup{}, nil
}

// BeginTrackedRenderPass records desc and returns a recording pass.
func (r *Recorder) BeginTrackedRenderPass(desc *wgpu.RenderPassDescriptor) render_graph.TrackedRenderPass {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := &Pass{Descriptor: desc, BindGroups: make(map[uint32]*wgpu.BindGroup)}
	r.Passes = append(r.Passes, p)
	return &trackedPass{pass: p}
}

// Draws returns every draw call recorded across all passes.
func (r *Recorder) Draws() []DrawCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []DrawCall
	for _, p := range r.Passes {
		out = append(out, p.Draws...)
	}
	return out
}

// Reset discards everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.BindGroups = nil
	r.Passes = nil
}

type trackedPass struct {
	pass *Pass
}

func (t *trackedPass) SetRenderPipeline(p *wgpu.RenderPipeline) {
	t.pass.Pipeline = p
}

func (t *trackedPass) SetBindGroup(index uint32, group *wgpu.BindGroup, _ []uint32) {
	t.pass.BindGroups[index] = group
}

func (t *trackedPass) SetVertexBuffer(uint32, *wgpu.Buffer) {}

func (t *trackedPass) SetIndexBuffer(*wgpu.Buffer, wgpu.IndexFormat) {}

func (t *trackedPass) Draw(vertices, instances render_graph.Range) {
	t.pass.Draws = append(t.pass.Draws, DrawCall{Vertices: vertices, Instances: instances})
}

func (t *trackedPass) DrawIndexed(indices, instances render_graph.Range, baseVertex int32) {
	t.pass.Draws = append(t.pass.Draws, DrawCall{Indexed: true, Vertices: indices, Instances: instances, BaseVertex: baseVertex})
}

func (t *trackedPass) End() {
	t.pass.Ended = true
}
