package renderer

import (
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-postpass/engine/render_graph"
	"github.com/cogentcore/webgpu/wgpu"
)

// encoderContext is the RenderContext handed to graph nodes for one frame. Every pass it begins
// records into the frame's command encoder. Bind groups created through it live until the frame
// has been submitted.
type encoderContext struct {
	mu        sync.Locker
	device    *wgpu.Device
	encoder   *wgpu.CommandEncoder
	transient []*wgpu.BindGroup
}

var _ render_graph.RenderContext = &encoderContext{}

func (c *encoderContext) CreateBindGroup(desc *wgpu.BindGroupDescriptor) (*wgpu.BindGroup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bg, err := c.device.CreateBindGroup(desc)
	if err != nil {
		return nil, err
	}
	c.transient = append(c.transient, bg)
	return bg, nil
}

func (c *encoderContext) BeginTrackedRenderPass(desc *wgpu.RenderPassDescriptor) render_graph.TrackedRenderPass {
	return &trackedPass{
		pass:  c.encoder.BeginRenderPass(desc),
		state: newDrawState(),
	}
}

// release drops the frame's transient bind groups. Called after the command buffer is submitted.
func (c *encoderContext) release() {
	for _, bg := range c.transient {
		bg.Release()
	}
	c.transient = nil
}

// trackedPass forwards to a render pass encoder, skipping state changes that would not change anything.
type trackedPass struct {
	pass  *wgpu.RenderPassEncoder
	state *drawState
}

var _ render_graph.TrackedRenderPass = &trackedPass{}

func (p *trackedPass) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	if p.state.setPipeline(rp) {
		p.pass.SetPipeline(rp)
	}
}

func (p *trackedPass) SetBindGroup(index uint32, group *wgpu.BindGroup, dynamicOffsets []uint32) {
	if p.state.setBindGroup(index, group, dynamicOffsets) {
		p.pass.SetBindGroup(index, group, dynamicOffsets)
	}
}

func (p *trackedPass) SetVertexBuffer(slot uint32, buf *wgpu.Buffer) {
	if p.state.setVertexBuffer(slot, buf) {
		p.pass.SetVertexBuffer(slot, buf, 0, wgpu.WholeSize)
	}
}

func (p *trackedPass) SetIndexBuffer(buf *wgpu.Buffer, format wgpu.IndexFormat) {
	if p.state.setIndexBuffer(buf, format) {
		p.pass.SetIndexBuffer(buf, format, 0, wgpu.WholeSize)
	}
}

func (p *trackedPass) Draw(vertices, instances render_graph.Range) {
	p.pass.Draw(vertices.Len(), instances.Len(), vertices.Start, instances.Start)
}

func (p *trackedPass) DrawIndexed(indices, instances render_graph.Range, baseVertex int32) {
	p.pass.DrawIndexed(indices.Len(), instances.Len(), indices.Start, baseVertex, instances.Start)
}

func (p *trackedPass) End() {
	p.pass.End()
}

type boundGroup struct {
	group   *wgpu.BindGroup
	offsets []uint32
}

// drawState remembers what is bound on a pass. Each setter reports whether the encoder needs the call.
type drawState struct {
	pipeline    *wgpu.RenderPipeline
	bindGroups  map[uint32]boundGroup
	vertex      map[uint32]*wgpu.Buffer
	index       *wgpu.Buffer
	indexFormat wgpu.IndexFormat
}

func newDrawState() *drawState {
	return &drawState{
		bindGroups: make(map[uint32]boundGroup),
		vertex:     make(map[uint32]*wgpu.Buffer),
	}
}

func (s *drawState) setPipeline(rp *wgpu.RenderPipeline) bool {
	if s.pipeline == rp {
		return false
	}
	s.pipeline = rp
	return true
}

func (s *drawState) setBindGroup(index uint32, group *wgpu.BindGroup, offsets []uint32) bool {
	if cur, ok := s.bindGroups[index]; ok && cur.group == group && slices.Equal(cur.offsets, offsets) {
		return false
	}
	s.bindGroups[index] = boundGroup{group: group, offsets: slices.Clone(offsets)}
	return true
}

func (s *drawState) setVertexBuffer(slot uint32, buf *wgpu.Buffer) bool {
	if cur, ok := s.vertex[slot]; ok && cur == buf {
		return false
	}
	s.vertex[slot] = buf
	return true
}

func (s *drawState) setIndexBuffer(buf *wgpu.Buffer, format wgpu.IndexFormat) bool {
	if s.index == buf && s.indexFormat == format {
		return false
	}
	s.index = buf
	s.indexFormat = format
	return true
}
