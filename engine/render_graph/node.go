// Package render_graph implements the per-view render graph: a set of named nodes
// connected by ordering edges and executed once per view per frame. Nodes only see
// the host services exposed through RenderContext, which keeps them independent of
// command encoding and lets them be exercised without a GPU.
package render_graph

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-postpass/engine/ecs"
	"github.com/cogentcore/webgpu/wgpu"
)

// Label names a node within a Graph.
type Label string

// Node is a single unit of per-view render work.
type Node interface {
	// Run encodes the node's work for the view in ctx.
	// Returning an error aborts the remaining nodes for this view.
	//
	// Parameters:
	//   - ctx: the graph context carrying the current view
	//   - rc: host services for creating bind groups and render passes
	//
	// Returns:
	//   - error: a host-defined failure, if any
	Run(ctx *Context, rc RenderContext) error
}

// NodeFunc adapts a plain function to the Node interface.
type NodeFunc func(ctx *Context, rc RenderContext) error

// Run calls f(ctx, rc).
func (f NodeFunc) Run(ctx *Context, rc RenderContext) error {
	return f(ctx, rc)
}

// EmptyNode does nothing. It marks fixed stages other nodes are ordered against.
type EmptyNode struct{}

// Run is a no-op.
func (EmptyNode) Run(*Context, RenderContext) error {
	return nil
}

// Context is handed to every node run. It is only valid for the duration of the run.
type Context struct {
	label Label
	view  *View
}

// Label returns the label of the node being run.
func (c *Context) Label() Label {
	return c.label
}

// View returns the view the graph is running for.
func (c *Context) View() *View {
	return c.view
}

// ViewEntity returns the entity of the view the graph is running for.
func (c *Context) ViewEntity() ecs.Entity {
	if c.view == nil {
		return ecs.InvalidEntity
	}
	return c.view.Entity
}

// NodeRunError wraps an error returned by a node with the node's label.
type NodeRunError struct {
	Label Label
	Err   error
}

func (e *NodeRunError) Error() string {
	return fmt.Sprintf("render graph: node %q: %v", e.Label, e.Err)
}

func (e *NodeRunError) Unwrap() error {
	return e.Err
}

// Range is a half-open [Start, End) range of vertices, indices or instances.
type Range struct {
	Start, End uint32
}

// Len returns End - Start, or 0 for an empty or inverted range.
func (r Range) Len() uint32 {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// RenderContext exposes the host services a node may use while encoding a frame.
type RenderContext interface {
	// CreateBindGroup creates a bind group that lives until the current frame is submitted.
	//
	// Parameters:
	//   - desc: the bind group descriptor
	//
	// Returns:
	//   - *wgpu.BindGroup: the created bind group
	//   - error: an error if creation fails
	CreateBindGroup(desc *wgpu.BindGroupDescriptor) (*wgpu.BindGroup, error)

	// BeginTrackedRenderPass begins a render pass on the frame's command encoder.
	// The returned pass must be ended before the node returns.
	//
	// Parameters:
	//   - desc: the render pass descriptor
	//
	// Returns:
	//   - TrackedRenderPass: the pass to record commands into
	BeginTrackedRenderPass(desc *wgpu.RenderPassDescriptor) TrackedRenderPass
}

// TrackedRenderPass records draw commands for one render pass.
type TrackedRenderPass interface {
	SetRenderPipeline(p *wgpu.RenderPipeline)
	SetBindGroup(index uint32, group *wgpu.BindGroup, dynamicOffsets []uint32)
	SetVertexBuffer(slot uint32, buf *wgpu.Buffer)
	SetIndexBuffer(buf *wgpu.Buffer, format wgpu.IndexFormat)

	// Draw issues a non-indexed draw over the given vertex and instance ranges.
	Draw(vertices, instances Range)

	// DrawIndexed issues an indexed draw over the given index and instance ranges.
	DrawIndexed(indices, instances Range, baseVertex int32)

	// End finishes the pass. No commands may be recorded afterwards.
	End()
}
