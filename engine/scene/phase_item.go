package scene

import (
	"github.com/Carmen-Shannon/oxy-postpass/engine/render_graph"
	"github.com/cogentcore/webgpu/wgpu"
)

// meshItem draws one game object with the shared mesh pipeline.
type meshItem struct {
	pipeline   *MeshPipeline
	camera     *wgpu.BindGroup
	object     *wgpu.BindGroup
	vertex     *wgpu.Buffer
	index      *wgpu.Buffer
	indexCount uint32
}

var _ render_graph.PhaseItem = meshItem{}

// Draw records the indexed draw. Nothing is recorded while the pipeline is still compiling.
func (m meshItem) Draw(pass render_graph.TrackedRenderPass, _ *render_graph.View) {
	rp, ok := m.pipeline.Ready()
	if !ok {
		return
	}
	pass.SetRenderPipeline(rp)
	pass.SetBindGroup(0, m.camera, nil)
	pass.SetBindGroup(1, m.object, nil)
	pass.SetVertexBuffer(0, m.vertex)
	pass.SetIndexBuffer(m.index, wgpu.IndexFormatUint32)
	pass.DrawIndexed(render_graph.Range{End: m.indexCount}, render_graph.Range{End: 1}, 0)
}
