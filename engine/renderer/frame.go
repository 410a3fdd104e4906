package renderer

import (
	"cmp"
	"slices"

	"github.com/Carmen-Shannon/oxy-postpass/engine/render_graph"
	"github.com/cogentcore/webgpu/wgpu"
)

// prepareViews returns the views in render order (lowest Order first, ties keep submission order),
// points each at the frame's output and resets every distinct target once. Views left without a
// target are dropped.
//
// Parameters:
//   - views: the views submitted for this frame
//   - target: the surface's view target, used by views that have none
//   - output: the swapchain view acquired for this frame
//   - outputFormat: the swapchain format
//
// Returns:
//   - []*render_graph.View: the views in render order
func prepareViews(views []*render_graph.View, target *render_graph.ViewTarget, output *wgpu.TextureView, outputFormat wgpu.TextureFormat) []*render_graph.View {
	ordered := slices.Clone(views)
	slices.SortStableFunc(ordered, func(a, b *render_graph.View) int {
		return cmp.Compare(a.Order, b.Order)
	})

	seen := make(map[*render_graph.ViewTarget]struct{}, 1)
	ordered = slices.DeleteFunc(ordered, func(v *render_graph.View) bool {
		return v.Target == nil && target == nil
	})
	for _, v := range ordered {
		if v.Target == nil {
			v.Target = target
		}
		v.Output = output
		v.OutputFormat = outputFormat
		if _, ok := seen[v.Target]; !ok {
			seen[v.Target] = struct{}{}
			v.Target.BeginFrame()
		}
	}
	return ordered
}
