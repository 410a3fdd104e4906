package core_3d

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-postpass/engine/render_graph"
)

// NewGraph builds the fixed 3D stage chain. The main node runs at MainOpaquePass and the
// upscaling node at Upscaling; every other stage is an empty marker other nodes are
// ordered against.
//
// Parameters:
//   - main: the node rendering the view's drawables
//   - upscaling: the node copying the final image to the view's output
//
// Returns:
//   - *render_graph.Graph: the graph
//   - error: an error if the graph cannot be built
func NewGraph(main, upscaling render_graph.Node) (*render_graph.Graph, error) {
	g := render_graph.NewGraph()
	for _, label := range Stages {
		var node render_graph.Node = render_graph.EmptyNode{}
		switch label {
		case MainOpaquePass:
			node = main
		case Upscaling:
			node = upscaling
		}
		if err := g.AddNode(label, node); err != nil {
			return nil, fmt.Errorf("core_3d: %w", err)
		}
	}
	if err := g.AddNodeEdges(Stages...); err != nil {
		return nil, fmt.Errorf("core_3d: %w", err)
	}
	return g, nil
}
