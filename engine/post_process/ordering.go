package post_process

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-postpass/engine/core_3d"
	"github.com/Carmen-Shannon/oxy-postpass/engine/render_graph"
)

// Label is the render graph label of the post-process node.
const Label render_graph.Label = "post_process"

// Ordering selects where the post-process node runs relative to the main pass.
type Ordering int

const (
	// BeforeMainPass runs the node between the prepass and the start of the main pass,
	// so the main pass draws on top of the processed image.
	BeforeMainPass Ordering = iota

	// AfterMainPass runs the node after the main pass, before the post-processing stage ends,
	// so the processed image includes everything the main pass drew.
	AfterMainPass
)

func (o Ordering) String() string {
	switch o {
	case BeforeMainPass:
		return "before_main_pass"
	case AfterMainPass:
		return "after_main_pass"
	default:
		return fmt.Sprintf("ordering(%d)", int(o))
	}
}

// Edges returns the three labels to chain: the stage before the node, the node, and the
// stage after it.
func (o Ordering) Edges() []render_graph.Label {
	if o == AfterMainPass {
		return []render_graph.Label{core_3d.EndMainPass, Label, core_3d.EndMainPassPostProcessing}
	}
	return []render_graph.Label{core_3d.Prepass, Label, core_3d.StartMainPass}
}

// ParseOrdering parses the String form of an Ordering.
func ParseOrdering(s string) (Ordering, error) {
	switch s {
	case "", BeforeMainPass.String():
		return BeforeMainPass, nil
	case AfterMainPass.String():
		return AfterMainPass, nil
	default:
		return BeforeMainPass, fmt.Errorf("post_process: unknown ordering %q", s)
	}
}
