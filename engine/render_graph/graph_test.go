package render_graph_test

import (
	"errors"
	"testing"

	rg "github.com/Carmen-Shannon/oxy-postpass/engine/render_graph"
	"github.com/Carmen-Shannon/oxy-postpass/engine/render_graph/graphtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingNode(log *[]rg.Label) rg.Node {
	return rg.NodeFunc(func(ctx *rg.Context, _ rg.RenderContext) error {
		*log = append(*log, ctx.Label())
		return nil
	})
}

func TestOrderFollowsEdges(t *testing.T) {
	g := rg.NewGraph()
	var ran []rg.Label
	for _, l := range []rg.Label{"c", "a", "b"} {
		require.NoError(t, g.AddNode(l, recordingNode(&ran)))
	}
	require.NoError(t, g.AddNodeEdges("a", "b", "c"))

	order, err := g.Order()
	require.NoError(t, err)
	assert.Equal(t, []rg.Label{"a", "b", "c"}, order)

	require.NoError(t, g.Run(&rg.View{}, &graphtest.Recorder{}))
	assert.Equal(t, []rg.Label{"a", "b", "c"}, ran)
}

func TestOrderTieBreaksByInsertion(t *testing.T) {
	g := rg.NewGraph()
	for _, l := range []rg.Label{"x", "y", "z", "w"} {
		require.NoError(t, g.AddNode(l, rg.EmptyNode{}))
	}
	require.NoError(t, g.AddNodeEdge("w", "x"))

	for range 3 {
		order, err := g.Order()
		require.NoError(t, err)
		assert.Equal(t, []rg.Label{"y", "z", "w", "x"}, order)
	}
}

func TestAddNodeRejectsDuplicates(t *testing.T) {
	g := rg.NewGraph()
	require.NoError(t, g.AddNode("a", rg.EmptyNode{}))
	assert.ErrorIs(t, g.AddNode("a", rg.EmptyNode{}), rg.ErrNodeExists)
}

func TestEdgesRequireKnownNodes(t *testing.T) {
	g := rg.NewGraph()
	require.NoError(t, g.AddNode("a", rg.EmptyNode{}))
	assert.ErrorIs(t, g.AddNodeEdge("a", "missing"), rg.ErrNodeNotFound)
	assert.ErrorIs(t, g.AddNodeEdges("a", "missing"), rg.ErrNodeNotFound)
	assert.Empty(t, g.Edges())
}

func TestDuplicateEdgeIsIgnored(t *testing.T) {
	g := rg.NewGraph()
	require.NoError(t, g.AddNode("a", rg.EmptyNode{}))
	require.NoError(t, g.AddNode("b", rg.EmptyNode{}))
	require.NoError(t, g.AddNodeEdge("a", "b"))
	require.NoError(t, g.AddNodeEdge("a", "b"))
	assert.Equal(t, []rg.Edge{{From: "a", To: "b"}}, g.Edges())
	assert.True(t, g.HasEdge("a", "b"))
	assert.False(t, g.HasEdge("b", "a"))
}

func TestCycleIsReported(t *testing.T) {
	g := rg.NewGraph()
	require.NoError(t, g.AddNode("a", rg.EmptyNode{}))
	require.NoError(t, g.AddNode("b", rg.EmptyNode{}))
	require.NoError(t, g.AddNodeEdges("a", "b", "a"))

	_, err := g.Order()
	assert.ErrorIs(t, err, rg.ErrCycle)
	assert.ErrorIs(t, g.Run(&rg.View{}, &graphtest.Recorder{}), rg.ErrCycle)
}

func TestRunWrapsNodeErrors(t *testing.T) {
	boom := errors.New("boom")
	var ran []rg.Label
	g := rg.NewGraph()
	require.NoError(t, g.AddNode("ok", recordingNode(&ran)))
	require.NoError(t, g.AddNode("bad", rg.NodeFunc(func(*rg.Context, rg.RenderContext) error { return boom })))
	require.NoError(t, g.AddNode("after", recordingNode(&ran)))
	require.NoError(t, g.AddNodeEdges("ok", "bad", "after"))

	err := g.Run(&rg.View{}, &graphtest.Recorder{})
	require.Error(t, err)
	var nre *rg.NodeRunError
	require.ErrorAs(t, err, &nre)
	assert.Equal(t, rg.Label("bad"), nre.Label)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []rg.Label{"ok"}, ran)
}

func TestContextCarriesView(t *testing.T) {
	g := rg.NewGraph()
	view := &rg.View{Entity: 7}
	var seen *rg.View
	require.NoError(t, g.AddNode("n", rg.NodeFunc(func(ctx *rg.Context, _ rg.RenderContext) error {
		seen = ctx.View()
		assert.EqualValues(t, 7, ctx.ViewEntity())
		return nil
	})))
	require.NoError(t, g.Run(view, &graphtest.Recorder{}))
	assert.Same(t, view, seen)
}

func TestRange(t *testing.T) {
	assert.EqualValues(t, 3, rg.Range{Start: 0, End: 3}.Len())
	assert.EqualValues(t, 0, rg.Range{Start: 3, End: 1}.Len())
}
