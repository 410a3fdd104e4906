package render_graph

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	// ErrNodeExists is returned when adding a node under a label already in use.
	ErrNodeExists = errors.New("render graph: node already exists")

	// ErrNodeNotFound is returned when an edge references an unknown label.
	ErrNodeNotFound = errors.New("render graph: node not found")

	// ErrCycle is returned when the edges do not form a DAG.
	ErrCycle = errors.New("render graph: cycle detected")
)

// Edge orders From before To.
type Edge struct {
	From, To Label
}

// Graph is a set of labelled nodes plus ordering edges. It is built once during setup
// and run once per view per frame.
type Graph struct {
	mu sync.RWMutex

	nodes  map[Label]Node
	labels []Label
	edges  []Edge

	// order caches the topological order until the graph changes.
	order []Label
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[Label]Node),
	}
}

// AddNode adds node under label.
//
// Parameters:
//   - label: the unique label of the node
//   - node: the node to run
//
// Returns:
//   - error: ErrNodeExists if label is taken
func (g *Graph) AddNode(label Label, node Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[label]; ok {
		return fmt.Errorf("%w: %q", ErrNodeExists, label)
	}
	g.nodes[label] = node
	g.labels = append(g.labels, label)
	g.order = nil
	return nil
}

// HasNode reports whether a node is registered under label.
func (g *Graph) HasNode(label Label) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[label]
	return ok
}

// Node returns the node registered under label.
func (g *Graph) Node(label Label) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[label]
	return n, ok
}

// AddNodeEdge orders from before to. Adding an existing edge again is a no-op.
//
// Parameters:
//   - from: the label that runs first
//   - to: the label that runs after from
//
// Returns:
//   - error: ErrNodeNotFound if either label is unknown
func (g *Graph) AddNodeEdge(from, to Label) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addEdgeLocked(from, to)
}

// AddNodeEdges chains labels so that each runs before the next.
// Nothing is added if any label is unknown.
//
// Parameters:
//   - labels: the labels in run order
//
// Returns:
//   - error: ErrNodeNotFound if any label is unknown
func (g *Graph) AddNodeEdges(labels ...Label) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, l := range labels {
		if _, ok := g.nodes[l]; !ok {
			return fmt.Errorf("%w: %q", ErrNodeNotFound, l)
		}
	}
	for i := 0; i+1 < len(labels); i++ {
		if err := g.addEdgeLocked(labels[i], labels[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) addEdgeLocked(from, to Label) error {
	if _, ok := g.nodes[from]; !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, from)
	}
	if _, ok := g.nodes[to]; !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, to)
	}
	e := Edge{From: from, To: to}
	if slices.Contains(g.edges, e) {
		return nil
	}
	g.edges = append(g.edges, e)
	g.order = nil
	return nil
}

// Edges returns a copy of the graph's edges in insertion order.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.edges)
}

// HasEdge reports whether from is directly ordered before to.
func (g *Graph) HasEdge(from, to Label) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Contains(g.edges, Edge{From: from, To: to})
}

// Order returns the run order of the graph. Among nodes that are ready at the same time
// the one added first runs first, so the order is stable across runs.
//
// Returns:
//   - []Label: the labels in run order
//   - error: ErrCycle if the edges contain a cycle
func (g *Graph) Order() ([]Label, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.order != nil {
		return slices.Clone(g.order), nil
	}

	index := make(map[Label]int, len(g.labels))
	for i, l := range g.labels {
		index[l] = i
	}
	inDegree := make([]int, len(g.labels))
	next := make([][]int, len(g.labels))
	for _, e := range g.edges {
		from, to := index[e.From], index[e.To]
		next[from] = append(next[from], to)
		inDegree[to]++
	}

	ready := make([]int, 0, len(g.labels))
	for i, d := range inDegree {
		if d == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]Label, 0, len(g.labels))
	for len(ready) > 0 {
		// ready is kept sorted by insertion index
		cur := ready[0]
		ready = ready[1:]
		order = append(order, g.labels[cur])
		for _, n := range next[cur] {
			inDegree[n]--
			if inDegree[n] == 0 {
				pos, _ := slices.BinarySearch(ready, n)
				ready = slices.Insert(ready, pos, n)
			}
		}
	}

	if len(order) != len(g.labels) {
		return nil, ErrCycle
	}
	g.order = order
	return slices.Clone(order), nil
}

// Run runs every node once for view, in graph order. The first node error stops the run.
//
// Parameters:
//   - view: the view being rendered
//   - rc: the host render context for the frame
//
// Returns:
//   - error: ErrCycle, or a *NodeRunError wrapping the failing node's error
func (g *Graph) Run(view *View, rc RenderContext) error {
	order, err := g.Order()
	if err != nil {
		return err
	}
	for _, label := range order {
		node, ok := g.Node(label)
		if !ok {
			return fmt.Errorf("%w: %q", ErrNodeNotFound, label)
		}
		ctx := &Context{label: label, view: view}
		if err := node.Run(ctx, rc); err != nil {
			return &NodeRunError{Label: label, Err: err}
		}
	}
	return nil
}
