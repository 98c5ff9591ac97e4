package flow

import "fmt"

// NodeKind discriminates the three kinds of flow nodes.
type NodeKind string

const (
	KindStart       NodeKind = "start"
	KindInstruction NodeKind = "instruction"
	KindCondition   NodeKind = "condition"
)

// Layout constants used by the mutation engine. Positions are purely
// presentational; dragging is disabled in the editor.
const (
	// VerticalGap is the y distance opened or closed when a node is
	// spliced into or removed from a chain.
	VerticalGap = 300
	// BranchGap is the x distance between sibling condition branches.
	BranchGap = 320
	// chainNudge is the smaller x shift applied to ancestors that sit in
	// a single-child chain when a new branch is opened beneath them.
	chainNudge = 150
)

// StartNodeID is the fixed id of the Start node in a fresh graph.
const StartNodeID = "1"

// Position is a 2D layout coordinate maintained by the mutation engine.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node represents a vertex in the flow graph.
// Instruction is free-form text; the empty string means "no instruction yet".
type Node struct {
	ID          string   `json:"id"`
	Kind        NodeKind `json:"kind"`
	Position    Position `json:"position"`
	Instruction string   `json:"instruction"`
}

// Edge represents a directed connection between two nodes.
// Its ID is derived deterministically from (source, target).
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// EdgeID derives the deterministic edge id for a source/target pair.
func EdgeID(source, target string) string {
	return "e" + source + "-" + target
}

// NewEdge builds an edge with its derived id.
func NewEdge(source, target string) Edge {
	return Edge{ID: EdgeID(source, target), Source: source, Target: target}
}

// Graph holds the flow graph as plain records. Edges form a forest rooted
// at the single Start node: at most one incoming edge per node, acyclic,
// connected to Start. Mutations preserve this by construction.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NewGraph returns a graph holding only the Start node.
func NewGraph() Graph {
	return Graph{
		Nodes: []Node{{
			ID:       StartNodeID,
			Kind:     KindStart,
			Position: Position{X: 250, Y: 50},
		}},
	}
}

// Node returns the node with the given id, if present.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Start returns the Start node, if present.
func (g Graph) Start() (Node, bool) {
	for _, n := range g.Nodes {
		if n.Kind == KindStart {
			return n, true
		}
	}
	return Node{}, false
}

// Children returns the ids of the node's direct successors, in edge order.
func (g Graph) Children(id string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.Source == id {
			out = append(out, e.Target)
		}
	}
	return out
}

// Parent returns the id of the node's unique predecessor, if any.
func (g Graph) Parent(id string) (string, bool) {
	for _, e := range g.Edges {
		if e.Target == id {
			return e.Source, true
		}
	}
	return "", false
}

// clone returns a deep copy so mutations never alias the caller's slices.
func (g Graph) clone() Graph {
	out := Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: make([]Edge, len(g.Edges)),
	}
	copy(out.Nodes, g.Nodes)
	copy(out.Edges, g.Edges)
	return out
}

// Validate checks the forest invariant: exactly one Start node with no
// incoming edges, every other node with exactly one incoming edge, all
// edges referencing known nodes, and every node reachable from Start.
// Violations are reported as ErrInvalidGraph with detail.
func Validate(g Graph) error {
	starts := 0
	byID := make(map[string]Node, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := byID[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node id %q", ErrInvalidGraph, n.ID)
		}
		byID[n.ID] = n
		if n.Kind == KindStart {
			starts++
		}
	}
	if starts != 1 {
		return fmt.Errorf("%w: expected exactly one start node, found %d", ErrInvalidGraph, starts)
	}

	incoming := make(map[string]int, len(g.Nodes))
	for _, e := range g.Edges {
		if _, ok := byID[e.Source]; !ok {
			return fmt.Errorf("%w: edge %s has unknown source %q", ErrInvalidGraph, e.ID, e.Source)
		}
		if _, ok := byID[e.Target]; !ok {
			return fmt.Errorf("%w: edge %s has unknown target %q", ErrInvalidGraph, e.ID, e.Target)
		}
		incoming[e.Target]++
	}

	start, _ := g.Start()
	for _, n := range g.Nodes {
		switch {
		case n.ID == start.ID && incoming[n.ID] != 0:
			return fmt.Errorf("%w: start node has %d incoming edges", ErrInvalidGraph, incoming[n.ID])
		case n.ID != start.ID && incoming[n.ID] != 1:
			return fmt.Errorf("%w: node %q has %d incoming edges", ErrInvalidGraph, n.ID, incoming[n.ID])
		}
	}

	if reached := len(Descendants(g, start.ID)); reached != len(g.Nodes) {
		return fmt.Errorf("%w: %d of %d nodes reachable from start", ErrInvalidGraph, reached, len(g.Nodes))
	}
	return nil
}
