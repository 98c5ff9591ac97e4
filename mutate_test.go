package flow_test

import (
	"math/rand"
	"testing"

	"github.com/meikuraledutech/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// addNode applies flow.AddNode and returns the new graph plus the id of the
// node it created.
func addNode(t *testing.T, g flow.Graph, origin string, kind flow.NodeKind) (flow.Graph, string) {
	t.Helper()
	before := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		before[n.ID] = true
	}
	next, err := flow.AddNode(g, origin, kind)
	require.NoError(t, err)
	for _, n := range next.Nodes {
		if !before[n.ID] {
			return next, n.ID
		}
	}
	t.Fatal("AddNode created no node")
	return next, ""
}

// assertForest checks the forest property directly: exactly one Start with
// no parent, every other node exactly one parent, and everything reachable
// from Start.
func assertForest(t *testing.T, g flow.Graph) {
	t.Helper()
	start, ok := g.Start()
	require.True(t, ok, "graph has no start node")

	incoming := map[string]int{}
	for _, e := range g.Edges {
		incoming[e.Target]++
	}
	for _, n := range g.Nodes {
		if n.ID == start.ID {
			assert.Zero(t, incoming[n.ID], "start node has a parent")
			continue
		}
		assert.Equal(t, 1, incoming[n.ID], "node %s has %d incoming edges", n.ID, incoming[n.ID])
	}
	assert.Len(t, flow.Descendants(g, start.ID), len(g.Nodes), "not all nodes reachable from start")
}

func mustNode(t *testing.T, g flow.Graph, id string) flow.Node {
	t.Helper()
	n, ok := g.Node(id)
	require.True(t, ok, "node %s missing", id)
	return n
}

func hasEdge(g flow.Graph, source, target string) bool {
	for _, e := range g.Edges {
		if e.Source == source && e.Target == target {
			return true
		}
	}
	return false
}

func TestAddNode_FirstInstruction(t *testing.T) {
	g := flow.NewGraph()

	g, id := addNode(t, g, flow.StartNodeID, flow.KindInstruction)

	require.Len(t, g.Nodes, 2)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, flow.StartNodeID, g.Edges[0].Source)
	assert.Equal(t, id, g.Edges[0].Target)
	assert.Equal(t, flow.EdgeID(flow.StartNodeID, id), g.Edges[0].ID)
	assertForest(t, g)
}

func TestAddNode_UnknownOrigin(t *testing.T) {
	g := flow.NewGraph()

	got, err := flow.AddNode(g, "ghost", flow.KindInstruction)

	assert.ErrorIs(t, err, flow.ErrNodeNotFound)
	assert.Equal(t, g, got, "no-op must return the graph unchanged")
}

func TestAddNode_UnknownKind(t *testing.T) {
	g := flow.NewGraph()

	got, err := flow.AddNode(g, flow.StartNodeID, flow.NodeKind("loop"))

	assert.ErrorIs(t, err, flow.ErrUnknownKind)
	assert.Equal(t, g, got)
}

// The scenario from the editor: first Condition splices under the
// Instruction, the second becomes a sibling branch one BranchGap to the
// right of the first.
func TestAddNode_ConditionSiblingBranch(t *testing.T) {
	g := flow.NewGraph()
	g, instr := addNode(t, g, flow.StartNodeID, flow.KindInstruction)

	g, cond1 := addNode(t, g, instr, flow.KindCondition)
	parent, ok := g.Parent(cond1)
	require.True(t, ok)
	assert.Equal(t, instr, parent, "first condition splices under the instruction")

	g, cond2 := addNode(t, g, instr, flow.KindCondition)
	parent, ok = g.Parent(cond2)
	require.True(t, ok)
	assert.Equal(t, instr, parent, "second condition is a sibling, not nested")

	c1, c2 := mustNode(t, g, cond1), mustNode(t, g, cond2)
	assert.Equal(t, c1.Position.X+flow.BranchGap, c2.Position.X)
	assert.Equal(t, c1.Position.Y, c2.Position.Y)

	// The branching instruction recenters between its children; the chain
	// above it straightens. Layout behavior, not a correctness invariant.
	in := mustNode(t, g, instr)
	assert.Equal(t, (c1.Position.X+c2.Position.X)/2, in.Position.X)
	assert.Equal(t, in.Position.X, mustNode(t, g, flow.StartNodeID).Position.X)

	assertForest(t, g)
}

func TestAddNode_InstructionBetweenConditionBranches(t *testing.T) {
	g := flow.NewGraph()
	g, instr := addNode(t, g, flow.StartNodeID, flow.KindInstruction)
	g, cond1 := addNode(t, g, instr, flow.KindCondition)
	g, cond2 := addNode(t, g, instr, flow.KindCondition)

	before1 := mustNode(t, g, cond1).Position.Y
	before2 := mustNode(t, g, cond2).Position.Y

	// Inserting an Instruction at a branching node splices it between the
	// origin and every condition branch.
	g, mid := addNode(t, g, instr, flow.KindInstruction)

	assert.True(t, hasEdge(g, instr, mid))
	assert.True(t, hasEdge(g, mid, cond1))
	assert.True(t, hasEdge(g, mid, cond2))
	assert.False(t, hasEdge(g, instr, cond1))
	assert.False(t, hasEdge(g, instr, cond2))

	assert.Equal(t, before1+flow.VerticalGap, mustNode(t, g, cond1).Position.Y)
	assert.Equal(t, before2+flow.VerticalGap, mustNode(t, g, cond2).Position.Y)
	assertForest(t, g)
}

func TestAddNode_SpliceShiftsLowerNodes(t *testing.T) {
	g := flow.NewGraph()
	g, i1 := addNode(t, g, flow.StartNodeID, flow.KindInstruction)
	g, i2 := addNode(t, g, i1, flow.KindInstruction)

	i2Before := mustNode(t, g, i2).Position.Y

	// Splicing between i1 and i2: no ancestor of i1 branches, so the whole
	// lower block shifts. Layout heuristic, not a graph invariant.
	g, mid := addNode(t, g, i1, flow.KindInstruction)

	assert.True(t, hasEdge(g, i1, mid))
	assert.True(t, hasEdge(g, mid, i2))
	assert.False(t, hasEdge(g, i1, i2))
	assert.Equal(t, i2Before+flow.VerticalGap, mustNode(t, g, i2).Position.Y)
	assert.Equal(t, i2Before, mustNode(t, g, mid).Position.Y, "new node takes the vacated slot")
	assertForest(t, g)
}

func TestDeleteNode_BridgesInstruction(t *testing.T) {
	g := flow.NewGraph()
	g, a := addNode(t, g, flow.StartNodeID, flow.KindInstruction)
	g, b := addNode(t, g, a, flow.KindInstruction)
	g, c := addNode(t, g, b, flow.KindInstruction)

	cBefore := mustNode(t, g, c).Position.Y
	countBefore := len(g.Nodes)

	g, err := flow.DeleteNode(g, b)
	require.NoError(t, err)

	assert.Len(t, g.Nodes, countBefore-1)
	assert.True(t, hasEdge(g, a, c), "parent bridges to the orphaned child")
	assert.Equal(t, cBefore-flow.VerticalGap, mustNode(t, g, c).Position.Y)
	assertForest(t, g)
}

func TestDeleteNode_LeafInstruction(t *testing.T) {
	g := flow.NewGraph()
	g, a := addNode(t, g, flow.StartNodeID, flow.KindInstruction)
	g, b := addNode(t, g, a, flow.KindInstruction)

	g, err := flow.DeleteNode(g, b)
	require.NoError(t, err)

	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 1)
	assertForest(t, g)
}

func TestDeleteNode_ConditionRemovesSubtree(t *testing.T) {
	g := flow.NewGraph()
	g, instr := addNode(t, g, flow.StartNodeID, flow.KindInstruction)
	g, cond1 := addNode(t, g, instr, flow.KindCondition)
	g, s1 := addNode(t, g, cond1, flow.KindInstruction)
	g, _ = addNode(t, g, s1, flow.KindInstruction)
	g, cond2 := addNode(t, g, instr, flow.KindCondition)
	g, _ = addNode(t, g, cond2, flow.KindInstruction)

	countBefore := len(g.Nodes)
	subtree := len(flow.Descendants(g, cond1))
	require.Equal(t, 3, subtree)

	g, err := flow.DeleteNode(g, cond1)
	require.NoError(t, err)

	assert.Len(t, g.Nodes, countBefore-subtree)
	_, ok := g.Node(s1)
	assert.False(t, ok, "descendants go with the condition")
	_, ok = g.Node(cond2)
	assert.True(t, ok, "sibling branch survives")
	assertForest(t, g)
}

func TestDeleteNode_StartImmutable(t *testing.T) {
	g := flow.NewGraph()

	got, err := flow.DeleteNode(g, flow.StartNodeID)

	assert.ErrorIs(t, err, flow.ErrStartImmutable)
	assert.Equal(t, g, got)
}

func TestDeleteNode_Unknown(t *testing.T) {
	g := flow.NewGraph()

	got, err := flow.DeleteNode(g, "ghost")

	assert.ErrorIs(t, err, flow.ErrNodeNotFound)
	assert.Equal(t, g, got)
}

func TestUpdateInstruction(t *testing.T) {
	g := flow.NewGraph()
	g, id := addNode(t, g, flow.StartNodeID, flow.KindInstruction)

	g2, err := flow.UpdateInstruction(g, id, "check the invoice")
	require.NoError(t, err)
	assert.Equal(t, "check the invoice", mustNode(t, g2, id).Instruction)
	assert.Empty(t, mustNode(t, g, id).Instruction, "input graph is untouched")

	_, err = flow.UpdateInstruction(g, "ghost", "x")
	assert.ErrorIs(t, err, flow.ErrNodeNotFound)
}

func TestMutations_PureTransforms(t *testing.T) {
	g := flow.NewGraph()
	g, instr := addNode(t, g, flow.StartNodeID, flow.KindInstruction)

	snapshot, _ := flow.UpdateInstruction(g, instr, "keep me")
	nodesBefore := len(snapshot.Nodes)

	_, _ = flow.AddNode(snapshot, instr, flow.KindCondition)
	_, _ = flow.DeleteNode(snapshot, instr)

	assert.Len(t, snapshot.Nodes, nodesBefore, "callers' graphs must never be mutated")
	assert.Equal(t, "keep me", mustNode(t, snapshot, instr).Instruction)
}

// The forest property must hold after any sequence of mutations; a scripted
// random walk exercises it.
func TestMutations_ForestInvariantUnderRandomOps(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	g := flow.NewGraph()

	for i := 0; i < 200; i++ {
		target := g.Nodes[rng.Intn(len(g.Nodes))].ID
		var err error
		switch rng.Intn(4) {
		case 0:
			g, err = flow.AddNode(g, target, flow.KindInstruction)
		case 1:
			g, err = flow.AddNode(g, target, flow.KindCondition)
		case 2:
			g, err = flow.DeleteNode(g, target)
		default:
			g, err = flow.UpdateInstruction(g, target, "step")
		}
		if err != nil {
			require.ErrorIs(t, err, flow.ErrStartImmutable)
		}
		assertForest(t, g)
	}
}
