package flow

import "github.com/google/uuid"

// The mutation engine. Every operation is a pure transform: the input graph
// is never modified, the returned graph is a fresh value. Unknown ids make
// the operation a no-op that returns the input graph unchanged together with
// a sentinel, so the hosting layer can log and keep rendering.

// AddNode inserts a new node of the given kind relative to origin and
// returns the new graph. An Instruction node is spliced between origin and
// its children. A Condition node is spliced the same way unless origin
// already branches into Condition children, in which case the new node
// opens a sibling branch beside them.
func AddNode(g Graph, originID string, kind NodeKind) (Graph, error) {
	origin, ok := g.Node(originID)
	if !ok {
		return g, ErrNodeNotFound
	}
	switch kind {
	case KindInstruction:
		return insertSpliced(g, origin, kind), nil
	case KindCondition:
		if len(conditionChildren(g, originID)) > 0 {
			return insertSiblingBranch(g, origin), nil
		}
		return insertSpliced(g, origin, kind), nil
	default:
		return g, ErrUnknownKind
	}
}

// DeleteNode removes a node and returns the new graph. Deleting a Condition
// node removes its entire subtree with no bridging: multiple branches cannot
// be merged into one parent unambiguously. Deleting an Instruction node
// removes only that node and bridges its former parent to each former child.
// The Start node is not deletable.
func DeleteNode(g Graph, nodeID string) (Graph, error) {
	n, ok := g.Node(nodeID)
	if !ok {
		return g, ErrNodeNotFound
	}
	if n.Kind == KindStart {
		return g, ErrStartImmutable
	}
	g = g.clone()

	if n.Kind == KindCondition {
		doomed := make(map[string]bool)
		for _, id := range Descendants(g, nodeID) {
			doomed[id] = true
		}
		keepNodes(&g, func(n Node) bool { return !doomed[n.ID] })
		keepEdges(&g, func(e Edge) bool { return !doomed[e.Source] && !doomed[e.Target] })
		return g, nil
	}

	parent, hasParent := g.Parent(nodeID)
	children := g.Children(nodeID)

	// Close the vertical gap the node occupied.
	if desc := Descendants(g, nodeID); len(desc) > 1 {
		shiftY(&g, desc[1:], -VerticalGap)
	}

	keepNodes(&g, func(n Node) bool { return n.ID != nodeID })
	keepEdges(&g, func(e Edge) bool { return e.Source != nodeID && e.Target != nodeID })

	if hasParent {
		for _, c := range children {
			g.Edges = append(g.Edges, NewEdge(parent, c))
		}
	}
	return g, nil
}

// UpdateInstruction replaces a node's instruction text.
func UpdateInstruction(g Graph, nodeID, text string) (Graph, error) {
	if _, ok := g.Node(nodeID); !ok {
		return g, ErrNodeNotFound
	}
	g = g.clone()
	for i := range g.Nodes {
		if g.Nodes[i].ID == nodeID {
			g.Nodes[i].Instruction = text
			break
		}
	}
	return g, nil
}

// insertSpliced places the new node strictly between origin and its
// children, opening a VerticalGap below origin.
//
// Which nodes get shifted down is layout policy, not a graph invariant:
// when no ancestor above origin's parent branches, everything below origin
// moves as one block; otherwise only origin's own subtree moves, so sibling
// branches hanging off a shared ancestor stay put.
func insertSpliced(g Graph, origin Node, kind NodeKind) Graph {
	g = g.clone()
	newNode := Node{
		ID:       uuid.NewString(),
		Kind:     kind,
		Position: Position{X: origin.Position.X, Y: origin.Position.Y + VerticalGap},
	}

	if condChildren := conditionChildren(g, origin.ID); kind == KindInstruction && len(condChildren) > 0 {
		// Origin already branches: the new instruction lands between origin
		// and every one of its Condition branches.
		for _, c := range condChildren {
			shiftY(&g, Descendants(g, c), VerticalGap)
		}
		for _, c := range condChildren {
			removeEdge(&g, origin.ID, c)
		}
		g.Nodes = append(g.Nodes, newNode)
		g.Edges = append(g.Edges, NewEdge(origin.ID, newNode.ID))
		for _, c := range condChildren {
			g.Edges = append(g.Edges, NewEdge(newNode.ID, c))
		}
		return g
	}

	var child string
	if kids := g.Children(origin.ID); len(kids) > 0 {
		child = kids[0]
	}

	if !HasGrandparentWithMultipleChildren(g, origin.ID) {
		shiftBelow(&g, origin.Position.Y, VerticalGap)
	} else if desc := Descendants(g, origin.ID); len(desc) > 1 {
		shiftY(&g, desc[1:], VerticalGap)
	}

	if child != "" {
		removeEdge(&g, origin.ID, child)
	}
	g.Nodes = append(g.Nodes, newNode)
	g.Edges = append(g.Edges, NewEdge(origin.ID, newNode.ID))
	if child != "" {
		g.Edges = append(g.Edges, NewEdge(newNode.ID, child))
	}
	return g
}

// insertSiblingBranch adds a new Condition branch beside origin's existing
// Condition children: placed one BranchGap right of the widest descendant,
// level with the first child. Ancestors sitting to the right of the subtree
// are pushed further right, then the path back to Start is recentered.
func insertSiblingBranch(g Graph, origin Node) Graph {
	g = g.clone()
	kids := g.Children(origin.ID)
	firstChild, _ := g.Node(kids[0])

	maxX := firstChild.Position.X
	for _, k := range kids {
		for _, id := range Descendants(g, k) {
			if n, ok := g.Node(id); ok && n.Position.X > maxX {
				maxX = n.Position.X
			}
		}
	}

	for _, a := range Ancestors(g, origin.ID) {
		n, _ := g.Node(a)
		if n.Position.X <= maxX {
			continue
		}
		dx := float64(chainNudge)
		if HasAncestorWithMultipleChildren(g, a) {
			dx = BranchGap
		}
		shiftX(&g, a, dx)
	}

	newNode := Node{
		ID:       uuid.NewString(),
		Kind:     KindCondition,
		Position: Position{X: maxX + BranchGap, Y: firstChild.Position.Y},
	}
	g.Nodes = append(g.Nodes, newNode)
	g.Edges = append(g.Edges, NewEdge(origin.ID, newNode.ID))

	// Recenter upward, nearest first so changes cascade: branching nodes sit
	// at the middle of their children, single-child chains straighten.
	path := append([]string{origin.ID}, Ancestors(g, origin.ID)...)
	for _, id := range path {
		n, _ := g.Node(id)
		switch c := g.Children(id); {
		case len(c) >= 2:
			setX(&g, id, MiddleX(g, id, n.Position.X))
		case len(c) == 1:
			if child, ok := g.Node(c[0]); ok {
				setX(&g, id, child.Position.X)
			}
		}
	}
	return g
}

// conditionChildren returns origin's direct children of kind Condition.
func conditionChildren(g Graph, originID string) []string {
	var out []string
	for _, c := range g.Children(originID) {
		if n, ok := g.Node(c); ok && n.Kind == KindCondition {
			out = append(out, c)
		}
	}
	return out
}

func shiftY(g *Graph, ids []string, dy float64) {
	member := make(map[string]bool, len(ids))
	for _, id := range ids {
		member[id] = true
	}
	for i := range g.Nodes {
		if member[g.Nodes[i].ID] {
			g.Nodes[i].Position.Y += dy
		}
	}
}

// shiftBelow moves every node strictly below y down by dy.
func shiftBelow(g *Graph, y, dy float64) {
	for i := range g.Nodes {
		if g.Nodes[i].Position.Y > y {
			g.Nodes[i].Position.Y += dy
		}
	}
}

func shiftX(g *Graph, id string, dx float64) {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			g.Nodes[i].Position.X += dx
			return
		}
	}
}

func setX(g *Graph, id string, x float64) {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			g.Nodes[i].Position.X = x
			return
		}
	}
}

func removeEdge(g *Graph, source, target string) {
	keepEdges(g, func(e Edge) bool { return !(e.Source == source && e.Target == target) })
}

func keepNodes(g *Graph, keep func(Node) bool) {
	out := g.Nodes[:0]
	for _, n := range g.Nodes {
		if keep(n) {
			out = append(out, n)
		}
	}
	g.Nodes = out
}

func keepEdges(g *Graph, keep func(Edge) bool) {
	out := g.Edges[:0]
	for _, e := range g.Edges {
		if keep(e) {
			out = append(out, e)
		}
	}
	g.Edges = out
}
