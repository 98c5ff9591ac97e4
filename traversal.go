package flow

// Pure traversal queries over (nodes, edges). All of them tolerate ids that
// are absent from the graph and answer with empty results, since the hosting
// layer may ask questions while graph state is mid-transition.

// Descendants returns every node id reachable from id by outgoing edges,
// inclusive of id itself, in discovery order. Each id appears exactly once.
// The walk is an iterative stack DFS so deep chains cannot exhaust the
// goroutine stack.
func Descendants(g Graph, id string) []string {
	if _, ok := g.Node(id); !ok {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		out = append(out, cur)
		children := g.Children(cur)
		// Push in reverse so discovery order follows edge order.
		for i := len(children) - 1; i >= 0; i-- {
			if !seen[children[i]] {
				stack = append(stack, children[i])
			}
		}
	}
	return out
}

// Ancestors returns the ids on the unique path from id back to Start,
// nearest first, excluding id itself. A repeated id on the path means the
// edge set is malformed; the walk stops rather than loop.
func Ancestors(g Graph, id string) []string {
	if _, ok := g.Node(id); !ok {
		return nil
	}
	seen := map[string]bool{id: true}
	var out []string
	cur := id
	for {
		parent, ok := g.Parent(cur)
		if !ok || seen[parent] {
			return out
		}
		seen[parent] = true
		out = append(out, parent)
		cur = parent
	}
}

// HasMultipleChildren reports whether the node has two or more outgoing edges.
func HasMultipleChildren(g Graph, id string) bool {
	return len(g.Children(id)) >= 2
}

// HasAncestorWithMultipleChildren walks strictly upward from id's parent and
// reports whether any ancestor has two or more children.
func HasAncestorWithMultipleChildren(g Graph, id string) bool {
	for _, a := range Ancestors(g, id) {
		if HasMultipleChildren(g, a) {
			return true
		}
	}
	return false
}

// HasGrandparentWithMultipleChildren is HasAncestorWithMultipleChildren with
// the direct parent skipped. The mutation engine uses it to pick between the
// two vertical-shift strategies on insert.
func HasGrandparentWithMultipleChildren(g Graph, id string) bool {
	for i, a := range Ancestors(g, id) {
		if i == 0 {
			continue
		}
		if HasMultipleChildren(g, a) {
			return true
		}
	}
	return false
}

// MiddleX returns the midpoint of the minimum and maximum x among the node's
// direct children, or fallback if it has none.
func MiddleX(g Graph, id string, fallback float64) float64 {
	children := g.Children(id)
	if len(children) == 0 {
		return fallback
	}
	first := true
	var minX, maxX float64
	for _, c := range children {
		n, ok := g.Node(c)
		if !ok {
			continue
		}
		if first {
			minX, maxX = n.Position.X, n.Position.X
			first = false
			continue
		}
		if n.Position.X < minX {
			minX = n.Position.X
		}
		if n.Position.X > maxX {
			maxX = n.Position.X
		}
	}
	if first {
		return fallback
	}
	return (minX + maxX) / 2
}
