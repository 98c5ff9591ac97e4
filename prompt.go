package flow

import (
	"fmt"
	"strings"
)

// promptHeader is the fixed preamble emitted before the serialized flow. It
// explains the step/condition structure to the agent; it never depends on
// graph content.
const promptHeader = `Follow the workflow below exactly.
Steps are numbered in the order they must be executed.
A line starting with "Condition:" opens a branch: the indented lines under it
apply only while that condition holds. Sibling conditions at the same
indentation are alternative branches.

`

const indentUnit = "    "

// SerializeToPrompt walks the graph depth-first from Start's child and
// renders it as an indented natural-language instruction script. Instruction
// nodes consume a step number and keep their children at the same depth;
// Condition nodes consume no step number and indent their children one
// level. The output is deterministic for a fixed edge order, so serializing
// an unchanged graph twice yields byte-identical strings.
func SerializeToPrompt(g Graph) string {
	start, ok := g.Start()
	if !ok {
		return ""
	}

	var b strings.Builder
	b.WriteString(promptHeader)

	step := 0
	visited := make(map[string]bool)
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		if visited[id] {
			return
		}
		visited[id] = true
		n, ok := g.Node(id)
		if !ok {
			return
		}
		indent := strings.Repeat(indentUnit, depth)
		switch n.Kind {
		case KindInstruction:
			step++
			fmt.Fprintf(&b, "%sStep %d: - %s\n", indent, step, n.Instruction)
			for _, c := range g.Children(id) {
				walk(c, depth)
			}
		case KindCondition:
			fmt.Fprintf(&b, "%sCondition: %s\n", indent, n.Instruction)
			for _, c := range g.Children(id) {
				walk(c, depth+1)
			}
		}
	}
	for _, c := range g.Children(start.ID) {
		walk(c, 0)
	}
	return b.String()
}
