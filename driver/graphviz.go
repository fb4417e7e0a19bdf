package driver

import (
	"fmt"
	"io"
	"strings"
)

// WriteDOT writes a tree in the Graphviz DOT language. Nodes are named n0, n1, ... in pre-order.
// A terminal node is labeled with its kind name, its lexeme and its 1-based position.
func WriteDOT(w io.Writer, root *Node) error {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph tree {\n")
	fmt.Fprintf(&b, "    node [shape=box, style=filled, fillcolor=lightblue];\n")
	fmt.Fprintf(&b, "    rankdir=TB;\n")
	if root != nil {
		fmt.Fprintf(&b, "\n")
		next := 0
		writeDOTNode(&b, root, -1, &next)
	}
	fmt.Fprintf(&b, "}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeDOTNode(b *strings.Builder, node *Node, parent int, next *int) {
	id := *next
	*next++

	label := escapeDOT(node.KindName)
	if node.Kind == NodeKindTerminal {
		label = fmt.Sprintf(`%v\n'%v'\n[%v:%v]`, label, escapeDOT(node.Text), node.Row+1, node.Col+1)
	}
	fmt.Fprintf(b, "    n%v [label=\"%v\"];\n", id, label)
	if parent >= 0 {
		fmt.Fprintf(b, "    n%v -> n%v;\n", parent, id)
	}

	for _, c := range node.Children {
		writeDOTNode(b, c, id, next)
	}
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func escapeDOT(s string) string {
	return dotEscaper.Replace(s)
}
