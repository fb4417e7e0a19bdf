package driver

import (
	"fmt"
	"io"
)

// SemanticActionSet is a set of semantic actions a parser calls.
//
// Both table classes report the same events. The LR automaton calls Shift on every shift and Reduce
// on every reduction. The LL automaton calls Shift when a terminal matches and Reduce once every
// symbol of a predicted body has been matched, so an implementation sees the same sequence of
// events for the same input regardless of the class.
type SemanticActionSet interface {
	// Shift runs when the parser consumes a token.
	Shift(tok VToken)

	// Reduce runs when the symbols of production `prodNum` have been recognized. The last
	// AlternativeSymbolCount(prodNum) values the action set produced are the children, in body order.
	Reduce(prodNum int)

	// Accept runs when the parser accepts an input.
	Accept()
}

var _ SemanticActionSet = &SyntaxTreeActionSet{}

// SyntaxTreeActionSet is an implementation of SemanticActionSet that constructs a CST.
type SyntaxTreeActionSet struct {
	gram     Grammar
	semStack []*Node
	tree     *Node
}

func NewSyntaxTreeActionSet(gram Grammar) *SyntaxTreeActionSet {
	return &SyntaxTreeActionSet{
		gram:     gram,
		semStack: make([]*Node, 0, 100),
	}
}

func (a *SyntaxTreeActionSet) Shift(tok VToken) {
	term := tok.TerminalID()
	row, col := tok.Position()
	a.semStack = append(a.semStack, &Node{
		Kind:       NodeKindTerminal,
		KindName:   a.gram.Terminal(term),
		Symbol:     term,
		Production: -1,
		Text:       string(tok.Lexeme()),
		Row:        row,
		Col:        col,
	})
}

func (a *SyntaxTreeActionSet) Reduce(prodNum int) {
	lhs := a.gram.LHS(prodNum)

	// When an alternative is empty, `n` will be 0, and `handle` will be empty slice.
	n := a.gram.AlternativeSymbolCount(prodNum)
	handle := a.semStack[len(a.semStack)-n:]

	children := make([]*Node, n)
	copy(children, handle)

	node := &Node{
		Kind:       NodeKindNonTerminal,
		KindName:   a.gram.NonTerminal(lhs),
		Symbol:     lhs,
		Production: prodNum,
		Children:   children,
	}
	// The node takes the position of its first token when it has one.
	for _, c := range children {
		if c.Kind == NodeKindTerminal || len(c.Children) > 0 {
			node.Row = c.Row
			node.Col = c.Col
			break
		}
	}

	a.semStack = a.semStack[:len(a.semStack)-n]
	a.semStack = append(a.semStack, node)
}

func (a *SyntaxTreeActionSet) Accept() {
	a.tree = a.semStack[len(a.semStack)-1]
	a.semStack = a.semStack[:len(a.semStack)-1]
}

// Tree returns the root when the parser has accepted an input. Otherwise it returns nil.
func (a *SyntaxTreeActionSet) Tree() *Node {
	return a.tree
}

type NodeKind int

const (
	NodeKindTerminal    = NodeKind(1)
	NodeKindNonTerminal = NodeKind(2)
)

func (k NodeKind) String() string {
	switch k {
	case NodeKindTerminal:
		return "terminal"
	case NodeKindNonTerminal:
		return "non-terminal"
	}
	return fmt.Sprintf("<invalid node kind: %d>", int(k))
}

// Node is a node of a CST. A terminal node holds its token and has no children. A non-terminal node
// holds the number of the production it was built by and one child per body symbol.
// Row and Col are 0-based.
type Node struct {
	Kind       NodeKind
	KindName   string
	Symbol     int
	Production int
	Text       string
	Row        int
	Col        int
	Children   []*Node
}

// Equal reports whether two trees have the same shape, production tags and leaf tokens.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.Kind != o.Kind || n.Symbol != o.Symbol || n.Production != o.Production || n.Text != o.Text {
		return false
	}
	if n.Kind == NodeKindTerminal && (n.Row != o.Row || n.Col != o.Col) {
		return false
	}
	if len(n.Children) != len(o.Children) {
		return false
	}
	for i, c := range n.Children {
		if !c.Equal(o.Children[i]) {
			return false
		}
	}
	return true
}

func PrintTree(w io.Writer, node *Node) {
	printTree(w, node, "", "")
}

func printTree(w io.Writer, node *Node, ruledLine string, childRuledLinePrefix string) {
	if node == nil {
		return
	}

	switch node.Kind {
	case NodeKindTerminal:
		fmt.Fprintf(w, "%v%v %#v\n", ruledLine, node.KindName, node.Text)
	case NodeKindNonTerminal:
		fmt.Fprintf(w, "%v%v\n", ruledLine, node.KindName)
	}

	num := len(node.Children)
	for i, child := range node.Children {
		var line string
		if num > 1 && i < num-1 {
			line = "├─ "
		} else {
			line = "└─ "
		}

		var prefix string
		if i >= num-1 {
			prefix = "   "
		} else {
			prefix = "│  "
		}

		printTree(w, child, childRuledLinePrefix+line, childRuledLinePrefix+prefix)
	}
}
