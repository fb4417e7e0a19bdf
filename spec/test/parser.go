package test

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/nihei9/tabula/driver"
	"github.com/nihei9/tabula/grammar"
	spec "github.com/nihei9/tabula/spec/grammar"
	"github.com/nihei9/tabula/spec/grammar/parser"
)

// treeGrammarSrc describes the notation of expected trees, e.g. (expr (id 'a')).
const treeGrammarSrc = `
#name tree;

tree
    : l_paren kind nodes r_paren
    | l_paren kind lexeme r_paren
    ;
nodes
    : nodes tree
    |
    ;

l_paren: '(';
r_paren: ')';
kind: "[A-Za-z_][0-9A-Za-z_]*";
lexeme: "'[^']*'";
ws #skip: "[\u{0009}\u{000A}\u{000D}\u{0020}]+";
`

var (
	treeGrammarOnce sync.Once
	treeGrammar     *spec.CompiledGrammar
	treeGrammarErr  error
)

func compileTreeGrammar() (*spec.CompiledGrammar, error) {
	treeGrammarOnce.Do(func() {
		ast, err := parser.Parse(strings.NewReader(treeGrammarSrc))
		if err != nil {
			treeGrammarErr = err
			return
		}
		b := grammar.GrammarBuilder{
			AST: ast,
		}
		gram, err := b.Build()
		if err != nil {
			treeGrammarErr = err
			return
		}
		treeGrammar, _, treeGrammarErr = grammar.Compile(gram)
	})
	return treeGrammar, treeGrammarErr
}

type TestCase struct {
	Description string
	Source      []byte
	Output      *Tree
}

// ParseTestCase reads a test case consisting of a description, a source text and an expected tree,
// separated by lines of three or more hyphens.
func ParseTestCase(r io.Reader) (*TestCase, error) {
	parts, err := splitIntoParts(r)
	if err != nil {
		return nil, err
	}
	if len(parts) != 3 {
		return nil, fmt.Errorf("too many or too few part delimiters: a test case consists of just three parts: %v parts found", len(parts))
	}

	tp := &treeParser{
		lineOffset: parts[0].lineCount + parts[1].lineCount + 2,
	}
	tree, err := tp.parseTree(bytes.NewReader(parts[2].buf))
	if err != nil {
		return nil, err
	}

	return &TestCase{
		Description: string(parts[0].buf),
		Source:      parts[1].buf,
		Output:      tree,
	}, nil
}

type testCasePart struct {
	buf       []byte
	lineCount int
}

func splitIntoParts(r io.Reader) ([]*testCasePart, error) {
	var bufs []*testCasePart
	s := bufio.NewScanner(r)
	for {
		buf, lineCount, err := readPart(s)
		if err != nil {
			return nil, err
		}
		if buf == nil {
			break
		}
		bufs = append(bufs, &testCasePart{
			buf:       buf,
			lineCount: lineCount,
		})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return bufs, nil
}

var reDelim = regexp.MustCompile(`^\s*---+\s*$`)

func readPart(s *bufio.Scanner) ([]byte, int, error) {
	if !s.Scan() {
		return nil, 0, s.Err()
	}
	buf := &bytes.Buffer{}
	line := s.Bytes()
	if reDelim.Match(line) {
		// (*bytes.Buffer).Bytes() returns nil when nothing has been written.
		return []byte{}, 0, nil
	}
	buf.Write(line)
	lineCount := 1
	for s.Scan() {
		line := s.Bytes()
		if reDelim.Match(line) {
			return buf.Bytes(), lineCount, nil
		}
		buf.WriteString("\n")
		buf.Write(line)
		lineCount++
	}
	if err := s.Err(); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), lineCount, nil
}

type treeParser struct {
	lineOffset int
}

func (tp *treeParser) parseTree(src io.Reader) (*Tree, error) {
	cgram, err := compileTreeGrammar()
	if err != nil {
		return nil, fmt.Errorf("cannot compile the tree grammar: %w", err)
	}
	toks, err := driver.NewTokenStream(cgram, src)
	if err != nil {
		return nil, err
	}
	gram := driver.NewGrammar(cgram)
	treeAct := driver.NewSyntaxTreeActionSet(gram)
	p, err := driver.NewParser(gram, toks, driver.SemanticAction(treeAct))
	if err != nil {
		return nil, err
	}
	err = p.Parse()
	if err != nil {
		var synErr *driver.SyntaxError
		if errors.As(err, &synErr) {
			return nil, tp.formatSyntaxError(synErr)
		}
		return nil, err
	}
	return tp.genTree(treeAct.Tree()).Fill(), nil
}

func (tp *treeParser) formatSyntaxError(synErr *driver.SyntaxError) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%v:%v: %v", tp.lineOffset+synErr.Row+1, synErr.Col+1, synErr.Message)
	if !synErr.EOF {
		fmt.Fprintf(&b, " '%v'", synErr.Lexeme)
	}
	if len(synErr.ExpectedTerminals) > 0 {
		fmt.Fprintf(&b, ": expected: %v", strings.Join(synErr.ExpectedTerminals, ", "))
	}
	return errors.New(b.String())
}

// genTree converts a `tree` node of the parse tree. Its children are `(`, the kind, either `nodes`
// or a lexeme, and `)`.
func (tp *treeParser) genTree(node *driver.Node) *Tree {
	kind := node.Children[1].Text
	body := node.Children[2]
	if body.Kind == driver.NodeKindTerminal {
		return NewTerminalNode(kind, body.Text[1:len(body.Text)-1])
	}
	return NewNonTerminalTree(kind, tp.genNodes(body, nil)...)
}

// genNodes flattens a left-recursive `nodes` list.
func (tp *treeParser) genNodes(node *driver.Node, acc []*Tree) []*Tree {
	if len(node.Children) == 0 {
		return acc
	}
	acc = tp.genNodes(node.Children[0], acc)
	return append(acc, tp.genTree(node.Children[1]))
}

// ConvertParseTree converts a tree the parser built into the form test cases compare against.
func ConvertParseTree(node *driver.Node) *Tree {
	if node.Kind == driver.NodeKindTerminal {
		return NewTerminalNode(node.KindName, node.Text)
	}
	var children []*Tree
	if len(node.Children) > 0 {
		children = make([]*Tree, len(node.Children))
		for i, c := range node.Children {
			children[i] = ConvertParseTree(c)
		}
	}
	return NewNonTerminalTree(node.KindName, children...)
}
