package driver

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/nihei9/tabula/grammar"
	spec "github.com/nihei9/tabula/spec/grammar"
	"github.com/nihei9/tabula/spec/grammar/parser"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

const exprLRSrc = `
#name expr;

expr
    : expr add term
    | term
    ;
term
    : id
    ;

add: '+';
id: "[a-z]+";
ws #skip: "[\u{0009}\u{0020}]+";
`

const exprLLSrc = `
expr
    : term expr_tail
    ;
expr_tail
    : add term expr_tail
    |
    ;
term
    : l_paren expr r_paren
    | id
    ;

add: '+';
l_paren: '(';
r_paren: ')';
id: "[a-z]+";
ws #skip: "[\u{0009}\u{000A}\u{000D}\u{0020}]+";
`

func compileGrammar(t *testing.T, src string, class spec.Class) *spec.CompiledGrammar {
	t.Helper()

	ast, err := parser.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	b := grammar.GrammarBuilder{
		AST: ast,
	}
	gram, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	cg, _, err := grammar.Compile(gram, grammar.Class(class))
	if err != nil {
		t.Fatal(err)
	}
	return cg
}

func terminalNum(t *testing.T, cg *spec.CompiledGrammar, name string) int {
	t.Helper()

	for num, term := range cg.Syntactic.Terminals {
		if term == name {
			return num
		}
	}
	t.Fatalf("terminal was not found: %v", name)
	return 0
}

func parseText(t *testing.T, cg *spec.CompiledGrammar, src string, opts ...ParserOption) (*Parser, *Node, error) {
	t.Helper()

	toks, err := NewTokenStream(cg, strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	gram := NewGrammar(cg)
	treeAct := NewSyntaxTreeActionSet(gram)
	opts = append(opts, SemanticAction(treeAct))
	p, err := NewParser(gram, toks, opts...)
	if err != nil {
		t.Fatal(err)
	}
	err = p.Parse()
	return p, treeAct.Tree(), err
}

func TestParser_Parse(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "tabula.driver")
	defer teardown()

	tests := []struct {
		caption string
		specSrc string
		class   spec.Class
		src     string
	}{
		{
			caption: "the SLR parser accepts a left-recursive grammar",
			specSrc: `
expr
    : expr add term
    | term
    ;
term
    : term mul factor
    | factor
    ;
factor
    : l_paren expr r_paren
    | id
    ;
add: '+';
mul: '*';
l_paren: '(';
r_paren: ')';
id: "[A-Za-z_][0-9A-Za-z_]*";
`,
			class: spec.ClassSLR,
			src:   `(a+(b+c))*d+e`,
		},
		{
			caption: "the LL parser accepts a right-recursive grammar",
			specSrc: exprLLSrc,
			class:   spec.ClassLL1,
			src:     `(a + (b + c)) + d`,
		},
		{
			caption: "the SLR parser accepts the same right-recursive grammar",
			specSrc: exprLLSrc,
			class:   spec.ClassSLR,
			src:     `(a + (b + c)) + d`,
		},
		{
			caption: "the parser skips tokens of skip terminals",
			specSrc: `
s
    : foo bar
    ;
foo: "foo";
bar: "bar";
white_space #skip: "[\u{0009}\u{0020}]+";
`,
			class: spec.ClassSLR,
			src:   `foo   bar`,
		},
		{
			caption: "an empty input matches an empty alternative",
			specSrc: `
s
    : foo
    |
    ;
foo: 'foo';
`,
			class: spec.ClassLL1,
			src:   ``,
		},
		{
			caption: "an empty input matches an empty alternative",
			specSrc: `
s
    : foo
    |
    ;
foo: 'foo';
`,
			class: spec.ClassSLR,
			src:   ``,
		},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("#%v %v (%v)", i, tt.caption, tt.class), func(t *testing.T) {
			cg := compileGrammar(t, tt.specSrc, tt.class)
			_, tree, err := parseText(t, cg, tt.src)
			if err != nil {
				t.Fatal(err)
			}
			if tree == nil {
				t.Fatal("tree must not be nil")
			}
			if tree.Symbol != cg.Syntactic.StartSymbol {
				t.Fatalf("the root must be the start symbol; want: %v, got: %v", cg.Syntactic.NonTerminals[cg.Syntactic.StartSymbol], tree.KindName)
			}

			var b strings.Builder
			PrintTree(&b, tree)
			t.Logf("\n%v", b.String())
		})
	}
}

func TestParser_EndToEnd(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "tabula.driver")
	defer teardown()

	cg := compileGrammar(t, exprLRSrc, spec.ClassSLR)
	id := terminalNum(t, cg, "id")
	add := terminalNum(t, cg, "add")

	t.Run("id + id is accepted", func(t *testing.T) {
		gram := NewGrammar(cg)
		treeAct := NewSyntaxTreeActionSet(gram)
		p, err := NewParser(gram, NewSliceTokenStream([]VToken{
			NewToken(id, "a", 0, 0),
			NewToken(add, "+", 0, 2),
			NewToken(id, "b", 0, 4),
		}), SemanticAction(treeAct))
		if err != nil {
			t.Fatal(err)
		}
		err = p.Parse()
		if err != nil {
			t.Fatal(err)
		}

		// expr → expr add term is production 0, expr → term is 1, and term → id is 2.
		expected := nonTermNode("expr", 0,
			nonTermNode("expr", 1,
				nonTermNode("term", 2,
					termNode("id", "a", 0, 0),
				),
			),
			termNode("add", "+", 0, 2),
			nonTermNode("term", 2,
				termNode("id", "b", 0, 4),
			),
		)
		testTree(t, treeAct.Tree(), expected)
	})

	t.Run("id + fails at the end of input expecting id", func(t *testing.T) {
		gram := NewGrammar(cg)
		p, err := NewParser(gram, NewSliceTokenStream([]VToken{
			NewToken(id, "a", 0, 0),
			NewToken(add, "+", 0, 2),
		}))
		if err != nil {
			t.Fatal(err)
		}
		err = p.Parse()
		synErr := testSyntaxError(t, err, 0, 3, []string{"id"})
		if !synErr.EOF {
			t.Fatalf("the error must be at the end of input: %v", synErr)
		}
		if synErr.State <= 0 {
			t.Fatalf("the error must cite the state: %v", synErr.State)
		}
	})

	t.Run("id id fails at the second id", func(t *testing.T) {
		gram := NewGrammar(cg)
		p, err := NewParser(gram, NewSliceTokenStream([]VToken{
			NewToken(id, "a", 0, 0),
			NewToken(id, "b", 0, 2),
		}))
		if err != nil {
			t.Fatal(err)
		}
		err = p.Parse()
		synErr := testSyntaxError(t, err, 0, 2, []string{"$", "add"})
		if synErr.Lexeme != "b" {
			t.Fatalf("unexpected lexeme; want: %v, got: %v", "b", synErr.Lexeme)
		}
		if gram.Action(synErr.State, id) != 0 {
			t.Fatalf("the state of the error must have no entry for id: %v", synErr.State)
		}
	})
}

func TestParser_LLAndLRBuildTheSameTree(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "tabula.driver")
	defer teardown()

	src := `(a + b) + c + (d)`
	lr := compileGrammar(t, exprLLSrc, spec.ClassSLR)
	ll := compileGrammar(t, exprLLSrc, spec.ClassLL1)

	_, lrTree, err := parseText(t, lr, src)
	if err != nil {
		t.Fatal(err)
	}
	_, llTree, err := parseText(t, ll, src)
	if err != nil {
		t.Fatal(err)
	}
	if !lrTree.Equal(llTree) {
		var lrOut, llOut strings.Builder
		PrintTree(&lrOut, lrTree)
		PrintTree(&llOut, llTree)
		t.Fatalf("trees differ;\nLR:\n%v\nLL:\n%v", lrOut.String(), llOut.String())
	}
}

func TestParser_Idempotent(t *testing.T) {
	for _, class := range []spec.Class{spec.ClassSLR, spec.ClassLL1} {
		t.Run(class.String(), func(t *testing.T) {
			cg := compileGrammar(t, exprLLSrc, class)
			_, tree1, err := parseText(t, cg, `a + (b + c)`)
			if err != nil {
				t.Fatal(err)
			}
			_, tree2, err := parseText(t, cg, `a + (b + c)`)
			if err != nil {
				t.Fatal(err)
			}
			if !tree1.Equal(tree2) {
				t.Fatal("parsing the same input twice must yield the same tree")
			}
		})
	}
}

func TestParser_Transitions(t *testing.T) {
	tests := []struct {
		caption string
		specSrc string
		class   spec.Class
		src     string
		kinds   []TransitionKind
	}{
		{
			caption: "the SLR parser shifts and reduces",
			specSrc: exprLRSrc,
			class:   spec.ClassSLR,
			src:     `a + b`,
			kinds: []TransitionKind{
				TransitionKindShift,
				TransitionKindReduce,
				TransitionKindReduce,
				TransitionKindShift,
				TransitionKindShift,
				TransitionKindReduce,
				TransitionKindReduce,
				TransitionKindAccept,
			},
		},
		{
			caption: "the LL parser predicts and matches",
			specSrc: `
s
    : a s
    |
    ;
a: 'a';
`,
			class: spec.ClassLL1,
			src:   `aa`,
			kinds: []TransitionKind{
				TransitionKindPredict,
				TransitionKindMatch,
				TransitionKindPredict,
				TransitionKindMatch,
				TransitionKindPredict,
				TransitionKindAccept,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			cg := compileGrammar(t, tt.specSrc, tt.class)
			p, _, err := parseText(t, cg, tt.src, RecordTransitions())
			if err != nil {
				t.Fatal(err)
			}
			trans := p.Transitions()
			if len(trans) != len(tt.kinds) {
				t.Fatalf("unexpected transition count; want: %v, got: %v (%v)", len(tt.kinds), len(trans), trans)
			}
			for i, k := range tt.kinds {
				if trans[i].Kind != k {
					t.Fatalf("unexpected transition #%v; want: %v, got: %v", i, k, trans[i])
				}
			}
		})
	}

	t.Run("transitions are not recorded by default", func(t *testing.T) {
		cg := compileGrammar(t, exprLRSrc, spec.ClassSLR)
		p, _, err := parseText(t, cg, `a`)
		if err != nil {
			t.Fatal(err)
		}
		if len(p.Transitions()) != 0 {
			t.Fatalf("unexpected transitions: %v", p.Transitions())
		}
	})
}

func TestParser_SyntaxError(t *testing.T) {
	tests := []struct {
		caption     string
		class       spec.Class
		src         string
		message     string
		row         int
		col         int
		nonTerminal string
		expected    []string
	}{
		{
			caption:     "the LL parser names the non-terminal it was expanding",
			class:       spec.ClassLL1,
			src:         `a +`,
			message:     "unexpected end of input",
			row:         0,
			col:         3,
			nonTerminal: "term",
			expected:    []string{"id", "l_paren"},
		},
		{
			caption:     "the LL parser names the non-terminal whose body it was matching",
			class:       spec.ClassLL1,
			src:         `(a`,
			message:     "unexpected end of input",
			row:         0,
			col:         2,
			nonTerminal: "term",
			expected:    []string{"r_paren"},
		},
		{
			caption:  "the SLR parser reports the error in the state it reached after reducing",
			class:    spec.ClassSLR,
			src:      "a\n)",
			message:  "unexpected token",
			row:      1,
			col:      0,
			expected: []string{"$"},
		},
		{
			caption:  "an invalid token is a syntax error",
			class:    spec.ClassSLR,
			src:      `a+!`,
			message:  "invalid token",
			row:      0,
			col:      2,
			expected: []string{"id", "l_paren"},
		},
		{
			caption:     "an invalid token is a syntax error",
			class:       spec.ClassLL1,
			src:         `a+!`,
			message:     "invalid token",
			row:         0,
			col:         2,
			nonTerminal: "term",
			expected:    []string{"id", "l_paren"},
		},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v (%v)", tt.caption, tt.class), func(t *testing.T) {
			cg := compileGrammar(t, exprLLSrc, tt.class)
			p, tree, err := parseText(t, cg, tt.src)
			if tree != nil {
				t.Fatal("a failed parse must not yield a tree")
			}
			synErr := testSyntaxError(t, err, tt.row, tt.col, tt.expected)
			if synErr.Message != tt.message {
				t.Fatalf("unexpected message; want: %v, got: %v", tt.message, synErr.Message)
			}
			if synErr.NonTerminal != tt.nonTerminal {
				t.Fatalf("unexpected non-terminal; want: %v, got: %v", tt.nonTerminal, synErr.NonTerminal)
			}
			switch tt.class {
			case spec.ClassSLR:
				if synErr.State < 0 {
					t.Fatalf("an LR error must cite a state")
				}
			case spec.ClassLL1:
				if synErr.State != -1 {
					t.Fatalf("an LL error has no state; got: %v", synErr.State)
				}
			}

			diag := p.Diagnostics()
			if diag.Len() != 1 || !diag.HasErrors() {
				t.Fatalf("the parser must report exactly one error; got: %v", diag)
			}
			e := diag.Entries()[0]
			if e.Row != tt.row+1 || e.Col != tt.col+1 {
				t.Fatalf("a diagnostic position is 1-based; want: %v:%v, got: %v:%v", tt.row+1, tt.col+1, e.Row, e.Col)
			}
		})
	}
}

func TestParser_InvalidTokenFromSlice(t *testing.T) {
	cg := compileGrammar(t, exprLRSrc, spec.ClassSLR)
	gram := NewGrammar(cg)
	p, err := NewParser(gram, NewSliceTokenStream([]VToken{
		NewInvalidToken("?", 2, 5),
	}))
	if err != nil {
		t.Fatal(err)
	}
	err = p.Parse()
	synErr := testSyntaxError(t, err, 2, 5, []string{"id"})
	if synErr.Lexeme != "?" {
		t.Fatalf("unexpected lexeme: %v", synErr.Lexeme)
	}
}

func TestParser_UnknownTerminalFromSlice(t *testing.T) {
	cg := compileGrammar(t, exprLRSrc, spec.ClassSLR)
	eof := cg.Syntactic.EOFSymbol

	tests := []struct {
		caption  string
		terminal int
	}{
		{
			caption:  "a terminal number equal to the terminal count",
			terminal: cg.Syntactic.TerminalCount,
		},
		{
			caption:  "a terminal number far beyond the terminal count",
			terminal: 999,
		},
		{
			caption:  "a negative terminal number",
			terminal: -1,
		},
		{
			caption:  "the nil terminal",
			terminal: 0,
		},
		{
			caption:  "the end-of-input terminal on an ordinary token",
			terminal: eof,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			gram := NewGrammar(cg)
			p, err := NewParser(gram, NewSliceTokenStream([]VToken{
				NewToken(tt.terminal, "?", 1, 3),
			}), SemanticAction(NewSyntaxTreeActionSet(gram)))
			if err != nil {
				t.Fatal(err)
			}
			err = p.Parse()
			synErr := testSyntaxError(t, err, 1, 3, []string{"id"})
			if synErr.Message != "unknown terminal" {
				t.Fatalf("unexpected message: %v", synErr.Message)
			}
		})
	}
}

func TestParser_EOFTokenFromSlice(t *testing.T) {
	tests := []struct {
		caption string
		specSrc string
		class   spec.Class
		trailer bool
	}{
		{
			caption: "LR: an end-of-input token may end the stream",
			specSrc: exprLRSrc,
			class:   spec.ClassSLR,
		},
		{
			caption: "LR: a token after an end-of-input token is an error",
			specSrc: exprLRSrc,
			class:   spec.ClassSLR,
			trailer: true,
		},
		{
			caption: "LL(1): an end-of-input token may end the stream",
			specSrc: exprLLSrc,
			class:   spec.ClassLL1,
		},
		{
			caption: "LL(1): a token after an end-of-input token is an error",
			specSrc: exprLLSrc,
			class:   spec.ClassLL1,
			trailer: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			cg := compileGrammar(t, tt.specSrc, tt.class)
			id := terminalNum(t, cg, "id")
			toks := []VToken{
				NewToken(id, "a", 0, 0),
				newEOFToken(cg.Syntactic.EOFSymbol, 0, 1),
			}
			if tt.trailer {
				toks = append(toks, NewToken(id, "b", 0, 2))
			}
			gram := NewGrammar(cg)
			treeAct := NewSyntaxTreeActionSet(gram)
			p, err := NewParser(gram, NewSliceTokenStream(toks), SemanticAction(treeAct))
			if err != nil {
				t.Fatal(err)
			}
			err = p.Parse()
			if !tt.trailer {
				if err != nil {
					t.Fatal(err)
				}
				if treeAct.Tree() == nil {
					t.Fatal("the parser must build a tree")
				}
				return
			}
			var synErr *SyntaxError
			if !errors.As(err, &synErr) {
				t.Fatalf("unexpected error; want: %T, got: %v (%T)", synErr, err, err)
			}
			if synErr.Row != 0 || synErr.Col != 2 || synErr.Lexeme != "b" {
				t.Fatalf("the error must point at the trailing token; got: %v", synErr)
			}
			if synErr.Message != "unexpected token after the end of input" {
				t.Fatalf("unexpected message: %v", synErr.Message)
			}
		})
	}
}

type brokenGoToGrammar struct {
	Grammar
}

func (g *brokenGoToGrammar) GoTo(state int, lhs int) int {
	return 0
}

type brokenCountGrammar struct {
	Grammar
}

func (g *brokenCountGrammar) AlternativeSymbolCount(prod int) int {
	return g.Grammar.AlternativeSymbolCount(prod) + 5
}

func TestParser_StructuralError(t *testing.T) {
	cg := compileGrammar(t, exprLRSrc, spec.ClassSLR)
	id := terminalNum(t, cg, "id")

	tests := []struct {
		caption string
		gram    Grammar
	}{
		{
			caption: "an empty goto entry after a reduction is a structural error",
			gram:    &brokenGoToGrammar{Grammar: NewGrammar(cg)},
		},
		{
			caption: "a reduction popping more symbols than the stack holds is a structural error",
			gram:    &brokenCountGrammar{Grammar: NewGrammar(cg)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			p, err := NewParser(tt.gram, NewSliceTokenStream([]VToken{
				NewToken(id, "a", 0, 0),
			}))
			if err != nil {
				t.Fatal(err)
			}
			err = p.Parse()
			var structErr *StructuralError
			if !errors.As(err, &structErr) {
				t.Fatalf("unexpected error; want: %T, got: %v (%T)", structErr, err, err)
			}
		})
	}
}

type testSemAct struct {
	gram   Grammar
	actLog []string
}

func (a *testSemAct) Shift(tok VToken) {
	a.actLog = append(a.actLog, fmt.Sprintf("shift/%v", a.gram.Terminal(tok.TerminalID())))
}

func (a *testSemAct) Reduce(prodNum int) {
	a.actLog = append(a.actLog, fmt.Sprintf("reduce/%v", a.gram.NonTerminal(a.gram.LHS(prodNum))))
}

func (a *testSemAct) Accept() {
	a.actLog = append(a.actLog, "accept")
}

func TestParserWithSemanticAction(t *testing.T) {
	expected := []string{
		"shift/id",
		"reduce/term",
		"shift/add",
		"shift/id",
		"reduce/term",
		"reduce/expr_tail",
		"reduce/expr_tail",
		"reduce/expr",
		"accept",
	}
	for _, class := range []spec.Class{spec.ClassSLR, spec.ClassLL1} {
		t.Run(class.String(), func(t *testing.T) {
			cg := compileGrammar(t, exprLLSrc, class)
			toks, err := NewTokenStream(cg, strings.NewReader(`a+b`))
			if err != nil {
				t.Fatal(err)
			}
			gram := NewGrammar(cg)
			semAct := &testSemAct{
				gram: gram,
			}
			p, err := NewParser(gram, toks, SemanticAction(semAct))
			if err != nil {
				t.Fatal(err)
			}
			err = p.Parse()
			if err != nil {
				t.Fatal(err)
			}
			if len(semAct.actLog) != len(expected) {
				t.Fatalf("unexpected action log; want: %+v, got: %+v", expected, semAct.actLog)
			}
			for i, e := range expected {
				if semAct.actLog[i] != e {
					t.Fatalf("unexpected action log; want: %+v, got: %+v", expected, semAct.actLog)
				}
			}
		})
	}
}

func TestSemanticAction_CannotBeNil(t *testing.T) {
	cg := compileGrammar(t, exprLRSrc, spec.ClassSLR)
	_, err := NewParser(NewGrammar(cg), NewSliceTokenStream(nil), SemanticAction(nil))
	if err == nil {
		t.Fatal("a nil semantic action set must be rejected")
	}
}

func testSyntaxError(t *testing.T, err error, row, col int, expected []string) *SyntaxError {
	t.Helper()

	var synErr *SyntaxError
	if !errors.As(err, &synErr) {
		t.Fatalf("unexpected error; want: %T, got: %v (%T)", synErr, err, err)
	}
	if synErr.Row != row || synErr.Col != col {
		t.Fatalf("unexpected position; want: %v:%v, got: %v:%v", row, col, synErr.Row, synErr.Col)
	}
	if len(synErr.ExpectedTerminals) != len(expected) {
		t.Fatalf("unexpected expected terminals; want: %v, got: %v", expected, synErr.ExpectedTerminals)
	}
	for i, e := range expected {
		if synErr.ExpectedTerminals[i] != e {
			t.Fatalf("unexpected expected terminals; want: %v, got: %v", expected, synErr.ExpectedTerminals)
		}
	}
	return synErr
}
