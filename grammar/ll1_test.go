package grammar

import (
	"testing"

	"github.com/nihei9/tabula/grammar/symbol"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

type expectedPrediction struct {
	nonTerm string
	term    string
	prod    []string
}

func genActualLL1Table(t *testing.T, src string) (*Grammar, *PredictionTable, *ll1TableBuilder) {
	t.Helper()

	gram := buildTestGrammar(t, src)
	symTab := gram.symbolTable.Reader()
	first, err := genFirstSet(gram.productionSet, symTab)
	if err != nil {
		t.Fatal(err)
	}
	follow, err := genFollowSet(gram.productionSet, first, symTab)
	if err != nil {
		t.Fatal(err)
	}
	b := &ll1TableBuilder{
		prods:        gram.productionSet,
		first:        first,
		follow:       follow,
		termCount:    symTab.TerminalCount(),
		nonTermCount: symTab.NonTerminalCount(),
		symTab:       symTab,
	}
	tab, err := b.build()
	if err != nil {
		t.Fatalf("failed to create a prediction table: %v", err)
	}
	return gram, tab, b
}

func TestGenLL1PredictionTable(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "tabula.grammar")
	defer teardown()

	src := `
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
`
	gram, tab, b := genActualLL1Table(t, src)
	genSym := newTestSymbolGenerator(t, gram.symbolTable.Reader())
	genProd := newTestProductionGenerator(t, genSym)

	if len(b.conflicts) != 0 {
		t.Fatalf("unexpected conflicts: %v", len(b.conflicts))
	}

	expected := []expectedPrediction{
		{nonTerm: "expr", term: "l_paren", prod: []string{"expr", "term", "expr_tail"}},
		{nonTerm: "expr", term: "id", prod: []string{"expr", "term", "expr_tail"}},
		{nonTerm: "expr_tail", term: "add", prod: []string{"expr_tail", "add", "term", "expr_tail"}},
		{nonTerm: "expr_tail", term: "r_paren", prod: []string{"expr_tail"}},
		{nonTerm: "expr_tail", term: "$", prod: []string{"expr_tail"}},
		{nonTerm: "term", term: "l_paren", prod: []string{"term", "l_paren", "expr", "r_paren"}},
		{nonTerm: "term", term: "id", prod: []string{"term", "id"}},
	}
	filled := map[[2]symbol.SymbolNum]struct{}{}
	for _, e := range expected {
		nonTerm := genSym(e.nonTerm)
		term := genSym(e.term)
		filled[[2]symbol.SymbolNum{nonTerm.Num(), term.Num()}] = struct{}{}

		num, ok := tab.lookup(nonTerm.Num(), term.Num())
		if !ok {
			t.Fatalf("a prediction was not found; (%v, %v)", e.nonTerm, e.term)
		}
		prod, ok := gram.productionSet.findByNum(num)
		if !ok {
			t.Fatalf("a production was not found: %v", num)
		}
		if prod.id != genProd(e.prod[0], e.prod[1:]...).id {
			t.Fatalf("unexpected prediction; (%v, %v): %v", e.nonTerm, e.term, num)
		}
	}

	symTab := gram.symbolTable.Reader()
	for _, nonTerm := range symTab.NonTerminalSymbols() {
		for _, term := range symTab.TerminalSymbols() {
			if _, ok := filled[[2]symbol.SymbolNum{nonTerm.Num(), term.Num()}]; ok {
				continue
			}
			if num, ok := tab.lookup(nonTerm.Num(), term.Num()); ok {
				t.Errorf("unexpected prediction; (%v, %v): %v", nonTerm, term, num)
			}
		}
	}
}

func TestGenLL1PredictionTable_Conflict(t *testing.T) {
	tests := []struct {
		caption   string
		src       string
		conflicts int
		nonTerm   string
		terms     []string
	}{
		{
			caption: "a left-recursive production conflicts",
			src: `
s
    : s a
    | a
    ;
a: 'a';
`,
			conflicts: 1,
			nonTerm:   "s",
			terms:     []string{"a"},
		},
		{
			caption: "alternatives sharing a prefix conflict",
			src: `
s
    : a b
    | a c
    ;
a: 'a';
b: 'b';
c: 'c';
`,
			conflicts: 1,
			nonTerm:   "s",
			terms:     []string{"a"},
		},
		{
			caption: "an empty alternative conflicts with a FIRST set overlapping the FOLLOW set",
			src: `
s
    : opt a
    ;
opt
    : a
    |
    ;
a: 'a';
`,
			conflicts: 1,
			nonTerm:   "opt",
			terms:     []string{"a"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			_, _, b := genActualLL1Table(t, tt.src)
			cs, err := b.exportConflicts()
			if err != nil {
				t.Fatal(err)
			}
			if len(cs) != tt.conflicts {
				t.Fatalf("unexpected conflict count; want: %v, got: %v", tt.conflicts, len(cs))
			}
			for i, c := range cs {
				if c.Kind != ConflictKindPredictionSet {
					t.Fatalf("unexpected conflict kind: %v", c.Kind)
				}
				if c.NonTerminal != tt.nonTerm {
					t.Fatalf("unexpected non-terminal; want: %v, got: %v", tt.nonTerm, c.NonTerminal)
				}
				if c.Terminal != tt.terms[i] {
					t.Fatalf("unexpected terminal; want: %v, got: %v", tt.terms[i], c.Terminal)
				}
				if c.Resolved {
					t.Fatalf("a prediction conflict is never resolved")
				}
				if len(c.Items) != 2 {
					t.Fatalf("a conflict must show both productions; got: %v", c.Items)
				}
			}
		})
	}
}
