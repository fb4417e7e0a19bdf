package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nihei9/tabula/grammar"
	spec "github.com/nihei9/tabula/spec/grammar"
	"github.com/nihei9/tabula/spec/grammar/parser"
	"github.com/pterm/pterm"
)

func genReport(t *testing.T, src string, opts ...grammar.CompileOption) *spec.Report {
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
	opts = append(opts, grammar.EnableReporting())
	_, report, _ := grammar.Compile(gram, opts...)
	if report == nil {
		t.Fatal("a report must be generated")
	}
	return report
}

func TestWriteReport(t *testing.T) {
	pterm.DisableColor()
	defer pterm.EnableColor()

	src := `
stmt
    : if_ id then stmt
    | if_ id then stmt else_ stmt
    | other
    ;
if_: 'if';
then: 'then';
else_: 'else';
other: 'other';
id: "[a-z]+";
`
	tests := []struct {
		caption  string
		opts     []grammar.CompileOption
		contains []string
	}{
		{
			caption: "an SLR report lists states and conflicts",
			opts:    []grammar.CompileOption{grammar.PreferShift()},
			contains: []string{
				"# Conflicts",
				"shift/reduce",
				"# States",
				"accept on $",
				"stmt → if_ id then stmt",
			},
		},
		{
			caption: "an LL(1) report lists predictions and conflicts",
			opts:    []grammar.CompileOption{grammar.Class(spec.ClassLL1)},
			contains: []string{
				"# Predictions",
				"prediction",
				"stmt → other",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			report := genReport(t, src, tt.opts...)
			var b bytes.Buffer
			err := writeReport(&b, report)
			if err != nil {
				t.Fatal(err)
			}
			for _, c := range tt.contains {
				if !strings.Contains(b.String(), c) {
					t.Errorf("the output must contain %#v;\n%v", c, b.String())
				}
			}
		})
	}
}

func TestWriteAutomatonDOT(t *testing.T) {
	src := `
expr
    : expr add id
    | id
    ;
add: '+';
id: "[a-z]+";
`
	report := genReport(t, src)
	var b bytes.Buffer
	err := writeAutomatonDOT(&b, report)
	if err != nil {
		t.Fatal(err)
	}
	out := b.String()

	if !strings.HasPrefix(out, "digraph automaton {\n") || !strings.HasSuffix(out, "}\n") {
		t.Fatalf("the output must be a single digraph;\n%v", out)
	}
	for _, c := range []string{
		`s000 [fillcolor=white label="{000 | expr' → ・ expr\l}"]`,
		"fillcolor=lightgray",
		`[label="id"]`,
		`[label="expr"]`,
	} {
		if !strings.Contains(out, c) {
			t.Errorf("the output must contain %#v;\n%v", c, out)
		}
	}

	edges := 0
	for _, s := range report.States {
		edges += len(s.Shift) + len(s.GoTo)
	}
	if n := strings.Count(out, " -> "); n != edges {
		t.Errorf("unexpected edge count; want: %v, got: %v", edges, n)
	}
	if n := strings.Count(out, "[fillcolor="); n != len(report.States) {
		t.Errorf("unexpected state count; want: %v, got: %v", len(report.States), n)
	}

	t.Run("an LL(1) report has no automaton", func(t *testing.T) {
		report := genReport(t, src, grammar.Class(spec.ClassLL1))
		if err := writeAutomatonDOT(&bytes.Buffer{}, report); err == nil {
			t.Fatal("an error was expected")
		}
	})
}

func TestEscapeRecord(t *testing.T) {
	tests := []struct {
		text     string
		expected string
	}{
		{text: "expr → ・ expr", expected: "expr → ・ expr"},
		{text: "a|b", expected: `a\|b`},
		{text: "{<x>}", expected: `\{\<x\>\}`},
		{text: `"\`, expected: `\"\\`},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := escapeRecord(tt.text); got != tt.expected {
				t.Fatalf("unexpected escape; want: %v, got: %v", tt.expected, got)
			}
		})
	}
}

func TestParseClass(t *testing.T) {
	tests := []struct {
		arg   string
		class spec.Class
		err   bool
	}{
		{arg: "slr", class: spec.ClassSLR},
		{arg: "ll1", class: spec.ClassLL1},
		{arg: "lalr", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			class, err := parseClass(tt.arg)
			if tt.err {
				if err == nil {
					t.Fatal("an error was expected")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if class != tt.class {
				t.Fatalf("unexpected class; want: %v, got: %v", tt.class, class)
			}
		})
	}
}
