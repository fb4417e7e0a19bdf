package tabular

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/nihei9/tabula/grammar"
	spec "github.com/nihei9/tabula/spec/grammar"
	"github.com/nihei9/tabula/spec/grammar/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exprSrc = `
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

func compile(t *testing.T, src string, class spec.Class) *spec.SyntacticSpec {
	t.Helper()

	ast, err := parser.Parse(strings.NewReader(src))
	require.NoError(t, err)
	b := grammar.GrammarBuilder{
		AST: ast,
	}
	gram, err := b.Build()
	require.NoError(t, err)
	cg, _, err := grammar.Compile(gram, grammar.Class(class))
	require.NoError(t, err)
	return cg.Syntactic
}

func TestWriteRead_RoundTrip(t *testing.T) {
	for _, class := range []spec.Class{spec.ClassSLR, spec.ClassLL1} {
		t.Run(class.String(), func(t *testing.T) {
			syn := compile(t, exprSrc, class)

			var buf bytes.Buffer
			require.NoError(t, Write(&buf, syn))

			loaded, err := Read(&buf, syn)
			require.NoError(t, err)
			assert.Equal(t, syn.Class, loaded.Class)
			assert.Equal(t, syn.Action, loaded.Action)
			assert.Equal(t, syn.GoTo, loaded.GoTo)
			assert.Equal(t, syn.Prediction, loaded.Prediction)
			assert.Equal(t, syn.StateCount, loaded.StateCount)
			assert.Equal(t, syn.InitialState, loaded.InitialState)
		})
	}
}

func TestWrite_Format(t *testing.T) {
	src := `
s
    : a s
    |
    ;
a: 'a';
`
	t.Run("slr", func(t *testing.T) {
		syn := compile(t, src, spec.ClassSLR)
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, syn))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Equal(t, "state,a,$,s", lines[0])
		require.Len(t, lines, syn.StateCount+1)
		assert.Contains(t, buf.String(), "accept")
		assert.Contains(t, lines[1], "shift")
	})

	t.Run("ll1", func(t *testing.T) {
		syn := compile(t, src, spec.ClassLL1)
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, syn))

		assert.Equal(t, "non-terminal,a,$\ns,a s,ε\n", buf.String())
	})
}

func TestRead_ColumnOrderIsFree(t *testing.T) {
	syn := compile(t, exprSrc, spec.ClassLL1)

	src := `non-terminal,$,id,r_paren,l_paren,add
expr,,term expr_tail,,term expr_tail,
expr_tail,ε,,ε,,add term expr_tail
term,,id,,l_paren expr r_paren,
`
	loaded, err := Read(strings.NewReader(src), syn)
	require.NoError(t, err)
	assert.Equal(t, syn.Prediction, loaded.Prediction)
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		caption string
		class   spec.Class
		src     string
		cause   error
		row     int
		col     int
	}{
		{
			caption: "an empty table has no header",
			class:   spec.ClassSLR,
			src:     ``,
			cause:   errNoHeader,
		},
		{
			caption: "the first column must name the row kind",
			class:   spec.ClassSLR,
			src:     "foo,add\n",
			cause:   errNoHeader,
			row:     1,
			col:     1,
		},
		{
			caption: "an unknown column is an error",
			class:   spec.ClassLL1,
			src:     "non-terminal,add,l_paren,r_paren,id,$,mul\n",
			cause:   errUnknownColumn,
			row:     1,
			col:     7,
		},
		{
			caption: "a missing column is an error",
			class:   spec.ClassLL1,
			src:     "non-terminal,add,l_paren,r_paren,id\n",
			cause:   errMissingColumn,
			row:     1,
		},
		{
			caption: "an unknown row label is an error",
			class:   spec.ClassLL1,
			src:     "non-terminal,add,l_paren,r_paren,id,$\nfoo,,,,,\n",
			cause:   errUnknownRow,
			row:     2,
			col:     1,
		},
		{
			caption: "a body matching no production of the row is an error",
			class:   spec.ClassLL1,
			src:     "non-terminal,add,l_paren,r_paren,id,$\nterm,,,,term,\n",
			cause:   errUnknownProduction,
			row:     2,
			col:     5,
		},
		{
			caption: "a state label must be a state number",
			class:   spec.ClassSLR,
			src:     "state,add,l_paren,r_paren,id,$,expr,expr_tail,term\nx,,,,,,,,\n",
			cause:   errUnknownRow,
			row:     2,
			col:     1,
		},
		{
			caption: "a malformed action cell is an error",
			class:   spec.ClassSLR,
			src:     "state,add,l_paren,r_paren,id,$,expr,expr_tail,term\n0,,jump1,,,,,,\n",
			cause:   errMalformedCell,
			row:     2,
			col:     3,
		},
		{
			caption: "a goto cell must be a state number",
			class:   spec.ClassSLR,
			src:     "state,add,l_paren,r_paren,id,$,expr,expr_tail,term\n0,,,,,,99,,\n",
			cause:   errMalformedCell,
			row:     2,
			col:     7,
		},
		{
			caption: "a row with a wrong number of cells is malformed CSV",
			class:   spec.ClassSLR,
			src:     "state,add,l_paren,r_paren,id,$,expr,expr_tail,term\n0,,\n",
			cause:   errMalformedCSV,
			row:     2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			syn := compile(t, exprSrc, tt.class)

			_, err := Read(strings.NewReader(tt.src), syn)
			require.Error(t, err)

			var loadErr *TableLoadError
			require.True(t, errors.As(err, &loadErr), "unexpected error type: %T", err)
			assert.ErrorIs(t, err, tt.cause)
			assert.Equal(t, tt.row, loadErr.Row)
			if tt.col > 0 {
				assert.Equal(t, tt.col, loadErr.Col)
			}
		})
	}
}

func TestRead_MissingRow(t *testing.T) {
	tests := []struct {
		caption string
		class   spec.Class
		detail  string
	}{
		{
			caption: "an LR table without its last state row is incomplete",
			class:   spec.ClassSLR,
		},
		{
			caption: "an LL(1) table without a non-terminal row is incomplete",
			class:   spec.ClassLL1,
			detail:  "term",
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			syn := compile(t, exprSrc, tt.class)

			var b bytes.Buffer
			require.NoError(t, Write(&b, syn))
			lines := strings.Split(strings.TrimSuffix(b.String(), "\n"), "\n")
			truncated := strings.Join(lines[:len(lines)-1], "\n") + "\n"

			_, err := Read(strings.NewReader(truncated), syn)
			require.Error(t, err)

			var loadErr *TableLoadError
			require.True(t, errors.As(err, &loadErr), "unexpected error type: %T", err)
			assert.ErrorIs(t, err, errMissingRow)
			detail := tt.detail
			if detail == "" {
				detail = fmt.Sprintf("state %v", syn.StateCount-1)
			}
			assert.Equal(t, detail, loadErr.Detail)
		})
	}
}
