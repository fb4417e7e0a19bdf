package driver

import (
	"io"

	mldriver "github.com/nihei9/maleeni/driver"
	spec "github.com/nihei9/tabula/spec/grammar"
)

// VToken is a token the parser consumes. Position returns a 0-based row and column.
type VToken interface {
	TerminalID() int
	Lexeme() []byte
	EOF() bool
	Invalid() bool
	Position() (int, int)
}

// TokenStream supplies tokens to the parser. A stream signals its end either by returning a token
// whose EOF method reports true or by returning io.EOF; in the latter case the parser appends
// the end-of-input token itself.
type TokenStream interface {
	Next() (VToken, error)
}

type vToken struct {
	terminalID int
	tok        *mldriver.Token
}

func (t *vToken) TerminalID() int {
	return t.terminalID
}

func (t *vToken) Lexeme() []byte {
	return t.tok.Lexeme
}

func (t *vToken) EOF() bool {
	return t.tok.EOF
}

func (t *vToken) Invalid() bool {
	return t.tok.Invalid
}

func (t *vToken) Position() (int, int) {
	return t.tok.Row, t.tok.Col
}

type tokenStream struct {
	lex            *mldriver.Lexer
	kindToTerminal []int
}

// NewTokenStream returns a stream that tokenizes src with the lexical productions of g.
func NewTokenStream(g *spec.CompiledGrammar, src io.Reader) (TokenStream, error) {
	lex, err := mldriver.NewLexer(mldriver.NewLexSpec(g.Lexical.Maleeni), src)
	if err != nil {
		return nil, err
	}

	return &tokenStream{
		lex:            lex,
		kindToTerminal: g.Lexical.KindToTerminal,
	}, nil
}

func (l *tokenStream) Next() (VToken, error) {
	tok, err := l.lex.Next()
	if err != nil {
		return nil, err
	}
	return &vToken{
		terminalID: l.kindToTerminal[tok.KindID],
		tok:        tok,
	}, nil
}

type token struct {
	terminalID int
	lexeme     []byte
	eof        bool
	invalid    bool
	row        int
	col        int
}

// NewToken returns a token of a terminal at a 0-based position.
func NewToken(terminalID int, lexeme string, row, col int) VToken {
	return &token{
		terminalID: terminalID,
		lexeme:     []byte(lexeme),
		row:        row,
		col:        col,
	}
}

// NewInvalidToken returns a token that matched no lexical rule.
func NewInvalidToken(lexeme string, row, col int) VToken {
	return &token{
		lexeme:  []byte(lexeme),
		invalid: true,
		row:     row,
		col:     col,
	}
}

func newEOFToken(eof, row, col int) VToken {
	return &token{
		terminalID: eof,
		eof:        true,
		row:        row,
		col:        col,
	}
}

func (t *token) TerminalID() int {
	return t.terminalID
}

func (t *token) Lexeme() []byte {
	return t.lexeme
}

func (t *token) EOF() bool {
	return t.eof
}

func (t *token) Invalid() bool {
	return t.invalid
}

func (t *token) Position() (int, int) {
	return t.row, t.col
}

type sliceTokenStream struct {
	toks []VToken
	pos  int
}

// NewSliceTokenStream returns a stream over tokens a caller produced itself. An end-of-input token
// may only end the slice, and every other token must carry a terminal of the grammar.
func NewSliceTokenStream(toks []VToken) TokenStream {
	return &sliceTokenStream{
		toks: toks,
	}
}

func (s *sliceTokenStream) Next() (VToken, error) {
	if s.pos >= len(s.toks) {
		return nil, io.EOF
	}
	tok := s.toks[s.pos]
	s.pos++
	return tok, nil
}
