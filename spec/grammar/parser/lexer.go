package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/npillmayer/schuko/tracing"
	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"
)

// tracer traces with key 'tabula.parser'.
func tracer() tracing.Trace {
	return tracing.Select("tabula.parser")
}

type tokenKind int

const (
	tokenKindEOF tokenKind = iota
	tokenKindInvalid
	tokenKindID
	tokenKindTerminalPattern
	tokenKindStringLiteral
	tokenKindColon
	tokenKindOr
	tokenKindSemicolon
	tokenKindDirectiveMarker
)

func (k tokenKind) String() string {
	switch k {
	case tokenKindEOF:
		return "EOF"
	case tokenKindInvalid:
		return "invalid"
	case tokenKindID:
		return "id"
	case tokenKindTerminalPattern:
		return "terminal pattern"
	case tokenKindStringLiteral:
		return "string"
	case tokenKindColon:
		return ":"
	case tokenKindOr:
		return "|"
	case tokenKindSemicolon:
		return ";"
	case tokenKindDirectiveMarker:
		return "#"
	}
	return fmt.Sprintf("tokenKind(%d)", int(k))
}

// Position is a 1-based row and column in a grammar description.
type Position struct {
	Row int
	Col int
}

func newPosition(row, col int) Position {
	return Position{
		Row: row,
		Col: col,
	}
}

type token struct {
	kind tokenKind
	text string
	pos  Position
}

func newSymbolToken(kind tokenKind, pos Position) *token {
	return &token{
		kind: kind,
		pos:  pos,
	}
}

func newIDToken(text string, pos Position) *token {
	return &token{
		kind: tokenKindID,
		text: text,
		pos:  pos,
	}
}

func newTerminalPatternToken(text string, pos Position) *token {
	return &token{
		kind: tokenKindTerminalPattern,
		text: text,
		pos:  pos,
	}
}

func newStringLiteralToken(text string, pos Position) *token {
	return &token{
		kind: tokenKindStringLiteral,
		text: text,
		pos:  pos,
	}
}

func newInvalidToken(text string, pos Position) *token {
	return &token{
		kind: tokenKindInvalid,
		text: text,
		pos:  pos,
	}
}

func newEOFToken(pos Position) *token {
	return &token{
		kind: tokenKindEOF,
		pos:  pos,
	}
}

// lexError is a lexical error found at a position.
type lexError struct {
	cause *SyntaxError
	pos   Position
}

func (e *lexError) Error() string {
	return fmt.Sprintf("%v:%v: %v", e.pos.Row, e.pos.Col, e.cause)
}

func newDescriptionLexer() (*lexmachine.Lexer, error) {
	lex := lexmachine.NewLexer()
	lex.Add([]byte(`( |\t|\n|\r)+`), skip)
	lex.Add([]byte(`//[^\n]*`), skip)
	lex.Add([]byte(`[A-Za-z0-9_]+`), makeToken(tokenKindID))
	lex.Add([]byte(`"([^"\\]|\\.)*"`), makeToken(tokenKindTerminalPattern))
	lex.Add([]byte(`'[^']*'`), makeToken(tokenKindStringLiteral))
	lex.Add([]byte(`:`), makeToken(tokenKindColon))
	lex.Add([]byte(`\|`), makeToken(tokenKindOr))
	lex.Add([]byte(`;`), makeToken(tokenKindSemicolon))
	lex.Add([]byte(`#`), makeToken(tokenKindDirectiveMarker))
	if err := lex.Compile(); err != nil {
		return nil, err
	}
	return lex, nil
}

func skip(*lexmachine.Scanner, *machines.Match) (interface{}, error) {
	return nil, nil
}

func makeToken(kind tokenKind) lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return s.Token(int(kind), string(m.Bytes), m), nil
	}
}

type lexer struct {
	scanner *lexmachine.Scanner
	src     []byte
	lastPos Position
}

func newLexer(src io.Reader) (*lexer, error) {
	b, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	lex, err := newDescriptionLexer()
	if err != nil {
		return nil, err
	}
	s, err := lex.Scanner(b)
	if err != nil {
		return nil, err
	}
	return &lexer{
		scanner: s,
		src:     b,
		lastPos: newPosition(1, 1),
	}, nil
}

func (l *lexer) next() (*token, error) {
	tok, err, eof := l.scanner.Next()
	if err != nil {
		ui, ok := err.(*machines.UnconsumedInput)
		if !ok {
			return nil, err
		}
		return l.unconsumed(ui)
	}
	if eof {
		return newEOFToken(l.lastPos), nil
	}

	t := tok.(*lexmachine.Token)
	pos := newPosition(t.StartLine, t.StartColumn)
	l.lastPos = newPosition(t.EndLine, t.EndColumn)
	text := string(t.Lexeme)

	tracer().Debugf("description token: %v %#v at %v:%v", tokenKind(t.Type), text, pos.Row, pos.Col)

	switch kind := tokenKind(t.Type); kind {
	case tokenKindID:
		if synErr := validateID(text); synErr != nil {
			return nil, &lexError{
				cause: synErr,
				pos:   pos,
			}
		}
		return newIDToken(text, pos), nil
	case tokenKindTerminalPattern:
		pat := text[1 : len(text)-1]
		if pat == "" {
			return nil, &lexError{
				cause: synErrEmptyPattern,
				pos:   pos,
			}
		}
		return newTerminalPatternToken(strings.ReplaceAll(pat, `\"`, `"`), pos), nil
	case tokenKindStringLiteral:
		str := text[1 : len(text)-1]
		if str == "" {
			return nil, &lexError{
				cause: synErrEmptyString,
				pos:   pos,
			}
		}
		return newStringLiteralToken(str, pos), nil
	default:
		return newSymbolToken(kind, pos), nil
	}
}

// unconsumed turns input no rule matches into either a lexical error or an invalid token.
// Scanning resumes after the offending character.
func (l *lexer) unconsumed(ui *machines.UnconsumedInput) (*token, error) {
	pos := newPosition(ui.StartLine, ui.StartColumn)
	switch l.src[ui.StartTC] {
	case '"':
		if strings.HasSuffix(string(l.src[ui.StartTC:]), `\`) {
			return nil, &lexError{
				cause: synErrIncompletedEscSeq,
				pos:   pos,
			}
		}
		return nil, &lexError{
			cause: synErrUnclosedTerminal,
			pos:   pos,
		}
	case '\'':
		return nil, &lexError{
			cause: synErrUnclosedString,
			pos:   pos,
		}
	}

	next := ui.FailTC
	if next <= ui.StartTC {
		next = ui.StartTC + 1
	}
	l.scanner.TC = next
	return newInvalidToken(string(l.src[ui.StartTC:next]), pos), nil
}

func validateID(id string) *SyntaxError {
	for _, c := range id {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			continue
		}
		return synErrIDInvalidChar
	}
	if id[0] == '_' || id[len(id)-1] == '_' {
		return synErrIDInvalidUnderscorePos
	}
	if strings.Contains(id, "__") {
		return synErrIDConsecutiveUnderscores
	}
	if id[0] >= '0' && id[0] <= '9' {
		return synErrIDInvalidDigitsPos
	}
	return nil
}
