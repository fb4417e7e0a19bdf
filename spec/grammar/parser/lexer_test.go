package parser

import (
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestLexer_Run(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "tabula.parser")
	defer teardown()

	idTok := func(text string) *token {
		return newIDToken(text, newPosition(1, 0))
	}

	termPatTok := func(text string) *token {
		return newTerminalPatternToken(text, newPosition(1, 0))
	}

	strTok := func(text string) *token {
		return newStringLiteralToken(text, newPosition(1, 0))
	}

	symTok := func(kind tokenKind) *token {
		return newSymbolToken(kind, newPosition(1, 0))
	}

	invalidTok := func(text string) *token {
		return newInvalidToken(text, newPosition(1, 0))
	}

	eofTok := func() *token {
		return newEOFToken(newPosition(1, 0))
	}

	tests := []struct {
		caption string
		src     string
		tokens  []*token
		err     *SyntaxError
	}{
		{
			caption: "the lexer can recognize all kinds of tokens",
			src:     `id"terminal"'string':|;#`,
			tokens: []*token{
				idTok("id"),
				termPatTok("terminal"),
				strTok(`string`),
				symTok(tokenKindColon),
				symTok(tokenKindOr),
				symTok(tokenKindSemicolon),
				symTok(tokenKindDirectiveMarker),
				eofTok(),
			},
		},
		{
			caption: "the lexer can recognize character sequences and escape sequences in a terminal",
			src:     `"abc\"\\"`,
			tokens: []*token{
				termPatTok(`abc"\\`),
				eofTok(),
			},
		},
		{
			caption: "backslashes are recognized as they are because escape sequences are not allowed in strings",
			src:     `'\\\'`,
			tokens: []*token{
				strTok(`\\\`),
				eofTok(),
			},
		},
		{
			caption: "a pattern must include at least one character",
			src:     `""`,
			err:     synErrEmptyPattern,
		},
		{
			caption: "a string must include at least one character",
			src:     `''`,
			err:     synErrEmptyString,
		},
		{
			caption: "the lexer skips newlines",
			src:     "\u000A | \u000D | \u000D\u000A | \u000A\u000A \u000D\u000D \u000D\u000A\u000D\u000A",
			tokens: []*token{
				symTok(tokenKindOr),
				symTok(tokenKindOr),
				symTok(tokenKindOr),
				eofTok(),
			},
		},
		{
			caption: "the lexer ignores line comments",
			src: `
// This is the first comment.
foo
// This is the second comment.
// This is the third comment.
bar // This is the fourth comment.
`,
			tokens: []*token{
				idTok("foo"),
				idTok("bar"),
				eofTok(),
			},
		},
		{
			caption: "an identifier cannot contain the capital-case letters",
			src:     `Abc`,
			err:     synErrIDInvalidChar,
		},
		{
			caption: "an identifier cannot contain the capital-case letters",
			src:     `Zyx`,
			err:     synErrIDInvalidChar,
		},
		{
			caption: "the underscore cannot be placed at the beginning of an identifier",
			src:     `_abc`,
			err:     synErrIDInvalidUnderscorePos,
		},
		{
			caption: "the underscore cannot be placed at the end of an identifier",
			src:     `abc_`,
			err:     synErrIDInvalidUnderscorePos,
		},
		{
			caption: "the underscore cannot be placed consecutively",
			src:     `a__b`,
			err:     synErrIDConsecutiveUnderscores,
		},
		{
			caption: "the digits cannot be placed at the biginning of an identifier",
			src:     `0abc`,
			err:     synErrIDInvalidDigitsPos,
		},
		{
			caption: "the digits cannot be placed at the biginning of an identifier",
			src:     `9abc`,
			err:     synErrIDInvalidDigitsPos,
		},
		{
			caption: "an unclosed terminal is not a valid token",
			src:     `"abc`,
			err:     synErrUnclosedTerminal,
		},
		{
			caption: "an incompleted escape sequence in a pattern is not a valid token",
			src:     `"\`,
			err:     synErrIncompletedEscSeq,
		},
		{
			caption: "an unclosed string is not a valid token",
			src:     `'abc`,
			err:     synErrUnclosedString,
		},
		{
			caption: "the lexer can recognize valid tokens following an invalid token",
			src:     `abc!!!def`,
			tokens: []*token{
				idTok("abc"),
				invalidTok("!"),
				invalidTok("!"),
				invalidTok("!"),
				idTok("def"),
				eofTok(),
			},
		},
		{
			caption: "the lexer skips white spaces",
			// \u0009: HT
			// \u0020: SP
			src: "a\u0009b\u0020c",
			tokens: []*token{
				idTok("a"),
				idTok("b"),
				idTok("c"),
				eofTok(),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			l, err := newLexer(strings.NewReader(tt.src))
			if err != nil {
				t.Fatal(err)
			}
			n := 0
			for {
				var tok *token
				tok, err = l.next()
				if err != nil {
					break
				}
				if n >= len(tt.tokens) {
					t.Fatalf("too many tokens; got: %+v", tok)
				}
				testToken(t, tok, tt.tokens[n])
				n++
				if tok.kind == tokenKindEOF {
					break
				}
			}
			if tt.err != nil {
				lexErr, ok := err.(*lexError)
				if !ok {
					t.Fatalf("unexpected error; want: %v, got: %v", tt.err, err)
				}
				if tt.err != lexErr.cause {
					t.Fatalf("unexpected error; want: %v, got: %v", tt.err, lexErr.cause)
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error; want: %v, got: %v", tt.err, err)
				}
			}
		})
	}
}

func TestLexer_Position(t *testing.T) {
	l, err := newLexer(strings.NewReader("s\n    : foo\n    ;"))
	if err != nil {
		t.Fatal(err)
	}
	expected := []Position{
		newPosition(1, 1),
		newPosition(2, 5),
		newPosition(2, 7),
		newPosition(3, 5),
	}
	for _, e := range expected {
		tok, err := l.next()
		if err != nil {
			t.Fatal(err)
		}
		if tok.pos != e {
			t.Fatalf("unexpected position; want: %+v, got: %+v (%v)", e, tok.pos, tok.kind)
		}
	}
}

func testToken(t *testing.T, tok, expected *token) {
	t.Helper()
	if tok.kind != expected.kind || tok.text != expected.text {
		t.Fatalf("unexpected token; want: %+v, got: %+v", expected, tok)
	}
}
