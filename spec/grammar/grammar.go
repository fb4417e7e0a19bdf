package grammar

import mlspec "github.com/nihei9/maleeni/spec"

// Class is the table class a grammar was compiled into.
type Class string

const (
	ClassSLR = Class("slr")
	ClassLL1 = Class("ll1")
)

func (c Class) String() string {
	return string(c)
}

type CompiledGrammar struct {
	Name      string         `json:"name"`
	Lexical   *LexicalSpec   `json:"lexical"`
	Syntactic *SyntacticSpec `json:"syntactic"`
}

type LexicalSpec struct {
	Maleeni *mlspec.CompiledLexSpec `json:"maleeni"`

	// KindToTerminal maps a lexical kind ID to a terminal number.
	KindToTerminal []int `json:"kind_to_terminal"`

	// TerminalToKind maps a terminal number to a lexical kind ID.
	TerminalToKind []int `json:"terminal_to_kind"`

	// Patterns holds the pattern of each terminal indexed by terminal number.
	Patterns []string `json:"patterns"`
}

// SyntacticSpec is the parsing table of a grammar.
//
// For ClassSLR, Action is a StateCount x TerminalCount table and GoTo is a
// StateCount x NonTerminalCount table. An action entry is 0 when empty, -s for
// shift to state s, and p+1 for reduce by production p. Reducing StartProduction
// means accept. A goto entry is 0 when empty and the next state otherwise.
//
// For ClassLL1, Prediction is a NonTerminalCount x TerminalCount table whose
// entry is 0 when empty and p+1 when the non-terminal expands by production p.
type SyntacticSpec struct {
	Class                   Class    `json:"class"`
	Action                  []int    `json:"action,omitempty"`
	GoTo                    []int    `json:"goto,omitempty"`
	Prediction              []int    `json:"prediction,omitempty"`
	StateCount              int      `json:"state_count"`
	InitialState            int      `json:"initial_state"`
	StartProduction         int      `json:"start_production"`
	LHSSymbols              []int    `json:"lhs_symbols"`
	AlternativeSymbolCounts []int    `json:"alternative_symbol_counts"`

	// RHSSymbols holds the body of each production. A terminal is stored as its number and
	// a non-terminal as its number negated.
	RHSSymbols [][]int `json:"rhs_symbols"`

	Terminals        []string `json:"terminals"`
	TerminalCount    int      `json:"terminal_count"`
	TerminalSkip     []int    `json:"terminal_skip"`
	NonTerminals     []string `json:"non_terminals"`
	NonTerminalCount int      `json:"non_terminal_count"`
	EOFSymbol        int      `json:"eof_symbol"`

	// StartSymbol is the user-declared start non-terminal, not the augmented one.
	StartSymbol int `json:"start_symbol"`
}
