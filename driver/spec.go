package driver

import spec "github.com/nihei9/tabula/spec/grammar"

// Grammar is the read-only view of a compiled table the parser drives.
type Grammar interface {
	// Class returns the table class. The parser runs the shift/reduce automaton for spec.ClassSLR
	// and the predict/match automaton for spec.ClassLL1.
	Class() spec.Class

	InitialState() int

	// StartProduction returns the number of the augmented start production. Reducing it means accept.
	StartProduction() int

	// StartSymbol returns the user-declared start non-terminal.
	StartSymbol() int

	// Action returns an ACTION entry: 0 when empty, -s for shift to state s, and p+1 for reduce by production p.
	Action(state int, terminal int) int

	// GoTo returns a GOTO entry: 0 when empty, otherwise the next state.
	GoTo(state int, lhs int) int

	// Prediction returns a prediction entry: 0 when empty, otherwise p+1.
	Prediction(nonTerminal int, terminal int) int

	LHS(prod int) int
	AlternativeSymbolCount(prod int) int

	// RHS returns the body of a production. A terminal is stored as its number and a non-terminal
	// as its number negated.
	RHS(prod int) []int

	TerminalCount() int
	NonTerminalCount() int
	SkipTerminal(terminal int) bool
	EOF() int
	Terminal(terminal int) string
	NonTerminal(nonTerminal int) string
}

var _ Grammar = &grammarImpl{}

type grammarImpl struct {
	g *spec.SyntacticSpec
}

func NewGrammar(g *spec.CompiledGrammar) *grammarImpl {
	return &grammarImpl{
		g: g.Syntactic,
	}
}

func (g *grammarImpl) Class() spec.Class {
	return g.g.Class
}

func (g *grammarImpl) InitialState() int {
	return g.g.InitialState
}

func (g *grammarImpl) StartProduction() int {
	return g.g.StartProduction
}

func (g *grammarImpl) StartSymbol() int {
	return g.g.StartSymbol
}

func (g *grammarImpl) Action(state int, terminal int) int {
	return g.g.Action[state*g.g.TerminalCount+terminal]
}

func (g *grammarImpl) GoTo(state int, lhs int) int {
	return g.g.GoTo[state*g.g.NonTerminalCount+lhs]
}

func (g *grammarImpl) Prediction(nonTerminal int, terminal int) int {
	return g.g.Prediction[nonTerminal*g.g.TerminalCount+terminal]
}

func (g *grammarImpl) LHS(prod int) int {
	return g.g.LHSSymbols[prod]
}

func (g *grammarImpl) AlternativeSymbolCount(prod int) int {
	return g.g.AlternativeSymbolCounts[prod]
}

func (g *grammarImpl) RHS(prod int) []int {
	return g.g.RHSSymbols[prod]
}

func (g *grammarImpl) TerminalCount() int {
	return g.g.TerminalCount
}

func (g *grammarImpl) NonTerminalCount() int {
	return g.g.NonTerminalCount
}

func (g *grammarImpl) SkipTerminal(terminal int) bool {
	return g.g.TerminalSkip[terminal] == 1
}

func (g *grammarImpl) EOF() int {
	return g.g.EOFSymbol
}

func (g *grammarImpl) Terminal(terminal int) string {
	return g.g.Terminals[terminal]
}

func (g *grammarImpl) NonTerminal(nonTerminal int) string {
	return g.g.NonTerminals[nonTerminal]
}
