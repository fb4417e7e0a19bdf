package driver

import (
	"fmt"

	"github.com/nihei9/tabula/compressor"
	spec "github.com/nihei9/tabula/spec/grammar"
)

var _ Grammar = &compressedGrammar{}

// compressedGrammar answers table lookups from compressed copies of the action, goto and prediction
// tables. Everything else comes from the compiled grammar.
type compressedGrammar struct {
	*grammarImpl
	action     *compressor.Table
	goTo       *compressor.Table
	prediction *compressor.Table
}

// NewCompressedGrammar returns a Grammar whose tables are compressed. It parses exactly like
// NewGrammar.
func NewCompressedGrammar(g *spec.CompiledGrammar) (Grammar, error) {
	cg := &compressedGrammar{
		grammarImpl: NewGrammar(g),
	}
	syn := g.Syntactic
	var err error
	switch syn.Class {
	case spec.ClassSLR:
		cg.action, err = compressTable(syn.Action, syn.TerminalCount)
		if err != nil {
			return nil, fmt.Errorf("cannot compress the action table: %w", err)
		}
		cg.goTo, err = compressTable(syn.GoTo, syn.NonTerminalCount)
		if err != nil {
			return nil, fmt.Errorf("cannot compress the goto table: %w", err)
		}
		tracer().Infof("compressed action table: %v -> %v entries", len(syn.Action), cg.action.EntryCount())
		tracer().Infof("compressed goto table: %v -> %v entries", len(syn.GoTo), cg.goTo.EntryCount())
	case spec.ClassLL1:
		cg.prediction, err = compressTable(syn.Prediction, syn.TerminalCount)
		if err != nil {
			return nil, fmt.Errorf("cannot compress the prediction table: %w", err)
		}
		tracer().Infof("compressed prediction table: %v -> %v entries", len(syn.Prediction), cg.prediction.EntryCount())
	default:
		return nil, fmt.Errorf("unknown grammar class: %v", syn.Class)
	}
	return cg, nil
}

func compressTable(entries []int, colCount int) (*compressor.Table, error) {
	orig, err := compressor.NewOriginalTable(entries, colCount)
	if err != nil {
		return nil, err
	}
	tab := compressor.NewTable(0)
	err = tab.Compress(orig)
	if err != nil {
		return nil, err
	}
	return tab, nil
}

// Out-of-range lookups read as empty entries, which the parser reports as syntax or structural errors.

func (g *compressedGrammar) Action(state int, terminal int) int {
	v, _ := g.action.Lookup(state, terminal)
	return v
}

func (g *compressedGrammar) GoTo(state int, lhs int) int {
	v, _ := g.goTo.Lookup(state, lhs)
	return v
}

func (g *compressedGrammar) Prediction(nonTerminal int, terminal int) int {
	v, _ := g.prediction.Lookup(nonTerminal, terminal)
	return v
}
