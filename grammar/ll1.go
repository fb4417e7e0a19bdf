package grammar

import (
	"fmt"

	"github.com/nihei9/tabula/grammar/symbol"
)

// predictionEntry is a cell of a prediction table: 0 when empty and p+1 when the
// non-terminal expands by production p.
type predictionEntry int

const predictionEntryEmpty = predictionEntry(0)

func newPredictionEntry(prod productionNum) predictionEntry {
	return predictionEntry(prod + 1)
}

func (e predictionEntry) production() (productionNum, bool) {
	if e == predictionEntryEmpty {
		return productionNumNil, false
	}
	return productionNum(e - 1), true
}

// PredictionTable is an LL(1) table. Rows are non-terminal numbers and columns are terminal numbers.
type PredictionTable struct {
	entries          []predictionEntry
	terminalCount    int
	nonTerminalCount int
}

func (t *PredictionTable) lookup(nonTerm symbol.SymbolNum, term symbol.SymbolNum) (productionNum, bool) {
	return t.entries[nonTerm.Int()*t.terminalCount+term.Int()].production()
}

type predictionConflict struct {
	nonTerm  symbol.Symbol
	term     symbol.Symbol
	prodNum1 productionNum
	prodNum2 productionNum
}

type ll1TableBuilder struct {
	prods        *productionSet
	first        *firstSet
	follow       *followSet
	termCount    int
	nonTermCount int
	symTab       *symbol.SymbolTableReader

	conflicts []*predictionConflict
}

// build fills M[A, a] with A → α for every a in FIRST(α), and for every b in FOLLOW(A) when
// α derives ε. The augmented start production never gets a row; parsing starts from the user
// start symbol and ends on the end-of-input symbol.
func (b *ll1TableBuilder) build() (*PredictionTable, error) {
	tab := &PredictionTable{
		entries:          make([]predictionEntry, b.nonTermCount*b.termCount),
		terminalCount:    b.termCount,
		nonTerminalCount: b.nonTermCount,
	}

	for _, prod := range b.prods.getAllProductions() {
		if prod.lhs.IsStart() {
			continue
		}

		fst, err := b.first.find(prod, 0)
		if err != nil {
			return nil, err
		}
		for _, a := range fst.terminals() {
			b.writePrediction(tab, prod.lhs, a, prod.num)
		}
		if !fst.empty {
			continue
		}

		flw, err := b.follow.find(prod.lhs)
		if err != nil {
			return nil, err
		}
		for _, a := range flw.lookAheads() {
			b.writePrediction(tab, prod.lhs, a, prod.num)
		}
	}

	tracer().Debugf("LL(1) table: %v non-terminals, %v conflicts", b.nonTermCount, len(b.conflicts))

	return tab, nil
}

// writePrediction writes a prediction. A cell claimed by two productions is a conflict; the cell
// keeps the production written first.
func (b *ll1TableBuilder) writePrediction(tab *PredictionTable, nonTerm symbol.Symbol, term symbol.Symbol, prod productionNum) {
	pos := nonTerm.Num().Int()*tab.terminalCount + term.Num().Int()
	cur, ok := tab.entries[pos].production()
	if !ok {
		tab.entries[pos] = newPredictionEntry(prod)
		return
	}
	if cur == prod {
		return
	}
	b.conflicts = append(b.conflicts, &predictionConflict{
		nonTerm:  nonTerm,
		term:     term,
		prodNum1: cur,
		prodNum2: prod,
	})
}

func (b *ll1TableBuilder) exportConflicts() ([]*Conflict, error) {
	cs := make([]*Conflict, 0, len(b.conflicts))
	for _, c := range b.conflicts {
		nonTerm, _ := b.symTab.ToText(c.nonTerm)
		term, _ := b.symTab.ToText(c.term)
		items := make([]string, 0, 2)
		for _, num := range []productionNum{c.prodNum1, c.prodNum2} {
			prod, ok := b.prods.findByNum(num)
			if !ok {
				return nil, fmt.Errorf("production not found: %v", num)
			}
			item, err := newLR0Item(prod, 0)
			if err != nil {
				return nil, err
			}
			items = append(items, item.format(b.prods, b.symTab))
		}
		cs = append(cs, &Conflict{
			Kind:        ConflictKindPredictionSet,
			State:       int(stateNumNil),
			NonTerminal: nonTerm,
			Terminal:    term,
			Action1:     fmt.Sprintf("predict %v", c.prodNum1),
			Action2:     fmt.Sprintf("predict %v", c.prodNum2),
			Productions: []int{c.prodNum1.Int(), c.prodNum2.Int()},
			Items:       items,
		})
	}
	return cs, nil
}
