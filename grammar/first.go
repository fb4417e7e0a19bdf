package grammar

import (
	"fmt"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/nihei9/tabula/grammar/symbol"
)

type firstEntry struct {
	symbols *treeset.Set
	empty   bool
}

func newFirstEntry() *firstEntry {
	return &firstEntry{
		symbols: treeset.NewWith(symbol.Comparator),
		empty:   false,
	}
}

func (e *firstEntry) add(sym symbol.Symbol) bool {
	if e.symbols.Contains(sym) {
		return false
	}
	e.symbols.Add(sym)
	return true
}

func (e *firstEntry) addEmpty() bool {
	if !e.empty {
		e.empty = true
		return true
	}
	return false
}

func (e *firstEntry) mergeExceptEmpty(target *firstEntry) bool {
	if target == nil {
		return false
	}
	changed := false
	for _, sym := range target.terminals() {
		if e.add(sym) {
			changed = true
		}
	}
	return changed
}

// terminals returns the terminals of the entry in symbol order.
func (e *firstEntry) terminals() []symbol.Symbol {
	vs := e.symbols.Values()
	syms := make([]symbol.Symbol, len(vs))
	for i, v := range vs {
		syms[i] = v.(symbol.Symbol)
	}
	return syms
}

func (e *firstEntry) contains(sym symbol.Symbol) bool {
	return e.symbols.Contains(sym)
}

type firstSet struct {
	set map[symbol.Symbol]*firstEntry
}

func newFirstSet(prods *productionSet) *firstSet {
	fst := &firstSet{
		set: map[symbol.Symbol]*firstEntry{},
	}
	for _, prod := range prods.getAllProductions() {
		if _, ok := fst.set[prod.lhs]; ok {
			continue
		}
		fst.set[prod.lhs] = newFirstEntry()
	}

	return fst
}

// find returns FIRST of the body suffix of prod starting at head.
func (fst *firstSet) find(prod *production, head int) (*firstEntry, error) {
	return fst.findBySequence(prod.rhs[min(head, prod.rhsLen):])
}

// findBySequence returns FIRST of an arbitrary symbol sequence. An empty sequence derives ε.
func (fst *firstSet) findBySequence(syms []symbol.Symbol) (*firstEntry, error) {
	entry := newFirstEntry()
	for _, sym := range syms {
		if sym.IsTerminal() {
			entry.add(sym)
			return entry, nil
		}

		e := fst.findBySymbol(sym)
		if e == nil {
			return nil, fmt.Errorf("an entry of FIRST was not found; symbol: %s", sym)
		}
		entry.mergeExceptEmpty(e)
		if !e.empty {
			return entry, nil
		}
	}
	entry.addEmpty()
	return entry, nil
}

func (fst *firstSet) findBySymbol(sym symbol.Symbol) *firstEntry {
	return fst.set[sym]
}

// fixpointLimit bounds the number of passes of a monotone set computation. Every pass except
// the last adds at least one element to some set, so a computation over nonTerms sets, each
// holding at most terms elements plus a flag, finishes within this many passes.
func fixpointLimit(nonTerms, terms int) int {
	return nonTerms*(terms+1) + 1
}

// passLimit is the bound genFirstSet and genFollowSet enforce.
var passLimit = fixpointLimit

func genFirstSet(prods *productionSet, symTab *symbol.SymbolTableReader) (*firstSet, error) {
	fst := newFirstSet(prods)
	limit := passLimit(symTab.NonTerminalCount(), symTab.TerminalCount())
	for pass := 1; ; pass++ {
		if pass > limit {
			return nil, &GrammarError{
				Cause:  errFixpointNotReached,
				Detail: fmt.Sprintf("FIRST did not converge within %v passes", limit),
			}
		}

		more := false
		for _, prod := range prods.getAllProductions() {
			e := fst.findBySymbol(prod.lhs)
			changed, err := genProdFirstEntry(fst, e, prod)
			if err != nil {
				return nil, err
			}
			if changed {
				more = true
			}
		}
		if !more {
			tracer().Debugf("FIRST converged after %v passes", pass)
			break
		}
	}
	return fst, nil
}

func genProdFirstEntry(fst *firstSet, acc *firstEntry, prod *production) (bool, error) {
	if prod.isEmpty() {
		return acc.addEmpty(), nil
	}

	changed := false
	for _, sym := range prod.rhs {
		if sym.IsTerminal() {
			return acc.add(sym) || changed, nil
		}

		e := fst.findBySymbol(sym)
		if e == nil {
			return false, fmt.Errorf("an entry of FIRST was not found; symbol: %s", sym)
		}
		if acc.mergeExceptEmpty(e) {
			changed = true
		}
		if !e.empty {
			return changed, nil
		}
	}
	return acc.addEmpty() || changed, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
