package grammar

import (
	"fmt"
	"sort"

	"github.com/nihei9/tabula/grammar/symbol"
	spec "github.com/nihei9/tabula/spec/grammar"
)

func genReport(gram *Grammar, first *firstSet, follow *followSet) (*spec.Report, error) {
	symTab := gram.symbolTable.Reader()

	var terms []*spec.Terminal
	{
		termSyms := symTab.TerminalSymbols()
		terms = make([]*spec.Terminal, len(termSyms)+1)
		for _, sym := range termSyms {
			name, ok := symTab.ToText(sym)
			if !ok {
				return nil, fmt.Errorf("failed to generate terminals: symbol not found: %v", sym)
			}

			_, skip := gram.skipSymbols[sym]
			_, literal := gram.literalSymbols[sym]
			terms[sym.Num()] = &spec.Terminal{
				Number:  sym.Num().Int(),
				Name:    name,
				Pattern: gram.sym2Pattern[sym],
				Literal: literal,
				Skip:    skip,
			}
		}
	}

	var nonTerms []*spec.NonTerminal
	{
		nonTermSyms := symTab.NonTerminalSymbols()
		nonTerms = make([]*spec.NonTerminal, len(nonTermSyms)+1)
		for _, sym := range nonTermSyms {
			name, ok := symTab.ToText(sym)
			if !ok {
				return nil, fmt.Errorf("failed to generate non-terminals: symbol not found: %v", sym)
			}

			nonTerms[sym.Num()] = &spec.NonTerminal{
				Number: sym.Num().Int(),
				Name:   name,
			}
		}
	}

	var prods []*spec.Production
	{
		ps := gram.productionSet.getAllProductions()
		prods = make([]*spec.Production, len(ps))
		for _, p := range ps {
			prods[p.num.Int()] = &spec.Production{
				Number: p.num.Int(),
				LHS:    p.lhs.Num().Int(),
				RHS:    encodeRHS(p.rhs),
			}
		}
	}

	var fsts []*spec.SymbolSet
	var flws []*spec.SymbolSet
	for _, sym := range symTab.NonTerminalSymbols() {
		fst := first.findBySymbol(sym)
		if fst == nil {
			continue
		}
		fsts = append(fsts, &spec.SymbolSet{
			NonTerminal: sym.Num().Int(),
			Terminals:   symbolNums(fst.terminals()),
			Empty:       fst.empty,
		})

		flw, err := follow.find(sym)
		if err != nil {
			return nil, err
		}
		flws = append(flws, &spec.SymbolSet{
			NonTerminal: sym.Num().Int(),
			Terminals:   symbolNums(flw.terminals()),
			EOF:         flw.eof,
		})
	}

	return &spec.Report{
		Terminals:    terms,
		NonTerminals: nonTerms,
		Productions:  prods,
		First:        fsts,
		Follow:       flws,
	}, nil
}

func (b *lrTableBuilder) genStateReports(tab *ParsingTable) ([]*spec.State, error) {
	srConflicts := map[stateNum][]*shiftReduceConflict{}
	rrConflicts := map[stateNum][]*reduceReduceConflict{}
	for _, con := range b.conflicts {
		switch c := con.(type) {
		case *shiftReduceConflict:
			srConflicts[c.state] = append(srConflicts[c.state], c)
		case *reduceReduceConflict:
			rrConflicts[c.state] = append(rrConflicts[c.state], c)
		}
	}

	states := make([]*spec.State, len(b.automaton.states))
	for _, s := range b.automaton.orderedStates() {
		kernel := make([]*spec.Item, len(s.items))
		for i, item := range s.items {
			p, ok := b.prods.findByID(item.prod)
			if !ok {
				return nil, fmt.Errorf("failed to generate states: production of kernel item not found: %v", item.prod)
			}

			kernel[i] = &spec.Item{
				Production: p.num.Int(),
				Dot:        item.dot,
			}
		}

		sort.Slice(kernel, func(i, j int) bool {
			if kernel[i].Production < kernel[j].Production {
				return true
			}
			if kernel[i].Production > kernel[j].Production {
				return false
			}
			return kernel[i].Dot < kernel[j].Dot
		})

		var shift []*spec.Transition
		var reduce []*spec.Reduce
		var goTo []*spec.Transition
		{
		TERMINALS_LOOP:
			for _, t := range b.symTab.TerminalSymbols() {
				act, next, prod := tab.getAction(s.num, t.Num())
				switch act {
				case ActionTypeShift:
					shift = append(shift, &spec.Transition{
						Symbol: t.Num().Int(),
						State:  next.Int(),
					})
				case ActionTypeReduce:
					for _, r := range reduce {
						if r.Production == prod.Int() {
							r.LookAhead = append(r.LookAhead, t.Num().Int())
							continue TERMINALS_LOOP
						}
					}
					reduce = append(reduce, &spec.Reduce{
						LookAhead:  []int{t.Num().Int()},
						Production: prod.Int(),
					})
				}
			}

			for _, n := range b.symTab.NonTerminalSymbols() {
				ty, next := tab.getGoTo(s.num, n.Num())
				if ty == GoToTypeRegistered {
					goTo = append(goTo, &spec.Transition{
						Symbol: n.Num().Int(),
						State:  next.Int(),
					})
				}
			}

			sort.Slice(shift, func(i, j int) bool {
				return shift[i].State < shift[j].State
			})
			sort.Slice(reduce, func(i, j int) bool {
				return reduce[i].Production < reduce[j].Production
			})
			sort.Slice(goTo, func(i, j int) bool {
				return goTo[i].State < goTo[j].State
			})
		}

		sr := []*spec.SRConflict{}
		rr := []*spec.RRConflict{}
		{
			for _, c := range srConflicts[s.num] {
				conflict := &spec.SRConflict{
					Symbol:     c.sym.Num().Int(),
					State:      c.nextState.Int(),
					Production: c.prodNum.Int(),
					Resolved:   c.resolved,
				}

				ty, s, p := tab.getAction(s.num, c.sym.Num())
				switch ty {
				case ActionTypeShift:
					n := s.Int()
					conflict.AdoptedState = &n
				case ActionTypeReduce:
					n := p.Int()
					conflict.AdoptedProduction = &n
				}

				sr = append(sr, conflict)
			}

			sort.Slice(sr, func(i, j int) bool {
				return sr[i].Symbol < sr[j].Symbol
			})

			for _, c := range rrConflicts[s.num] {
				_, _, p := tab.getAction(s.num, c.sym.Num())
				rr = append(rr, &spec.RRConflict{
					Symbol:            c.sym.Num().Int(),
					Production1:       c.prodNum1.Int(),
					Production2:       c.prodNum2.Int(),
					AdoptedProduction: p.Int(),
				})
			}

			sort.Slice(rr, func(i, j int) bool {
				return rr[i].Symbol < rr[j].Symbol
			})
		}

		states[s.num.Int()] = &spec.State{
			Number:     s.num.Int(),
			Kernel:     kernel,
			Shift:      shift,
			Reduce:     reduce,
			GoTo:       goTo,
			SRConflict: sr,
			RRConflict: rr,
		}
	}

	return states, nil
}

func (b *ll1TableBuilder) genPredictionReports(tab *PredictionTable) ([]*spec.Prediction, []*spec.PredictionConflict) {
	var preds []*spec.Prediction
	for _, n := range b.symTab.NonTerminalSymbols() {
		if n.IsStart() {
			continue
		}
		for _, t := range b.symTab.TerminalSymbols() {
			prod, ok := tab.lookup(n.Num(), t.Num())
			if !ok {
				continue
			}
			preds = append(preds, &spec.Prediction{
				NonTerminal: n.Num().Int(),
				Terminal:    t.Num().Int(),
				Production:  prod.Int(),
			})
		}
	}

	cs := make([]*spec.PredictionConflict, len(b.conflicts))
	for i, c := range b.conflicts {
		cs[i] = &spec.PredictionConflict{
			NonTerminal: c.nonTerm.Num().Int(),
			Terminal:    c.term.Num().Int(),
			Production1: c.prodNum1.Int(),
			Production2: c.prodNum2.Int(),
		}
	}

	return preds, cs
}

// encodeRHS stores a terminal as its number and a non-terminal as its number negated.
func encodeRHS(rhs []symbol.Symbol) []int {
	enc := make([]int, len(rhs))
	for i, e := range rhs {
		if e.IsTerminal() {
			enc[i] = e.Num().Int()
		} else {
			enc[i] = e.Num().Int() * -1
		}
	}
	return enc
}

func symbolNums(syms []symbol.Symbol) []int {
	nums := make([]int, len(syms))
	for i, sym := range syms {
		nums[i] = sym.Num().Int()
	}
	return nums
}
