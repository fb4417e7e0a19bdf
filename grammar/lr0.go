package grammar

import (
	"fmt"
	"sort"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/nihei9/tabula/grammar/symbol"
)

// stateCountMax is the default bound of automaton exploration.
const stateCountMax = int(symbol.SymbolNumMax)

type lr0Automaton struct {
	initialState kernelID
	states       map[kernelID]*lrState
}

// orderedStates returns the states ordered by state number.
func (a *lr0Automaton) orderedStates() []*lrState {
	set := treeset.NewWith(func(x, y interface{}) int {
		return x.(*lrState).num.Int() - y.(*lrState).num.Int()
	})
	for _, s := range a.states {
		set.Add(s)
	}
	vs := set.Values()
	states := make([]*lrState, len(vs))
	for i, v := range vs {
		states[i] = v.(*lrState)
	}
	return states
}

func genLR0Automaton(prods *productionSet, startSym symbol.Symbol, maxStates int) (*lr0Automaton, error) {
	if !startSym.IsStart() {
		return nil, fmt.Errorf("passed symbold is not a start symbol")
	}
	if maxStates <= 0 {
		maxStates = stateCountMax
	}

	automaton := &lr0Automaton{
		states: map[kernelID]*lrState{},
	}

	currentState := stateNumInitial
	knownKernels := map[kernelID]struct{}{}
	uncheckedKernels := []*kernel{}

	// Generate an initial kernel.
	{
		prods, _ := prods.findByLHS(startSym)
		initialItem, err := newLR0Item(prods[0], 0)
		if err != nil {
			return nil, err
		}

		k, err := newKernel([]*lrItem{initialItem})
		if err != nil {
			return nil, err
		}

		automaton.initialState = k.id
		knownKernels[k.id] = struct{}{}
		uncheckedKernels = append(uncheckedKernels, k)
	}

	for len(uncheckedKernels) > 0 {
		nextUncheckedKernels := []*kernel{}
		for _, k := range uncheckedKernels {
			if currentState.Int() >= maxStates {
				return nil, &GrammarError{
					Cause:  errTooManyStates,
					Detail: fmt.Sprintf("limit: %v", maxStates),
				}
			}

			state, neighbours, err := genStateAndNeighbourKernels(k, prods)
			if err != nil {
				return nil, err
			}
			state.num = currentState
			currentState = currentState.next()

			automaton.states[state.id] = state
			tracer().Debugf("state %v: %v kernel items, %v closure items, %v edges", state.num, len(state.items), len(state.closure), len(state.next))

			for _, k := range neighbours {
				if _, known := knownKernels[k.id]; known {
					continue
				}
				knownKernels[k.id] = struct{}{}
				nextUncheckedKernels = append(nextUncheckedKernels, k)
			}
		}
		uncheckedKernels = nextUncheckedKernels
	}

	return automaton, nil
}

func genStateAndNeighbourKernels(k *kernel, prods *productionSet) (*lrState, []*kernel, error) {
	items, err := genClosure(k.items, prods)
	if err != nil {
		return nil, nil, err
	}
	neighbours, err := genNeighbourKernels(items, prods)
	if err != nil {
		return nil, nil, err
	}

	next := map[symbol.Symbol]kernelID{}
	kernels := []*kernel{}
	for _, n := range neighbours {
		next[n.symbol] = n.kernel.id
		kernels = append(kernels, n.kernel)
	}

	reducible := map[productionID]struct{}{}
	for _, item := range items {
		if item.reducible {
			reducible[item.prod] = struct{}{}
		}
	}

	return &lrState{
		kernel:    k,
		next:      next,
		closure:   items,
		reducible: reducible,
		lookAhead: map[productionID][]symbol.Symbol{},
	}, kernels, nil
}

// genClosure adds B →・γ for every item A → α・B β until nothing new is added.
func genClosure(seed []*lrItem, prods *productionSet) ([]*lrItem, error) {
	items := []*lrItem{}
	knownItems := map[lrItemID]struct{}{}
	uncheckedItems := []*lrItem{}
	for _, item := range seed {
		if _, exist := knownItems[item.id]; exist {
			continue
		}
		knownItems[item.id] = struct{}{}
		items = append(items, item)
		uncheckedItems = append(uncheckedItems, item)
	}
	for len(uncheckedItems) > 0 {
		nextUncheckedItems := []*lrItem{}
		for _, item := range uncheckedItems {
			if !item.dottedSymbol.IsNonTerminal() {
				continue
			}

			ps, _ := prods.findByLHS(item.dottedSymbol)
			for _, prod := range ps {
				item, err := newLR0Item(prod, 0)
				if err != nil {
					return nil, err
				}
				if _, exist := knownItems[item.id]; exist {
					continue
				}
				items = append(items, item)
				knownItems[item.id] = struct{}{}
				nextUncheckedItems = append(nextUncheckedItems, item)
			}
		}
		uncheckedItems = nextUncheckedItems
	}

	return items, nil
}

// genGoTo returns the kernel reached from items by advancing the dot over sym, or nil when
// no item has sym right after the dot.
func genGoTo(items []*lrItem, sym symbol.Symbol, prods *productionSet) (*kernel, error) {
	var kItems []*lrItem
	for _, item := range items {
		if item.dottedSymbol != sym {
			continue
		}
		prod, ok := prods.findByID(item.prod)
		if !ok {
			return nil, fmt.Errorf("a production was not found: %v", item.prod)
		}
		kItem, err := newLR0Item(prod, item.dot+1)
		if err != nil {
			return nil, err
		}
		kItems = append(kItems, kItem)
	}
	if len(kItems) == 0 {
		return nil, nil
	}
	return newKernel(kItems)
}

type neighbourKernel struct {
	symbol symbol.Symbol
	kernel *kernel
}

// genNeighbourKernels applies goto for every symbol appearing after a dot, in symbol order.
func genNeighbourKernels(items []*lrItem, prods *productionSet) ([]*neighbourKernel, error) {
	symSet := map[symbol.Symbol]struct{}{}
	for _, item := range items {
		if item.dottedSymbol.IsNil() {
			continue
		}
		symSet[item.dottedSymbol] = struct{}{}
	}

	nextSyms := make([]symbol.Symbol, 0, len(symSet))
	for sym := range symSet {
		nextSyms = append(nextSyms, sym)
	}
	sort.Slice(nextSyms, func(i, j int) bool {
		return nextSyms[i] < nextSyms[j]
	})

	kernels := []*neighbourKernel{}
	for _, sym := range nextSyms {
		k, err := genGoTo(items, sym, prods)
		if err != nil {
			return nil, err
		}
		kernels = append(kernels, &neighbourKernel{
			symbol: sym,
			kernel: k,
		})
	}

	return kernels, nil
}
