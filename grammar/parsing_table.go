package grammar

import (
	"fmt"
	"sort"

	"github.com/nihei9/tabula/grammar/symbol"
)

type ActionType string

const (
	ActionTypeShift  = ActionType("shift")
	ActionTypeReduce = ActionType("reduce")
	ActionTypeError  = ActionType("error")
)

// actionEntry encodes a cell of the action table.
//
//	0  : error (no entry)
//	-s : shift and go to state s
//	p+1: reduce by production p
//
// Reducing the augmented start production means accept. A state never shifts into the
// initial state, so -0 never denotes a shift.
type actionEntry int

const actionEntryEmpty = actionEntry(0)

func newShiftActionEntry(state stateNum) actionEntry {
	return actionEntry(state * -1)
}

func newReduceActionEntry(prod productionNum) actionEntry {
	return actionEntry(prod + 1)
}

func (e actionEntry) isEmpty() bool {
	return e == actionEntryEmpty
}

func (e actionEntry) describe() (ActionType, stateNum, productionNum) {
	if e == actionEntryEmpty {
		return ActionTypeError, stateNumNil, productionNumNil
	}
	if e < 0 {
		return ActionTypeShift, stateNum(e * -1), productionNumNil
	}
	return ActionTypeReduce, stateNumNil, productionNum(e - 1)
}

type GoToType string

const (
	GoToTypeRegistered = GoToType("registered")
	GoToTypeError      = GoToType("error")
)

type goToEntry uint

const goToEntryEmpty = goToEntry(0)

func newGoToEntry(state stateNum) goToEntry {
	return goToEntry(state)
}

func (e goToEntry) describe() (GoToType, stateNum) {
	if e == goToEntryEmpty {
		return GoToTypeError, stateNumNil
	}
	return GoToTypeRegistered, stateNum(e)
}

type conflict interface {
	conflict()
}

type shiftReduceConflict struct {
	state     stateNum
	sym       symbol.Symbol
	nextState stateNum
	prodNum   productionNum
	resolved  bool
}

func (c *shiftReduceConflict) conflict() {
}

type reduceReduceConflict struct {
	state    stateNum
	sym      symbol.Symbol
	prodNum1 productionNum
	prodNum2 productionNum
}

func (c *reduceReduceConflict) conflict() {
}

var (
	_ conflict = &shiftReduceConflict{}
	_ conflict = &reduceReduceConflict{}
)

// ParsingTable is an SLR(1) action/goto table. Rows are states, action columns are terminal
// numbers and goto columns are non-terminal numbers.
type ParsingTable struct {
	actionTable      []actionEntry
	goToTable        []goToEntry
	stateCount       int
	terminalCount    int
	nonTerminalCount int

	InitialState stateNum
}

func (t *ParsingTable) getAction(state stateNum, sym symbol.SymbolNum) (ActionType, stateNum, productionNum) {
	pos := state.Int()*t.terminalCount + sym.Int()
	return t.actionTable[pos].describe()
}

func (t *ParsingTable) getGoTo(state stateNum, sym symbol.SymbolNum) (GoToType, stateNum) {
	pos := state.Int()*t.nonTerminalCount + sym.Int()
	return t.goToTable[pos].describe()
}

func (t *ParsingTable) readAction(row int, col int) actionEntry {
	return t.actionTable[row*t.terminalCount+col]
}

func (t *ParsingTable) writeAction(row int, col int, act actionEntry) {
	t.actionTable[row*t.terminalCount+col] = act
}

func (t *ParsingTable) writeGoTo(state stateNum, sym symbol.Symbol, nextState stateNum) {
	pos := state.Int()*t.nonTerminalCount + sym.Num().Int()
	t.goToTable[pos] = newGoToEntry(nextState)
}

type lrTableBuilder struct {
	automaton    *lr0Automaton
	prods        *productionSet
	termCount    int
	nonTermCount int
	symTab       *symbol.SymbolTableReader
	preferShift  bool

	conflicts []conflict
}

func (b *lrTableBuilder) build() (*ParsingTable, error) {
	var ptab *ParsingTable
	{
		initialState := b.automaton.states[b.automaton.initialState]
		ptab = &ParsingTable{
			actionTable:      make([]actionEntry, len(b.automaton.states)*b.termCount),
			goToTable:        make([]goToEntry, len(b.automaton.states)*b.nonTermCount),
			stateCount:       len(b.automaton.states),
			terminalCount:    b.termCount,
			nonTerminalCount: b.nonTermCount,
			InitialState:     initialState.num,
		}
	}

	for _, state := range b.automaton.orderedStates() {
		for _, sym := range sortedNextSymbols(state) {
			nextState := b.automaton.states[state.next[sym]]
			if sym.IsTerminal() {
				b.writeShiftAction(ptab, state.num, sym, nextState.num)
			} else {
				ptab.writeGoTo(state.num, sym, nextState.num)
			}
		}

		reducibleProds, err := state.reducibleProductions(b.prods)
		if err != nil {
			return nil, err
		}
		for _, prod := range reducibleProds {
			for _, a := range state.lookAhead[prod.id] {
				b.writeReduceAction(ptab, state.num, a, prod.num)
			}
		}
	}

	tracer().Debugf("SLR(1) table: %v states, %v conflicts", ptab.stateCount, len(b.conflicts))

	return ptab, nil
}

// writeShiftAction writes a shift action. A shift meeting a reduce is a shift/reduce conflict;
// when the shift tie-break is enabled the shift wins and the conflict is marked resolved.
func (b *lrTableBuilder) writeShiftAction(tab *ParsingTable, state stateNum, sym symbol.Symbol, nextState stateNum) {
	act := tab.readAction(state.Int(), sym.Num().Int())
	if !act.isEmpty() {
		ty, _, p := act.describe()
		if ty == ActionTypeReduce {
			b.conflicts = append(b.conflicts, &shiftReduceConflict{
				state:     state,
				sym:       sym,
				nextState: nextState,
				prodNum:   p,
				resolved:  b.preferShift,
			})
		}
	}
	tab.writeAction(state.Int(), sym.Num().Int(), newShiftActionEntry(nextState))
}

// writeReduceAction writes a reduce action. A reduce meeting a shift is a shift/reduce conflict
// and the cell keeps the shift. A reduce meeting another reduce is a reduce/reduce conflict,
// which no tie-break resolves; the cell keeps the lower production number.
func (b *lrTableBuilder) writeReduceAction(tab *ParsingTable, state stateNum, sym symbol.Symbol, prod productionNum) {
	act := tab.readAction(state.Int(), sym.Num().Int())
	if !act.isEmpty() {
		ty, s, p := act.describe()
		switch ty {
		case ActionTypeReduce:
			if p == prod {
				return
			}

			b.conflicts = append(b.conflicts, &reduceReduceConflict{
				state:    state,
				sym:      sym,
				prodNum1: p,
				prodNum2: prod,
			})
			if prod < p {
				tab.writeAction(state.Int(), sym.Num().Int(), newReduceActionEntry(prod))
			}
		case ActionTypeShift:
			b.conflicts = append(b.conflicts, &shiftReduceConflict{
				state:     state,
				sym:       sym,
				nextState: s,
				prodNum:   prod,
				resolved:  b.preferShift,
			})
		}
		return
	}
	tab.writeAction(state.Int(), sym.Num().Int(), newReduceActionEntry(prod))
}

// exportConflicts converts the recorded conflicts into their public form.
func (b *lrTableBuilder) exportConflicts() ([]*Conflict, error) {
	num2State := map[stateNum]*lrState{}
	for _, s := range b.automaton.states {
		num2State[s.num] = s
	}

	cs := make([]*Conflict, 0, len(b.conflicts))
	for _, con := range b.conflicts {
		switch c := con.(type) {
		case *shiftReduceConflict:
			term, _ := b.symTab.ToText(c.sym)
			state := num2State[c.state]
			items := []string{}
			for _, item := range state.closure {
				if item.dottedSymbol == c.sym {
					items = append(items, item.format(b.prods, b.symTab))
				}
			}
			item, err := b.reducibleItem(state, c.prodNum)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			cs = append(cs, &Conflict{
				Kind:        ConflictKindShiftReduce,
				State:       c.state.Int(),
				Terminal:    term,
				Action1:     fmt.Sprintf("shift %v", c.nextState),
				Action2:     fmt.Sprintf("reduce %v", c.prodNum),
				Productions: []int{c.prodNum.Int()},
				Items:       items,
				Resolved:    c.resolved,
			})
		case *reduceReduceConflict:
			term, _ := b.symTab.ToText(c.sym)
			state := num2State[c.state]
			item1, err := b.reducibleItem(state, c.prodNum1)
			if err != nil {
				return nil, err
			}
			item2, err := b.reducibleItem(state, c.prodNum2)
			if err != nil {
				return nil, err
			}
			cs = append(cs, &Conflict{
				Kind:        ConflictKindReduceReduce,
				State:       c.state.Int(),
				Terminal:    term,
				Action1:     fmt.Sprintf("reduce %v", c.prodNum1),
				Action2:     fmt.Sprintf("reduce %v", c.prodNum2),
				Productions: []int{c.prodNum1.Int(), c.prodNum2.Int()},
				Items:       []string{item1, item2},
			})
		}
	}
	return cs, nil
}

func (b *lrTableBuilder) reducibleItem(state *lrState, num productionNum) (string, error) {
	prod, ok := b.prods.findByNum(num)
	if !ok {
		return "", fmt.Errorf("production not found: %v", num)
	}
	for _, item := range state.closure {
		if item.reducible && item.prod == prod.id {
			return item.format(b.prods, b.symTab), nil
		}
	}
	return "", fmt.Errorf("reducible item not found; state: %v, production: %v", state.num, num)
}

func sortedNextSymbols(state *lrState) []symbol.Symbol {
	syms := make([]symbol.Symbol, 0, len(state.next))
	for sym := range state.next {
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool {
		return syms[i] < syms[j]
	})
	return syms
}
