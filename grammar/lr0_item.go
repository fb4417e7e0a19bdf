package grammar

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cnf/structhash"
	"github.com/nihei9/tabula/grammar/symbol"
)

type lrItemID [20]byte

func (id lrItemID) String() string {
	return fmt.Sprintf("%x", id.num())
}

func (id lrItemID) num() uint32 {
	return binary.LittleEndian.Uint32(id[:])
}

type lrItemKey struct {
	Prod productionID `hash:"name:prod"`
	Dot  int          `hash:"name:dot"`
}

type lrItem struct {
	id   lrItemID
	prod productionID

	// E → E + T
	//
	// Dot | Dotted Symbol | Item
	// ----+---------------+------------
	// 0   | E             | E →・E + T
	// 1   | +             | E → E・+ T
	// 2   | T             | E → E +・T
	// 3   | Nil           | E → E + T・
	dot          int
	dottedSymbol symbol.Symbol

	// initial is true for S' →・S only.
	initial bool

	// reducible is true when the dot is at the end of the body.
	reducible bool

	// kernel is true for the initial item and for every item whose dot is not at the head.
	kernel bool
}

func newLR0Item(prod *production, dot int) (*lrItem, error) {
	if prod == nil {
		return nil, fmt.Errorf("production must be non-nil")
	}

	if dot < 0 || dot > prod.rhsLen {
		return nil, fmt.Errorf("dot must be between 0 and %v", prod.rhsLen)
	}

	var id lrItemID
	copy(id[:], structhash.Sha1(lrItemKey{
		Prod: prod.id,
		Dot:  dot,
	}, 1))

	dottedSymbol := symbol.SymbolNil
	if dot < prod.rhsLen {
		dottedSymbol = prod.rhs[dot]
	}

	initial := prod.lhs.IsStart() && dot == 0

	return &lrItem{
		id:           id,
		prod:         prod.id,
		dot:          dot,
		dottedSymbol: dottedSymbol,
		initial:      initial,
		reducible:    dot == prod.rhsLen,
		kernel:       initial || dot > 0,
	}, nil
}

// format renders an item like `expr → expr ・add term`.
func (item *lrItem) format(prods *productionSet, symTab *symbol.SymbolTableReader) string {
	prod, ok := prods.findByID(item.prod)
	if !ok {
		return item.id.String()
	}
	var b strings.Builder
	lhs, _ := symTab.ToText(prod.lhs)
	fmt.Fprintf(&b, "%v →", lhs)
	for i, sym := range prod.rhs {
		if i == item.dot {
			b.WriteString(" ・")
		} else {
			b.WriteString(" ")
		}
		text, _ := symTab.ToText(sym)
		b.WriteString(text)
	}
	if item.reducible {
		b.WriteString(" ・")
	}
	return b.String()
}

type kernelID [20]byte

func (id kernelID) String() string {
	return fmt.Sprintf("%x", binary.LittleEndian.Uint32(id[:]))
}

// kernel identifies a state. Closure is a function of the kernel alone, so two states have
// equal item sets exactly when their kernels are equal.
type kernel struct {
	id    kernelID
	items []*lrItem
}

func newKernel(items []*lrItem) (*kernel, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("a kernel need at least one item")
	}

	var sortedItems []*lrItem
	{
		m := map[lrItemID]*lrItem{}
		for _, item := range items {
			if !item.kernel {
				return nil, fmt.Errorf("not a kernel item: %v", item.id)
			}
			m[item.id] = item
		}
		sortedItems = make([]*lrItem, 0, len(m))
		for _, item := range m {
			sortedItems = append(sortedItems, item)
		}
		sort.Slice(sortedItems, func(i, j int) bool {
			return string(sortedItems[i].id[:]) < string(sortedItems[j].id[:])
		})
	}

	ids := make([]lrItemID, len(sortedItems))
	for i, item := range sortedItems {
		ids[i] = item.id
	}
	var id kernelID
	copy(id[:], structhash.Sha1(ids, 1))

	return &kernel{
		id:    id,
		items: sortedItems,
	}, nil
}

type stateNum int

const (
	stateNumNil     = stateNum(-1)
	stateNumInitial = stateNum(0)
)

func (n stateNum) Int() int {
	return int(n)
}

func (n stateNum) String() string {
	return strconv.Itoa(int(n))
}

func (n stateNum) next() stateNum {
	return stateNum(n + 1)
}

type lrState struct {
	*kernel
	num  stateNum
	next map[symbol.Symbol]kernelID

	// closure holds the kernel items followed by the items the closure added.
	closure []*lrItem

	reducible map[productionID]struct{}

	// lookAhead holds, per reducible production, the terminals on which the production
	// is reduced. The SLR(1) pass fills it from FOLLOW.
	lookAhead map[productionID][]symbol.Symbol
}

// reducibleProductions returns the reducible productions of the state ordered by number.
func (s *lrState) reducibleProductions(prods *productionSet) ([]*production, error) {
	ps := make([]*production, 0, len(s.reducible))
	for id := range s.reducible {
		prod, ok := prods.findByID(id)
		if !ok {
			return nil, fmt.Errorf("reducible production not found: %v", id)
		}
		ps = append(ps, prod)
	}
	sort.Slice(ps, func(i, j int) bool {
		return ps[i].num < ps[j].num
	})
	return ps, nil
}
