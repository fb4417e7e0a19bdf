package grammar

import (
	"encoding/hex"
	"fmt"

	"github.com/cnf/structhash"
	"github.com/nihei9/tabula/grammar/symbol"
)

type productionID [20]byte

func (id productionID) String() string {
	return hex.EncodeToString(id[:])
}

// productionKey is the hashed content of a production. Two productions with the same head
// and body get the same ID.
type productionKey struct {
	LHS symbol.Symbol   `hash:"name:lhs"`
	RHS []symbol.Symbol `hash:"name:rhs"`
}

func genProductionID(lhs symbol.Symbol, rhs []symbol.Symbol) productionID {
	var id productionID
	copy(id[:], structhash.Sha1(productionKey{
		LHS: lhs,
		RHS: rhs,
	}, 1))
	return id
}

// productionNum is the stable identity of a production used in reduce actions and tree nodes.
// User productions are numbered from 0 in description order; the augmented start production
// follows them.
type productionNum int

const (
	productionNumNil = productionNum(-1)
	productionNumMin = productionNum(0)
)

func (n productionNum) Int() int {
	return int(n)
}

type production struct {
	id     productionID
	num    productionNum
	lhs    symbol.Symbol
	rhs    []symbol.Symbol
	rhsLen int
}

func newProduction(lhs symbol.Symbol, rhs []symbol.Symbol) (*production, error) {
	if lhs.IsNil() {
		return nil, fmt.Errorf("LHS must be a non-nil symbol; LHS: %v, RHS: %v", lhs, rhs)
	}
	if !lhs.IsNonTerminal() {
		return nil, fmt.Errorf("LHS must be a non-terminal symbol; LHS: %v", lhs)
	}
	for _, sym := range rhs {
		if sym.IsNil() {
			return nil, fmt.Errorf("a symbol of RHS must be a non-nil symbol; LHS: %v, RHS: %v", lhs, rhs)
		}
	}

	return &production{
		id:     genProductionID(lhs, rhs),
		num:    productionNumNil,
		lhs:    lhs,
		rhs:    rhs,
		rhsLen: len(rhs),
	}, nil
}

func (p *production) isEmpty() bool {
	return p.rhsLen == 0
}

type productionSet struct {
	lhs2Prods map[symbol.Symbol][]*production
	id2Prod   map[productionID]*production
	prods     []*production
	num       productionNum
}

func newProductionSet() *productionSet {
	return &productionSet{
		lhs2Prods: map[symbol.Symbol][]*production{},
		id2Prod:   map[productionID]*production{},
		num:       productionNumMin,
	}
}

// append numbers prod and adds it to the set. It returns false when the set already
// contains a production with the same head and body.
func (ps *productionSet) append(prod *production) bool {
	if _, ok := ps.id2Prod[prod.id]; ok {
		return false
	}

	prod.num = ps.num
	ps.num++

	ps.lhs2Prods[prod.lhs] = append(ps.lhs2Prods[prod.lhs], prod)
	ps.id2Prod[prod.id] = prod
	ps.prods = append(ps.prods, prod)

	return true
}

func (ps *productionSet) findByID(id productionID) (*production, bool) {
	prod, ok := ps.id2Prod[id]
	return prod, ok
}

func (ps *productionSet) findByLHS(lhs symbol.Symbol) ([]*production, bool) {
	if lhs.IsNil() {
		return nil, false
	}

	prods, ok := ps.lhs2Prods[lhs]
	return prods, ok
}

func (ps *productionSet) findByNum(num productionNum) (*production, bool) {
	if num < productionNumMin || num.Int() >= len(ps.prods) {
		return nil, false
	}
	return ps.prods[num], true
}

// getAllProductions returns the productions ordered by number.
func (ps *productionSet) getAllProductions() []*production {
	return ps.prods
}
