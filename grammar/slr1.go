package grammar

import "fmt"

type slr1Automaton struct {
	*lr0Automaton
}

// genSLR1Automaton attaches FOLLOW(A) as the look-ahead set of every reducible item A → α・.
func genSLR1Automaton(lr0 *lr0Automaton, prods *productionSet, follow *followSet) (*slr1Automaton, error) {
	for _, state := range lr0.states {
		for prodID := range state.reducible {
			prod, ok := prods.findByID(prodID)
			if !ok {
				return nil, fmt.Errorf("reducible production not found: %v", prodID)
			}

			flw, err := follow.find(prod.lhs)
			if err != nil {
				return nil, err
			}

			state.lookAhead[prodID] = flw.lookAheads()
		}
	}

	return &slr1Automaton{
		lr0Automaton: lr0,
	}, nil
}
