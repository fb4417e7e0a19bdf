package grammar

import (
	"errors"
	"fmt"
	"strings"
)

var (
	errFixpointNotReached = errors.New("internal inconsistency: a fixpoint computation exceeded its iteration limit")
	errTooManyStates      = errors.New("the automaton exceeded the state limit")
)

// GrammarError reports a grammar the compiler cannot turn into a table for reasons other than
// conflicts. No partial table accompanies it.
type GrammarError struct {
	Cause  error
	Detail string
}

func (e *GrammarError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("grammar error: %v", e.Cause)
	}
	return fmt.Sprintf("grammar error: %v: %v", e.Cause, e.Detail)
}

func (e *GrammarError) Unwrap() error {
	return e.Cause
}

type ConflictKind string

const (
	ConflictKindShiftReduce   = ConflictKind("shift/reduce")
	ConflictKindReduceReduce  = ConflictKind("reduce/reduce")
	ConflictKindPredictionSet = ConflictKind("prediction")
)

// Conflict describes one table cell that received two different actions.
type Conflict struct {
	Kind ConflictKind

	// State is the LR state of the cell. It is -1 for prediction tables.
	State int

	// NonTerminal is the row label of a prediction table cell.
	NonTerminal string

	Terminal string
	Action1  string
	Action2  string

	// Productions holds the numbers of the productions involved.
	Productions []int

	// Items holds the items of the state that produce the competing actions.
	Items []string

	// Resolved is true when a tie-break chose one of the actions.
	Resolved bool
}

func (c *Conflict) String() string {
	var b strings.Builder
	if c.State >= 0 {
		fmt.Fprintf(&b, "%v conflict in state %v on %v: %v vs %v", c.Kind, c.State, c.Terminal, c.Action1, c.Action2)
	} else {
		fmt.Fprintf(&b, "%v conflict at (%v, %v): %v vs %v", c.Kind, c.NonTerminal, c.Terminal, c.Action1, c.Action2)
	}
	if c.Resolved {
		b.WriteString(" (resolved as shift)")
	}
	return b.String()
}

// ConflictError aborts table synthesis. It lists every conflict, resolved ones included,
// in table order.
type ConflictError struct {
	Conflicts []*Conflict
}

func (e *ConflictError) Error() string {
	unresolved := 0
	for _, c := range e.Conflicts {
		if !c.Resolved {
			unresolved++
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%v conflicts", unresolved)
	for _, c := range e.Conflicts {
		if c.Resolved {
			continue
		}
		fmt.Fprintf(&b, "\n    %v", c)
		for _, item := range c.Items {
			fmt.Fprintf(&b, "\n        %v", item)
		}
	}
	return b.String()
}
