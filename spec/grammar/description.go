package grammar

type Terminal struct {
	Number  int    `json:"number"`
	Name    string `json:"name"`
	Pattern string `json:"pattern"`
	Literal bool   `json:"literal"`
	Skip    bool   `json:"skip"`
}

type NonTerminal struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

type Production struct {
	Number int   `json:"number"`
	LHS    int   `json:"lhs"`
	RHS    []int `json:"rhs"`
}

// SymbolSet is a FIRST or FOLLOW entry of a non-terminal. Empty is set when the
// non-terminal derives ε and EOF when the end of input can follow it.
type SymbolSet struct {
	NonTerminal int   `json:"non_terminal"`
	Terminals   []int `json:"terminals"`
	Empty       bool  `json:"empty,omitempty"`
	EOF         bool  `json:"eof,omitempty"`
}

type Item struct {
	Production int `json:"production"`
	Dot        int `json:"dot"`
}

type Transition struct {
	Symbol int `json:"symbol"`
	State  int `json:"state"`
}

type Reduce struct {
	LookAhead  []int `json:"look_ahead"`
	Production int   `json:"production"`
}

type SRConflict struct {
	Symbol            int  `json:"symbol"`
	State             int  `json:"state"`
	Production        int  `json:"production"`
	AdoptedState      *int `json:"adopted_state"`
	AdoptedProduction *int `json:"adopted_production"`
	Resolved          bool `json:"resolved"`
}

type RRConflict struct {
	Symbol            int `json:"symbol"`
	Production1       int `json:"production_1"`
	Production2       int `json:"production_2"`
	AdoptedProduction int `json:"adopted_production"`
}

type State struct {
	Number     int           `json:"number"`
	Kernel     []*Item       `json:"kernel"`
	Shift      []*Transition `json:"shift"`
	Reduce     []*Reduce     `json:"reduce"`
	GoTo       []*Transition `json:"goto"`
	SRConflict []*SRConflict `json:"sr_conflict"`
	RRConflict []*RRConflict `json:"rr_conflict"`
}

type Prediction struct {
	NonTerminal int `json:"non_terminal"`
	Terminal    int `json:"terminal"`
	Production  int `json:"production"`
}

type PredictionConflict struct {
	NonTerminal int `json:"non_terminal"`
	Terminal    int `json:"terminal"`
	Production1 int `json:"production_1"`
	Production2 int `json:"production_2"`
}

type Report struct {
	Class        Class          `json:"class"`
	Terminals    []*Terminal    `json:"terminals"`
	NonTerminals []*NonTerminal `json:"non_terminals"`
	Productions  []*Production  `json:"productions"`
	First        []*SymbolSet   `json:"first"`
	Follow       []*SymbolSet   `json:"follow"`

	// States is set for ClassSLR.
	States []*State `json:"states,omitempty"`

	// Predictions and PredictionConflicts are set for ClassLL1.
	Predictions         []*Prediction         `json:"predictions,omitempty"`
	PredictionConflicts []*PredictionConflict `json:"prediction_conflicts,omitempty"`
}
