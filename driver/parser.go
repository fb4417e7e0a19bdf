package driver

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/emirpasic/gods/stacks/arraystack"
	verr "github.com/nihei9/tabula/error"
	spec "github.com/nihei9/tabula/spec/grammar"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("tabula.driver")
}

// SyntaxError reports the token the table had no entry for. Row and Col are 0-based.
type SyntaxError struct {
	Row     int
	Col     int
	Message string
	Lexeme  string
	EOF     bool

	// State is the LR state the parser was in. It is -1 for the LL automaton.
	State int

	// NonTerminal is the non-terminal the LL automaton was expanding or matching the body of.
	NonTerminal string

	// ExpectedTerminals lists, in name order, the terminals that had an entry.
	ExpectedTerminals []string
}

func (e *SyntaxError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v:%v: %v", e.Row+1, e.Col+1, e.Message)
	if !e.EOF {
		fmt.Fprintf(&b, " %q", e.Lexeme)
	}
	if e.State >= 0 {
		fmt.Fprintf(&b, " in state %v", e.State)
	} else if e.NonTerminal != "" {
		fmt.Fprintf(&b, " in %v", e.NonTerminal)
	}
	if len(e.ExpectedTerminals) > 0 {
		fmt.Fprintf(&b, "; expected: %v", strings.Join(e.ExpectedTerminals, ", "))
	}
	return b.String()
}

func (e *SyntaxError) Position() (int, int) {
	return e.Row, e.Col
}

// StructuralError reports a violated invariant of the parser's stacks. It means the table or the
// parser is broken, not the input.
type StructuralError struct {
	Message string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural error: %v", e.Message)
}

type TransitionKind string

const (
	TransitionKindShift   = TransitionKind("shift")
	TransitionKindReduce  = TransitionKind("reduce")
	TransitionKindAccept  = TransitionKind("accept")
	TransitionKindPredict = TransitionKind("predict")
	TransitionKindMatch   = TransitionKind("match")
)

// Transition is one step of the automaton. State is the state pushed by a shift or by the goto
// following a reduction and is -1 otherwise. Production is -1 for shift and match.
type Transition struct {
	Kind        TransitionKind
	State       int
	Production  int
	Terminal    string
	NonTerminal string
}

func (t *Transition) String() string {
	switch t.Kind {
	case TransitionKindShift:
		return fmt.Sprintf("shift %v, goto %v", t.Terminal, t.State)
	case TransitionKindReduce:
		return fmt.Sprintf("reduce %v (%v), goto %v", t.Production, t.NonTerminal, t.State)
	case TransitionKindAccept:
		return "accept"
	case TransitionKindPredict:
		return fmt.Sprintf("predict %v (%v) on %v", t.Production, t.NonTerminal, t.Terminal)
	case TransitionKindMatch:
		return fmt.Sprintf("match %v", t.Terminal)
	}
	return fmt.Sprintf("<invalid transition: %v>", string(t.Kind))
}

type ParserOption func(p *Parser) error

// SemanticAction sets the semantic actions the parser calls.
func SemanticAction(semAct SemanticActionSet) ParserOption {
	return func(p *Parser) error {
		if semAct == nil {
			return errors.New("semantic action set cannot be nil")
		}
		p.semAct = semAct
		return nil
	}
}

// RecordTransitions makes the parser keep every transition it takes.
func RecordTransitions() ParserOption {
	return func(p *Parser) error {
		p.recordTransitions = true
		return nil
	}
}

type llFrameKind int

const (
	llFrameTerminal = llFrameKind(iota)
	llFrameNonTerminal
	llFrameEndOfBody
)

// llFrame is an entry of the LL automaton's stack. An end-of-body frame sits below the symbols of
// a predicted body and marks the point where the whole body has been matched.
type llFrame struct {
	kind llFrameKind
	num  int
}

type Parser struct {
	gram              Grammar
	toks              TokenStream
	stateStack        []int
	llStack           *arraystack.Stack
	semAct            SemanticActionSet
	nodeCount         int
	recordTransitions bool
	transitions       []*Transition
	diag              *verr.Diagnostics
	eof               VToken
	lastRow           int
	lastCol           int
}

func NewParser(gram Grammar, toks TokenStream, opts ...ParserOption) (*Parser, error) {
	p := &Parser{
		gram: gram,
		toks: toks,
		diag: verr.NewDiagnostics(),
	}

	for _, opt := range opts {
		err := opt(p)
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Parse runs the automaton the grammar's class selects until it accepts the input or fails.
// It stops at the first syntax error.
func (p *Parser) Parse() error {
	var err error
	switch p.gram.Class() {
	case spec.ClassSLR:
		err = p.parseLR()
	case spec.ClassLL1:
		err = p.parseLL()
	default:
		err = fmt.Errorf("unknown grammar class: %v", p.gram.Class())
	}
	if err != nil {
		p.diag.Report(err)
	}
	return err
}

func (p *Parser) parseLR() error {
	p.stateStack = []int{p.gram.InitialState()}
	tok, err := p.nextToken()
	if err != nil {
		return err
	}

	for {
		if tok.Invalid() {
			return p.newSyntaxError(tok, "invalid token")
		}

		term := p.tokenToTerminal(tok)
		act := p.gram.Action(p.top(), term)
		switch {
		case act < 0: // Shift
			nextState := act * -1
			p.push(nextState)
			p.nodeCount++
			p.record(&Transition{
				Kind:       TransitionKindShift,
				State:      nextState,
				Production: -1,
				Terminal:   p.gram.Terminal(term),
			})

			if p.semAct != nil {
				p.semAct.Shift(tok)
			}

			tok, err = p.nextToken()
			if err != nil {
				return err
			}
		case act > 0: // Reduce
			prodNum := act - 1

			if prodNum == p.gram.StartProduction() {
				if len(p.stateStack) != 2 || p.nodeCount != 1 {
					return &StructuralError{
						Message: fmt.Sprintf("the stack must hold exactly one root on accept; states: %v, nodes: %v", len(p.stateStack)-1, p.nodeCount),
					}
				}
				p.record(&Transition{
					Kind:       TransitionKindAccept,
					State:      -1,
					Production: prodNum,
				})
				if p.semAct != nil {
					p.semAct.Accept()
				}
				return nil
			}

			nextState, err := p.reduce(prodNum)
			if err != nil {
				return err
			}
			p.record(&Transition{
				Kind:        TransitionKindReduce,
				State:       nextState,
				Production:  prodNum,
				NonTerminal: p.gram.NonTerminal(p.gram.LHS(prodNum)),
			})

			if p.semAct != nil {
				p.semAct.Reduce(prodNum)
			}
		default: // Error
			return p.newSyntaxError(tok, "")
		}
	}
}

func (p *Parser) reduce(prodNum int) (int, error) {
	n := p.gram.AlternativeSymbolCount(prodNum)
	if len(p.stateStack)-1 < n || p.nodeCount < n {
		return 0, &StructuralError{
			Message: fmt.Sprintf("stack underflow while reducing production %v; states: %v, nodes: %v, body: %v", prodNum, len(p.stateStack)-1, p.nodeCount, n),
		}
	}
	p.pop(n)
	lhs := p.gram.LHS(prodNum)
	nextState := p.gram.GoTo(p.top(), lhs)
	if nextState == 0 {
		return 0, &StructuralError{
			Message: fmt.Sprintf("no goto entry for (%v, %v) after reducing production %v", p.top(), p.gram.NonTerminal(lhs), prodNum),
		}
	}
	p.push(nextState)
	p.nodeCount = p.nodeCount - n + 1
	return nextState, nil
}

func (p *Parser) parseLL() error {
	p.llStack = arraystack.New()
	p.llStack.Push(&llFrame{kind: llFrameTerminal, num: p.gram.EOF()})
	p.llStack.Push(&llFrame{kind: llFrameNonTerminal, num: p.gram.StartSymbol()})
	tok, err := p.nextToken()
	if err != nil {
		return err
	}

	for {
		if tok.Invalid() {
			return p.newSyntaxError(tok, "invalid token")
		}

		v, ok := p.llStack.Peek()
		if !ok {
			return &StructuralError{
				Message: "the stack became empty before the end of input was matched",
			}
		}
		f := v.(*llFrame)
		term := p.tokenToTerminal(tok)
		switch f.kind {
		case llFrameEndOfBody:
			p.llStack.Pop()
			n := p.gram.AlternativeSymbolCount(f.num)
			if p.nodeCount < n {
				return &StructuralError{
					Message: fmt.Sprintf("stack underflow while completing production %v; nodes: %v, body: %v", f.num, p.nodeCount, n),
				}
			}
			p.nodeCount = p.nodeCount - n + 1
			if p.semAct != nil {
				p.semAct.Reduce(f.num)
			}
		case llFrameTerminal:
			if f.num != term {
				return p.newSyntaxError(tok, "")
			}
			p.llStack.Pop()

			if term == p.gram.EOF() {
				if !p.llStack.Empty() || p.nodeCount != 1 {
					return &StructuralError{
						Message: fmt.Sprintf("the stack must hold exactly one root on accept; frames: %v, nodes: %v", p.llStack.Size(), p.nodeCount),
					}
				}
				p.record(&Transition{
					Kind:       TransitionKindAccept,
					State:      -1,
					Production: p.gram.StartProduction(),
				})
				if p.semAct != nil {
					p.semAct.Accept()
				}
				return nil
			}

			p.nodeCount++
			p.record(&Transition{
				Kind:       TransitionKindMatch,
				State:      -1,
				Production: -1,
				Terminal:   p.gram.Terminal(term),
			})
			if p.semAct != nil {
				p.semAct.Shift(tok)
			}

			tok, err = p.nextToken()
			if err != nil {
				return err
			}
		case llFrameNonTerminal:
			pred := p.gram.Prediction(f.num, term)
			if pred == 0 {
				return p.newSyntaxError(tok, "")
			}
			prodNum := pred - 1

			p.llStack.Pop()
			p.llStack.Push(&llFrame{kind: llFrameEndOfBody, num: prodNum})
			rhs := p.gram.RHS(prodNum)
			for i := len(rhs) - 1; i >= 0; i-- {
				if rhs[i] > 0 {
					p.llStack.Push(&llFrame{kind: llFrameTerminal, num: rhs[i]})
				} else {
					p.llStack.Push(&llFrame{kind: llFrameNonTerminal, num: -rhs[i]})
				}
			}
			p.record(&Transition{
				Kind:        TransitionKindPredict,
				State:       -1,
				Production:  prodNum,
				Terminal:    p.gram.Terminal(term),
				NonTerminal: p.gram.NonTerminal(f.num),
			})
		}
	}
}

func (p *Parser) nextToken() (VToken, error) {
	if p.eof != nil {
		return p.eof, nil
	}

	for {
		tok, err := p.toks.Next()
		if err != nil && err != io.EOF {
			return nil, err
		}

		if err == nil && tok.EOF() {
			if err := p.expectEndOfStream(); err != nil {
				return nil, err
			}
		}

		// The end-of-input token sits right after the last token the parser consumed.
		if err == io.EOF || tok.EOF() {
			p.eof = newEOFToken(p.gram.EOF(), p.lastRow, p.lastCol)
			return p.eof, nil
		}

		if !tok.Invalid() {
			if !p.knownTerminal(tok.TerminalID()) {
				return nil, p.newSyntaxError(tok, "unknown terminal")
			}
			if p.gram.SkipTerminal(tok.TerminalID()) {
				continue
			}
		}

		row, col := tok.Position()
		p.lastRow = row
		p.lastCol = col + utf8.RuneCount(tok.Lexeme())

		return tok, nil
	}
}

// expectEndOfStream fails when a token follows an end-of-input token. A stream may repeat its
// end-of-input token.
func (p *Parser) expectEndOfStream() error {
	tok, err := p.toks.Next()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}
	if tok.EOF() {
		return nil
	}
	return p.newSyntaxError(tok, "unexpected token after the end of input")
}

// knownTerminal reports whether a token may carry a terminal number. The end-of-input terminal
// is reserved for the token the parser appends itself.
func (p *Parser) knownTerminal(terminal int) bool {
	return terminal > 0 && terminal < p.gram.TerminalCount() && terminal != p.gram.EOF()
}

func (p *Parser) tokenToTerminal(tok VToken) int {
	if tok.EOF() {
		return p.gram.EOF()
	}

	return tok.TerminalID()
}

func (p *Parser) newSyntaxError(tok VToken, msg string) *SyntaxError {
	row, col := tok.Position()
	synErr := &SyntaxError{
		Row:    row,
		Col:    col,
		Lexeme: string(tok.Lexeme()),
		EOF:    tok.EOF(),
		State:  -1,
	}
	switch {
	case msg != "":
		synErr.Message = msg
	case tok.EOF():
		synErr.Message = "unexpected end of input"
	default:
		synErr.Message = "unexpected token"
	}

	switch p.gram.Class() {
	case spec.ClassSLR:
		synErr.State = p.top()
		synErr.ExpectedTerminals = p.searchLookahead(p.top())
	case spec.ClassLL1:
		synErr.NonTerminal, synErr.ExpectedTerminals = p.searchPrediction()
	}

	tracer().Debugf("syntax error: %v", synErr)

	return synErr
}

func (p *Parser) searchLookahead(state int) []string {
	terms := treeset.NewWithStringComparator()
	for term := 1; term < p.gram.TerminalCount(); term++ {
		if p.gram.Action(state, term) == 0 {
			continue
		}
		terms.Add(p.gram.Terminal(term))
	}
	return toStrings(terms)
}

// searchPrediction returns the non-terminal the LL automaton is working on and the terminals it
// would have accepted.
func (p *Parser) searchPrediction() (string, []string) {
	v, ok := p.llStack.Peek()
	if !ok {
		return "", nil
	}
	top := v.(*llFrame)

	terms := treeset.NewWithStringComparator()
	switch top.kind {
	case llFrameNonTerminal:
		for term := 1; term < p.gram.TerminalCount(); term++ {
			if p.gram.Prediction(top.num, term) == 0 {
				continue
			}
			terms.Add(p.gram.Terminal(term))
		}
		return p.gram.NonTerminal(top.num), toStrings(terms)
	case llFrameTerminal:
		terms.Add(p.gram.Terminal(top.num))
		for _, v := range p.llStack.Values() {
			f := v.(*llFrame)
			if f.kind == llFrameEndOfBody {
				return p.gram.NonTerminal(p.gram.LHS(f.num)), toStrings(terms)
			}
		}
		return "", toStrings(terms)
	}
	return "", nil
}

func toStrings(set *treeset.Set) []string {
	strs := make([]string, 0, set.Size())
	for _, v := range set.Values() {
		strs = append(strs, v.(string))
	}
	return strs
}

func (p *Parser) record(t *Transition) {
	tracer().Debugf("%v", t)
	if !p.recordTransitions {
		return
	}
	p.transitions = append(p.transitions, t)
}

func (p *Parser) top() int {
	return p.stateStack[len(p.stateStack)-1]
}

func (p *Parser) push(state int) {
	p.stateStack = append(p.stateStack, state)
}

func (p *Parser) pop(n int) {
	p.stateStack = p.stateStack[:len(p.stateStack)-n]
}

// Transitions returns the transitions taken so far. It is empty unless RecordTransitions is set.
func (p *Parser) Transitions() []*Transition {
	return p.transitions
}

// Diagnostics returns the messages the parser collected. It holds at most one error because the
// parser stops at the first one.
func (p *Parser) Diagnostics() *verr.Diagnostics {
	return p.diag
}
