// Package tabular reads and writes parsing tables as CSV.
//
// An LR table has the header `state,<terminals>,$,<non-terminals>` and one row per state.
// An action cell is `shift<N>`, `reduce<N>`, `accept` or blank, and a goto cell is a bare
// state number or blank.
//
// An LL(1) table has the header `non-terminal,<terminals>,$` and one row per non-terminal.
// A cell holds the body of the predicted production, its symbol names separated by a single
// space, `ε` for an empty body, or blank.
//
// Columns are resolved by their header names, so their order is free.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	spec "github.com/nihei9/tabula/spec/grammar"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'tabula.tabular'.
func tracer() tracing.Trace {
	return tracing.Select("tabula.tabular")
}

const (
	headerState       = "state"
	headerNonTerminal = "non-terminal"

	cellAccept = "accept"
	cellShift  = "shift"
	cellReduce = "reduce"
	cellEmpty  = "ε"
)

var (
	errNoHeader          = errors.New("the table has no header")
	errUnknownColumn     = errors.New("unknown column")
	errDuplicateColumn   = errors.New("duplicate column")
	errMissingColumn     = errors.New("missing column")
	errUnknownRow        = errors.New("unknown row label")
	errDuplicateRow      = errors.New("duplicate row")
	errMissingRow        = errors.New("missing row")
	errMalformedCell     = errors.New("malformed cell")
	errUnknownProduction = errors.New("the body matches no production of the non-terminal")
	errMalformedCSV      = errors.New("malformed CSV")
)

// TableLoadError reports a table that cannot be loaded. Row and Col are 1-based; the header
// is row 1. Zero means the error has no specific cell.
type TableLoadError struct {
	Row    int
	Col    int
	Cause  error
	Detail string
}

func (e *TableLoadError) Error() string {
	var b strings.Builder
	if e.Row > 0 {
		fmt.Fprintf(&b, "%v:%v: ", e.Row, e.Col)
	}
	fmt.Fprintf(&b, "%v", e.Cause)
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %v", e.Detail)
	}
	return b.String()
}

func (e *TableLoadError) Unwrap() error {
	return e.Cause
}

// Position returns the 0-based position of the offending cell.
func (e *TableLoadError) Position() (int, int) {
	return e.Row - 1, e.Col - 1
}

// Write writes the table of syn in the format of its class.
func Write(w io.Writer, syn *spec.SyntacticSpec) error {
	cw := csv.NewWriter(w)
	var records [][]string
	switch syn.Class {
	case spec.ClassSLR:
		records = lrRecords(syn)
	case spec.ClassLL1:
		records = llRecords(syn)
	default:
		return fmt.Errorf("unknown grammar class: %v", syn.Class)
	}
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	tracer().Debugf("wrote a %v table: %v rows", syn.Class, len(records)-1)
	return nil
}

// terminalColumns returns the terminal numbers in column order: user terminals, then $.
func terminalColumns(syn *spec.SyntacticSpec) []int {
	cols := make([]int, 0, syn.TerminalCount)
	for t := 0; t < syn.TerminalCount; t++ {
		if t == 0 || t == syn.EOFSymbol {
			continue
		}
		cols = append(cols, t)
	}
	return append(cols, syn.EOFSymbol)
}

// nonTerminalColumns returns the user non-terminal numbers. The augmented start symbol
// has neither a goto column nor a prediction row.
func nonTerminalColumns(syn *spec.SyntacticSpec) []int {
	augStart := syn.LHSSymbols[syn.StartProduction]
	cols := make([]int, 0, syn.NonTerminalCount)
	for n := 0; n < syn.NonTerminalCount; n++ {
		if n == 0 || n == augStart {
			continue
		}
		cols = append(cols, n)
	}
	return cols
}

func lrRecords(syn *spec.SyntacticSpec) [][]string {
	terms := terminalColumns(syn)
	nonTerms := nonTerminalColumns(syn)

	header := []string{headerState}
	for _, t := range terms {
		header = append(header, syn.Terminals[t])
	}
	for _, n := range nonTerms {
		header = append(header, syn.NonTerminals[n])
	}

	records := [][]string{header}
	for state := 0; state < syn.StateCount; state++ {
		rec := []string{strconv.Itoa(state)}
		for _, t := range terms {
			rec = append(rec, formatAction(syn, syn.Action[state*syn.TerminalCount+t]))
		}
		for _, n := range nonTerms {
			next := syn.GoTo[state*syn.NonTerminalCount+n]
			if next == 0 {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, strconv.Itoa(next))
		}
		records = append(records, rec)
	}
	return records
}

func formatAction(syn *spec.SyntacticSpec, act int) string {
	switch {
	case act < 0:
		return fmt.Sprintf("%v%v", cellShift, -act)
	case act > 0:
		if act-1 == syn.StartProduction {
			return cellAccept
		}
		return fmt.Sprintf("%v%v", cellReduce, act-1)
	}
	return ""
}

func llRecords(syn *spec.SyntacticSpec) [][]string {
	terms := terminalColumns(syn)

	header := []string{headerNonTerminal}
	for _, t := range terms {
		header = append(header, syn.Terminals[t])
	}

	records := [][]string{header}
	for _, n := range nonTerminalColumns(syn) {
		rec := []string{syn.NonTerminals[n]}
		for _, t := range terms {
			e := syn.Prediction[n*syn.TerminalCount+t]
			if e == 0 {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, formatBody(syn, e-1))
		}
		records = append(records, rec)
	}
	return records
}

func formatBody(syn *spec.SyntacticSpec, prod int) string {
	rhs := syn.RHSSymbols[prod]
	if len(rhs) == 0 {
		return cellEmpty
	}
	names := make([]string, len(rhs))
	for i, sym := range rhs {
		names[i] = symbolName(syn, sym)
	}
	return strings.Join(names, " ")
}

func symbolName(syn *spec.SyntacticSpec, sym int) string {
	if sym < 0 {
		return syn.NonTerminals[-sym]
	}
	return syn.Terminals[sym]
}

// Read loads a table written by Write. catalog supplies the symbols and productions; the
// returned spec is a copy of catalog whose table is replaced by the loaded one.
func Read(r io.Reader, catalog *spec.SyntacticSpec) (*spec.SyntacticSpec, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		var pErr *csv.ParseError
		if errors.As(err, &pErr) {
			return nil, &TableLoadError{
				Row:    pErr.Line,
				Col:    pErr.Column,
				Cause:  errMalformedCSV,
				Detail: pErr.Err.Error(),
			}
		}
		return nil, err
	}
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, &TableLoadError{
			Cause: errNoHeader,
		}
	}

	syn := *catalog
	syn.Action = nil
	syn.GoTo = nil
	syn.Prediction = nil

	switch records[0][0] {
	case headerState:
		syn.Class = spec.ClassSLR
		if err := readLR(records, &syn); err != nil {
			return nil, err
		}
	case headerNonTerminal:
		syn.Class = spec.ClassLL1
		syn.StateCount = 0
		syn.InitialState = 0
		if err := readLL(records, &syn); err != nil {
			return nil, err
		}
	default:
		return nil, &TableLoadError{
			Row:    1,
			Col:    1,
			Cause:  errNoHeader,
			Detail: fmt.Sprintf("the first column must be '%v' or '%v'", headerState, headerNonTerminal),
		}
	}

	tracer().Debugf("loaded a %v table: %v rows", syn.Class, len(records)-1)

	return &syn, nil
}

type column struct {
	terminal bool
	num      int
}

// readHeader resolves header names to symbols. Every terminal column must be present;
// goto columns must be present when withNonTerminals is set.
func readHeader(header []string, syn *spec.SyntacticSpec, withNonTerminals bool) ([]*column, error) {
	term2Num := map[string]int{}
	for _, t := range terminalColumns(syn) {
		term2Num[syn.Terminals[t]] = t
	}
	nonTerm2Num := map[string]int{}
	if withNonTerminals {
		for _, n := range nonTerminalColumns(syn) {
			nonTerm2Num[syn.NonTerminals[n]] = n
		}
	}

	cols := make([]*column, len(header))
	seen := map[string]struct{}{}
	for i, name := range header[1:] {
		pos := i + 2
		if _, dup := seen[name]; dup {
			return nil, &TableLoadError{
				Row:    1,
				Col:    pos,
				Cause:  errDuplicateColumn,
				Detail: name,
			}
		}
		seen[name] = struct{}{}

		if num, ok := term2Num[name]; ok {
			cols[i+1] = &column{
				terminal: true,
				num:      num,
			}
			continue
		}
		if num, ok := nonTerm2Num[name]; ok {
			cols[i+1] = &column{
				num: num,
			}
			continue
		}
		return nil, &TableLoadError{
			Row:    1,
			Col:    pos,
			Cause:  errUnknownColumn,
			Detail: name,
		}
	}

	for name := range term2Num {
		if _, ok := seen[name]; !ok {
			return nil, &TableLoadError{
				Row:    1,
				Cause:  errMissingColumn,
				Detail: name,
			}
		}
	}
	for name := range nonTerm2Num {
		if _, ok := seen[name]; !ok {
			return nil, &TableLoadError{
				Row:    1,
				Cause:  errMissingColumn,
				Detail: name,
			}
		}
	}

	return cols, nil
}

func readLR(records [][]string, syn *spec.SyntacticSpec) error {
	cols, err := readHeader(records[0], syn, true)
	if err != nil {
		return err
	}

	// A table compiled from the same grammar as catalog has catalog's states. Fewer rows mean
	// some were dropped.
	rows := records[1:]
	stateCount := len(rows)
	if syn.StateCount > stateCount {
		stateCount = syn.StateCount
	}
	action := make([]int, stateCount*syn.TerminalCount)
	goTo := make([]int, stateCount*syn.NonTerminalCount)
	seen := make([]bool, stateCount)
	for i, rec := range rows {
		rowPos := i + 2
		state, err := strconv.Atoi(rec[0])
		if err != nil || state < 0 || state >= stateCount {
			return &TableLoadError{
				Row:    rowPos,
				Col:    1,
				Cause:  errUnknownRow,
				Detail: rec[0],
			}
		}
		if seen[state] {
			return &TableLoadError{
				Row:    rowPos,
				Col:    1,
				Cause:  errDuplicateRow,
				Detail: rec[0],
			}
		}
		seen[state] = true

		for j, cell := range rec[1:] {
			col := cols[j+1]
			if cell == "" {
				continue
			}
			if col.terminal {
				act, ok := parseAction(cell, stateCount, syn)
				if !ok {
					return &TableLoadError{
						Row:    rowPos,
						Col:    j + 2,
						Cause:  errMalformedCell,
						Detail: cell,
					}
				}
				action[state*syn.TerminalCount+col.num] = act
				continue
			}
			next, err := strconv.Atoi(cell)
			if err != nil || next <= 0 || next >= stateCount {
				return &TableLoadError{
					Row:    rowPos,
					Col:    j + 2,
					Cause:  errMalformedCell,
					Detail: cell,
				}
			}
			goTo[state*syn.NonTerminalCount+col.num] = next
		}
	}
	for state, ok := range seen {
		if !ok {
			return &TableLoadError{
				Cause:  errMissingRow,
				Detail: fmt.Sprintf("state %v", state),
			}
		}
	}

	syn.Action = action
	syn.GoTo = goTo
	syn.StateCount = stateCount
	syn.InitialState = 0
	return nil
}

// parseAction converts a cell into an action entry. Shifting into the initial state is
// not representable, so shift0 is malformed.
func parseAction(cell string, stateCount int, syn *spec.SyntacticSpec) (int, bool) {
	switch {
	case cell == cellAccept:
		return syn.StartProduction + 1, true
	case strings.HasPrefix(cell, cellShift):
		n, err := strconv.Atoi(strings.TrimPrefix(cell, cellShift))
		if err != nil || n <= 0 || n >= stateCount {
			return 0, false
		}
		return -n, true
	case strings.HasPrefix(cell, cellReduce):
		n, err := strconv.Atoi(strings.TrimPrefix(cell, cellReduce))
		if err != nil || n < 0 || n >= len(syn.LHSSymbols) || n == syn.StartProduction {
			return 0, false
		}
		return n + 1, true
	}
	return 0, false
}

func readLL(records [][]string, syn *spec.SyntacticSpec) error {
	cols, err := readHeader(records[0], syn, false)
	if err != nil {
		return err
	}

	nonTerm2Num := map[string]int{}
	for _, n := range nonTerminalColumns(syn) {
		nonTerm2Num[syn.NonTerminals[n]] = n
	}

	pred := make([]int, syn.NonTerminalCount*syn.TerminalCount)
	seen := map[int]struct{}{}
	for i, rec := range records[1:] {
		rowPos := i + 2
		nonTerm, ok := nonTerm2Num[rec[0]]
		if !ok {
			return &TableLoadError{
				Row:    rowPos,
				Col:    1,
				Cause:  errUnknownRow,
				Detail: rec[0],
			}
		}
		if _, dup := seen[nonTerm]; dup {
			return &TableLoadError{
				Row:    rowPos,
				Col:    1,
				Cause:  errDuplicateRow,
				Detail: rec[0],
			}
		}
		seen[nonTerm] = struct{}{}

		for j, cell := range rec[1:] {
			if cell == "" {
				continue
			}
			prod, ok := findProduction(syn, nonTerm, cell)
			if !ok {
				return &TableLoadError{
					Row:    rowPos,
					Col:    j + 2,
					Cause:  errUnknownProduction,
					Detail: fmt.Sprintf("%v → %v", rec[0], cell),
				}
			}
			pred[nonTerm*syn.TerminalCount+cols[j+1].num] = prod + 1
		}
	}
	for _, n := range nonTerminalColumns(syn) {
		if _, ok := seen[n]; !ok {
			return &TableLoadError{
				Cause:  errMissingRow,
				Detail: syn.NonTerminals[n],
			}
		}
	}

	syn.Prediction = pred
	return nil
}

func findProduction(syn *spec.SyntacticSpec, nonTerm int, body string) (int, bool) {
	var names []string
	if body != cellEmpty {
		names = strings.Split(body, " ")
	}
	for p, lhs := range syn.LHSSymbols {
		if lhs != nonTerm || p == syn.StartProduction {
			continue
		}
		rhs := syn.RHSSymbols[p]
		if len(rhs) != len(names) {
			continue
		}
		match := true
		for i, sym := range rhs {
			if symbolName(syn, sym) != names[i] {
				match = false
				break
			}
		}
		if match {
			return p, true
		}
	}
	return 0, false
}
