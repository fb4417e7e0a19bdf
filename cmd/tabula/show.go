package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	spec "github.com/nihei9/tabula/spec/grammar"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var showFlags = struct {
	dot *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a report in a readable format",
		Example: `  tabula show grammar-report.json
  tabula show --dot grammar-report.json | dot -Tsvg -o automaton.svg`,
		Args: cobra.ExactArgs(1),
		RunE: runShow,
	}
	showFlags.dot = cmd.Flags().Bool("dot", false, "print the LR(0) automaton in the Graphviz DOT language")
	rootCmd.AddCommand(cmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	report, err := readReport(args[0])
	if err != nil {
		return err
	}

	if *showFlags.dot {
		return writeAutomatonDOT(os.Stdout, report)
	}
	return writeReport(os.Stdout, report)
}

func readReport(path string) (*spec.Report, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Cannot open the report %s: %w", path, err)
	}

	report := &spec.Report{}
	err = json.Unmarshal(d, report)
	if err != nil {
		return nil, err
	}

	return report, nil
}

// reportWriter renders each section of a report as a pterm table.
type reportWriter struct {
	report *spec.Report
}

type reportSection struct {
	title string
	data  pterm.TableData
}

func writeReport(w io.Writer, report *spec.Report) error {
	rw := &reportWriter{
		report: report,
	}

	sections := []reportSection{
		{title: "Conflicts", data: rw.conflicts()},
		{title: "Terminals", data: rw.terminals()},
		{title: "Productions", data: rw.productions()},
		{title: "FIRST / FOLLOW", data: rw.firstAndFollow()},
	}
	switch report.Class {
	case spec.ClassSLR:
		sections = append(sections, reportSection{title: "States", data: rw.states()})
	case spec.ClassLL1:
		sections = append(sections, reportSection{title: "Predictions", data: rw.predictions()})
	}

	for _, s := range sections {
		fmt.Fprintf(w, "# %v\n\n", s.title)
		if len(s.data) <= 1 {
			fmt.Fprintf(w, "None\n\n")
			continue
		}
		table, err := pterm.DefaultTable.WithHasHeader().WithData(s.data).Srender()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%v\n\n", table)
	}

	return nil
}

func (rw *reportWriter) termName(sym int) string {
	if sym < len(rw.report.Terminals) && rw.report.Terminals[sym] != nil {
		return rw.report.Terminals[sym].Name
	}
	return fmt.Sprintf("<terminal %v>", sym)
}

func (rw *reportWriter) nonTermName(sym int) string {
	if sym < len(rw.report.NonTerminals) && rw.report.NonTerminals[sym] != nil {
		return rw.report.NonTerminals[sym].Name
	}
	return fmt.Sprintf("<non-terminal %v>", sym)
}

func (rw *reportWriter) symbolNames(rhs []int) string {
	if len(rhs) == 0 {
		return "ε"
	}
	names := make([]string, len(rhs))
	for i, e := range rhs {
		if e > 0 {
			names[i] = rw.termName(e)
		} else {
			names[i] = rw.nonTermName(e * -1)
		}
	}
	return strings.Join(names, " ")
}

func (rw *reportWriter) production(num int) string {
	prod := rw.report.Productions[num]
	return fmt.Sprintf("%v → %v", rw.nonTermName(prod.LHS), rw.symbolNames(prod.RHS))
}

// accepting reports whether a production is the augmented start production. It is numbered last.
func (rw *reportWriter) accepting(prod int) bool {
	return prod == len(rw.report.Productions)-1
}

func (rw *reportWriter) conflicts() pterm.TableData {
	data := pterm.TableData{
		{"kind", "location", "terminal", "competing actions", "adopted"},
	}
	for _, s := range rw.report.States {
		for _, c := range s.SRConflict {
			adopted := "none"
			switch {
			case c.AdoptedState != nil && c.Resolved:
				adopted = fmt.Sprintf("shift %v", *c.AdoptedState)
			case c.AdoptedProduction != nil && c.Resolved:
				adopted = fmt.Sprintf("reduce %v", *c.AdoptedProduction)
			}
			data = append(data, []string{
				"shift/reduce",
				fmt.Sprintf("state %v", s.Number),
				rw.termName(c.Symbol),
				fmt.Sprintf("shift %v, reduce %v", c.State, c.Production),
				adopted,
			})
		}
		for _, c := range s.RRConflict {
			data = append(data, []string{
				"reduce/reduce",
				fmt.Sprintf("state %v", s.Number),
				rw.termName(c.Symbol),
				fmt.Sprintf("reduce %v, reduce %v", c.Production1, c.Production2),
				"none",
			})
		}
	}
	for _, c := range rw.report.PredictionConflicts {
		data = append(data, []string{
			"prediction",
			rw.nonTermName(c.NonTerminal),
			rw.termName(c.Terminal),
			fmt.Sprintf("%v, %v", rw.production(c.Production1), rw.production(c.Production2)),
			"none",
		})
	}
	return data
}

func (rw *reportWriter) terminals() pterm.TableData {
	data := pterm.TableData{
		{"number", "name", "pattern", "skip"},
	}
	for _, t := range rw.report.Terminals {
		if t == nil {
			continue
		}
		pattern := t.Pattern
		if t.Literal {
			pattern = fmt.Sprintf("'%v'", t.Pattern)
		} else if pattern != "" {
			pattern = fmt.Sprintf("\"%v\"", t.Pattern)
		}
		skip := ""
		if t.Skip {
			skip = "yes"
		}
		data = append(data, []string{strconv.Itoa(t.Number), t.Name, pattern, skip})
	}
	return data
}

func (rw *reportWriter) productions() pterm.TableData {
	data := pterm.TableData{
		{"number", "production"},
	}
	for _, p := range rw.report.Productions {
		data = append(data, []string{strconv.Itoa(p.Number), rw.production(p.Number)})
	}
	return data
}

func (rw *reportWriter) firstAndFollow() pterm.TableData {
	data := pterm.TableData{
		{"non-terminal", "FIRST", "FOLLOW"},
	}
	follow := map[int]*spec.SymbolSet{}
	for _, f := range rw.report.Follow {
		follow[f.NonTerminal] = f
	}
	for _, fst := range rw.report.First {
		var first []string
		for _, t := range fst.Terminals {
			first = append(first, rw.termName(t))
		}
		if fst.Empty {
			first = append(first, "ε")
		}

		var flw []string
		if f, ok := follow[fst.NonTerminal]; ok {
			for _, t := range f.Terminals {
				flw = append(flw, rw.termName(t))
			}
			if f.EOF {
				flw = append(flw, "$")
			}
		}

		data = append(data, []string{
			rw.nonTermName(fst.NonTerminal),
			strings.Join(first, " "),
			strings.Join(flw, " "),
		})
	}
	return data
}

func (rw *reportWriter) states() pterm.TableData {
	data := pterm.TableData{
		{"state", "kernel", "actions"},
	}
	for _, s := range rw.report.States {
		var kernel []string
		for _, item := range s.Kernel {
			kernel = append(kernel, rw.item(item))
		}

		var acts []string
		for _, t := range s.Shift {
			acts = append(acts, fmt.Sprintf("shift %v on %v", t.State, rw.termName(t.Symbol)))
		}
		for _, r := range s.Reduce {
			var la []string
			for _, a := range r.LookAhead {
				la = append(la, rw.termName(a))
			}
			if rw.accepting(r.Production) {
				acts = append(acts, fmt.Sprintf("accept on %v", strings.Join(la, ", ")))
				continue
			}
			acts = append(acts, fmt.Sprintf("reduce %v on %v", r.Production, strings.Join(la, ", ")))
		}
		for _, t := range s.GoTo {
			acts = append(acts, fmt.Sprintf("goto %v on %v", t.State, rw.nonTermName(t.Symbol)))
		}

		data = append(data, []string{
			strconv.Itoa(s.Number),
			strings.Join(kernel, "; "),
			strings.Join(acts, "; "),
		})
	}
	return data
}

func (rw *reportWriter) item(item *spec.Item) string {
	prod := rw.report.Productions[item.Production]

	var b strings.Builder
	fmt.Fprintf(&b, "%v →", rw.nonTermName(prod.LHS))
	for i, e := range prod.RHS {
		if i == item.Dot {
			fmt.Fprintf(&b, " ・")
		}
		if e > 0 {
			fmt.Fprintf(&b, " %v", rw.termName(e))
		} else {
			fmt.Fprintf(&b, " %v", rw.nonTermName(e*-1))
		}
	}
	if item.Dot >= len(prod.RHS) {
		fmt.Fprintf(&b, " ・")
	}
	return b.String()
}

func (rw *reportWriter) predictions() pterm.TableData {
	data := pterm.TableData{
		{"non-terminal", "terminal", "production"},
	}
	for _, p := range rw.report.Predictions {
		data = append(data, []string{
			rw.nonTermName(p.NonTerminal),
			rw.termName(p.Terminal),
			rw.production(p.Production),
		})
	}
	return data
}

// writeAutomatonDOT writes the LR(0) automaton of an SLR report in the Graphviz DOT language. A state is
// a record of its number and kernel items, and a state that accepts is filled gray.
func writeAutomatonDOT(w io.Writer, report *spec.Report) error {
	if report.Class != spec.ClassSLR {
		return fmt.Errorf("a %v report has no LR automaton", report.Class)
	}
	rw := &reportWriter{
		report: report,
	}

	var b strings.Builder
	fmt.Fprint(&b, `digraph automaton {
graph [splines=true, fontname=Helvetica, fontsize=10];
node [shape=Mrecord, style=filled, fontname=Helvetica, fontsize=10];
edge [fontname=Helvetica, fontsize=10];

`)
	for _, s := range report.States {
		var kernel []string
		for _, item := range s.Kernel {
			kernel = append(kernel, escapeRecord(rw.item(item)))
		}
		color := "white"
		for _, r := range s.Reduce {
			if rw.accepting(r.Production) {
				color = "lightgray"
			}
		}
		fmt.Fprintf(&b, "s%03d [fillcolor=%v label=\"{%03d | %v\\l}\"]\n", s.Number, color, s.Number, strings.Join(kernel, `\l`))
	}
	for _, s := range report.States {
		for _, t := range s.Shift {
			fmt.Fprintf(&b, "s%03d -> s%03d [label=\"%v\"]\n", s.Number, t.State, escapeRecord(rw.termName(t.Symbol)))
		}
		for _, t := range s.GoTo {
			fmt.Fprintf(&b, "s%03d -> s%03d [label=\"%v\"]\n", s.Number, t.State, escapeRecord(rw.nonTermName(t.Symbol)))
		}
	}
	fmt.Fprintf(&b, "}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

var recordEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `{`, `\{`, `}`, `\}`, `|`, `\|`, `<`, `\<`, `>`, `\>`)

// escapeRecord escapes the characters a record label treats as structure.
func escapeRecord(s string) string {
	return recordEscaper.Replace(s)
}
