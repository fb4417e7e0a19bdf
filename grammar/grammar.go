package grammar

import (
	"fmt"
	"io"
	"strings"

	mlcompiler "github.com/nihei9/maleeni/compiler"
	mlspec "github.com/nihei9/maleeni/spec"
	verr "github.com/nihei9/tabula/error"
	"github.com/nihei9/tabula/grammar/symbol"
	spec "github.com/nihei9/tabula/spec/grammar"
	"github.com/nihei9/tabula/spec/grammar/parser"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'tabula.grammar'.
func tracer() tracing.Trace {
	return tracing.Select("tabula.grammar")
}

type Grammar struct {
	name                 string
	lexSpec              *mlspec.LexSpec
	skipSymbols          map[symbol.Symbol]struct{}
	literalSymbols       map[symbol.Symbol]struct{}
	sym2Pattern          map[symbol.Symbol]string
	productionSet        *productionSet
	augmentedStartSymbol symbol.Symbol
	startSymbol          symbol.Symbol
	symbolTable          *symbol.SymbolTable
}

type GrammarBuilder struct {
	AST *parser.RootNode

	errs verr.SpecErrors
}

func (b *GrammarBuilder) Build() (*Grammar, error) {
	specName := b.genName(b.AST)

	if len(b.AST.Productions) == 0 {
		b.errs = append(b.errs, &verr.SpecError{
			Cause: semErrNoProduction,
		})
	}
	if len(b.errs) > 0 {
		return nil, b.errs
	}
	if specName == "" {
		specName = b.AST.Productions[0].LHS
	}

	symTabAndLexSpec, err := b.genSymbolTableAndLexSpec(b.AST)
	if err != nil {
		return nil, err
	}

	prods, err := b.genProductions(b.AST, symTabAndLexSpec)
	if err != nil {
		return nil, err
	}
	if prods == nil && len(b.errs) > 0 {
		return nil, b.errs
	}

	syms := findUsedAndUnusedSymbols(b.AST)

	// A skipped terminal is never referenced by a production, so it doesn't count as unused.
	for _, sym := range symTabAndLexSpec.skipSyms {
		if _, ok := syms.unusedTerminals[sym]; !ok {
			prod := syms.usedTerminals[sym]

			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrTermCannotBeSkipped,
				Detail: sym,
				Row:    prod.Pos.Row,
				Col:    prod.Pos.Col,
			})
			continue
		}

		delete(syms.unusedTerminals, sym)
	}

	for sym, prod := range syms.unusedProductions {
		b.errs = append(b.errs, &verr.SpecError{
			Cause:  semErrUnusedProduction,
			Detail: sym,
			Row:    prod.Pos.Row,
			Col:    prod.Pos.Col,
		})
	}

	for sym, prod := range syms.unusedTerminals {
		b.errs = append(b.errs, &verr.SpecError{
			Cause:  semErrUnusedTerminal,
			Detail: sym,
			Row:    prod.Pos.Row,
			Col:    prod.Pos.Col,
		})
	}

	if len(b.errs) > 0 {
		return nil, b.errs
	}

	symTabAndLexSpec.lexSpec.Name = specName

	return &Grammar{
		name:                 specName,
		lexSpec:              symTabAndLexSpec.lexSpec,
		skipSymbols:          symTabAndLexSpec.skip,
		literalSymbols:       symTabAndLexSpec.literals,
		sym2Pattern:          symTabAndLexSpec.sym2Pattern,
		productionSet:        prods.prods,
		augmentedStartSymbol: prods.augStartSym,
		startSymbol:          prods.startSym,
		symbolTable:          symTabAndLexSpec.symTab,
	}, nil
}

// genName reads the `name` directive. A grammar without it is named after its start symbol.
func (b *GrammarBuilder) genName(root *parser.RootNode) string {
	var specName string
	for _, dir := range root.Directives {
		if dir.Name != "name" {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrDirInvalidName,
				Detail: dir.Name,
				Row:    dir.Pos.Row,
				Col:    dir.Pos.Col,
			})
			continue
		}

		if len(dir.Parameters) != 1 || dir.Parameters[0].ID == "" {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrDirInvalidParam,
				Detail: "'name' takes just one ID parameter",
				Row:    dir.Pos.Row,
				Col:    dir.Pos.Col,
			})
			continue
		}

		if specName != "" {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrDuplicateDir,
				Detail: dir.Name,
				Row:    dir.Pos.Row,
				Col:    dir.Pos.Col,
			})
			continue
		}

		specName = dir.Parameters[0].ID
	}
	return specName
}

type usedAndUnusedSymbols struct {
	unusedProductions map[string]*parser.ProductionNode
	unusedTerminals   map[string]*parser.ProductionNode
	usedTerminals     map[string]*parser.ProductionNode
}

func findUsedAndUnusedSymbols(root *parser.RootNode) *usedAndUnusedSymbols {
	prods := map[string]*parser.ProductionNode{}
	lexProds := map[string]*parser.ProductionNode{}
	mark := map[string]bool{}
	{
		for _, p := range root.Productions {
			prods[p.LHS] = p
			mark[p.LHS] = false
			for _, alt := range p.RHS {
				for _, e := range alt.Elements {
					if e.ID == "" {
						continue
					}
					mark[e.ID] = false
				}
			}
		}

		for _, p := range root.LexProductions {
			lexProds[p.LHS] = p
			mark[p.LHS] = false
		}

		start := root.Productions[0]
		mark[start.LHS] = true
		markUsedSymbols(mark, map[string]bool{}, root.Productions, start.LHS)
	}

	usedTerms := make(map[string]*parser.ProductionNode, len(lexProds))
	unusedProds := map[string]*parser.ProductionNode{}
	unusedTerms := map[string]*parser.ProductionNode{}
	for sym, used := range mark {
		if p, ok := prods[sym]; ok {
			if used {
				continue
			}
			unusedProds[sym] = p
			continue
		}
		if p, ok := lexProds[sym]; ok {
			if used {
				usedTerms[sym] = p
			} else {
				unusedTerms[sym] = p
			}
			continue
		}

		// An undefined symbol is reported while generating productions.
	}

	return &usedAndUnusedSymbols{
		usedTerminals:     usedTerms,
		unusedProductions: unusedProds,
		unusedTerminals:   unusedTerms,
	}
}

// markUsedSymbols marks every symbol reachable from lhs. A non-terminal may be defined by more
// than one production node, so all of them are followed.
func markUsedSymbols(mark map[string]bool, marked map[string]bool, prods []*parser.ProductionNode, lhs string) {
	if marked[lhs] {
		return
	}
	marked[lhs] = true

	for _, prod := range prods {
		if prod.LHS != lhs {
			continue
		}
		for _, alt := range prod.RHS {
			for _, e := range alt.Elements {
				if e.ID == "" {
					continue
				}
				mark[e.ID] = true
				markUsedSymbols(mark, marked, prods, e.ID)
			}
		}
	}
}

type symbolTableAndLexSpec struct {
	symTab      *symbol.SymbolTable
	lexSpec     *mlspec.LexSpec
	skip        map[symbol.Symbol]struct{}
	skipSyms    []string
	literals    map[symbol.Symbol]struct{}
	sym2Pattern map[symbol.Symbol]string
}

func (b *GrammarBuilder) genSymbolTableAndLexSpec(root *parser.RootNode) (*symbolTableAndLexSpec, error) {
	symTab := symbol.NewSymbolTable()
	w := symTab.Writer()
	r := symTab.Reader()
	entries := []*mlspec.LexEntry{}
	skip := map[symbol.Symbol]struct{}{}
	skipSyms := []string{}
	literals := map[symbol.Symbol]struct{}{}
	sym2Pattern := map[symbol.Symbol]string{}

	for _, prod := range root.LexProductions {
		if _, exist := r.ToSymbol(prod.LHS); exist {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrDuplicateTerminal,
				Detail: prod.LHS,
				Row:    prod.Pos.Row,
				Col:    prod.Pos.Col,
			})
			continue
		}

		entry, isSkip, specErr := genLexEntry(prod)
		if specErr != nil {
			b.errs = append(b.errs, specErr)
			continue
		}

		sym, err := w.RegisterTerminalSymbol(prod.LHS)
		if err != nil {
			return nil, err
		}

		elem := prod.RHS[0].Elements[0]
		sym2Pattern[sym] = elem.Pattern
		if elem.Literally {
			literals[sym] = struct{}{}
		}
		if isSkip {
			skip[sym] = struct{}{}
			skipSyms = append(skipSyms, prod.LHS)
		}
		entries = append(entries, entry)
	}

	return &symbolTableAndLexSpec{
		symTab: symTab,
		lexSpec: &mlspec.LexSpec{
			Entries: entries,
		},
		skip:        skip,
		skipSyms:    skipSyms,
		literals:    literals,
		sym2Pattern: sym2Pattern,
	}, nil
}

func genLexEntry(prod *parser.ProductionNode) (*mlspec.LexEntry, bool, *verr.SpecError) {
	elem := prod.RHS[0].Elements[0]

	var pattern string
	if elem.Literally {
		pattern = mlspec.EscapePattern(elem.Pattern)
	} else {
		pattern = elem.Pattern
	}

	var skip bool
	dirConsumed := map[string]struct{}{}
	for _, dir := range prod.Directives {
		if _, consumed := dirConsumed[dir.Name]; consumed {
			return nil, false, &verr.SpecError{
				Cause:  semErrDuplicateDir,
				Detail: dir.Name,
				Row:    dir.Pos.Row,
				Col:    dir.Pos.Col,
			}
		}
		dirConsumed[dir.Name] = struct{}{}

		switch dir.Name {
		case "skip":
			if len(dir.Parameters) > 0 {
				return nil, false, &verr.SpecError{
					Cause:  semErrDirInvalidParam,
					Detail: "'skip' directive needs no parameter",
					Row:    dir.Pos.Row,
					Col:    dir.Pos.Col,
				}
			}
			skip = true
		default:
			return nil, false, &verr.SpecError{
				Cause:  semErrDirInvalidName,
				Detail: dir.Name,
				Row:    dir.Pos.Row,
				Col:    dir.Pos.Col,
			}
		}
	}

	return &mlspec.LexEntry{
		Kind:    mlspec.LexKindName(prod.LHS),
		Pattern: mlspec.LexPattern(pattern),
	}, skip, nil
}

type productions struct {
	prods       *productionSet
	augStartSym symbol.Symbol
	startSym    symbol.Symbol
}

// genProductions numbers the user productions from 0 in description order and appends the
// augmented start production S' → S after them.
func (b *GrammarBuilder) genProductions(root *parser.RootNode, symTabAndLexSpec *symbolTableAndLexSpec) (*productions, error) {
	symTab := symTabAndLexSpec.symTab
	w := symTab.Writer()
	r := symTab.Reader()

	startProd := root.Productions[0]
	augStartSym, err := w.RegisterStartSymbol(fmt.Sprintf("%s'", startProd.LHS))
	if err != nil {
		return nil, err
	}

	for _, prod := range root.Productions {
		if sym, exist := r.ToSymbol(prod.LHS); exist && sym.IsTerminal() {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrDuplicateName,
				Detail: prod.LHS,
				Row:    prod.Pos.Row,
				Col:    prod.Pos.Col,
			})
			continue
		}
		if _, err := w.RegisterNonTerminalSymbol(prod.LHS); err != nil {
			return nil, err
		}
	}
	if len(b.errs) > 0 {
		return nil, nil
	}

	startSym, _ := r.ToSymbol(startProd.LHS)

	prods := newProductionSet()
	for _, prod := range root.Productions {
		for _, dir := range prod.Directives {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrDirInvalidName,
				Detail: dir.Name,
				Row:    dir.Pos.Row,
				Col:    dir.Pos.Col,
			})
		}

		lhsSym, _ := r.ToSymbol(prod.LHS)

	LOOP_RHS:
		for _, alt := range prod.RHS {
			altSyms := make([]symbol.Symbol, len(alt.Elements))
			for i, elem := range alt.Elements {
				sym, ok := r.ToSymbol(elem.ID)
				if !ok {
					b.errs = append(b.errs, &verr.SpecError{
						Cause:  semErrUndefinedSym,
						Detail: elem.ID,
						Row:    elem.Pos.Row,
						Col:    elem.Pos.Col,
					})
					continue LOOP_RHS
				}
				if _, isSkip := symTabAndLexSpec.skip[sym]; isSkip {
					b.errs = append(b.errs, &verr.SpecError{
						Cause:  semErrTermCannotBeSkipped,
						Detail: elem.ID,
						Row:    elem.Pos.Row,
						Col:    elem.Pos.Col,
					})
					continue LOOP_RHS
				}
				altSyms[i] = sym
			}

			p, err := newProduction(lhsSym, altSyms)
			if err != nil {
				return nil, err
			}
			if !prods.append(p) {
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrDuplicateProduction,
					Detail: prod.LHS,
					Row:    alt.Pos.Row,
					Col:    alt.Pos.Col,
				})
			}
		}
	}
	if len(b.errs) > 0 {
		return nil, nil
	}

	p, err := newProduction(augStartSym, []symbol.Symbol{startSym})
	if err != nil {
		return nil, err
	}
	prods.append(p)

	return &productions{
		prods:       prods,
		augStartSym: augStartSym,
		startSym:    startSym,
	}, nil
}

type compileConfig struct {
	class              spec.Class
	preferShift        bool
	isReportingEnabled bool
	diag               *verr.Diagnostics
	maxStates          int
}

type CompileOption func(config *compileConfig)

// Class selects the table class. The default is spec.ClassSLR.
func Class(class spec.Class) CompileOption {
	return func(config *compileConfig) {
		config.class = class
	}
}

// PreferShift resolves shift/reduce conflicts in favor of shift. Resolved conflicts are still
// reported as warnings. Reduce/reduce conflicts are never resolved.
func PreferShift() CompileOption {
	return func(config *compileConfig) {
		config.preferShift = true
	}
}

func EnableReporting() CompileOption {
	return func(config *compileConfig) {
		config.isReportingEnabled = true
	}
}

// ReportTo makes Compile append conflicts to d: resolved ones as warnings, the others as errors.
func ReportTo(d *verr.Diagnostics) CompileOption {
	return func(config *compileConfig) {
		config.diag = d
	}
}

// MaxStates bounds the number of LR(0) states. A non-positive n means the default bound.
func MaxStates(n int) CompileOption {
	return func(config *compileConfig) {
		config.maxStates = n
	}
}

// Compile turns a grammar into a compiled grammar. When the table has unresolved conflicts, it
// returns a *ConflictError together with the report (if reporting is enabled).
func Compile(gram *Grammar, opts ...CompileOption) (*spec.CompiledGrammar, *spec.Report, error) {
	config := &compileConfig{
		class: spec.ClassSLR,
	}
	for _, opt := range opts {
		opt(config)
	}

	lexSpec, err, cErrs := mlcompiler.Compile(gram.lexSpec, mlcompiler.CompressionLevel(mlcompiler.CompressionLevelMax))
	if err != nil {
		if len(cErrs) > 0 {
			var b strings.Builder
			writeCompileError(&b, cErrs[0])
			for _, cerr := range cErrs[1:] {
				fmt.Fprintf(&b, "\n")
				writeCompileError(&b, cerr)
			}
			return nil, nil, fmt.Errorf("%v", b.String())
		}
		return nil, nil, err
	}

	symTab := gram.symbolTable.Reader()

	kind2Term := make([]int, len(lexSpec.KindNames))
	term2Kind := make([]int, symTab.TerminalCount())
	for i, k := range lexSpec.KindNames {
		if k == mlspec.LexKindNameNil {
			kind2Term[mlspec.LexKindIDNil] = symbol.SymbolNil.Num().Int()
			term2Kind[symbol.SymbolNil.Num()] = mlspec.LexKindIDNil.Int()
			continue
		}

		sym, ok := symTab.ToSymbol(k.String())
		if !ok {
			return nil, nil, fmt.Errorf("terminal symbol '%v' was not found in a symbol table", k)
		}
		kind2Term[i] = sym.Num().Int()
		term2Kind[sym.Num()] = i
	}

	skip := make([]int, symTab.TerminalCount())
	patterns := make([]string, symTab.TerminalCount())
	for _, sym := range symTab.TerminalSymbols() {
		if _, ok := gram.skipSymbols[sym]; ok {
			skip[sym.Num()] = 1
		}
		patterns[sym.Num()] = gram.sym2Pattern[sym]
	}

	terms, err := symTab.TerminalTexts()
	if err != nil {
		return nil, nil, err
	}

	nonTerms, err := symTab.NonTerminalTexts()
	if err != nil {
		return nil, nil, err
	}

	first, err := genFirstSet(gram.productionSet, symTab)
	if err != nil {
		return nil, nil, err
	}

	follow, err := genFollowSet(gram.productionSet, first, symTab)
	if err != nil {
		return nil, nil, err
	}

	var report *spec.Report
	if config.isReportingEnabled {
		report, err = genReport(gram, first, follow)
		if err != nil {
			return nil, nil, err
		}
		report.Class = config.class
	}

	synSpec := &spec.SyntacticSpec{
		Class:            config.class,
		Terminals:        terms,
		TerminalCount:    len(terms),
		TerminalSkip:     skip,
		NonTerminals:     nonTerms,
		NonTerminalCount: len(nonTerms),
		EOFSymbol:        symbol.SymbolEOF.Num().Int(),
		StartSymbol:      gram.startSymbol.Num().Int(),
	}

	var conflicts []*Conflict
	switch config.class {
	case spec.ClassSLR:
		lr0, err := genLR0Automaton(gram.productionSet, gram.augmentedStartSymbol, config.maxStates)
		if err != nil {
			return nil, nil, err
		}

		slr1, err := genSLR1Automaton(lr0, gram.productionSet, follow)
		if err != nil {
			return nil, nil, err
		}

		b := &lrTableBuilder{
			automaton:    slr1.lr0Automaton,
			prods:        gram.productionSet,
			termCount:    len(terms),
			nonTermCount: len(nonTerms),
			symTab:       symTab,
			preferShift:  config.preferShift,
		}
		tab, err := b.build()
		if err != nil {
			return nil, nil, err
		}

		conflicts, err = b.exportConflicts()
		if err != nil {
			return nil, nil, err
		}

		if report != nil {
			report.States, err = b.genStateReports(tab)
			if err != nil {
				return nil, nil, err
			}
		}

		action := make([]int, len(tab.actionTable))
		for i, e := range tab.actionTable {
			action[i] = int(e)
		}
		goTo := make([]int, len(tab.goToTable))
		for i, e := range tab.goToTable {
			goTo[i] = int(e)
		}
		synSpec.Action = action
		synSpec.GoTo = goTo
		synSpec.StateCount = tab.stateCount
		synSpec.InitialState = tab.InitialState.Int()
	case spec.ClassLL1:
		b := &ll1TableBuilder{
			prods:        gram.productionSet,
			first:        first,
			follow:       follow,
			termCount:    len(terms),
			nonTermCount: len(nonTerms),
			symTab:       symTab,
		}
		tab, err := b.build()
		if err != nil {
			return nil, nil, err
		}

		conflicts, err = b.exportConflicts()
		if err != nil {
			return nil, nil, err
		}

		if report != nil {
			report.Predictions, report.PredictionConflicts = b.genPredictionReports(tab)
		}

		pred := make([]int, len(tab.entries))
		for i, e := range tab.entries {
			pred[i] = int(e)
		}
		synSpec.Prediction = pred
	default:
		return nil, nil, fmt.Errorf("unknown grammar class: %v", config.class)
	}

	unresolved := false
	for _, c := range conflicts {
		if config.diag != nil {
			if c.Resolved {
				config.diag.Warnf("%v", c)
			} else {
				config.diag.Errorf("%v", c)
			}
		}
		if !c.Resolved {
			unresolved = true
		}
	}
	if unresolved {
		return nil, report, &ConflictError{
			Conflicts: conflicts,
		}
	}

	allProds := gram.productionSet.getAllProductions()
	lhsSyms := make([]int, len(allProds))
	altSymCounts := make([]int, len(allProds))
	rhsSyms := make([][]int, len(allProds))
	var startProd productionNum
	for _, p := range allProds {
		lhsSyms[p.num] = p.lhs.Num().Int()
		altSymCounts[p.num] = p.rhsLen
		rhsSyms[p.num] = encodeRHS(p.rhs)
		if p.lhs == gram.augmentedStartSymbol {
			startProd = p.num
		}
	}
	synSpec.StartProduction = startProd.Int()
	synSpec.LHSSymbols = lhsSyms
	synSpec.AlternativeSymbolCounts = altSymCounts
	synSpec.RHSSymbols = rhsSyms

	tracer().Infof("compiled grammar '%v': class %v, %v productions, %v states", gram.name, config.class, len(allProds), synSpec.StateCount)

	return &spec.CompiledGrammar{
		Name: gram.name,
		Lexical: &spec.LexicalSpec{
			Maleeni:        lexSpec,
			KindToTerminal: kind2Term,
			TerminalToKind: term2Kind,
			Patterns:       patterns,
		},
		Syntactic: synSpec,
	}, report, nil
}

func writeCompileError(w io.Writer, cErr *mlcompiler.CompileError) {
	if cErr.Fragment {
		fmt.Fprintf(w, "fragment ")
	}
	fmt.Fprintf(w, "%v: %v", cErr.Kind, cErr.Cause)
	if cErr.Detail != "" {
		fmt.Fprintf(w, ": %v", cErr.Detail)
	}
}
