package main

import (
	"fmt"
	"io"
	"os"

	"github.com/nihei9/tabula/driver"
	spec "github.com/nihei9/tabula/spec/grammar"
	"github.com/nihei9/tabula/spec/grammar/tabular"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var parseFlags = struct {
	source      *string
	table       *string
	transitions *bool
	pretty      *bool
	dot         *bool
	compress    *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:   "parse <compiled grammar path>",
		Short: "Parse a text stream",
		Example: `  cat src | tabula parse grammar.json
  cat src | tabula parse --dot grammar.json | dot -Tpng -o tree.png`,
		Args: cobra.ExactArgs(1),
		RunE: runParse,
	}
	parseFlags.source = cmd.Flags().StringP("source", "s", "", "source file path (default stdin)")
	parseFlags.table = cmd.Flags().String("table", "", "tabular (CSV) table path that replaces the table of the compiled grammar")
	parseFlags.transitions = cmd.Flags().Bool("transitions", false, "print the transitions the parser takes")
	parseFlags.pretty = cmd.Flags().Bool("pretty", false, "render the tree with pterm")
	parseFlags.dot = cmd.Flags().Bool("dot", false, "print the tree in the Graphviz DOT language")
	parseFlags.compress = cmd.Flags().Bool("compress", false, "parse with compressed tables")
	rootCmd.AddCommand(cmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	cgram, err := readCompiledGrammar(args[0])
	if err != nil {
		return fmt.Errorf("Cannot read a compiled grammar: %w", err)
	}

	if *parseFlags.table != "" {
		err := replaceTable(cgram, *parseFlags.table)
		if err != nil {
			return err
		}
	}

	src := os.Stdin
	if *parseFlags.source != "" {
		f, err := os.Open(*parseFlags.source)
		if err != nil {
			return fmt.Errorf("Cannot open the source file %s: %w", *parseFlags.source, err)
		}
		defer f.Close()
		src = f
	}

	p, tree, err := parse(cgram, src, parseOptions{
		transitions: *parseFlags.transitions,
		compress:    *parseFlags.compress,
	})
	if p != nil && *parseFlags.transitions {
		for _, t := range p.Transitions() {
			fmt.Fprintln(os.Stdout, t)
		}
	}
	if err != nil {
		return err
	}

	if *parseFlags.dot {
		return driver.WriteDOT(os.Stdout, tree)
	}
	if *parseFlags.pretty {
		renderTree(os.Stdout, tree)
		return nil
	}
	driver.PrintTree(os.Stdout, tree)

	return nil
}

func replaceTable(cgram *spec.CompiledGrammar, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("Cannot open the table file %s: %w", path, err)
	}
	defer f.Close()

	syn, err := tabular.Read(f, cgram.Syntactic)
	if err != nil {
		return fmt.Errorf("Cannot load the table %s: %w", path, err)
	}
	cgram.Syntactic = syn

	tracer().Infof("loaded a %v table from %v", syn.Class, path)

	return nil
}

type parseOptions struct {
	transitions bool
	compress    bool
}

// parse parses src and returns the tree. When the parser stops at a syntax error, it returns the
// parser's diagnostics as the error.
func parse(cgram *spec.CompiledGrammar, src io.Reader, popts parseOptions) (*driver.Parser, *driver.Node, error) {
	toks, err := driver.NewTokenStream(cgram, src)
	if err != nil {
		return nil, nil, err
	}

	var gram driver.Grammar = driver.NewGrammar(cgram)
	if popts.compress {
		gram, err = driver.NewCompressedGrammar(cgram)
		if err != nil {
			return nil, nil, err
		}
	}
	treeAct := driver.NewSyntaxTreeActionSet(gram)
	opts := []driver.ParserOption{
		driver.SemanticAction(treeAct),
	}
	if popts.transitions {
		opts = append(opts, driver.RecordTransitions())
	}

	p, err := driver.NewParser(gram, toks, opts...)
	if err != nil {
		return nil, nil, err
	}

	err = p.Parse()
	if err != nil {
		if p.Diagnostics().HasErrors() {
			return p, nil, fmt.Errorf("%v", p.Diagnostics())
		}
		return p, nil, err
	}

	return p, treeAct.Tree(), nil
}

// renderTree renders a tree with pterm and falls back to driver.PrintTree when rendering fails.
func renderTree(w io.Writer, tree *driver.Node) {
	root := pterm.NewTreeFromLeveledList(leveledNodes(tree, pterm.LeveledList{}, 0))
	s, err := pterm.DefaultTree.WithRoot(root).Srender()
	if err != nil {
		driver.PrintTree(w, tree)
		return
	}
	fmt.Fprint(w, s)
}

func leveledNodes(node *driver.Node, ll pterm.LeveledList, level int) pterm.LeveledList {
	text := node.KindName
	if node.Kind == driver.NodeKindTerminal {
		text = fmt.Sprintf("%v %#v", node.KindName, node.Text)
	}
	ll = append(ll, pterm.LeveledListItem{
		Level: level,
		Text:  text,
	})
	for _, c := range node.Children {
		ll = leveledNodes(c, ll, level+1)
	}
	return ll
}
