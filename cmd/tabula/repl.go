package main

import (
	"fmt"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var replFlags = struct {
	table    *string
	compress *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "repl <compiled grammar path>",
		Short:   "Parse one line at a time interactively",
		Example: `  tabula repl grammar.json`,
		Args:    cobra.ExactArgs(1),
		RunE:    runREPL,
	}
	replFlags.table = cmd.Flags().String("table", "", "tabular (CSV) table path that replaces the table of the compiled grammar")
	replFlags.compress = cmd.Flags().Bool("compress", false, "parse with compressed tables")
	rootCmd.AddCommand(cmd)
}

func runREPL(cmd *cobra.Command, args []string) error {
	cgram, err := readCompiledGrammar(args[0])
	if err != nil {
		return fmt.Errorf("Cannot read a compiled grammar: %w", err)
	}
	if *replFlags.table != "" {
		err := replaceTable(cgram, *replFlags.table)
		if err != nil {
			return err
		}
	}

	rl, err := readline.New(fmt.Sprintf("%v> ", cgram.Name))
	if err != nil {
		return err
	}
	defer rl.Close()

	pterm.Info.Println(fmt.Sprintf("Parsing with the %v table of '%v'. Quit with <ctrl>D.", cgram.Syntactic.Class, cgram.Name))
	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or readline.ErrInterrupt
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		_, tree, err := parse(cgram, strings.NewReader(line), parseOptions{
			compress: *replFlags.compress,
		})
		if err != nil {
			pterm.Error.Println(err.Error())
			continue
		}
		renderTree(rl.Stdout(), tree)
	}

	return nil
}
