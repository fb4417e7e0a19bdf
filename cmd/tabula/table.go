package main

import (
	"fmt"
	"io"
	"os"

	"github.com/nihei9/tabula/spec/grammar/tabular"
	"github.com/spf13/cobra"
)

var tableFlags = struct {
	output *string
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "table <compiled grammar path>",
		Short:   "Export a parsing table in the tabular (CSV) format",
		Example: `  tabula table grammar.json -o grammar.csv`,
		Args:    cobra.ExactArgs(1),
		RunE:    runTable,
	}
	tableFlags.output = cmd.Flags().StringP("output", "o", "", "output file path (default stdout)")
	rootCmd.AddCommand(cmd)
}

func runTable(cmd *cobra.Command, args []string) error {
	cgram, err := readCompiledGrammar(args[0])
	if err != nil {
		return fmt.Errorf("Cannot read a compiled grammar: %w", err)
	}

	var w io.Writer = os.Stdout
	if *tableFlags.output != "" {
		f, err := os.OpenFile(*tableFlags.output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	return tabular.Write(w, cgram.Syntactic)
}
