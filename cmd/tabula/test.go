package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/nihei9/tabula/grammar"
	spec "github.com/nihei9/tabula/spec/grammar"
	"github.com/nihei9/tabula/tester"
	"github.com/spf13/cobra"
)

var testFlags = struct {
	class *string
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "test <grammar file path> <test file path>|<test directory path>",
		Short:   "Test a grammar",
		Example: `  tabula test grammar.tabula test`,
		Args:    cobra.ExactArgs(2),
		RunE:    runTest,
	}
	testFlags.class = cmd.Flags().String("class", spec.ClassSLR.String(), "table class [slr|ll1]")
	rootCmd.AddCommand(cmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	class, err := parseClass(*testFlags.class)
	if err != nil {
		return err
	}
	g, err := readGrammar(args[0])
	if err != nil {
		return fmt.Errorf("Cannot read a grammar: %w", err)
	}
	cg, _, err := grammar.Compile(g, grammar.Class(class))
	if err != nil {
		return fmt.Errorf("Cannot compile the grammar: %w", err)
	}

	cs := tester.ListTestCases(args[1])
	errOccurred := false
	for _, c := range cs {
		if c.Error != nil {
			fmt.Fprintf(os.Stderr, "Failed to read a test case or a directory: %v\n%v\n", c.FilePath, c.Error)
			errOccurred = true
		}
	}
	if errOccurred {
		return errors.New("Cannot run test")
	}

	t := &tester.Tester{
		Grammar: cg,
		Cases:   cs,
	}
	testFailed := false
	for _, r := range t.Run() {
		fmt.Fprintln(os.Stdout, r)
		if r.Error != nil {
			testFailed = true
		}
	}
	if testFailed {
		return errors.New("Test failed")
	}
	return nil
}
