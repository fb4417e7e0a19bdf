package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	verr "github.com/nihei9/tabula/error"
	"github.com/nihei9/tabula/grammar"
	spec "github.com/nihei9/tabula/spec/grammar"
	"github.com/nihei9/tabula/spec/grammar/parser"
	"github.com/spf13/cobra"
)

var compileFlags = struct {
	output      *string
	class       *string
	preferShift *bool
	report      *string
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "compile",
		Short:   "Compile grammar you defined into a parsing table",
		Example: `  tabula compile grammar.tabula -o grammar.json --report grammar-report.json`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runCompile,
	}
	compileFlags.output = cmd.Flags().StringP("output", "o", "", "output file path (default stdout)")
	compileFlags.class = cmd.Flags().String("class", spec.ClassSLR.String(), "table class [slr|ll1]")
	compileFlags.preferShift = cmd.Flags().Bool("prefer-shift", false, "resolve shift/reduce conflicts in favor of shift")
	compileFlags.report = cmd.Flags().String("report", "", "report file path; the report is written even when compilation fails")
	rootCmd.AddCommand(cmd)
}

func runCompile(cmd *cobra.Command, args []string) (retErr error) {
	var tmpDirPath string
	defer func() {
		if tmpDirPath == "" {
			return
		}
		os.RemoveAll(tmpDirPath)
	}()

	var grmPath string
	if len(args) > 0 {
		grmPath = args[0]
	}
	defer func() {
		if retErr != nil {
			var specErrs verr.SpecErrors
			if errors.As(retErr, &specErrs) {
				for _, err := range specErrs {
					err.FilePath = grmPath
					if len(args) > 0 {
						err.SourceName = grmPath
					} else {
						err.SourceName = "stdin"
					}
				}
			}
		}
	}()

	class, err := parseClass(*compileFlags.class)
	if err != nil {
		return err
	}

	if grmPath == "" {
		tmpDirPath, err = os.MkdirTemp("", "tabula-compile-*")
		if err != nil {
			return err
		}

		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}

		grmPath = filepath.Join(tmpDirPath, "stdin.tabula")
		err = os.WriteFile(grmPath, src, 0600)
		if err != nil {
			return err
		}
	}

	gram, err := readGrammar(grmPath)
	if err != nil {
		return err
	}

	diag := verr.NewDiagnostics()
	opts := []grammar.CompileOption{
		grammar.Class(class),
		grammar.ReportTo(diag),
	}
	if *compileFlags.preferShift {
		opts = append(opts, grammar.PreferShift())
	}
	if *compileFlags.report != "" {
		opts = append(opts, grammar.EnableReporting())
	}

	cgram, report, compErr := grammar.Compile(gram, opts...)
	if diag.Len() > 0 {
		fmt.Fprintln(os.Stderr, diag)
	}
	if report != nil {
		err := writeJSON(report, *compileFlags.report)
		if err != nil {
			return fmt.Errorf("Cannot write a report: %w", err)
		}
	}
	if compErr != nil {
		var conflictErr *grammar.ConflictError
		if errors.As(compErr, &conflictErr) {
			return fmt.Errorf("%v conflicts; the table was not generated", len(conflictErr.Conflicts))
		}
		return compErr
	}

	err = writeJSON(cgram, *compileFlags.output)
	if err != nil {
		return fmt.Errorf("Cannot write an output file: %w", err)
	}

	tracer().Infof("compiled grammar '%v' into a %v table", cgram.Name, cgram.Syntactic.Class)

	return nil
}

func parseClass(s string) (spec.Class, error) {
	switch spec.Class(s) {
	case spec.ClassSLR, spec.ClassLL1:
		return spec.Class(s), nil
	}
	return "", fmt.Errorf("unknown table class: %v; it must be %v or %v", s, spec.ClassSLR, spec.ClassLL1)
}

func readGrammar(path string) (grm *grammar.Grammar, retErr error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Cannot open the grammar file %s: %w", path, err)
	}
	defer f.Close()

	ast, err := parser.Parse(f)
	if err != nil {
		return nil, err
	}

	b := grammar.GrammarBuilder{
		AST: ast,
	}
	return b.Build()
}

// writeJSON writes v to a file at path, or to the stdout when path is empty.
func writeJSON(v interface{}, path string) error {
	var w io.Writer
	if path != "" {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%v\n", string(b))

	return nil
}

func readCompiledGrammar(path string) (*spec.CompiledGrammar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cgram := &spec.CompiledGrammar{}
	err = json.Unmarshal(data, cgram)
	if err != nil {
		return nil, err
	}
	return cgram, nil
}
