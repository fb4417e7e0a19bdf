package main

import (
	"fmt"
	"os"

	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/spf13/cobra"
)

// traceKeys lists the tracers of all packages; --trace sets their level.
var traceKeys = []string{
	"tabula.grammar",
	"tabula.parser",
	"tabula.tabular",
	"tabula.driver",
	"tabula.tester",
	"tabula.compressor",
}

var cliTracer tracing.Trace

func tracer() tracing.Trace {
	if cliTracer == nil {
		cliTracer = gologadapter.New()
		cliTracer.SetTraceLevel(tracing.LevelError)
	}
	return cliTracer
}

var rootFlags = struct {
	trace *string
}{}

var rootCmd = &cobra.Command{
	Use:   "tabula",
	Short: "Generate SLR(1) and LL(1) parsing tables and parse with them",
	Long: `tabula provides the following features:
- Compiles a grammar into an SLR(1) parsing table or an LL(1) prediction table.
- Exports a compiled table in a tabular (CSV) format and loads it back.
- Parses a text stream with a compiled table and prints the syntax tree.
- Runs test cases that pair a source text with its expected syntax tree.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := tracing.TraceLevelFromString(*rootFlags.trace)
		for _, key := range traceKeys {
			tracing.Select(key).SetTraceLevel(level)
		}
		tracer().SetTraceLevel(level)
		tracer().Debugf("trace level is %v", *rootFlags.trace)
	},
}

func init() {
	rootFlags.trace = rootCmd.PersistentFlags().String("trace", "Error", "trace level [Debug|Info|Error]")
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return err
	}
	return nil
}
