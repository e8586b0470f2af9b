package commands

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/chisel3d/chisel/pkg/engine"
)

// RunScript evaluates a pipeline script file (or stdin with "-").
func RunScript(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("script", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return ExitCommandError
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: expected exactly one script file (or - for stdin)")
		return ExitCommandError
	}

	var source []byte
	var err error
	if fs.Arg(0) == "-" {
		source, err = io.ReadAll(os.Stdin)
	} else {
		source, err = os.ReadFile(fs.Arg(0))
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitCommandError
	}

	result, evalErrs, err := engine.New().Evaluate(string(source))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitDataError
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			fmt.Fprintf(stderr, "Error: %v\n", e)
		}
		return ExitDataError
	}

	for _, line := range result.Output {
		fmt.Fprintln(stdout, line)
	}
	return ExitSuccess
}
