// chisel is a CLI over the mesh processing core: inspect meshes, run
// spatial queries, classify features, convert between formats, and drive
// the whole pipeline from scripts.
package main

import (
	"fmt"
	"os"

	"github.com/chisel3d/chisel/cmd/chisel/commands"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(commands.ExitCommandError)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var exitCode int
	switch cmd {
	case "info":
		exitCode = commands.RunInfo(args, os.Stdout, os.Stderr)
	case "query":
		exitCode = commands.RunQuery(args, os.Stdout, os.Stderr)
	case "classify":
		exitCode = commands.RunClassify(args, os.Stdout, os.Stderr)
	case "convert":
		exitCode = commands.RunConvert(args, os.Stdout, os.Stderr)
	case "script":
		exitCode = commands.RunScript(args, os.Stdout, os.Stderr)
	case "help", "-h", "--help":
		printUsage()
		exitCode = commands.ExitSuccess
	case "version", "-v", "--version":
		fmt.Println("chisel version 0.2.0")
		exitCode = commands.ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		exitCode = commands.ExitCommandError
	}

	os.Exit(exitCode)
}

func printUsage() {
	fmt.Println(`chisel - mesh spatial index and feature toolkit

Usage:
  chisel <command> [options] [files...]

Commands:
  info       Show mesh statistics and structural validation findings
  query      Run nearest / k-nearest / radius queries against a mesh
  classify   Tag vertices (interior, boundary, sharp, corner)
  convert    Convert between OBJ and 3MF, optionally exporting feature edges
  script     Evaluate a pipeline script
  version    Print version

Run 'chisel <command> -h' for command options.`)
}
