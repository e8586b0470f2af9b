package commands

import (
	"flag"
	"fmt"
	"io"

	"github.com/chisel3d/chisel/pkg/feature"
	"github.com/chisel3d/chisel/pkg/kdtree"
)

// RunClassify tags mesh vertices and optionally writes the tagged mesh out.
func RunClassify(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dataDir := fs.String("data", "", "directory input paths are relative to")
	paramsPath := fs.String("params", "", "YAML feature-parameter file")
	angle := fs.Float64("angle", 0, "sharp-edge dihedral threshold in degrees (overrides params file)")
	output := fs.String("o", "", "write the tagged mesh to this file")
	if err := fs.Parse(args); err != nil {
		return ExitCommandError
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: expected exactly one input file")
		return ExitCommandError
	}

	params, err := loadParams(*paramsPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitCommandError
	}
	if *angle != 0 {
		params.AngleThresholdDeg = *angle
	}

	m, err := loadMesh(resolveInput(*dataDir, fs.Arg(0)))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitDataError
	}

	tree, err := kdtree.BuildMesh(m)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitDataError
	}

	sum, err := feature.ClassifyVertices(m, tree, params)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitDataError
	}

	fmt.Fprintf(stdout, "classified %d vertices\n", sum.Total())
	fmt.Fprintf(stdout, "  interior: %d\n", sum.Interior)
	fmt.Fprintf(stdout, "  boundary: %d\n", sum.Boundary)
	fmt.Fprintf(stdout, "  sharp:    %d\n", sum.Sharp)
	fmt.Fprintf(stdout, "  corner:   %d\n", sum.Corner)

	if *output != "" {
		if err := saveMesh(*output, m); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return ExitDataError
		}
		fmt.Fprintf(stdout, "wrote %s\n", *output)
	}
	return ExitSuccess
}
