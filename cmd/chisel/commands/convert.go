package commands

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chisel3d/chisel/pkg/feature"
	"github.com/chisel3d/chisel/pkg/meshio"
)

// RunConvert converts a mesh between formats. A .dxf output exports the
// mesh's feature edges instead of its faces.
func RunConvert(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dataDir := fs.String("data", "", "directory input paths are relative to")
	output := fs.String("o", "", "output file (.obj, .3mf or .dxf)")
	angle := fs.Float64("angle", feature.DefaultAngleThresholdDeg, "sharp-edge threshold for .dxf edge export")
	if err := fs.Parse(args); err != nil {
		return ExitCommandError
	}
	if fs.NArg() != 1 || *output == "" {
		fmt.Fprintln(stderr, "Error: expected one input file and -o output")
		return ExitCommandError
	}

	in := resolveInput(*dataDir, fs.Arg(0))
	m, err := loadMesh(in)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitDataError
	}

	if strings.ToLower(filepath.Ext(*output)) == ".dxf" {
		boundary, sharp, err := feature.FeatureEdges(m, feature.Params{AngleThresholdDeg: *angle})
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return ExitDataError
		}
		if err := meshio.WriteFeatureEdgesDXF(*output, m, boundary, sharp); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return ExitDataError
		}
		fmt.Fprintf(stdout, "wrote %d boundary and %d sharp edges to %s\n", len(boundary), len(sharp), *output)
		return ExitSuccess
	}

	if err := saveMesh(*output, m); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitDataError
	}
	fmt.Fprintf(stdout, "converted %s -> %s\n", in, *output)
	return ExitSuccess
}
