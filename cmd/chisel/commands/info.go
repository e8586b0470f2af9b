package commands

import (
	"flag"
	"fmt"
	"io"

	"github.com/chisel3d/chisel/pkg/faceindex"
	"github.com/chisel3d/chisel/pkg/mesh"
)

// RunInfo prints mesh statistics and structural validation findings.
func RunInfo(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dataDir := fs.String("data", "", "directory input paths are relative to")
	validate := fs.Bool("validate", true, "run structural validation")
	if err := fs.Parse(args); err != nil {
		return ExitCommandError
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: expected exactly one input file")
		return ExitCommandError
	}

	path := resolveInput(*dataDir, fs.Arg(0))
	m, err := loadMesh(path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitDataError
	}

	b := m.Bounds()
	fmt.Fprintf(stdout, "%s\n", path)
	fmt.Fprintf(stdout, "  vertices: %d\n", m.VertexCount())
	fmt.Fprintf(stdout, "  faces:    %d\n", m.FaceCount())
	fmt.Fprintf(stdout, "  bounds:   (%g %g %g) to (%g %g %g)\n",
		b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)

	boundaryEdges := 0
	for _, faces := range m.EdgeFaces() {
		if len(faces) == 1 {
			boundaryEdges++
		}
	}
	fmt.Fprintf(stdout, "  boundary edges: %d\n", boundaryEdges)

	if ix, err := faceindex.Build(m); err == nil {
		fmt.Fprintf(stdout, "  face index: %d faces\n", ix.Len())
	}

	if *validate {
		findings := mesh.Validate(m)
		if len(findings) == 0 {
			fmt.Fprintln(stdout, "  validation: ok")
		} else {
			for _, f := range findings {
				fmt.Fprintf(stdout, "  validation: %v\n", f)
			}
		}
	}
	return ExitSuccess
}
