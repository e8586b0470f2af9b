package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chisel3d/chisel/pkg/geom"
	"github.com/chisel3d/chisel/pkg/kdtree"
)

// RunQuery builds the KD-tree over a mesh and runs one proximity query.
func RunQuery(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dataDir := fs.String("data", "", "directory input paths are relative to")
	at := fs.String("at", "0,0,0", "query point as x,y,z")
	k := fs.Int("k", 0, "report the k nearest vertices instead of the single nearest")
	radius := fs.Float64("radius", -1, "report all vertices within this radius")
	leaf := fs.Int("leaf", 1, "KD-tree bucket threshold")
	parallel := fs.Int("parallel", 0, "parallel build depth (0 = sequential)")
	if err := fs.Parse(args); err != nil {
		return ExitCommandError
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: expected exactly one input file")
		return ExitCommandError
	}

	q, err := parsePoint(*at)
	if err != nil {
		fmt.Fprintf(stderr, "Error: -at: %v\n", err)
		return ExitCommandError
	}

	m, err := loadMesh(resolveInput(*dataDir, fs.Arg(0)))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitDataError
	}

	tree, err := kdtree.BuildMeshCtx(context.Background(), m, kdtree.Params{LeafSize: *leaf, Parallel: *parallel})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitDataError
	}

	switch {
	case *radius >= 0:
		hits, err := tree.InRadius(q, *radius)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return ExitDataError
		}
		fmt.Fprintf(stdout, "%d vertices within %g of (%g %g %g)\n", len(hits), *radius, q.X, q.Y, q.Z)
		for _, idx := range hits {
			p, _ := m.VertexPosition(idx)
			fmt.Fprintf(stdout, "  %d (%g %g %g) at %g\n", idx, p.X, p.Y, p.Z, q.Distance(p))
		}
	case *k > 0:
		neighbors, err := tree.KNearest(q, *k)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return ExitDataError
		}
		for _, nb := range neighbors {
			p, _ := m.VertexPosition(nb.Index)
			fmt.Fprintf(stdout, "  %d (%g %g %g) at %g\n", nb.Index, p.X, p.Y, p.Z, nb.Distance)
		}
	default:
		idx, dist, err := tree.Nearest(q)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return ExitDataError
		}
		p, _ := m.VertexPosition(idx)
		fmt.Fprintf(stdout, "vertex %d (%g %g %g) at %g\n", idx, p.X, p.Y, p.Z, dist)
	}
	return ExitSuccess
}

// parsePoint parses "x,y,z" into a point.
func parsePoint(s string) (geom.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return geom.Vec3{}, fmt.Errorf("want x,y,z, got %q", s)
	}
	var c [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geom.Vec3{}, fmt.Errorf("coordinate %q", p)
		}
		c[i] = v
	}
	return geom.Vec3{X: c[0], Y: c[1], Z: c[2]}, nil
}
