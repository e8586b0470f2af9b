package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chisel3d/chisel/pkg/feature"
	"github.com/chisel3d/chisel/pkg/geom"
	"github.com/chisel3d/chisel/pkg/kdtree"
	"github.com/chisel3d/chisel/pkg/meshio"
	"github.com/chisel3d/chisel/pkg/primitive"
)

// state is the mutable pipeline state a script builds up. One state per
// evaluation; builtins close over it.
type state struct {
	result *Result
}

func (st *state) printf(format string, args ...any) {
	st.result.Output = append(st.result.Output, fmt.Sprintf(format, args...))
}

func (st *state) requireMesh(op string) error {
	if st.result.Mesh == nil {
		return fmt.Errorf("%s: no mesh loaded; call load, sphere, box or cylinder first", op)
	}
	return nil
}

func (st *state) requireTree(op string) error {
	if st.result.Tree == nil {
		return fmt.Errorf("%s: no index built; call build-index first", op)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks whether a Sexp is a preprocessed keyword string and returns
// its name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds a parsed mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		if name, ok := isKW(args[i]); ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// floatKW extracts an optional keyword number, keeping def when absent.
func (a kwArgs) floatKW(name string, def float64) (float64, error) {
	v, ok := a.kw[name]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}

func (a kwArgs) intKW(name string, def int) (int, error) {
	v, ok := a.kw[name]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return int(f), nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toPoint reads three consecutive positional numbers as a point.
func toPoint(args []zygo.Sexp) (geom.Vec3, error) {
	if len(args) < 3 {
		return geom.Vec3{}, fmt.Errorf("expected x y z, got %d values", len(args))
	}
	var c [3]float64
	for i := 0; i < 3; i++ {
		f, err := toFloat64(args[i])
		if err != nil {
			return geom.Vec3{}, err
		}
		c[i] = f
	}
	return geom.Vec3{X: c[0], Y: c[1], Z: c[2]}, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the mesh-pipeline builtins into a zygomys
// environment. Source must have gone through preprocessSource so keyword
// tokens arrive as recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, st *state) {

	// -----------------------------------------------------------------------
	// (load "bunny.obj")  — OBJ or 3MF by extension
	// -----------------------------------------------------------------------
	env.AddFunction("load", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("load: missing path")
		}
		path, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("load: %w", err)
		}
		var m = st.result.Mesh
		switch strings.ToLower(filepath.Ext(path)) {
		case ".obj":
			m, err = meshio.ReadOBJFile(path)
		case ".3mf":
			m, err = meshio.Read3MFFile(path)
		default:
			return zygo.SexpNull, fmt.Errorf("load: unsupported extension %q", filepath.Ext(path))
		}
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("load: %w", err)
		}
		st.result.Mesh = m
		st.result.Tree = nil // indexes never outlive a mesh swap
		st.printf("loaded %s: %d vertices, %d faces", path, m.VertexCount(), m.FaceCount())
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (sphere :radius 10 :cells 32) / (box :x 10 :y 20 :z 5) / (cylinder ...)
	// -----------------------------------------------------------------------
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		radius, err := pa.floatKW("radius", 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		cells, err := pa.intKW("cells", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		m, err := primitive.Sphere(radius, primitive.Options{Cells: cells})
		if err != nil {
			return zygo.SexpNull, err
		}
		st.result.Mesh = m
		st.result.Tree = nil
		st.printf("sphere r=%g: %d vertices, %d faces", radius, m.VertexCount(), m.FaceCount())
		return zygo.SexpNull, nil
	})

	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var dims [3]float64
		for i, axis := range []string{"x", "y", "z"} {
			f, err := pa.floatKW(axis, 1)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box: %w", err)
			}
			dims[i] = f
		}
		cells, err := pa.intKW("cells", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		m, err := primitive.Box(dims[0], dims[1], dims[2], primitive.Options{Cells: cells})
		if err != nil {
			return zygo.SexpNull, err
		}
		st.result.Mesh = m
		st.result.Tree = nil
		st.printf("box %gx%gx%g: %d vertices, %d faces", dims[0], dims[1], dims[2], m.VertexCount(), m.FaceCount())
		return zygo.SexpNull, nil
	})

	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		height, err := pa.floatKW("height", 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		radius, err := pa.floatKW("radius", 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		cells, err := pa.intKW("cells", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		m, err := primitive.Cylinder(height, radius, primitive.Options{Cells: cells})
		if err != nil {
			return zygo.SexpNull, err
		}
		st.result.Mesh = m
		st.result.Tree = nil
		st.printf("cylinder h=%g r=%g: %d vertices, %d faces", height, radius, m.VertexCount(), m.FaceCount())
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (build-index :leaf 1 :parallel 2)
	// -----------------------------------------------------------------------
	env.AddFunction("build_index", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := st.requireMesh("build-index"); err != nil {
			return zygo.SexpNull, err
		}
		pa := parseArgs(args)
		p := kdtree.DefaultParams()
		var err error
		if p.LeafSize, err = pa.intKW("leaf", p.LeafSize); err != nil {
			return zygo.SexpNull, fmt.Errorf("build-index: %w", err)
		}
		if p.Parallel, err = pa.intKW("parallel", p.Parallel); err != nil {
			return zygo.SexpNull, fmt.Errorf("build-index: %w", err)
		}
		tree, err := kdtree.BuildMeshCtx(context.Background(), st.result.Mesh, p)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("build-index: %w", err)
		}
		st.result.Tree = tree
		st.printf("index built over %d points", tree.Len())
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (nearest x y z)
	// -----------------------------------------------------------------------
	env.AddFunction("nearest", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := st.requireTree("nearest"); err != nil {
			return zygo.SexpNull, err
		}
		q, err := toPoint(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("nearest: %w", err)
		}
		idx, dist, err := st.result.Tree.Nearest(q)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("nearest: %w", err)
		}
		st.printf("nearest (%g %g %g) -> vertex %d at %g", q.X, q.Y, q.Z, idx, dist)
		return &zygo.SexpInt{Val: int64(idx)}, nil
	})

	// -----------------------------------------------------------------------
	// (k-nearest k x y z)
	// -----------------------------------------------------------------------
	env.AddFunction("k_nearest", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := st.requireTree("k-nearest"); err != nil {
			return zygo.SexpNull, err
		}
		if len(args) < 4 {
			return zygo.SexpNull, fmt.Errorf("k-nearest: expected k x y z")
		}
		kf, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("k-nearest: %w", err)
		}
		q, err := toPoint(args[1:])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("k-nearest: %w", err)
		}
		neighbors, err := st.result.Tree.KNearest(q, int(kf))
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("k-nearest: %w", err)
		}
		for _, nb := range neighbors {
			st.printf("k-nearest (%g %g %g) -> vertex %d at %g", q.X, q.Y, q.Z, nb.Index, nb.Distance)
		}
		return &zygo.SexpInt{Val: int64(len(neighbors))}, nil
	})

	// -----------------------------------------------------------------------
	// (in-radius r x y z)
	// -----------------------------------------------------------------------
	env.AddFunction("in_radius", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := st.requireTree("in-radius"); err != nil {
			return zygo.SexpNull, err
		}
		if len(args) < 4 {
			return zygo.SexpNull, fmt.Errorf("in-radius: expected r x y z")
		}
		r, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("in-radius: %w", err)
		}
		q, err := toPoint(args[1:])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("in-radius: %w", err)
		}
		hits, err := st.result.Tree.InRadius(q, r)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("in-radius: %w", err)
		}
		st.printf("in-radius %g of (%g %g %g): %d vertices", r, q.X, q.Y, q.Z, len(hits))
		return &zygo.SexpInt{Val: int64(len(hits))}, nil
	})

	// -----------------------------------------------------------------------
	// (classify :angle 30 :k 8 :curvature 0.05)
	// -----------------------------------------------------------------------
	env.AddFunction("classify", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := st.requireMesh("classify"); err != nil {
			return zygo.SexpNull, err
		}
		if err := st.requireTree("classify"); err != nil {
			return zygo.SexpNull, err
		}
		pa := parseArgs(args)
		p := feature.DefaultParams()
		var err error
		if p.AngleThresholdDeg, err = pa.floatKW("angle", p.AngleThresholdDeg); err != nil {
			return zygo.SexpNull, fmt.Errorf("classify: %w", err)
		}
		if p.KNeighbors, err = pa.intKW("k", p.KNeighbors); err != nil {
			return zygo.SexpNull, fmt.Errorf("classify: %w", err)
		}
		if p.CurvatureThreshold, err = pa.floatKW("curvature", 0); err != nil {
			return zygo.SexpNull, fmt.Errorf("classify: %w", err)
		}
		sum, err := feature.ClassifyVertices(st.result.Mesh, st.result.Tree, p)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("classify: %w", err)
		}
		st.printf("classified %d vertices: %d interior, %d boundary, %d sharp, %d corner",
			sum.Total(), sum.Interior, sum.Boundary, sum.Sharp, sum.Corner)
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (save "out.obj") — OBJ or 3MF by extension
	// -----------------------------------------------------------------------
	env.AddFunction("save", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := st.requireMesh("save"); err != nil {
			return zygo.SexpNull, err
		}
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("save: missing path")
		}
		path, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("save: %w", err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".obj":
			err = meshio.WriteOBJFile(path, st.result.Mesh)
		case ".3mf":
			err = meshio.Write3MFFile(path, st.result.Mesh)
		default:
			return zygo.SexpNull, fmt.Errorf("save: unsupported extension %q", filepath.Ext(path))
		}
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("save: %w", err)
		}
		st.printf("saved %s", path)
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (save-edges "edges.dxf" :angle 30)
	// -----------------------------------------------------------------------
	env.AddFunction("save_edges", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := st.requireMesh("save-edges"); err != nil {
			return zygo.SexpNull, err
		}
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("save-edges: missing path")
		}
		path, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("save-edges: %w", err)
		}
		p := feature.DefaultParams()
		if p.AngleThresholdDeg, err = pa.floatKW("angle", p.AngleThresholdDeg); err != nil {
			return zygo.SexpNull, fmt.Errorf("save-edges: %w", err)
		}
		boundary, sharp, err := feature.FeatureEdges(st.result.Mesh, p)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("save-edges: %w", err)
		}
		if err := meshio.WriteFeatureEdgesDXF(path, st.result.Mesh, boundary, sharp); err != nil {
			return zygo.SexpNull, fmt.Errorf("save-edges: %w", err)
		}
		st.printf("saved %d boundary and %d sharp edges to %s", len(boundary), len(sharp), path)
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (stats)
	// -----------------------------------------------------------------------
	env.AddFunction("stats", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := st.requireMesh("stats"); err != nil {
			return zygo.SexpNull, err
		}
		m := st.result.Mesh
		b := m.Bounds()
		st.printf("mesh: %d vertices, %d faces", m.VertexCount(), m.FaceCount())
		st.printf("bounds: (%g %g %g) to (%g %g %g)",
			b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
		if st.result.Tree != nil {
			st.printf("index: %d points%s", st.result.Tree.Len(),
				staleNote(st.result.Tree.Stale(m)))
		}
		return zygo.SexpNull, nil
	})
}

func staleNote(stale bool) string {
	if stale {
		return " (stale; mesh mutated since build)"
	}
	return ""
}
