// Package primitive generates meshes from SDF solids. It exists for
// fixtures, examples and CLI demos: a sphere or box generated here flows
// through the same index/classify/export pipeline as an imported mesh.
// Solids are modeled with github.com/deadsy/sdfx and tessellated by
// marching cubes; the resulting triangle soup is welded into an indexed
// mesh.
package primitive

import (
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chisel3d/chisel/pkg/geom"
	"github.com/chisel3d/chisel/pkg/mesh"
)

// defaultMeshCells controls marching cubes resolution when Options.Cells
// is zero. Coarser than production CAD output on purpose: generated meshes
// feed indexes and classifiers, not renderers.
const defaultMeshCells = 64

// Options configures tessellation.
type Options struct {
	// Cells is the marching cubes grid resolution along the longest axis.
	Cells int

	// WeldTol is the vertex welding tolerance. 0 derives it from the
	// solid's bounding box (1e-6 of the longest side).
	WeldTol float64
}

func (o Options) withDefaults(s sdf.SDF3) Options {
	if o.Cells == 0 {
		o.Cells = defaultMeshCells
	}
	if o.WeldTol == 0 {
		bb := s.BoundingBox()
		size := bb.Max.Sub(bb.Min)
		longest := size.X
		if size.Y > longest {
			longest = size.Y
		}
		if size.Z > longest {
			longest = size.Z
		}
		o.WeldTol = longest * 1e-6
	}
	return o
}

// Sphere returns a tessellated sphere of the given radius centered at the
// origin.
func Sphere(radius float64, opt Options) (*mesh.Mesh, error) {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, fmt.Errorf("primitive: sphere: %w", err)
	}
	return FromSDF(s, opt)
}

// Box returns a tessellated axis-aligned box with the given side lengths,
// centered at the origin.
func Box(x, y, z float64, opt Options) (*mesh.Mesh, error) {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		return nil, fmt.Errorf("primitive: box: %w", err)
	}
	return FromSDF(s, opt)
}

// Cylinder returns a tessellated cylinder with the given height and
// radius, centered at the origin with its axis along Z.
func Cylinder(height, radius float64, opt Options) (*mesh.Mesh, error) {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("primitive: cylinder: %w", err)
	}
	return FromSDF(s, opt)
}

// FromSDF tessellates an arbitrary SDF3 solid into an indexed mesh.
func FromSDF(s sdf.SDF3, opt Options) (*mesh.Mesh, error) {
	opt = opt.withDefaults(s)

	renderer := render.NewMarchingCubesUniform(opt.Cells)
	triangles := render.ToTriangles(s, renderer)
	if len(triangles) == 0 {
		return nil, fmt.Errorf("primitive: tessellation produced no triangles")
	}

	m := mesh.New()
	w := newWelder(opt.WeldTol)
	for _, tri := range triangles {
		var idx [3]mesh.VertexIndex
		for j := 0; j < 3; j++ {
			v := tri[j]
			idx[j] = w.vertex(m, geom.Vec3{X: v.X, Y: v.Y, Z: v.Z})
		}
		// Marching cubes emits the occasional sliver that welds down to
		// fewer than three distinct vertices; drop those.
		if idx[0] == idx[1] || idx[1] == idx[2] || idx[0] == idx[2] {
			continue
		}
		if _, err := m.AddFace(idx[0], idx[1], idx[2]); err != nil {
			return nil, fmt.Errorf("primitive: %w", err)
		}
	}
	m.ComputeVertexNormals()
	return m, nil
}

// welder deduplicates nearby vertices by quantizing coordinates to the
// tolerance grid.
type welder struct {
	tol  float64
	seen map[[3]int64]mesh.VertexIndex
}

func newWelder(tol float64) *welder {
	return &welder{tol: tol, seen: make(map[[3]int64]mesh.VertexIndex)}
}

func (w *welder) vertex(m *mesh.Mesh, p geom.Vec3) mesh.VertexIndex {
	key := [3]int64{quantize(p.X, w.tol), quantize(p.Y, w.tol), quantize(p.Z, w.tol)}
	if idx, ok := w.seen[key]; ok {
		return idx
	}
	idx := m.AddVertex(p)
	w.seen[key] = idx
	return idx
}

func quantize(v, tol float64) int64 {
	if v < 0 {
		return int64(v/tol - 0.5)
	}
	return int64(v/tol + 0.5)
}
