// Package feature classifies mesh vertices (interior, boundary, sharp,
// corner) from local neighborhood information. Edge incidence comes from
// the mesh topology; neighborhoods come from a prebuilt KD-tree. The
// classifier writes tags back onto the mesh and mutates nothing else.
package feature

import (
	"errors"
	"fmt"
	"math"

	"github.com/chisel3d/chisel/pkg/kdtree"
	"github.com/chisel3d/chisel/pkg/mesh"
)

// ErrInvalidArgument reports an out-of-range classification parameter.
var ErrInvalidArgument = errors.New("invalid argument")

// Defaults chosen to match common sharp-feature extraction practice:
// 30 degrees separates chamfered from genuinely creased edges on typical
// scanned or generated meshes.
const (
	DefaultAngleThresholdDeg = 30.0
	DefaultKNeighbors        = 8
)

// Params configures classification. Zero-valued fields take the documented
// defaults; explicitly negative or nonsensical values are rejected.
type Params struct {
	// AngleThresholdDeg is the dihedral angle, in degrees, above which an
	// interior edge counts as sharp.
	AngleThresholdDeg float64

	// KNeighbors is the neighborhood size used for the curvature estimate.
	KNeighbors int

	// CurvatureThreshold optionally promotes high-curvature untagged
	// vertices to sharp. 0 disables the curvature pass.
	CurvatureThreshold float64
}

// DefaultParams returns the documented default configuration.
func DefaultParams() Params {
	return Params{
		AngleThresholdDeg: DefaultAngleThresholdDeg,
		KNeighbors:        DefaultKNeighbors,
	}
}

// normalized fills in defaults and validates ranges.
func (p Params) normalized() (Params, error) {
	if p.AngleThresholdDeg == 0 {
		p.AngleThresholdDeg = DefaultAngleThresholdDeg
	}
	if p.KNeighbors == 0 {
		p.KNeighbors = DefaultKNeighbors
	}
	if p.AngleThresholdDeg < 0 || p.AngleThresholdDeg > 180 {
		return p, fmt.Errorf("feature: angle threshold %v degrees: %w", p.AngleThresholdDeg, ErrInvalidArgument)
	}
	if p.KNeighbors < 0 {
		return p, fmt.Errorf("feature: k neighbors %d: %w", p.KNeighbors, ErrInvalidArgument)
	}
	if p.CurvatureThreshold < 0 || p.CurvatureThreshold > 1 {
		return p, fmt.Errorf("feature: curvature threshold %v: %w", p.CurvatureThreshold, ErrInvalidArgument)
	}
	return p, nil
}

// Summary reports how many vertices received each tag.
type Summary struct {
	Interior int
	Boundary int
	Sharp    int
	Corner   int
}

// Total returns the number of classified vertices.
func (s Summary) Total() int {
	return s.Interior + s.Boundary + s.Sharp + s.Corner
}

// ClassifyVertices tags every live vertex of m. Boundary edges are edges
// with exactly one incident face; sharp edges are two-face edges whose
// dihedral angle exceeds the threshold; a vertex where three or more
// sharp or boundary edges meet is a corner, boundary beats sharp, and
// everything else is interior.
//
// Tags are written as they are computed: if classification fails partway
// (e.g. a query against a stale tree), already written tags remain — there
// is no rollback, and callers observe the partial state.
func ClassifyVertices(m *mesh.Mesh, tree *kdtree.Tree, params Params) (Summary, error) {
	p, err := params.normalized()
	if err != nil {
		return Summary{}, err
	}

	angleRad := p.AngleThresholdDeg * math.Pi / 180

	// Count, per vertex, the feature edges ending there.
	boundaryEnds := make(map[mesh.VertexIndex]int)
	sharpEnds := make(map[mesh.VertexIndex]int)
	for e, faces := range m.EdgeFaces() {
		switch {
		case len(faces) == 1:
			boundaryEnds[e.A]++
			boundaryEnds[e.B]++
		case len(faces) == 2:
			if dihedralExceeds(m, faces[0], faces[1], angleRad) {
				sharpEnds[e.A]++
				sharpEnds[e.B]++
			}
		}
	}

	var sum Summary
	for _, v := range m.LiveVertices() {
		tag := mesh.TagInterior
		featureEdges := boundaryEnds[v] + sharpEnds[v]
		switch {
		case featureEdges >= 3:
			tag = mesh.TagCorner
		case boundaryEnds[v] > 0:
			tag = mesh.TagBoundary
		case sharpEnds[v] > 0:
			tag = mesh.TagSharp
		case p.CurvatureThreshold > 0:
			c, err := VertexCurvature(m, tree, v, p.KNeighbors)
			if err != nil {
				return sum, err
			}
			if c > p.CurvatureThreshold {
				tag = mesh.TagSharp
			}
		}
		m.SetTag(v, tag)
		switch tag {
		case mesh.TagInterior:
			sum.Interior++
		case mesh.TagBoundary:
			sum.Boundary++
		case mesh.TagSharp:
			sum.Sharp++
		case mesh.TagCorner:
			sum.Corner++
		}
	}
	return sum, nil
}

// FeatureEdges returns the boundary and sharp edges of m under the given
// threshold. Exporters draw these; classification recomputes them itself.
func FeatureEdges(m *mesh.Mesh, params Params) (boundary, sharp []mesh.Edge, err error) {
	p, err := params.normalized()
	if err != nil {
		return nil, nil, err
	}
	angleRad := p.AngleThresholdDeg * math.Pi / 180
	for e, faces := range m.EdgeFaces() {
		switch {
		case len(faces) == 1:
			boundary = append(boundary, e)
		case len(faces) == 2:
			if dihedralExceeds(m, faces[0], faces[1], angleRad) {
				sharp = append(sharp, e)
			}
		}
	}
	return boundary, sharp, nil
}

// dihedralExceeds reports whether the angle between the normals of two
// faces exceeds the threshold. Degenerate faces never count as sharp.
func dihedralExceeds(m *mesh.Mesh, f1, f2 mesh.FaceIndex, threshold float64) bool {
	n1, ok1 := m.FaceNormal(f1)
	n2, ok2 := m.FaceNormal(f2)
	if !ok1 || !ok2 {
		return false
	}
	return n1.AngleBetween(n2) > threshold
}
