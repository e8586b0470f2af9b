package feature

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/chisel3d/chisel/pkg/kdtree"
	"github.com/chisel3d/chisel/pkg/mesh"
)

// VertexCurvature estimates local surface variation at vertex v as the
// ratio of the smallest eigenvalue of the k-neighborhood covariance matrix
// to the sum of all three. Flat neighborhoods give values near 0; a value
// near the 1/3 maximum means the neighborhood is fully isotropic. Fewer
// than three neighbors yield 0.
func VertexCurvature(m *mesh.Mesh, tree *kdtree.Tree, v mesh.VertexIndex, k int) (float64, error) {
	if k <= 0 {
		return 0, fmt.Errorf("feature: curvature: k=%d: %w", k, ErrInvalidArgument)
	}
	pos, ok := m.VertexPosition(v)
	if !ok {
		return 0, fmt.Errorf("feature: curvature: vertex %d: %w", v, mesh.ErrNotFound)
	}

	neighbors, err := tree.KNearest(pos, k)
	if err != nil {
		return 0, fmt.Errorf("feature: curvature: %w", err)
	}
	if len(neighbors) < 3 {
		return 0, nil
	}

	// Centroid of the neighborhood.
	var cx, cy, cz float64
	pts := make([][3]float64, 0, len(neighbors))
	for _, nb := range neighbors {
		p, ok := m.VertexPosition(nb.Index)
		if !ok {
			continue
		}
		pts = append(pts, [3]float64{p.X, p.Y, p.Z})
		cx += p.X
		cy += p.Y
		cz += p.Z
	}
	if len(pts) < 3 {
		return 0, nil
	}
	n := float64(len(pts))
	cx /= n
	cy /= n
	cz /= n

	// Covariance of the centered neighborhood.
	var cov [6]float64 // xx, xy, xz, yy, yz, zz
	for _, p := range pts {
		dx, dy, dz := p[0]-cx, p[1]-cy, p[2]-cz
		cov[0] += dx * dx
		cov[1] += dx * dy
		cov[2] += dx * dz
		cov[3] += dy * dy
		cov[4] += dy * dz
		cov[5] += dz * dz
	}
	for i := range cov {
		cov[i] /= n
	}

	sym := mat.NewSymDense(3, []float64{
		cov[0], cov[1], cov[2],
		cov[1], cov[3], cov[4],
		cov[2], cov[4], cov[5],
	})

	var eig mat.EigenSym
	if !eig.Factorize(sym, false) {
		return 0, fmt.Errorf("feature: curvature: eigen decomposition failed for vertex %d", v)
	}
	vals := eig.Values(nil) // ascending order

	total := vals[0] + vals[1] + vals[2]
	if total <= 0 {
		return 0, nil
	}
	return vals[0] / total, nil
}
