// Package faceindex provides an R-tree over face bounding boxes for
// face-level proximity queries. It complements the vertex KD-tree: the
// KD-tree answers "which vertex", this index answers "which face". Like
// the KD-tree it is a read-accelerant built from a mesh snapshot and must
// be rebuilt after mesh mutation.
package faceindex

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/chisel3d/chisel/pkg/geom"
	"github.com/chisel3d/chisel/pkg/mesh"
)

// ErrEmptyInput reports a build over a mesh with no faces.
var ErrEmptyInput = errors.New("empty input")

// rectPad inflates degenerate (axis-aligned flat) face boxes so they form
// valid R-tree rectangles.
const rectPad = 1e-9

// entry is one indexed face.
type entry struct {
	face int
	rect rtreego.Rect
}

func (e *entry) Bounds() rtreego.Rect { return e.rect }

// Index is a built face index. Immutable after Build; safe for concurrent
// queries under the same caller-owned discipline as the KD-tree.
type Index struct {
	rt   *rtreego.Rtree
	m    *mesh.Mesh
	gen  uint64
	size int
}

// Build constructs a face index over all live faces of m.
func Build(m *mesh.Mesh) (*Index, error) {
	faces := m.Faces()
	if len(faces) == 0 {
		return nil, fmt.Errorf("faceindex: %w", ErrEmptyInput)
	}

	rt := rtreego.NewTree(3, 8, 16)
	for _, f := range faces {
		box := geom.EmptyBox()
		for _, v := range f.Vertices {
			p, _ := m.VertexPosition(v)
			box = box.Extend(p)
		}
		rect, err := boxToRect(box)
		if err != nil {
			return nil, fmt.Errorf("faceindex: face %d: %w", f.Index, err)
		}
		rt.Insert(&entry{face: f.Index, rect: rect})
	}
	return &Index{rt: rt, m: m, gen: m.Generation(), size: len(faces)}, nil
}

// Len returns the number of indexed faces.
func (ix *Index) Len() int { return ix.size }

// Stale reports whether the source mesh has mutated since the build.
func (ix *Index) Stale() bool { return ix.gen != ix.m.Generation() }

// FacesInBox returns the indices of faces whose bounding boxes intersect
// box, in ascending order.
func (ix *Index) FacesInBox(box geom.Box) ([]mesh.FaceIndex, error) {
	rect, err := boxToRect(box)
	if err != nil {
		return nil, fmt.Errorf("faceindex: %w", err)
	}
	hits := ix.rt.SearchIntersect(rect)
	out := make([]mesh.FaceIndex, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(*entry).face)
	}
	sort.Ints(out)
	return out, nil
}

// FacesNear returns the faces whose surface lies within maxDist of p,
// in ascending index order.
func (ix *Index) FacesNear(p geom.Vec3, maxDist float64) ([]mesh.FaceIndex, error) {
	if maxDist < 0 {
		return nil, fmt.Errorf("faceindex: negative distance %v", maxDist)
	}
	r := geom.Vec3{X: maxDist, Y: maxDist, Z: maxDist}
	candidates, err := ix.FacesInBox(geom.Box{Min: p.Sub(r), Max: p.Add(r)})
	if err != nil {
		return nil, err
	}
	out := candidates[:0]
	limitSq := maxDist * maxDist
	for _, fi := range candidates {
		if ix.faceDistanceSq(fi, p) <= limitSq {
			out = append(out, fi)
		}
	}
	return out, nil
}

// NearestFace returns the face whose surface is closest to p and that
// exact distance. R-tree candidates are refined with exact point-triangle
// distances; ties resolve to the lower face index.
func (ix *Index) NearestFace(p geom.Vec3) (mesh.FaceIndex, float64, error) {
	// Seed the search radius with the nearest few bounding boxes.
	seeds := ix.rt.NearestNeighbors(4, rtreego.Point{p.X, p.Y, p.Z})
	bestFace := -1
	bestSq := math.Inf(1)
	for _, s := range seeds {
		if s == nil {
			continue
		}
		fi := s.(*entry).face
		dSq := ix.faceDistanceSq(fi, p)
		if dSq < bestSq || (dSq == bestSq && fi < bestFace) {
			bestSq, bestFace = dSq, fi
		}
	}
	if bestFace < 0 {
		return 0, 0, fmt.Errorf("faceindex: %w", ErrEmptyInput)
	}

	// Any face closer than the seed distance must have a bounding box
	// within that distance of p; sweep those exactly.
	d := math.Sqrt(bestSq)
	r := geom.Vec3{X: d, Y: d, Z: d}
	candidates, err := ix.FacesInBox(geom.Box{Min: p.Sub(r), Max: p.Add(r)})
	if err != nil {
		return 0, 0, err
	}
	for _, fi := range candidates {
		dSq := ix.faceDistanceSq(fi, p)
		if dSq < bestSq || (dSq == bestSq && fi < bestFace) {
			bestSq, bestFace = dSq, fi
		}
	}
	return bestFace, math.Sqrt(bestSq), nil
}

// SurfaceDistance returns the distance from p to the mesh surface.
func (ix *Index) SurfaceDistance(p geom.Vec3) (float64, error) {
	_, d, err := ix.NearestFace(p)
	return d, err
}

// faceDistanceSq returns the squared distance from p to the face surface,
// fanning polygonal faces into triangles from their first vertex.
func (ix *Index) faceDistanceSq(fi mesh.FaceIndex, p geom.Vec3) float64 {
	f, ok := ix.m.Face(fi)
	if !ok {
		return math.Inf(1)
	}
	a, _ := ix.m.VertexPosition(f.Vertices[0])
	best := math.Inf(1)
	for i := 1; i < len(f.Vertices)-1; i++ {
		b, _ := ix.m.VertexPosition(f.Vertices[i])
		c, _ := ix.m.VertexPosition(f.Vertices[i+1])
		q := geom.ClosestPointOnTriangle(p, a, b, c)
		if dSq := p.DistanceSq(q); dSq < best {
			best = dSq
		}
	}
	return best
}

// boxToRect converts an AABB to an rtreego rectangle, padding degenerate
// extents.
func boxToRect(b geom.Box) (rtreego.Rect, error) {
	size := b.Size()
	lengths := []float64{size.X, size.Y, size.Z}
	for i := range lengths {
		if lengths[i] < rectPad {
			lengths[i] = rectPad
		}
	}
	return rtreego.NewRect(rtreego.Point{b.Min.X, b.Min.Y, b.Min.Z}, lengths)
}
