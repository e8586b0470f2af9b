// Package kdtree implements a balanced KD-tree over a fixed set of 3D
// points, built once and queried read-only. Points are referenced by their
// owning mesh's vertex indices; the tree never copies mesh topology and
// never observes later mesh mutations — callers rebuild after mutating.
//
// The splitting dimension cycles x,y,z by depth and every internal node
// holds the exact (coordinate, index)-median of its partition, so the tree
// shape is a pure function of the input point set: rebuilding from the same
// mesh yields a structurally identical tree.
package kdtree

import (
	"context"
	"errors"
	"fmt"

	"github.com/chisel3d/chisel/pkg/geom"
	"github.com/chisel3d/chisel/pkg/mesh"
)

var (
	// ErrEmptyInput reports a build over zero points.
	ErrEmptyInput = errors.New("empty input")

	// ErrNotBuilt reports a query against a nil or unbuilt tree.
	ErrNotBuilt = errors.New("tree not built")

	// ErrInvalidArgument reports an out-of-range query parameter.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Point is one indexed point of the input set. Index is the stable vertex
// index in the source mesh.
type Point struct {
	Pos   geom.Vec3
	Index int
}

// Params configures a build. The zero value is not valid; start from
// DefaultParams.
type Params struct {
	// LeafSize is the bucket threshold: partitions of at most this many
	// points become leaves instead of splitting further. Minimum 1.
	LeafSize int

	// Parallel is the number of tree levels whose left/right subtree builds
	// run on separate goroutines. 0 builds sequentially. Parallelism never
	// changes the resulting structure, only who computes it.
	Parallel int
}

// DefaultParams returns the default build configuration.
func DefaultParams() Params {
	return Params{LeafSize: 1}
}

// node is one arena slot. Internal nodes split at the median point along
// dim; leaves reference a span of the permuted point array.
type node struct {
	dim   uint8
	leaf  bool
	split float64 // median coordinate along dim (internal nodes only)
	pt    Point   // splitting point (internal nodes only)
	start int32   // leaf span into Tree.pts
	end   int32
	left  int32 // arena index, -1 if absent
	right int32
}

// Tree is a built KD-tree. It is immutable after Build and safe for
// concurrent queries, provided the source mesh is not mutated and the tree
// not rebuilt during the query window (a caller-owned discipline, not an
// internal lock).
type Tree struct {
	nodes  []node
	pts    []Point // permuted input; leaf nodes reference spans of it
	count  int
	bounds geom.Box
	gen    uint64 // mesh generation at build time, when built from a mesh
}

// Len returns the number of indexed points.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return t.count
}

// Bounds returns the bounding box of the indexed points.
func (t *Tree) Bounds() geom.Box { return t.bounds }

// Stale reports whether m has been mutated since the tree was built from
// it. A stale tree still answers queries; the answers are only meaningful
// for the snapshot the tree was built over.
func (t *Tree) Stale(m *mesh.Mesh) bool {
	return t == nil || t.gen != m.Generation()
}

// Build constructs a tree over the given points with default parameters.
// It fails with ErrEmptyInput when points is empty.
func Build(points []Point) (*Tree, error) {
	return BuildCtx(context.Background(), points, DefaultParams())
}

// BuildMesh constructs a tree over all live vertices of m.
func BuildMesh(m *mesh.Mesh) (*Tree, error) {
	return BuildMeshCtx(context.Background(), m, DefaultParams())
}

// BuildMeshCtx is BuildMesh with explicit context and parameters.
func BuildMeshCtx(ctx context.Context, m *mesh.Mesh, p Params) (*Tree, error) {
	live := m.LiveVertices()
	pts := make([]Point, 0, len(live))
	for _, idx := range live {
		pos, _ := m.VertexPosition(idx)
		pts = append(pts, Point{Pos: pos, Index: idx})
	}
	t, err := BuildCtx(ctx, pts, p)
	if err != nil {
		return nil, err
	}
	t.gen = m.Generation()
	return t, nil
}

// BuildCtx constructs a tree over the given points. The context is checked
// cooperatively between partition boundaries; a cancelled build returns the
// context error and no tree. The input slice is not modified.
func BuildCtx(ctx context.Context, points []Point, p Params) (*Tree, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("kdtree: %w", ErrEmptyInput)
	}
	if p.LeafSize < 1 {
		return nil, fmt.Errorf("kdtree: leaf size %d: %w", p.LeafSize, ErrInvalidArgument)
	}

	b := &builder{
		pts:   make([]Point, len(points)),
		nodes: make([]node, nodeCount(len(points), p.LeafSize)),
		leaf:  p.LeafSize,
		spawn: p.Parallel,
	}
	copy(b.pts, points)
	bounds := geom.EmptyBox()
	for _, pt := range points {
		bounds = bounds.Extend(pt.Pos)
	}

	if err := b.run(ctx); err != nil {
		return nil, err
	}
	return &Tree{
		nodes:  b.nodes,
		pts:    b.pts,
		count:  len(points),
		bounds: bounds,
	}, nil
}

// nodeCount returns the exact number of arena slots a partition of size n
// occupies. It mirrors the split rule in builder.build so that slot ranges
// can be assigned up front, which is what lets parallel subtree builds
// write disjoint arena regions without coordination.
func nodeCount(n, leaf int) int {
	if n == 0 {
		return 0
	}
	if n <= leaf {
		return 1
	}
	mid := n / 2
	return 1 + nodeCount(mid, leaf) + nodeCount(n-1-mid, leaf)
}
