package kdtree

import (
	"container/heap"
	"fmt"
	"math"
	"sort"

	"github.com/chisel3d/chisel/pkg/geom"
)

// radiusEps is the relative slack applied to radius comparisons so that a
// point at exactly the query radius is never excluded by rounding.
const radiusEps = 1e-12

// Neighbor is one k-nearest result.
type Neighbor struct {
	Index    int
	Distance float64
}

// closer reports whether candidate (dSq, idx) beats (bestSq, bestIdx).
// Exact distance ties resolve to the lower point index, everywhere, which
// pins query results to a single deterministic answer.
func closer(dSq float64, idx int, bestSq float64, bestIdx int) bool {
	if dSq != bestSq {
		return dSq < bestSq
	}
	return idx < bestIdx
}

// Nearest returns the indexed point closest to q and its Euclidean
// distance. It fails with ErrNotBuilt on a nil or empty tree.
func (t *Tree) Nearest(q geom.Vec3) (int, float64, error) {
	if t == nil || len(t.nodes) == 0 {
		return 0, 0, fmt.Errorf("kdtree: nearest: %w", ErrNotBuilt)
	}
	bestSq := math.Inf(1)
	bestIdx := -1
	t.nearest(0, q, &bestSq, &bestIdx)
	return bestIdx, math.Sqrt(bestSq), nil
}

// nearest descends the query side of each split first, then visits the
// sibling only if its half-space could still hold a closer (or equal
// distance, lower index) point.
func (t *Tree) nearest(slot int32, q geom.Vec3, bestSq *float64, bestIdx *int) {
	n := &t.nodes[slot]
	if n.leaf {
		for _, pt := range t.pts[n.start:n.end] {
			dSq := q.DistanceSq(pt.Pos)
			if closer(dSq, pt.Index, *bestSq, *bestIdx) {
				*bestSq, *bestIdx = dSq, pt.Index
			}
		}
		return
	}

	dSq := q.DistanceSq(n.pt.Pos)
	if closer(dSq, n.pt.Index, *bestSq, *bestIdx) {
		*bestSq, *bestIdx = dSq, n.pt.Index
	}

	diff := q.Component(int(n.dim)) - n.split
	near, far := n.left, n.right
	if diff >= 0 {
		near, far = far, near
	}
	if near >= 0 {
		t.nearest(near, q, bestSq, bestIdx)
	}
	// The <= admits equal-distance candidates on the far side; the index
	// tie-break then decides.
	if far >= 0 && diff*diff <= *bestSq {
		t.nearest(far, q, bestSq, bestIdx)
	}
}

// KNearest returns the k points closest to q, sorted by non-decreasing
// distance (ties by index). It fails with ErrInvalidArgument if k <= 0 and
// with ErrNotBuilt on an unbuilt tree. Fewer than k results are returned,
// without error, when the tree holds fewer than k points.
func (t *Tree) KNearest(q geom.Vec3, k int) ([]Neighbor, error) {
	if t == nil || len(t.nodes) == 0 {
		return nil, fmt.Errorf("kdtree: k-nearest: %w", ErrNotBuilt)
	}
	if k <= 0 {
		return nil, fmt.Errorf("kdtree: k-nearest: k=%d: %w", k, ErrInvalidArgument)
	}

	h := &resultHeap{cap: k}
	t.kNearest(0, q, h)

	out := make([]Neighbor, len(h.items))
	for i, it := range h.items {
		out[i] = Neighbor{Index: it.index, Distance: math.Sqrt(it.dSq)}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

func (t *Tree) kNearest(slot int32, q geom.Vec3, h *resultHeap) {
	n := &t.nodes[slot]
	if n.leaf {
		for _, pt := range t.pts[n.start:n.end] {
			h.offer(q.DistanceSq(pt.Pos), pt.Index)
		}
		return
	}

	h.offer(q.DistanceSq(n.pt.Pos), n.pt.Index)

	diff := q.Component(int(n.dim)) - n.split
	near, far := n.left, n.right
	if diff >= 0 {
		near, far = far, near
	}
	if near >= 0 {
		t.kNearest(near, q, h)
	}
	if far >= 0 && (!h.full() || diff*diff <= h.worstSq()) {
		t.kNearest(far, q, h)
	}
}

// InRadius returns the indices of every point within radius of center,
// boundary inclusive, in ascending index order. It fails with
// ErrInvalidArgument for a negative radius and ErrNotBuilt on an unbuilt
// tree.
func (t *Tree) InRadius(center geom.Vec3, radius float64) ([]int, error) {
	if t == nil || len(t.nodes) == 0 {
		return nil, fmt.Errorf("kdtree: in-radius: %w", ErrNotBuilt)
	}
	if radius < 0 || math.IsNaN(radius) {
		return nil, fmt.Errorf("kdtree: in-radius: radius %v: %w", radius, ErrInvalidArgument)
	}

	limitSq := radius * radius * (1 + radiusEps)
	var out []int
	t.inRadius(0, center, radius, limitSq, &out)
	sort.Ints(out)
	return out, nil
}

func (t *Tree) inRadius(slot int32, center geom.Vec3, radius, limitSq float64, out *[]int) {
	n := &t.nodes[slot]
	if n.leaf {
		for _, pt := range t.pts[n.start:n.end] {
			if center.DistanceSq(pt.Pos) <= limitSq {
				*out = append(*out, pt.Index)
			}
		}
		return
	}

	if center.DistanceSq(n.pt.Pos) <= limitSq {
		*out = append(*out, n.pt.Index)
	}

	diff := center.Component(int(n.dim)) - n.split
	if n.left >= 0 && (diff < 0 || diff*diff <= limitSq) {
		t.inRadius(n.left, center, radius, limitSq, out)
	}
	if n.right >= 0 && (diff >= 0 || diff*diff <= limitSq) {
		t.inRadius(n.right, center, radius, limitSq, out)
	}
}

// resultItem is a k-nearest candidate held by the bounded heap.
type resultItem struct {
	dSq   float64
	index int
}

// resultHeap is a bounded max-heap by (distance, index): the root is the
// worst current candidate, evicted when a better one arrives at capacity.
type resultHeap struct {
	items []resultItem
	cap   int
}

func (h *resultHeap) Len() int { return len(h.items) }

func (h *resultHeap) Less(i, j int) bool {
	// Max-heap: the "greater" candidate sorts first.
	if h.items[i].dSq != h.items[j].dSq {
		return h.items[i].dSq > h.items[j].dSq
	}
	return h.items[i].index > h.items[j].index
}

func (h *resultHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *resultHeap) Push(x any) { h.items = append(h.items, x.(resultItem)) }

func (h *resultHeap) Pop() any {
	old := h.items
	it := old[len(old)-1]
	h.items = old[:len(old)-1]
	return it
}

func (h *resultHeap) full() bool { return len(h.items) == h.cap }

func (h *resultHeap) worstSq() float64 { return h.items[0].dSq }

// offer inserts a candidate, evicting the worst when at capacity and the
// candidate improves on it.
func (h *resultHeap) offer(dSq float64, index int) {
	if !h.full() {
		heap.Push(h, resultItem{dSq: dSq, index: index})
		return
	}
	worst := h.items[0]
	if closer(dSq, index, worst.dSq, worst.index) {
		h.items[0] = resultItem{dSq: dSq, index: index}
		heap.Fix(h, 0)
	}
}
