package kdtree

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// builder holds the shared state of one build. Parallel subtree builds
// write disjoint ranges of nodes and disjoint subslices of pts, so no
// locking is needed.
type builder struct {
	pts   []Point
	nodes []node
	leaf  int
	spawn int // levels that fork left/right onto goroutines
}

func (b *builder) run(ctx context.Context) error {
	return b.build(ctx, b.pts, 0, 0, 0)
}

// build lays out the subtree for pts into arena slots [slot, slot+nodeCount).
// off is the position of pts[0] within the builder's full point array, used
// by leaves to record their span.
func (b *builder) build(ctx context.Context, pts []Point, off int, slot int32, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(pts) <= b.leaf {
		b.nodes[slot] = node{
			leaf:  true,
			start: int32(off),
			end:   int32(off + len(pts)),
			left:  -1,
			right: -1,
		}
		return nil
	}

	dim := depth % 3
	mid := len(pts) / 2
	selectMedian(pts, mid, dim)

	left := pts[:mid]
	right := pts[mid+1:]
	leftSlot := slot + 1
	rightSlot := leftSlot + int32(nodeCount(len(left), b.leaf))

	n := node{
		dim:   uint8(dim),
		pt:    pts[mid],
		left:  -1,
		right: -1,
	}
	n.split = n.pt.Pos.Component(dim)
	if len(left) > 0 {
		n.left = leftSlot
	}
	if len(right) > 0 {
		n.right = rightSlot
	}
	b.nodes[slot] = n

	// Fork the two halves while within the configured spawn depth. The
	// halves touch disjoint point and arena ranges, so the only shared
	// state is read-only.
	if depth < b.spawn && len(left) > 0 && len(right) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return b.build(gctx, left, off, leftSlot, depth+1)
		})
		g.Go(func() error {
			return b.build(gctx, right, off+mid+1, rightSlot, depth+1)
		})
		return g.Wait()
	}

	if len(left) > 0 {
		if err := b.build(ctx, left, off, leftSlot, depth+1); err != nil {
			return err
		}
	}
	if len(right) > 0 {
		if err := b.build(ctx, right, off+mid+1, rightSlot, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// less orders points by (coordinate along dim, index). The index tie-break
// makes median selection, and therefore the whole tree shape, deterministic
// even under duplicate coordinates.
func less(a, b Point, dim int) bool {
	ac, bc := a.Pos.Component(dim), b.Pos.Component(dim)
	if ac != bc {
		return ac < bc
	}
	return a.Index < b.Index
}

// selectMedian partially orders pts so that pts[k] holds the k-th element
// under the (coordinate, index) order, everything before it compares less
// and everything after compares greater. Iterative Hoare quickselect with a
// median-of-three pivot; no randomness, so the permutation is reproducible.
func selectMedian(pts []Point, k, dim int) {
	lo, hi := 0, len(pts)-1
	for lo < hi {
		p := pivot(pts, lo, hi, dim)
		i, j := lo, hi
		for i <= j {
			for less(pts[i], p, dim) {
				i++
			}
			for less(p, pts[j], dim) {
				j--
			}
			if i <= j {
				pts[i], pts[j] = pts[j], pts[i]
				i++
				j--
			}
		}
		if k <= j {
			hi = j
		} else if k >= i {
			lo = i
		} else {
			return
		}
	}
}

// pivot returns the median-of-three of the range endpoints and midpoint.
func pivot(pts []Point, lo, hi, dim int) Point {
	mid := lo + (hi-lo)/2
	a, b, c := pts[lo], pts[mid], pts[hi]
	if less(b, a, dim) {
		a, b = b, a
	}
	if less(c, b, dim) {
		b = c
		if less(b, a, dim) {
			b = a
		}
	}
	return b
}
