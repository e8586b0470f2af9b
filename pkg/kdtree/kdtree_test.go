package kdtree

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/chisel3d/chisel/pkg/geom"
	"github.com/chisel3d/chisel/pkg/mesh"
)

func randomPoints(rng *rand.Rand, n int) []Point {
	pts := make([]Point, n)
	for i := range pts {
		pts[i] = Point{
			Pos: geom.Vec3{
				X: rng.Float64()*20 - 10,
				Y: rng.Float64()*20 - 10,
				Z: rng.Float64()*20 - 10,
			},
			Index: i,
		}
	}
	return pts
}

// bruteNearest mirrors the query tie-break: lower index wins exact ties.
func bruteNearest(pts []Point, q geom.Vec3) (int, float64) {
	bestSq := math.Inf(1)
	bestIdx := -1
	for _, pt := range pts {
		dSq := q.DistanceSq(pt.Pos)
		if closer(dSq, pt.Index, bestSq, bestIdx) {
			bestSq, bestIdx = dSq, pt.Index
		}
	}
	return bestIdx, math.Sqrt(bestSq)
}

func TestBuildEmpty(t *testing.T) {
	if _, err := Build(nil); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Build(nil) = %v, want ErrEmptyInput", err)
	}
}

func TestBuildInvalidLeafSize(t *testing.T) {
	pts := []Point{{Pos: geom.Vec3{X: 1}, Index: 0}}
	_, err := BuildCtx(context.Background(), pts, Params{LeafSize: 0})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("LeafSize 0 = %v, want ErrInvalidArgument", err)
	}
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rng := rand.New(rand.NewSource(1))
	_, err := BuildCtx(ctx, randomPoints(rng, 100), DefaultParams())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled build = %v, want context.Canceled", err)
	}
}

func TestQueriesOnNilTree(t *testing.T) {
	var tr *Tree
	if _, _, err := tr.Nearest(geom.Vec3{}); !errors.Is(err, ErrNotBuilt) {
		t.Errorf("Nearest on nil tree = %v, want ErrNotBuilt", err)
	}
	if _, err := tr.KNearest(geom.Vec3{}, 3); !errors.Is(err, ErrNotBuilt) {
		t.Errorf("KNearest on nil tree = %v, want ErrNotBuilt", err)
	}
	if _, err := tr.InRadius(geom.Vec3{}, 1); !errors.Is(err, ErrNotBuilt) {
		t.Errorf("InRadius on nil tree = %v, want ErrNotBuilt", err)
	}
	if tr.Len() != 0 {
		t.Errorf("Len on nil tree = %d, want 0", tr.Len())
	}
}

func TestNearestEveryIndexedPoint(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pts := randomPoints(rng, 257)
	tr, err := Build(pts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, pt := range pts {
		idx, dist, err := tr.Nearest(pt.Pos)
		if err != nil {
			t.Fatalf("Nearest: %v", err)
		}
		if idx != pt.Index || dist != 0 {
			t.Fatalf("Nearest(point %d) = (%d, %v), want (%d, 0)", pt.Index, idx, dist, pt.Index)
		}
	}
}

func TestNearestMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, n := range []int{1, 2, 3, 17, 200} {
		pts := randomPoints(rng, n)
		tr, err := Build(pts)
		if err != nil {
			t.Fatalf("Build(n=%d): %v", n, err)
		}
		for i := 0; i < 50; i++ {
			q := geom.Vec3{
				X: rng.Float64()*30 - 15,
				Y: rng.Float64()*30 - 15,
				Z: rng.Float64()*30 - 15,
			}
			wantIdx, wantDist := bruteNearest(pts, q)
			gotIdx, gotDist, err := tr.Nearest(q)
			if err != nil {
				t.Fatalf("Nearest: %v", err)
			}
			if gotIdx != wantIdx || math.Abs(gotDist-wantDist) > 1e-12 {
				t.Fatalf("n=%d q=%v: Nearest = (%d, %v), brute force = (%d, %v)",
					n, q, gotIdx, gotDist, wantIdx, wantDist)
			}
		}
	}
}

func TestNearestTieBreaksToLowerIndex(t *testing.T) {
	pts := []Point{
		{Pos: geom.Vec3{X: 1}, Index: 4},
		{Pos: geom.Vec3{X: -1}, Index: 2},
		{Pos: geom.Vec3{Y: 5}, Index: 0},
	}
	tr, err := Build(pts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	idx, dist, err := tr.Nearest(geom.Vec3{})
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if idx != 2 || dist != 1 {
		t.Errorf("Nearest = (%d, %v), want lower index 2 at distance 1", idx, dist)
	}
}

func TestKNearestSortedAndPrefixStable(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	pts := randomPoints(rng, 120)
	tr, err := Build(pts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	q := geom.Vec3{X: 0.5, Y: -0.25, Z: 2}
	full, err := tr.KNearest(q, 20)
	if err != nil {
		t.Fatalf("KNearest: %v", err)
	}
	if len(full) != 20 {
		t.Fatalf("len = %d, want 20", len(full))
	}
	for i := 1; i < len(full); i++ {
		if full[i].Distance < full[i-1].Distance {
			t.Fatalf("results not sorted at %d: %v > %v", i, full[i-1].Distance, full[i].Distance)
		}
	}

	// A smaller k returns a prefix of a larger k's answer.
	for _, k := range []int{1, 5, 12} {
		sub, err := tr.KNearest(q, k)
		if err != nil {
			t.Fatalf("KNearest(k=%d): %v", k, err)
		}
		if !reflect.DeepEqual(sub, full[:k]) {
			t.Errorf("KNearest(k=%d) = %v, want prefix %v", k, sub, full[:k])
		}
	}
}

func TestKNearestOneMatchesNearest(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	pts := randomPoints(rng, 64)
	tr, err := Build(pts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for i := 0; i < 25; i++ {
		q := geom.Vec3{X: rng.Float64() * 10, Y: rng.Float64() * 10, Z: rng.Float64() * 10}
		idx, dist, err := tr.Nearest(q)
		if err != nil {
			t.Fatalf("Nearest: %v", err)
		}
		one, err := tr.KNearest(q, 1)
		if err != nil {
			t.Fatalf("KNearest: %v", err)
		}
		if len(one) != 1 || one[0].Index != idx || math.Abs(one[0].Distance-dist) > 1e-12 {
			t.Fatalf("KNearest(1) = %v, Nearest = (%d, %v)", one, idx, dist)
		}
	}
}

func TestKNearestClamping(t *testing.T) {
	pts := []Point{
		{Pos: geom.Vec3{X: 1}, Index: 0},
		{Pos: geom.Vec3{X: 2}, Index: 1},
	}
	tr, err := Build(pts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got, err := tr.KNearest(geom.Vec3{}, 10)
	if err != nil {
		t.Fatalf("KNearest: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("k beyond point count returned %d results, want 2", len(got))
	}
	if _, err := tr.KNearest(geom.Vec3{}, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("k=0 = %v, want ErrInvalidArgument", err)
	}
	if _, err := tr.KNearest(geom.Vec3{}, -3); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("k=-3 = %v, want ErrInvalidArgument", err)
	}
}

func TestInRadiusBoundaryInclusive(t *testing.T) {
	pts := []Point{
		{Pos: geom.Vec3{X: 0}, Index: 0},
		{Pos: geom.Vec3{X: 2}, Index: 1},
		{Pos: geom.Vec3{X: 3}, Index: 2},
	}
	tr, err := Build(pts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got, err := tr.InRadius(geom.Vec3{}, 2)
	if err != nil {
		t.Fatalf("InRadius: %v", err)
	}
	if !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("InRadius(0, 2) = %v, want [0 1] (boundary point included)", got)
	}
}

func TestInRadiusMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	pts := randomPoints(rng, 150)
	tr, err := Build(pts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for i := 0; i < 30; i++ {
		q := geom.Vec3{
			X: rng.Float64()*20 - 10,
			Y: rng.Float64()*20 - 10,
			Z: rng.Float64()*20 - 10,
		}
		r := rng.Float64() * 8
		var want []int
		for _, pt := range pts {
			if q.DistanceSq(pt.Pos) <= r*r*(1+radiusEps) {
				want = append(want, pt.Index)
			}
		}
		got, err := tr.InRadius(q, r)
		if err != nil {
			t.Fatalf("InRadius: %v", err)
		}
		if len(want) == 0 {
			if len(got) != 0 {
				t.Fatalf("InRadius(%v, %v) = %v, want empty", q, r, got)
			}
			continue
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("InRadius(%v, %v) = %v, brute force = %v", q, r, got, want)
		}
	}
}

func TestInRadiusBadRadius(t *testing.T) {
	tr, err := Build([]Point{{Pos: geom.Vec3{X: 1}, Index: 0}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := tr.InRadius(geom.Vec3{}, -1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("negative radius = %v, want ErrInvalidArgument", err)
	}
	if _, err := tr.InRadius(geom.Vec3{}, math.NaN()); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("NaN radius = %v, want ErrInvalidArgument", err)
	}
	got, err := tr.InRadius(geom.Vec3{X: 1}, 0)
	if err != nil {
		t.Fatalf("zero radius: %v", err)
	}
	if !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("zero radius at a point = %v, want [0]", got)
	}
}

func TestRebuildIsStructurallyIdentical(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	pts := randomPoints(rng, 101)
	first, err := Build(pts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := Build(pts)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if !reflect.DeepEqual(first.nodes, second.nodes) {
		t.Error("rebuild produced a different node arena")
	}
	if !reflect.DeepEqual(first.pts, second.pts) {
		t.Error("rebuild produced a different point permutation")
	}
}

func TestParallelBuildMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	pts := randomPoints(rng, 500)
	seq, err := BuildCtx(context.Background(), pts, Params{LeafSize: 1})
	if err != nil {
		t.Fatalf("sequential build: %v", err)
	}
	par, err := BuildCtx(context.Background(), pts, Params{LeafSize: 1, Parallel: 3})
	if err != nil {
		t.Fatalf("parallel build: %v", err)
	}
	if !reflect.DeepEqual(seq.nodes, par.nodes) {
		t.Error("parallel build produced a different node arena")
	}
	if !reflect.DeepEqual(seq.pts, par.pts) {
		t.Error("parallel build produced a different point permutation")
	}
}

func TestLeafSizesAgreeOnQueries(t *testing.T) {
	rng := rand.New(rand.NewSource(29))
	pts := randomPoints(rng, 180)
	base, err := BuildCtx(context.Background(), pts, Params{LeafSize: 1})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, leaf := range []int{2, 4, 16} {
		tr, err := BuildCtx(context.Background(), pts, Params{LeafSize: leaf})
		if err != nil {
			t.Fatalf("Build(leaf=%d): %v", leaf, err)
		}
		for i := 0; i < 20; i++ {
			q := geom.Vec3{
				X: rng.Float64()*20 - 10,
				Y: rng.Float64()*20 - 10,
				Z: rng.Float64()*20 - 10,
			}
			wantIdx, _, _ := base.Nearest(q)
			gotIdx, _, _ := tr.Nearest(q)
			if gotIdx != wantIdx {
				t.Fatalf("leaf=%d q=%v: Nearest = %d, want %d", leaf, q, gotIdx, wantIdx)
			}
			want, _ := base.InRadius(q, 4)
			got, _ := tr.InRadius(q, 4)
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("leaf=%d q=%v: InRadius = %v, want %v", leaf, q, got, want)
			}
		}
	}
}

func TestBuildMeshQueries(t *testing.T) {
	m := mesh.New()
	a := m.AddVertex(geom.Vec3{X: 0, Y: 0, Z: 0})
	b := m.AddVertex(geom.Vec3{X: 1, Y: 0, Z: 0})
	c := m.AddVertex(geom.Vec3{X: 0, Y: 1, Z: 0})
	d := m.AddVertex(geom.Vec3{X: 5, Y: 5, Z: 5})

	tr, err := BuildMesh(m)
	if err != nil {
		t.Fatalf("BuildMesh: %v", err)
	}
	if tr.Len() != 4 {
		t.Fatalf("Len = %d, want 4", tr.Len())
	}

	idx, dist, err := tr.Nearest(geom.Vec3{X: 0.1})
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if idx != a || math.Abs(dist-0.1) > 1e-12 {
		t.Errorf("Nearest(0.1,0,0) = (%d, %v), want (%d, 0.1)", idx, dist, a)
	}

	got, err := tr.InRadius(geom.Vec3{}, 1.5)
	if err != nil {
		t.Fatalf("InRadius: %v", err)
	}
	if !reflect.DeepEqual(got, []int{a, b, c}) {
		t.Errorf("InRadius(origin, 1.5) = %v, want [%d %d %d]", got, a, b, c)
	}
	if containsInt(got, d) {
		t.Errorf("far vertex %d leaked into the radius result", d)
	}
}

func TestBuildMeshSkipsDeadVertices(t *testing.T) {
	m := mesh.New()
	m.AddVertex(geom.Vec3{X: 0})
	dead := m.AddVertex(geom.Vec3{X: 1})
	m.AddVertex(geom.Vec3{X: 2})
	if err := m.RemoveVertex(dead); err != nil {
		t.Fatalf("RemoveVertex: %v", err)
	}

	tr, err := BuildMesh(m)
	if err != nil {
		t.Fatalf("BuildMesh: %v", err)
	}
	if tr.Len() != 2 {
		t.Fatalf("Len = %d, want 2", tr.Len())
	}
	idx, _, err := tr.Nearest(geom.Vec3{X: 1.1})
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if idx == dead {
		t.Error("Nearest returned a removed vertex")
	}
}

func TestStaleTracksGeneration(t *testing.T) {
	m := mesh.New()
	m.AddVertex(geom.Vec3{X: 1})
	tr, err := BuildMesh(m)
	if err != nil {
		t.Fatalf("BuildMesh: %v", err)
	}
	if tr.Stale(m) {
		t.Error("fresh tree reported stale")
	}
	m.AddVertex(geom.Vec3{X: 2})
	if !tr.Stale(m) {
		t.Error("tree not stale after mesh mutation")
	}
}

func TestNodeCountMatchesArena(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	for _, leaf := range []int{1, 2, 5} {
		for _, n := range []int{1, 2, 3, 10, 63, 64, 65} {
			tr, err := BuildCtx(context.Background(), randomPoints(rng, n), Params{LeafSize: leaf})
			if err != nil {
				t.Fatalf("Build(n=%d, leaf=%d): %v", n, leaf, err)
			}
			if len(tr.nodes) != nodeCount(n, leaf) {
				t.Errorf("n=%d leaf=%d: arena %d slots, nodeCount says %d",
					n, leaf, len(tr.nodes), nodeCount(n, leaf))
			}
		}
	}
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
