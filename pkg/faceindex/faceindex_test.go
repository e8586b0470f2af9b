package faceindex

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/chisel3d/chisel/pkg/geom"
	"github.com/chisel3d/chisel/pkg/mesh"
)

// sheet builds two unit triangles in z=0 plus a third far away at x=10.
func sheet(t *testing.T) *mesh.Mesh {
	t.Helper()
	m := mesh.New()
	a := m.AddVertex(geom.Vec3{X: 0, Y: 0})
	b := m.AddVertex(geom.Vec3{X: 1, Y: 0})
	c := m.AddVertex(geom.Vec3{X: 1, Y: 1})
	d := m.AddVertex(geom.Vec3{X: 0, Y: 1})
	e := m.AddVertex(geom.Vec3{X: 10, Y: 0})
	f := m.AddVertex(geom.Vec3{X: 11, Y: 0})
	g := m.AddVertex(geom.Vec3{X: 10, Y: 1})
	for _, face := range [][]mesh.VertexIndex{{a, b, c}, {a, c, d}, {e, f, g}} {
		if _, err := m.AddFace(face...); err != nil {
			t.Fatalf("AddFace(%v): %v", face, err)
		}
	}
	return m
}

func TestBuildEmptyMesh(t *testing.T) {
	if _, err := Build(mesh.New()); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Build(empty) = %v, want ErrEmptyInput", err)
	}
}

func TestBuildAndLen(t *testing.T) {
	ix, err := Build(sheet(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if ix.Len() != 3 {
		t.Errorf("Len = %d, want 3", ix.Len())
	}
	if ix.Stale() {
		t.Error("fresh index reported stale")
	}
}

func TestStaleAfterMutation(t *testing.T) {
	m := sheet(t)
	ix, err := Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	m.AddVertex(geom.Vec3{X: 50})
	if !ix.Stale() {
		t.Error("index not stale after mesh mutation")
	}
}

func TestFacesInBox(t *testing.T) {
	ix, err := Build(sheet(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	tests := []struct {
		name string
		box  geom.Box
		want []mesh.FaceIndex
	}{
		{"covers sheet", geom.NewBox(geom.Vec3{X: -1, Y: -1, Z: -1}, geom.Vec3{X: 2, Y: 2, Z: 1}), []mesh.FaceIndex{0, 1}},
		{"covers all", geom.NewBox(geom.Vec3{X: -1, Y: -1, Z: -1}, geom.Vec3{X: 20, Y: 2, Z: 1}), []mesh.FaceIndex{0, 1, 2}},
		{"far corner only", geom.NewBox(geom.Vec3{X: 9, Y: -1, Z: -1}, geom.Vec3{X: 12, Y: 2, Z: 1}), []mesh.FaceIndex{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ix.FacesInBox(tt.box)
			if err != nil {
				t.Fatalf("FacesInBox: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FacesInBox = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFacesNear(t *testing.T) {
	ix, err := Build(sheet(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got, err := ix.FacesNear(geom.Vec3{X: 0.5, Y: 0.5, Z: 0.25}, 0.5)
	if err != nil {
		t.Fatalf("FacesNear: %v", err)
	}
	if !reflect.DeepEqual(got, []mesh.FaceIndex{0, 1}) {
		t.Errorf("FacesNear = %v, want [0 1]", got)
	}

	if _, err := ix.FacesNear(geom.Vec3{}, -1); err == nil {
		t.Error("negative distance accepted")
	}
}

func TestNearestFace(t *testing.T) {
	ix, err := Build(sheet(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	tests := []struct {
		name     string
		p        geom.Vec3
		wantFace mesh.FaceIndex
		wantDist float64
	}{
		{"above first triangle", geom.Vec3{X: 0.75, Y: 0.25, Z: 2}, 0, 2},
		{"above far triangle", geom.Vec3{X: 10.25, Y: 0.25, Z: 1}, 2, 1},
		{"on the surface", geom.Vec3{X: 0.5, Y: 0.25}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			face, dist, err := ix.NearestFace(tt.p)
			if err != nil {
				t.Fatalf("NearestFace: %v", err)
			}
			if face != tt.wantFace || math.Abs(dist-tt.wantDist) > 1e-9 {
				t.Errorf("NearestFace = (%d, %v), want (%d, %v)", face, dist, tt.wantFace, tt.wantDist)
			}
		})
	}
}

func TestNearestFaceTieBreaksToLowerIndex(t *testing.T) {
	ix, err := Build(sheet(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// The shared diagonal (0,0)-(1,1) is equidistant from both sheet faces.
	face, dist, err := ix.NearestFace(geom.Vec3{X: 0.5, Y: 0.5, Z: 1})
	if err != nil {
		t.Fatalf("NearestFace: %v", err)
	}
	if face != 0 || math.Abs(dist-1) > 1e-9 {
		t.Errorf("NearestFace = (%d, %v), want (0, 1)", face, dist)
	}
}

func TestSurfaceDistance(t *testing.T) {
	ix, err := Build(sheet(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	d, err := ix.SurfaceDistance(geom.Vec3{X: 0.25, Y: 0.25, Z: 3})
	if err != nil {
		t.Fatalf("SurfaceDistance: %v", err)
	}
	if math.Abs(d-3) > 1e-9 {
		t.Errorf("SurfaceDistance = %v, want 3", d)
	}
}
