package mesh

import (
	"math"
	"testing"

	"github.com/chisel3d/chisel/pkg/geom"
)

// quad builds two triangles sharing the diagonal (0,0)-(1,1) of the unit
// square in the z=0 plane.
func quad(t *testing.T) *Mesh {
	t.Helper()
	m := New()
	a := m.AddVertex(geom.Vec3{X: 0, Y: 0})
	b := m.AddVertex(geom.Vec3{X: 1, Y: 0})
	c := m.AddVertex(geom.Vec3{X: 1, Y: 1})
	d := m.AddVertex(geom.Vec3{X: 0, Y: 1})
	for _, f := range [][]VertexIndex{{a, b, c}, {a, c, d}} {
		if _, err := m.AddFace(f...); err != nil {
			t.Fatalf("AddFace(%v): %v", f, err)
		}
	}
	return m
}

func TestMakeEdgeNormalizes(t *testing.T) {
	if MakeEdge(5, 2) != MakeEdge(2, 5) {
		t.Error("MakeEdge is order sensitive")
	}
	e := MakeEdge(7, 3)
	if e.A != 3 || e.B != 7 {
		t.Errorf("MakeEdge(7,3) = %v, want {3 7}", e)
	}
	if e.Other(3) != 7 || e.Other(7) != 3 {
		t.Error("Other returned the wrong endpoint")
	}
}

func TestEdgeFaces(t *testing.T) {
	m := quad(t)
	ef := m.EdgeFaces()

	if len(ef) != 5 {
		t.Fatalf("edge count = %d, want 5", len(ef))
	}
	shared := ef[MakeEdge(0, 2)]
	if len(shared) != 2 {
		t.Errorf("diagonal incident faces = %v, want two", shared)
	}
	boundary := 0
	for _, faces := range ef {
		if len(faces) == 1 {
			boundary++
		}
	}
	if boundary != 4 {
		t.Errorf("boundary edges = %d, want 4", boundary)
	}
}

func TestEdgeFacesSkipsDeadFaces(t *testing.T) {
	m := quad(t)
	if err := m.RemoveFace(1); err != nil {
		t.Fatalf("RemoveFace: %v", err)
	}
	ef := m.EdgeFaces()
	if len(ef) != 3 {
		t.Errorf("edge count after removal = %d, want 3", len(ef))
	}
	if faces := ef[MakeEdge(0, 2)]; len(faces) != 1 {
		t.Errorf("diagonal incident faces = %v, want one", faces)
	}
}

func TestIncidentFaces(t *testing.T) {
	m := quad(t)
	if got := m.IncidentFaces(0); len(got) != 2 {
		t.Errorf("IncidentFaces(0) = %v, want both faces", got)
	}
	if got := m.IncidentFaces(1); len(got) != 1 || got[0] != 0 {
		t.Errorf("IncidentFaces(1) = %v, want [0]", got)
	}
	if got := m.IncidentFaces(99); got != nil {
		t.Errorf("IncidentFaces(99) = %v, want nil", got)
	}
}

func TestFaceNormalAndArea(t *testing.T) {
	m := quad(t)
	n, ok := m.FaceNormal(0)
	if !ok {
		t.Fatal("FaceNormal failed on a live face")
	}
	if n.Distance(geom.Vec3{Z: 1}) > 1e-12 {
		t.Errorf("FaceNormal = %v, want +z", n)
	}
	if got := m.FaceArea(0); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("FaceArea = %v, want 0.5", got)
	}
}

func TestFaceNormalDegenerate(t *testing.T) {
	m := New()
	a := m.AddVertex(geom.Vec3{X: 0})
	b := m.AddVertex(geom.Vec3{X: 1})
	c := m.AddVertex(geom.Vec3{X: 2})
	if _, err := m.AddFace(a, b, c); err != nil {
		t.Fatalf("AddFace: %v", err)
	}
	if _, ok := m.FaceNormal(0); ok {
		t.Error("FaceNormal succeeded on a collinear face")
	}
}

func TestComputeVertexNormals(t *testing.T) {
	m := quad(t)
	m.ComputeVertexNormals()
	for _, v := range m.LiveVertices() {
		n, ok := m.Normal(v)
		if !ok {
			t.Fatalf("vertex %d has no normal", v)
		}
		if n.Distance(geom.Vec3{Z: 1}) > 1e-12 {
			t.Errorf("vertex %d normal = %v, want +z", v, n)
		}
	}
}

func TestValidateCleanMesh(t *testing.T) {
	m := quad(t)
	if errs := Validate(m); len(errs) != 0 {
		t.Errorf("Validate(clean) = %v, want none", errs)
	}
}

func TestValidateZeroAreaFace(t *testing.T) {
	m := New()
	a := m.AddVertex(geom.Vec3{X: 0})
	b := m.AddVertex(geom.Vec3{X: 1})
	c := m.AddVertex(geom.Vec3{X: 2})
	if _, err := m.AddFace(a, b, c); err != nil {
		t.Fatalf("AddFace: %v", err)
	}
	errs := Validate(m)
	if len(errs) != 1 || errs[0].Severity != SeverityWarning || errs[0].Face != 0 {
		t.Errorf("Validate = %v, want one zero-area warning on face 0", errs)
	}
}

func TestValidateNonManifoldEdge(t *testing.T) {
	m := New()
	a := m.AddVertex(geom.Vec3{X: 0})
	b := m.AddVertex(geom.Vec3{X: 1})
	tips := []geom.Vec3{{Y: 1}, {Z: 1}, {Y: -1}}
	for _, p := range tips {
		tip := m.AddVertex(p)
		if _, err := m.AddFace(a, b, tip); err != nil {
			t.Fatalf("AddFace: %v", err)
		}
	}
	var found bool
	for _, e := range Validate(m) {
		if e.Severity == SeverityWarning && e.Face == -1 {
			found = true
		}
	}
	if !found {
		t.Error("Validate missed an edge shared by three faces")
	}
}

func TestValidationErrorFormat(t *testing.T) {
	e := ValidationError{Face: 3, Message: "bad", Severity: SeverityError}
	if got := e.Error(); got != "[error] face 3: bad" {
		t.Errorf("Error() = %q", got)
	}
	e = ValidationError{Face: -1, Message: "odd", Severity: SeverityWarning}
	if got := e.Error(); got != "[warning] odd" {
		t.Errorf("Error() = %q", got)
	}
}
