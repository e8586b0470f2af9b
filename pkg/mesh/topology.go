package mesh

import "github.com/chisel3d/chisel/pkg/geom"

// Edge is an undirected edge key. Construct with MakeEdge so the lower
// vertex index always comes first.
type Edge struct {
	A, B VertexIndex
}

// MakeEdge returns the normalized edge key for the pair (a, b).
func MakeEdge(a, b VertexIndex) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}

// Other returns the endpoint of e that is not v.
func (e Edge) Other(v VertexIndex) VertexIndex {
	if e.A == v {
		return e.B
	}
	return e.A
}

// EdgeFaces maps every edge of the mesh to the live faces incident to it.
// An edge with exactly one incident face is a boundary edge.
func (m *Mesh) EdgeFaces() map[Edge][]FaceIndex {
	out := make(map[Edge][]FaceIndex)
	for fi := range m.faces {
		if !m.faces[fi].alive {
			continue
		}
		verts := m.faces[fi].verts
		for i := range verts {
			e := MakeEdge(verts[i], verts[(i+1)%len(verts)])
			out[e] = append(out[e], fi)
		}
	}
	return out
}

// IncidentFaces returns the live faces that reference vertex v.
func (m *Mesh) IncidentFaces(v VertexIndex) []FaceIndex {
	var out []FaceIndex
	for fi := range m.faces {
		if !m.faces[fi].alive {
			continue
		}
		for _, u := range m.faces[fi].verts {
			if u == v {
				out = append(out, fi)
				break
			}
		}
	}
	return out
}

// FaceNormal returns the unit normal of a live face, computed from its
// first three vertices with counter-clockwise winding.
func (m *Mesh) FaceNormal(idx FaceIndex) (geom.Vec3, bool) {
	if idx < 0 || idx >= len(m.faces) || !m.faces[idx].alive {
		return geom.Vec3{}, false
	}
	verts := m.faces[idx].verts
	a, _ := m.VertexPosition(verts[0])
	b, _ := m.VertexPosition(verts[1])
	c, _ := m.VertexPosition(verts[2])
	n := b.Sub(a).Cross(c.Sub(a))
	if n.LengthSq() == 0 {
		return geom.Vec3{}, false
	}
	return n.Normalize(), true
}

// FaceArea returns the area of a live triangular face. Polygonal faces are
// fanned from their first vertex.
func (m *Mesh) FaceArea(idx FaceIndex) float64 {
	if idx < 0 || idx >= len(m.faces) || !m.faces[idx].alive {
		return 0
	}
	verts := m.faces[idx].verts
	a, _ := m.VertexPosition(verts[0])
	var area float64
	for i := 1; i < len(verts)-1; i++ {
		b, _ := m.VertexPosition(verts[i])
		c, _ := m.VertexPosition(verts[i+1])
		area += 0.5 * b.Sub(a).Cross(c.Sub(a)).Length()
	}
	return area
}

// ComputeVertexNormals derives per-vertex normals as the area-weighted
// average of incident face normals and stores them as vertex attributes.
// Vertices with no incident faces keep their previous normal, if any.
func (m *Mesh) ComputeVertexNormals() {
	sums := make([]geom.Vec3, len(m.verts))
	touched := make([]bool, len(m.verts))
	for fi := range m.faces {
		if !m.faces[fi].alive {
			continue
		}
		n, ok := m.FaceNormal(fi)
		if !ok {
			continue
		}
		w := m.FaceArea(fi)
		for _, v := range m.faces[fi].verts {
			sums[v] = sums[v].Add(n.Scale(w))
			touched[v] = true
		}
	}
	for i := range sums {
		if touched[i] && m.verts[i].alive {
			m.verts[i].normal = sums[i].Normalize()
			m.verts[i].hasNormal = true
		}
	}
}
