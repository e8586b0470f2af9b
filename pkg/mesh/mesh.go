// Package mesh defines the indexed triangle/polygon mesh that the rest of
// the system operates on. The mesh owns vertex positions, face connectivity
// and per-vertex attributes; spatial indexes and feature classifiers are
// read-side consumers that reference vertices and faces by index only.
package mesh

import (
	"errors"
	"fmt"

	"github.com/chisel3d/chisel/pkg/geom"
)

// VertexIndex identifies a vertex slot. Indices are stable for the lifetime
// of the mesh: removal tombstones a slot, it never shifts later vertices.
type VertexIndex = int

// FaceIndex identifies a face slot.
type FaceIndex = int

var (
	// ErrInvalidTopology reports a malformed face: an out-of-range or dead
	// vertex reference, or fewer than three distinct vertices.
	ErrInvalidTopology = errors.New("invalid topology")

	// ErrVertexInUse reports a vertex removal blocked by a live face that
	// still references the vertex.
	ErrVertexInUse = errors.New("vertex in use")

	// ErrNotFound reports an operation on a dead or out-of-range element.
	ErrNotFound = errors.New("element not found")
)

// vertexSlot holds one vertex and its attributes. Dead slots remain in
// place so that indices stay stable.
type vertexSlot struct {
	pos       geom.Vec3
	normal    geom.Vec3
	hasNormal bool
	tag       FeatureTag
	alive     bool
}

// Face is an ordered ring of vertex indices. Triangles have three entries;
// polygonal faces may have more.
type Face struct {
	Index    FaceIndex
	Vertices []VertexIndex
}

type faceSlot struct {
	verts []VertexIndex
	alive bool
}

// Mesh is the mutable mesh store. It is not safe for concurrent mutation;
// concurrent reads are fine. Any mutation invalidates the correctness
// guarantee of previously built spatial indexes — they do not self-update,
// callers rebuild explicitly (compare Generation).
type Mesh struct {
	verts []vertexSlot
	faces []faceSlot

	liveVerts int
	liveFaces int
	gen       uint64
}

// New returns an empty mesh.
func New() *Mesh {
	return &Mesh{}
}

// AddVertex appends a vertex at p and returns its index. Indices of dead
// slots are never reused, so a returned index stays valid until that vertex
// is removed.
func (m *Mesh) AddVertex(p geom.Vec3) VertexIndex {
	m.verts = append(m.verts, vertexSlot{pos: p, alive: true})
	m.liveVerts++
	m.gen++
	return len(m.verts) - 1
}

// AddFace appends a face over the given vertex indices. It fails with
// ErrInvalidTopology if any index is out of range or dead, or if fewer than
// three distinct indices are given. On failure the mesh is unchanged.
func (m *Mesh) AddFace(indices ...VertexIndex) (FaceIndex, error) {
	distinct := make(map[VertexIndex]struct{}, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(m.verts) {
			return 0, fmt.Errorf("mesh: face vertex %d out of range: %w", idx, ErrInvalidTopology)
		}
		if !m.verts[idx].alive {
			return 0, fmt.Errorf("mesh: face references removed vertex %d: %w", idx, ErrInvalidTopology)
		}
		distinct[idx] = struct{}{}
	}
	if len(distinct) < 3 {
		return 0, fmt.Errorf("mesh: face needs at least 3 distinct vertices, got %d: %w", len(distinct), ErrInvalidTopology)
	}

	verts := make([]VertexIndex, len(indices))
	copy(verts, indices)
	m.faces = append(m.faces, faceSlot{verts: verts, alive: true})
	m.liveFaces++
	m.gen++
	return len(m.faces) - 1, nil
}

// RemoveVertex tombstones the vertex at idx. It fails with ErrVertexInUse
// while any live face references the vertex; remove those faces first.
func (m *Mesh) RemoveVertex(idx VertexIndex) error {
	if idx < 0 || idx >= len(m.verts) || !m.verts[idx].alive {
		return fmt.Errorf("mesh: vertex %d: %w", idx, ErrNotFound)
	}
	for fi := range m.faces {
		if !m.faces[fi].alive {
			continue
		}
		for _, v := range m.faces[fi].verts {
			if v == idx {
				return fmt.Errorf("mesh: vertex %d referenced by face %d: %w", idx, fi, ErrVertexInUse)
			}
		}
	}
	m.verts[idx] = vertexSlot{}
	m.liveVerts--
	m.gen++
	return nil
}

// RemoveFace tombstones the face at idx.
func (m *Mesh) RemoveFace(idx FaceIndex) error {
	if idx < 0 || idx >= len(m.faces) || !m.faces[idx].alive {
		return fmt.Errorf("mesh: face %d: %w", idx, ErrNotFound)
	}
	m.faces[idx] = faceSlot{}
	m.liveFaces--
	m.gen++
	return nil
}

// VertexPosition returns the position of a live vertex.
func (m *Mesh) VertexPosition(idx VertexIndex) (geom.Vec3, bool) {
	if idx < 0 || idx >= len(m.verts) || !m.verts[idx].alive {
		return geom.Vec3{}, false
	}
	return m.verts[idx].pos, true
}

// VertexAlive reports whether idx names a live vertex.
func (m *Mesh) VertexAlive(idx VertexIndex) bool {
	return idx >= 0 && idx < len(m.verts) && m.verts[idx].alive
}

// Face returns the face at idx if it is live. The returned vertex slice is
// a copy.
func (m *Mesh) Face(idx FaceIndex) (Face, bool) {
	if idx < 0 || idx >= len(m.faces) || !m.faces[idx].alive {
		return Face{}, false
	}
	verts := make([]VertexIndex, len(m.faces[idx].verts))
	copy(verts, m.faces[idx].verts)
	return Face{Index: idx, Vertices: verts}, true
}

// Faces returns all live faces in index order.
func (m *Mesh) Faces() []Face {
	out := make([]Face, 0, m.liveFaces)
	for fi := range m.faces {
		if f, ok := m.Face(fi); ok {
			out = append(out, f)
		}
	}
	return out
}

// VertexCount returns the number of live vertices.
func (m *Mesh) VertexCount() int { return m.liveVerts }

// FaceCount returns the number of live faces.
func (m *Mesh) FaceCount() int { return m.liveFaces }

// SlotCount returns the total number of vertex slots including tombstones.
// Spatial indexes size their arenas from this.
func (m *Mesh) SlotCount() int { return len(m.verts) }

// IsEmpty reports whether the mesh has no live vertices.
func (m *Mesh) IsEmpty() bool { return m.liveVerts == 0 }

// Generation returns a counter incremented by every mutation. A spatial
// index built at generation g is only guaranteed correct while
// Generation() == g.
func (m *Mesh) Generation() uint64 { return m.gen }

// LiveVertices returns the indices of all live vertices in ascending order.
func (m *Mesh) LiveVertices() []VertexIndex {
	out := make([]VertexIndex, 0, m.liveVerts)
	for i := range m.verts {
		if m.verts[i].alive {
			out = append(out, i)
		}
	}
	return out
}

// Bounds returns the bounding box of all live vertices.
func (m *Mesh) Bounds() geom.Box {
	b := geom.EmptyBox()
	for i := range m.verts {
		if m.verts[i].alive {
			b = b.Extend(m.verts[i].pos)
		}
	}
	return b
}

// SetNormal stores a per-vertex normal attribute.
func (m *Mesh) SetNormal(idx VertexIndex, n geom.Vec3) bool {
	if !m.VertexAlive(idx) {
		return false
	}
	m.verts[idx].normal = n
	m.verts[idx].hasNormal = true
	return true
}

// Normal returns the stored normal for a vertex, if one was set.
func (m *Mesh) Normal(idx VertexIndex) (geom.Vec3, bool) {
	if !m.VertexAlive(idx) || !m.verts[idx].hasNormal {
		return geom.Vec3{}, false
	}
	return m.verts[idx].normal, true
}

// SetTag stores a feature classification on a vertex. Attribute writes do
// not bump the generation: they change no geometry a spatial index depends on.
func (m *Mesh) SetTag(idx VertexIndex, t FeatureTag) bool {
	if !m.VertexAlive(idx) {
		return false
	}
	m.verts[idx].tag = t
	return true
}

// Tag returns the feature classification of a vertex (TagNone if unset).
func (m *Mesh) Tag(idx VertexIndex) FeatureTag {
	if !m.VertexAlive(idx) {
		return TagNone
	}
	return m.verts[idx].tag
}
