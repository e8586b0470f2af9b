package meshio

import (
	"fmt"

	"github.com/hpinc/go3mf"

	"github.com/chisel3d/chisel/pkg/geom"
	"github.com/chisel3d/chisel/pkg/mesh"
)

// Read3MFFile loads every mesh object of a 3MF package into a single mesh.
// Object meshes are appended in resource order; their vertex index ranges
// stay disjoint.
func Read3MFFile(path string) (*mesh.Mesh, error) {
	r, err := go3mf.OpenReader(path)
	if err != nil {
		return nil, &ParseError{Path: path, Msg: err.Error()}
	}
	defer r.Close()

	var model go3mf.Model
	if err := r.Decode(&model); err != nil {
		return nil, &ParseError{Path: path, Msg: err.Error()}
	}

	m := mesh.New()
	for _, obj := range model.Resources.Objects {
		if obj.Mesh == nil {
			continue
		}
		base := m.SlotCount()
		for _, v := range obj.Mesh.Vertices.Vertex {
			m.AddVertex(geom.Vec3{X: float64(v.X()), Y: float64(v.Y()), Z: float64(v.Z())})
		}
		for ti, t := range obj.Mesh.Triangles.Triangle {
			_, err := m.AddFace(base+int(t.V1), base+int(t.V2), base+int(t.V3))
			if err != nil {
				return nil, &ParseError{
					Path: path,
					Msg:  fmt.Sprintf("object %d triangle %d: %v", obj.ID, ti, err),
				}
			}
		}
	}
	if m.IsEmpty() {
		return nil, &ParseError{Path: path, Msg: "no mesh objects"}
	}
	return m, nil
}

// Write3MFFile serializes the live geometry of m as a single-object 3MF
// package. 3MF is triangle-only: polygonal faces are fanned from their
// first vertex.
func Write3MFFile(path string, m *mesh.Mesh) error {
	out := new(go3mf.Mesh)

	remap := make(map[mesh.VertexIndex]uint32, m.VertexCount())
	for _, vi := range m.LiveVertices() {
		p, _ := m.VertexPosition(vi)
		remap[vi] = uint32(len(out.Vertices.Vertex))
		out.Vertices.Vertex = append(out.Vertices.Vertex,
			go3mf.Point3D{float32(p.X), float32(p.Y), float32(p.Z)})
	}
	for _, f := range m.Faces() {
		a := remap[f.Vertices[0]]
		for i := 1; i < len(f.Vertices)-1; i++ {
			out.Triangles.Triangle = append(out.Triangles.Triangle, go3mf.Triangle{
				V1: a,
				V2: remap[f.Vertices[i]],
				V3: remap[f.Vertices[i+1]],
			})
		}
	}

	model := new(go3mf.Model)
	model.Units = go3mf.UnitMillimeter
	obj := &go3mf.Object{ID: 1, Mesh: out}
	model.Resources.Objects = append(model.Resources.Objects, obj)
	model.Build.Items = append(model.Build.Items, &go3mf.Item{ObjectID: obj.ID})

	w, err := go3mf.CreateWriter(path)
	if err != nil {
		return fmt.Errorf("meshio: 3mf: %w", err)
	}
	if err := w.Encode(model); err != nil {
		w.Close()
		return fmt.Errorf("meshio: 3mf: %w", err)
	}
	return w.Close()
}
