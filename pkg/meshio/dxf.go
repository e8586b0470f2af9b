package meshio

import (
	"fmt"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"

	"github.com/chisel3d/chisel/pkg/mesh"
)

// WriteFeatureEdgesDXF writes the given boundary and sharp edges of m as a
// DXF drawing with one layer per feature kind. CAD tooling downstream uses
// these as trim/reference geometry; faces are intentionally not exported.
func WriteFeatureEdgesDXF(path string, m *mesh.Mesh, boundary, sharp []mesh.Edge) error {
	d := dxf.NewDrawing()

	if len(boundary) > 0 {
		if _, err := d.AddLayer("BOUNDARY", color.Green, dxf.DefaultLineType, true); err != nil {
			return fmt.Errorf("meshio: dxf: %w", err)
		}
		if err := drawEdges(d, m, boundary); err != nil {
			return err
		}
	}
	if len(sharp) > 0 {
		if _, err := d.AddLayer("SHARP", color.Red, dxf.DefaultLineType, true); err != nil {
			return fmt.Errorf("meshio: dxf: %w", err)
		}
		if err := drawEdges(d, m, sharp); err != nil {
			return err
		}
	}

	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("meshio: dxf: %w", err)
	}
	return nil
}

func drawEdges(d *drawing.Drawing, m *mesh.Mesh, edges []mesh.Edge) error {
	for _, e := range edges {
		a, okA := m.VertexPosition(e.A)
		b, okB := m.VertexPosition(e.B)
		if !okA || !okB {
			return fmt.Errorf("meshio: dxf: edge (%d,%d) references dead vertex", e.A, e.B)
		}
		if _, err := d.Line(a.X, a.Y, a.Z, b.X, b.Y, b.Z); err != nil {
			return fmt.Errorf("meshio: dxf: %w", err)
		}
	}
	return nil
}
