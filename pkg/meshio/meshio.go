// Package meshio imports and exports meshes. Importers produce a fully
// populated Mesh from an external representation and exporters serialize
// one back; neither side ever touches a spatial index. Feature tags travel
// through the mesh itself: classify first, then export.
package meshio

import "fmt"

// ParseError reports malformed import input with its location.
type ParseError struct {
	Path string // input path, may be empty for stream input
	Line int    // 1-based line number, 0 if not line-oriented
	Msg  string
}

func (e *ParseError) Error() string {
	switch {
	case e.Path != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Path, e.Msg)
	default:
		return e.Msg
	}
}
