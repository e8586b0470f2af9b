package meshio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chisel3d/chisel/pkg/geom"
	"github.com/chisel3d/chisel/pkg/mesh"
)

// ReadOBJ parses Wavefront OBJ data into a mesh. Supported statements are
// v, vn and f (with v, v/vt, v//vn and v/vt/vn vertex references and
// negative relative indices); everything else is ignored, as OBJ tooling
// conventionally does. Malformed statements fail with a *ParseError
// carrying the line number.
func ReadOBJ(r io.Reader, path string) (*mesh.Mesh, error) {
	m := mesh.New()
	var normals []geom.Vec3

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			p, err := parseVec(fields[1:])
			if err != nil {
				return nil, &ParseError{Path: path, Line: lineNo, Msg: "vertex: " + err.Error()}
			}
			m.AddVertex(p)
		case "vn":
			n, err := parseVec(fields[1:])
			if err != nil {
				return nil, &ParseError{Path: path, Line: lineNo, Msg: "normal: " + err.Error()}
			}
			normals = append(normals, n)
		case "f":
			if err := parseFace(m, normals, fields[1:], path, lineNo); err != nil {
				return nil, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Path: path, Line: lineNo, Msg: err.Error()}
	}
	return m, nil
}

// ReadOBJFile opens and parses an OBJ file.
func ReadOBJFile(path string) (*mesh.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadOBJ(f, path)
}

func parseVec(fields []string) (geom.Vec3, error) {
	if len(fields) < 3 {
		return geom.Vec3{}, fmt.Errorf("want 3 coordinates, got %d", len(fields))
	}
	var c [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return geom.Vec3{}, fmt.Errorf("coordinate %q", fields[i])
		}
		c[i] = v
	}
	return geom.Vec3{X: c[0], Y: c[1], Z: c[2]}, nil
}

func parseFace(m *mesh.Mesh, normals []geom.Vec3, refs []string, path string, lineNo int) error {
	if len(refs) < 3 {
		return &ParseError{Path: path, Line: lineNo, Msg: fmt.Sprintf("face with %d vertices", len(refs))}
	}
	indices := make([]mesh.VertexIndex, 0, len(refs))
	normalOf := make(map[mesh.VertexIndex]int)
	for _, ref := range refs {
		parts := strings.Split(ref, "/")
		vi, err := resolveIndex(parts[0], m.SlotCount())
		if err != nil {
			return &ParseError{Path: path, Line: lineNo, Msg: "face vertex " + err.Error()}
		}
		indices = append(indices, vi)
		if len(parts) == 3 && parts[2] != "" {
			ni, err := resolveIndex(parts[2], len(normals))
			if err != nil {
				return &ParseError{Path: path, Line: lineNo, Msg: "face normal " + err.Error()}
			}
			normalOf[vi] = ni
		}
	}
	if _, err := m.AddFace(indices...); err != nil {
		return &ParseError{Path: path, Line: lineNo, Msg: err.Error()}
	}
	for vi, ni := range normalOf {
		m.SetNormal(vi, normals[ni])
	}
	return nil
}

// resolveIndex converts a 1-based or negative-relative OBJ index into a
// 0-based index, checking range against count.
func resolveIndex(s string, count int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("index %q", s)
	}
	switch {
	case n > 0 && n <= count:
		return n - 1, nil
	case n < 0 && -n <= count:
		return count + n, nil
	default:
		return 0, fmt.Errorf("index %d out of range (have %d)", n, count)
	}
}

// WriteOBJ serializes the live vertices and faces of m as OBJ. Tombstoned
// slots are compacted away in the output; face references are remapped
// accordingly. Stored vertex normals are emitted as vn statements and
// non-default feature tags as "# tag" comment lines keyed by the output
// vertex number.
func WriteOBJ(w io.Writer, m *mesh.Mesh) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# exported by chisel")

	remap := make(map[mesh.VertexIndex]int, m.VertexCount())
	hasNormals := false
	for outIdx, vi := range m.LiveVertices() {
		p, _ := m.VertexPosition(vi)
		fmt.Fprintf(bw, "v %g %g %g\n", p.X, p.Y, p.Z)
		remap[vi] = outIdx + 1
		if _, ok := m.Normal(vi); ok {
			hasNormals = true
		}
	}

	if hasNormals {
		for _, vi := range m.LiveVertices() {
			n, ok := m.Normal(vi)
			if !ok {
				n = geom.Vec3{}
			}
			fmt.Fprintf(bw, "vn %g %g %g\n", n.X, n.Y, n.Z)
		}
	}

	for _, vi := range m.LiveVertices() {
		if t := m.Tag(vi); t != mesh.TagNone {
			fmt.Fprintf(bw, "# tag %d %s\n", remap[vi], t)
		}
	}

	for _, f := range m.Faces() {
		fmt.Fprint(bw, "f")
		for _, vi := range f.Vertices {
			if hasNormals {
				fmt.Fprintf(bw, " %d//%d", remap[vi], remap[vi])
			} else {
				fmt.Fprintf(bw, " %d", remap[vi])
			}
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// WriteOBJFile serializes m to an OBJ file.
func WriteOBJFile(path string, m *mesh.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteOBJ(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
