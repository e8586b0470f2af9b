package mesh

import "fmt"

// ValidationSeverity indicates whether a finding is a hard defect or
// merely suspicious.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // structural defect
	SeverityWarning                           // suspicious but usable
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Face     FaceIndex // offending face, -1 for mesh-level findings
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	if e.Face < 0 {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] face %d: %s", e.Severity, e.Face, e.Message)
}

// Validate runs structural checks over the mesh and returns all findings.
// An empty result means the mesh is structurally sound. Validate is
// read-only.
//
// AddFace already rejects malformed faces, so errors here indicate either
// external construction of a Mesh value or a bug in the mutation paths.
func Validate(m *Mesh) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateFaceRefs(m)...)
	errs = append(errs, validateDegenerate(m)...)
	errs = append(errs, validateNonManifold(m)...)
	return errs
}

// validateFaceRefs checks that every live face references live vertices.
func validateFaceRefs(m *Mesh) []ValidationError {
	var errs []ValidationError
	for fi := range m.faces {
		if !m.faces[fi].alive {
			continue
		}
		for _, v := range m.faces[fi].verts {
			if v < 0 || v >= len(m.verts) {
				errs = append(errs, ValidationError{
					Face:     fi,
					Message:  fmt.Sprintf("vertex index %d out of range", v),
					Severity: SeverityError,
				})
			} else if !m.verts[v].alive {
				errs = append(errs, ValidationError{
					Face:     fi,
					Message:  fmt.Sprintf("references removed vertex %d", v),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// validateDegenerate flags faces with repeated vertices or zero area.
func validateDegenerate(m *Mesh) []ValidationError {
	var errs []ValidationError
	for fi := range m.faces {
		if !m.faces[fi].alive {
			continue
		}
		verts := m.faces[fi].verts
		seen := make(map[VertexIndex]struct{}, len(verts))
		for _, v := range verts {
			seen[v] = struct{}{}
		}
		if len(seen) < len(verts) {
			errs = append(errs, ValidationError{
				Face:     fi,
				Message:  "repeated vertex in face ring",
				Severity: SeverityError,
			})
			continue
		}
		if _, ok := m.FaceNormal(fi); !ok {
			errs = append(errs, ValidationError{
				Face:     fi,
				Message:  "zero-area face",
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// validateNonManifold flags edges shared by more than two faces.
func validateNonManifold(m *Mesh) []ValidationError {
	var errs []ValidationError
	for e, faces := range m.EdgeFaces() {
		if len(faces) > 2 {
			errs = append(errs, ValidationError{
				Face:     -1,
				Message:  fmt.Sprintf("edge (%d,%d) shared by %d faces", e.A, e.B, len(faces)),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}
