package mesh

// FeatureTag classifies a vertex by the local surface features around it.
// The set is closed; feature detection assigns exactly one tag per vertex.
type FeatureTag int

const (
	TagNone     FeatureTag = iota // not yet classified
	TagInterior                   // smooth interior vertex
	TagBoundary                   // endpoint of an edge with exactly one incident face
	TagSharp                      // endpoint of an edge whose dihedral angle exceeds the threshold
	TagCorner                     // meeting point of three or more sharp/boundary edges
)

func (t FeatureTag) String() string {
	switch t {
	case TagNone:
		return "none"
	case TagInterior:
		return "interior"
	case TagBoundary:
		return "boundary"
	case TagSharp:
		return "sharp"
	case TagCorner:
		return "corner"
	default:
		return "unknown"
	}
}
