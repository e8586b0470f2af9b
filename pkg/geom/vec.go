// Package geom provides the small 3D vector and bounding-box math shared by
// the mesh, index, and feature packages.
package geom

import "math"

// Vec3 is a 3D point or direction. It is a plain value type; identity is
// coordinate equality.
type Vec3 struct {
	X, Y, Z float64
}

// Component returns the coordinate along axis i (0=X, 1=Y, 2=Z).
func (v Vec3) Component(i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z}
}

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{v.X - w.X, v.Y - w.Y, v.Z - w.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Dot returns the dot product of v and w.
func (v Vec3) Dot(w Vec3) float64 {
	return v.X*w.X + v.Y*w.Y + v.Z*w.Z
}

// Cross returns the cross product of v and w.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		v.Y*w.Z - v.Z*w.Y,
		v.Z*w.X - v.X*w.Z,
		v.X*w.Y - v.Y*w.X,
	}
}

// Length returns the Euclidean length of v.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

// LengthSq returns the squared length of v.
func (v Vec3) LengthSq() float64 {
	return v.Dot(v)
}

// Normalize returns v scaled to unit length. The zero vector is returned
// unchanged.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

// Distance returns the Euclidean distance between v and w.
func (v Vec3) Distance(w Vec3) float64 {
	return v.Sub(w).Length()
}

// DistanceSq returns the squared Euclidean distance between v and w.
// Proximity comparisons use this form; the square root is taken only at
// result boundaries.
func (v Vec3) DistanceSq(w Vec3) float64 {
	return v.Sub(w).LengthSq()
}

// AngleBetween returns the angle between v and w in radians, in [0, pi].
func (v Vec3) AngleBetween(w Vec3) float64 {
	d := v.Normalize().Dot(w.Normalize())
	// Clamp against rounding drift before acos.
	if d > 1 {
		d = 1
	} else if d < -1 {
		d = -1
	}
	return math.Acos(d)
}
