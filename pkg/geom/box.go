package geom

// Box is an axis-aligned bounding box. The zero Box is not valid; use
// NewBox or EmptyBox.
type Box struct {
	Min, Max Vec3
}

// NewBox returns the box spanning exactly the given points.
func NewBox(pts ...Vec3) Box {
	b := EmptyBox()
	for _, p := range pts {
		b = b.Extend(p)
	}
	return b
}

// EmptyBox returns an inverted box that Extend can grow from.
func EmptyBox() Box {
	const huge = 1e300
	return Box{
		Min: Vec3{huge, huge, huge},
		Max: Vec3{-huge, -huge, -huge},
	}
}

// Extend returns b grown to include p.
func (b Box) Extend(p Vec3) Box {
	if p.X < b.Min.X {
		b.Min.X = p.X
	}
	if p.Y < b.Min.Y {
		b.Min.Y = p.Y
	}
	if p.Z < b.Min.Z {
		b.Min.Z = p.Z
	}
	if p.X > b.Max.X {
		b.Max.X = p.X
	}
	if p.Y > b.Max.Y {
		b.Max.Y = p.Y
	}
	if p.Z > b.Max.Z {
		b.Max.Z = p.Z
	}
	return b
}

// Union returns the smallest box containing both b and o.
func (b Box) Union(o Box) Box {
	return b.Extend(o.Min).Extend(o.Max)
}

// Contains reports whether p lies within b (boundary inclusive).
func (b Box) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Size returns the extent of b along each axis.
func (b Box) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint of b.
func (b Box) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// DistanceSq returns the squared distance from p to the closest point of b,
// or 0 if p is inside.
func (b Box) DistanceSq(p Vec3) float64 {
	var d float64
	for i := 0; i < 3; i++ {
		c := p.Component(i)
		lo := b.Min.Component(i)
		hi := b.Max.Component(i)
		if c < lo {
			d += (lo - c) * (lo - c)
		} else if c > hi {
			d += (c - hi) * (c - hi)
		}
	}
	return d
}

// IntersectsSphere reports whether the sphere at center with the given
// radius touches b.
func (b Box) IntersectsSphere(center Vec3, radius float64) bool {
	return b.DistanceSq(center) <= radius*radius
}
