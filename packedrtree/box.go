// Package packedrtree implements the packed, Hilbert-ordered R-tree index
// used to answer bounding-box queries against a geomedea file's pages
// without decoding feature bytes. It has no dependency on the geomedea
// package proper -- the root package converts its own Bounds type to and
// from Box at the boundary -- mirroring the teacher's packedrtree
// subpackage, which likewise knows nothing of flatgeobuf's own Feature
// type.
package packedrtree

// Box is an axis-aligned bounding box in fixed-precision coordinate
// space (the same int32, degrees*1e7 space as geomedea.Bounds).
type Box struct {
	MinX, MinY, MaxX, MaxY int32
}

func (b Box) midX() int64 { return (int64(b.MinX) + int64(b.MaxX)) / 2 }
func (b Box) midY() int64 { return (int64(b.MinY) + int64(b.MaxY)) / 2 }

// Intersects reports whether b and other share at least one point,
// inclusive of their edges.
func (b Box) Intersects(other Box) bool {
	return b.MinX <= other.MaxX && b.MaxX >= other.MinX &&
		b.MinY <= other.MaxY && b.MaxY >= other.MinY
}

// Union returns the smallest box containing both b and other.
func (b Box) Union(other Box) Box {
	u := b
	if other.MinX < u.MinX {
		u.MinX = other.MinX
	}
	if other.MinY < u.MinY {
		u.MinY = other.MinY
	}
	if other.MaxX > u.MaxX {
		u.MaxX = other.MaxX
	}
	if other.MaxY > u.MaxY {
		u.MaxY = other.MaxY
	}
	return u
}
