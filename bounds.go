package geomedea

import (
	"fmt"
	"math"
)

// Bounds is an axis-aligned bounding box in fixed-precision coordinates.
//
// An empty Bounds uses the sentinel MinLng > MaxLng (and MinLat > MaxLat),
// matching geomedea's min/max-sentinel convention rather than a boolean
// flag. Bounds.Union and Bounds.Intersects treat that sentinel correctly:
// an empty bounds unions away to nothing, and never intersects anything.
//
// geomedea never splits a bounds across the antimeridian: a feature whose
// geometry crosses +/-180 degrees longitude is represented, as-is, with
// MinLng > MaxLng. Intersects and Union below do plain per-axis min/max
// comparisons and do not attempt to unwrap or special-case that crossing --
// see DESIGN.md for the rationale (this mirrors original_source/src/bounds.rs,
// whose from_corners explicitly leaves IDL-wrapping as a TODO). A caller
// issuing a bbox query that itself straddles the antimeridian must split the
// query into two non-crossing boxes before calling SelectBBox.
type Bounds struct {
	MinLng, MinLat, MaxLng, MaxLat int32
}

// EmptyBounds is the canonical empty bounds: min sentinels greater than max
// sentinels, so that Union with any real bounds yields that bounds
// unchanged and Intersects is always false.
var EmptyBounds = Bounds{
	MinLng: math.MaxInt32,
	MinLat: math.MaxInt32,
	MaxLng: math.MinInt32,
	MaxLat: math.MinInt32,
}

// IsEmpty reports whether b is exactly the empty sentinel bounds. This is
// an equality check against EmptyBounds, not a MinLng > MaxLng test --
// that inequality also holds for a legitimate antimeridian-crossing
// bounds (see the type doc above), so it cannot be used to detect
// emptiness.
func (b Bounds) IsEmpty() bool {
	return b == EmptyBounds
}

// BoundsFromPoint returns the degenerate bounds containing exactly one
// point.
func BoundsFromPoint(p LngLat) Bounds {
	return Bounds{MinLng: p.LngFixed, MinLat: p.LatFixed, MaxLng: p.LngFixed, MaxLat: p.LatFixed}
}

// ExtendPoint grows b (in place) to cover p.
func (b *Bounds) ExtendPoint(p LngLat) {
	if p.LngFixed < b.MinLng {
		b.MinLng = p.LngFixed
	}
	if p.LatFixed < b.MinLat {
		b.MinLat = p.LatFixed
	}
	if p.LngFixed > b.MaxLng {
		b.MaxLng = p.LngFixed
	}
	if p.LatFixed > b.MaxLat {
		b.MaxLat = p.LatFixed
	}
}

// Union returns the bounds covering both a and b. An empty operand
// contributes nothing.
func Union(a, b Bounds) Bounds {
	if a.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return a
	}
	u := a
	u.Extend(b)
	return u
}

// Extend grows b (in place) to cover other. If other is empty, b is
// unchanged.
func (b *Bounds) Extend(other Bounds) {
	if other.IsEmpty() {
		return
	}
	if b.IsEmpty() {
		*b = other
		return
	}
	if other.MinLng < b.MinLng {
		b.MinLng = other.MinLng
	}
	if other.MinLat < b.MinLat {
		b.MinLat = other.MinLat
	}
	if other.MaxLng > b.MaxLng {
		b.MaxLng = other.MaxLng
	}
	if other.MaxLat > b.MaxLat {
		b.MaxLat = other.MaxLat
	}
}

// Intersects reports whether a and b overlap, inclusive of touching edges.
// An empty bounds never intersects anything, including another empty
// bounds.
func Intersects(a, b Bounds) bool {
	if a.IsEmpty() || b.IsEmpty() {
		return false
	}
	return a.MinLng <= b.MaxLng && a.MaxLng >= b.MinLng &&
		a.MinLat <= b.MaxLat && a.MaxLat >= b.MinLat
}

// Union returns the bounds covering both b and other; method form of the
// package-level Union function, for call-site convenience.
func (b Bounds) Union(other Bounds) Bounds {
	return Union(b, other)
}

// Intersects reports whether b and other overlap; method form of the
// package-level Intersects function.
func (b Bounds) Intersects(other Bounds) bool {
	return Intersects(b, other)
}

// Center returns the centroid of b.
func (b Bounds) Center() LngLat {
	return LngLat{
		LngFixed: b.MinLng + (b.MaxLng-b.MinLng)/2,
		LatFixed: b.MinLat + (b.MaxLat-b.MinLat)/2,
	}
}

func (b Bounds) String() string {
	return fmt.Sprintf("RECT(%g %g,%g %g)", toFloat(b.MinLng), toFloat(b.MinLat), toFloat(b.MaxLng), toFloat(b.MaxLat))
}
