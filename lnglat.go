package geomedea

import (
	"math"
)

// coordScale is the fixed-precision scale factor: one unit is 1/coordScale
// of a degree, giving ~1.1cm precision at the equator.
const coordScale = 1e7

// LngLat is a single coordinate stored as fixed-precision signed 32-bit
// integers: degrees * 10^7, rounded half-to-even.
type LngLat struct {
	LngFixed int32
	LatFixed int32
}

// FromDegrees builds an LngLat from floating point degrees, saturating at
// the int32 range rather than wrapping if the input is out of bounds.
func FromDegrees(lngDegrees, latDegrees float64) LngLat {
	return LngLat{
		LngFixed: toFixed(lngDegrees),
		LatFixed: toFixed(latDegrees),
	}
}

// LngDegrees returns the longitude in floating point degrees.
func (c LngLat) LngDegrees() float64 {
	return toFloat(c.LngFixed)
}

// LatDegrees returns the latitude in floating point degrees.
func (c LngLat) LatDegrees() float64 {
	return toFloat(c.LatFixed)
}

func (c LngLat) String() string {
	return wktPoint(c)
}

// toFixed converts a floating point degree value to its fixed-precision
// int32 representation, rounding half-to-even and saturating at the int32
// range instead of wrapping on overflow.
func toFixed(degrees float64) int32 {
	scaled := math.RoundToEven(degrees * coordScale)
	if scaled >= math.MaxInt32 {
		return math.MaxInt32
	}
	if scaled <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(scaled)
}

// toFloat converts a fixed-precision int32 back to floating point degrees.
func toFloat(fixed int32) float64 {
	return float64(fixed) / coordScale
}
