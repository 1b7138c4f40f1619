package packedrtree

// HilbertOrder is the default curve order (number of bits per axis) used
// when a geomedea file's header doesn't override it.
const HilbertOrder uint8 = 16

// wgs84 fixed-precision (degrees*1e7) extent, duplicated here rather than
// imported from the geomedea package to keep this package dependency-free.
// HilbertOf maps onto this fixed global extent rather than the dataset's
// own bounds, so two files covering different regions of the world remain
// comparably ordered.
const (
	wgs84LngFixedMin int64 = -1800000000
	wgs84LngFixedMax int64 = 1800000000
	wgs84LatFixedMin int64 = -900000000
	wgs84LatFixedMax int64 = 900000000
)

// HilbertOf returns the Hilbert curve index of b's centroid at the given
// curve order, used to order leaves before grouping them into tree nodes
// (spec.md Section 4.4, step 1).
func HilbertOf(b Box, order uint8) uint64 {
	n := uint64(1) << order
	x := scaleToGrid(b.midX(), wgs84LngFixedMin, wgs84LngFixedMax, n)
	y := scaleToGrid(b.midY(), wgs84LatFixedMin, wgs84LatFixedMax, n)
	return hilbertXY2D(order, x, y)
}

// scaleToGrid maps v, clamped to [lo, hi], onto a [0, n) integer grid.
func scaleToGrid(v, lo, hi int64, n uint64) uint32 {
	if hi <= lo {
		return 0
	}
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	span := hi - lo
	g := uint64(v-lo) * (n - 1) / uint64(span)
	return uint32(g)
}

// hilbertXY2D converts an (x, y) coordinate, each in [0, 2^order), to its
// index along a Hilbert curve of the given order. This is the classic
// iterative xy2d transform (see https://en.wikipedia.org/wiki/Hilbert_curve),
// parameterized by order rather than hardcoded to 16 bits like the
// teacher's bit-twiddling hilbertFromXY -- this index's header declares a
// configurable curve order (spec.md Section 6), so the transform must
// support more than one fixed width.
func hilbertXY2D(order uint8, x, y uint32) uint64 {
	n := uint64(1) << order
	xx, yy := uint64(x), uint64(y)
	var d uint64
	for s := n / 2; s > 0; s /= 2 {
		var rx, ry uint64
		if xx&s > 0 {
			rx = 1
		}
		if yy&s > 0 {
			ry = 1
		}
		d += s * s * ((3 * rx) ^ ry)
		xx, yy = hilbertRotate(n, xx, yy, rx, ry)
	}
	return d
}

func hilbertRotate(n, x, y, rx, ry uint64) (uint64, uint64) {
	if ry == 0 {
		if rx == 1 {
			x = n - 1 - x
			y = n - 1 - y
		}
		x, y = y, x
	}
	return x, y
}
