package geomedea

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometry_EncodeDecode_RoundTrip(t *testing.T) {
	p1 := FromDegrees(1, 2)
	p2 := FromDegrees(3, 4)
	p3 := FromDegrees(5, 6)

	testCases := []struct {
		name string
		geom Geometry
	}{
		{"Point", Point(p1)},
		{"LineString", LineString{p1, p2, p3}},
		{"Polygon", Polygon{LineString{p1, p2, p3, p1}}},
		{"PolygonWithHole", Polygon{
			LineString{p1, p2, p3, p1},
			LineString{p2, p3, p1, p2},
		}},
		{"MultiPoint", MultiPoint{p1, p2}},
		{"MultiLineString", MultiLineString{LineString{p1, p2}, LineString{p2, p3}}},
		{"MultiPolygon", MultiPolygon{
			Polygon{LineString{p1, p2, p3, p1}},
			Polygon{LineString{p2, p3, p1, p2}},
		}},
		{"GeometryCollection", GeometryCollection{Point(p1), LineString{p1, p2}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := &encodeBuf{}
			require.NoError(t, encodeGeometry(w, tc.geom))

			r := newDecodeBuf(w.Bytes())
			got, err := decodeGeometry(r, true)
			require.NoError(t, err)
			assert.Equal(t, tc.geom, got)
			assert.Equal(t, 0, r.remaining())
		})
	}
}

func TestGeometryCollection_NestingDisallowed(t *testing.T) {
	nested := GeometryCollection{GeometryCollection{}}
	w := &encodeBuf{}
	err := encodeGeometry(w, nested)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrInvalidVariant))
}

func TestGeometryBounds(t *testing.T) {
	line := LineString{FromDegrees(-10, -5), FromDegrees(10, 5)}
	b := GeometryBounds(line)
	assert.Equal(t, FromDegrees(-10, -5).LngFixed, b.MinLng)
	assert.Equal(t, FromDegrees(10, 5).LngFixed, b.MaxLng)
}

func TestDecodeGeometry_UnknownTag(t *testing.T) {
	r := newDecodeBuf([]byte{99})
	_, err := decodeGeometry(r, true)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrInvalidVariant))
}

// A LineString whose count varint claims far more points than the buffer
// could possibly hold must be rejected before allocating, not panic
// (spec.md Section 7, Truncated).
func TestDecodeGeometry_LineString_OversizedCountRejected(t *testing.T) {
	w := &encodeBuf{}
	w.putByte(byte(KindLineString))
	w.putUvarint(1 << 40)
	w.putI32(0) // four trailing bytes, nowhere near enough for the claimed count

	r := newDecodeBuf(w.Bytes())
	_, err := decodeGeometry(r, true)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrTruncated))
}

func TestDecodeGeometry_Polygon_OversizedRingCountRejected(t *testing.T) {
	w := &encodeBuf{}
	w.putByte(byte(KindPolygon))
	w.putUvarint(1 << 40)

	r := newDecodeBuf(w.Bytes())
	_, err := decodeGeometry(r, true)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrTruncated))
}

func TestDecodeGeometry_MultiPoint_OversizedCountRejected(t *testing.T) {
	w := &encodeBuf{}
	w.putByte(byte(KindMultiPoint))
	w.putUvarint(1 << 40)

	r := newDecodeBuf(w.Bytes())
	_, err := decodeGeometry(r, true)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrTruncated))
}

func TestDecodeGeometry_MultiLineString_OversizedCountRejected(t *testing.T) {
	w := &encodeBuf{}
	w.putByte(byte(KindMultiLineString))
	w.putUvarint(1 << 40)

	r := newDecodeBuf(w.Bytes())
	_, err := decodeGeometry(r, true)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrTruncated))
}

func TestDecodeGeometry_MultiPolygon_OversizedCountRejected(t *testing.T) {
	w := &encodeBuf{}
	w.putByte(byte(KindMultiPolygon))
	w.putUvarint(1 << 40)

	r := newDecodeBuf(w.Bytes())
	_, err := decodeGeometry(r, true)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrTruncated))
}

func TestDecodeGeometry_GeometryCollection_OversizedCountRejected(t *testing.T) {
	w := &encodeBuf{}
	w.putByte(byte(KindGeometryCollection))
	w.putUvarint(1 << 40)

	r := newDecodeBuf(w.Bytes())
	_, err := decodeGeometry(r, true)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrTruncated))
}
