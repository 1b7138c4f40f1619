package geomedea

// GeometryKind is the stable tag byte identifying a Geometry's concrete
// type on disk.
type GeometryKind uint8

const (
	KindPoint GeometryKind = iota
	KindLineString
	KindPolygon
	KindMultiPoint
	KindMultiLineString
	KindMultiPolygon
	KindGeometryCollection
)

func (k GeometryKind) String() string {
	switch k {
	case KindPoint:
		return "Point"
	case KindLineString:
		return "LineString"
	case KindPolygon:
		return "Polygon"
	case KindMultiPoint:
		return "MultiPoint"
	case KindMultiLineString:
		return "MultiLineString"
	case KindMultiPolygon:
		return "MultiPolygon"
	case KindGeometryCollection:
		return "GeometryCollection"
	default:
		return "Unknown"
	}
}

// Geometry is the tagged-variant geometry type: exactly one of Point,
// LineString, Polygon, MultiPoint, MultiLineString, MultiPolygon, or
// GeometryCollection implements it.
type Geometry interface {
	// Kind returns the on-disk tag byte for this geometry's concrete type.
	Kind() GeometryKind
	// extendBounds grows bounds to cover this geometry's coordinates.
	extendBounds(bounds *Bounds)
	encode(w *encodeBuf) error
}

// Point is a single coordinate.
type Point LngLat

func (Point) Kind() GeometryKind { return KindPoint }
func (p Point) extendBounds(b *Bounds) { b.ExtendPoint(LngLat(p)) }
func (p Point) encode(w *encodeBuf) error {
	w.putI32(p.LngFixed)
	w.putI32(p.LatFixed)
	return nil
}

// LineString is an ordered, non-closing-duplicate-required coordinate
// sequence.
type LineString []LngLat

func (LineString) Kind() GeometryKind { return KindLineString }
func (l LineString) extendBounds(b *Bounds) {
	for _, p := range l {
		b.ExtendPoint(p)
	}
}
func (l LineString) encode(w *encodeBuf) error {
	w.putCoordSeq(l)
	return nil
}

// Polygon is an outer ring followed by zero or more inner rings. Producers
// SHOULD supply closed rings; the codec does not enforce closure.
type Polygon []LineString

func (Polygon) Kind() GeometryKind { return KindPolygon }
func (p Polygon) extendBounds(b *Bounds) {
	for _, ring := range p {
		ring.extendBounds(b)
	}
}
func (p Polygon) encode(w *encodeBuf) error {
	w.putUvarint(uint64(len(p)))
	for _, ring := range p {
		w.putCoordSeq(ring)
	}
	return nil
}

// MultiPoint is a flat list of points.
type MultiPoint []LngLat

func (MultiPoint) Kind() GeometryKind { return KindMultiPoint }
func (m MultiPoint) extendBounds(b *Bounds) {
	for _, p := range m {
		b.ExtendPoint(p)
	}
}
func (m MultiPoint) encode(w *encodeBuf) error {
	w.putCoordSeq(m)
	return nil
}

// MultiLineString is an ordered list of LineStrings.
type MultiLineString []LineString

func (MultiLineString) Kind() GeometryKind { return KindMultiLineString }
func (m MultiLineString) extendBounds(b *Bounds) {
	for _, l := range m {
		l.extendBounds(b)
	}
}
func (m MultiLineString) encode(w *encodeBuf) error {
	w.putUvarint(uint64(len(m)))
	for _, l := range m {
		w.putCoordSeq(l)
	}
	return nil
}

// MultiPolygon is an ordered list of Polygons.
type MultiPolygon []Polygon

func (MultiPolygon) Kind() GeometryKind { return KindMultiPolygon }
func (m MultiPolygon) extendBounds(b *Bounds) {
	for _, p := range m {
		p.extendBounds(b)
	}
}
func (m MultiPolygon) encode(w *encodeBuf) error {
	w.putUvarint(uint64(len(m)))
	for _, p := range m {
		if err := p.encode(w); err != nil {
			return err
		}
	}
	return nil
}

// GeometryCollection is an ordered list of heterogeneous geometries.
// Nesting is disallowed: a GeometryCollection may not contain another
// GeometryCollection (see SPEC_FULL.md Section D).
type GeometryCollection []Geometry

func (GeometryCollection) Kind() GeometryKind { return KindGeometryCollection }
func (g GeometryCollection) extendBounds(b *Bounds) {
	for _, child := range g {
		child.extendBounds(b)
	}
}
func (g GeometryCollection) encode(w *encodeBuf) error {
	w.putUvarint(uint64(len(g)))
	for _, child := range g {
		if k := child.Kind(); k == KindGeometryCollection {
			return fmtErr(ErrInvalidVariant, "nested %s is not allowed inside a GeometryCollection", k)
		}
		if err := encodeGeometry(w, child); err != nil {
			return err
		}
	}
	return nil
}

// GeometryBounds computes the bounding box of any Geometry.
func GeometryBounds(g Geometry) Bounds {
	b := EmptyBounds
	g.extendBounds(&b)
	return b
}

func encodeGeometry(w *encodeBuf, g Geometry) error {
	w.putByte(byte(g.Kind()))
	return g.encode(w)
}

// decodeGeometry reads one tagged geometry from r. allowCollection is false
// when decoding a member of an enclosing GeometryCollection, enforcing the
// no-nesting rule.
func decodeGeometry(r *decodeBuf, allowCollection bool) (Geometry, error) {
	tagByte, err := r.getByte()
	if err != nil {
		return nil, err
	}
	kind := GeometryKind(tagByte)
	switch kind {
	case KindPoint:
		lng, err := r.getI32()
		if err != nil {
			return nil, err
		}
		lat, err := r.getI32()
		if err != nil {
			return nil, err
		}
		return Point{LngFixed: lng, LatFixed: lat}, nil
	case KindLineString:
		seq, err := r.getCoordSeq()
		if err != nil {
			return nil, err
		}
		return LineString(seq), nil
	case KindPolygon:
		return decodePolygonBody(r)
	case KindMultiPoint:
		seq, err := r.getCoordSeq()
		if err != nil {
			return nil, err
		}
		return MultiPoint(seq), nil
	case KindMultiLineString:
		n, err := r.getCount(1) // each member LineString encodes to at least a 1-byte count varint
		if err != nil {
			return nil, err
		}
		lines := make(MultiLineString, 0, n)
		for i := uint64(0); i < n; i++ {
			seq, err := r.getCoordSeq()
			if err != nil {
				return nil, err
			}
			lines = append(lines, LineString(seq))
		}
		return lines, nil
	case KindMultiPolygon:
		n, err := r.getCount(1) // each member Polygon encodes to at least a 1-byte ring-count varint
		if err != nil {
			return nil, err
		}
		polys := make(MultiPolygon, 0, n)
		for i := uint64(0); i < n; i++ {
			p, err := decodePolygonBody(r)
			if err != nil {
				return nil, err
			}
			polys = append(polys, p)
		}
		return polys, nil
	case KindGeometryCollection:
		if !allowCollection {
			return nil, fmtErr(ErrInvalidVariant, "nested %s is not allowed inside a GeometryCollection", kind)
		}
		n, err := r.getCount(1) // each member geometry encodes to at least a 1-byte tag
		if err != nil {
			return nil, err
		}
		children := make(GeometryCollection, 0, n)
		for i := uint64(0); i < n; i++ {
			child, err := decodeGeometry(r, false)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return children, nil
	default:
		return nil, fmtErr(ErrInvalidVariant, "unknown geometry tag %d", tagByte)
	}
}

// decodePolygonBody reads a Polygon's ring list without a leading tag
// byte, shared by the tagged Polygon case and MultiPolygon's tagless
// per-member encoding (Polygon.encode/MultiPolygon.encode above never tag
// their ring lists individually; only the outer geometry is tagged).
func decodePolygonBody(r *decodeBuf) (Polygon, error) {
	n, err := r.getCount(1) // each ring encodes to at least a 1-byte coordinate-count varint
	if err != nil {
		return nil, err
	}
	rings := make(Polygon, 0, n)
	for i := uint64(0); i < n; i++ {
		seq, err := r.getCoordSeq()
		if err != nil {
			return nil, err
		}
		rings = append(rings, LineString(seq))
	}
	return rings, nil
}

// putCoordSeq/getCoordSeq implement the length-prefixed coordinate sequence
// encoding shared by LineString, MultiPoint, and each Polygon ring
// (spec.md Section 4.2): varint count followed by count pairs of
// little-endian int32.

func (w *encodeBuf) putCoordSeq(points []LngLat) {
	w.putUvarint(uint64(len(points)))
	for _, p := range points {
		w.putI32(p.LngFixed)
		w.putI32(p.LatFixed)
	}
}

func (r *decodeBuf) getCoordSeq() ([]LngLat, error) {
	n, err := r.getCount(8) // each coordinate pair is 2 little-endian int32s
	if err != nil {
		return nil, err
	}
	points := make([]LngLat, 0, n)
	for i := uint64(0); i < n; i++ {
		lng, err := r.getI32()
		if err != nil {
			return nil, err
		}
		lat, err := r.getI32()
		if err != nil {
			return nil, err
		}
		points = append(points, LngLat{LngFixed: lng, LatFixed: lat})
	}
	return points, nil
}
