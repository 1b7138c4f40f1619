package geomedea

// magic is the fixed 8-byte file identifier (spec.md Section 6).
var magic = [8]byte{'g', 'e', 'o', 'm', 'e', 'd', 'e', 'a'}

// formatVersion is the only version this package can read or write.
const formatVersion uint32 = 3

// Layout selects where the index sits relative to the feature pages
// (spec.md Section 4.5): either choice is valid, and the choice is
// recorded in the header so a reader never has to guess.
type Layout uint8

const (
	// LayoutHeaderIndexFeatures is the reference layout: header, then
	// index, then feature pages. Chosen here because it lets a streaming
	// (HTTP range) reader fetch header+index in one prefix request before
	// it knows anything about page sizes.
	LayoutHeaderIndexFeatures Layout = iota
	// LayoutHeaderFeaturesIndex writes pages immediately after the header
	// and the index last, useful for a writer that cannot seek back to
	// patch a temporary file.
	LayoutHeaderFeaturesIndex
)

const (
	defaultHilbertOrder    uint8 = 16
	defaultBranchingFactor uint8 = 16
)

// maxIndexNodeCount bounds a header's declared index_node_count against an
// implausibly large value before Open/OpenHTTP allocate a node buffer sized
// off it (reader.go, http_reader.go): 2^24 nodes is a ~470MB index, far
// beyond any real geomedea file's packed R-tree, so a crafted header
// claiming more is rejected as truncated/invalid rather than driving a
// multi-exabyte allocation attempt (spec.md Section 7, Truncated).
const maxIndexNodeCount uint64 = 1 << 24

// Header is the fixed-plus-variable-length prelude of a geomedea file
// (spec.md Section 6).
type Header struct {
	Version         uint32
	Compression     CompressionKind
	HilbertOrder    uint8
	BranchingFactor uint8
	Layout          Layout
	Schema          PropertySchema
	TotalBounds     Bounds
	PageCount       uint64
	FeatureCount    uint64
	IndexNodeCount  uint64
	IndexByteOffset uint64
	FeatureBytesOffset uint64
}

// encode writes h's on-disk representation. IndexByteOffset and
// FeatureBytesOffset are placeholders until the writer knows their final
// values; encode always emits whatever is currently set, so callers that
// need to patch them in place must keep the header's on-disk byte length
// fixed across the rewrite (it is, since Schema is encoded before either
// offset field is emitted, and Schema does not change between the
// provisional and final write).
func (h *Header) encode() []byte {
	w := &encodeBuf{}
	w.buf = append(w.buf, magic[:]...)
	w.putI32(int32(h.Version)) // reinterpreted as u32 on the wire; see getU32 below
	w.putByte(byte(h.Compression))
	w.putByte(h.HilbertOrder)
	w.putByte(h.BranchingFactor)
	w.putByte(byte(h.Layout))
	w.buf = append(w.buf, make([]byte, 7)...) // bytes 16..22, reserved/zeroed

	schemaBuf := &encodeBuf{}
	h.Schema.encode(schemaBuf)
	w.putBytes(schemaBuf.Bytes())

	boundsBuf := &encodeBuf{}
	boundsBuf.putI32(h.TotalBounds.MinLng)
	boundsBuf.putI32(h.TotalBounds.MinLat)
	boundsBuf.putI32(h.TotalBounds.MaxLng)
	boundsBuf.putI32(h.TotalBounds.MaxLat)
	w.putBytes(boundsBuf.Bytes())

	w.putUvarint(h.PageCount)
	w.putUvarint(h.FeatureCount)
	w.putUvarint(h.IndexNodeCount)
	w.putU64(h.IndexByteOffset)
	w.putU64(h.FeatureBytesOffset)
	return w.Bytes()
}

// prefixFetcher returns the first n bytes of a stream, or fewer if the
// stream is shorter than n. Implemented by both the local file reader
// (via io.ReaderAt) and the HTTP range reader (via a single prefix range
// request), letting both share loadHeader.
type prefixFetcher func(n int64) ([]byte, error)

// initialHeaderGuess is the first prefix size tried when probing for a
// header whose exact length isn't known in advance (no property names,
// no schema). It comfortably covers the fixed 23-byte prelude plus a
// modest schema for most real-world files; loadHeader doubles and retries
// on truncation otherwise.
const initialHeaderGuess = 4096

// loadHeader fetches a growing prefix of a stream until it contains a
// complete Header, decodes it, and returns it (spec.md Section 6: "a
// single prefix range sized from a header-length estimate, re-requesting
// if short").
func loadHeader(fetch prefixFetcher) (*Header, error) {
	n := int64(initialHeaderGuess)
	for {
		buf, err := fetch(n)
		if err != nil {
			return nil, err
		}
		header, decErr := decodeHeader(buf)
		if decErr == nil {
			return header, nil
		}
		if IsKind(decErr, ErrTruncated) && int64(len(buf)) >= n {
			n *= 2
			continue
		}
		return nil, decErr
	}
}

// decodeHeader reads a Header from the front of buf.
func decodeHeader(buf []byte) (*Header, error) {
	r := newDecodeBuf(buf)

	magicBytes, err := r.getBytesN(8)
	if err != nil {
		return nil, wrapErr(ErrBadMagic, err, "reading magic")
	}
	for i, b := range magicBytes {
		if b != magic[i] {
			return nil, fmtErr(ErrBadMagic, "bad magic %q", magicBytes)
		}
	}

	versionI32, err := r.getI32()
	if err != nil {
		return nil, wrapErr(ErrTruncated, err, "reading version")
	}
	version := uint32(versionI32)
	if version != formatVersion {
		return nil, fmtErr(ErrUnsupportedVersion, "unsupported version %d, want %d", version, formatVersion)
	}

	compressionByte, err := r.getByte()
	if err != nil {
		return nil, wrapErr(ErrTruncated, err, "reading compression kind")
	}
	if compressionByte > byte(CompressionZstd) {
		return nil, fmtErr(ErrSchemaInvalid, "unknown compression kind %d", compressionByte)
	}

	hilbertOrder, err := r.getByte()
	if err != nil {
		return nil, wrapErr(ErrTruncated, err, "reading hilbert order")
	}
	branchingFactor, err := r.getByte()
	if err != nil {
		return nil, wrapErr(ErrTruncated, err, "reading branching factor")
	}
	layoutByte, err := r.getByte()
	if err != nil {
		return nil, wrapErr(ErrTruncated, err, "reading layout")
	}
	if layoutByte > byte(LayoutHeaderFeaturesIndex) {
		return nil, fmtErr(ErrSchemaInvalid, "unknown layout %d", layoutByte)
	}
	if _, err := r.getBytesN(7); err != nil {
		return nil, wrapErr(ErrTruncated, err, "reading reserved header bytes")
	}

	// property_schema is length-prefixed (spec.md Section 6): decoding it
	// from a sub-buffer scoped to exactly its declared length, rather than
	// the whole remaining header buffer, lets decodePropertySchema's column
	// count guard (decodeBuf.getCount) reject a corrupt count against the
	// schema's own size instead of everything left in the stream.
	schemaBytes, err := r.getBytes()
	if err != nil {
		return nil, wrapErr(ErrTruncated, err, "reading property_schema")
	}
	schema, err := decodePropertySchema(newDecodeBuf(schemaBytes))
	if err != nil {
		return nil, err
	}

	boundsBytes, err := r.getBytes()
	if err != nil {
		return nil, wrapErr(ErrTruncated, err, "reading total_bounds")
	}
	br := newDecodeBuf(boundsBytes)
	minLng, err := br.getI32()
	if err != nil {
		return nil, wrapErr(ErrTruncated, err, "reading total_bounds.min_lng")
	}
	minLat, err := br.getI32()
	if err != nil {
		return nil, wrapErr(ErrTruncated, err, "reading total_bounds.min_lat")
	}
	maxLng, err := br.getI32()
	if err != nil {
		return nil, wrapErr(ErrTruncated, err, "reading total_bounds.max_lng")
	}
	maxLat, err := br.getI32()
	if err != nil {
		return nil, wrapErr(ErrTruncated, err, "reading total_bounds.max_lat")
	}

	pageCount, err := r.getUvarint()
	if err != nil {
		return nil, wrapErr(ErrTruncated, err, "reading page_count")
	}
	featureCount, err := r.getUvarint()
	if err != nil {
		return nil, wrapErr(ErrTruncated, err, "reading feature_count")
	}
	indexNodeCount, err := r.getUvarint()
	if err != nil {
		return nil, wrapErr(ErrTruncated, err, "reading index_node_count")
	}
	if indexNodeCount > maxIndexNodeCount {
		return nil, fmtErr(ErrTruncated, "index_node_count %d exceeds sane maximum %d", indexNodeCount, maxIndexNodeCount)
	}
	indexByteOffset, err := r.getU64()
	if err != nil {
		return nil, wrapErr(ErrTruncated, err, "reading index_byte_offset")
	}
	featureBytesOffset, err := r.getU64()
	if err != nil {
		return nil, wrapErr(ErrTruncated, err, "reading feature_bytes_offset")
	}

	return &Header{
		Version:            version,
		Compression:        CompressionKind(compressionByte),
		HilbertOrder:       hilbertOrder,
		BranchingFactor:    branchingFactor,
		Layout:             Layout(layoutByte),
		Schema:             schema,
		TotalBounds:        Bounds{MinLng: minLng, MinLat: minLat, MaxLng: maxLng, MaxLat: maxLat},
		PageCount:          pageCount,
		FeatureCount:       featureCount,
		IndexNodeCount:     indexNodeCount,
		IndexByteOffset:    indexByteOffset,
		FeatureBytesOffset: featureBytesOffset,
	}, nil
}
