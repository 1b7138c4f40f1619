package geomedea

import (
	"github.com/klauspost/compress/zstd"
)

// CompressionKind selects the framed streaming compressor applied to a
// page body, or None for raw bytes (spec.md Section 4.3).
type CompressionKind uint8

const (
	CompressionNone CompressionKind = iota
	CompressionZstd
)

func (k CompressionKind) String() string {
	switch k {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	default:
		return "Unknown"
	}
}

// page is an accumulator for one page's worth of encoded features, plus
// the running bounds union used to build the page's PackedRTree leaf.
type page struct {
	schema   PropertySchema
	buf      encodeBuf
	count    int
	bounds   Bounds
	budget   int
}

func newPage(schema PropertySchema, budget int) *page {
	return &page{schema: schema, budget: budget, bounds: EmptyBounds}
}

// wouldOverflow reports whether encoding f into this page would exceed the
// configured budget, given the page already holds at least one feature.
func (p *page) wouldOverflow(encoded []byte) bool {
	return p.count > 0 && len(p.buf.buf)+len(encoded) > p.budget
}

func (p *page) add(f *Feature, encoded []byte) {
	p.buf.buf = append(p.buf.buf, encoded...)
	p.count++
	p.bounds = p.bounds.Union(f.Bounds())
}

func (p *page) empty() bool {
	return p.count == 0
}

// encodePage writes a page's on-disk form: { varint uncompressed_length,
// varint feature_count, body_bytes }. The two-varint header is never
// compressed (spec.md Section 4.3), so a streaming reader can size the
// frame before feeding a decompressor.
func encodePage(w *encodeBuf, kind CompressionKind, enc *zstd.Encoder, uncompressed []byte, count int) error {
	w.putUvarint(uint64(len(uncompressed)))
	w.putUvarint(uint64(count))

	switch kind {
	case CompressionNone:
		w.buf = append(w.buf, uncompressed...)
		return nil
	case CompressionZstd:
		frame := enc.EncodeAll(uncompressed, nil)
		w.buf = append(w.buf, frame...)
		return nil
	default:
		return fmtErr(ErrInvalidVariant, "unknown compression kind %d", kind)
	}
}

// maxPageUncompressedSize bounds a single page's declared uncompressed_length
// against an implausibly large value -- far beyond any realistic page
// budget (spec.md Section 4.3 references 65,536 bytes as the reference
// target) -- so a corrupted or truncated page header can't drive an
// oversized allocation in decodePageBody before the length is ever
// cross-checked against actual decoded output (spec.md Section 7,
// CompressionFailed/Truncated).
const maxPageUncompressedSize = 1 << 30

// decodePageHeader reads a page's uncompressed_length and feature_count
// from the front of r, leaving r positioned at the start of body_bytes.
func decodePageHeader(r *decodeBuf) (uncompressedLength int, featureCount int, err error) {
	ul, err := r.getUvarint()
	if err != nil {
		return 0, 0, wrapErr(ErrTruncated, err, "reading page uncompressed_length")
	}
	if ul > maxPageUncompressedSize {
		return 0, 0, fmtErr(ErrTruncated, "page uncompressed_length %d exceeds sane maximum %d", ul, maxPageUncompressedSize)
	}
	fc, err := r.getUvarint()
	if err != nil {
		return 0, 0, wrapErr(ErrTruncated, err, "reading page feature_count")
	}
	// Every feature encodes to at least 2 bytes (a geometry tag byte plus
	// an empty property-count varint), so a feature_count that couldn't
	// possibly fit in uncompressed_length is corrupt.
	if fc > ul/2 {
		return 0, 0, fmtErr(ErrTruncated, "page feature_count %d cannot fit in uncompressed_length %d", fc, ul)
	}
	return int(ul), int(fc), nil
}

// decodePageBody returns the concatenated feature encodings held in the
// body of length bodyLen at r's current position: for CompressionZstd it
// decompresses into a fresh uncompressedLength-byte buffer, for
// CompressionNone it returns the body as a slice of r's buffer. dec is
// reset before use so that no state
// leaks between pages (a page is a self-contained compression unit -- spec.md
// Section 8, "Page independence").
func decodePageBody(r *decodeBuf, kind CompressionKind, dec *zstd.Decoder, bodyLen, uncompressedLength int) ([]byte, error) {
	body, err := r.getBytesN(bodyLen)
	if err != nil {
		return nil, wrapErr(ErrTruncated, err, "reading page body")
	}
	switch kind {
	case CompressionNone:
		if len(body) != uncompressedLength {
			return nil, fmtErr(ErrCompressionFailed, "uncompressed page body length %d does not match declared %d", len(body), uncompressedLength)
		}
		return body, nil
	case CompressionZstd:
		if err := dec.Reset(nil); err != nil {
			return nil, wrapErr(ErrCompressionFailed, err, "resetting zstd decoder")
		}
		out, err := dec.DecodeAll(body, make([]byte, 0, uncompressedLength))
		if err != nil {
			return nil, wrapErr(ErrCompressionFailed, err, "decoding zstd page frame")
		}
		if len(out) != uncompressedLength {
			return nil, fmtErr(ErrCompressionFailed, "decompressed page length %d does not match declared %d", len(out), uncompressedLength)
		}
		return out, nil
	default:
		return nil, fmtErr(ErrInvalidVariant, "unknown compression kind %d", kind)
	}
}

// decodePageFromBytes decodes a single, self-contained page -- header
// varints through body -- from buf, shared by the local random-access
// reader (which slices buf from a ReaderAt) and the streaming HTTP reader
// (which slices it from a fetched byte range).
func decodePageFromBytes(buf []byte, compression CompressionKind, dec *zstd.Decoder, schema PropertySchema) ([]*Feature, error) {
	d := newDecodeBuf(buf)
	uncompLen, count, err := decodePageHeader(d)
	if err != nil {
		return nil, err
	}
	body, err := decodePageBody(d, compression, dec, d.remaining(), uncompLen)
	if err != nil {
		return nil, err
	}
	return decodeFeaturesFromPageBody(body, count, schema)
}

// decodeFeaturesFromPageBody decodes every feature in a page's concatenated
// body, given the schema the page's features were written with.
func decodeFeaturesFromPageBody(body []byte, count int, schema PropertySchema) ([]*Feature, error) {
	r := newDecodeBuf(body)
	features := make([]*Feature, 0, count)
	for i := 0; i < count; i++ {
		f, err := decodeFeature(r, schema)
		if err != nil {
			return nil, err
		}
		features = append(features, f)
	}
	return features, nil
}
