package geomedea

import (
	"encoding/binary"
	"math"
	"unicode/utf8"
)

// encodeBuf and decodeBuf are the shared byte-level primitives used by the
// geometry, property, and feature codecs (spec.md Section 4.2): LEB128
// varints for counts/lengths/schema indices, and little-endian fixed-width
// integers/floats for everything else. This plays the same role as the
// teacher's littleendian package and PropReader/PropWriter, but is built on
// encoding/binary rather than hand-rolled byte shifting -- see
// SPEC_FULL.md Section B for why encoding/binary, not a third-party varint
// library, is the idiomatic choice here.

type encodeBuf struct {
	buf []byte
}

func (w *encodeBuf) putByte(b byte) {
	w.buf = append(w.buf, b)
}

func (w *encodeBuf) putI32(v int32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	w.buf = append(w.buf, tmp[:]...)
}

func (w *encodeBuf) putU64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *encodeBuf) putI64(v int64) {
	w.putU64(uint64(v))
}

func (w *encodeBuf) putF64(v float64) {
	w.putU64(math.Float64bits(v))
}

func (w *encodeBuf) putUvarint(v uint64) {
	w.buf = binary.AppendUvarint(w.buf, v)
}

func (w *encodeBuf) putBytes(b []byte) {
	w.putUvarint(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *encodeBuf) putString(s string) {
	w.putBytes([]byte(s))
}

func (w *encodeBuf) Bytes() []byte {
	return w.buf
}

// decodeBuf is a cursor over an in-memory byte slice. Every feature and
// page in geomedea is decoded serially from a fully-buffered slice (spec.md
// Section 4.2: "to read feature k, features 0..k-1 must be decoded first"),
// so a simple position cursor -- rather than an io.Reader -- keeps the
// per-feature decode loop allocation-free.
type decodeBuf struct {
	buf []byte
	pos int
}

func newDecodeBuf(b []byte) *decodeBuf {
	return &decodeBuf{buf: b}
}

// remaining reports how many unread bytes are left.
func (r *decodeBuf) remaining() int {
	return len(r.buf) - r.pos
}

func (r *decodeBuf) getByte() (byte, error) {
	if r.remaining() < 1 {
		return 0, newErr(ErrTruncated, "expected 1 byte")
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *decodeBuf) getBytesN(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, fmtErr(ErrTruncated, "expected %d bytes, have %d", n, r.remaining())
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *decodeBuf) getI32() (int32, error) {
	b, err := r.getBytesN(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

func (r *decodeBuf) getU64() (uint64, error) {
	b, err := r.getBytesN(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *decodeBuf) getI64() (int64, error) {
	v, err := r.getU64()
	return int64(v), err
}

func (r *decodeBuf) getF64() (float64, error) {
	v, err := r.getU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

func (r *decodeBuf) getUvarint() (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.pos:])
	if n == 0 {
		return 0, newErr(ErrTruncated, "truncated varint")
	}
	if n < 0 {
		return 0, newErr(ErrVarintOverflow, "varint exceeds 10 bytes")
	}
	r.pos += n
	return v, nil
}

func (r *decodeBuf) getBytes() ([]byte, error) {
	n, err := r.getUvarint()
	if err != nil {
		return nil, err
	}
	if n > uint64(r.remaining()) {
		return nil, fmtErr(ErrTruncated, "length-prefixed field claims %d bytes, only %d remain", n, r.remaining())
	}
	return r.getBytesN(int(n))
}

// getCount reads a varint element count and rejects it if it couldn't
// possibly fit in the bytes remaining, given minElemSize, the smallest
// number of bytes any one element can encode to. This is the same guard
// getBytes applies to raw byte-length prefixes, generalized to
// element-count prefixes (coordinate sequences, ring/geometry/column/
// property lists): without it, a single corrupt or truncated varint count
// drives a `make([]T, 0, n)` sized off attacker-controlled input, before a
// single byte of the claimed elements has been validated (spec.md
// Section 7, Truncated).
func (r *decodeBuf) getCount(minElemSize int) (uint64, error) {
	n, err := r.getUvarint()
	if err != nil {
		return 0, err
	}
	if minElemSize <= 0 {
		minElemSize = 1
	}
	if n > uint64(r.remaining())/uint64(minElemSize) {
		return 0, fmtErr(ErrTruncated, "element count %d cannot fit in %d remaining bytes (min element size %d)", n, r.remaining(), minElemSize)
	}
	return n, nil
}

func (r *decodeBuf) getString() (string, error) {
	b, err := r.getBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", newErr(ErrUTF8, "string property is not valid UTF-8")
	}
	return string(b), nil
}
