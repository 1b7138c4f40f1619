package geomedea

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is a stable classification for a geomedea error. It lets callers
// branch on failure category without parsing error strings, while the
// wrapped error (via errors.Unwrap) still carries the underlying cause.
type Kind int

const (
	// ErrBadMagic is returned when a stream's first 8 bytes are not the
	// geomedea magic number.
	ErrBadMagic Kind = iota
	// ErrUnsupportedVersion is returned when the header's version is
	// outside the range this package can read.
	ErrUnsupportedVersion
	// ErrSchemaInvalid is returned when the property schema fails to
	// decode, or declares an unknown property kind.
	ErrSchemaInvalid
	// ErrTruncated is returned when a stream ends before the expected
	// number of bytes have been read.
	ErrTruncated
	// ErrVarintOverflow is returned when a varint exceeds 10 bytes.
	ErrVarintOverflow
	// ErrInvalidVariant is returned for an unknown geometry or property
	// tag, including a disallowed nested GeometryCollection.
	ErrInvalidVariant
	// ErrSchemaIndexOutOfRange is returned when a feature references a
	// property schema index that doesn't exist.
	ErrSchemaIndexOutOfRange
	// ErrUTF8 is returned when a string property is not valid UTF-8.
	ErrUTF8
	// ErrCoordinateOverflow is returned when a fixed-precision coordinate
	// conversion would overflow int32.
	ErrCoordinateOverflow
	// ErrCompressionFailed is returned when the compressor/decompressor
	// rejects input or produces an unexpected length.
	ErrCompressionFailed
	// ErrPropertyKindMismatch is returned by the writer when a property
	// value's runtime type doesn't match the schema's declared kind.
	ErrPropertyKindMismatch
	// ErrPageOverflow is returned by the writer when a single feature
	// exceeds the configured page size budget and oversize pages are
	// disallowed.
	ErrPageOverflow
	// ErrIO is returned for underlying I/O or HTTP failures.
	ErrIO
	// ErrCancelled is returned when a selection's consumer has been
	// dropped (its context cancelled).
	ErrCancelled
)

func (k Kind) String() string {
	switch k {
	case ErrBadMagic:
		return "BadMagic"
	case ErrUnsupportedVersion:
		return "UnsupportedVersion"
	case ErrSchemaInvalid:
		return "SchemaInvalid"
	case ErrTruncated:
		return "Truncated"
	case ErrVarintOverflow:
		return "VarintOverflow"
	case ErrInvalidVariant:
		return "InvalidVariant"
	case ErrSchemaIndexOutOfRange:
		return "SchemaIndexOutOfRange"
	case ErrUTF8:
		return "Utf8"
	case ErrCoordinateOverflow:
		return "CoordinateOverflow"
	case ErrCompressionFailed:
		return "CompressionFailed"
	case ErrPropertyKindMismatch:
		return "PropertyKindMismatch"
	case ErrPageOverflow:
		return "PageOverflow"
	case ErrIO:
		return "Io"
	case ErrCancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is a geomedea error: a stable Kind plus the underlying cause.
type Error struct {
	Kind Kind
	err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("geomedea: %s: %s", e.Kind, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

func newErr(kind Kind, text string) error {
	return &Error{Kind: kind, err: errors.New(text)}
}

func fmtErr(kind Kind, format string, a ...interface{}) error {
	return &Error{Kind: kind, err: fmt.Errorf(format, a...)}
}

func wrapErr(kind Kind, err error, text string) error {
	return &Error{Kind: kind, err: errors.Wrap(err, text)}
}

// IsKind reports whether err is (or wraps) a geomedea *Error with the given
// Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
