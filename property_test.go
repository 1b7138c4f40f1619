package geomedea

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyValue_EncodeDecode_RoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		v    PropertyValue
	}{
		{"Bool.True", BoolValue(true)},
		{"Bool.False", BoolValue(false)},
		{"I64.Negative", I64Value(-42)},
		{"U64", U64Value(1 << 50)},
		{"F64", F64Value(2.71828)},
		{"String", StringValue("hello")},
		{"String.Empty", StringValue("")},
		{"Bytes", BytesValue([]byte{0xde, 0xad, 0xbe, 0xef})},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := &encodeBuf{}
			require.NoError(t, tc.v.encode(w))

			r := newDecodeBuf(w.Bytes())
			got, err := decodePropertyValue(r, tc.v.Kind)
			require.NoError(t, err)
			assert.True(t, tc.v.Equal(got))
			assert.Equal(t, 0, r.remaining())
		})
	}
}

func TestPropertySchema_EncodeDecode_RoundTrip(t *testing.T) {
	schema := PropertySchema{Columns: []Column{
		{Name: "name", Kind: KindString},
		{Name: "population", Kind: KindU64},
		{Name: "is_capital", Kind: KindBool},
	}}

	w := &encodeBuf{}
	schema.encode(w)

	r := newDecodeBuf(w.Bytes())
	got, err := decodePropertySchema(r)
	require.NoError(t, err)
	assert.Equal(t, schema, got)
	assert.Equal(t, 1, got.IndexOf("population"))
	assert.Equal(t, -1, got.IndexOf("nonexistent"))
}

// A schema whose column-count varint claims far more columns than the
// buffer could hold must be rejected before allocating, not panic
// (spec.md Section 7, SchemaInvalid).
func TestDecodePropertySchema_OversizedColumnCountRejected(t *testing.T) {
	w := &encodeBuf{}
	w.putUvarint(1 << 40)

	r := newDecodeBuf(w.Bytes())
	_, err := decodePropertySchema(r)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrSchemaInvalid))
}

func TestDecodePropertySchema_UnknownKind(t *testing.T) {
	w := &encodeBuf{}
	w.putUvarint(1)
	w.putString("bad")
	w.putByte(200)

	r := newDecodeBuf(w.Bytes())
	_, err := decodePropertySchema(r)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrSchemaInvalid))
}
