package geomedea

// PropertyKind is the declared type of a column in a PropertySchema. Unlike
// geometry tags, a PropertyValue's encoding carries no tag byte of its own
// -- the schema's declared kind tells the codec how many bytes to read
// (spec.md Section 4.2).
type PropertyKind uint8

const (
	KindBool PropertyKind = iota
	KindI64
	KindU64
	KindF64
	KindString
	KindBytes
)

func (k PropertyKind) String() string {
	switch k {
	case KindBool:
		return "Bool"
	case KindI64:
		return "I64"
	case KindU64:
		return "U64"
	case KindF64:
		return "F64"
	case KindString:
		return "String"
	case KindBytes:
		return "Bytes"
	default:
		return "Unknown"
	}
}

// PropertyValue is a tagged-union property value. Exactly one accessor is
// meaningful, as indicated by Kind.
type PropertyValue struct {
	Kind     PropertyKind
	boolVal  bool
	i64Val   int64
	u64Val   uint64
	f64Val   float64
	strVal   string
	bytesVal []byte
}

func BoolValue(v bool) PropertyValue     { return PropertyValue{Kind: KindBool, boolVal: v} }
func I64Value(v int64) PropertyValue     { return PropertyValue{Kind: KindI64, i64Val: v} }
func U64Value(v uint64) PropertyValue    { return PropertyValue{Kind: KindU64, u64Val: v} }
func F64Value(v float64) PropertyValue   { return PropertyValue{Kind: KindF64, f64Val: v} }
func StringValue(v string) PropertyValue { return PropertyValue{Kind: KindString, strVal: v} }
func BytesValue(v []byte) PropertyValue  { return PropertyValue{Kind: KindBytes, bytesVal: v} }

func (v PropertyValue) Bool() bool     { return v.boolVal }
func (v PropertyValue) I64() int64     { return v.i64Val }
func (v PropertyValue) U64() uint64    { return v.u64Val }
func (v PropertyValue) F64() float64   { return v.f64Val }
func (v PropertyValue) String() string { return v.strVal }
func (v PropertyValue) Bytes() []byte  { return v.bytesVal }

// Equal reports whether v and other have the same kind and value.
func (v PropertyValue) Equal(other PropertyValue) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindBool:
		return v.boolVal == other.boolVal
	case KindI64:
		return v.i64Val == other.i64Val
	case KindU64:
		return v.u64Val == other.u64Val
	case KindF64:
		return v.f64Val == other.f64Val
	case KindString:
		return v.strVal == other.strVal
	case KindBytes:
		if len(v.bytesVal) != len(other.bytesVal) {
			return false
		}
		for i := range v.bytesVal {
			if v.bytesVal[i] != other.bytesVal[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (v PropertyValue) encode(w *encodeBuf) error {
	switch v.Kind {
	case KindBool:
		if v.boolVal {
			w.putByte(1)
		} else {
			w.putByte(0)
		}
	case KindI64:
		w.putI64(v.i64Val)
	case KindU64:
		w.putU64(v.u64Val)
	case KindF64:
		w.putF64(v.f64Val)
	case KindString:
		w.putString(v.strVal)
	case KindBytes:
		w.putBytes(v.bytesVal)
	default:
		return fmtErr(ErrInvalidVariant, "unknown property kind %d", v.Kind)
	}
	return nil
}

func decodePropertyValue(r *decodeBuf, kind PropertyKind) (PropertyValue, error) {
	switch kind {
	case KindBool:
		b, err := r.getByte()
		if err != nil {
			return PropertyValue{}, err
		}
		return BoolValue(b != 0), nil
	case KindI64:
		v, err := r.getI64()
		if err != nil {
			return PropertyValue{}, err
		}
		return I64Value(v), nil
	case KindU64:
		v, err := r.getU64()
		if err != nil {
			return PropertyValue{}, err
		}
		return U64Value(v), nil
	case KindF64:
		v, err := r.getF64()
		if err != nil {
			return PropertyValue{}, err
		}
		return F64Value(v), nil
	case KindString:
		v, err := r.getString()
		if err != nil {
			return PropertyValue{}, err
		}
		return StringValue(v), nil
	case KindBytes:
		v, err := r.getBytes()
		if err != nil {
			return PropertyValue{}, err
		}
		// getBytes returns a slice into the decode buffer; copy it so the
		// value remains valid after the buffer is reused/discarded.
		cp := make([]byte, len(v))
		copy(cp, v)
		return BytesValue(cp), nil
	default:
		return PropertyValue{}, fmtErr(ErrSchemaInvalid, "unknown declared property kind %d", kind)
	}
}

// Column is one entry of a PropertySchema: a property name and its
// declared, file-wide kind.
type Column struct {
	Name string
	Kind PropertyKind
}

// PropertySchema is the ordered, file-wide list of property columns.
// Features reference columns by index (spec.md Section 3).
type PropertySchema struct {
	Columns []Column
}

// IndexOf returns the schema index of name, or -1 if it's not declared.
func (s PropertySchema) IndexOf(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (s PropertySchema) encode(w *encodeBuf) {
	w.putUvarint(uint64(len(s.Columns)))
	for _, c := range s.Columns {
		w.putString(c.Name)
		w.putByte(byte(c.Kind))
	}
}

func decodePropertySchema(r *decodeBuf) (PropertySchema, error) {
	n, err := r.getCount(2) // each column is at least a 1-byte empty name length varint plus a 1-byte kind
	if err != nil {
		return PropertySchema{}, wrapErr(ErrSchemaInvalid, err, "reading column count")
	}
	cols := make([]Column, 0, n)
	for i := uint64(0); i < n; i++ {
		name, err := r.getString()
		if err != nil {
			return PropertySchema{}, wrapErr(ErrSchemaInvalid, err, "reading column name")
		}
		kindByte, err := r.getByte()
		if err != nil {
			return PropertySchema{}, wrapErr(ErrSchemaInvalid, err, "reading column kind")
		}
		if kindByte > byte(KindBytes) {
			return PropertySchema{}, fmtErr(ErrSchemaInvalid, "unknown property kind %d for column %q", kindByte, name)
		}
		cols = append(cols, Column{Name: name, Kind: PropertyKind(kindByte)})
	}
	return PropertySchema{Columns: cols}, nil
}
