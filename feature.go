package geomedea

// Feature is one geometry plus a sparse map of schema-indexed property
// values (spec.md Section 3). Only present keys are encoded; a feature's
// bounds is always derived from its geometry, never stored independently.
type Feature struct {
	Geometry   Geometry
	Properties map[int]PropertyValue
}

// NewFeature returns a Feature with no properties set.
func NewFeature(g Geometry) *Feature {
	return &Feature{Geometry: g, Properties: make(map[int]PropertyValue)}
}

// Bounds computes this feature's bounding box from its geometry.
func (f *Feature) Bounds() Bounds {
	return GeometryBounds(f.Geometry)
}

// Set assigns the value for schema column index i, overwriting any
// previous value for that index.
func (f *Feature) Set(i int, v PropertyValue) {
	if f.Properties == nil {
		f.Properties = make(map[int]PropertyValue)
	}
	f.Properties[i] = v
}

// SetByName assigns the value for the named schema column, returning
// ErrSchemaIndexOutOfRange if the column doesn't exist.
func (f *Feature) SetByName(schema PropertySchema, name string, v PropertyValue) error {
	i := schema.IndexOf(name)
	if i < 0 {
		return fmtErr(ErrSchemaIndexOutOfRange, "property %q is not declared in the schema", name)
	}
	f.Set(i, v)
	return nil
}

// Get returns the value for schema column index i and whether it was
// present.
func (f *Feature) Get(i int) (PropertyValue, bool) {
	v, ok := f.Properties[i]
	return v, ok
}

// validate checks this feature's properties against schema: every present
// key must exist in the schema, and its value's Kind must match the
// column's declared kind (spec.md Section 4.5, step 1).
func (f *Feature) validate(schema PropertySchema) error {
	for i, v := range f.Properties {
		if i < 0 || i >= len(schema.Columns) {
			return fmtErr(ErrSchemaIndexOutOfRange, "property index %d is not in the schema (%d columns)", i, len(schema.Columns))
		}
		declared := schema.Columns[i].Kind
		if v.Kind != declared {
			return fmtErr(ErrPropertyKindMismatch, "property %q: value kind %s does not match declared kind %s", schema.Columns[i].Name, v.Kind, declared)
		}
	}
	return nil
}

// encodeFeature writes the geometry followed by the sparse property map, in
// the schema's declared column order (spec.md Section 4.2).
func encodeFeature(w *encodeBuf, schema PropertySchema, f *Feature) error {
	if err := encodeGeometry(w, f.Geometry); err != nil {
		return err
	}

	present := make([]int, 0, len(f.Properties))
	for i := range f.Properties {
		present = append(present, i)
	}
	// Emit in schema order, not map iteration order, since Go map
	// iteration order is randomized and readers must see a deterministic
	// stream.
	sortInts(present)

	w.putUvarint(uint64(len(present)))
	for _, i := range present {
		w.putUvarint(uint64(i))
		if err := f.Properties[i].encode(w); err != nil {
			return err
		}
	}
	return nil
}

// decodeFeature reads one feature, validating each property's schema index
// against the given schema and decoding its value per the column's
// declared kind.
func decodeFeature(r *decodeBuf, schema PropertySchema) (*Feature, error) {
	geom, err := decodeGeometry(r, true)
	if err != nil {
		return nil, err
	}

	n, err := r.getCount(2) // each present property is at least a 1-byte schema-index varint plus a 1-byte value (e.g. Bool)
	if err != nil {
		return nil, err
	}
	props := make(map[int]PropertyValue, n)
	for k := uint64(0); k < n; k++ {
		idx64, err := r.getUvarint()
		if err != nil {
			return nil, err
		}
		idx := int(idx64)
		if idx < 0 || idx >= len(schema.Columns) {
			return nil, fmtErr(ErrSchemaIndexOutOfRange, "property index %d is not in the schema (%d columns)", idx, len(schema.Columns))
		}
		v, err := decodePropertyValue(r, schema.Columns[idx].Kind)
		if err != nil {
			return nil, err
		}
		props[idx] = v
	}
	return &Feature{Geometry: geom, Properties: props}, nil
}

// sortInts sorts a small slice of ints in place. Feature property counts
// are tiny (a handful of columns), so an insertion sort avoids pulling in
// sort.Ints's interface-dispatch overhead for what is almost always fewer
// than a dozen elements.
func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
