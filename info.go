package geomedea

// Summary is the structured result of Inspect: the same header-level
// detail the reference Rust implementation's inspector.rs and info.rs
// surface (version, compression, schema, page/feature counts, total
// bounds, index depth), suitable for either text or JSON rendering by a
// CLI (spec.md Section 6, "info <path>").
type Summary struct {
	Version         uint32         `json:"version"`
	Compression     string         `json:"compression"`
	Layout          uint8          `json:"layout"`
	HilbertOrder    uint8          `json:"hilbert_order"`
	BranchingFactor uint8          `json:"branching_factor"`
	Schema          []SummaryField `json:"schema"`
	PageCount       uint64         `json:"page_count"`
	FeatureCount    uint64         `json:"feature_count"`
	TotalBounds     Bounds         `json:"total_bounds"`
	IndexDepth      int            `json:"index_depth"`
}

// SummaryField is one property column in a Summary's schema.
type SummaryField struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Inspect builds a Summary from an opened Reader's header and index depth.
func Inspect(r *Reader) Summary {
	h := r.Header()
	fields := make([]SummaryField, len(h.Schema.Columns))
	for i, c := range h.Schema.Columns {
		fields[i] = SummaryField{Name: c.Name, Kind: c.Kind.String()}
	}
	return Summary{
		Version:         h.Version,
		Compression:     h.Compression.String(),
		Layout:          uint8(h.Layout),
		HilbertOrder:    h.HilbertOrder,
		BranchingFactor: h.BranchingFactor,
		Schema:          fields,
		PageCount:       h.PageCount,
		FeatureCount:    h.FeatureCount,
		TotalBounds:     h.TotalBounds,
		IndexDepth:      r.IndexDepth(),
	}
}
