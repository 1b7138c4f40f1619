// Package rangereader implements the byte-range coalescing planner used by
// geomedea's streaming HTTP reader (spec.md Section 4.7). It has no
// knowledge of geomedea's file format or feature codec -- it operates
// purely on ordered (offset, length) spans -- so it is reusable by any
// caller that wants to turn scattered index hits into a minimal set of
// HTTP range requests.
package rangereader

import "sort"

// DefaultCoalesceGap is the reference inter-hit gap threshold below which
// two hits are merged into a single range request rather than issued as
// separate requests (spec.md Section 4.7): bridging the gap is cheaper
// than paying for an extra round trip.
const DefaultCoalesceGap int64 = 32 * 1024

// Span is a single (offset, length) hit to be fetched, e.g. one page's
// location within a file.
type Span struct {
	Offset, Length int64
}

// End returns the span's last byte offset (inclusive).
func (s Span) End() int64 {
	return s.Offset + s.Length - 1
}

// MergedRange is one HTTP range request -- [Start, End] inclusive -- that
// covers one or more input Spans, possibly bridging gaps between them.
type MergedRange struct {
	Start, End int64
	// Spans is the set of original hits covered by this range, in
	// ascending offset order. A consumer streaming the range's body must
	// discard the bytes between Start and Spans[0].Offset, and between
	// consecutive spans, since those bytes were fetched only to avoid a
	// second round trip.
	Spans []Span
}

// Coalesce sorts hits by offset and merges any whose inter-hit gap is at
// most coalesceGap into a single MergedRange (spec.md Section 4.7). An
// empty hits slice returns nil, not an error.
func Coalesce(hits []Span, coalesceGap int64) []MergedRange {
	if len(hits) == 0 {
		return nil
	}

	sorted := make([]Span, len(hits))
	copy(sorted, hits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	merged := []MergedRange{{
		Start: sorted[0].Offset,
		End:   sorted[0].End(),
		Spans: []Span{sorted[0]},
	}}

	for _, s := range sorted[1:] {
		last := &merged[len(merged)-1]
		gap := s.Offset - (last.End + 1)
		if gap <= coalesceGap {
			if s.End() > last.End {
				last.End = s.End()
			}
			last.Spans = append(last.Spans, s)
			continue
		}
		merged = append(merged, MergedRange{Start: s.Offset, End: s.End(), Spans: []Span{s}})
	}

	return merged
}
