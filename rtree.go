package geomedea

import (
	"sort"

	"github.com/michaelkirk/geomedea/packedrtree"
)

func boundsToBox(b Bounds) packedrtree.Box {
	return packedrtree.Box{MinX: b.MinLng, MinY: b.MinLat, MaxX: b.MaxLng, MaxY: b.MaxLat}
}

func boxToBounds(b packedrtree.Box) Bounds {
	return Bounds{MinLng: b.MinX, MinLat: b.MinY, MaxLng: b.MaxX, MaxLat: b.MaxY}
}

// pageEntry is a page recorded by the writer as feature pages are flushed,
// carrying everything needed to build the packed R-tree leaf list once
// every page is known (spec.md Section 4.4).
type pageEntry struct {
	bounds Bounds
	offset uint64
	length uint32
}

// buildIndex sorts pages by the Hilbert value of their bounds' centroid
// and builds the packed tree over them (spec.md Section 4.4, steps 1-4).
func buildIndex(pages []pageEntry, hilbertOrder, branchingFactor uint8) ([]packedrtree.Node, []packedrtree.LevelRange, error) {
	sorted := make([]pageEntry, len(pages))
	copy(sorted, pages)
	// SliceStable: leaves are ordered by Hilbert value, ties broken by
	// page order (spec.md Section 3, "Ownership / invariants").
	sort.SliceStable(sorted, func(i, j int) bool {
		bi := boundsToBox(sorted[i].bounds)
		bj := boundsToBox(sorted[j].bounds)
		return packedrtree.HilbertOf(bi, hilbertOrder) < packedrtree.HilbertOf(bj, hilbertOrder)
	})

	leaves := make([]packedrtree.Node, len(sorted))
	for i, p := range sorted {
		leaves[i] = packedrtree.Node{
			Box:    boundsToBox(p.bounds),
			Offset: p.offset,
			Length: p.length,
		}
	}
	return packedrtree.Build(leaves, int(branchingFactor))
}

// indexSearch returns the page (offset, length) hits intersecting query,
// in increasing offset order (spec.md Section 4.4, Query).
func indexSearch(nodes []packedrtree.Node, levels []packedrtree.LevelRange, branchingFactor uint8, query Bounds) []packedrtree.Ref {
	return packedrtree.Search(nodes, levels, int(branchingFactor), boundsToBox(query))
}
