package geomedea

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundsBoxRoundTrip(t *testing.T) {
	b := Bounds{MinLng: -10, MinLat: -20, MaxLng: 30, MaxLat: 40}
	assert.Equal(t, b, boxToBounds(boundsToBox(b)))
}

func TestBuildIndex_HilbertTiesBrokenByPageOrder(t *testing.T) {
	// Two pages with identical bounds (and therefore identical Hilbert
	// value) must retain their original relative order in the leaf list
	// (spec.md Section 3, "Ownership / invariants").
	same := Bounds{MinLng: 0, MinLat: 0, MaxLng: 1, MaxLat: 1}
	pages := []pageEntry{
		{bounds: same, offset: 0, length: 10},
		{bounds: same, offset: 10, length: 10},
		{bounds: same, offset: 20, length: 10},
	}

	nodes, levels, err := buildIndex(pages, 16, 16)
	require.NoError(t, err)
	require.Len(t, levels, 2)

	leaves := nodes[levels[0].Start:levels[0].End]
	require.Len(t, leaves, 3)
	assert.Equal(t, uint64(0), leaves[0].Offset)
	assert.Equal(t, uint64(10), leaves[1].Offset)
	assert.Equal(t, uint64(20), leaves[2].Offset)
}

func TestIndexSearch_UsesConfiguredBranchingFactor(t *testing.T) {
	pages := make([]pageEntry, 17)
	for i := range pages {
		x := int32(i * 10)
		pages[i] = pageEntry{
			bounds: Bounds{MinLng: x, MinLat: x, MaxLng: x + 1, MaxLat: x + 1},
			offset: uint64(i * 100),
			length: 50,
		}
	}

	nodes, levels, err := buildIndex(pages, 16, 16)
	require.NoError(t, err)

	all := indexSearch(nodes, levels, 16, Bounds{MinLng: -1000, MinLat: -1000, MaxLng: 1000, MaxLat: 1000})
	assert.Len(t, all, 17)
}
