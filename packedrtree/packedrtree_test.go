package packedrtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevels(t *testing.T) {
	testCases := []struct {
		name            string
		numLeaves       int
		branchingFactor int
		expected        []LevelRange
	}{
		{"Single", 1, 16, []LevelRange{{0, 1}}},
		{"ExactlyOneLevelOfInternal", 4, 2, []LevelRange{{3, 7}, {1, 3}, {0, 1}}},
		{"Empty", 0, 16, nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			levels, err := Levels(tc.numLeaves, tc.branchingFactor)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, levels)
		})
	}
}

func TestBuild_And_Search(t *testing.T) {
	leaves := []Node{
		{Box: Box{0, 0, 1, 1}, Offset: 0, Length: 10},
		{Box: Box{10, 10, 11, 11}, Offset: 10, Length: 10},
		{Box: Box{20, 20, 21, 21}, Offset: 20, Length: 10},
		{Box: Box{30, 30, 31, 31}, Offset: 30, Length: 10},
		{Box: Box{40, 40, 41, 41}, Offset: 40, Length: 10},
	}

	nodes, levels, err := Build(leaves, 2)
	require.NoError(t, err)
	require.NotEmpty(t, nodes)

	root := nodes[levels[len(levels)-1].Start]
	assert.Equal(t, Box{0, 0, 41, 41}, root.Box)

	hits := Search(nodes, levels, 2, Box{9, 9, 12, 12})
	require.Len(t, hits, 1)
	assert.Equal(t, uint64(10), hits[0].Offset)

	all := Search(nodes, levels, 2, Box{-100, -100, 100, 100})
	assert.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Offset, all[i].Offset)
	}

	none := Search(nodes, levels, 2, Box{1000, 1000, 1001, 1001})
	assert.Empty(t, none)
}

func TestBuild_AndSearch_UnevenLastGroup(t *testing.T) {
	// 17 leaves with branching factor 16: the first parent covers 16
	// children, the second covers only 1. A search that only scans
	// ceil(childCount/parentCount) siblings from a node's first-child
	// offset (instead of the true branching factor) would miss children
	// at the tail of the first, full-sized group.
	leaves := make([]Node, 17)
	for i := range leaves {
		x := int32(i * 10)
		leaves[i] = Node{Box: Box{MinX: x, MinY: x, MaxX: x + 1, MaxY: x + 1}, Offset: uint64(i * 10), Length: 10}
	}

	nodes, levels, err := Build(leaves, 16)
	require.NoError(t, err)

	// A child near the tail of the first (full) group of 16.
	hits := Search(nodes, levels, 16, Box{149, 149, 151, 151})
	require.Len(t, hits, 1)
	assert.Equal(t, uint64(150), hits[0].Offset)

	all := Search(nodes, levels, 16, Box{-1000, -1000, 1000, 1000})
	assert.Len(t, all, 17)
}

func TestBuild_EmptyTree(t *testing.T) {
	nodes, levels, err := Build(nil, 16)
	require.NoError(t, err)
	assert.Nil(t, nodes)
	assert.Nil(t, levels)
	assert.Empty(t, Search(nodes, levels, 16, Box{0, 0, 1, 1}))
}

func TestBuild_SinglePage_NoInteriorNodes(t *testing.T) {
	leaves := []Node{{Box: Box{0, 0, 1, 1}, Offset: 0, Length: 5}}
	nodes, levels, err := Build(leaves, 16)
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Len(t, nodes, 1)
}

func TestMarshal_Unmarshal_RoundTrip(t *testing.T) {
	nodes := []Node{
		{Box: Box{-1, -2, 3, 4}, Offset: 100, Length: 200},
		{Box: Box{5, 6, 7, 8}, Offset: 0, Length: 2},
	}
	data := Marshal(nodes)
	assert.Len(t, data, len(nodes)*NodeByteSize)

	got, err := Unmarshal(data, len(nodes))
	require.NoError(t, err)
	assert.Equal(t, nodes, got)
}

func TestUnmarshal_Truncated(t *testing.T) {
	_, err := Unmarshal(make([]byte, 10), 1)
	require.Error(t, err)
}

func TestBox_Intersects(t *testing.T) {
	a := Box{0, 0, 10, 10}
	b := Box{10, 10, 20, 20}
	assert.True(t, a.Intersects(b))
	assert.False(t, a.Intersects(Box{11, 11, 20, 20}))
}
