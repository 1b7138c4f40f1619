package packedrtree

import (
	"encoding/binary"
	"sort"
)

// NodeByteSize is the fixed on-disk size of one Node: 4 int32 (Box) +
// uint64 (Offset) + uint32 (Length) = 28 bytes, matching the reference
// implementation's Node::serialized_size(). Callers that need to fetch a
// byte range of index nodes (e.g. the HTTP range reader) multiply by this.
const NodeByteSize = 28

const nodeSize = NodeByteSize

// Node is one entry of the packed tree. For a leaf node, Box is the
// referenced page's bounds, Offset is the page's byte offset in the
// feature section, and Length is the page's byte length. For an internal
// node, Box is the union of its subtree, Offset is the index of its first
// child node, and Length is unused (zero).
type Node struct {
	Box
	Offset uint64
	Length uint32
}

// LevelRange is a closed/open node-index range [Start, End) comprising one
// level of the tree. Levels are ordered leaves-first; the last entry is
// the root.
type LevelRange struct {
	Start, End int
}

func validateBranchingFactor(branchingFactor int) error {
	if branchingFactor < 2 {
		return textErr("branching factor must be at least 2")
	}
	return nil
}

// Levels computes the per-level node-index ranges for a tree with the
// given leaf count and branching factor, without requiring the tree
// itself -- the level boundaries are a closed-form function of
// (numLeaves, branchingFactor) alone (spec.md Section 4.4, step 5:
// "re-derive level boundaries on read").
func Levels(numLeaves, branchingFactor int) ([]LevelRange, error) {
	if err := validateBranchingFactor(branchingFactor); err != nil {
		return nil, err
	}
	if numLeaves == 0 {
		return nil, nil
	}

	nodesPerLevel := []int{numLeaves}
	nodesThisLevel := numLeaves
	for nodesThisLevel > 1 {
		nodesThisLevel = (nodesThisLevel + branchingFactor - 1) / branchingFactor
		nodesPerLevel = append(nodesPerLevel, nodesThisLevel)
	}

	totalNodes := 0
	for _, n := range nodesPerLevel {
		totalNodes += n
	}

	levels := make([]LevelRange, len(nodesPerLevel))
	remaining := totalNodes
	for i, n := range nodesPerLevel {
		remaining -= n
		levels[i] = LevelRange{Start: remaining, End: remaining + n}
	}
	return levels, nil
}

// Build constructs a complete packed Hilbert R-tree from a Hilbert-sorted
// list of leaves (spec.md Section 4.4, steps 2-4): leaves are grouped into
// nodes of branchingFactor, each parent's bounds is the union of its
// children's, repeated until one root remains. The returned slice holds
// every node in level order, root first and leaves last (the leaf level is
// at index 0 of the returned Levels, the root level last).
func Build(leaves []Node, branchingFactor int) ([]Node, []LevelRange, error) {
	if err := validateBranchingFactor(branchingFactor); err != nil {
		return nil, nil, err
	}
	if len(leaves) == 0 {
		return nil, nil, nil
	}

	levels, err := Levels(len(leaves), branchingFactor)
	if err != nil {
		return nil, nil, err
	}

	totalNodes := levels[0].End
	nodes := make([]Node, totalNodes)
	copy(nodes[levels[0].Start:levels[0].End], leaves)

	for lvl := 0; lvl < len(levels)-1; lvl++ {
		childLevel := levels[lvl]
		parentLevel := levels[lvl+1]
		for p := 0; p < parentLevel.End-parentLevel.Start; p++ {
			firstChild := childLevel.Start + p*branchingFactor
			lastChild := firstChild + branchingFactor
			if lastChild > childLevel.End {
				lastChild = childLevel.End
			}
			union := nodes[firstChild].Box
			for c := firstChild + 1; c < lastChild; c++ {
				union = union.Union(nodes[c].Box)
			}
			nodes[parentLevel.Start+p] = Node{
				Box:    union,
				Offset: uint64(firstChild),
			}
		}
	}

	return nodes, levels, nil
}

// Marshal serializes nodes to their fixed 28-byte-per-node little-endian
// on-disk form, in the order given (level order, root first).
func Marshal(nodes []Node) []byte {
	out := make([]byte, len(nodes)*nodeSize)
	for i, n := range nodes {
		b := out[i*nodeSize:]
		binary.LittleEndian.PutUint32(b[0:4], uint32(n.MinX))
		binary.LittleEndian.PutUint32(b[4:8], uint32(n.MinY))
		binary.LittleEndian.PutUint32(b[8:12], uint32(n.MaxX))
		binary.LittleEndian.PutUint32(b[12:16], uint32(n.MaxY))
		binary.LittleEndian.PutUint64(b[16:24], n.Offset)
		binary.LittleEndian.PutUint32(b[24:28], n.Length)
	}
	return out
}

// Unmarshal parses numNodes fixed-width node records from the front of
// data. numNodes is validated against len(data) by division rather than by
// multiplying numNodes*nodeSize and comparing -- a numNodes derived from an
// unvalidated wire value can be large enough that the multiplication
// overflows int and wraps negative, which would make a naive
// len(data) < numNodes*nodeSize check pass vacuously and panic in the
// make([]Node, numNodes) below instead of returning an error.
func Unmarshal(data []byte, numNodes int) ([]Node, error) {
	if numNodes < 0 {
		return nil, fmtErr("invalid node count %d", numNodes)
	}
	if numNodes > len(data)/nodeSize {
		return nil, fmtErr("index truncated: need %d bytes for %d nodes, have %d", numNodes*nodeSize, numNodes, len(data))
	}
	nodes := make([]Node, numNodes)
	for i := range nodes {
		b := data[i*nodeSize:]
		nodes[i] = Node{
			Box: Box{
				MinX: int32(binary.LittleEndian.Uint32(b[0:4])),
				MinY: int32(binary.LittleEndian.Uint32(b[4:8])),
				MaxX: int32(binary.LittleEndian.Uint32(b[8:12])),
				MaxY: int32(binary.LittleEndian.Uint32(b[12:16])),
			},
			Offset: binary.LittleEndian.Uint64(b[16:24]),
			Length: uint32(binary.LittleEndian.Uint32(b[24:28])),
		}
	}
	return nodes, nil
}

// Ref is a hit returned by Search: a leaf's page location.
type Ref struct {
	Offset uint64
	Length uint32
}

// Search returns every leaf whose Box intersects query, in increasing
// Offset order (spec.md Section 4.4, query: "required so the range
// planner can coalesce"). branchingFactor must be the same value the tree
// was Built with -- an internal node's Offset is only the index of its
// *first* child, so the branching factor is what bounds how many
// contiguous siblings following it belong to the same parent. An empty
// tree (no nodes) yields an empty, non-error result.
func Search(nodes []Node, levels []LevelRange, branchingFactor int, query Box) []Ref {
	if len(levels) == 0 {
		return nil
	}

	var hits []Ref
	rootLevel := len(levels) - 1
	type workItem struct {
		index int
		level int
	}
	stack := []workItem{{index: levels[rootLevel].Start, level: rootLevel}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := nodes[item.index]
		if !n.Box.Intersects(query) {
			continue
		}

		if item.level == 0 {
			hits = append(hits, Ref{Offset: n.Offset, Length: n.Length})
			continue
		}

		childLevel := levels[item.level-1]
		firstChild := int(n.Offset)
		lastChild := firstChild + branchingFactor
		if lastChild > childLevel.End {
			lastChild = childLevel.End
		}
		for c := firstChild; c < lastChild; c++ {
			stack = append(stack, workItem{index: c, level: item.level - 1})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Offset < hits[j].Offset })
	return hits
}
