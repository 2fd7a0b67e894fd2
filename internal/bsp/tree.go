package bsp

import (
	"sort"

	"github.com/l1jgo/leafsys/internal/data"
	"github.com/l1jgo/leafsys/internal/geom"
	"github.com/l1jgo/leafsys/internal/leaf"
)

// terminalSize is the leaf count under which a node stops splitting.
const terminalSize = 4

// node is either a split (axis >= 0) or a terminal holding a leaf list.
type node struct {
	axis        int
	split       float32
	back, front int32 // children; back holds coords <= split
	leaves      []leaf.LeafIndex
}

// Tree is an axis-aligned partition over a level's leaf boxes. Splits are
// only placed where no leaf straddles them, so every leaf lives in exactly
// one terminal node. Read-only after construction and safe for concurrent
// queries.
type Tree struct {
	boxes  []geom.AABB
	areas  []int
	nodes  []node
	bounds geom.AABB
}

// Build partitions the leaves of lvl.
func Build(lvl *data.Level) *Tree {
	t := &Tree{
		boxes:  make([]geom.AABB, len(lvl.Leaves)),
		areas:  make([]int, len(lvl.Leaves)),
		bounds: lvl.WorldBounds(),
	}
	ids := make([]leaf.LeafIndex, len(lvl.Leaves))
	for i, l := range lvl.Leaves {
		t.boxes[i] = l.Bounds()
		t.areas[i] = l.Area
		ids[i] = leaf.LeafIndex(i)
	}
	t.build(ids)
	return t
}

func (t *Tree) build(ids []leaf.LeafIndex) int32 {
	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, node{axis: -1})

	if len(ids) > terminalSize {
		if axis, split, k, ok := t.bestSplit(ids); ok {
			// ids is sorted along axis by bestSplit
			back := t.build(append([]leaf.LeafIndex(nil), ids[:k]...))
			front := t.build(append([]leaf.LeafIndex(nil), ids[k:]...))
			t.nodes[idx] = node{axis: axis, split: split, back: back, front: front}
			return idx
		}
	}
	t.nodes[idx].leaves = ids
	return idx
}

// bestSplit finds the most balanced clean split. On success ids is left
// sorted by mins along the chosen axis and ids[:k] is the back side.
func (t *Tree) bestSplit(ids []leaf.LeafIndex) (axis int, split float32, k int, ok bool) {
	best := len(ids)
	for a := 0; a < 3; a++ {
		t.sortByMins(ids, a)
		var reach float32
		for i := 0; i < len(ids)-1; i++ {
			if m := t.boxes[ids[i]].Maxs.At(a); i == 0 || m > reach {
				reach = m
			}
			if reach > t.boxes[ids[i+1]].Mins.At(a) {
				continue
			}
			if d := abs(len(ids) - 2*(i+1)); d < best {
				best, axis, split, k, ok = d, a, reach, i+1, true
			}
		}
	}
	if ok {
		t.sortByMins(ids, axis)
	}
	return axis, split, k, ok
}

func (t *Tree) sortByMins(ids []leaf.LeafIndex, axis int) {
	sort.SliceStable(ids, func(i, j int) bool {
		return t.boxes[ids[i]].Mins.At(axis) < t.boxes[ids[j]].Mins.At(axis)
	})
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (t *Tree) LeafCount() int { return len(t.boxes) }

func (t *Tree) LeafArea(l leaf.LeafIndex) int { return t.areas[l] }

func (t *Tree) LeafBounds(l leaf.LeafIndex) geom.AABB { return t.boxes[l] }

// Bounds returns the box enclosing every leaf.
func (t *Tree) Bounds() geom.AABB { return t.bounds }

// NodeCount returns the number of split and terminal nodes.
func (t *Tree) NodeCount() int { return len(t.nodes) }

// EnumerateLeaves calls fn for every leaf vol touches until fn returns false.
func (t *Tree) EnumerateLeaves(vol geom.Volume, fn func(leaf.LeafIndex) bool) bool {
	if len(t.nodes) == 0 {
		return true
	}
	return t.enumerate(0, vol, vol.Bounds(), fn)
}

func (t *Tree) enumerate(n int32, vol geom.Volume, vb geom.AABB, fn func(leaf.LeafIndex) bool) bool {
	nd := &t.nodes[n]
	if nd.axis < 0 {
		for _, l := range nd.leaves {
			if vol.TouchesBox(t.boxes[l]) && !fn(l) {
				return false
			}
		}
		return true
	}
	if vb.Mins.At(nd.axis) <= nd.split && !t.enumerate(nd.back, vol, vb, fn) {
		return false
	}
	if vb.Maxs.At(nd.axis) >= nd.split && !t.enumerate(nd.front, vol, vb, fn) {
		return false
	}
	return true
}

// LeafAt returns the leaf containing p, or leaf.InvalidLeaf.
func (t *Tree) LeafAt(p geom.Vector) leaf.LeafIndex {
	found := leaf.InvalidLeaf
	t.EnumerateLeaves(geom.Point{P: p}, func(l leaf.LeafIndex) bool {
		found = l
		return false
	})
	return found
}
