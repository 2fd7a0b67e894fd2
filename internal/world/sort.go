package world

import (
	"sort"

	"github.com/l1jgo/leafsys/internal/leaf"
)

func sortLeaves(leaves []leaf.LeafIndex, key func(leaf.LeafIndex) float32) {
	sort.SliceStable(leaves, func(i, j int) bool { return key(leaves[i]) < key(leaves[j]) })
}
