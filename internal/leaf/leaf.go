package leaf

// SetDetailProps records the detail-prop range owned by leaf.
func (s *System) SetDetailProps(leaf LeafIndex, first, count int) {
	if !s.validLeaf(leaf) {
		return
	}
	s.leaves[leaf].firstDetailProp = first
	s.leaves[leaf].detailPropCount = count
}

// DetailProps returns the detail-prop range of leaf.
func (s *System) DetailProps(leaf LeafIndex) (first, count int) {
	if !s.validLeaf(leaf) {
		return 0, 0
	}
	return s.leaves[leaf].firstDetailProp, s.leaves[leaf].detailPropCount
}

// DetailPropRenderFrame returns the last frame leaf's detail props were
// collated, or -1.
func (s *System) DetailPropRenderFrame(leaf LeafIndex) int {
	if !s.validLeaf(leaf) {
		return -1
	}
	return s.leaves[leaf].detailPropRenderFrame
}

// SetSubsystemData stores opaque per-leaf data in one of the subsystem slots.
// A value implementing SubsystemReleaser is released on Shutdown.
func (s *System) SetSubsystemData(leaf LeafIndex, slot int, data any) {
	if !s.validLeaf(leaf) || slot < 0 || slot >= NumSubsystemSlots {
		return
	}
	s.leaves[leaf].subsystemData[slot] = data
}

func (s *System) SubsystemData(leaf LeafIndex, slot int) any {
	if !s.validLeaf(leaf) || slot < 0 || slot >= NumSubsystemSlots {
		return nil
	}
	return s.leaves[leaf].subsystemData[slot]
}
