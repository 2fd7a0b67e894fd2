package leaf

import (
	"github.com/l1jgo/leafsys/internal/core/bucket"
	"github.com/l1jgo/leafsys/internal/core/handle"
	"go.uber.org/zap"
)

// CreateRenderableHandle registers owner and classifies it from its own
// properties. Only an opaque static prop lands in GroupOpaqueStatic; a
// transparent one is sorted with the translucent entities. Returns
// InvalidRenderHandle when the registry is full.
func (s *System) CreateRenderableHandle(owner Owner, isStaticProp bool) RenderHandle {
	transparent := owner.IsTransparent()
	var group RenderGroup
	switch {
	case owner.IsViewModel():
		group = GroupViewModelOpaque
		if transparent {
			group = GroupViewModelTranslucent
		}
	case transparent:
		group = GroupTranslucentEntity
	case isStaticProp:
		group = GroupOpaqueStatic
	case owner.ModelKind() == ModelBrush:
		group = GroupOpaqueBrush
	default:
		group = GroupOpaqueEntity
	}
	return s.addRenderable(owner, group, isStaticProp)
}

// AddRenderable registers owner with an explicit group. View-model groups are
// kept out of the leaf tree and collated separately.
func (s *System) AddRenderable(owner Owner, group RenderGroup) RenderHandle {
	if !group.registrable() {
		s.log.DPanic("invalid render group", zap.Stringer("group", group))
		return InvalidRenderHandle
	}
	return s.addRenderable(owner, group, owner.ModelKind() == ModelStaticProp)
}

func (s *System) addRenderable(owner Owner, group RenderGroup, isStaticProp bool) RenderHandle {
	hh := s.renderables.Alloc()
	if hh == handle.Invalid {
		s.log.Warn("renderable registry full", zap.Int("live", s.renderables.Len()))
		return InvalidRenderHandle
	}
	h := RenderHandle(hh)

	var flags RenderFlags
	switch {
	case isStaticProp:
		flags = FlagStaticProp
	case owner.ModelKind() == ModelBrush:
		flags = FlagBrushModel
	case owner.ModelKind() == ModelStudio:
		flags = FlagStudioModel
	}
	if group.IsViewModel() {
		flags |= FlagViewModel
	}

	*s.renderables.At(h.slot()) = renderableRecord{
		owner:                       owner,
		flags:                       flags,
		group:                       group,
		renderFrame:                 -1,
		renderFrame2:                -1,
		enumCount:                   -1,
		translucencyCalculatedFrame: -1,
		translucencyCalculatedView:  -1,
		renderLeaf:                  InvalidLeaf,
		fxBlend:                     255,
		area:                        AreaNone,
		twoPass:                     group.IsTranslucent() && owner.IsTwoPass(),
		leafHead:                    bucket.InvalidIndex,
		shadowHead:                  bucket.InvalidIndex,
	}

	if group.IsViewModel() {
		s.viewModels = append(s.viewModels, h)
		return h
	}
	// Initial placement goes through the reinsertion pass, static props
	// included, unless the caller places it with AddRenderableToLeaves.
	s.markDirty(h, s.renderables.At(h.slot()))
	return h
}

// RemoveRenderable unlinks h from every leaf and shadow and frees the slot.
// Invalid handles are ignored.
func (s *System) RemoveRenderable(h RenderHandle) {
	r := s.renderable(h)
	if r == nil {
		return
	}
	s.renderablesInLeaf.RemoveElement(h)
	s.releaseShadowReceiver(h, r)
	if r.group.IsViewModel() {
		s.removeViewModel(h)
	}
	if r.flags&FlagHasChanged != 0 {
		s.removeDirty(h)
	}
	r.owner = nil
	s.renderables.Free(handle.Handle(h))
}

// RenderableChanged queues h for reinsertion on the next pass. Repeated calls
// before the pass are no-ops. Static props ignore it; see InvalidateStaticProp.
func (s *System) RenderableChanged(h RenderHandle) {
	r := s.renderable(h)
	if r == nil || r.flags&FlagStaticProp != 0 || r.group.IsViewModel() {
		return
	}
	s.markDirty(h, r)
}

// InvalidateStaticProp forces a static prop through the reinsertion pass.
func (s *System) InvalidateStaticProp(h RenderHandle) {
	r := s.renderable(h)
	if r == nil || r.group.IsViewModel() {
		return
	}
	s.markDirty(h, r)
}

func (s *System) removeDirty(h RenderHandle) {
	for i, d := range s.dirty {
		if d == h {
			s.dirty = append(s.dirty[:i], s.dirty[i+1:]...)
			return
		}
	}
}

func (s *System) markDirty(h RenderHandle, r *renderableRecord) {
	if r.flags&FlagHasChanged != 0 {
		return
	}
	r.flags |= FlagHasChanged
	s.dirty = append(s.dirty, h)
}

// AddRenderableToLeaves places h in an explicit leaf list, replacing any
// current placement. Used for baked static props whose leaves are known.
func (s *System) AddRenderableToLeaves(h RenderHandle, leaves []LeafIndex) {
	r := s.renderable(h)
	if r == nil || r.group.IsViewModel() {
		return
	}
	s.removeFromTree(h, r)
	if r.flags&FlagHasChanged != 0 {
		r.flags &^= FlagHasChanged
		s.removeDirty(h)
	}
	s.shadowEnum++
	for _, l := range leaves {
		s.addRenderableToLeaf(l, h)
	}
	s.computeArea(h)
}

// SetRenderGroup reclassifies h. Moving into or out of a view-model group
// takes the renderable out of or back into the leaf tree.
func (s *System) SetRenderGroup(h RenderHandle, group RenderGroup) {
	r := s.renderable(h)
	if r == nil {
		return
	}
	if !group.registrable() {
		s.log.DPanic("invalid render group", zap.Stringer("group", group))
		return
	}
	old := r.group
	if old == group {
		return
	}
	r.group = group
	r.twoPass = group.IsTranslucent() && r.owner.IsTwoPass()
	r.translucencyCalculatedFrame = -1
	r.translucencyCalculatedView = -1

	switch {
	case old.IsViewModel() && !group.IsViewModel():
		r.flags &^= FlagViewModel
		s.removeViewModel(h)
		s.markDirty(h, r)
	case !old.IsViewModel() && group.IsViewModel():
		s.removeFromTree(h, r)
		if r.flags&FlagHasChanged != 0 {
			r.flags &^= FlagHasChanged
			s.removeDirty(h)
		}
		r.flags |= FlagViewModel
		r.area = AreaNone
		s.viewModels = append(s.viewModels, h)
	}
}

func (s *System) removeViewModel(h RenderHandle) {
	for i, vm := range s.viewModels {
		if vm == h {
			s.viewModels = append(s.viewModels[:i], s.viewModels[i+1:]...)
			return
		}
	}
}

// SetRenderableFlags sets and clears caller-controlled flags
// (FlagAlternateSort, FlagDisableRendering). Other bits are ignored.
func (s *System) SetRenderableFlags(h RenderHandle, set, clear RenderFlags) {
	r := s.renderable(h)
	if r == nil {
		return
	}
	r.flags = (r.flags | set&userFlags) &^ (clear & userFlags)
}

func (s *System) IsValidRenderable(h RenderHandle) bool {
	return s.renderables.IsValid(handle.Handle(h))
}

func (s *System) RenderGroup(h RenderHandle) RenderGroup {
	if r := s.renderable(h); r != nil {
		return r.group
	}
	return GroupOther
}

func (s *System) Flags(h RenderHandle) RenderFlags {
	if r := s.renderable(h); r != nil {
		return r.flags
	}
	return 0
}

func (s *System) Owner(h RenderHandle) Owner {
	if r := s.renderable(h); r != nil {
		return r.owner
	}
	return nil
}

// Area returns the cached area id, AreaMultiple or AreaNone.
func (s *System) Area(h RenderHandle) int {
	if r := s.renderable(h); r != nil {
		return r.area
	}
	return AreaNone
}

// RenderFrame returns the last frame h was emitted into a render list, or -1.
func (s *System) RenderFrame(h RenderHandle) int {
	if r := s.renderable(h); r != nil {
		return r.renderFrame
	}
	return -1
}

// IsRenderableInTree reports whether h is in at least one leaf.
func (s *System) IsRenderableInTree(h RenderHandle) bool {
	if s.renderable(h) == nil {
		return false
	}
	return s.renderablesInLeaf.IsElementInTree(h)
}

// GetRenderableLeaves appends the leaves holding h to dst, capped at
// MaxRenderableLeaves.
func (s *System) GetRenderableLeaves(h RenderHandle, dst []LeafIndex) []LeafIndex {
	if s.renderable(h) == nil {
		return dst
	}
	n := 0
	s.renderablesInLeaf.EachBucket(h, func(l LeafIndex) bool {
		if n >= s.cfg.MaxRenderableLeaves {
			s.log.Warn("renderable leaf list truncated",
				zap.Uint32("handle", uint32(h)),
				zap.Int("max", s.cfg.MaxRenderableLeaves),
			)
			return false
		}
		dst = append(dst, l)
		n++
		return true
	})
	return dst
}

// EnumerateRenderablesInLeaf calls fn for each renderable in leaf until fn
// returns false. fn must not add or remove renderables.
func (s *System) EnumerateRenderablesInLeaf(leaf LeafIndex, fn func(h RenderHandle, owner Owner) bool) {
	if !s.validLeaf(leaf) {
		return
	}
	s.renderablesInLeaf.EachElement(leaf, func(h RenderHandle) bool {
		return fn(h, s.renderables.At(h.slot()).owner)
	})
}

// RenderablesInLeaf returns the number of renderables in leaf.
func (s *System) RenderablesInLeaf(leaf LeafIndex) int {
	n := 0
	s.EnumerateRenderablesInLeaf(leaf, func(RenderHandle, Owner) bool {
		n++
		return true
	})
	return n
}

// addRenderableToLeaf links h into leaf and hands it every shadow already in
// the leaf that it has not received during the current enumeration.
func (s *System) addRenderableToLeaf(leaf LeafIndex, h RenderHandle) {
	if !s.validLeaf(leaf) {
		return
	}
	s.renderablesInLeaf.AddElementToBucket(leaf, h)

	if !s.ShouldRenderableReceiveShadow(h, ShadowFlagProjectedTextureMask) {
		return
	}
	s.shadowsInLeaf.EachElement(leaf, func(sh ShadowHandle) bool {
		rec := s.shadows.At(sh.slot())
		if rec.enumCount != s.shadowEnum {
			s.addShadowToRenderable(h, sh)
			rec.enumCount = s.shadowEnum
		}
		return true
	})
}

// removeFromTree drops h's leaf placement and, for shadow receivers, its
// shadow registrations.
func (s *System) removeFromTree(h RenderHandle, r *renderableRecord) {
	s.renderablesInLeaf.RemoveElement(h)
	s.releaseShadowReceiver(h, r)
	r.area = AreaNone
}

// computeArea caches the single area h lives in, or AreaMultiple/AreaNone.
func (s *System) computeArea(h RenderHandle) {
	area := AreaNone
	s.renderablesInLeaf.EachBucket(h, func(l LeafIndex) bool {
		a := s.tree.LeafArea(l)
		if area == AreaNone {
			area = a
			return true
		}
		if a != area {
			area = AreaMultiple
			return false
		}
		return true
	})
	s.renderables.At(h.slot()).area = area
}
