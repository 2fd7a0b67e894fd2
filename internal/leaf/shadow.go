package leaf

import (
	"github.com/l1jgo/leafsys/internal/core/bucket"
	"github.com/l1jgo/leafsys/internal/core/handle"
	"go.uber.org/zap"
)

// AddShadow registers a projection. sourceID is the shadow manager's own id
// for it and is echoed back through AddShadowToReceiver.
func (s *System) AddShadow(sourceID int, flags ShadowFlags) ShadowHandle {
	hh := s.shadows.Alloc()
	if hh == handle.Invalid {
		s.log.Warn("shadow registry full", zap.Int("live", s.shadows.Len()))
		return InvalidShadowHandle
	}
	h := ShadowHandle(hh)
	*s.shadows.At(h.slot()) = shadowRecord{
		sourceID:       sourceID,
		flags:          flags & ShadowFlagProjectedTextureMask,
		enumCount:      -1,
		leafHead:       bucket.InvalidIndex,
		renderableHead: bucket.InvalidIndex,
	}
	return h
}

// RemoveShadow unlinks h from every leaf and renderable and frees it.
func (s *System) RemoveShadow(h ShadowHandle) {
	if s.shadow(h) == nil {
		return
	}
	s.shadowsInLeaf.RemoveElement(h)
	s.shadowsOnRenderable.RemoveElement(h)
	s.shadows.Free(handle.Handle(h))
}

// ProjectShadow replaces the leaf set of a shadow projection.
func (s *System) ProjectShadow(h ShadowHandle, leaves []LeafIndex) {
	s.project(h, leaves, ShadowFlagShadow)
}

// ProjectFlashlight replaces the leaf set of a flashlight projection.
func (s *System) ProjectFlashlight(h ShadowHandle, leaves []LeafIndex) {
	s.project(h, leaves, ShadowFlagFlashlight)
}

func (s *System) project(h ShadowHandle, leaves []LeafIndex, want ShadowFlags) {
	rec := s.shadow(h)
	if rec == nil {
		return
	}
	if rec.flags&want == 0 {
		s.log.DPanic("projection type mismatch",
			zap.Uint32("shadow", uint32(h)),
			zap.Uint8("flags", uint8(rec.flags)),
			zap.Uint8("want", uint8(want)),
		)
		return
	}
	s.shadowsInLeaf.RemoveElement(h)
	s.shadowsOnRenderable.RemoveElement(h)

	s.shadowEnum++
	for _, l := range leaves {
		s.addShadowToLeaf(l, h)
	}
}

// addShadowToLeaf links sh into leaf and applies it to every renderable in
// the leaf not yet reached in the current enumeration.
func (s *System) addShadowToLeaf(leaf LeafIndex, sh ShadowHandle) {
	if !s.validLeaf(leaf) {
		return
	}
	s.shadowsInLeaf.AddElementToBucket(leaf, sh)

	s.renderablesInLeaf.EachElement(leaf, func(h RenderHandle) bool {
		r := s.renderables.At(h.slot())
		if r.enumCount != s.shadowEnum {
			s.addShadowToRenderable(h, sh)
			r.enumCount = s.shadowEnum
		}
		return true
	})
}

func (s *System) addShadowToRenderable(h RenderHandle, sh ShadowHandle) {
	rec := s.shadows.At(sh.slot())
	if !s.ShouldRenderableReceiveShadow(h, rec.flags) {
		return
	}
	s.shadowsOnRenderable.AddElementToBucket(h, sh)

	r := s.renderables.At(h.slot())
	s.shadowMgr.AddShadowToReceiver(rec.sourceID, r.owner, receiverKind(r.flags))
}

// releaseShadowReceiver tells the shadow manager h no longer receives any
// shadows and drops h's shadow bucket.
func (s *System) releaseShadowReceiver(h RenderHandle, r *renderableRecord) {
	if s.shadowsOnRenderable.FirstElement(h) == bucket.InvalidIndex {
		return
	}
	if r.flags&(FlagBrushModel|FlagStudioModel|FlagStaticProp) != 0 {
		s.shadowMgr.RemoveAllShadowsFromReceiver(r.owner, receiverKind(r.flags))
	}
	s.shadowsOnRenderable.RemoveBucket(h)
}

// ShouldRenderableReceiveShadow reports whether h has receiver geometry and
// its owner accepts projections of the given type.
func (s *System) ShouldRenderableReceiveShadow(h RenderHandle, flags ShadowFlags) bool {
	r := s.renderable(h)
	if r == nil {
		return false
	}
	if r.flags&(FlagBrushModel|FlagStudioModel|FlagStaticProp) == 0 {
		return false
	}
	return r.owner.ShouldReceiveProjectedTextures(flags)
}

func receiverKind(f RenderFlags) ReceiverKind {
	switch {
	case f&FlagBrushModel != 0:
		return ReceiverBrushModel
	case f&FlagStaticProp != 0:
		return ReceiverStaticProp
	default:
		return ReceiverStudioModel
	}
}

// EnumerateShadowsInLeaves calls fn once per distinct shadow found in leaves
// until fn returns false.
func (s *System) EnumerateShadowsInLeaves(leaves []LeafIndex, fn func(h ShadowHandle, sourceID int) bool) {
	s.shadowEnum++
	for _, l := range leaves {
		if !s.validLeaf(l) {
			continue
		}
		stop := false
		s.shadowsInLeaf.EachElement(l, func(sh ShadowHandle) bool {
			rec := s.shadows.At(sh.slot())
			if rec.enumCount == s.shadowEnum {
				return true
			}
			rec.enumCount = s.shadowEnum
			if !fn(sh, rec.sourceID) {
				stop = true
				return false
			}
			return true
		})
		if stop {
			return
		}
	}
}

// ShadowsOnRenderable appends the shadows currently applied to h.
func (s *System) ShadowsOnRenderable(h RenderHandle, dst []ShadowHandle) []ShadowHandle {
	if s.renderable(h) == nil {
		return dst
	}
	s.shadowsOnRenderable.EachElement(h, func(sh ShadowHandle) bool {
		dst = append(dst, sh)
		return true
	})
	return dst
}

// ShadowLeaves appends the leaves sh is projected into.
func (s *System) ShadowLeaves(sh ShadowHandle, dst []LeafIndex) []LeafIndex {
	if s.shadow(sh) == nil {
		return dst
	}
	s.shadowsInLeaf.EachBucket(sh, func(l LeafIndex) bool {
		dst = append(dst, l)
		return true
	})
	return dst
}

// ShadowSource returns the source id of sh, or -1 for an invalid handle.
func (s *System) ShadowSource(sh ShadowHandle) int {
	if rec := s.shadow(sh); rec != nil {
		return rec.sourceID
	}
	return -1
}
