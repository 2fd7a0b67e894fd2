package leaf

import (
	"github.com/l1jgo/leafsys/internal/config"
	"github.com/l1jgo/leafsys/internal/geom"
	"go.uber.org/zap"
)

// ViewInfo is the per-view input to the builder.
type ViewInfo struct {
	Origin  geom.Vector
	Forward geom.Vector
	Frustum geom.Frustum
	// AreaFrustums holds one frustum per visible area. When set, renderables
	// in a single area are culled against that area's frustum and dropped if
	// the area is absent.
	AreaFrustums map[int]geom.Frustum
	// Leaves are the visible leaves in front-to-back order.
	Leaves []LeafIndex

	Frame  int
	ViewID int

	DrawDetailProps bool
	DrawTranslucent bool
	DrawViewModel   bool
}

// Entry is one render list element.
type Entry struct {
	Handle RenderHandle
	Owner  Owner
	// WorldListLeaf is the position in ViewInfo.Leaves of the leaf that
	// emitted the entry, or -1 for view models.
	WorldListLeaf int
	TwoPass       bool
}

// RenderList is the builder's output: bounded entry arrays per group plus
// the leaves whose detail props should be drawn.
type RenderList struct {
	groups       [GroupCount][]Entry
	capacity     int
	warned       [GroupCount]bool
	Dropped      int
	DetailLeaves []LeafIndex
}

func NewRenderList(capacity int) *RenderList {
	l := &RenderList{capacity: capacity}
	for g := range l.groups {
		l.groups[g] = make([]Entry, 0, min(capacity, 256))
	}
	return l
}

// Reset empties the list, keeping its storage.
func (l *RenderList) Reset() {
	for g := range l.groups {
		l.groups[g] = l.groups[g][:0]
		l.warned[g] = false
	}
	l.Dropped = 0
	l.DetailLeaves = l.DetailLeaves[:0]
}

func (l *RenderList) Group(g RenderGroup) []Entry { return l.groups[g] }
func (l *RenderList) Count(g RenderGroup) int     { return len(l.groups[g]) }

// Total returns the number of entries across all groups.
func (l *RenderList) Total() int {
	n := 0
	for g := range l.groups {
		n += len(l.groups[g])
	}
	return n
}

func (l *RenderList) add(g RenderGroup, e Entry, log *zap.Logger) bool {
	if len(l.groups[g]) >= l.capacity {
		l.Dropped++
		if !l.warned[g] {
			l.warned[g] = true
			log.Warn("render group full, dropping entries",
				zap.Stringer("group", g),
				zap.Int("capacity", l.capacity),
			)
		}
		return false
	}
	l.groups[g] = append(l.groups[g], e)
	return true
}

// BuildStats summarises one BuildRenderablesList call.
type BuildStats struct {
	Leaves       int
	Emitted      int
	Culled       int
	Dropped      int
	DetailLeaves int
}

// ComputeTranslucentRenderLeaf assigns every translucent renderable in leaves
// the first (nearest) leaf it appears in for this frame and view, and caches
// its fx blend. Call before BuildRenderablesList for the same view.
func (s *System) ComputeTranslucentRenderLeaf(leaves []LeafIndex, frame, viewID int) {
	for _, l := range leaves {
		if !s.validLeaf(l) {
			continue
		}
		s.renderablesInLeaf.EachElement(l, func(h RenderHandle) bool {
			r := s.renderables.At(h.slot())
			if r.group.IsTranslucent() && !r.translucencyStamped(frame, viewID) {
				r.stampTranslucency(l, frame, viewID)
			}
			return true
		})
	}
}

func (r *renderableRecord) translucencyStamped(frame, viewID int) bool {
	return r.translucencyCalculatedFrame == frame && r.translucencyCalculatedView == viewID
}

func (r *renderableRecord) stampTranslucency(l LeafIndex, frame, viewID int) {
	r.translucencyCalculatedFrame = frame
	r.translucencyCalculatedView = viewID
	r.renderLeaf = l
	r.fxBlend = r.owner.ComputeFxBlend()
}

// BuildRenderablesList fills out with the renderables visible from view.
// Opaque renderables are emitted once however many visible leaves they span;
// translucent ones only from their render leaf, sorted back to front within
// each leaf.
func (s *System) BuildRenderablesList(view *ViewInfo, out *RenderList) BuildStats {
	out.Reset()
	s.buildStamp++

	var st BuildStats
	for i, l := range view.Leaves {
		if !s.validLeaf(l) {
			continue
		}
		st.Leaves++
		s.collateLeaf(view, i, l, out, &st)
	}
	if view.DrawViewModel {
		s.collateViewModels(view, out)
	}
	st.Dropped = out.Dropped
	st.Emitted = out.Total()
	st.DetailLeaves = len(out.DetailLeaves)
	return st
}

func (s *System) collateLeaf(view *ViewInfo, listIndex int, l LeafIndex, out *RenderList, st *BuildStats) {
	rec := &s.leaves[l]
	if view.DrawDetailProps && rec.detailPropCount > 0 {
		rec.detailPropRenderFrame = view.Frame
		out.DetailLeaves = append(out.DetailLeaves, l)
	}

	translucentStart := out.Count(GroupTranslucentEntity)
	s.renderablesInLeaf.EachElement(l, func(h RenderHandle) bool {
		r := s.renderables.At(h.slot())
		if r.flags&FlagDisableRendering != 0 {
			return true
		}
		if r.flags&FlagStaticProp != 0 && !s.cfg.DrawStaticProps {
			return true
		}

		translucent := r.group.IsTranslucent()
		if translucent {
			if !view.DrawTranslucent {
				return true
			}
			if !r.translucencyStamped(view.Frame, view.ViewID) {
				r.stampTranslucency(l, view.Frame, view.ViewID)
			}
			if r.renderLeaf != l || r.fxBlend <= 0 {
				return true
			}
		} else {
			if r.renderFrame2 == s.buildStamp {
				return true
			}
			r.renderFrame2 = s.buildStamp
		}

		box := worldBounds(r.owner)
		if s.culled(view, r.area, box) {
			st.Culled++
			return true
		}
		r.renderFrame = view.Frame
		s.emit(out, h, r, listIndex, box)
		return true
	})

	added := out.groups[GroupTranslucentEntity][translucentStart:]
	if len(added) > 1 {
		s.sortTranslucent(view, added)
	}
}

func (s *System) emit(out *RenderList, h RenderHandle, r *renderableRecord, listIndex int, box geom.AABB) {
	e := Entry{Handle: h, Owner: r.owner, WorldListLeaf: listIndex}
	if !r.group.IsTranslucent() {
		out.add(s.tieredGroup(r.group, box), e, s.log)
		return
	}
	// two-pass renderables draw their opaque part with the opaque entities
	if r.twoPass {
		e.TwoPass = true
		out.add(s.tieredGroup(GroupOpaqueEntity, box), e, s.log)
	}
	out.add(r.group, e, s.log)
}

// tieredGroup moves base opaque groups into a size bucket by bbox diagonal.
func (s *System) tieredGroup(g RenderGroup, box geom.AABB) RenderGroup {
	if g != GroupOpaqueStatic && g != GroupOpaqueEntity {
		return g
	}
	d := box.Diagonal()
	for i, threshold := range s.cfg.SizeTiers {
		if d >= threshold {
			return g - RenderGroup(2*(config.MaxSizeTiers-i))
		}
	}
	return g
}

func (s *System) culled(view *ViewInfo, area int, box geom.AABB) bool {
	if area >= 0 && view.AreaFrustums != nil {
		f, ok := view.AreaFrustums[area]
		if !ok {
			return true
		}
		return f.CullBox(box)
	}
	return view.Frustum.CullBox(box)
}

func (s *System) collateViewModels(view *ViewInfo, out *RenderList) {
	for _, h := range s.viewModels {
		r := s.renderable(h)
		if r == nil || r.flags&FlagDisableRendering != 0 {
			continue
		}
		e := Entry{Handle: h, Owner: r.owner, WorldListLeaf: -1}
		if r.group == GroupViewModelTranslucent {
			if !r.translucencyStamped(view.Frame, view.ViewID) {
				r.stampTranslucency(InvalidLeaf, view.Frame, view.ViewID)
			}
			if r.fxBlend <= 0 {
				continue
			}
			if r.twoPass {
				e.TwoPass = true
				out.add(GroupViewModelOpaque, e, s.log)
			}
		}
		r.renderFrame = view.Frame
		out.add(r.group, e, s.log)
	}
}

// worldBounds is the exact world box used for culling.
func worldBounds(owner Owner) geom.AABB {
	mins, maxs := owner.RenderBounds()
	return geom.TransformAABB(geom.MatrixFromAngles(owner.RenderOrigin(), owner.RenderAngles()), mins, maxs)
}
