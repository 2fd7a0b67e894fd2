package leaf

import (
	"sync"

	"github.com/l1jgo/leafsys/internal/core/handle"
	"github.com/l1jgo/leafsys/internal/geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxFollowDepth bounds the parent chain walk of CalcRenderableWorldSpaceAABBFast.
const maxFollowDepth = 32

// ReinsertStats describes one RecomputeRenderableLeaves call.
type ReinsertStats struct {
	Iterations  int  // passes over the dirty queue
	Processed   int  // handles reinserted
	Deferred    int  // handles whose leaf query ran on a worker
	CapExceeded bool // handles left queued for the next frame
}

// RecomputeRenderableLeaves drains the dirty queue: every changed renderable
// is removed from the tree and reinserted at its current bounds. Reinsertion
// may dirty more renderables, so the queue is drained repeatedly up to
// MaxDirtyIterations passes; anything left stays queued for the next call.
func (s *System) RecomputeRenderableLeaves() ReinsertStats {
	var st ReinsertStats
	for len(s.dirty) > 0 {
		if st.Iterations >= s.cfg.MaxDirtyIterations {
			st.CapExceeded = true
			s.log.Warn("dirty renderables still queued after max passes",
				zap.Int("passes", st.Iterations),
				zap.Int("pending", len(s.dirty)),
			)
			break
		}
		st.Iterations++

		batch := s.snapshotDirty()
		for _, h := range batch {
			s.removeFromTree(h, s.renderables.At(h.slot()))
		}
		if s.cfg.ParallelReinsert && len(batch) > 1 {
			st.Deferred += s.insertDeferred(batch)
		} else {
			for _, h := range batch {
				if s.renderables.IsValid(handle.Handle(h)) {
					s.insertIntoTree(h)
				}
			}
		}
		st.Processed += len(batch)
	}
	return st
}

// snapshotDirty moves live, still-flagged handles out of the queue and clears
// their flag so reinsertion side effects can queue them again.
func (s *System) snapshotDirty() []RenderHandle {
	s.batch = s.batch[:0]
	for _, h := range s.dirty {
		r := s.renderable(h)
		if r == nil || r.flags&FlagHasChanged == 0 {
			continue
		}
		r.flags &^= FlagHasChanged
		s.batch = append(s.batch, h)
	}
	s.dirty = s.dirty[:0]
	return s.batch
}

func (s *System) insertIntoTree(h RenderHandle) {
	box := CalcRenderableWorldSpaceAABBFast(s.renderables.At(h.slot()).owner)

	s.shadowEnum++
	s.tree.EnumerateLeaves(geom.Box{AABB: box}, func(l LeafIndex) bool {
		s.addRenderableToLeaf(l, h)
		return true
	})
	s.computeArea(h)
}

// insertDeferred runs the bounds and leaf queries on workers and commits the
// results on the calling goroutine. Owner accessors are serialised under one
// lock since owners are not required to be safe for concurrent reads.
func (s *System) insertDeferred(batch []RenderHandle) int {
	owners := make([]Owner, len(batch))
	for i, h := range batch {
		owners[i] = s.renderables.At(h.slot()).owner
	}
	results := make([][]LeafIndex, len(batch))

	var ownerMu sync.Mutex
	var g errgroup.Group
	g.SetLimit(max(1, s.cfg.ReinsertWorkers))
	for i := range batch {
		g.Go(func() error {
			ownerMu.Lock()
			box := CalcRenderableWorldSpaceAABBFast(owners[i])
			ownerMu.Unlock()

			var leaves []LeafIndex
			s.tree.EnumerateLeaves(geom.Box{AABB: box}, func(l LeafIndex) bool {
				leaves = append(leaves, l)
				return true
			})
			results[i] = leaves
			return nil
		})
	}
	_ = g.Wait()

	for i, h := range batch {
		if !s.renderables.IsValid(handle.Handle(h)) {
			continue
		}
		s.shadowEnum++
		for _, l := range results[i] {
			s.addRenderableToLeaf(l, h)
		}
		s.computeArea(h)
	}
	return len(batch)
}

// CalcRenderableWorldSpaceAABBFast returns a conservative world box for owner.
// A following renderable takes its parent's box bloated by the larger of its
// own extent and its offset instead of evaluating its attachment transform.
func CalcRenderableWorldSpaceAABBFast(owner Owner) geom.AABB {
	return calcFastBounds(owner, 0)
}

func calcFastBounds(owner Owner, depth int) geom.AABB {
	mins, maxs := owner.RenderBounds()
	if parent := owner.FollowedEntity(); parent != nil && depth < maxFollowDepth {
		box := calcFastBounds(parent, depth+1)
		radius := max(mins.Length(), maxs.Length(), owner.LocalOrigin().Length())
		return box.Bloat(radius)
	}
	return geom.TransformAABB(geom.MatrixFromAngles(owner.RenderOrigin(), owner.RenderAngles()), mins, maxs)
}
