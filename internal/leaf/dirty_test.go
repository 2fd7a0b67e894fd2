package leaf

import (
	"math/rand"
	"testing"

	"github.com/l1jgo/leafsys/internal/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReinsertCapLeavesWorkQueued(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDirtyIterations = 3
	s, logs := newObservedSystem(t, cfg, 4)

	o := newOwner(150)
	var h RenderHandle
	// every bounds query dirties the renderable again
	o.onBounds = func() { s.RenderableChanged(h) }
	h = s.CreateRenderableHandle(o, false)

	st := s.RecomputeRenderableLeaves()
	assert.Equal(t, 3, st.Iterations)
	assert.Equal(t, 3, st.Processed)
	assert.True(t, st.CapExceeded)
	assert.Equal(t, 1, s.DirtyCount())
	assert.Equal(t, []LeafIndex{1}, leavesOf(s, h))
	assert.Equal(t, 1, logs.FilterMessage("dirty renderables still queued after max passes").Len())
}

func TestFollowerUsesParentBounds(t *testing.T) {
	parent := newOwner(550)
	child := newOwner(0) // own origin is ignored while following
	child.parent = parent
	child.local = geom.Vec(0, 0, 60)

	box := CalcRenderableWorldSpaceAABBFast(child)
	// parent box [540,560] bloated by the offset, which beats |(10,10,10)|
	assert.InDelta(t, 480, box.Mins.X, 1e-3)
	assert.InDelta(t, 620, box.Maxs.X, 1e-3)

	near := newOwner(0)
	near.parent = parent
	near.local = geom.Vec(0, 0, 5)
	extent := geom.Vec(10, 10, 10).Length()
	box = CalcRenderableWorldSpaceAABBFast(near)
	assert.InDelta(t, 540-extent, box.Mins.X, 1e-3, "extent beats a short offset")
	assert.InDelta(t, 560+extent, box.Maxs.X, 1e-3)

	s, _ := newTestSystem(t, 10)
	hp := s.CreateRenderableHandle(parent, false)
	hc := s.CreateRenderableHandle(child, false)
	hn := s.CreateRenderableHandle(near, false)
	s.RecomputeRenderableLeaves()
	assert.Equal(t, []LeafIndex{5}, leavesOf(s, hp))
	assert.ElementsMatch(t, []LeafIndex{4, 5, 6}, leavesOf(s, hc))
	assert.Equal(t, []LeafIndex{5}, leavesOf(s, hn))
}

func TestFastBoundsRotates(t *testing.T) {
	o := newOwner(0)
	o.origin = geom.Vec(0, 0, 0)
	o.mins = geom.Vec(-40, -5, -5)
	o.maxs = geom.Vec(40, 5, 5)
	o.angles = geom.Angles{Yaw: 90}

	box := CalcRenderableWorldSpaceAABBFast(o)
	assert.InDelta(t, 40, box.Maxs.Y, 1e-3)
	assert.InDelta(t, 5, box.Maxs.X, 1e-3)
}

func TestParallelReinsertMatchesSerial(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	type spawn struct{ x, y, half float32 }
	spawns := make([]spawn, 200)
	for i := range spawns {
		spawns[i] = spawn{rng.Float32() * 2000, rng.Float32()*60 + 20, rng.Float32()*80 + 5}
	}

	build := func(parallel bool) (*System, []RenderHandle) {
		cfg := testConfig()
		cfg.ParallelReinsert = parallel
		cfg.ReinsertWorkers = 4
		s := NewSystem(cfg, newRowTree(20), nil, zap.NewNop())
		hs := make([]RenderHandle, len(spawns))
		for i, sp := range spawns {
			o := newOwner(sp.x)
			o.origin.Y = sp.y
			o.mins = geom.Vec(-sp.half, -10, -10)
			o.maxs = geom.Vec(sp.half, 10, 10)
			hs[i] = s.CreateRenderableHandle(o, false)
		}
		st := s.RecomputeRenderableLeaves()
		if parallel {
			require.Equal(t, len(spawns), st.Deferred)
		}
		return s, hs
	}

	serial, hs := build(false)
	parallel, hp := build(true)
	for i := range hs {
		assert.Equal(t, leavesOf(serial, hs[i]), leavesOf(parallel, hp[i]), "renderable %d", i)
		assert.Equal(t, serial.Area(hs[i]), parallel.Area(hp[i]))
	}
	for l := 0; l < 20; l++ {
		assert.Equal(t, serial.RenderablesInLeaf(LeafIndex(l)), parallel.RenderablesInLeaf(LeafIndex(l)))
	}
}

func TestParallelReinsertPicksUpShadows(t *testing.T) {
	cfg := testConfig()
	cfg.ParallelReinsert = true
	rec := &recordingShadows{}
	s := NewSystem(cfg, newRowTree(6), rec, zap.NewNop())

	sh := s.AddShadow(5, ShadowFlagShadow)
	s.ProjectShadow(sh, []LeafIndex{2, 3})

	a := s.CreateRenderableHandle(newOwner(295), false) // leaves 2,3
	b := s.CreateRenderableHandle(newOwner(450), false) // leaf 4
	s.RecomputeRenderableLeaves()

	assert.Len(t, rec.added, 1)
	assert.Len(t, s.ShadowsOnRenderable(a, nil), 1)
	assert.Empty(t, s.ShadowsOnRenderable(b, nil))
}

// newGridTree lays nx*ny 100-unit columns over the XY plane, 200 units tall.
func newGridTree(nx, ny int) *boxTree {
	t := &boxTree{}
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			lo := geom.Vec(float32(x*100), float32(y*100), 0)
			t.boxes = append(t.boxes, geom.Box3(lo, lo.Add(geom.Vec(100, 100, 200))))
			t.areas = append(t.areas, y)
		}
	}
	return t
}

func TestLeafMembershipAfterRandomMoves(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		rng := rand.New(rand.NewSource(7))
		tree := newGridTree(8, 6)
		cfg := testConfig()
		cfg.ParallelReinsert = parallel
		cfg.ReinsertWorkers = 3
		s := NewSystem(cfg, tree, nil, zap.NewNop())

		randomPos := func() geom.Vector {
			return geom.Vec(rng.Float32()*900-50, rng.Float32()*700-50, rng.Float32()*200)
		}
		owners := make([]*testOwner, 80)
		hs := make([]RenderHandle, len(owners))
		followers := map[*testOwner][]int{}
		for i := range owners {
			o := newOwner(0)
			o.origin = randomPos()
			half := rng.Float32()*60 + 1
			o.mins = geom.Vec(-half, -half/2, -10)
			o.maxs = geom.Vec(half, half/2, 10)
			if i > 0 && rng.Intn(5) == 0 {
				o.parent = owners[rng.Intn(i)]
				o.local = geom.Vec(0, 0, rng.Float32()*40)
				followers[o.parent] = append(followers[o.parent], i)
			}
			owners[i] = o
			hs[i] = s.CreateRenderableHandle(o, false)
		}

		var changed func(i int)
		changed = func(i int) {
			s.RenderableChanged(hs[i])
			for _, f := range followers[owners[i]] {
				changed(f)
			}
		}

		for round := 0; round < 10; round++ {
			if round > 0 {
				for n := 0; n < 25; n++ {
					i := rng.Intn(len(owners))
					owners[i].origin = randomPos()
					owners[i].angles.Yaw = rng.Float32() * 360
					changed(i)
				}
			}
			st := s.RecomputeRenderableLeaves()
			require.False(t, st.CapExceeded)
			require.Zero(t, s.DirtyCount())

			members := make(map[LeafIndex]map[RenderHandle]bool)
			for i, o := range owners {
				var want []LeafIndex
				tree.EnumerateLeaves(geom.Box{AABB: CalcRenderableWorldSpaceAABBFast(o)}, func(l LeafIndex) bool {
					want = append(want, l)
					return true
				})
				got := leavesOf(s, hs[i])
				assert.ElementsMatch(t, want, got, "parallel=%v round %d renderable %d", parallel, round, i)
				for _, l := range got {
					if members[l] == nil {
						members[l] = map[RenderHandle]bool{}
					}
					members[l][hs[i]] = true
				}
			}
			for l := 0; l < tree.LeafCount(); l++ {
				inLeaf := map[RenderHandle]bool{}
				s.EnumerateRenderablesInLeaf(LeafIndex(l), func(h RenderHandle, _ Owner) bool {
					inLeaf[h] = true
					return true
				})
				assert.Len(t, inLeaf, len(members[LeafIndex(l)]), "leaf %d", l)
				for h := range members[LeafIndex(l)] {
					assert.True(t, inLeaf[h], "leaf %d is missing renderable %v", l, h)
				}
			}
		}
	}
}
