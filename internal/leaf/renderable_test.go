package leaf

import (
	"testing"

	"github.com/l1jgo/leafsys/internal/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCreateRenderableClassifies(t *testing.T) {
	s, _ := newTestSystem(t, 4)

	opaque := s.CreateRenderableHandle(newOwner(50), false)
	static := s.CreateRenderableHandle(newOwner(50), true)
	glass := newOwner(50)
	glass.transparent = true
	translucent := s.CreateRenderableHandle(glass, false)
	wall := newOwner(50)
	wall.kind = ModelBrush
	brush := s.CreateRenderableHandle(wall, false)
	pane := newOwner(150)
	pane.kind = ModelStaticProp
	pane.transparent = true
	glassProp := s.CreateRenderableHandle(pane, true)
	arms := newOwner(0)
	arms.viewModel = true
	hands := s.CreateRenderableHandle(arms, false)
	visor := newOwner(0)
	visor.viewModel = true
	visor.transparent = true
	helmet := s.CreateRenderableHandle(visor, false)

	assert.Equal(t, GroupOpaqueEntity, s.RenderGroup(opaque))
	assert.Equal(t, GroupOpaqueStatic, s.RenderGroup(static))
	assert.Equal(t, GroupTranslucentEntity, s.RenderGroup(translucent))
	assert.Equal(t, GroupOpaqueBrush, s.RenderGroup(brush))
	assert.Equal(t, GroupTranslucentEntity, s.RenderGroup(glassProp), "transparent static props sort with translucents")
	assert.Equal(t, GroupViewModelOpaque, s.RenderGroup(hands))
	assert.Equal(t, GroupViewModelTranslucent, s.RenderGroup(helmet))

	assert.NotZero(t, s.Flags(static)&FlagStaticProp)
	assert.NotZero(t, s.Flags(glassProp)&FlagStaticProp)
	assert.NotZero(t, s.Flags(opaque)&FlagStudioModel)
	assert.NotZero(t, s.Flags(brush)&FlagBrushModel)
	assert.NotZero(t, s.Flags(hands)&FlagViewModel)
	assert.Zero(t, s.Flags(opaque)&FlagViewModel)
	assert.Equal(t, 7, s.RenderableCount())
	assert.Equal(t, 5, s.DirtyCount(), "new renderables wait for the reinsertion pass, view models excepted")

	s.RecomputeRenderableLeaves()
	assert.False(t, s.IsRenderableInTree(hands))
	assert.Equal(t, []LeafIndex{1}, leavesOf(s, glassProp))

	s.ComputeTranslucentRenderLeaf(allLeaves(4), 1, 0)
	out := NewRenderList(16)
	s.BuildRenderablesList(lookDownX(allLeaves(4), 1), out)
	require.Len(t, out.Group(GroupTranslucentEntity), 2)
	var emitted []RenderHandle
	for _, e := range out.Group(GroupTranslucentEntity) {
		emitted = append(emitted, e.Handle)
	}
	assert.ElementsMatch(t, []RenderHandle{translucent, glassProp}, emitted)
	assert.Len(t, out.Group(GroupOpaqueStatic), 1)
}

func TestFirstPassPlacesRenderables(t *testing.T) {
	s, _ := newTestSystem(t, 10)
	h := s.CreateRenderableHandle(newOwner(550), false)
	assert.False(t, s.IsRenderableInTree(h))

	st := s.RecomputeRenderableLeaves()
	assert.Equal(t, 1, st.Processed)
	assert.Equal(t, []LeafIndex{5}, leavesOf(s, h))
	assert.True(t, s.IsRenderableInTree(h))
	assert.Equal(t, 0, s.Area(h))
}

func TestMoveAcrossLeafBoundary(t *testing.T) {
	s, _ := newTestSystem(t, 10)
	o := newOwner(550)
	h := s.CreateRenderableHandle(o, false)
	s.RecomputeRenderableLeaves()
	require.Equal(t, []LeafIndex{5}, leavesOf(s, h))

	o.origin.X = 595
	s.RenderableChanged(h)
	s.RecomputeRenderableLeaves()

	assert.ElementsMatch(t, []LeafIndex{5, 6}, leavesOf(s, h))
	assert.Equal(t, 1, s.RenderablesInLeaf(6))
}

func TestRenderableChangedIsIdempotent(t *testing.T) {
	s, _ := newTestSystem(t, 4)
	h := s.CreateRenderableHandle(newOwner(50), false)
	s.RecomputeRenderableLeaves()

	s.RenderableChanged(h)
	s.RenderableChanged(h)
	s.RenderableChanged(h)
	assert.Equal(t, 1, s.DirtyCount())

	st := s.RecomputeRenderableLeaves()
	assert.Equal(t, 1, st.Processed)
	assert.Equal(t, 0, s.DirtyCount())
	assert.Zero(t, s.Flags(h)&FlagHasChanged)
}

func TestStaticPropIgnoresMovement(t *testing.T) {
	s, _ := newTestSystem(t, 4)
	h := s.CreateRenderableHandle(newOwner(150), true)
	s.AddRenderableToLeaves(h, []LeafIndex{1})
	assert.Equal(t, []LeafIndex{1}, leavesOf(s, h))

	// explicit placement takes it off the queue
	assert.Equal(t, 0, s.DirtyCount())
	st := s.RecomputeRenderableLeaves()
	assert.Equal(t, 0, st.Processed)

	s.RenderableChanged(h)
	assert.Equal(t, 0, s.DirtyCount())

	s.InvalidateStaticProp(h)
	assert.Equal(t, 1, s.DirtyCount())
	s.RecomputeRenderableLeaves()
	assert.Equal(t, []LeafIndex{1}, leavesOf(s, h))
}

func TestRemoveRenderableInvalidatesHandle(t *testing.T) {
	s, _ := newTestSystem(t, 4)
	h := s.CreateRenderableHandle(newOwner(150), false)
	s.RecomputeRenderableLeaves()
	s.RenderableChanged(h)

	require.Equal(t, 1, s.DirtyCount())

	s.RemoveRenderable(h)
	assert.False(t, s.IsValidRenderable(h))
	assert.Equal(t, 0, s.RenderablesInLeaf(1))
	assert.Equal(t, 0, s.RenderableCount())
	assert.Equal(t, 0, s.DirtyCount(), "removal drops the queued entry")

	st := s.RecomputeRenderableLeaves()
	assert.Equal(t, 0, st.Processed)

	next := s.CreateRenderableHandle(newOwner(150), false)
	assert.NotEqual(t, h, next)
	assert.False(t, s.IsValidRenderable(h))
}

func TestInvalidHandlesAreNoOps(t *testing.T) {
	s, _ := newTestSystem(t, 4)
	h := s.CreateRenderableHandle(newOwner(150), false)
	s.RemoveRenderable(h)
	pending := s.DirtyCount()

	for _, bad := range []RenderHandle{InvalidRenderHandle, h} {
		assert.NotPanics(t, func() {
			s.RemoveRenderable(bad)
			s.RenderableChanged(bad)
			s.InvalidateStaticProp(bad)
			s.SetRenderGroup(bad, GroupOpaqueEntity)
			s.SetRenderableFlags(bad, FlagDisableRendering, 0)
			s.AddRenderableToLeaves(bad, []LeafIndex{0})
		})
		assert.False(t, s.IsRenderableInTree(bad))
		assert.Nil(t, s.GetRenderableLeaves(bad, nil))
		assert.Nil(t, s.Owner(bad))
		assert.Equal(t, AreaNone, s.Area(bad))
		assert.Equal(t, -1, s.RenderFrame(bad))
	}
	assert.Equal(t, pending, s.DirtyCount())
}

func TestAreaCache(t *testing.T) {
	tree := newRowTree(4)
	tree.areas = []int{1, 1, 2, 2}
	s := NewSystem(testConfig(), tree, nil, zap.NewNop())

	inOne := s.CreateRenderableHandle(newOwner(95), false)  // leaves 0,1
	straddle := s.CreateRenderableHandle(newOwner(195), false) // leaves 1,2
	s.RecomputeRenderableLeaves()

	assert.Equal(t, 1, s.Area(inOne))
	assert.Equal(t, AreaMultiple, s.Area(straddle))

	outside := newOwner(5000)
	h := s.CreateRenderableHandle(outside, false)
	s.RecomputeRenderableLeaves()
	assert.Equal(t, AreaNone, s.Area(h))
	assert.False(t, s.IsRenderableInTree(h))
}

func TestSetRenderGroupViewModelTransitions(t *testing.T) {
	s, _ := newTestSystem(t, 4)
	h := s.CreateRenderableHandle(newOwner(150), false)
	s.RecomputeRenderableLeaves()
	require.True(t, s.IsRenderableInTree(h))

	s.SetRenderGroup(h, GroupViewModelOpaque)
	assert.False(t, s.IsRenderableInTree(h))
	s.RenderableChanged(h)
	assert.Equal(t, 0, s.DirtyCount(), "view models never enter the tree")

	s.SetRenderGroup(h, GroupOpaqueEntity)
	assert.Equal(t, 1, s.DirtyCount())
	s.RecomputeRenderableLeaves()
	assert.Equal(t, []LeafIndex{1}, leavesOf(s, h))
}

func TestInvalidGroupPanicsInDevelopment(t *testing.T) {
	dev, err := zap.NewDevelopment()
	require.NoError(t, err)
	s := NewSystem(testConfig(), newRowTree(2), nil, dev)

	assert.Panics(t, func() { s.AddRenderable(newOwner(50), GroupOpaqueEntityHuge) })
	assert.Panics(t, func() { s.EnumerateRenderablesInLeaf(7, func(RenderHandle, Owner) bool { return true }) })

	prod := NewSystem(testConfig(), newRowTree(2), nil, zap.NewNop())
	assert.Equal(t, InvalidRenderHandle, prod.AddRenderable(newOwner(50), GroupCount))
}

func TestGetRenderableLeavesCapped(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRenderableLeaves = 2
	s, logs := newObservedSystem(t, cfg, 10)

	wide := newOwner(500)
	wide.mins = geom.Vec(-450, -10, -10)
	wide.maxs = geom.Vec(450, 10, 10)
	h := s.CreateRenderableHandle(wide, false)
	s.RecomputeRenderableLeaves()

	assert.Len(t, s.GetRenderableLeaves(h, nil), 2)
	assert.Equal(t, 1, logs.FilterMessage("renderable leaf list truncated").Len())
}

func TestSubsystemDataReleasedOnShutdown(t *testing.T) {
	s, _ := newTestSystem(t, 3)
	rel := &countingReleaser{}
	s.SetSubsystemData(2, 1, rel)
	s.SetSubsystemData(2, NumSubsystemSlots, "ignored")
	assert.Same(t, rel, s.SubsystemData(2, 1))
	assert.Nil(t, s.SubsystemData(2, 0))

	s.SetDetailProps(1, 40, 6)
	first, count := s.DetailProps(1)
	assert.Equal(t, 40, first)
	assert.Equal(t, 6, count)

	h := s.CreateRenderableHandle(newOwner(50), false)
	s.Shutdown()
	assert.Equal(t, 1, rel.n)
	assert.False(t, s.IsValidRenderable(h))
	assert.Equal(t, 0, s.LeafCount())
}

type countingReleaser struct{ n int }

func (c *countingReleaser) Release() { c.n++ }

func TestNewSystemRequiresTree(t *testing.T) {
	assert.Panics(t, func() { NewSystem(testConfig(), nil, nil, zap.NewNop()) })
}
