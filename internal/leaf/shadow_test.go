package leaf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProjectShadowReachesRenderableOnce(t *testing.T) {
	s, rec := newTestSystem(t, 10)
	o := newOwner(550)
	h := s.CreateRenderableHandle(o, false)
	s.RecomputeRenderableLeaves()

	sh := s.AddShadow(7, ShadowFlagShadow)
	s.ProjectShadow(sh, []LeafIndex{5, 6})

	require.Len(t, rec.added, 1)
	assert.Equal(t, receiverCall{7, o, ReceiverStudioModel}, rec.added[0])
	assert.Equal(t, []ShadowHandle{sh}, s.ShadowsOnRenderable(h, nil))
	assert.ElementsMatch(t, []LeafIndex{5, 6}, s.ShadowLeaves(sh, nil))
}

func TestProjectShadowSpanningRenderableStillOnce(t *testing.T) {
	s, rec := newTestSystem(t, 10)
	o := newOwner(595) // leaves 5 and 6
	h := s.CreateRenderableHandle(o, false)
	s.RecomputeRenderableLeaves()
	require.Len(t, leavesOf(s, h), 2)

	sh := s.AddShadow(3, ShadowFlagShadow)
	s.ProjectShadow(sh, []LeafIndex{5, 6})
	assert.Len(t, rec.added, 1)

	// reprojecting replaces the previous association
	s.ProjectShadow(sh, []LeafIndex{6})
	assert.Len(t, rec.added, 2)
	assert.Len(t, s.ShadowsOnRenderable(h, nil), 1)
}

func TestRenderableEnteringShadowedLeaf(t *testing.T) {
	s, rec := newTestSystem(t, 10)
	sh := s.AddShadow(11, ShadowFlagFlashlight)
	s.ProjectFlashlight(sh, []LeafIndex{3})

	o := newOwner(150)
	h := s.CreateRenderableHandle(o, false)
	s.RecomputeRenderableLeaves()
	assert.Empty(t, rec.added)

	o.origin.X = 350
	s.RenderableChanged(h)
	s.RecomputeRenderableLeaves()
	require.Len(t, rec.added, 1)
	assert.Equal(t, 11, rec.added[0].sourceID)

	// leaving the leaf releases the receiver
	o.origin.X = 750
	s.RenderableChanged(h)
	s.RecomputeRenderableLeaves()
	require.Len(t, rec.removed, 1)
	assert.Equal(t, ReceiverStudioModel, rec.removed[0].kind)
	assert.Empty(t, s.ShadowsOnRenderable(h, nil))
}

func TestShadowReceiverEligibility(t *testing.T) {
	s, rec := newTestSystem(t, 4)

	sprite := newOwner(150)
	sprite.kind = ModelOther
	optOut := newOwner(150)
	optOut.noShadows = true
	wall := newOwner(150)
	wall.kind = ModelBrush
	prop := newOwner(150)

	hs := s.CreateRenderableHandle(sprite, false)
	ho := s.CreateRenderableHandle(optOut, false)
	hw := s.CreateRenderableHandle(wall, false)
	hp := s.CreateRenderableHandle(prop, true)
	s.RecomputeRenderableLeaves()

	assert.False(t, s.ShouldRenderableReceiveShadow(hs, ShadowFlagShadow))
	assert.False(t, s.ShouldRenderableReceiveShadow(ho, ShadowFlagShadow))
	assert.True(t, s.ShouldRenderableReceiveShadow(hw, ShadowFlagShadow))
	assert.True(t, s.ShouldRenderableReceiveShadow(hp, ShadowFlagShadow))

	sh := s.AddShadow(1, ShadowFlagShadow)
	s.ProjectShadow(sh, []LeafIndex{1})

	kinds := map[ReceiverKind]Owner{}
	for _, c := range rec.added {
		kinds[c.kind] = c.owner
	}
	assert.Len(t, rec.added, 2)
	assert.Equal(t, wall, kinds[ReceiverBrushModel])
	assert.Equal(t, prop, kinds[ReceiverStaticProp])
}

func TestRemoveShadowUnlinksEverything(t *testing.T) {
	s, _ := newTestSystem(t, 4)
	h := s.CreateRenderableHandle(newOwner(150), false)
	s.RecomputeRenderableLeaves()

	sh := s.AddShadow(2, ShadowFlagShadow)
	s.ProjectShadow(sh, []LeafIndex{0, 1, 2})
	require.Len(t, s.ShadowsOnRenderable(h, nil), 1)

	s.RemoveShadow(sh)
	assert.Empty(t, s.ShadowsOnRenderable(h, nil))
	assert.Equal(t, 0, s.ShadowCount())
	assert.Nil(t, s.ShadowLeaves(sh, nil))
	assert.Equal(t, -1, s.ShadowSource(sh))

	assert.NotPanics(t, func() {
		s.RemoveShadow(sh)
		s.ProjectShadow(sh, []LeafIndex{0})
		s.ProjectShadow(InvalidShadowHandle, []LeafIndex{0})
	})
}

func TestRemoveRenderableDropsShadowPairs(t *testing.T) {
	s, rec := newTestSystem(t, 4)
	o := newOwner(150)
	h := s.CreateRenderableHandle(o, false)
	s.RecomputeRenderableLeaves()
	sh := s.AddShadow(2, ShadowFlagShadow)
	s.ProjectShadow(sh, []LeafIndex{1})

	s.RemoveRenderable(h)
	require.Len(t, rec.removed, 1)
	assert.Equal(t, o, rec.removed[0].owner)

	// the shadow itself is untouched
	assert.Equal(t, []LeafIndex{1}, s.ShadowLeaves(sh, nil))
}

func TestEnumerateShadowsInLeavesDeduplicates(t *testing.T) {
	s, _ := newTestSystem(t, 6)
	a := s.AddShadow(10, ShadowFlagShadow)
	b := s.AddShadow(20, ShadowFlagFlashlight)
	s.ProjectShadow(a, []LeafIndex{1, 2, 3})
	s.ProjectFlashlight(b, []LeafIndex{3, 4})

	var seen []int
	s.EnumerateShadowsInLeaves([]LeafIndex{1, 2, 3, 4}, func(_ ShadowHandle, src int) bool {
		seen = append(seen, src)
		return true
	})
	assert.ElementsMatch(t, []int{10, 20}, seen)

	seen = seen[:0]
	s.EnumerateShadowsInLeaves([]LeafIndex{1, 2, 3, 4}, func(_ ShadowHandle, src int) bool {
		seen = append(seen, src)
		return false
	})
	assert.Len(t, seen, 1)
}

func TestProjectionTypeMismatch(t *testing.T) {
	dev, err := zap.NewDevelopment()
	require.NoError(t, err)
	s := NewSystem(testConfig(), newRowTree(2), nil, dev)

	sh := s.AddShadow(1, ShadowFlagShadow)
	assert.Panics(t, func() { s.ProjectFlashlight(sh, []LeafIndex{0}) })
}
