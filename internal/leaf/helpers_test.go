package leaf

import (
	"testing"

	"github.com/l1jgo/leafsys/internal/config"
	"github.com/l1jgo/leafsys/internal/geom"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// boxTree is a linear-scan SpatialQuery over explicit leaf boxes.
type boxTree struct {
	boxes []geom.AABB
	areas []int
}

// newRowTree lays n 100-unit cells along +X. Leaf i spans x in
// [100i, 100(i+1)], area 0.
func newRowTree(n int) *boxTree {
	t := &boxTree{}
	for i := 0; i < n; i++ {
		x := float32(i * 100)
		t.boxes = append(t.boxes, geom.Box3(geom.Vec(x, 0, 0), geom.Vec(x+100, 100, 100)))
		t.areas = append(t.areas, 0)
	}
	return t
}

func (t *boxTree) LeafCount() int           { return len(t.boxes) }
func (t *boxTree) LeafArea(l LeafIndex) int { return t.areas[l] }
func (t *boxTree) EnumerateLeaves(vol geom.Volume, fn func(LeafIndex) bool) bool {
	for i, b := range t.boxes {
		if vol.TouchesBox(b) && !fn(LeafIndex(i)) {
			return false
		}
	}
	return true
}

type testOwner struct {
	origin      geom.Vector
	angles      geom.Angles
	mins, maxs  geom.Vector
	local       geom.Vector
	parent      *testOwner
	transparent bool
	twoPass     bool
	viewModel   bool
	blend       int
	kind        ModelKind
	noShadows   bool
	onBounds    func()
}

// newOwner returns a 20-unit studio cube centred at (x, 50, 50).
func newOwner(x float32) *testOwner {
	return &testOwner{
		origin: geom.Vec(x, 50, 50),
		mins:   geom.Vec(-10, -10, -10),
		maxs:   geom.Vec(10, 10, 10),
		blend:  255,
		kind:   ModelStudio,
	}
}

func (o *testOwner) RenderBounds() (geom.Vector, geom.Vector) {
	if o.onBounds != nil {
		o.onBounds()
	}
	return o.mins, o.maxs
}
func (o *testOwner) RenderOrigin() geom.Vector { return o.origin }
func (o *testOwner) RenderAngles() geom.Angles { return o.angles }
func (o *testOwner) LocalOrigin() geom.Vector  { return o.local }
func (o *testOwner) FollowedEntity() Owner {
	if o.parent == nil {
		return nil
	}
	return o.parent
}
func (o *testOwner) IsTransparent() bool  { return o.transparent }
func (o *testOwner) IsTwoPass() bool      { return o.twoPass }
func (o *testOwner) IsViewModel() bool    { return o.viewModel }
func (o *testOwner) ComputeFxBlend() int  { return o.blend }
func (o *testOwner) ModelKind() ModelKind { return o.kind }
func (o *testOwner) ShouldReceiveProjectedTextures(ShadowFlags) bool {
	return !o.noShadows
}

type receiverCall struct {
	sourceID int
	owner    Owner
	kind     ReceiverKind
}

type recordingShadows struct {
	added   []receiverCall
	removed []receiverCall
}

func (m *recordingShadows) AddShadowToReceiver(sourceID int, owner Owner, kind ReceiverKind) {
	m.added = append(m.added, receiverCall{sourceID, owner, kind})
}

func (m *recordingShadows) RemoveAllShadowsFromReceiver(owner Owner, kind ReceiverKind) {
	m.removed = append(m.removed, receiverCall{-1, owner, kind})
}

func testConfig() config.LeafConfig {
	return config.Defaults().Leaf
}

func newTestSystem(t *testing.T, leaves int) (*System, *recordingShadows) {
	t.Helper()
	rec := &recordingShadows{}
	return NewSystem(testConfig(), newRowTree(leaves), rec, zap.NewNop()), rec
}

func newObservedSystem(t *testing.T, cfg config.LeafConfig, leaves int) (*System, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	return NewSystem(cfg, newRowTree(leaves), nil, zap.New(core)), logs
}

func leavesOf(s *System, h RenderHandle) []LeafIndex {
	return s.GetRenderableLeaves(h, nil)
}

// allLeaves returns 0..n-1 in order.
func allLeaves(n int) []LeafIndex {
	out := make([]LeafIndex, n)
	for i := range out {
		out[i] = LeafIndex(i)
	}
	return out
}
