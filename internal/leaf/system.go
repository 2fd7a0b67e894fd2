package leaf

import (
	"github.com/l1jgo/leafsys/internal/config"
	"github.com/l1jgo/leafsys/internal/core/bucket"
	"github.com/l1jgo/leafsys/internal/core/handle"
	"go.uber.org/zap"
)

type leafRecord struct {
	firstRenderable bucket.Index
	firstShadow     bucket.Index

	firstDetailProp       int
	detailPropCount       int
	detailPropRenderFrame int

	subsystemData [NumSubsystemSlots]any
}

type renderableRecord struct {
	owner Owner
	flags RenderFlags
	group RenderGroup

	renderFrame  int // last frame the renderable was emitted
	renderFrame2 int // build stamp, dedups emission across leaves
	enumCount    int // shadow enumeration stamp

	translucencyCalculatedFrame int
	translucencyCalculatedView  int
	renderLeaf                  LeafIndex
	fxBlend                     int

	area    int
	twoPass bool // cached at classification, translucent groups only

	leafHead   bucket.Index // renderablesInLeaf, element side
	shadowHead bucket.Index // shadowsOnRenderable, bucket side
}

type shadowRecord struct {
	sourceID       int
	flags          ShadowFlags
	enumCount      int
	leafHead       bucket.Index // shadowsInLeaf, element side
	renderableHead bucket.Index // shadowsOnRenderable, element side
}

// System maintains the renderable, shadow and leaf associations and builds
// per-view render lists. It is single threaded; only the leaf queries of the
// reinsertion pass fan out to workers.
type System struct {
	cfg       config.LeafConfig
	tree      SpatialQuery
	shadowMgr ShadowManager
	log       *zap.Logger

	leaves      []leafRecord
	renderables *handle.Table[renderableRecord]
	shadows     *handle.Table[shadowRecord]

	renderablesInLeaf   *bucket.Set[LeafIndex, RenderHandle]
	shadowsInLeaf       *bucket.Set[LeafIndex, ShadowHandle]
	shadowsOnRenderable *bucket.Set[RenderHandle, ShadowHandle]

	dirty      []RenderHandle
	batch      []RenderHandle
	viewModels []RenderHandle

	shadowEnum int
	buildStamp int
	sortDists  []float32
}

// NewSystem sizes the leaf table from tree.LeafCount(). shadows may be nil
// when no shadow manager is attached.
func NewSystem(cfg config.LeafConfig, tree SpatialQuery, shadows ShadowManager, log *zap.Logger) *System {
	if tree == nil {
		panic("leaf: NewSystem requires a spatial query")
	}
	if shadows == nil {
		shadows = nopShadowManager{}
	}
	s := &System{
		cfg:         cfg,
		tree:        tree,
		shadowMgr:   shadows,
		log:         log,
		renderables: handle.New[renderableRecord](512),
		shadows:     handle.New[shadowRecord](64),
	}
	s.leaves = make([]leafRecord, tree.LeafCount())
	for i := range s.leaves {
		s.leaves[i].firstRenderable = bucket.InvalidIndex
		s.leaves[i].firstShadow = bucket.InvalidIndex
		s.leaves[i].detailPropRenderFrame = -1
	}

	leafRenderables := func(l LeafIndex) *bucket.Index { return &s.leaves[l].firstRenderable }
	leafShadows := func(l LeafIndex) *bucket.Index { return &s.leaves[l].firstShadow }
	renderableLeaves := func(h RenderHandle) *bucket.Index { return &s.renderables.At(h.slot()).leafHead }
	renderableShadows := func(h RenderHandle) *bucket.Index { return &s.renderables.At(h.slot()).shadowHead }
	shadowLeaves := func(h ShadowHandle) *bucket.Index { return &s.shadows.At(h.slot()).leafHead }
	shadowRenderables := func(h ShadowHandle) *bucket.Index { return &s.shadows.At(h.slot()).renderableHead }

	s.renderablesInLeaf = bucket.New(leafRenderables, renderableLeaves)
	s.shadowsInLeaf = bucket.New(leafShadows, shadowLeaves)
	s.shadowsOnRenderable = bucket.New(renderableShadows, shadowRenderables)

	log.Info("leaf system ready",
		zap.Int("leaves", len(s.leaves)),
		zap.Bool("parallel_reinsert", cfg.ParallelReinsert),
		zap.Int("max_group_entities", cfg.MaxGroupEntities),
	)
	return s
}

// Shutdown releases per-leaf subsystem data and drops every association.
// All outstanding handles become invalid.
func (s *System) Shutdown() {
	for i := range s.leaves {
		for slot, d := range s.leaves[i].subsystemData {
			if r, ok := d.(SubsystemReleaser); ok {
				r.Release()
			}
			s.leaves[i].subsystemData[slot] = nil
		}
	}
	s.renderablesInLeaf.Reset()
	s.shadowsInLeaf.Reset()
	s.shadowsOnRenderable.Reset()
	s.renderables.Clear()
	s.shadows.Clear()
	s.leaves = nil
	s.dirty = s.dirty[:0]
	s.viewModels = s.viewModels[:0]
}

func (s *System) LeafCount() int       { return len(s.leaves) }
func (s *System) RenderableCount() int { return s.renderables.Len() }
func (s *System) ShadowCount() int     { return s.shadows.Len() }
func (s *System) DirtyCount() int      { return len(s.dirty) }

func (s *System) validLeaf(l LeafIndex) bool {
	if int(l) < len(s.leaves) {
		return true
	}
	s.log.DPanic("leaf index out of range", zap.Int("leaf", int(l)), zap.Int("leaves", len(s.leaves)))
	return false
}

func (s *System) renderable(h RenderHandle) *renderableRecord {
	return s.renderables.Get(handle.Handle(h))
}

func (s *System) shadow(h ShadowHandle) *shadowRecord {
	return s.shadows.Get(handle.Handle(h))
}

type nopShadowManager struct{}

func (nopShadowManager) AddShadowToReceiver(int, Owner, ReceiverKind)    {}
func (nopShadowManager) RemoveAllShadowsFromReceiver(Owner, ReceiverKind) {}
