package system

import (
	"time"

	"github.com/l1jgo/leafsys/internal/core/ecs"
	"github.com/l1jgo/leafsys/internal/core/event"
	coresys "github.com/l1jgo/leafsys/internal/core/system"
	"github.com/l1jgo/leafsys/internal/data"
	"github.com/l1jgo/leafsys/internal/geom"
	"github.com/l1jgo/leafsys/internal/leaf"
	"github.com/l1jgo/leafsys/internal/persist"
	"github.com/l1jgo/leafsys/internal/world"
	"go.uber.org/zap"
)

// flashlightSource is the shadow manager id of the view flashlight. Blob
// shadow sources count up from 1.
const flashlightSource = 0

type caster struct {
	handle leaf.ShadowHandle
	source int
	origin geom.Vector
	angles geom.Angles
}

// ShadowSystem keeps a blob shadow under every studio model. A shadow is
// reprojected only when its caster moved. Phase 3 (Shadow).
type ShadowSystem struct {
	world      *world.State
	depth      float32
	casters    map[ecs.EntityID]*caster
	nextSource int
	leaves     []leaf.LeafIndex
	stats      *persist.FrameStats
	log        *zap.Logger
}

func NewShadowSystem(ws *world.State, depth float32, stats *persist.FrameStats, log *zap.Logger) *ShadowSystem {
	s := &ShadowSystem{
		world:      ws,
		depth:      depth,
		casters:    make(map[ecs.EntityID]*caster),
		nextSource: flashlightSource + 1,
		stats:      stats,
		log:        log,
	}
	event.Subscribe(ws.Bus, s.onDespawned)
	return s
}

func (s *ShadowSystem) Phase() coresys.Phase { return coresys.PhaseShadow }

func (s *ShadowSystem) Update(_ time.Duration) {
	s.world.EachObject(func(o *world.Object) {
		if o.Kind != data.KindStudio {
			return
		}
		c := s.casters[o.ID]
		if c == nil {
			h := s.world.Leaf.AddShadow(s.nextSource, leaf.ShadowFlagShadow)
			if h == leaf.InvalidShadowHandle {
				return
			}
			c = &caster{handle: h, source: s.nextSource}
			s.nextSource++
			s.casters[o.ID] = c
		} else if c.origin == o.RenderOrigin() && c.angles == o.RenderAngles() {
			return
		}
		c.origin, c.angles = o.RenderOrigin(), o.RenderAngles()
		s.project(c, s.volume(o))
	})
}

// volume is the caster's box stretched down by the shadow depth.
func (s *ShadowSystem) volume(o *world.Object) geom.Box {
	b := o.WorldBounds()
	b.Mins.Z -= s.depth
	return geom.Box{AABB: b}
}

func (s *ShadowSystem) project(c *caster, vol geom.Volume) {
	s.leaves = s.leaves[:0]
	s.world.Tree.EnumerateLeaves(vol, func(l leaf.LeafIndex) bool {
		s.leaves = append(s.leaves, l)
		return true
	})
	s.world.Receivers.ClearSource(c.source)
	s.world.Leaf.ProjectShadow(c.handle, s.leaves)
	s.stats.Projections++
}

func (s *ShadowSystem) onDespawned(e event.ObjectDespawned) {
	c, ok := s.casters[e.Entity]
	if !ok {
		return
	}
	s.world.Leaf.RemoveShadow(c.handle)
	s.world.Receivers.ClearSource(c.source)
	delete(s.casters, e.Entity)
	s.log.Debug("shadow removed", zap.String("caster", e.Name), zap.Int("source", c.source))
}

// Casters returns the number of live blob shadows.
func (s *ShadowSystem) Casters() int { return len(s.casters) }

// Source returns the shadow source id of an object's blob shadow.
func (s *ShadowSystem) Source(id ecs.EntityID) (int, bool) {
	c, ok := s.casters[id]
	if !ok {
		return 0, false
	}
	return c.source, true
}

// FlashlightSystem projects a flashlight cone from the camera into the
// leaves it reaches. Toggled by FlashlightToggled events. Phase 3 (Shadow).
type FlashlightSystem struct {
	world  *world.State
	camera *world.Camera
	radius float32
	on     bool
	handle leaf.ShadowHandle
	origin geom.Vector
	angles geom.Angles
	leaves []leaf.LeafIndex
	stats  *persist.FrameStats
	log    *zap.Logger
}

func NewFlashlightSystem(ws *world.State, cam *world.Camera, radius float32, stats *persist.FrameStats, log *zap.Logger) *FlashlightSystem {
	s := &FlashlightSystem{
		world:  ws,
		camera: cam,
		radius: radius,
		on:     radius > 0,
		handle: leaf.InvalidShadowHandle,
		stats:  stats,
		log:    log,
	}
	event.Subscribe(ws.Bus, func(e event.FlashlightToggled) {
		s.on = e.On && s.radius > 0
		s.log.Info("flashlight toggled", zap.Bool("on", s.on))
	})
	return s
}

func (s *FlashlightSystem) Phase() coresys.Phase { return coresys.PhaseShadow }

func (s *FlashlightSystem) Update(_ time.Duration) {
	if !s.on {
		if s.handle != leaf.InvalidShadowHandle {
			s.world.Leaf.RemoveShadow(s.handle)
			s.world.Receivers.ClearSource(flashlightSource)
			s.handle = leaf.InvalidShadowHandle
		}
		return
	}
	if s.handle == leaf.InvalidShadowHandle {
		s.handle = s.world.Leaf.AddShadow(flashlightSource, leaf.ShadowFlagFlashlight)
		if s.handle == leaf.InvalidShadowHandle {
			return
		}
	} else if s.origin == s.camera.Origin && s.angles == s.camera.Angles {
		return
	}
	s.origin, s.angles = s.camera.Origin, s.camera.Angles

	cone := *s.camera
	cone.Far = s.radius
	s.leaves = s.world.VisibleLeaves(cone, s.leaves[:0])
	s.world.Receivers.ClearSource(flashlightSource)
	s.world.Leaf.ProjectFlashlight(s.handle, s.leaves)
	s.stats.Projections++
}

func (s *FlashlightSystem) On() bool { return s.handle != leaf.InvalidShadowHandle }
