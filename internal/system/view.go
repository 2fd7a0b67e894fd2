package system

import (
	"time"

	coresys "github.com/l1jgo/leafsys/internal/core/system"
	"github.com/l1jgo/leafsys/internal/leaf"
	"github.com/l1jgo/leafsys/internal/persist"
	"github.com/l1jgo/leafsys/internal/world"
	"go.uber.org/zap"
)

// ViewSystem builds the camera's render list every frame and tracks which
// renderables enter and leave it. Phase 4 (Render).
//
// When follow names an object the camera rides it; otherwise the camera
// stays where it was placed.
type ViewSystem struct {
	world  *world.State
	camera *world.Camera
	follow string
	list   *leaf.RenderList
	leaves []leaf.LeafIndex

	known   map[leaf.RenderHandle]struct{}
	current map[leaf.RenderHandle]struct{}

	stats *persist.FrameStats
	log   *zap.Logger
}

func NewViewSystem(ws *world.State, cam *world.Camera, follow string, capacity int, stats *persist.FrameStats, log *zap.Logger) *ViewSystem {
	return &ViewSystem{
		world:   ws,
		camera:  cam,
		follow:  follow,
		list:    leaf.NewRenderList(capacity),
		known:   make(map[leaf.RenderHandle]struct{}),
		current: make(map[leaf.RenderHandle]struct{}),
		stats:   stats,
		log:     log,
	}
}

func (s *ViewSystem) Phase() coresys.Phase { return coresys.PhaseRender }

func (s *ViewSystem) Update(_ time.Duration) {
	if s.follow != "" {
		if o, ok := s.world.ObjectByName(s.follow); ok {
			s.camera.Origin = o.RenderOrigin()
			s.camera.Angles = o.RenderAngles()
		}
	}
	s.world.ViewOrigin = s.camera.Origin

	s.leaves = s.world.VisibleLeaves(*s.camera, s.leaves[:0])
	view := s.world.ViewInfo(*s.camera, s.leaves)
	s.world.Leaf.ComputeTranslucentRenderLeaf(view.Leaves, view.Frame, view.ViewID)
	s.list.Reset()
	st := s.world.Leaf.BuildRenderablesList(view, s.list)

	s.stats.VisibleLeaves += st.Leaves
	s.stats.Emitted += st.Emitted
	s.stats.Culled += st.Culled
	s.stats.Dropped += st.Dropped
	s.stats.DetailLeaves += st.DetailLeaves
	s.diff()
}

// diff compares this frame's list against the previous one.
func (s *ViewSystem) diff() {
	clear(s.current)
	for g := leaf.RenderGroup(0); g < leaf.GroupCount; g++ {
		for _, e := range s.list.Group(g) {
			if _, seen := s.current[e.Handle]; seen {
				continue
			}
			s.current[e.Handle] = struct{}{}
			if _, known := s.known[e.Handle]; !known {
				s.stats.Entered++
				s.log.Debug("renderable entered view",
					zap.String("name", ownerName(e.Owner)),
					zap.Stringer("group", g),
					zap.Int("frame", s.world.Frame),
				)
			}
		}
	}
	for h := range s.known {
		if _, still := s.current[h]; !still {
			s.stats.Exited++
			s.log.Debug("renderable left view", zap.Uint32("handle", uint32(h)), zap.Int("frame", s.world.Frame))
		}
	}
	s.known, s.current = s.current, s.known
}

// List returns the most recent render list. It is rebuilt in place.
func (s *ViewSystem) List() *leaf.RenderList { return s.list }

// Visible reports whether h was in the most recent render list.
func (s *ViewSystem) Visible(h leaf.RenderHandle) bool {
	_, ok := s.known[h]
	return ok
}

func ownerName(o leaf.Owner) string {
	if obj, ok := o.(*world.Object); ok && obj.Name != "" {
		return obj.Name
	}
	return "?"
}
