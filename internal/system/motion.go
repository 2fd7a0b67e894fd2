package system

import (
	"time"

	"github.com/chewxy/math32"
	coresys "github.com/l1jgo/leafsys/internal/core/system"
	"github.com/l1jgo/leafsys/internal/geom"
	"github.com/l1jgo/leafsys/internal/world"
)

// MotionSystem integrates velocity and yaw spin for every object carrying
// a Motion component. Root objects bounce off the level bounds; followers
// move relative to their parent. Phase 1 (Update).
type MotionSystem struct {
	world *world.State
}

func NewMotionSystem(ws *world.State) *MotionSystem {
	return &MotionSystem{world: ws}
}

func (s *MotionSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *MotionSystem) Update(dt time.Duration) {
	secs := float32(dt.Seconds())
	if secs <= 0 {
		return
	}
	bounds := s.world.Tree.Bounds()

	s.world.EachMoving(func(o *world.Object, m *world.Motion) {
		base := o.Origin
		if o.Parent != nil {
			base = o.Local
		}
		next := base.Add(m.Velocity.Scale(secs))
		if o.Parent == nil {
			next = bounce(bounds, base, next, &m.Velocity)
		}
		angles := o.Angles
		angles.Yaw = math32.Mod(angles.Yaw+m.AngularSpeed*secs, 360)
		if next == base && angles == o.Angles {
			return
		}
		s.world.Move(o.ID, next, angles)
	})
}

// bounce reflects vel on each axis where next leaves b, keeping that axis at
// its previous value.
func bounce(b geom.AABB, prev, next geom.Vector, vel *geom.Vector) geom.Vector {
	if next.X < b.Mins.X || next.X > b.Maxs.X {
		vel.X, next.X = -vel.X, prev.X
	}
	if next.Y < b.Mins.Y || next.Y > b.Maxs.Y {
		vel.Y, next.Y = -vel.Y, prev.Y
	}
	if next.Z < b.Mins.Z || next.Z > b.Maxs.Z {
		vel.Z, next.Z = -vel.Z, prev.Z
	}
	return next
}
