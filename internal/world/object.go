package world

import (
	"github.com/l1jgo/leafsys/internal/core/ecs"
	"github.com/l1jgo/leafsys/internal/data"
	"github.com/l1jgo/leafsys/internal/geom"
	"github.com/l1jgo/leafsys/internal/leaf"
	"github.com/l1jgo/leafsys/internal/scripting"
)

// PropScripts evaluates scripted prop callbacks. *scripting.Engine
// satisfies it.
type PropScripts interface {
	ComputeFxBlend(name string, ctx scripting.PropContext) int
	ShouldReceiveProjectedTextures(name string, shadow, flashlight bool) bool
}

// Object is one simulated renderable. It is the leaf.Owner the leaf system
// calls back into. Accessed only from the frame loop goroutine, except for
// the bounds accessors which the reinsertion workers call under a lock.
type Object struct {
	ID   ecs.EntityID
	Name string
	Kind string // data.Kind*

	Origin geom.Vector
	Angles geom.Angles
	Mins   geom.Vector
	Maxs   geom.Vector

	// Parent is the followed object; Local is the offset from its origin.
	Parent *Object
	Local  geom.Vector

	Translucent bool
	TwoPass     bool
	NoShadows   bool
	Blend       int    // fx blend when no script overrides it
	Script      string // props table entry, empty for none

	Handle leaf.RenderHandle

	state *State
}

// Motion moves an object every frame.
type Motion struct {
	Velocity     geom.Vector
	AngularSpeed float32 // yaw degrees per second
}

func (o *Object) RenderBounds() (geom.Vector, geom.Vector) { return o.Mins, o.Maxs }

func (o *Object) RenderOrigin() geom.Vector {
	if o.Parent != nil {
		return o.Parent.RenderOrigin().Add(o.Local)
	}
	return o.Origin
}

func (o *Object) RenderAngles() geom.Angles {
	if o.Parent != nil {
		return o.Parent.RenderAngles()
	}
	return o.Angles
}

func (o *Object) LocalOrigin() geom.Vector { return o.Local }

func (o *Object) FollowedEntity() leaf.Owner {
	if o.Parent == nil {
		return nil
	}
	return o.Parent
}

func (o *Object) IsTransparent() bool { return o.Translucent }
func (o *Object) IsTwoPass() bool     { return o.TwoPass }
func (o *Object) IsViewModel() bool   { return o.Kind == data.KindViewModel }

func (o *Object) ComputeFxBlend() int {
	if o.Script == "" || o.state == nil || o.state.scripts == nil {
		return o.Blend
	}
	return o.state.scripts.ComputeFxBlend(o.Script, scripting.PropContext{
		Frame:    o.state.Frame,
		Time:     o.state.Time,
		Distance: o.RenderOrigin().DistTo(o.state.ViewOrigin),
	})
}

func (o *Object) ShouldReceiveProjectedTextures(flags leaf.ShadowFlags) bool {
	if o.NoShadows {
		return false
	}
	if o.Script == "" || o.state == nil || o.state.scripts == nil {
		return true
	}
	return o.state.scripts.ShouldReceiveProjectedTextures(o.Script,
		flags&leaf.ShadowFlagShadow != 0,
		flags&leaf.ShadowFlagFlashlight != 0,
	)
}

func (o *Object) ModelKind() leaf.ModelKind {
	switch o.Kind {
	case data.KindBrush:
		return leaf.ModelBrush
	case data.KindStaticProp:
		return leaf.ModelStaticProp
	case data.KindSprite:
		return leaf.ModelOther
	default:
		return leaf.ModelStudio
	}
}

// WorldBounds is the object's exact world-space box.
func (o *Object) WorldBounds() geom.AABB {
	return geom.TransformAABB(geom.MatrixFromAngles(o.RenderOrigin(), o.RenderAngles()), o.Mins, o.Maxs)
}
