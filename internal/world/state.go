package world

import (
	"fmt"

	"github.com/l1jgo/leafsys/internal/bsp"
	"github.com/l1jgo/leafsys/internal/config"
	"github.com/l1jgo/leafsys/internal/core/ecs"
	"github.com/l1jgo/leafsys/internal/core/event"
	"github.com/l1jgo/leafsys/internal/data"
	"github.com/l1jgo/leafsys/internal/geom"
	"github.com/l1jgo/leafsys/internal/leaf"
	"go.uber.org/zap"
)

// State is the simulated scene: the level, its objects and the leaf system
// indexing them. Accessed only from the frame loop goroutine.
type State struct {
	Frame      int
	Time       float64 // seconds
	ViewOrigin geom.Vector

	Level     *data.Level
	Tree      *bsp.Tree
	Leaf      *leaf.System
	Receivers *Receivers
	Bus       *event.Bus

	ecs       *ecs.World
	objects   *ecs.Store[Object]
	motion    *ecs.Store[Motion]
	byName    map[string]ecs.EntityID
	followers map[*Object][]*Object
	scripts   PropScripts
	log       *zap.Logger
}

// NewState builds the leaf tree for lvl and an empty scene. scripts may be
// nil when no prop scripts are loaded.
func NewState(cfg config.LeafConfig, lvl *data.Level, scripts PropScripts, bus *event.Bus, log *zap.Logger) *State {
	tree := bsp.Build(lvl)
	recv := NewReceivers()
	s := &State{
		Level:     lvl,
		Tree:      tree,
		Leaf:      leaf.NewSystem(cfg, tree, recv, log),
		Receivers: recv,
		Bus:       bus,
		ecs:       ecs.NewWorld(),
		objects:   ecs.NewStore[Object](),
		motion:    ecs.NewStore[Motion](),
		byName:    make(map[string]ecs.EntityID),
		followers: make(map[*Object][]*Object),
		scripts:   scripts,
		log:       log,
	}
	s.ecs.Register(s.objects)
	s.ecs.Register(s.motion)
	s.ecs.OnDestroy(s.release)

	first := 0
	for i, l := range lvl.Leaves {
		if l.DetailProps > 0 {
			s.Leaf.SetDetailProps(leaf.LeafIndex(i), first, l.DetailProps)
			first += l.DetailProps
		}
	}
	log.Info("scene ready",
		zap.String("level", lvl.Name),
		zap.Int("leaves", lvl.Count()),
		zap.Int("tree_nodes", tree.NodeCount()),
		zap.Int("detail_props", first),
	)
	return s
}

// Spawn creates an object from a spawn entry and registers its renderable.
func (s *State) Spawn(e data.SpawnEntry) (ecs.EntityID, error) {
	if e.Name != "" {
		if _, dup := s.byName[e.Name]; dup {
			return 0, fmt.Errorf("spawn %q: name already in use", e.Name)
		}
	}
	o := &Object{
		Name:        e.Name,
		Kind:        e.Kind,
		Origin:      vec(e.Origin),
		Angles:      geom.Angles{Pitch: e.Angles[0], Yaw: e.Angles[1], Roll: e.Angles[2]},
		Mins:        vec(e.Mins),
		Maxs:        vec(e.Maxs),
		Translucent: e.Translucent,
		TwoPass:     e.TwoPass,
		NoShadows:   e.NoShadows,
		Blend:       255,
		Script:      e.Script,
		state:       s,
	}
	if e.Follow != "" {
		parent, ok := s.ObjectByName(e.Follow)
		if !ok {
			return 0, fmt.Errorf("spawn %q: parent %q not found", e.Name, e.Follow)
		}
		o.Parent = parent
		o.Local = o.Origin
	}

	h, err := s.register(o, e)
	if err != nil {
		return 0, err
	}
	o.Handle = h
	o.ID = s.ecs.CreateEntity()
	s.objects.Set(o.ID, o)
	if e.Name != "" {
		s.byName[e.Name] = o.ID
	}
	if o.Parent != nil {
		s.followers[o.Parent] = append(s.followers[o.Parent], o)
	}
	if e.Velocity != [3]float32{} || e.AngularSpeed != 0 {
		s.motion.Set(o.ID, &Motion{Velocity: vec(e.Velocity), AngularSpeed: e.AngularSpeed})
	}
	event.Emit(s.Bus, event.ObjectSpawned{Entity: o.ID, Name: o.Name})
	return o.ID, nil
}

func (s *State) register(o *Object, e data.SpawnEntry) (leaf.RenderHandle, error) {
	static := e.Kind == data.KindStaticProp
	h := s.Leaf.CreateRenderableHandle(o, static)
	if static && h != leaf.InvalidRenderHandle && len(e.Leaves) > 0 {
		leaves := make([]leaf.LeafIndex, 0, len(e.Leaves))
		for _, l := range e.Leaves {
			if l < 0 || l >= s.Tree.LeafCount() {
				s.Leaf.RemoveRenderable(h)
				return leaf.InvalidRenderHandle, fmt.Errorf("spawn %q: leaf %d out of range", e.Name, l)
			}
			leaves = append(leaves, leaf.LeafIndex(l))
		}
		s.Leaf.AddRenderableToLeaves(h, leaves)
	}
	if h == leaf.InvalidRenderHandle {
		return h, fmt.Errorf("spawn %q: renderable registry full", e.Name)
	}
	if e.AlternateSort {
		s.Leaf.SetRenderableFlags(h, leaf.FlagAlternateSort, 0)
	}
	return h, nil
}

// SpawnAll spawns entries in order, stopping at the first error.
func (s *State) SpawnAll(entries []data.SpawnEntry) error {
	for _, e := range entries {
		if _, err := s.Spawn(e); err != nil {
			return err
		}
	}
	return nil
}

// Despawn queues id for removal at the end of the frame.
func (s *State) Despawn(id ecs.EntityID) {
	s.ecs.MarkForDestruction(id)
}

// FlushDespawns removes queued objects. Returns the number removed.
func (s *State) FlushDespawns() int {
	return s.ecs.FlushDestroyQueue()
}

// release runs before an entity's components are dropped.
func (s *State) release(id ecs.EntityID) {
	o, ok := s.objects.Get(id)
	if !ok {
		return
	}
	s.Leaf.RemoveRenderable(o.Handle)
	delete(s.byName, o.Name)

	// followers stay where they were drawn
	for _, f := range s.followers[o] {
		f.Origin = f.RenderOrigin()
		f.Angles = f.RenderAngles()
		f.Parent = nil
		f.Local = geom.Vector{}
		s.Leaf.RenderableChanged(f.Handle)
	}
	delete(s.followers, o)
	if o.Parent != nil {
		siblings := s.followers[o.Parent]
		for i, f := range siblings {
			if f == o {
				s.followers[o.Parent] = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	}
	event.Emit(s.Bus, event.ObjectDespawned{Entity: id, Name: o.Name})
}

// Move sets an object's origin and angles and queues its renderable, and
// those of everything following it, for reinsertion. For a follower origin
// is the offset from its parent.
func (s *State) Move(id ecs.EntityID, origin geom.Vector, angles geom.Angles) bool {
	o, ok := s.objects.Get(id)
	if !ok {
		return false
	}
	from := o.RenderOrigin()
	if o.Parent != nil {
		o.Local = origin
	} else {
		o.Origin = origin
	}
	o.Angles = angles
	s.markChanged(o)
	event.Emit(s.Bus, event.ObjectMoved{Entity: id, From: from, To: o.RenderOrigin()})
	return true
}

func (s *State) markChanged(o *Object) {
	s.Leaf.RenderableChanged(o.Handle)
	for _, f := range s.followers[o] {
		s.markChanged(f)
	}
}

func (s *State) Object(id ecs.EntityID) (*Object, bool) {
	return s.objects.Get(id)
}

func (s *State) ObjectByName(name string) (*Object, bool) {
	id, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return s.objects.Get(id)
}

func (s *State) ObjectCount() int { return s.objects.Len() }

// EachObject visits objects in spawn order (reshuffled by despawns).
func (s *State) EachObject(fn func(*Object)) {
	s.objects.Each(func(_ ecs.EntityID, o *Object) { fn(o) })
}

// EachMoving visits objects that carry a Motion component.
func (s *State) EachMoving(fn func(*Object, *Motion)) {
	ecs.Join(s.objects, s.motion, func(_ ecs.EntityID, o *Object, m *Motion) { fn(o, m) })
}

func vec(a [3]float32) geom.Vector {
	return geom.Vector{X: a[0], Y: a[1], Z: a[2]}
}
