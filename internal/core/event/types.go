package event

import (
	"github.com/l1jgo/leafsys/internal/core/ecs"
	"github.com/l1jgo/leafsys/internal/geom"
)

type ObjectSpawned struct {
	Entity ecs.EntityID
	Name   string
}

// ObjectMoved is raised when an object's origin or angles change.
type ObjectMoved struct {
	Entity   ecs.EntityID
	From, To geom.Vector
}

type ObjectDespawned struct {
	Entity ecs.EntityID
	Name   string
}

type FlashlightToggled struct {
	Entity ecs.EntityID
	On     bool
}
