package world

import (
	"github.com/l1jgo/leafsys/internal/geom"
	"github.com/l1jgo/leafsys/internal/leaf"
)

// Camera is a perspective view into the scene.
type Camera struct {
	ID     int
	Origin geom.Vector
	Angles geom.Angles
	FOV    float32 // horizontal and vertical, degrees
	Far    float32
}

func (c Camera) Forward() geom.Vector {
	f, _, _ := c.Angles.Vectors()
	return f
}

func (c Camera) Frustum() geom.Frustum {
	return geom.NewViewFrustum(c.Origin, c.Angles, c.FOV, c.FOV, 1, c.Far)
}

// VisibleLeaves returns the leaves inside the view frustum and far radius,
// nearest first.
func (s *State) VisibleLeaves(c Camera, dst []leaf.LeafIndex) []leaf.LeafIndex {
	fr := c.Frustum()
	start := len(dst)
	s.Tree.EnumerateLeaves(geom.Sphere{Center: c.Origin, Radius: c.Far}, func(l leaf.LeafIndex) bool {
		if !fr.CullBox(s.Tree.LeafBounds(l)) {
			dst = append(dst, l)
		}
		return true
	})
	vis := dst[start:]
	dist := func(l leaf.LeafIndex) float32 { return s.Tree.LeafBounds(l).DistSqrToPoint(c.Origin) }
	sortLeaves(vis, dist)
	return dst
}

// AreaFrustums maps every area holding a visible leaf to the camera
// frustum. There are no portals, so every visible area sees through the
// full frustum.
func (s *State) AreaFrustums(c Camera, leaves []leaf.LeafIndex) map[int]geom.Frustum {
	fr := c.Frustum()
	out := make(map[int]geom.Frustum)
	for _, l := range leaves {
		out[s.Tree.LeafArea(l)] = fr
	}
	return out
}

// ViewInfo assembles the builder input for c.
func (s *State) ViewInfo(c Camera, leaves []leaf.LeafIndex) *leaf.ViewInfo {
	return &leaf.ViewInfo{
		Origin:          c.Origin,
		Forward:         c.Forward(),
		Frustum:         c.Frustum(),
		AreaFrustums:    s.AreaFrustums(c, leaves),
		Leaves:          leaves,
		Frame:           s.Frame,
		ViewID:          c.ID,
		DrawDetailProps: true,
		DrawTranslucent: true,
		DrawViewModel:   true,
	}
}
