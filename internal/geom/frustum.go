package geom

import "github.com/chewxy/math32"

// Plane is the set of points p with Normal·p == Dist. The positive side is
// the side Normal points to.
type Plane struct {
	Normal Vector
	Dist   float32
}

func PlaneFromPoint(normal, point Vector) Plane {
	n := normal.Normalize()
	return Plane{Normal: n, Dist: n.Dot(point)}
}

// BoxOnNegativeSide reports whether the whole box lies behind the plane.
func (p Plane) BoxOnNegativeSide(b AABB) bool {
	// farthest corner along the normal
	var far Vector
	if p.Normal.X >= 0 {
		far.X = b.Maxs.X
	} else {
		far.X = b.Mins.X
	}
	if p.Normal.Y >= 0 {
		far.Y = b.Maxs.Y
	} else {
		far.Y = b.Mins.Y
	}
	if p.Normal.Z >= 0 {
		far.Z = b.Maxs.Z
	} else {
		far.Z = b.Mins.Z
	}
	return p.Normal.Dot(far) < p.Dist
}

// Frustum is a convex volume bounded by inward-facing planes. A zero-plane
// frustum culls nothing.
type Frustum struct {
	Planes []Plane
}

// NewViewFrustum builds the frustum of a symmetric perspective view. fovX and
// fovY are full angles in degrees.
func NewViewFrustum(origin Vector, ang Angles, fovX, fovY, zNear, zFar float32) Frustum {
	forward, right, up := ang.Vectors()
	tx := math32.Tan(fovX * 0.5 * math32.Pi / 180)
	ty := math32.Tan(fovY * 0.5 * math32.Pi / 180)

	return Frustum{Planes: []Plane{
		PlaneFromPoint(forward, origin.Add(forward.Scale(zNear))),
		PlaneFromPoint(forward.Scale(-1), origin.Add(forward.Scale(zFar))),
		PlaneFromPoint(forward.Scale(tx).Add(right), origin), // left
		PlaneFromPoint(forward.Scale(tx).Sub(right), origin), // right
		PlaneFromPoint(forward.Scale(ty).Sub(up), origin),    // top
		PlaneFromPoint(forward.Scale(ty).Add(up), origin),    // bottom
	}}
}

// CullBox reports whether b is entirely outside the frustum.
func (f Frustum) CullBox(b AABB) bool {
	for _, p := range f.Planes {
		if p.BoxOnNegativeSide(b) {
			return true
		}
	}
	return false
}
