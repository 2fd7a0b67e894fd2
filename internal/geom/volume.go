package geom

// Volume is a query shape for leaf enumeration.
type Volume interface {
	// Bounds is a conservative box used for tree descent.
	Bounds() AABB
	// TouchesBox is the exact test against a leaf box.
	TouchesBox(b AABB) bool
}

type Box struct{ AABB }

func (v Box) Bounds() AABB           { return v.AABB }
func (v Box) TouchesBox(b AABB) bool { return v.AABB.Overlaps(b) }

type Sphere struct {
	Center Vector
	Radius float32
}

func (v Sphere) Bounds() AABB {
	return AABB{Mins: v.Center, Maxs: v.Center}.Bloat(v.Radius)
}

func (v Sphere) TouchesBox(b AABB) bool {
	return b.DistSqrToPoint(v.Center) <= v.Radius*v.Radius
}

type Point struct{ P Vector }

func (v Point) Bounds() AABB           { return AABB{v.P, v.P} }
func (v Point) TouchesBox(b AABB) bool { return b.ContainsPoint(v.P) }

// Ray is the segment Start .. Start+Delta.
type Ray struct {
	Start, Delta Vector
}

func (v Ray) Bounds() AABB {
	end := v.Start.Add(v.Delta)
	return AABB{v.Start.Min(end), v.Start.Max(end)}
}

func (v Ray) TouchesBox(b AABB) bool { return b.IntersectsSegment(v.Start, v.Delta) }
