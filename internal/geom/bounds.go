package geom

import "github.com/chewxy/math32"

// AABB is an axis-aligned box. Mins <= Maxs on every axis for a valid box.
type AABB struct {
	Mins, Maxs Vector
}

func Box3(mins, maxs Vector) AABB { return AABB{mins, maxs} }

func (b AABB) Center() Vector { return b.Mins.Add(b.Maxs).Scale(0.5) }
func (b AABB) Size() Vector { return b.Maxs.Sub(b.Mins) }

// Diagonal is the length of the box diagonal; used as a cheap size metric.
func (b AABB) Diagonal() float32 { return b.Size().Length() }

// Overlaps treats touching faces as overlapping.
func (b AABB) Overlaps(o AABB) bool {
	return b.Mins.X <= o.Maxs.X && b.Maxs.X >= o.Mins.X &&
		b.Mins.Y <= o.Maxs.Y && b.Maxs.Y >= o.Mins.Y &&
		b.Mins.Z <= o.Maxs.Z && b.Maxs.Z >= o.Mins.Z
}

// ContainsPoint is half-open: [mins, maxs).
func (b AABB) ContainsPoint(p Vector) bool {
	return p.X >= b.Mins.X && p.X < b.Maxs.X &&
		p.Y >= b.Mins.Y && p.Y < b.Maxs.Y &&
		p.Z >= b.Mins.Z && p.Z < b.Maxs.Z
}

func (b AABB) Union(o AABB) AABB {
	return AABB{b.Mins.Min(o.Mins), b.Maxs.Max(o.Maxs)}
}

// Bloat grows the box by d on every side.
func (b AABB) Bloat(d float32) AABB {
	v := Vector{d, d, d}
	return AABB{b.Mins.Sub(v), b.Maxs.Add(v)}
}

// DistSqrToPoint is the squared distance from p to the closest point of b.
func (b AABB) DistSqrToPoint(p Vector) float32 {
	var d float32
	for axis := 0; axis < 3; axis++ {
		v := p.At(axis)
		lo, hi := b.Mins.At(axis), b.Maxs.At(axis)
		if v < lo {
			d += (lo - v) * (lo - v)
		} else if v > hi {
			d += (v - hi) * (v - hi)
		}
	}
	return d
}

// IntersectsSegment is a slab test of the segment start + t*delta, t in [0,1].
func (b AABB) IntersectsSegment(start, delta Vector) bool {
	tmin, tmax := float32(0), float32(1)
	for axis := 0; axis < 3; axis++ {
		s, d := start.At(axis), delta.At(axis)
		lo, hi := b.Mins.At(axis), b.Maxs.At(axis)
		if math32.Abs(d) < 1e-8 {
			if s < lo || s > hi {
				return false
			}
			continue
		}
		inv := 1 / d
		t1, t2 := (lo-s)*inv, (hi-s)*inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math32.Max(tmin, t1)
		tmax = math32.Min(tmax, t2)
		if tmin > tmax {
			return false
		}
	}
	return true
}

// Matrix3x4 is a rotation + translation, rows are the rotated basis axes with
// the translation in column 3.
type Matrix3x4 [3][4]float32

// MatrixFromAngles builds the renderable-to-world transform.
func MatrixFromAngles(origin Vector, ang Angles) Matrix3x4 {
	f, r, u := ang.Vectors()
	// columns: forward, left, up
	l := r.Scale(-1)
	return Matrix3x4{
		{f.X, l.X, u.X, origin.X},
		{f.Y, l.Y, u.Y, origin.Y},
		{f.Z, l.Z, u.Z, origin.Z},
	}
}

// TransformAABB returns the world-space box enclosing the local box after m.
func TransformAABB(m Matrix3x4, mins, maxs Vector) AABB {
	localCenter := mins.Add(maxs).Scale(0.5)
	extents := maxs.Sub(localCenter)

	var center, ext [3]float32
	lc := [3]float32{localCenter.X, localCenter.Y, localCenter.Z}
	le := [3]float32{extents.X, extents.Y, extents.Z}
	for row := 0; row < 3; row++ {
		center[row] = m[row][0]*lc[0] + m[row][1]*lc[1] + m[row][2]*lc[2] + m[row][3]
		ext[row] = math32.Abs(m[row][0])*le[0] + math32.Abs(m[row][1])*le[1] + math32.Abs(m[row][2])*le[2]
	}
	c := Vector{center[0], center[1], center[2]}
	e := Vector{ext[0], ext[1], ext[2]}
	return AABB{c.Sub(e), c.Add(e)}
}
