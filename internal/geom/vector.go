package geom

import "github.com/chewxy/math32"

// Vector is a 3D point or direction in world units.
type Vector struct {
	X, Y, Z float32
}

func Vec(x, y, z float32) Vector { return Vector{x, y, z} }

func (v Vector) Add(o Vector) Vector { return Vector{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vector) Sub(o Vector) Vector { return Vector{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vector) Scale(s float32) Vector { return Vector{v.X * s, v.Y * s, v.Z * s} }
func (v Vector) Dot(o Vector) float32 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vector) Length() float32 { return math32.Sqrt(v.Dot(v)) }
func (v Vector) DistTo(o Vector) float32 { return v.Sub(o).Length() }
func (v Vector) At(axis int) float32 { return [3]float32{v.X, v.Y, v.Z}[axis] }
func (v Vector) Lerp(o Vector, t float32) Vector {
	return v.Add(o.Sub(v).Scale(t))
}

func (v Vector) Cross(o Vector) Vector {
	return Vector{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// Normalize returns the unit vector, or the zero vector for zero length.
func (v Vector) Normalize() Vector {
	l := v.Length()
	if l == 0 {
		return Vector{}
	}
	return v.Scale(1 / l)
}

func (v Vector) Min(o Vector) Vector {
	return Vector{math32.Min(v.X, o.X), math32.Min(v.Y, o.Y), math32.Min(v.Z, o.Z)}
}

func (v Vector) Max(o Vector) Vector {
	return Vector{math32.Max(v.X, o.X), math32.Max(v.Y, o.Y), math32.Max(v.Z, o.Z)}
}

// Angles are Euler angles in degrees: pitch (Y), yaw (Z), roll (X).
type Angles struct {
	Pitch, Yaw, Roll float32
}

// Vectors returns the forward, right and up basis for the angles.
func (a Angles) Vectors() (forward, right, up Vector) {
	sp, cp := math32.Sincos(a.Pitch * math32.Pi / 180)
	sy, cy := math32.Sincos(a.Yaw * math32.Pi / 180)
	sr, cr := math32.Sincos(a.Roll * math32.Pi / 180)

	forward = Vector{cp * cy, cp * sy, -sp}
	right = Vector{
		-sr*sp*cy + cr*sy,
		-sr*sp*sy - cr*cy,
		-sr * cp,
	}
	up = Vector{
		cr*sp*cy + sr*sy,
		cr*sp*sy - sr*cy,
		cr * cp,
	}
	return forward, right, up
}
