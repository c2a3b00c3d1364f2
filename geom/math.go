package geom

import (
	"math"
)

type Vector3f struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

func NewVector3f(x, y, z float32) Vector3f {
	return Vector3f{x, y, z}
}

func (v1 Vector3f) IsZero() bool {
	return v1.X == 0 && v1.Y == 0 && v1.Z == 0
}

func (v1 Vector3f) GreaterOrEqualThan(v2 Vector3f) bool {
	return v1.X >= v2.X && v1.Y >= v2.Y && v1.Z >= v2.Z
}

func (v1 Vector3f) LesserThan(v2 Vector3f) bool {
	return v1.X < v2.X && v1.Y < v2.Y && v1.Z < v2.Z
}

func Add(a Vector3f, b Vector3f) Vector3f {
	return Vector3f{a.X + b.X, a.Y + b.Y, a.Z + b.Z}
}

func Sub(a Vector3f, b Vector3f) Vector3f {
	return Vector3f{a.X - b.X, a.Y - b.Y, a.Z - b.Z}
}

func Mul(a Vector3f, s float32) Vector3f {
	return Vector3f{a.X * s, a.Y * s, a.Z * s}
}

// MulVec multiplies component-wise.
func MulVec(a Vector3f, b Vector3f) Vector3f {
	return Vector3f{a.X * b.X, a.Y * b.Y, a.Z * b.Z}
}

func (a Vector3f) Length() float64 {
	return math.Sqrt((float64)(a.X*a.X + a.Y*a.Y + a.Z*a.Z))
}

func Normalized(a Vector3f) Vector3f {
	lenght := (float32)(a.Length())
	result := a
	if lenght != 0 {
		result.X /= lenght
		result.Y /= lenght
		result.Z /= lenght
	}
	return result
}

// Vector3i is an integer triple, used for grid cell coordinates and counts.
type Vector3i struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func NewVector3i(x, y, z int) Vector3i {
	return Vector3i{x, y, z}
}

// Volume returns x*y*z.
func (v Vector3i) Volume() int {
	return v.X * v.Y * v.Z
}

func (v Vector3i) ToVector3f() Vector3f {
	return Vector3f{(float32)(v.X), (float32)(v.Y), (float32)(v.Z)}
}

// FloorDiv divides a by b component-wise and floors the result.
func FloorDiv(a Vector3f, b Vector3f) Vector3i {
	return Vector3i{
		X: (int)(math.Floor((float64)(a.X) / (float64)(b.X))),
		Y: (int)(math.Floor((float64)(a.Y) / (float64)(b.Y))),
		Z: (int)(math.Floor((float64)(a.Z) / (float64)(b.Z))),
	}
}
