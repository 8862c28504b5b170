// Package math provides the vector and matrix algebra behind the scene transforms.
package math

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidDimension is returned when a vector or matrix is built from
	// the wrong number of components.
	ErrInvalidDimension = errors.New("invalid dimension")

	// ErrZeroLength is returned when normalizing a zero-length vector.
	ErrZeroLength = errors.New("zero-length vector")

	// ErrInvalidFrustum is returned for degenerate projection volumes.
	ErrInvalidFrustum = errors.New("invalid frustum")
)

// Vec3 is a 3D vector.
type Vec3 struct {
	X, Y, Z float32
}

// V3 is shorthand for Vec3{x, y, z}.
func V3(x, y, z float32) Vec3 {
	return Vec3{x, y, z}
}

// Vec3FromSlice builds a vector from exactly three components.
func Vec3FromSlice(s []float32) (Vec3, error) {
	if len(s) != 3 {
		return Vec3{}, fmt.Errorf("vec3 from %d components: %w", len(s), ErrInvalidDimension)
	}
	return Vec3{s[0], s[1], s[2]}, nil
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Scale returns v * scalar.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Div returns v / scalar.
func (v Vec3) Div(s float32) Vec3 {
	return Vec3{v.X / s, v.Y / s, v.Z / s}
}

// Neg returns -v.
func (v Vec3) Neg() Vec3 {
	return Vec3{-v.X, -v.Y, -v.Z}
}

// Dot returns the dot product.
func (v Vec3) Dot(other Vec3) float32 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross returns the cross product.
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		v.Y*other.Z - v.Z*other.Y,
		v.Z*other.X - v.X*other.Z,
		v.X*other.Y - v.Y*other.X,
	}
}

// Length returns the magnitude.
func (v Vec3) Length() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z)))
}

// Unit returns v scaled to length 1.
// A zero vector has no direction and yields ErrZeroLength instead of NaNs.
func (v Vec3) Unit() (Vec3, error) {
	l := v.Length()
	if l == 0 {
		return Vec3{}, ErrZeroLength
	}
	return v.Div(l), nil
}

// Normalize returns a unit vector, or the zero vector for zero input.
func (v Vec3) Normalize() Vec3 {
	u, err := v.Unit()
	if err != nil {
		return Vec3{}
	}
	return u
}

// Distance returns the distance to another point.
func (v Vec3) Distance(other Vec3) float32 {
	return v.Sub(other).Length()
}

// XZ returns the XZ components as Vec2.
func (v Vec3) XZ() Vec2 {
	return Vec2{v.X, v.Z}
}

// Slice returns the components as a 3-element slice.
func (v Vec3) Slice() []float32 {
	return []float32{v.X, v.Y, v.Z}
}

// IsFinite reports whether no component is NaN or infinite.
func (v Vec3) IsFinite() bool {
	for _, c := range [3]float32{v.X, v.Y, v.Z} {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
