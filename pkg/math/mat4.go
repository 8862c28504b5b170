package math

import (
	"fmt"
	"math"
)

// Mat4 is a 4x4 matrix stored row-major: element (row, col) is m[row*4+col].
//
// Points are row vectors transformed as p·M, so translation lives in the
// last row (indices 12..14) and chains read left to right:
// Translate(...).Mul(Rotate(...)).Mul(Perspective(...)) first moves, then
// rotates, then projects. The flat layout is exactly what OpenGL expects
// for a column-major uniform upload without transposition.
type Mat4 [16]float32

// Identity returns an identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mat4FromRows builds a matrix from four rows of four values.
func Mat4FromRows(rows ...[]float32) (Mat4, error) {
	if len(rows) != 4 {
		return Mat4{}, fmt.Errorf("mat4 from %d rows: %w", len(rows), ErrInvalidDimension)
	}
	var m Mat4
	for r, row := range rows {
		if len(row) != 4 {
			return Mat4{}, fmt.Errorf("mat4 row %d has %d columns: %w", r, len(row), ErrInvalidDimension)
		}
		copy(m[r*4:r*4+4], row)
	}
	return m, nil
}

// Mat4FromSlice builds a matrix from 16 row-major values.
func Mat4FromSlice(s []float32) (Mat4, error) {
	if len(s) != 16 {
		return Mat4{}, fmt.Errorf("mat4 from %d values: %w", len(s), ErrInvalidDimension)
	}
	var m Mat4
	copy(m[:], s)
	return m, nil
}

// At returns the element at (row, col).
func (m Mat4) At(row, col int) float32 {
	return m[row*4+col]
}

// Scale returns a scale matrix.
func Scale(v Vec3) Mat4 {
	return Mat4{
		v.X, 0, 0, 0,
		0, v.Y, 0, 0,
		0, 0, v.Z, 0,
		0, 0, 0, 1,
	}
}

// Translate returns a translation matrix.
func Translate(v Vec3) Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		v.X, v.Y, v.Z, 1,
	}
}

// Rotate returns the rotation of angle radians around axis.
// The axis need not be normalized but must not be zero.
func Rotate(angle float32, axis Vec3) (Mat4, error) {
	unit, err := axis.Unit()
	if err != nil {
		return Mat4{}, fmt.Errorf("rotation axis: %w", err)
	}
	return rotateUnit(angle, unit), nil
}

// rotateUnit builds the Rodrigues rotation matrix for a unit axis.
func rotateUnit(angle float32, axis Vec3) Mat4 {
	c := float32(math.Cos(float64(angle)))
	s := float32(math.Sin(float64(angle)))
	t := 1 - c

	x, y, z := axis.X, axis.Y, axis.Z

	return Mat4{
		t*x*x + c, t*x*y + s*z, t*x*z - s*y, 0,
		t*x*y - s*z, t*y*y + c, t*y*z + s*x, 0,
		t*x*z + s*y, t*y*z - s*x, t*z*z + c, 0,
		0, 0, 0, 1,
	}
}

// RotateX rotates angle radians around the X axis.
func RotateX(angle float32) Mat4 {
	return rotateUnit(angle, Vec3{1, 0, 0})
}

// RotateY rotates angle radians around the Y axis.
func RotateY(angle float32) Mat4 {
	return rotateUnit(angle, Vec3{0, 1, 0})
}

// Rotate2D composes a yaw turn around Y with a pitch elevation around X:
// RotateY(yaw) · RotateX(-pitch). The order gives first-person look
// controls their feel and must not be swapped.
func Rotate2D(yaw, pitch float32) Mat4 {
	return RotateY(yaw).Mul(RotateX(-pitch))
}

// Frustum returns an OpenGL-style perspective frustum matrix.
func Frustum(left, right, bottom, top, near, far float32) (Mat4, error) {
	if near <= 0 || near >= far {
		return Mat4{}, fmt.Errorf("near %g, far %g: %w", near, far, ErrInvalidFrustum)
	}
	if right == left || top == bottom {
		return Mat4{}, fmt.Errorf("empty frustum [%g,%g]x[%g,%g]: %w", left, right, bottom, top, ErrInvalidFrustum)
	}

	rl := right - left
	tb := top - bottom
	fn := far - near

	return Mat4{
		2 * near / rl, 0, 0, 0,
		0, 2 * near / tb, 0, 0,
		(right + left) / rl, (top + bottom) / tb, -(far + near) / fn, -1,
		0, 0, -2 * far * near / fn, 0,
	}, nil
}

// Perspective returns a symmetric perspective projection.
// fovY is the vertical field of view in radians, aspect is width/height.
func Perspective(fovY, aspect, near, far float32) (Mat4, error) {
	if aspect <= 0 || fovY <= 0 || fovY >= math.Pi {
		return Mat4{}, fmt.Errorf("fov %g, aspect %g: %w", fovY, aspect, ErrInvalidFrustum)
	}
	h := near * float32(math.Tan(float64(fovY)/2))
	w := h * aspect
	return Frustum(-w, w, -h, h, near, far)
}

// Orthographic maps [left,right]x[bottom,top]x[near,far] onto [-1,1]^3,
// built as Scale · Translate.
func Orthographic(left, right, bottom, top, near, far float32) (Mat4, error) {
	if right == left || top == bottom || far == near {
		return Mat4{}, fmt.Errorf("empty volume [%g,%g]x[%g,%g]x[%g,%g]: %w",
			left, right, bottom, top, near, far, ErrInvalidFrustum)
	}

	scale := Scale(Vec3{
		2 / (right - left),
		2 / (top - bottom),
		2 / (far - near),
	})
	translate := Translate(Vec3{
		-(right + left) / (right - left),
		-(top + bottom) / (top - bottom),
		-(near + far) / (far - near),
	})
	return scale.Mul(translate), nil
}

// Mul returns the matrix product m · other.
func (m Mat4) Mul(other Mat4) Mat4 {
	var result Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			result[row*4+col] =
				m[row*4+0]*other[0*4+col] +
					m[row*4+1]*other[1*4+col] +
					m[row*4+2]*other[2*4+col] +
					m[row*4+3]*other[3*4+col]
		}
	}
	return result
}

// Add returns the elementwise sum.
func (m Mat4) Add(other Mat4) Mat4 {
	var result Mat4
	for i := range m {
		result[i] = m[i] + other[i]
	}
	return result
}

// Sub returns the elementwise difference.
func (m Mat4) Sub(other Mat4) Mat4 {
	var result Mat4
	for i := range m {
		result[i] = m[i] - other[i]
	}
	return result
}

// ApproxEqual reports whether every element differs by at most eps.
func (m Mat4) ApproxEqual(other Mat4, eps float32) bool {
	for i := range m {
		d := m[i] - other[i]
		if d > eps || d < -eps {
			return false
		}
	}
	return true
}

// TransformPoint transforms a point (w=1) as p·M, dividing by w when needed.
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	x := p.X*m[0] + p.Y*m[4] + p.Z*m[8] + m[12]
	y := p.X*m[1] + p.Y*m[5] + p.Z*m[9] + m[13]
	z := p.X*m[2] + p.Y*m[6] + p.Z*m[10] + m[14]
	w := p.X*m[3] + p.Y*m[7] + p.Z*m[11] + m[15]
	if w != 0 && w != 1 {
		return Vec3{x / w, y / w, z / w}
	}
	return Vec3{x, y, z}
}

// TransformDirection transforms a direction (w=0), ignoring translation.
func (m Mat4) TransformDirection(d Vec3) Vec3 {
	return Vec3{
		d.X*m[0] + d.Y*m[4] + d.Z*m[8],
		d.X*m[1] + d.Y*m[5] + d.Z*m[9],
		d.X*m[2] + d.Y*m[6] + d.Z*m[10],
	}
}

// Ptr returns a pointer to the first element (for OpenGL uniform calls).
func (m *Mat4) Ptr() *float32 {
	return &m[0]
}

// String formats the matrix one row per line.
func (m Mat4) String() string {
	return fmt.Sprintf("[%g %g %g %g]\n[%g %g %g %g]\n[%g %g %g %g]\n[%g %g %g %g]",
		m[0], m[1], m[2], m[3],
		m[4], m[5], m[6], m[7],
		m[8], m[9], m[10], m[11],
		m[12], m[13], m[14], m[15])
}
