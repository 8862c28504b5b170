package math

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = float32(1e-6)

func mustRows(t *testing.T, rows ...[]float32) Mat4 {
	t.Helper()
	m, err := Mat4FromRows(rows...)
	require.NoError(t, err)
	return m
}

func assertMat(t *testing.T, want, got Mat4, eps float32) {
	t.Helper()
	if !want.ApproxEqual(got, eps) {
		t.Errorf("matrix mismatch\nwant:\n%v\ngot:\n%v", want, got)
	}
}

func TestIdentity(t *testing.T) {
	m := Identity()
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			want := float32(0)
			if row == col {
				want = 1
			}
			if m.At(row, col) != want {
				t.Errorf("Identity(%d,%d) = %v, want %v", row, col, m.At(row, col), want)
			}
		}
	}
}

func TestMul(t *testing.T) {
	x := mustRows(t,
		[]float32{1, 2, 3, 4},
		[]float32{5, 6, 7, 8},
		[]float32{9, 10, 11, 12},
		[]float32{13, 14, 15, 16},
	)
	want := mustRows(t,
		[]float32{180, 200, 220, 240},
		[]float32{404, 456, 508, 560},
		[]float32{628, 712, 796, 880},
		[]float32{852, 968, 1084, 1200},
	)
	assert.Equal(t, want, x.Mul(x.Add(x)))
	assert.Equal(t, x, x.Mul(Identity()))
	assert.Equal(t, x, Identity().Mul(x))
	assert.Equal(t, x, x.Add(x).Sub(x))
}

func TestMat4FromRowsInvalid(t *testing.T) {
	_, err := Mat4FromRows([]float32{1, 0, 0, 0})
	assert.ErrorIs(t, err, ErrInvalidDimension)

	_, err = Mat4FromRows(
		[]float32{1, 0, 0, 0},
		[]float32{0, 1, 0},
		[]float32{0, 0, 1, 0},
		[]float32{0, 0, 0, 1},
	)
	assert.ErrorIs(t, err, ErrInvalidDimension)

	_, err = Mat4FromSlice(make([]float32, 15))
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestTranslate(t *testing.T) {
	want := mustRows(t,
		[]float32{1, 0, 0, 0},
		[]float32{0, 1, 0, 0},
		[]float32{0, 0, 1, 0},
		[]float32{4, 5, 6, 1},
	)
	assert.Equal(t, want, Translate(Vec3{4, 5, 6}))
	assert.Equal(t, Vec3{5, 7, 9}, Translate(Vec3{4, 5, 6}).TransformPoint(Vec3{1, 2, 3}))
	assert.Equal(t, Vec3{1, 2, 3}, Translate(Vec3{4, 5, 6}).TransformDirection(Vec3{1, 2, 3}))
}

func TestScale(t *testing.T) {
	m := Scale(Vec3{2, 3, 4})
	assert.Equal(t, Vec3{2, 6, 12}, m.TransformPoint(Vec3{1, 2, 3}))
}

func TestRotateSimple(t *testing.T) {
	m, err := Rotate(math.Pi/2, Vec3{1, 0, 0})
	require.NoError(t, err)
	want := mustRows(t,
		[]float32{1, 0, 0, 0},
		[]float32{0, 0, 1, 0},
		[]float32{0, -1, 0, 0},
		[]float32{0, 0, 0, 1},
	)
	assertMat(t, want, m, tol)
}

func TestRotateArbitraryAxis(t *testing.T) {
	m, err := Rotate(math.Pi/3, Vec3{1, 2, 3})
	require.NoError(t, err)
	want := mustRows(t,
		[]float32{0.5357142857142858, 0.765793646257985, -0.3557671927434186, 0},
		[]float32{-0.6229365034008422, 0.642857142857143, 0.44574073922885216, 0},
		[]float32{0.5700529070291328, -0.01716931065742358, 0.8214285714285714, 0},
		[]float32{0, 0, 0, 1},
	)
	assertMat(t, want, m, 1e-5)
}

func TestRotateZeroAxis(t *testing.T) {
	_, err := Rotate(1, Vec3{})
	assert.ErrorIs(t, err, ErrZeroLength)
}

func TestRotateRoundTrip(t *testing.T) {
	axes := []Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	angles := []float32{math.Pi / 6, math.Pi / 3, math.Pi / 2}

	for _, axis := range axes {
		for _, theta := range angles {
			forward, err := Rotate(theta, axis)
			require.NoError(t, err)
			back, err := Rotate(-theta, axis)
			require.NoError(t, err)
			assertMat(t, Identity(), forward.Mul(back), tol)
		}
	}
}

func TestRotate2D(t *testing.T) {
	tests := []struct {
		name       string
		yaw, pitch float32
		want       [][]float32
	}{
		{
			name: "yaw only",
			yaw:  math.Pi / 4,
			want: [][]float32{
				{0.7071067811865476, 0, -0.7071067811865475, 0},
				{0, 1, 0, 0},
				{0.7071067811865475, 0, 0.7071067811865476, 0},
				{0, 0, 0, 1},
			},
		},
		{
			name:  "pitch only",
			pitch: math.Pi / 4,
			want: [][]float32{
				{1, 0, 0, 0},
				{0, 0.7071067811865476, -0.7071067811865475, 0},
				{0, 0.7071067811865475, 0.7071067811865476, 0},
				{0, 0, 0, 1},
			},
		},
		{
			name:  "quarter turns",
			yaw:   math.Pi / 2,
			pitch: math.Pi / 2,
			want: [][]float32{
				{0, -1, 0, 0},
				{0, 0, -1, 0},
				{1, 0, 0, 0},
				{0, 0, 0, 1},
			},
		},
		{
			name:  "mixed",
			yaw:   math.Pi / 6,
			pitch: math.Pi / 7,
			want: [][]float32{
				{0.8660254037844386, -0.21694186955877903, -0.4504844339512095, 0},
				{0, 0.9009688679024191, -0.4338837391175582, 0},
				{0.49999999999999994, 0.37575434036478533, 0.7802619276224012, 0},
				{0, 0, 0, 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertMat(t, mustRows(t, tt.want...), Rotate2D(tt.yaw, tt.pitch), 1e-5)
		})
	}
}

func TestRotate2DZeroPitchMatchesYaw(t *testing.T) {
	forward := Vec3{0, 0, 1}
	for _, yaw := range []float32{0, 0.3, math.Pi / 2, 2.5, -1} {
		got := Rotate2D(yaw, 0).TransformDirection(forward)
		want := RotateY(yaw).TransformDirection(forward)
		assert.InDelta(t, want.X, got.X, 1e-6)
		assert.InDelta(t, want.Y, got.Y, 1e-6)
		assert.InDelta(t, want.Z, got.Z, 1e-6)
	}
}

func TestFrustum(t *testing.T) {
	m, err := Frustum(-1, 1, -1, 1, 1, 3)
	require.NoError(t, err)
	want := mustRows(t,
		[]float32{1, 0, 0, 0},
		[]float32{0, 1, 0, 0},
		[]float32{0, 0, -2, -1},
		[]float32{0, 0, -3, 0},
	)
	assertMat(t, want, m, tol)
}

func TestPerspective(t *testing.T) {
	near, far := float32(0.1), float32(500)
	m, err := Perspective(Radians(60), 16.0/9.0, near, far)
	require.NoError(t, err)

	// A point on the near plane maps to depth -1, far plane to +1.
	nearPt := m.TransformPoint(Vec3{0, 0, -near})
	farPt := m.TransformPoint(Vec3{0, 0, -far})
	assert.InDelta(t, -1, nearPt.Z, 1e-4)
	assert.InDelta(t, 1, farPt.Z, 1e-4)

	assert.Equal(t, float32(-1), m.At(2, 3))
	assert.Equal(t, float32(0), m.At(3, 3))
}

func TestPerspectiveInvalid(t *testing.T) {
	tests := []struct {
		name                   string
		fov, aspect, near, far float32
	}{
		{"near equals far", 1, 1, 1, 1},
		{"near beyond far", 1, 1, 10, 1},
		{"zero near", 1, 1, 0, 10},
		{"negative near", 1, 1, -1, 10},
		{"zero aspect", 1, 0, 0.1, 10},
		{"zero fov", 0, 1, 0.1, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Perspective(tt.fov, tt.aspect, tt.near, tt.far)
			assert.ErrorIs(t, err, ErrInvalidFrustum)
		})
	}
}

func TestOrthographic(t *testing.T) {
	m, err := Orthographic(0, 1000, 200, 600, -20, 20)
	require.NoError(t, err)
	want := mustRows(t,
		[]float32{0.002, 0, 0, 0},
		[]float32{0, 0.005, 0, 0},
		[]float32{0, 0, 0.05, 0},
		[]float32{-1, -2, 0, 1},
	)
	assertMat(t, want, m, tol)

	_, err = Orthographic(1, 1, 0, 1, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidFrustum)
}

func TestAffineLastColumn(t *testing.T) {
	rot, err := Rotate(0.7, Vec3{1, 1, 0})
	require.NoError(t, err)
	for _, m := range []Mat4{Identity(), Scale(Vec3{2, 3, 4}), Translate(Vec3{1, 2, 3}), rot, Rotate2D(1, 2)} {
		assert.Equal(t, float32(0), m.At(0, 3))
		assert.Equal(t, float32(0), m.At(1, 3))
		assert.Equal(t, float32(0), m.At(2, 3))
		assert.Equal(t, float32(1), m.At(3, 3))
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
