package shadow

import (
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/vrc3d/internal/engine/lighting"
	"github.com/Faultbox/vrc3d/pkg/math"
)

func TestLightMatrixFollowsCamera(t *testing.T) {
	sun := lighting.SolarPosition{Azimuth: 0.3, Elevation: 0.8}
	camPos := math.V3(45, 0.6, 53)

	m, err := LightMatrix(math.Translate(camPos.Neg()), sun)
	require.NoError(t, err)

	// The camera position lands in the middle of the map.
	center := m.TransformPoint(camPos)
	assert.InDelta(t, 0, center.X, 1e-4)
	assert.InDelta(t, 0, center.Y, 1e-4)
	assert.InDelta(t, 0, center.Z, 1e-4)
}

func TestLightMatrixOverheadSun(t *testing.T) {
	// Elevation 0 leaves the map looking along the horizon; this checks the
	// ortho extents are applied in the rotated frame.
	m, err := LightMatrix(math.Identity(), lighting.SolarPosition{})
	require.NoError(t, err)

	edge := m.TransformPoint(math.V3(Extent, Extent, 0))
	assert.InDelta(t, 1, edge.X, 1e-5)
	assert.InDelta(t, 1, edge.Y, 1e-5)
}

func TestLightMatrixComposition(t *testing.T) {
	sun := lighting.SolarPosition{Azimuth: gomath.Pi / 3, Elevation: gomath.Pi / 5}
	translate := math.Translate(math.V3(-1, -2, -3))

	got, err := LightMatrix(translate, sun)
	require.NoError(t, err)

	alt, err := math.Rotate(float32(sun.Elevation), math.V3(-1, 0, 0))
	require.NoError(t, err)
	ortho, err := math.Orthographic(-10, 10, -10, 10, -20, 20)
	require.NoError(t, err)
	want := translate.Mul(math.RotateY(float32(sun.Azimuth))).Mul(alt).Mul(ortho)

	assert.True(t, want.ApproxEqual(got, 1e-6), "want\n%v\ngot\n%v", want, got)
}
