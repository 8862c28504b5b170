package shadow

import (
	"github.com/Faultbox/vrc3d/internal/engine/lighting"
	"github.com/Faultbox/vrc3d/pkg/math"
)

// Extent is the half-size of the square the shadow map covers around the
// camera, and Depth the half-depth along the light.
const (
	Extent = 10
	Depth  = 20
)

// LightMatrix returns the light-space transform for the depth pass:
// follow the camera, face the sun, then project orthographically.
//
//	cameraTranslate · Rotate(azimuth, Y) · Rotate(elevation, -X) · Ortho
func LightMatrix(cameraTranslate math.Mat4, sun lighting.SolarPosition) (math.Mat4, error) {
	ortho, err := math.Orthographic(-Extent, Extent, -Extent, Extent, -Depth, Depth)
	if err != nil {
		return math.Mat4{}, err
	}
	facing := math.RotateY(float32(sun.Azimuth)).Mul(math.RotateX(-float32(sun.Elevation)))
	return cameraTranslate.Mul(facing).Mul(ortho), nil
}
