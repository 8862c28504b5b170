// Package sky draws the sky behind the world: a fullscreen quad shaded from
// the camera rotation, the sun, the moon and the celestial sphere.
package sky

import (
	"fmt"

	"github.com/Faultbox/vrc3d/internal/engine/camera"
	"github.com/Faultbox/vrc3d/internal/engine/lighting"
	"github.com/Faultbox/vrc3d/internal/engine/mesh"
	"github.com/Faultbox/vrc3d/internal/engine/renderer"
	"github.com/Faultbox/vrc3d/internal/engine/scene"
)

// Program is a shader program that can be made current.
type Program interface {
	renderer.Uniforms
	Use()
}

// Sky renders one quad with its own program.
type Sky struct {
	ShowGrid       bool
	ShowAtmosphere bool

	program Program
	quad    *scene.Buffer[int]
}

// New allocates the sky quad.
func New(backend renderer.Backend, program Program, showGrid, showAtmosphere bool) (*Sky, error) {
	quad, err := scene.New[int](backend, scene.Config{Name: "sky", Capacity: scene.OverlayCapacity})
	if err != nil {
		return nil, err
	}
	if err := quad.Upsert(1, mesh.Quad(-1, 1, -1, 1, -1)); err != nil {
		return nil, fmt.Errorf("sky quad: %w", err)
	}
	return &Sky{
		ShowGrid:       showGrid,
		ShowAtmosphere: showAtmosphere,
		program:        program,
		quad:           quad,
	}, nil
}

// Draw renders the sky for this frame. cam.ComputeMatrices must have run.
func (s *Sky) Draw(cam *camera.FlyCamera, astro lighting.Astronomy) error {
	s.program.Use()
	s.program.SetMat4("rotation_matrix", cam.Rotate)
	s.program.SetMat4("projection_matrix", cam.Project)
	s.program.SetMat4("celestial_matrix", astro.Celestial)
	s.program.SetVec3("sun_position", astro.SunVector)
	s.program.SetVec3("moon_position", astro.MoonVector)
	s.program.SetMat4("moon_matrix", astro.MoonMatrix)
	s.program.SetInt("show_grid", boolInt(s.ShowGrid))
	s.program.SetInt("show_atmosphere", boolInt(s.ShowAtmosphere))
	return s.quad.DrawGeometry()
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
