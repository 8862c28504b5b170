package shadow

import (
	"fmt"

	"github.com/Faultbox/vrc3d/internal/engine/mesh"
	"github.com/Faultbox/vrc3d/internal/engine/renderer"
	"github.com/Faultbox/vrc3d/internal/engine/scene"
	"github.com/Faultbox/vrc3d/internal/engine/shader"
	"github.com/Faultbox/vrc3d/pkg/math"
)

// Geometry is anything the depth pass can draw with its own program.
type Geometry interface {
	DrawGeometry() error
}

// Pass owns the depth map, the depth program and a debug quad that shows
// the map on screen.
type Pass struct {
	Map        *Map
	LightSpace math.Mat4

	depth       *shader.Program
	quadProgram *shader.Program
	quad        *scene.Buffer[int]
}

// NewPass compiles the shadow programs and allocates the depth map.
func NewPass(backend renderer.Backend, resolution int32) (*Pass, error) {
	depth, err := shader.New("shadow", shader.ShadowVertex, shader.ShadowFragment)
	if err != nil {
		return nil, err
	}
	quadProgram, err := shader.New("shadow_quad", shader.ShadowQuadVertex, shader.ShadowQuadFragment)
	if err != nil {
		depth.Delete()
		return nil, err
	}

	release := func() {
		depth.Delete()
		quadProgram.Delete()
	}

	quad, err := scene.New[int](backend, scene.Config{Name: "shadow-quad", Capacity: scene.OverlayCapacity})
	if err == nil {
		err = quad.Upsert(1, mesh.Quad(0, 1, 0, 1, -1))
	}
	if err != nil {
		release()
		return nil, fmt.Errorf("shadow quad: %w", err)
	}

	sm, err := NewMap(resolution)
	if err != nil {
		release()
		return nil, err
	}

	return &Pass{
		Map:         sm,
		LightSpace:  math.Identity(),
		depth:       depth,
		quadProgram: quadProgram,
		quad:        quad,
	}, nil
}

// Render draws every geometry into the depth map from the light.
func (p *Pass) Render(lightSpace math.Mat4, geometry ...Geometry) error {
	p.LightSpace = lightSpace

	p.depth.Use()
	p.depth.SetMat4("light_space_matrix", lightSpace)

	p.Map.Bind()
	defer p.Map.Unbind()

	for _, g := range geometry {
		if err := g.DrawGeometry(); err != nil {
			return fmt.Errorf("shadow pass: %w", err)
		}
	}
	return nil
}

// DrawDebugQuad shows the depth map in the lower left corner.
func (p *Pass) DrawDebugQuad() error {
	p.quadProgram.Use()
	p.Map.BindTexture(0)
	p.quadProgram.SetInt("depth_map", 0)
	return p.quad.DrawGeometry()
}

// Destroy releases the programs and depth map.
func (p *Pass) Destroy() {
	p.depth.Delete()
	p.quadProgram.Delete()
	p.Map.Destroy()
}
