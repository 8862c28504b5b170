// Package shadow renders a depth map from the sun's point of view and
// exposes it to the main pass.
package shadow

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// ErrIncompleteFramebuffer is returned when the driver rejects the depth FBO.
var ErrIncompleteFramebuffer = errors.New("shadow framebuffer incomplete")

// DefaultResolution is the side of the depth map in texels.
const DefaultResolution = 2048

// Map is a depth-only framebuffer sampled by the world shader.
type Map struct {
	fbo        uint32
	depth      uint32
	resolution int32
	viewport   [4]int32 // restored by Unbind
}

// NewMap creates a depth-only framebuffer of resolution² texels.
func NewMap(resolution int32) (*Map, error) {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	sm := &Map{resolution: resolution, depth: newDepthTexture(resolution)}

	gl.GenFramebuffers(1, &sm.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, sm.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, sm.depth, 0)
	gl.DrawBuffer(gl.NONE)
	gl.ReadBuffer(gl.NONE)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	if status != gl.FRAMEBUFFER_COMPLETE {
		sm.Destroy()
		return nil, fmt.Errorf("status 0x%x at %d²: %w", status, resolution, ErrIncompleteFramebuffer)
	}
	return sm, nil
}

// newDepthTexture allocates the depth attachment. It is read as a plain
// depth value, so filtering is nearest with no compare mode, and texels
// outside the map read as 1 (lit).
func newDepthTexture(resolution int32) uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.DEPTH_COMPONENT, resolution, resolution, 0,
		gl.DEPTH_COMPONENT, gl.FLOAT, nil)

	for _, p := range [][2]int32{
		{gl.TEXTURE_MIN_FILTER, gl.NEAREST},
		{gl.TEXTURE_MAG_FILTER, gl.NEAREST},
		{gl.TEXTURE_WRAP_S, gl.CLAMP_TO_BORDER},
		{gl.TEXTURE_WRAP_T, gl.CLAMP_TO_BORDER},
	} {
		gl.TexParameteri(gl.TEXTURE_2D, uint32(p[0]), p[1])
	}
	border := [4]float32{1, 1, 1, 1}
	gl.TexParameterfv(gl.TEXTURE_2D, gl.TEXTURE_BORDER_COLOR, &border[0])
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return tex
}

// Resolution returns the side of the map in texels.
func (sm *Map) Resolution() int32 {
	return sm.resolution
}

// Bind targets the depth framebuffer, clears it and culls front faces
// against acne. The caller's viewport is saved for Unbind.
func (sm *Map) Bind() {
	gl.GetIntegerv(gl.VIEWPORT, &sm.viewport[0])
	gl.BindFramebuffer(gl.FRAMEBUFFER, sm.fbo)
	gl.Viewport(0, 0, sm.resolution, sm.resolution)
	gl.Clear(gl.DEPTH_BUFFER_BIT)
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.FRONT)
}

// Unbind restores the default framebuffer, viewport and culling.
func (sm *Map) Unbind() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(sm.viewport[0], sm.viewport[1], sm.viewport[2], sm.viewport[3])
	gl.CullFace(gl.BACK)
	gl.Disable(gl.CULL_FACE)
}

// BindTexture binds the depth texture to GL_TEXTURE0+unit.
func (sm *Map) BindTexture(unit int) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, sm.depth)
}

// Destroy releases the framebuffer and texture.
func (sm *Map) Destroy() {
	if sm.fbo != 0 {
		gl.DeleteFramebuffers(1, &sm.fbo)
		sm.fbo = 0
	}
	if sm.depth != 0 {
		gl.DeleteTextures(1, &sm.depth)
		sm.depth = 0
	}
}
