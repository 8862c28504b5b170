// Package renderer defines the graphics backend the scene core draws through,
// with an OpenGL 4.1 implementation and an in-memory one.
package renderer

import (
	"errors"

	"github.com/Faultbox/vrc3d/pkg/math"
)

// Attribute selects one of the four parallel vertex buffers.
type Attribute int

// Vertex attributes, matching the shader layout locations.
const (
	AttrPosition Attribute = iota
	AttrColor
	AttrNormal
	AttrTexCoord
)

// NumAttributes is the number of parallel vertex buffers per vertex array.
const NumAttributes = 4

// ComponentsPerVertex is the float count per vertex in every attribute buffer.
const ComponentsPerVertex = 3

func (a Attribute) String() string {
	switch a {
	case AttrPosition:
		return "position"
	case AttrColor:
		return "color"
	case AttrNormal:
		return "normal"
	case AttrTexCoord:
		return "texcoord"
	}
	return "unknown"
}

// VertexArray is an opaque handle to four fixed-capacity vertex buffers.
type VertexArray uint32

// TextureArray is an opaque handle to a fixed-depth RGBA array texture.
type TextureArray uint32

var (
	// ErrOutOfRange is returned for writes or draws past a buffer's capacity.
	ErrOutOfRange = errors.New("range outside buffer")

	// ErrUnknownHandle is returned for handles the backend never issued.
	ErrUnknownHandle = errors.New("unknown handle")
)

// Backend is the graphics API surface the scene core depends on.
// Offsets and counts are in vertices; data slices hold three floats per vertex.
type Backend interface {
	// NewVertexArray allocates four parallel buffers of capacity vertices each.
	NewVertexArray(capacity int) (VertexArray, error)

	// WriteVertices overwrites a sub-range of one attribute buffer.
	WriteVertices(va VertexArray, attr Attribute, first int, data []float32) error

	// DrawQuads draws count vertices starting at first as independent quads.
	DrawQuads(va VertexArray, first, count int) error

	// NewTextureArray allocates an RGBA array texture.
	NewTextureArray(width, height, layers int) (TextureArray, error)

	// WriteTextureLayer uploads width*height*4 bytes of RGBA into one layer.
	WriteTextureLayer(tex TextureArray, layer int, rgba []byte) error

	// BindTextureArray makes tex active on the given texture unit.
	BindTextureArray(tex TextureArray, unit int) error
}

// Uniforms sets shader uniforms by name on the active program.
type Uniforms interface {
	SetInt(name string, v int32)
	SetFloat(name string, v float32)
	SetVec3(name string, v math.Vec3)
	SetMat4(name string, m math.Mat4)
}
