// Package mesh builds the quad-list geometry the scene buffers store:
// four parallel float32 arrays with three components per vertex.
package mesh

import (
	"errors"
	"fmt"

	"github.com/Faultbox/vrc3d/pkg/math"
)

// VerticesPerQuad is the vertex count of one quad primitive.
const VerticesPerQuad = 4

// ErrInvalidMesh is returned for meshes whose arrays are not parallel
// or not a whole number of quads.
var ErrInvalidMesh = errors.New("invalid mesh")

// Mesh holds per-vertex positions, colors, normals and texture coordinates
// (u, v, layer). All four arrays have the same length.
type Mesh struct {
	Positions []float32
	Colors    []float32
	Normals   []float32
	TexCoords []float32
}

// VertexCount returns the number of vertices.
func (m Mesh) VertexCount() int {
	return len(m.Positions) / 3
}

// Validate checks the arrays are parallel, hold whole quads and contain no
// NaN or infinite values.
func (m Mesh) Validate() error {
	n := len(m.Positions)
	if len(m.Colors) != n || len(m.Normals) != n || len(m.TexCoords) != n {
		return fmt.Errorf("%w: array lengths %d/%d/%d/%d",
			ErrInvalidMesh, n, len(m.Colors), len(m.Normals), len(m.TexCoords))
	}
	if n == 0 || n%(3*VerticesPerQuad) != 0 {
		return fmt.Errorf("%w: %d floats is not a whole number of quads", ErrInvalidMesh, n)
	}
	for _, arr := range [][]float32{m.Positions, m.Colors, m.Normals, m.TexCoords} {
		for i := 0; i < n; i += 3 {
			if !math.V3(arr[i], arr[i+1], arr[i+2]).IsFinite() {
				return fmt.Errorf("%w: non-finite value at vertex %d", ErrInvalidMesh, i/3)
			}
		}
	}
	return nil
}

// Append adds other's vertices after m's.
func (m *Mesh) Append(other Mesh) {
	m.Positions = append(m.Positions, other.Positions...)
	m.Colors = append(m.Colors, other.Colors...)
	m.Normals = append(m.Normals, other.Normals...)
	m.TexCoords = append(m.TexCoords, other.TexCoords...)
}

// Concat joins meshes into one, in order.
func Concat(meshes ...Mesh) Mesh {
	var out Mesh
	for _, m := range meshes {
		out.Append(m)
	}
	return out
}

// TexRegion selects a rectangle of one array-texture layer. Layer -1 means
// untextured (the vertex color is used).
type TexRegion struct {
	U0, U1 float32
	V0, V1 float32
	Layer  float32
}

// Untextured is the region used when a box has no texture.
var Untextured = TexRegion{U0: 0, U1: 1, V0: 0, V1: 1, Layer: -1}

// Full covers a whole layer once.
func Full(layer int) TexRegion {
	return TexRegion{U0: 0, U1: 1, V0: 0, V1: 1, Layer: float32(layer)}
}

// quad returns the 12 texture floats for one face: (u0,v0) (u1,v0) (u1,v1) (u0,v1).
func (t TexRegion) quad() [12]float32 {
	return [12]float32{
		t.U0, t.V0, t.Layer,
		t.U1, t.V0, t.Layer,
		t.U1, t.V1, t.Layer,
		t.U0, t.V1, t.Layer,
	}
}

// Quad returns a single quad spanning [x0,x1]x[y0,y1] at depth z, with
// zero normals, white color and zero texture coordinates.
func Quad(x0, x1, y0, y1, depth float32) Mesh {
	m := Mesh{
		Positions: []float32{
			x0, y0, depth,
			x1, y0, depth,
			x1, y1, depth,
			x0, y1, depth,
		},
		Colors:    make([]float32, 12),
		Normals:   make([]float32, 12),
		TexCoords: make([]float32, 12),
	}
	for i := range m.Colors {
		m.Colors[i] = 1
	}
	return m
}

// BoxSpec describes an axis-aligned box standing on Position + Offset:
// centered in X and Z, extending upward by Size.Y.
type BoxSpec struct {
	Position math.Vec3
	Offset   math.Vec3
	Size     math.Vec3
	Color    Color
	Texture  *TexRegion
}

var boxNormals = [6]math.Vec3{
	{X: 0, Y: 0, Z: -1}, // back
	{X: 0, Y: 0, Z: 1},  // front
	{X: -1, Y: 0, Z: 0}, // left
	{X: 1, Y: 0, Z: 0},  // right
	{X: 0, Y: -1, Z: 0}, // bottom
	{X: 0, Y: 1, Z: 0},  // top
}

// Box returns 24 vertices: six faces of four, ordered back, front, left,
// right, bottom, top. Every face repeats the same texture region.
func Box(spec BoxSpec) Mesh {
	a := spec.Position.Add(spec.Offset).Sub(math.Vec3{X: spec.Size.X / 2, Z: spec.Size.Z / 2})
	b := a.Add(spec.Size)

	faces := [6][12]float32{
		{b.X, a.Y, a.Z, a.X, a.Y, a.Z, a.X, b.Y, a.Z, b.X, b.Y, a.Z},
		{a.X, a.Y, b.Z, b.X, a.Y, b.Z, b.X, b.Y, b.Z, a.X, b.Y, b.Z},
		{a.X, a.Y, a.Z, a.X, a.Y, b.Z, a.X, b.Y, b.Z, a.X, b.Y, a.Z},
		{b.X, a.Y, b.Z, b.X, a.Y, a.Z, b.X, b.Y, a.Z, b.X, b.Y, b.Z},
		{a.X, a.Y, a.Z, b.X, a.Y, a.Z, b.X, a.Y, b.Z, a.X, a.Y, b.Z},
		{a.X, b.Y, b.Z, b.X, b.Y, b.Z, b.X, b.Y, a.Z, a.X, b.Y, a.Z},
	}

	tex := Untextured
	if spec.Texture != nil {
		tex = *spec.Texture
	}
	texQuad := tex.quad()

	const n = 6 * VerticesPerQuad * 3
	m := Mesh{
		Positions: make([]float32, 0, n),
		Colors:    make([]float32, 0, n),
		Normals:   make([]float32, 0, n),
		TexCoords: make([]float32, 0, n),
	}
	for i, face := range faces {
		nrm := boxNormals[i]
		m.Positions = append(m.Positions, face[:]...)
		m.TexCoords = append(m.TexCoords, texQuad[:]...)
		for v := 0; v < VerticesPerQuad; v++ {
			m.Colors = append(m.Colors, spec.Color.R, spec.Color.G, spec.Color.B)
			m.Normals = append(m.Normals, nrm.X, nrm.Y, nrm.Z)
		}
	}
	return m
}
