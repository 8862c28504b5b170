// Package opengl implements the rendering backend on an OpenGL 4.1 core context.
package opengl

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/vrc3d/internal/engine/renderer"
	"github.com/Faultbox/vrc3d/internal/logger"
)

// Config holds renderer configuration.
type Config struct {
	Width      int
	Height     int
	ClearColor [3]float32
}

type glVertexArray struct {
	vao      uint32
	vbos     [renderer.NumAttributes]uint32
	ebo      uint32
	capacity int
}

type glTextureArray struct {
	id                    uint32
	width, height, layers int
}

// Renderer implements renderer.Backend on an OpenGL 4.1 core context.
// Core profile has no GL_QUADS, so every vertex array carries a shared
// element buffer that expands each quad (v0 v1 v2 v3) into (v0 v1 v2)(v0 v2 v3).
type Renderer struct {
	config Config

	vertexArrays  map[renderer.VertexArray]*glVertexArray
	textureArrays map[renderer.TextureArray]*glTextureArray
}

// New initializes OpenGL and the default pipeline state.
// IMPORTANT: Must be called AFTER the OpenGL context is created!
func New(cfg Config) (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	version := gl.GoStr(gl.GetString(gl.VERSION))
	rendererName := gl.GoStr(gl.GetString(gl.RENDERER))
	logger.Info("OpenGL initialized",
		zap.String("version", version),
		zap.String("renderer", rendererName),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.ClearColor(cfg.ClearColor[0], cfg.ClearColor[1], cfg.ClearColor[2], 1.0)

	r := &Renderer{
		config:        cfg,
		vertexArrays:  make(map[renderer.VertexArray]*glVertexArray),
		textureArrays: make(map[renderer.TextureArray]*glTextureArray),
	}
	r.Resize(cfg.Width, cfg.Height)
	return r, nil
}

// Close releases every buffer and texture the backend allocated.
func (r *Renderer) Close() {
	logger.Info("closing renderer")
	for _, va := range r.vertexArrays {
		gl.DeleteBuffers(renderer.NumAttributes, &va.vbos[0])
		gl.DeleteBuffers(1, &va.ebo)
		gl.DeleteVertexArrays(1, &va.vao)
	}
	for _, tex := range r.textureArrays {
		gl.DeleteTextures(1, &tex.id)
	}
	r.vertexArrays = nil
	r.textureArrays = nil
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	logger.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// Begin starts a new frame.
func (r *Renderer) Begin() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// NewVertexArray allocates a VAO with four zero-filled dynamic VBOs bound to
// attribute locations 0..3 and a quad index buffer covering the capacity.
func (r *Renderer) NewVertexArray(capacity int) (renderer.VertexArray, error) {
	if capacity <= 0 {
		return 0, fmt.Errorf("vertex array capacity %d: %w", capacity, renderer.ErrOutOfRange)
	}

	va := &glVertexArray{capacity: capacity}
	gl.GenVertexArrays(1, &va.vao)
	gl.BindVertexArray(va.vao)

	gl.GenBuffers(renderer.NumAttributes, &va.vbos[0])
	size := capacity * renderer.ComponentsPerVertex * 4
	for i, vbo := range va.vbos {
		gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
		gl.BufferData(gl.ARRAY_BUFFER, size, nil, gl.DYNAMIC_DRAW)
		gl.VertexAttribPointer(uint32(i), renderer.ComponentsPerVertex, gl.FLOAT, false, 0, nil)
		gl.EnableVertexAttribArray(uint32(i))
	}

	indices := quadIndices(capacity / 4)
	gl.GenBuffers(1, &va.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, va.ebo)
	if len(indices) > 0 {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, unsafe.Pointer(&indices[0]), gl.STATIC_DRAW)
	}

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	handle := renderer.VertexArray(va.vao)
	r.vertexArrays[handle] = va

	logger.Debug("vertex array created",
		zap.Uint32("vao", va.vao),
		zap.Int("capacity", capacity),
	)
	return handle, nil
}

// WriteVertices uploads data into one VBO with glBufferSubData.
func (r *Renderer) WriteVertices(handle renderer.VertexArray, attr renderer.Attribute, first int, data []float32) error {
	va, ok := r.vertexArrays[handle]
	if !ok {
		return fmt.Errorf("vertex array %d: %w", handle, renderer.ErrUnknownHandle)
	}
	if len(data) == 0 {
		return nil
	}
	count := len(data) / renderer.ComponentsPerVertex
	if first < 0 || first+count > va.capacity {
		return fmt.Errorf("%s write [%d,%d) of %d: %w", attr, first, first+count, va.capacity, renderer.ErrOutOfRange)
	}

	gl.BindBuffer(gl.ARRAY_BUFFER, va.vbos[attr])
	gl.BufferSubData(gl.ARRAY_BUFFER, first*renderer.ComponentsPerVertex*4, len(data)*4, unsafe.Pointer(&data[0]))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return nil
}

// DrawQuads issues one indexed triangle draw covering [first, first+count).
func (r *Renderer) DrawQuads(handle renderer.VertexArray, first, count int) error {
	va, ok := r.vertexArrays[handle]
	if !ok {
		return fmt.Errorf("vertex array %d: %w", handle, renderer.ErrUnknownHandle)
	}
	if count == 0 {
		return nil
	}
	if first < 0 || first+count > va.capacity || first%4 != 0 || count%4 != 0 {
		return fmt.Errorf("draw [%d,%d) of %d: %w", first, first+count, va.capacity, renderer.ErrOutOfRange)
	}

	gl.BindVertexArray(va.vao)
	gl.DrawElements(gl.TRIANGLES, int32(count/4*6), gl.UNSIGNED_INT, gl.PtrOffset(first/4*6*4))
	gl.BindVertexArray(0)
	return nil
}

// NewTextureArray allocates GL_TEXTURE_2D_ARRAY storage for layers RGBA images.
func (r *Renderer) NewTextureArray(width, height, layers int) (renderer.TextureArray, error) {
	if width <= 0 || height <= 0 || layers <= 0 {
		return 0, fmt.Errorf("texture array %dx%dx%d: %w", width, height, layers, renderer.ErrOutOfRange)
	}

	tex := &glTextureArray{width: width, height: height, layers: layers}
	gl.GenTextures(1, &tex.id)
	gl.BindTexture(gl.TEXTURE_2D_ARRAY, tex.id)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D_ARRAY, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.TexImage3D(gl.TEXTURE_2D_ARRAY, 0, gl.RGBA,
		int32(width), int32(height), int32(layers),
		0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.BindTexture(gl.TEXTURE_2D_ARRAY, 0)

	handle := renderer.TextureArray(tex.id)
	r.textureArrays[handle] = tex
	return handle, nil
}

// WriteTextureLayer uploads one layer with glTexSubImage3D and regenerates mipmaps.
func (r *Renderer) WriteTextureLayer(handle renderer.TextureArray, layer int, rgba []byte) error {
	tex, ok := r.textureArrays[handle]
	if !ok {
		return fmt.Errorf("texture array %d: %w", handle, renderer.ErrUnknownHandle)
	}
	if layer < 0 || layer >= tex.layers {
		return fmt.Errorf("layer %d of %d: %w", layer, tex.layers, renderer.ErrOutOfRange)
	}
	if len(rgba) != tex.width*tex.height*4 {
		return fmt.Errorf("layer %d: %d bytes for %dx%d: %w", layer, len(rgba), tex.width, tex.height, renderer.ErrOutOfRange)
	}

	gl.BindTexture(gl.TEXTURE_2D_ARRAY, tex.id)
	gl.TexSubImage3D(gl.TEXTURE_2D_ARRAY, 0, 0, 0, int32(layer),
		int32(tex.width), int32(tex.height), 1,
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rgba))
	gl.GenerateMipmap(gl.TEXTURE_2D_ARRAY)
	gl.BindTexture(gl.TEXTURE_2D_ARRAY, 0)
	return nil
}

// BindTextureArray binds tex to GL_TEXTURE0+unit.
func (r *Renderer) BindTextureArray(handle renderer.TextureArray, unit int) error {
	tex, ok := r.textureArrays[handle]
	if !ok {
		return fmt.Errorf("texture array %d: %w", handle, renderer.ErrUnknownHandle)
	}
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D_ARRAY, tex.id)
	return nil
}

// ReadPixels reads the current viewport back as RGBA rows, bottom row first.
func (r *Renderer) ReadPixels() ([]byte, int, int) {
	w, h := r.config.Width, r.config.Height
	pixels := make([]byte, w*h*4)
	if len(pixels) == 0 {
		return pixels, w, h
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(&pixels[0]))
	return pixels, w, h
}

// quadIndices returns the triangle-list indices for n consecutive quads.
func quadIndices(n int) []uint32 {
	indices := make([]uint32, 0, n*6)
	for q := 0; q < n; q++ {
		base := uint32(q * 4)
		indices = append(indices,
			base, base+1, base+2,
			base, base+2, base+3,
		)
	}
	return indices
}
