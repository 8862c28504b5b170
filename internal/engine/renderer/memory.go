package renderer

import (
	"fmt"
	"sync"

	"github.com/Faultbox/vrc3d/pkg/math"
)

// Draw records one DrawQuads call.
type Draw struct {
	VertexArray VertexArray
	First       int
	Count       int
}

// Write records one WriteVertices call.
type Write struct {
	VertexArray VertexArray
	Attr        Attribute
	First       int
	Count       int
}

type memVertexArray struct {
	capacity int
	buffers  [NumAttributes][]float32
}

type memTextureArray struct {
	width, height int
	layers        [][]byte
}

// Memory is a Backend and Uniforms recorder without a GPU.
// It backs headless runs and every core package's tests.
type Memory struct {
	mu sync.Mutex

	nextHandle    uint32
	vertexArrays  map[VertexArray]*memVertexArray
	textureArrays map[TextureArray]*memTextureArray

	writes   []Write
	draws    []Draw
	bound    map[int]TextureArray
	ints     map[string]int32
	floats   map[string]float32
	vec3s    map[string]math.Vec3
	matrices map[string]math.Mat4
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		vertexArrays:  make(map[VertexArray]*memVertexArray),
		textureArrays: make(map[TextureArray]*memTextureArray),
		bound:         make(map[int]TextureArray),
		ints:          make(map[string]int32),
		floats:        make(map[string]float32),
		vec3s:         make(map[string]math.Vec3),
		matrices:      make(map[string]math.Mat4),
	}
}

func (m *Memory) handle() uint32 {
	m.nextHandle++
	return m.nextHandle
}

// NewVertexArray implements Backend.
func (m *Memory) NewVertexArray(capacity int) (VertexArray, error) {
	if capacity <= 0 {
		return 0, fmt.Errorf("vertex array capacity %d: %w", capacity, ErrOutOfRange)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	va := &memVertexArray{capacity: capacity}
	for i := range va.buffers {
		va.buffers[i] = make([]float32, capacity*ComponentsPerVertex)
	}
	h := VertexArray(m.handle())
	m.vertexArrays[h] = va
	return h, nil
}

// WriteVertices implements Backend.
func (m *Memory) WriteVertices(h VertexArray, attr Attribute, first int, data []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	va, ok := m.vertexArrays[h]
	if !ok {
		return fmt.Errorf("vertex array %d: %w", h, ErrUnknownHandle)
	}
	if attr < 0 || int(attr) >= NumAttributes {
		return fmt.Errorf("attribute %d: %w", attr, ErrOutOfRange)
	}
	count := len(data) / ComponentsPerVertex
	if first < 0 || first+count > va.capacity {
		return fmt.Errorf("%s write [%d,%d) of %d: %w", attr, first, first+count, va.capacity, ErrOutOfRange)
	}
	copy(va.buffers[attr][first*ComponentsPerVertex:], data)
	m.writes = append(m.writes, Write{VertexArray: h, Attr: attr, First: first, Count: count})
	return nil
}

// DrawQuads implements Backend.
func (m *Memory) DrawQuads(h VertexArray, first, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	va, ok := m.vertexArrays[h]
	if !ok {
		return fmt.Errorf("vertex array %d: %w", h, ErrUnknownHandle)
	}
	if first < 0 || first+count > va.capacity || first%4 != 0 || count%4 != 0 {
		return fmt.Errorf("draw [%d,%d) of %d: %w", first, first+count, va.capacity, ErrOutOfRange)
	}
	m.draws = append(m.draws, Draw{VertexArray: h, First: first, Count: count})
	return nil
}

// NewTextureArray implements Backend.
func (m *Memory) NewTextureArray(width, height, layers int) (TextureArray, error) {
	if width <= 0 || height <= 0 || layers <= 0 {
		return 0, fmt.Errorf("texture array %dx%dx%d: %w", width, height, layers, ErrOutOfRange)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	h := TextureArray(m.handle())
	m.textureArrays[h] = &memTextureArray{
		width:  width,
		height: height,
		layers: make([][]byte, layers),
	}
	return h, nil
}

// WriteTextureLayer implements Backend.
func (m *Memory) WriteTextureLayer(h TextureArray, layer int, rgba []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tex, ok := m.textureArrays[h]
	if !ok {
		return fmt.Errorf("texture array %d: %w", h, ErrUnknownHandle)
	}
	if layer < 0 || layer >= len(tex.layers) {
		return fmt.Errorf("layer %d of %d: %w", layer, len(tex.layers), ErrOutOfRange)
	}
	if len(rgba) != tex.width*tex.height*4 {
		return fmt.Errorf("layer %d: %d bytes for %dx%d: %w", layer, len(rgba), tex.width, tex.height, ErrOutOfRange)
	}
	tex.layers[layer] = append([]byte(nil), rgba...)
	return nil
}

// BindTextureArray implements Backend.
func (m *Memory) BindTextureArray(h TextureArray, unit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.textureArrays[h]; !ok {
		return fmt.Errorf("texture array %d: %w", h, ErrUnknownHandle)
	}
	m.bound[unit] = h
	return nil
}

// SetInt implements Uniforms.
func (m *Memory) SetInt(name string, v int32) {
	m.mu.Lock()
	m.ints[name] = v
	m.mu.Unlock()
}

// SetFloat implements Uniforms.
func (m *Memory) SetFloat(name string, v float32) {
	m.mu.Lock()
	m.floats[name] = v
	m.mu.Unlock()
}

// SetVec3 implements Uniforms.
func (m *Memory) SetVec3(name string, v math.Vec3) {
	m.mu.Lock()
	m.vec3s[name] = v
	m.mu.Unlock()
}

// SetMat4 implements Uniforms.
func (m *Memory) SetMat4(name string, v math.Mat4) {
	m.mu.Lock()
	m.matrices[name] = v
	m.mu.Unlock()
}

// Buffer returns a copy of one attribute buffer, 3 floats per vertex.
func (m *Memory) Buffer(h VertexArray, attr Attribute) []float32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	va, ok := m.vertexArrays[h]
	if !ok {
		return nil
	}
	return append([]float32(nil), va.buffers[attr]...)
}

// Vertices returns count vertices of one attribute starting at first.
func (m *Memory) Vertices(h VertexArray, attr Attribute, first, count int) []float32 {
	buf := m.Buffer(h, attr)
	if buf == nil {
		return nil
	}
	return buf[first*ComponentsPerVertex : (first+count)*ComponentsPerVertex]
}

// Layer returns the RGBA bytes uploaded to one texture layer, or nil.
func (m *Memory) Layer(h TextureArray, layer int) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	tex, ok := m.textureArrays[h]
	if !ok || layer < 0 || layer >= len(tex.layers) {
		return nil
	}
	return tex.layers[layer]
}

// Writes returns the recorded vertex uploads.
func (m *Memory) Writes() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Write(nil), m.writes...)
}

// Draws returns the recorded draw calls.
func (m *Memory) Draws() []Draw {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Draw(nil), m.draws...)
}

// Bound returns the texture array bound to unit.
func (m *Memory) Bound(unit int) (TextureArray, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.bound[unit]
	return h, ok
}

// Int returns the last value set for an int uniform.
func (m *Memory) Int(name string) (int32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.ints[name]
	return v, ok
}

// Float returns the last value set for a float uniform.
func (m *Memory) Float(name string) (float32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.floats[name]
	return v, ok
}

// Vec3 returns the last value set for a vec3 uniform.
func (m *Memory) Vec3(name string) (math.Vec3, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vec3s[name]
	return v, ok
}

// Mat4 returns the last value set for a mat4 uniform.
func (m *Memory) Mat4(name string) (math.Mat4, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.matrices[name]
	return v, ok
}

// Reset forgets recorded writes and draws but keeps buffer contents.
func (m *Memory) Reset() {
	m.mu.Lock()
	m.writes = nil
	m.draws = nil
	m.mu.Unlock()
}
