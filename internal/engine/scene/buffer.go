// Package scene stores entity geometry in four fixed-capacity parallel
// vertex buffers and draws them with a single call.
//
// Slots are bump-allocated and never move. Deleting an entity tombstones its
// texture coordinates (layer -2) instead of freeing the slot, so offsets of
// other entities stay valid for the life of the process.
package scene

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/vrc3d/internal/engine/mesh"
	"github.com/Faultbox/vrc3d/internal/engine/renderer"
	"github.com/Faultbox/vrc3d/internal/logger"
)

// Capacities, in vertices.
const (
	DefaultCapacity = 500_000
	AvatarCapacity  = 10_000
	OverlayCapacity = 13
)

// TombstoneLayer is the texture layer written over deleted slots.
// The fragment stage discards it.
const TombstoneLayer = -2

var (
	// ErrBufferFull is returned when a new slot does not fit below capacity.
	ErrBufferFull = errors.New("scene buffer full")

	// ErrSizeMismatch is returned when an existing slot is upserted with a
	// mesh of a different vertex count.
	ErrSizeMismatch = errors.New("mesh size does not match slot")

	// ErrUnknownEntity is returned when deleting an id that was never added.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrInvalidMesh is returned for meshes that fail validation.
	ErrInvalidMesh = mesh.ErrInvalidMesh
)

// State is the lifecycle of one id in a buffer.
type State int

const (
	Absent State = iota
	Live
	Tombstoned
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Live:
		return "live"
	case Tombstoned:
		return "tombstoned"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Slot is the region of the buffers owned by one id, in vertices.
type Slot struct {
	Offset int
	Length int
}

// SlotError reports a rejected upsert or delete with enough context to
// diagnose it. Err is one of the package sentinels.
type SlotError struct {
	Op        string
	ID        any
	Slot      Slot
	Requested int
	Watermark int
	Capacity  int
	Err       error
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("scene %s %v: %v (slot %d+%d, requested %d, watermark %d, capacity %d)",
		e.Op, e.ID, e.Err, e.Slot.Offset, e.Slot.Length, e.Requested, e.Watermark, e.Capacity)
}

func (e *SlotError) Unwrap() error {
	return e.Err
}

// Texture is an array texture the buffer binds before drawing.
type Texture interface {
	Bind(unit int) error
}

// Config describes one buffer.
type Config struct {
	// Name tags log lines.
	Name string
	// Capacity in vertices; DefaultCapacity when zero.
	Capacity int
	// Texture is bound to TextureUnit and Sampler is pointed at it on Draw.
	// Both may be empty for untextured overlays.
	Texture     Texture
	TextureUnit int
	Sampler     string
}

type entry struct {
	slot       Slot
	tombstoned bool
}

// Buffer is a slab of four parallel vertex buffers keyed by entity id.
// It is not safe for concurrent use; the frame loop owns it.
type Buffer[K comparable] struct {
	config  Config
	backend renderer.Backend
	va      renderer.VertexArray
	log     *zap.Logger

	entries   map[K]*entry
	watermark int

	// CPU copies of the GPU buffers, three floats per vertex.
	shadow [renderer.NumAttributes][]float32
	dirty  [renderer.NumAttributes]ranges
}

// New allocates a buffer of cfg.Capacity vertices on the backend.
func New[K comparable](backend renderer.Backend, cfg Config) (*Buffer[K], error) {
	if cfg.Capacity == 0 {
		cfg.Capacity = DefaultCapacity
	}
	va, err := backend.NewVertexArray(cfg.Capacity)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", cfg.Name, err)
	}

	b := &Buffer[K]{
		config:  cfg,
		backend: backend,
		va:      va,
		log:     logger.Named("scene").With(zap.String("buffer", cfg.Name)),
		entries: make(map[K]*entry),
	}
	for i := range b.shadow {
		b.shadow[i] = make([]float32, cfg.Capacity*renderer.ComponentsPerVertex)
	}
	return b, nil
}

// Upsert writes m into id's slot, allocating one at the watermark for new ids.
// An existing slot is rewritten in place and must receive a mesh of the same
// vertex count. On error nothing is written.
func (b *Buffer[K]) Upsert(id K, m mesh.Mesh) error {
	n := m.VertexCount()
	if err := m.Validate(); err != nil {
		return b.slotError("upsert", id, Slot{}, n, err)
	}

	e, ok := b.entries[id]
	if ok {
		if e.slot.Length != n {
			return b.slotError("upsert", id, e.slot, n, ErrSizeMismatch)
		}
		b.write(e.slot.Offset, m)
		e.tombstoned = false
		return nil
	}

	if b.watermark+n > b.config.Capacity {
		return b.slotError("upsert", id, Slot{Offset: b.watermark}, n, ErrBufferFull)
	}

	e = &entry{slot: Slot{Offset: b.watermark, Length: n}}
	b.entries[id] = e
	b.watermark += n
	b.write(e.slot.Offset, m)

	b.log.Debug("slot allocated",
		zap.Any("id", id),
		zap.Int("offset", e.slot.Offset),
		zap.Int("length", n),
		zap.Int("watermark", b.watermark),
	)
	return nil
}

// Delete tombstones id's slot. Only the texture coordinates are touched; the
// id keeps its slot and a later Upsert revives it in place.
func (b *Buffer[K]) Delete(id K) error {
	e, ok := b.entries[id]
	if !ok {
		return b.slotError("delete", id, Slot{}, 0, ErrUnknownEntity)
	}

	start := e.slot.Offset * renderer.ComponentsPerVertex
	end := start + e.slot.Length*renderer.ComponentsPerVertex
	tex := b.shadow[renderer.AttrTexCoord][start:end]
	for i := range tex {
		tex[i] = TombstoneLayer
	}
	b.dirty[renderer.AttrTexCoord] = b.dirty[renderer.AttrTexCoord].add(e.slot.Offset, e.slot.Offset+e.slot.Length)
	e.tombstoned = true
	return nil
}

// write copies m into the CPU buffers at offset and marks the range dirty.
// Callers have already validated m and the slot bounds.
func (b *Buffer[K]) write(offset int, m mesh.Mesh) {
	data := [renderer.NumAttributes][]float32{
		renderer.AttrPosition: m.Positions,
		renderer.AttrColor:    m.Colors,
		renderer.AttrNormal:   m.Normals,
		renderer.AttrTexCoord: m.TexCoords,
	}
	end := offset + m.VertexCount()
	for attr := range data {
		copy(b.shadow[attr][offset*renderer.ComponentsPerVertex:], data[attr])
		b.dirty[attr] = b.dirty[attr].add(offset, end)
	}
}

// Flush uploads dirty ranges to the backend with sub-range writes.
func (b *Buffer[K]) Flush() error {
	for attr := range b.dirty {
		pending := b.dirty[attr]
		for i, r := range pending {
			data := b.shadow[attr][r.start*renderer.ComponentsPerVertex : r.end*renderer.ComponentsPerVertex]
			if err := b.backend.WriteVertices(b.va, renderer.Attribute(attr), r.start, data); err != nil {
				b.dirty[attr] = pending[i:]
				return fmt.Errorf("scene %s flush %s: %w", b.config.Name, renderer.Attribute(attr), err)
			}
		}
		b.dirty[attr] = nil
	}
	return nil
}

// Draw flushes pending writes, binds the texture and draws [0, watermark).
func (b *Buffer[K]) Draw(u renderer.Uniforms) error {
	if b.watermark > 0 && b.config.Texture != nil {
		if err := b.config.Texture.Bind(b.config.TextureUnit); err != nil {
			return fmt.Errorf("scene %s bind texture: %w", b.config.Name, err)
		}
		if b.config.Sampler != "" && u != nil {
			u.SetInt(b.config.Sampler, int32(b.config.TextureUnit))
		}
	}
	return b.DrawGeometry()
}

// DrawGeometry flushes and draws without touching textures or uniforms,
// for passes such as the shadow depth pass that supply their own program.
func (b *Buffer[K]) DrawGeometry() error {
	if err := b.Flush(); err != nil {
		return err
	}
	if b.watermark == 0 {
		return nil
	}
	return b.backend.DrawQuads(b.va, 0, b.watermark)
}

// Slot returns id's region, if it has one.
func (b *Buffer[K]) Slot(id K) (Slot, bool) {
	e, ok := b.entries[id]
	if !ok {
		return Slot{}, false
	}
	return e.slot, true
}

// State returns where id is in its lifecycle.
func (b *Buffer[K]) State(id K) State {
	e, ok := b.entries[id]
	switch {
	case !ok:
		return Absent
	case e.tombstoned:
		return Tombstoned
	default:
		return Live
	}
}

// Watermark returns the first unused vertex offset.
func (b *Buffer[K]) Watermark() int {
	return b.watermark
}

// Capacity returns the buffer size in vertices.
func (b *Buffer[K]) Capacity() int {
	return b.config.Capacity
}

// Len returns the number of ids with a slot, live or tombstoned.
func (b *Buffer[K]) Len() int {
	return len(b.entries)
}

// VertexArray returns the backend handle, for passes that reuse the
// geometry with another program such as the shadow depth pass.
func (b *Buffer[K]) VertexArray() renderer.VertexArray {
	return b.va
}

func (b *Buffer[K]) slotError(op string, id K, slot Slot, requested int, err error) error {
	return &SlotError{
		Op:        op,
		ID:        id,
		Slot:      slot,
		Requested: requested,
		Watermark: b.watermark,
		Capacity:  b.config.Capacity,
		Err:       err,
	}
}
