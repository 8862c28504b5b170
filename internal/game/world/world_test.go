package world

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/vrc3d/internal/engine/atlas"
	"github.com/Faultbox/vrc3d/internal/engine/renderer"
	"github.com/Faultbox/vrc3d/internal/engine/scene"
	"github.com/Faultbox/vrc3d/internal/game/entity"
	"github.com/Faultbox/vrc3d/pkg/math"
)

// Only grid, link and zoom exist, so they take layers 0, 1 and 2.
func textures() atlas.Images[string] {
	return atlas.Images[string]{
		"grid": image.NewRGBA(image.Rect(0, 0, 128, 128)),
		"link": image.NewRGBA(image.Rect(0, 0, 128, 128)),
		"zoom": image.NewRGBA(image.Rect(0, 0, 128, 128)),
	}
}

func newWorld(t *testing.T, inbound <-chan entity.Entity) (*World, *renderer.Memory) {
	t.Helper()
	backend := renderer.NewMemory()
	cfg := DefaultConfig()
	cfg.BuildingCapacity = 1000
	cfg.AvatarCapacity = 240
	w, err := New(backend, cfg, textures(), inbound)
	require.NoError(t, err)
	return w, backend
}

func texCoords(t *testing.T, b *scene.Buffer[entity.ID], backend *renderer.Memory, id entity.ID) []float32 {
	t.Helper()
	require.NoError(t, b.Flush())
	slot, ok := b.Slot(id)
	require.True(t, ok, "no slot for %d", id)
	return backend.Vertices(b.VertexArray(), renderer.AttrTexCoord, slot.Offset, slot.Length)
}

func positions(t *testing.T, b *scene.Buffer[entity.ID], backend *renderer.Memory, id entity.ID) []float32 {
	t.Helper()
	require.NoError(t, b.Flush())
	slot, ok := b.Slot(id)
	require.True(t, ok, "no slot for %d", id)
	return backend.Vertices(b.VertexArray(), renderer.AttrPosition, slot.Offset, slot.Length)
}

func base(id entity.ID, typ string, x, y float32) entity.Base {
	return entity.Base{ID: id, Type: typ, Pos: entity.Position{X: x, Y: y}}
}

func TestNewPlacesFloor(t *testing.T) {
	w, backend := newWorld(t, nil)

	slot, ok := w.Building.Slot(FloorID)
	require.True(t, ok)
	assert.Equal(t, scene.Slot{Offset: 0, Length: 24}, slot)

	tex := texCoords(t, w.Building, backend, FloorID)
	assert.Equal(t, []float32{0.5, 0.5, 0}, tex[:3])
	assert.Equal(t, []float32{1000.5, 0.5, 0}, tex[3:6])

	pos := positions(t, w.Building, backend, FloorID)
	// back face, first corner: (x1, y0, z0)
	assert.Equal(t, []float32{1000, 0, 0}, pos[:3])
}

func TestDrainAppliesEveryKind(t *testing.T) {
	ch := make(chan entity.Entity, 16)
	w, _ := newWorld(t, ch)

	ch <- &entity.Wall{Base: base(1, "Wall", 3, 4), Color: "pink"}
	ch <- &entity.Desk{Base: base(2, "Desk", 5, 5)}
	ch <- &entity.Note{Base: base(3, "Note", 6, 6)}
	ch <- &entity.Link{Base: base(4, "Link", 7, 7)}
	ch <- &entity.Avatar{Base: base(5, "Avatar", 8, 8)}
	ch <- &entity.Bot{Base: base(6, "Bot", 9, 9)}
	ch <- &entity.Unknown{Base: base(7, "Portal", 9, 9)}

	assert.Equal(t, 7, w.Drain())
	assert.Equal(t, 0, w.Drain(), "empty queue must not block")

	s, ok := w.Building.Slot(1)
	require.True(t, ok)
	assert.Equal(t, 24, s.Offset, "first entity follows the floor")

	desk, ok := w.Building.Slot(2)
	require.True(t, ok)
	assert.Equal(t, 120, desk.Length, "desk is five boxes in one slot")

	_, ok = w.Avatars.Slot(5)
	assert.True(t, ok)
	_, ok = w.Building.Slot(5)
	assert.False(t, ok)

	assert.Equal(t, scene.Absent, w.Building.State(6))
	assert.Equal(t, scene.Absent, w.Building.State(7))
	assert.Equal(t, 5, w.Entities().Count())
}

func TestWallColorFromPalette(t *testing.T) {
	w, backend := newWorld(t, nil)
	require.NoError(t, w.Apply(&entity.Wall{Base: base(1, "Wall", 0, 0), Color: "blue"}))
	require.NoError(t, w.Apply(&entity.Wall{Base: base(2, "Wall", 1, 0), Color: "chartreuse"}))

	require.NoError(t, w.Building.Flush())
	s1, _ := w.Building.Slot(1)
	c1 := backend.Vertices(w.Building.VertexArray(), renderer.AttrColor, s1.Offset, 1)
	assert.InDelta(t, 0x66/255.0, c1[0], 1e-6)
	assert.InDelta(t, 0xbd/255.0, c1[1], 1e-6)
	assert.InDelta(t, 1.0, c1[2], 1e-6)

	s2, _ := w.Building.Slot(2)
	c2 := backend.Vertices(w.Building.VertexArray(), renderer.AttrColor, s2.Offset, 1)
	assert.InDelta(t, 0x11/255.0, c2[0], 1e-6, "unknown palette name uses the default color")
}

func TestMissingTextureFallsBackToColor(t *testing.T) {
	w, backend := newWorld(t, nil)
	require.NoError(t, w.Apply(&entity.Calendar{Base: base(1, "RC::Calendar", 0, 0)}))
	require.NoError(t, w.Apply(&entity.ZoomLink{Base: base(2, "ZoomLink", 0, 0)}))

	assert.Equal(t, float32(-1), texCoords(t, w.Building, backend, 1)[2])
	assert.Equal(t, float32(2), texCoords(t, w.Building, backend, 2)[2])
}

func TestAudioRoomGeometry(t *testing.T) {
	w, backend := newWorld(t, nil)
	require.NoError(t, w.Apply(&entity.AudioRoom{Base: base(1, "AudioRoom", 10, 20), Width: 4, Height: 2}))

	pos := positions(t, w.Building, backend, 1)
	assert.Equal(t, []float32{13.5, 0, 19.5}, pos[:3])
	assert.Equal(t, []float32{9.5, 0, 19.5}, pos[3:6])

	tex := texCoords(t, w.Building, backend, 1)
	assert.Equal(t, []float32{0, 0, -1, 4, 0, -1, 4, 2, -1}, tex[:9])
}

func TestAvatarPhotoLayer(t *testing.T) {
	w, backend := newWorld(t, nil)
	photo := image.NewRGBA(image.Rect(0, 0, 150, 150))

	require.NoError(t, w.Apply(&entity.Avatar{Base: base(1, "Avatar", 0, 0), Photo: photo}))
	require.NoError(t, w.Apply(&entity.Avatar{Base: base(2, "Avatar", 1, 0)}))
	require.NoError(t, w.Apply(&entity.Avatar{Base: base(3, "Avatar", 2, 0), Photo: image.NewRGBA(image.Rect(0, 0, 10, 10))}))

	tex := texCoords(t, w.Avatars, backend, 1)
	assert.Equal(t, []float32{0, -1, 0}, tex[:3])
	assert.Equal(t, float32(-1), texCoords(t, w.Avatars, backend, 2)[2])
	assert.Equal(t, float32(-1), texCoords(t, w.Avatars, backend, 3)[2], "wrong photo size draws untextured")

	// A later move keeps the registered layer without a new photo.
	require.NoError(t, w.Apply(&entity.Avatar{Base: base(1, "Avatar", 5, 5)}))
	assert.Equal(t, float32(0), texCoords(t, w.Avatars, backend, 1)[2])
}

func TestDeleteRoutesToOwningScene(t *testing.T) {
	w, backend := newWorld(t, nil)
	require.NoError(t, w.Apply(&entity.Wall{Base: base(1, "Wall", 0, 0), Color: "gray"}))
	require.NoError(t, w.Apply(&entity.Avatar{Base: base(2, "Avatar", 1, 1)}))

	del := func(id entity.ID, typ string) entity.Entity {
		return &entity.Unknown{Base: entity.Base{ID: id, Type: typ, Deleted: true}}
	}

	require.NoError(t, w.Apply(del(2, "")))
	assert.Equal(t, scene.Tombstoned, w.Avatars.State(2))
	assert.Equal(t, float32(scene.TombstoneLayer), texCoords(t, w.Avatars, backend, 2)[2])

	require.NoError(t, w.Apply(del(1, "Wall")))
	assert.Equal(t, scene.Tombstoned, w.Building.State(1))
	assert.Equal(t, 0, w.Entities().Count())

	err := w.Apply(del(99, "Wall"))
	assert.ErrorIs(t, err, scene.ErrUnknownEntity)

	assert.NoError(t, w.Apply(del(98, "Bot")))
}

func TestKindChangeIsSizeMismatch(t *testing.T) {
	ch := make(chan entity.Entity, 4)
	w, _ := newWorld(t, ch)

	ch <- &entity.Wall{Base: base(5, "Wall", 0, 0)}
	ch <- &entity.Desk{Base: base(5, "Desk", 0, 0)}
	ch <- &entity.Note{Base: base(6, "Note", 0, 0)}
	assert.Equal(t, 3, w.Drain())

	s, _ := w.Building.Slot(5)
	assert.Equal(t, 24, s.Length, "failed upsert leaves the slot untouched")
	assert.Equal(t, scene.Live, w.Building.State(6), "drain continues past a failure")

	err := w.Apply(&entity.Desk{Base: base(5, "Desk", 0, 0)})
	assert.ErrorIs(t, err, scene.ErrSizeMismatch)
}

func TestKindChangeAcrossScenes(t *testing.T) {
	w, backend := newWorld(t, nil)

	require.NoError(t, w.Apply(&entity.Note{Base: base(7, "Note", 0, 0)}))
	require.NoError(t, w.Apply(&entity.Avatar{Base: base(7, "Avatar", 1, 1)}))

	assert.Equal(t, scene.Tombstoned, w.Building.State(7), "old building geometry stays visible")
	assert.Equal(t, float32(scene.TombstoneLayer), texCoords(t, w.Building, backend, 7)[2])
	assert.Equal(t, scene.Live, w.Avatars.State(7))
	prev, ok := w.Entities().Get(7)
	require.True(t, ok)
	assert.Equal(t, entity.KindAvatar, entity.KindOf(prev))

	// And back: the building slot revives, the avatar is tombstoned.
	require.NoError(t, w.Apply(&entity.Note{Base: base(7, "Note", 0, 0)}))
	assert.Equal(t, scene.Live, w.Building.State(7))
	assert.Equal(t, scene.Tombstoned, w.Avatars.State(7))

	// A delete now routes to the building scene only.
	require.NoError(t, w.Apply(&entity.Unknown{Base: entity.Base{ID: 7, Deleted: true}}))
	assert.Equal(t, scene.Tombstoned, w.Building.State(7))
}

func TestDrainClosedChannel(t *testing.T) {
	ch := make(chan entity.Entity, 1)
	w, _ := newWorld(t, ch)
	ch <- &entity.Note{Base: base(1, "Note", 0, 0)}
	close(ch)

	assert.Equal(t, 1, w.Drain())
	assert.Equal(t, 0, w.Drain())
}

type memProgram struct {
	*renderer.Memory
	uses int
}

func (p *memProgram) Use() { p.uses++ }

func TestDraw(t *testing.T) {
	w, backend := newWorld(t, nil)
	prog := &memProgram{Memory: backend}

	frame := Frame{
		MVP:        math.Translate(math.V3(1, 2, 3)),
		Camera:     math.V3(45, 0.6, 53),
		Sun:        math.V3(0, 1, 0),
		LightSpace: math.Identity(),
		Shadows:    true,
	}
	require.NoError(t, w.Draw(prog, frame))

	assert.Equal(t, 1, prog.uses)
	mvp, _ := backend.Mat4("matrix")
	assert.Equal(t, frame.MVP, mvp)
	cam, _ := backend.Vec3("camera")
	assert.Equal(t, frame.Camera, cam)
	shadows, _ := backend.Int("shadows_enabled")
	assert.Equal(t, int32(1), shadows)
	sampler, _ := backend.Int("texture_array_sampler")
	assert.Equal(t, int32(BuildingTextureUnit), sampler)
	tile, _ := backend.Int("tile_texture")
	assert.Equal(t, int32(0), tile, "avatars draw last")

	_, ok := backend.Bound(BuildingTextureUnit)
	assert.True(t, ok)

	// Only the building has geometry.
	draws := backend.Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, renderer.Draw{VertexArray: w.Building.VertexArray(), First: 0, Count: 24}, draws[0])
}
