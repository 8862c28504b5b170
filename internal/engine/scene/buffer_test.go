package scene

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/vrc3d/internal/engine/mesh"
	"github.com/Faultbox/vrc3d/internal/engine/renderer"
	"github.com/Faultbox/vrc3d/pkg/math"
)

func wall(x, z float32) mesh.Mesh {
	return mesh.Box(mesh.BoxSpec{
		Position: math.V3(x, 0, z),
		Size:     math.V3(1, 1, 1),
		Color:    mesh.MustParseColor("#919c9c"),
	})
}

func newBuffer(t *testing.T, capacity int) (*Buffer[string], *renderer.Memory) {
	t.Helper()
	backend := renderer.NewMemory()
	b, err := New[string](backend, Config{Name: "test", Capacity: capacity})
	require.NoError(t, err)
	return b, backend
}

// contents returns every attribute of a slot as uploaded to the backend.
func contents(t *testing.T, b *Buffer[string], backend *renderer.Memory, id string) [renderer.NumAttributes][]float32 {
	t.Helper()
	require.NoError(t, b.Flush())
	slot, ok := b.Slot(id)
	require.True(t, ok, "no slot for %s", id)
	var out [renderer.NumAttributes][]float32
	for attr := range out {
		out[attr] = backend.Vertices(b.VertexArray(), renderer.Attribute(attr), slot.Offset, slot.Length)
	}
	return out
}

func TestWallScenario(t *testing.T) {
	b, backend := newBuffer(t, 48)
	const L = 24

	require.NoError(t, b.Upsert("wall-1", wall(0, 0)))
	require.NoError(t, b.Upsert("wall-2", wall(1, 0)))

	s1, _ := b.Slot("wall-1")
	s2, _ := b.Slot("wall-2")
	assert.Equal(t, Slot{Offset: 0, Length: L}, s1)
	assert.Equal(t, Slot{Offset: L, Length: L}, s2)

	before := contents(t, b, backend, "wall-2")

	require.NoError(t, b.Delete("wall-1"))
	assert.Equal(t, Tombstoned, b.State("wall-1"))

	require.NoError(t, b.Upsert("wall-1", wall(5, 5)))
	s1, _ = b.Slot("wall-1")
	assert.Equal(t, 0, s1.Offset, "re-added entity reuses its slot")
	assert.Equal(t, Live, b.State("wall-1"))
	assert.Equal(t, 2*L, b.Watermark())

	assert.Equal(t, before, contents(t, b, backend, "wall-2"))
	assert.Equal(t, wall(5, 5).Positions, contents(t, b, backend, "wall-1")[renderer.AttrPosition])
}

func TestUpsertIdempotent(t *testing.T) {
	b, backend := newBuffer(t, 100)
	m := wall(3, 4)

	require.NoError(t, b.Upsert("a", m))
	first := contents(t, b, backend, "a")
	slot, _ := b.Slot("a")

	require.NoError(t, b.Upsert("a", m))
	again, _ := b.Slot("a")
	assert.Equal(t, slot, again)
	assert.Equal(t, first, contents(t, b, backend, "a"))
	assert.Equal(t, 24, b.Watermark())
}

func TestNoOffsetDrift(t *testing.T) {
	b, _ := newBuffer(t, 24*10)
	ids := []string{"a", "b", "c", "d"}
	offsets := map[string]int{}

	for i, id := range ids {
		require.NoError(t, b.Upsert(id, wall(float32(i), 0)))
		s, _ := b.Slot(id)
		offsets[id] = s.Offset
	}

	ops := []func() error{
		func() error { return b.Delete("b") },
		func() error { return b.Upsert("c", wall(9, 9)) },
		func() error { return b.Upsert("b", wall(2, 2)) },
		func() error { return b.Delete("a") },
		func() error { return b.Delete("d") },
		func() error { return b.Upsert("e", wall(7, 7)) },
		func() error { return b.Upsert("d", wall(1, 1)) },
	}
	for _, op := range ops {
		require.NoError(t, op())
		for _, id := range ids {
			s, ok := b.Slot(id)
			require.True(t, ok)
			assert.Equal(t, offsets[id], s.Offset, "offset of %s moved", id)
		}
	}
	e, _ := b.Slot("e")
	assert.Equal(t, 4*24, e.Offset)
}

func TestTombstoneIsolation(t *testing.T) {
	b, backend := newBuffer(t, 24*3)
	require.NoError(t, b.Upsert("a", wall(0, 0)))
	require.NoError(t, b.Upsert("b", wall(1, 0)))
	require.NoError(t, b.Upsert("c", wall(2, 0)))

	beforeB := contents(t, b, backend, "b")
	beforeC := contents(t, b, backend, "c")
	beforeA := contents(t, b, backend, "a")

	require.NoError(t, b.Delete("b"))

	assert.Equal(t, beforeA, contents(t, b, backend, "a"))
	assert.Equal(t, beforeC, contents(t, b, backend, "c"))

	afterB := contents(t, b, backend, "b")
	assert.Equal(t, beforeB[renderer.AttrPosition], afterB[renderer.AttrPosition])
	assert.Equal(t, beforeB[renderer.AttrColor], afterB[renderer.AttrColor])
	assert.Equal(t, beforeB[renderer.AttrNormal], afterB[renderer.AttrNormal])
	for _, v := range afterB[renderer.AttrTexCoord] {
		assert.Equal(t, float32(TombstoneLayer), v)
	}
}

func TestCapacityBoundary(t *testing.T) {
	b, _ := newBuffer(t, 24*2+4)

	require.NoError(t, b.Upsert("a", wall(0, 0)))
	require.NoError(t, b.Upsert("b", wall(1, 0)))

	err := b.Upsert("c", wall(2, 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBufferFull)

	var slotErr *SlotError
	require.True(t, errors.As(err, &slotErr))
	assert.Equal(t, "c", slotErr.ID)
	assert.Equal(t, 24, slotErr.Requested)
	assert.Equal(t, 48, slotErr.Watermark)
	assert.Equal(t, 52, slotErr.Capacity)
	assert.Equal(t, Absent, b.State("c"))
	assert.Equal(t, 48, b.Watermark())

	// The remainder still accepts a mesh that fits exactly.
	require.NoError(t, b.Upsert("quad", mesh.Quad(0, 1, 0, 1, 0)))
	assert.Equal(t, b.Capacity(), b.Watermark())

	assert.ErrorIs(t, b.Upsert("more", mesh.Quad(0, 1, 0, 1, 0)), ErrBufferFull)
}

func TestSizeMismatch(t *testing.T) {
	b, backend := newBuffer(t, 100)
	require.NoError(t, b.Upsert("a", wall(0, 0)))
	before := contents(t, b, backend, "a")

	err := b.Upsert("a", mesh.Quad(0, 1, 0, 1, 0))
	assert.ErrorIs(t, err, ErrSizeMismatch)
	assert.Equal(t, before, contents(t, b, backend, "a"))
	assert.Equal(t, 24, b.Watermark())
}

func TestInvalidMeshRejected(t *testing.T) {
	b, backend := newBuffer(t, 100)
	bad := wall(0, 0)
	bad.Normals = bad.Normals[:len(bad.Normals)-3]

	err := b.Upsert("a", bad)
	assert.ErrorIs(t, err, ErrInvalidMesh)
	assert.Equal(t, Absent, b.State("a"))
	assert.Equal(t, 0, b.Watermark())
	require.NoError(t, b.Flush())
	assert.Empty(t, backend.Writes(), "rejected upsert must not touch any buffer")
}

func TestDeleteUnknown(t *testing.T) {
	b, _ := newBuffer(t, 100)
	err := b.Delete("ghost")
	assert.ErrorIs(t, err, ErrUnknownEntity)
	assert.Contains(t, err.Error(), "ghost")
}

func TestStateMachine(t *testing.T) {
	b, _ := newBuffer(t, 100)
	assert.Equal(t, Absent, b.State("x"))

	require.NoError(t, b.Upsert("x", wall(0, 0)))
	assert.Equal(t, Live, b.State("x"))

	require.NoError(t, b.Upsert("x", wall(1, 1)))
	assert.Equal(t, Live, b.State("x"))

	require.NoError(t, b.Delete("x"))
	assert.Equal(t, Tombstoned, b.State("x"))

	require.NoError(t, b.Delete("x"))
	assert.Equal(t, Tombstoned, b.State("x"))

	require.NoError(t, b.Upsert("x", wall(2, 2)))
	assert.Equal(t, Live, b.State("x"))
	assert.Equal(t, 1, b.Len())
}

func TestFlushCoalescesRanges(t *testing.T) {
	b, backend := newBuffer(t, 24*4)
	require.NoError(t, b.Upsert("a", wall(0, 0)))
	require.NoError(t, b.Upsert("b", wall(1, 0)))
	require.NoError(t, b.Upsert("d", wall(3, 0)))
	assert.Equal(t, 72, b.dirty[renderer.AttrPosition].total())

	require.NoError(t, b.Flush())
	writes := backend.Writes()
	require.Len(t, writes, renderer.NumAttributes)
	for _, w := range writes {
		assert.Equal(t, 0, w.First)
		assert.Equal(t, 72, w.Count)
	}

	backend.Reset()
	require.NoError(t, b.Delete("b"))
	require.NoError(t, b.Flush())
	assert.Equal(t, []renderer.Write{{
		VertexArray: b.VertexArray(),
		Attr:        renderer.AttrTexCoord,
		First:       24,
		Count:       24,
	}}, backend.Writes())

	backend.Reset()
	require.NoError(t, b.Flush())
	assert.Empty(t, backend.Writes())
}

type fakeTexture struct {
	units []int
}

func (f *fakeTexture) Bind(unit int) error {
	f.units = append(f.units, unit)
	return nil
}

func TestDraw(t *testing.T) {
	backend := renderer.NewMemory()
	tex := &fakeTexture{}
	b, err := New[int](backend, Config{
		Name:        "avatars",
		Capacity:    AvatarCapacity,
		Texture:     tex,
		TextureUnit: 1,
		Sampler:     "avatar_array_sampler",
	})
	require.NoError(t, err)

	// Nothing to draw yet.
	require.NoError(t, b.Draw(backend))
	assert.Empty(t, backend.Draws())

	require.NoError(t, b.Upsert(42, wall(0, 0)))
	require.NoError(t, b.Draw(backend))

	assert.Equal(t, []renderer.Draw{{VertexArray: b.VertexArray(), First: 0, Count: 24}}, backend.Draws())
	assert.Equal(t, []int{1}, tex.units)
	sampler, ok := backend.Int("avatar_array_sampler")
	assert.True(t, ok)
	assert.Equal(t, int32(1), sampler)
	assert.Len(t, backend.Writes(), renderer.NumAttributes, "draw flushes pending writes")
}

func TestOverlayQuad(t *testing.T) {
	backend := renderer.NewMemory()
	b, err := New[int](backend, Config{Name: "sky", Capacity: OverlayCapacity})
	require.NoError(t, err)

	require.NoError(t, b.Upsert(1, mesh.Quad(-1, 1, -1, 1, -1)))
	require.NoError(t, b.Draw(nil))
	assert.Equal(t, 4, backend.Draws()[0].Count)
}

func TestDefaultCapacity(t *testing.T) {
	b, err := New[string](renderer.NewMemory(), Config{Name: "buildings"})
	require.NoError(t, err)
	assert.Equal(t, DefaultCapacity, b.Capacity())
}

func TestRangesAdd(t *testing.T) {
	tests := []struct {
		name string
		in   ranges
		add  span
		want ranges
	}{
		{"empty", nil, span{0, 4}, ranges{{0, 4}}},
		{"disjoint after", ranges{{0, 4}}, span{8, 12}, ranges{{0, 4}, {8, 12}}},
		{"disjoint before", ranges{{8, 12}}, span{0, 4}, ranges{{0, 4}, {8, 12}}},
		{"adjacent", ranges{{0, 4}}, span{4, 8}, ranges{{0, 8}}},
		{"bridge", ranges{{0, 4}, {8, 12}}, span{4, 8}, ranges{{0, 12}}},
		{"contained", ranges{{0, 12}}, span{4, 8}, ranges{{0, 12}}},
		{"covering", ranges{{4, 8}, {10, 12}}, span{0, 20}, ranges{{0, 20}}},
		{"empty span", ranges{{0, 4}}, span{6, 6}, ranges{{0, 4}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.add(tt.add.start, tt.add.end))
		})
	}
}
