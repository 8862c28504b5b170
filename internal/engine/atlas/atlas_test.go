package atlas

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/vrc3d/internal/engine/renderer"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// countingSource serves a solid image for any key and counts lookups.
type countingSource struct {
	w, h  int
	calls map[string]int
}

func (s *countingSource) Image(key string) (image.Image, error) {
	s.calls[key]++
	return solid(s.w, s.h, color.NRGBA{R: uint8(len(key)), A: 255}), nil
}

func TestAddAssignsSequentialLayers(t *testing.T) {
	backend := renderer.NewMemory()
	src := &countingSource{w: 4, h: 4, calls: map[string]int{}}
	a, err := New[string](backend, 4, 4, 8, src)
	require.NoError(t, err)

	for i, key := range []string{"empty", "grid", "link"} {
		layer, err := a.Add(key)
		require.NoError(t, err)
		assert.Equal(t, i, layer)
	}

	layer, err := a.Add("grid")
	require.NoError(t, err)
	assert.Equal(t, 1, layer)
	assert.Equal(t, 1, src.calls["grid"], "re-adding must not reload pixels")

	for i := 0; i < 5; i++ {
		_, err := a.Add(fmt.Sprintf("extra-%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 8, a.Len())

	_, err = a.Add("one-too-many")
	assert.ErrorIs(t, err, ErrAtlasFull)
	assert.Equal(t, 8, a.Len())
	assert.Zero(t, src.calls["one-too-many"], "full atlas must fail before loading")

	_, err = a.Index("one-too-many")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestIndex(t *testing.T) {
	a, err := New[string](renderer.NewMemory(), 2, 2, 4, Images[string]{
		"note": solid(2, 2, color.NRGBA{A: 255}),
	})
	require.NoError(t, err)

	_, err = a.Index("note")
	assert.ErrorIs(t, err, ErrUnknownKey)

	_, err = a.Add("note")
	require.NoError(t, err)
	layer, err := a.Index("note")
	require.NoError(t, err)
	assert.Equal(t, 0, layer)

	_, err = a.Add("zoom")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, a.Len())
}

func TestAddImageDimensionMismatch(t *testing.T) {
	backend := renderer.NewMemory()
	a, err := New[int](backend, 150, 150, 2, nil)
	require.NoError(t, err)

	_, err = a.AddImage(7, solid(100, 150, color.NRGBA{A: 255}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	var dimErr *DimensionError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 100, dimErr.Width)
	assert.Equal(t, 150, dimErr.WantW)

	assert.Equal(t, 0, a.Len(), "rejected image must not consume a layer")

	layer, err := a.AddImage(7, solid(150, 150, color.NRGBA{A: 255}))
	require.NoError(t, err)
	assert.Equal(t, 0, layer)
}

func TestAddWithoutSource(t *testing.T) {
	a, err := New[int](renderer.NewMemory(), 2, 2, 2, nil)
	require.NoError(t, err)
	_, err = a.Add(1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUploadAndBind(t *testing.T) {
	backend := renderer.NewMemory()
	a, err := New[string](backend, 1, 2, 2, nil)
	require.NoError(t, err)

	img := image.NewNRGBA(image.Rect(0, 0, 1, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(0, 1, color.NRGBA{B: 255, A: 255})

	_, err = a.AddImage("flag", img)
	require.NoError(t, err)

	// Bottom row first.
	assert.Equal(t, []byte{0, 0, 255, 255, 255, 0, 0, 255}, backend.Layer(a.texture, 0))

	require.NoError(t, a.Bind(1))
	bound, ok := backend.Bound(1)
	assert.True(t, ok)
	assert.Equal(t, a.texture, bound)
}

func TestRGBAConvertsPalettedImages(t *testing.T) {
	pal := image.NewPaletted(image.Rect(0, 0, 2, 1), color.Palette{
		color.NRGBA{R: 10, G: 20, B: 30, A: 255},
	})
	assert.Equal(t, []byte{10, 20, 30, 255, 10, 20, 30, 255}, RGBA(pal))
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "grid.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, solid(3, 3, color.NRGBA{G: 200, A: 255})))
	require.NoError(t, f.Close())

	src := Dir{Root: dir}
	img, err := src.Image("grid")
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())

	_, err = src.Image("microphone")
	assert.ErrorIs(t, err, ErrNotFound)
}
