package atlas

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
)

// RGBA converts img to tightly packed RGBA rows, bottom row first, which is
// the order OpenGL reads texture data in.
func RGBA(img image.Image) []byte {
	b := img.Bounds()
	rgba, ok := img.(*image.NRGBA)
	if !ok || rgba.Stride != b.Dx()*4 {
		rgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	w, h := b.Dx()*4, b.Dy()
	out := make([]byte, w*h)
	for y := 0; y < h; y++ {
		copy(out[(h-1-y)*w:(h-y)*w], rgba.Pix[y*rgba.Stride:y*rgba.Stride+w])
	}
	return out
}

// Dir loads <Root>/<key>.png for named textures.
type Dir struct {
	Root string
}

// Image implements PixelSource.
func (d Dir) Image(key string) (image.Image, error) {
	path := filepath.Join(d.Root, key+".png")
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// Images is an in-memory PixelSource.
type Images[K comparable] map[K]image.Image

// Image implements PixelSource.
func (m Images[K]) Image(key K) (image.Image, error) {
	img, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("%v: %w", key, ErrNotFound)
	}
	return img, nil
}
