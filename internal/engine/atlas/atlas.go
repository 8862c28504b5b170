// Package atlas maps texture keys to layers of a fixed-size array texture.
package atlas

import (
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/Faultbox/vrc3d/internal/engine/renderer"
	"github.com/Faultbox/vrc3d/internal/logger"
)

var (
	// ErrAtlasFull is returned when every layer is taken.
	ErrAtlasFull = errors.New("atlas full")

	// ErrUnknownKey is returned by Index for keys never added.
	ErrUnknownKey = errors.New("unknown texture key")

	// ErrDimensionMismatch is returned for images that are not exactly the
	// atlas width and height.
	ErrDimensionMismatch = errors.New("texture dimension mismatch")

	// ErrNotFound is returned by a PixelSource with no image for a key.
	ErrNotFound = errors.New("texture not found")
)

// DimensionError describes an image rejected for its size.
type DimensionError struct {
	Key           string
	Width, Height int
	WantW, WantH  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("texture %s is %dx%d, atlas is %dx%d",
		e.Key, e.Width, e.Height, e.WantW, e.WantH)
}

// Unwrap lets errors.Is match ErrDimensionMismatch.
func (e *DimensionError) Unwrap() error {
	return ErrDimensionMismatch
}

// PixelSource supplies the image registered under a key.
type PixelSource[K comparable] interface {
	Image(key K) (image.Image, error)
}

// Atlas assigns each distinct key one layer of an array texture.
// Layers are handed out in insertion order and never reused.
type Atlas[K comparable] struct {
	backend renderer.Backend
	texture renderer.TextureArray
	source  PixelSource[K]
	log     *zap.Logger

	width, height int
	capacity      int

	layers map[K]int
	next   int
}

// New allocates the array texture. source may be nil when every image is
// registered through AddImage.
func New[K comparable](backend renderer.Backend, width, height, capacity int, source PixelSource[K]) (*Atlas[K], error) {
	tex, err := backend.NewTextureArray(width, height, capacity)
	if err != nil {
		return nil, fmt.Errorf("atlas %dx%dx%d: %w", width, height, capacity, err)
	}
	return &Atlas[K]{
		backend:  backend,
		texture:  tex,
		source:   source,
		log:      logger.Named("atlas"),
		width:    width,
		height:   height,
		capacity: capacity,
		layers:   make(map[K]int),
	}, nil
}

// Add registers key with pixels from the source and returns its layer.
// Adding a key twice returns its first layer without touching the source.
func (a *Atlas[K]) Add(key K) (int, error) {
	if layer, ok := a.layers[key]; ok {
		return layer, nil
	}
	if a.next >= a.capacity {
		return 0, fmt.Errorf("add %v (%d layers): %w", key, a.capacity, ErrAtlasFull)
	}
	if a.source == nil {
		return 0, fmt.Errorf("add %v: no pixel source: %w", key, ErrNotFound)
	}
	img, err := a.source.Image(key)
	if err != nil {
		return 0, fmt.Errorf("add %v: %w", key, err)
	}
	return a.AddImage(key, img)
}

// AddImage registers key with explicit pixels. The image must match the
// atlas dimensions exactly. Nothing is recorded unless the upload succeeds.
func (a *Atlas[K]) AddImage(key K, img image.Image) (int, error) {
	if layer, ok := a.layers[key]; ok {
		return layer, nil
	}
	if a.next >= a.capacity {
		return 0, fmt.Errorf("add %v (%d layers): %w", key, a.capacity, ErrAtlasFull)
	}

	b := img.Bounds()
	if b.Dx() != a.width || b.Dy() != a.height {
		return 0, &DimensionError{
			Key:   fmt.Sprint(key),
			Width: b.Dx(), Height: b.Dy(),
			WantW: a.width, WantH: a.height,
		}
	}

	layer := a.next
	if err := a.backend.WriteTextureLayer(a.texture, layer, RGBA(img)); err != nil {
		return 0, fmt.Errorf("upload %v to layer %d: %w", key, layer, err)
	}

	a.layers[key] = layer
	a.next++

	a.log.Debug("texture added",
		zap.Any("key", key),
		zap.Int("layer", layer),
	)
	return layer, nil
}

// Index returns the layer of a previously added key.
func (a *Atlas[K]) Index(key K) (int, error) {
	layer, ok := a.layers[key]
	if !ok {
		return 0, fmt.Errorf("index %v: %w", key, ErrUnknownKey)
	}
	return layer, nil
}

// Len returns the number of layers in use.
func (a *Atlas[K]) Len() int {
	return a.next
}

// Capacity returns the total number of layers.
func (a *Atlas[K]) Capacity() int {
	return a.capacity
}

// Size returns the width and height every layer must have.
func (a *Atlas[K]) Size() (int, int) {
	return a.width, a.height
}

// Bind activates the array texture on a texture unit.
func (a *Atlas[K]) Bind(unit int) error {
	return a.backend.BindTextureArray(a.texture, unit)
}
