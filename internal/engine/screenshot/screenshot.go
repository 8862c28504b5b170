// Package screenshot saves framebuffer readbacks as PNG files.
package screenshot

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

// Saver writes <dir>/<prefix>_<timestamp>.png files.
type Saver struct {
	dir    string
	prefix string
	now    func() time.Time
}

// New creates a saver. The directory is created on first save.
func New(dir, prefix string) *Saver {
	return &Saver{dir: dir, prefix: prefix, now: time.Now}
}

// Path returns the file name the next save would use.
func (s *Saver) Path() string {
	name := fmt.Sprintf("%s_%s.png", s.prefix, s.now().Format("2006-01-02_15-04-05.000"))
	return filepath.Join(s.dir, name)
}

// Save encodes width*height RGBA pixels read bottom row first, as OpenGL
// returns them, and returns the file written.
func (s *Saver) Save(pixels []byte, width, height int) (string, error) {
	img, err := FromPixels(pixels, width, height)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}

	path := s.Path()
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("encoding PNG: %w", err)
	}
	return path, nil
}

// FromPixels flips bottom-up RGBA rows into a top-down image.
func FromPixels(pixels []byte, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 || len(pixels) != width*height*4 {
		return nil, fmt.Errorf("pixel data size mismatch: %dx%d needs %d bytes, got %d",
			width, height, width*height*4, len(pixels))
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	row := width * 4
	for y := 0; y < height; y++ {
		src := (height - 1 - y) * row
		copy(img.Pix[y*img.Stride:y*img.Stride+row], pixels[src:src+row])
	}
	return img, nil
}
