// Package photos caches avatar photos on disk and hands out decoded images
// sized for the avatar atlas.
package photos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/Faultbox/vrc3d/internal/game/entity"
	"github.com/Faultbox/vrc3d/internal/logger"
)

var (
	// ErrUnsupportedType is returned when a download is not an image type we can store.
	ErrUnsupportedType = errors.New("unsupported photo content type")
	// ErrNoSource is returned for a cache miss without an image path.
	ErrNoSource = errors.New("photo has no source path")
	// ErrTooLarge is returned for downloads over the size cap.
	ErrTooLarge = errors.New("photo too large")
)

// maxPhotoBytes is the default download cap.
const maxPhotoBytes = 16 << 20

// Extensions tried on disk, in order.
var extensions = []string{"jpeg", "png", "webp", "bmp", "gif"}

var contentTypes = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/bmp":  "bmp",
	"image/gif":  "gif",
}

// Config configures a Cache.
type Config struct {
	// Dir holds <id>.<ext> files.
	Dir string
	// Size is the square edge every photo is scaled to.
	Size int
	// BaseURL resolves relative image paths.
	BaseURL string
	Client  *http.Client
	// MaxBytes caps one download; 16 MiB when zero.
	MaxBytes int64
}

// Cache resolves avatar photos from memory, then disk, then HTTP.
// Populated by the network side; the decoded image travels to the render
// loop attached to the avatar record.
type Cache struct {
	config   Config
	base     *url.URL
	maxBytes int64
	log      *zap.Logger

	mu     sync.Mutex
	images map[entity.ID]image.Image
}

// New creates the photo directory if needed.
func New(cfg Config) (*Cache, error) {
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("photo size %d must be positive", cfg.Size)
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("photo dir: %w", err)
	}

	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = maxPhotoBytes
	}

	c := &Cache{
		config:   cfg,
		maxBytes: cfg.MaxBytes,
		log:      logger.Named("photos"),
		images:   make(map[entity.ID]image.Image),
	}
	if cfg.BaseURL != "" {
		base, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("photo base url: %w", err)
		}
		c.base = base
	}
	return c, nil
}

// Path returns where the photo for id is stored with extension ext.
func (c *Cache) Path(id entity.ID, ext string) string {
	return filepath.Join(c.config.Dir, strconv.FormatInt(int64(id), 10)+"."+ext)
}

// Get returns the scaled photo for id, fetching imagePath on a miss.
func (c *Cache) Get(ctx context.Context, id entity.ID, imagePath string) (image.Image, error) {
	c.mu.Lock()
	img, ok := c.images[id]
	c.mu.Unlock()
	if ok {
		return img, nil
	}

	data, err := c.readDisk(id)
	if errors.Is(err, fs.ErrNotExist) {
		data, err = c.download(ctx, id, imagePath)
	}
	if err != nil {
		return nil, err
	}

	img, err = Decode(data, c.config.Size)
	if err != nil {
		return nil, fmt.Errorf("photo %d: %w", id, err)
	}

	c.mu.Lock()
	c.images[id] = img
	c.mu.Unlock()
	return img, nil
}

// Has reports whether id is already decoded in memory.
func (c *Cache) Has(id entity.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.images[id]
	return ok
}

func (c *Cache) readDisk(id entity.ID) ([]byte, error) {
	for _, ext := range extensions {
		data, err := os.ReadFile(c.Path(id, ext))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, fs.ErrNotExist
}

func (c *Cache) download(ctx context.Context, id entity.ID, imagePath string) ([]byte, error) {
	if imagePath == "" {
		return nil, fmt.Errorf("photo %d: %w", id, ErrNoSource)
	}
	target, err := c.resolve(imagePath)
	if err != nil {
		return nil, fmt.Errorf("photo %d: %w", id, err)
	}

	c.log.Info("fetching photo", zap.Int64("id", int64(id)), zap.String("url", target))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.config.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch photo %d: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch photo %d: %s", id, resp.Status)
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("photo %d content type: %w", id, ErrUnsupportedType)
	}
	ext, ok := contentTypes[mediaType]
	if !ok {
		return nil, fmt.Errorf("photo %d %q: %w", id, mediaType, ErrUnsupportedType)
	}

	// One byte past the cap tells a full-size photo from a cut-off one;
	// nothing truncated reaches the disk cache.
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read photo %d: %w", id, err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("photo %d over %d bytes: %w", id, c.maxBytes, ErrTooLarge)
	}
	if err := os.WriteFile(c.Path(id, ext), data, 0o644); err != nil {
		// The image is still usable this session.
		c.log.Warn("photo not cached on disk", zap.Int64("id", int64(id)), zap.Error(err))
	}
	return data, nil
}

func (c *Cache) resolve(imagePath string) (string, error) {
	u, err := url.Parse(imagePath)
	if err != nil {
		return "", err
	}
	if u.IsAbs() || c.base == nil {
		return u.String(), nil
	}
	return c.base.ResolveReference(u).String(), nil
}

// Decode decodes any registered image format and scales it to size x size.
func Decode(data []byte, size int) (image.Image, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return Resize(src, size), nil
}

// Resize scales src to a size x size NRGBA image.
func Resize(src image.Image, size int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
