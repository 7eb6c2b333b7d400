package imaging

import (
	"fmt"
	"image"
	"os"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// DefaultCacheSize is the number of decoded images an ImageCache keeps
// when NewImageCache is called without a size.
const DefaultCacheSize = 16

// ImageCache holds decoded images keyed by file path.
//
// The cache is bounded: once it holds its maximum number of images, loading
// a new path evicts the image that was loaded first. Images are decoded with
// EXIF auto-orientation so that region coordinates match what a viewer shows.
//
// ImageCache is safe for concurrent use.
type ImageCache struct {
	mu     sync.RWMutex
	limit  int
	images map[string]image.Image
	order  []string
}

// NewImageCache creates an empty cache holding at most size images. A size
// of zero or less selects DefaultCacheSize.
func NewImageCache(size ...int) *ImageCache {
	limit := DefaultCacheSize
	if len(size) > 0 && size[0] > 0 {
		limit = size[0]
	}
	return &ImageCache{
		limit:  limit,
		images: make(map[string]image.Image),
	}
}

// Load returns the decoded image at path, reading it from disk on the first
// request.
//
// Supported formats are those of github.com/disintegration/imaging: PNG,
// JPEG, GIF, TIFF and BMP.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// another caller may have raced us here
	if cached, ok := c.images[path]; ok {
		return cached, nil
	}
	for len(c.order) >= c.limit {
		delete(c.images, c.order[0])
		c.order = c.order[1:]
	}
	c.images[path] = img
	c.order = append(c.order, path)
	return img, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear drops every cached image.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.order = nil
	c.mu.Unlock()
}

// Evict drops the image cached for path, if any.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.images[path]; !ok {
		return
	}
	delete(c.images, path)
	for i, p := range c.order {
		if p == path {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// ImageInfo describes an image file and its decoded pixel data.
type ImageInfo struct {
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format"`      // lower case name from the file extension, or "unknown"
	ColorDepth    string `json:"color_depth"` // "8-bit" or "16-bit"
	HasAlpha      bool   `json:"has_alpha"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// LoadImageInfo loads the image at path through cache and reports its
// dimensions, format and colour model.
//
// Width and Height are those of the auto-oriented image, so a portrait JPEG
// stored sideways reports its upright size.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	if f, err := imaging.FormatFromFilename(path); err == nil {
		format = strings.ToLower(f.String())
	}

	hasAlpha := false
	colorDepth := "8-bit"
	switch img.(type) {
	case *image.RGBA, *image.NRGBA:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	}

	bounds := img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		ColorDepth:    colorDepth,
		HasAlpha:      hasAlpha,
		FileSizeBytes: stat.Size(),
	}, nil
}

// DimensionsResult is the pixel size of an image.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetDimensions returns the size of the image at path, loading it through
// cache.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	return &DimensionsResult{Width: bounds.Dx(), Height: bounds.Dy()}, nil
}
