package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder

	"github.com/slidetools/slidekit/internal/cache"
)

// DefaultCacheCapacity bounds the decoded-page cache when no capacity is
// configured. Slide pages decode to multi-megabyte pixel buffers, so the
// bound is deliberately small.
const DefaultCacheCapacity = 20

// ImageCache caches decoded images with LRU eviction so repeated page renders
// and OCR passes do not re-read and re-decode the same file.
//
// Entries are keyed by absolute path plus file modification time: rewriting a
// file on disk naturally invalidates its cached pixels. Capacity is fixed at
// construction. The cache is safe for concurrent use; decoding happens
// outside the internal lock, so a slow decode never stalls other callers.
type ImageCache struct {
	lru *cache.LRU[string, image.Image]
	log zerolog.Logger
}

// NewImageCache creates a cache holding at most capacity decoded images.
// A capacity below 1 selects DefaultCacheCapacity.
func NewImageCache(capacity int, log zerolog.Logger) *ImageCache {
	if capacity < 1 {
		capacity = DefaultCacheCapacity
	}
	lru := cache.NewLRU[string, image.Image](capacity)
	lru.SetLogger(log)
	return &ImageCache{lru: lru, log: log}
}

// CacheKey builds the cache key for an image file: absolute path plus
// modification time. It fails if the file cannot be stat'd.
func CacheKey(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", abs, err)
	}
	return abs + "|" + strconv.FormatInt(info.ModTime().UnixNano(), 10), nil
}

// Load returns the decoded image for path, from cache when the file has not
// changed since it was cached, otherwise decoding from disk and caching the
// result. Supported formats: PNG, JPEG, GIF, BMP, TIFF, WebP.
func (c *ImageCache) Load(path string) (image.Image, error) {
	key, err := CacheKey(path)
	if err != nil {
		return nil, err
	}

	if img, ok := c.lru.Get(key); ok {
		c.log.Debug().Str("path", path).Msg("image cache hit")
		return img, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	c.lru.Put(key, img)
	c.log.Debug().Str("path", path).Msg("image decoded and cached")
	return img, nil
}

// Get returns the cached image for key, refreshing its recency on a hit.
func (c *ImageCache) Get(key string) (image.Image, bool) {
	return c.lru.Get(key)
}

// Put caches img under key, evicting the least-recently-used entry if the
// cache is full.
func (c *ImageCache) Put(key string, img image.Image) {
	c.lru.Put(key, img)
}

// Remove evicts the entry for key, if present.
func (c *ImageCache) Remove(key string) bool {
	return c.lru.Remove(key)
}

// Clear drops all cached images, freeing their pixel buffers for collection.
func (c *ImageCache) Clear() {
	n := c.lru.Len()
	c.lru.Clear()
	c.log.Info().Int("entries", n).Msg("image cache cleared")
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	return c.lru.Len()
}

// Capacity returns the fixed capacity set at construction.
func (c *ImageCache) Capacity() int {
	return c.lru.Capacity()
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format"`
	ColorDepth    string `json:"color_depth"`
	HasAlpha      bool   `json:"has_alpha"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// LoadImageInfo loads an image through the cache and returns its metadata:
// dimensions, format (by extension), color depth, alpha presence, file size.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	switch filepath.Ext(path) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	case ".bmp":
		format = "bmp"
	case ".tif", ".tiff":
		format = "tiff"
	case ".webp":
		format = "webp"
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

	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		ColorDepth:    colorDepth,
		HasAlpha:      hasAlpha,
		FileSizeBytes: stat.Size(),
	}, nil
}

// GetDimensions returns just the width and height of an image, loading it
// through the cache if needed.
func GetDimensions(cache *ImageCache, path string) (width, height int, err error) {
	img, err := cache.Load(path)
	if err != nil {
		return 0, 0, err
	}
	bounds := img.Bounds()
	return bounds.Dx(), bounds.Dy(), nil
}
