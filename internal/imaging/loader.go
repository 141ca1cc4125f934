package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/google/renameio/v2"
	pnm "github.com/jbuchbinder/gopnm"
)

// FrameExt is the extension of frames consumed and produced by the tool.
const FrameExt = ".pgm"

// ErrEmptyFrame is returned when a file decodes to an image with no pixels.
var ErrEmptyFrame = errors.New("frame has no pixels")

// IsFrameFile reports whether name carries the portable graymap extension,
// compared case-insensitively.
func IsFrameFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), FrameExt)
}

// LoadFrame decodes the file at path into an 8-bit grayscale frame.
//
// Any format registered with the image package is accepted; PGM, PPM and PBM
// decoders are registered by this package. Color images are converted to gray
// with the standard luminance weights.
//
// # Errors
//
//   - the file cannot be opened or decoded
//   - the decoded image is empty (wraps ErrEmptyFrame)
func LoadFrame(path string) (*image.Gray, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("failed to decode frame %s: %w", path, ErrEmptyFrame)
	}
	return ToGray(img), nil
}

// ToGray returns img as *image.Gray with its origin at (0,0). A gray image that
// already starts at the origin is returned as is.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// SaveFrame writes img to path as a binary PGM.
//
// The frame is encoded into a pending file next to path and atomically renamed
// over it once synced, so a failed write never leaves a truncated frame behind.
// The destination directory must exist.
func SaveFrame(path string, img *image.Gray) error {
	f, err := renameio.NewPendingFile(path,
		renameio.WithTempDir(filepath.Dir(path)),
		renameio.WithPermissions(0o644),
	)
	if err != nil {
		return fmt.Errorf("failed to create frame file: %w", err)
	}
	defer f.Cleanup()

	if err := pnm.Encode(f, img, pnm.PGM); err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	if err := f.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to move frame into place: %w", err)
	}
	return nil
}

// FrameCache provides thread-safe caching of decoded frames to avoid
// redundant disk reads.
//
// Frames are keyed by the exact path string passed to Load. Cached frames must
// be treated as read-only; use detection.RenderMarker to obtain a marked copy.
type FrameCache struct {
	mu     sync.RWMutex
	frames map[string]*image.Gray
}

// NewFrameCache creates an empty frame cache.
func NewFrameCache() *FrameCache {
	return &FrameCache{
		frames: make(map[string]*image.Gray),
	}
}

// Load returns the cached frame for path, decoding it with LoadFrame on a miss.
func (c *FrameCache) Load(path string) (*image.Gray, error) {
	c.mu.RLock()
	if img, ok := c.frames[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := LoadFrame(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.frames[path] = img
	c.mu.Unlock()

	return img, nil
}

// Evict removes a single frame from the cache. Unknown paths are ignored.
func (c *FrameCache) Evict(path string) {
	c.mu.Lock()
	delete(c.frames, path)
	c.mu.Unlock()
}

// Clear removes every cached frame.
func (c *FrameCache) Clear() {
	c.mu.Lock()
	c.frames = make(map[string]*image.Gray)
	c.mu.Unlock()
}

// Len returns the number of cached frames.
func (c *FrameCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.frames)
}

// FrameInfo contains metadata about a frame file.
type FrameInfo struct {
	// Width is the frame width in pixels.
	Width int `json:"width"`

	// Height is the frame height in pixels.
	Height int `json:"height"`

	// Format is "pgm" for portable graymaps, otherwise the lower-cased
	// extension without the dot.
	Format string `json:"format"`

	// FileSizeBytes is the size of the file on disk.
	FileSizeBytes int64 `json:"file_size_bytes"`

	// Candidates is the number of pixels above the detection threshold.
	Candidates int `json:"candidates"`
}

// LoadFrameInfo loads a frame through cache and describes it. When count is
// non-nil it fills FrameInfo.Candidates.
func LoadFrameInfo(cache *FrameCache, path string, count func(*image.Gray) int) (*FrameInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		format = "unknown"
	}

	info := &FrameInfo{
		Width:         img.Bounds().Dx(),
		Height:        img.Bounds().Dy(),
		Format:        format,
		FileSizeBytes: stat.Size(),
	}
	if count != nil {
		info.Candidates = count(img)
	}
	return info, nil
}
