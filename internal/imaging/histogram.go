package imaging

import (
	"fmt"
	"image"
	"sort"

	"github.com/anthonynsimon/bild/histogram"
	"github.com/anthonynsimon/bild/imgio"
)

// Histogram counts how many pixels of a frame sit at each of the 256
// intensity levels. It is used to choose a detection threshold: a laser spot
// shows up as a spike at the top of the range.
type Histogram struct {
	h histogram.Histogram
}

// LevelCount is the number of pixels at one intensity level.
type LevelCount struct {
	Level  int `json:"level"`
	Pixels int `json:"pixels"`
}

// NewHistogram builds the intensity histogram of img.
func NewHistogram(img *image.Gray) *Histogram {
	// Gray pixels expand to R == G == B, so any color channel is the
	// intensity histogram.
	rgba := histogram.NewRGBAHistogram(img)
	return &Histogram{h: rgba.R}
}

// Count returns the number of pixels at level.
func (h *Histogram) Count(level uint8) int {
	return h.h.Bins[level]
}

// Above returns the number of pixels strictly brighter than level.
func (h *Histogram) Above(level uint8) int {
	n := 0
	for l := int(level) + 1; l < len(h.h.Bins); l++ {
		n += h.h.Bins[l]
	}
	return n
}

// Levels returns the non-empty levels at or above from, ordered by pixel count
// (most populated first, brighter level first on ties).
func (h *Histogram) Levels(from uint8) []LevelCount {
	var levels []LevelCount
	for l := int(from); l < len(h.h.Bins); l++ {
		if h.h.Bins[l] > 0 {
			levels = append(levels, LevelCount{Level: l, Pixels: h.h.Bins[l]})
		}
	}
	sort.SliceStable(levels, func(i, j int) bool {
		if levels[i].Pixels != levels[j].Pixels {
			return levels[i].Pixels > levels[j].Pixels
		}
		return levels[i].Level > levels[j].Level
	})
	return levels
}

// SavePlot writes a bar plot of the histogram to path as PNG.
func (h *Histogram) SavePlot(path string) error {
	if err := imgio.Save(path, h.h.Image(), imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("failed to save histogram plot: %w", err)
	}
	return nil
}
