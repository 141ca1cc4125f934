package detection

import (
	"fmt"
	"image"
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Default marker geometry.
const (
	DefaultHalfLength = 80
	DefaultThickness  = 1
)

// Marker describes the crosshair drawn over a locked target.
type Marker struct {
	// HalfLength is how far each arm extends from the center, in pixels.
	HalfLength int

	// Thickness is the stroke width in pixels. Values below 1 are treated as 1.
	Thickness int

	// Intensity is the gray level of the strokes.
	Intensity uint8

	// Label draws the "x,y" coordinates next to the center when set.
	Label bool
}

// DefaultMarker returns an 80px, 1px thick, full intensity crosshair.
func DefaultMarker() Marker {
	return Marker{
		HalfLength: DefaultHalfLength,
		Thickness:  DefaultThickness,
		Intensity:  255,
	}
}

// ParseIntensity converts a hex colour such as "#FFFFFF" or "#7f7f7f" to the
// gray level used for the marker strokes.
func ParseIntensity(hex string) (uint8, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return 0, fmt.Errorf("invalid marker color %q: %w", hex, err)
	}
	return color.GrayModel.Convert(c.Clamped()).(color.Gray).Y, nil
}

// RenderMarker returns a copy of src with the marker drawn at center.
// src is not modified.
func RenderMarker(src *image.Gray, center image.Point, m Marker) *image.Gray {
	dst := &image.Gray{
		Pix:    make([]uint8, len(src.Pix)),
		Stride: src.Stride,
		Rect:   src.Rect,
	}
	copy(dst.Pix, src.Pix)
	DrawMarker(dst, center, m)
	return dst
}

// DrawMarker draws the crosshair on dst in place. Segments reaching past the
// frame edge are clipped.
func DrawMarker(dst *image.Gray, center image.Point, m Marker) {
	thickness := m.Thickness
	if thickness < 1 {
		thickness = 1
	}
	lo := -(thickness - 1) / 2
	hi := lo + thickness - 1

	cx, cy, l := center.X, center.Y, m.HalfLength
	for off := lo; off <= hi; off++ {
		drawLine(dst, cx+l, cy+off, cx-l, cy+off, m.Intensity)
		drawLine(dst, cx+off, cy+l, cx+off, cy-l, m.Intensity)
	}

	if m.Label {
		drawLabel(dst, center, m.Intensity)
	}
}

// drawLine rasterises the segment (x0,y0)-(x1,y1) with Xiaolin Wu coverage.
// Both endpoints are integer pixel centers and are drawn with full coverage.
func drawLine(dst *image.Gray, x0, y0, x1, y1 int, c uint8) {
	steep := absInt(y1-y0) > absInt(x1-x0)
	if steep {
		x0, y0 = y0, x0
		x1, y1 = y1, x1
	}
	if x0 > x1 {
		x0, x1 = x1, x0
		y0, y1 = y1, y0
	}

	gradient := 0.0
	if dx := x1 - x0; dx != 0 {
		gradient = float64(y1-y0) / float64(dx)
	}

	plot := func(x, y int, coverage float64) {
		if steep {
			x, y = y, x
		}
		blend(dst, x, y, c, coverage)
	}

	// Only the part of the major axis that crosses dst can touch a pixel.
	lo, hi := dst.Rect.Min.X, dst.Rect.Max.X-1
	if steep {
		lo, hi = dst.Rect.Min.Y, dst.Rect.Max.Y-1
	}
	start, end := max(x0, lo), min(x1, hi)

	intery := float64(y0) + gradient*float64(start-x0)
	for x := start; x <= end; x++ {
		base := math.Floor(intery)
		frac := intery - base
		plot(x, int(base), 1-frac)
		plot(x, int(base)+1, frac)
		intery += gradient
	}
}

// blend moves the pixel at (x, y) towards c by coverage. Points outside dst are
// ignored.
func blend(dst *image.Gray, x, y int, c uint8, coverage float64) {
	if coverage <= 0 || !image.Pt(x, y).In(dst.Rect) {
		return
	}
	i := dst.PixOffset(x, y)
	if coverage >= 1 {
		dst.Pix[i] = c
		return
	}
	cur := float64(dst.Pix[i])
	dst.Pix[i] = uint8(math.Round(cur + (float64(c)-cur)*coverage))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
