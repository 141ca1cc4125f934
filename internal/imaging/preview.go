package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// Preview is a PNG rendering of a frame, or of a window of it, for clients
// that cannot read portable graymaps.
type Preview struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Window returns the square of the given radius around center, clipped to
// bounds. A radius <= 0 selects the whole of bounds.
func Window(bounds image.Rectangle, center image.Point, radius int) image.Rectangle {
	if radius <= 0 {
		return bounds
	}
	r := image.Rect(center.X-radius, center.Y-radius, center.X+radius+1, center.Y+radius+1)
	return r.Intersect(bounds)
}

// EncodePreview encodes the window of img as base64 PNG, enlarged by scale.
//
// Enlarging uses nearest-neighbour sampling so that one-pixel marker lines
// stay crisp. A scale <= 1 keeps the original size.
func EncodePreview(img image.Image, window image.Rectangle, scale float64) (*Preview, error) {
	window = window.Intersect(img.Bounds())
	if window.Empty() {
		return nil, fmt.Errorf("preview window %v outside frame bounds %v", window, img.Bounds())
	}

	var out image.Image
	if window.Eq(img.Bounds()) {
		out = imaging.Clone(img)
	} else {
		out = imaging.Crop(img, window)
	}

	if scale > 1 {
		w := int(float64(out.Bounds().Dx()) * scale)
		h := int(float64(out.Bounds().Dy()) * scale)
		out = imaging.Resize(out, w, h, imaging.NearestNeighbor)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}

	return &Preview{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
