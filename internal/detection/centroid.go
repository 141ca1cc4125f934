package detection

import (
	"errors"
	"fmt"
	"image"
)

// DefaultThreshold is the intensity a pixel must strictly exceed to count as
// part of the target.
const DefaultThreshold uint8 = 253

// ErrNoDetection is returned when a frame contains no pixel above the threshold
// on at least one axis.
var ErrNoDetection = errors.New("no target detected")

// Estimate is the center of the bright region found in a frame.
type Estimate struct {
	// X is the mean of the per-row candidate means.
	X int `json:"x"`

	// Y is the mean of the per-column candidate means.
	Y int `json:"y"`

	// Rows is the number of row means that contributed to X.
	Rows int `json:"rows"`

	// Cols is the number of column means that contributed to Y.
	Cols int `json:"cols"`
}

// Point returns the estimate as an image.Point.
func (e Estimate) Point() image.Point {
	return image.Pt(e.X, e.Y)
}

// Estimator computes the axis-decoupled mean-of-means centroid of the pixels
// above its threshold. An Estimator holds no per-frame state and is safe for
// concurrent use.
type Estimator struct {
	threshold    uint8
	dropZeroMean bool
}

// EstimatorOption configures an Estimator.
type EstimatorOption func(*Estimator)

// WithThreshold sets the intensity a candidate pixel must strictly exceed.
func WithThreshold(t uint8) EstimatorOption {
	return func(e *Estimator) {
		e.threshold = t
	}
}

// WithLegacyZeroMeanDrop discards row and column means equal to 0. Targets
// touching the left or top edge then lose those rows or columns, which biases
// the estimate away from the edge. Only use it to reproduce old outputs.
func WithLegacyZeroMeanDrop() EstimatorOption {
	return func(e *Estimator) {
		e.dropZeroMean = true
	}
}

// NewEstimator creates an estimator using DefaultThreshold unless overridden.
func NewEstimator(opts ...EstimatorOption) *Estimator {
	e := &Estimator{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// With returns a copy of e with opts applied on top of its settings.
func (e *Estimator) With(opts ...EstimatorOption) *Estimator {
	c := *e
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// Threshold returns the configured candidate threshold.
func (e *Estimator) Threshold() uint8 {
	return e.threshold
}

// Locate estimates the target center in img.
//
// The returned coordinates are in img's coordinate space. If no row or no
// column produced a mean, the error wraps ErrNoDetection and the Estimate is
// the zero value.
func (e *Estimator) Locate(img *image.Gray) (Estimate, error) {
	b := img.Bounds()
	if b.Empty() {
		return Estimate{}, fmt.Errorf("%w: empty frame", ErrNoDetection)
	}

	xSum, rows := e.scan(b.Dy(), b.Dx(), func(outer, inner int) uint8 {
		return img.Pix[outer*img.Stride+inner]
	})
	ySum, cols := e.scan(b.Dx(), b.Dy(), func(outer, inner int) uint8 {
		return img.Pix[inner*img.Stride+outer]
	})

	switch {
	case rows == 0 && cols == 0:
		return Estimate{}, ErrNoDetection
	case rows == 0:
		return Estimate{}, fmt.Errorf("%w on the horizontal axis", ErrNoDetection)
	case cols == 0:
		return Estimate{}, fmt.Errorf("%w on the vertical axis", ErrNoDetection)
	}

	return Estimate{
		X:    b.Min.X + xSum/rows,
		Y:    b.Min.Y + ySum/cols,
		Rows: rows,
		Cols: cols,
	}, nil
}

// scan walks outerLen lines of innerLen pixels each and returns the sum of the
// per-line candidate means together with how many lines contributed. Indices
// are relative to the frame origin.
func (e *Estimator) scan(outerLen, innerLen int, at func(outer, inner int) uint8) (sum, n int) {
	for o := 0; o < outerLen; o++ {
		var lineSum, count int
		for i := 0; i < innerLen; i++ {
			if at(o, i) > e.threshold {
				lineSum += i
				count++
			}
		}
		if count == 0 {
			continue
		}
		mean := lineSum / count
		if e.dropZeroMean && mean == 0 {
			continue
		}
		sum += mean
		n++
	}
	return sum, n
}

// CountCandidates returns how many pixels of img exceed threshold.
func CountCandidates(img *image.Gray, threshold uint8) int {
	b := img.Bounds()
	n := 0
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()]
		for _, v := range row {
			if v > threshold {
				n++
			}
		}
	}
	return n
}
