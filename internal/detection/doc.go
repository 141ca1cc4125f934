// Package detection locates a saturated laser spot in a grayscale frame and
// marks it with a crosshair.
//
// # Centroid Estimation
//
// The estimator uses an axis-decoupled mean-of-means centroid rather than a
// weighted 2D moment:
//
//  1. Row scan: for every row, the column indices of candidate pixels
//     (intensity strictly above the threshold) are averaged with integer
//     division. Rows without candidates contribute nothing. The X coordinate
//     is the integer mean of those per-row means.
//  2. Column scan: the same reduction over columns yields Y.
//
// Integer truncation is applied at every step, so results are the floor of
// the true means. A frame without candidates yields ErrNoDetection; no
// coordinate is ever reported for it.
//
// # Zero Means
//
// By default a row or column whose mean is exactly 0 (a candidate at the
// left or top edge) is kept. WithLegacyZeroMeanDrop restores the older
// behaviour of discarding such means, which biases targets touching
// coordinate 0 and can leave one axis undetected.
//
// # Marker
//
// DrawMarker and RenderMarker draw two perpendicular segments of Marker.HalfLength
// pixels either side of the center. Lines are antialiased with Xiaolin Wu
// coverage; axis-aligned segments on integer coordinates receive full coverage
// and are therefore solid. Pixels outside the frame are clipped silently.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
package detection
