// Package imaging provides frame input/output for the lock-on tool.
//
// Frames are 8-bit single channel images (*image.Gray) stored as portable
// graymaps. This package decodes them, converts anything else to gray, writes
// annotated frames back atomically and summarises intensity distributions.
//
// # Coordinate System
//
// Frames returned by LoadFrame always have their origin at (0,0):
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//
// # Thread Safety
//
// FrameCache is safe for concurrent use. LoadFrame, SaveFrame and NewHistogram
// are stateless and can be called concurrently on different frames. Frames
// handed out by the cache are shared and must not be modified.
//
// # Error Handling
//
// Functions return errors for:
//   - File I/O failures while loading or saving
//   - Files that do not decode to a non-empty image (ErrEmptyFrame)
//   - Encoding failures during output
package imaging
