package pipeline

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a single frame could not be locked on.
type ErrorKind string

const (
	KindDecodeFailure ErrorKind = "decode_failure"
	KindNoDetection   ErrorKind = "no_detection"
	KindWriteFailure  ErrorKind = "write_failure"
)

// FrameError is the failure of one frame. It never describes the batch as a
// whole: the runner records it and moves on unless the abort policy applies.
type FrameError struct {
	Kind  ErrorKind `json:"kind"`
	Path  string    `json:"path"`
	Cause error     `json:"-"`
}

// Error implements the error interface
func (e *FrameError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Path, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Path)
}

// Unwrap returns the underlying error
func (e *FrameError) Unwrap() error {
	return e.Cause
}

// NewDecodeFailure reports a frame that could not be read or decoded.
func NewDecodeFailure(path string, cause error) *FrameError {
	return &FrameError{Kind: KindDecodeFailure, Path: path, Cause: cause}
}

// NewNoDetection reports a frame without any pixel above the threshold.
func NewNoDetection(path string, cause error) *FrameError {
	return &FrameError{Kind: KindNoDetection, Path: path, Cause: cause}
}

// NewWriteFailure reports an annotated frame that could not be written.
func NewWriteFailure(path string, cause error) *FrameError {
	return &FrameError{Kind: KindWriteFailure, Path: path, Cause: cause}
}

// IsKind checks whether err is, or wraps, a FrameError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var fe *FrameError
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}
