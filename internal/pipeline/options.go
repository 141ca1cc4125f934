package pipeline

import (
	"fmt"
	"strings"
)

// DefaultOutputSubdir is the directory, relative to the input directory, that
// receives annotated frames.
const DefaultOutputSubdir = "target_locked_frames"

// DecodePolicy decides what happens to the batch when a frame cannot be decoded.
type DecodePolicy string

const (
	// DecodeSkip logs the failure and continues with the next frame.
	DecodeSkip DecodePolicy = "skip"
	// DecodeAbort stops the batch at the first undecodable frame.
	DecodeAbort DecodePolicy = "abort"
)

// NoDetectionPolicy decides what is written for a frame without a target.
type NoDetectionPolicy string

const (
	// NoDetectionSkip writes nothing for the frame.
	NoDetectionSkip NoDetectionPolicy = "skip"
	// NoDetectionCopy writes the unmarked source frame.
	NoDetectionCopy NoDetectionPolicy = "copy"
)

// ParseDecodePolicy parses "skip" or "abort", case-insensitively.
func ParseDecodePolicy(s string) (DecodePolicy, error) {
	switch p := DecodePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case DecodeSkip, DecodeAbort:
		return p, nil
	}
	return "", fmt.Errorf("invalid decode failure policy %q (want skip or abort)", s)
}

// ParseNoDetectionPolicy parses "skip" or "copy", case-insensitively.
func ParseNoDetectionPolicy(s string) (NoDetectionPolicy, error) {
	switch p := NoDetectionPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case NoDetectionSkip, NoDetectionCopy:
		return p, nil
	}
	return "", fmt.Errorf("invalid no-detection policy %q (want skip or copy)", s)
}

// Options configures a Runner.
type Options struct {
	// OutputSubdir is joined to the input directory to form the output
	// directory.
	OutputSubdir string

	OnDecodeFailure DecodePolicy
	OnNoDetection   NoDetectionPolicy

	// Workers is the number of frames processed concurrently. Values below 2
	// process frames one at a time in name order.
	Workers int

	// CreateOutputDir creates the output directory when it is missing.
	// Without it a missing directory turns every write into a write failure.
	CreateOutputDir bool
}

// DefaultOptions returns the sequential, skip-everything configuration.
func DefaultOptions() Options {
	return Options{
		OutputSubdir:    DefaultOutputSubdir,
		OnDecodeFailure: DecodeSkip,
		OnNoDetection:   NoDetectionSkip,
		Workers:         1,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.OutputSubdir == "" {
		o.OutputSubdir = d.OutputSubdir
	}
	if o.OnDecodeFailure == "" {
		o.OnDecodeFailure = d.OnDecodeFailure
	}
	if o.OnNoDetection == "" {
		o.OnNoDetection = d.OnNoDetection
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	return o
}
