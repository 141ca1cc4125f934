package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Feras-dev/track-laser-pointer/internal/config"
	"github.com/Feras-dev/track-laser-pointer/internal/detection"
)

// detectionFlags are the estimator flags shared by every command that locates
// targets.
type detectionFlags struct {
	threshold int
	legacy    bool
}

func (f *detectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.threshold, "threshold", int(detection.DefaultThreshold),
		"candidate pixels must be strictly brighter than this level (LOCKON_THRESHOLD)")
	cmd.Flags().BoolVar(&f.legacy, "legacy-zero-mean", false,
		"drop row and column means of 0, reproducing old outputs (LOCKON_LEGACY_ZERO_MEAN)")
}

func (f *detectionFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("threshold") {
		if f.threshold < 0 || f.threshold > 255 {
			return fmt.Errorf("--threshold must be within 0..255 (got %d)", f.threshold)
		}
		cfg.Threshold = uint8(f.threshold)
	}
	if flags.Changed("legacy-zero-mean") {
		cfg.LegacyZeroMean = f.legacy
	}
	return nil
}

// markerFlags describe the crosshair.
type markerFlags struct {
	color      string
	halfLength int
	label      bool
}

func (f *markerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.color, "marker-color", "#FFFFFF",
		"crosshair color as hex, reduced to gray (LOCKON_MARKER_COLOR)")
	cmd.Flags().IntVar(&f.halfLength, "marker-half-length", detection.DefaultHalfLength,
		"length of each crosshair arm in pixels (LOCKON_MARKER_HALF_LENGTH)")
	cmd.Flags().BoolVar(&f.label, "label", false,
		"write the target coordinates next to the crosshair (LOCKON_MARKER_LABEL)")
}

func (f *markerFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("marker-color") {
		cfg.MarkerColor = f.color
	}
	if flags.Changed("marker-half-length") {
		cfg.MarkerHalfLength = f.halfLength
	}
	if flags.Changed("label") {
		cfg.MarkerLabel = f.label
	}
}
