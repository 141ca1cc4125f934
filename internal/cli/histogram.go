package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Feras-dev/track-laser-pointer/internal/imaging"
)

func newHistogramCommand(a *app) *cobra.Command {
	var (
		from int
		plot string
	)

	cmd := &cobra.Command{
		Use:   "histogram <frame>",
		Short: "Show how many pixels sit at each near-saturation intensity level",
		Long: `Print the pixel count of every intensity level at or above --from, most
populated first. A laser spot shows up as the levels just above the detection
threshold; use this to pick --threshold for a camera.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if from < 0 || from > 255 {
				return fmt.Errorf("--from must be within 0..255 (got %d)", from)
			}

			img, err := imaging.LoadFrame(args[0])
			if err != nil {
				return err
			}
			h := imaging.NewHistogram(img)

			out := cmd.OutOrStdout()
			for _, l := range h.Levels(uint8(from)) {
				fmt.Fprintf(out, "intensity %3d: %d pixels\n", l.Level, l.Pixels)
			}
			fmt.Fprintf(out, "%d pixels above threshold %d\n", h.Above(a.cfg.Threshold), a.cfg.Threshold)

			if plot != "" {
				if err := h.SavePlot(plot); err != nil {
					return err
				}
				fmt.Fprintf(out, "plot written to %s\n", plot)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&from, "from", 240, "lowest intensity level to report")
	cmd.Flags().StringVar(&plot, "plot", "", "also write the full histogram as a PNG plot to this path")
	return cmd
}
