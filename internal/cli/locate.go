package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Feras-dev/track-laser-pointer/internal/imaging"
)

func newLocateCommand(a *app) *cobra.Command {
	var (
		det    detectionFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "locate <frame>",
		Short: "Print the target center of a single frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *a.cfg
			if err := det.apply(cmd, &cfg); err != nil {
				return err
			}

			img, err := imaging.LoadFrame(args[0])
			if err != nil {
				return err
			}
			est, err := cfg.Estimator().Locate(img)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(est)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "x=%d y=%d (rows=%d cols=%d)\n", est.X, est.Y, est.Rows, est.Cols)
			return nil
		},
	}

	det.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the estimate as JSON")
	return cmd
}
