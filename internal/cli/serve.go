package cli

import (
	"github.com/spf13/cobra"

	"github.com/Feras-dev/track-laser-pointer/internal/logger"
	"github.com/Feras-dev/track-laser-pointer/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the lock-on tools over MCP (JSON-RPC on stdin/stdout)",
		Long: `Run an MCP server on stdin/stdout exposing frame_info,
frame_intensity_histogram, frame_locate_target, frame_lock_on_target and
batch_lock_on_target. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			marker, err := a.cfg.Marker()
			if err != nil {
				return err
			}

			logger.WithField("version", a.info.Version).Debug("starting MCP server")
			srv := server.New(
				server.WithEstimator(a.cfg.Estimator()),
				server.WithMarker(marker),
				server.WithBatchOptions(a.cfg.PipelineOptions()),
				server.WithVersion(a.info.Version),
			)
			return srv.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
