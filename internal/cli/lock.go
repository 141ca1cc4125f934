package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Feras-dev/track-laser-pointer/internal/logger"
	"github.com/Feras-dev/track-laser-pointer/internal/pipeline"
)

func newLockCommand(a *app) *cobra.Command {
	var (
		det       detectionFlags
		mark      markerFlags
		workers   int
		onDecode  string
		onNoDet   string
		mkdir     bool
		outSubdir string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "lock <dir>",
		Short: "Mark the target in every frame of a directory",
		Long: `Process every .pgm file directly inside <dir> (subdirectories are not
visited) and write each marked frame under the same name to
<dir>/target_locked_frames/.

A frame that cannot be decoded is skipped unless --on-decode-failure=abort,
which stops the batch and exits with status 2. A frame without a target gets
no output unless --on-no-detection=copy. Interrupting the command stops it
before the next frame; frames already started are completed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *a.cfg
			if err := det.apply(cmd, &cfg); err != nil {
				return err
			}
			mark.apply(cmd, &cfg)

			flags := cmd.Flags()
			if flags.Changed("workers") {
				cfg.Workers = workers
			}
			if flags.Changed("mkdir") {
				cfg.CreateOutputDir = mkdir
			}
			if flags.Changed("output-subdir") {
				cfg.OutputSubdir = outSubdir
			}
			if flags.Changed("on-decode-failure") {
				p, err := pipeline.ParseDecodePolicy(onDecode)
				if err != nil {
					return err
				}
				cfg.OnDecodeFailure = p
			}
			if flags.Changed("on-no-detection") {
				p, err := pipeline.ParseNoDetectionPolicy(onNoDet)
				if err != nil {
					return err
				}
				cfg.OnNoDetection = p
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			marker, err := cfg.Marker()
			if err != nil {
				return err
			}

			runner := pipeline.New(cfg.Estimator(), marker, cfg.PipelineOptions(), logger.Logger)
			summary, err := runner.Run(cmd.Context(), args[0])
			if summary != nil {
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					if encErr := enc.Encode(summary); encErr != nil {
						return encErr
					}
				} else {
					printSummary(cmd.OutOrStdout(), summary)
				}
			}
			if err != nil {
				if pipeline.IsKind(err, pipeline.KindDecodeFailure) {
					return &StatusError{Code: ExitDecodeAbort, Err: err}
				}
				return err
			}
			return nil
		},
	}

	det.register(cmd)
	mark.register(cmd)
	flags := cmd.Flags()
	flags.IntVarP(&workers, "workers", "j", 1, "frames processed concurrently (LOCKON_WORKERS)")
	flags.StringVar(&onDecode, "on-decode-failure", string(pipeline.DecodeSkip), "skip or abort (LOCKON_ON_DECODE_FAILURE)")
	flags.StringVar(&onNoDet, "on-no-detection", string(pipeline.NoDetectionSkip), "skip or copy (LOCKON_ON_NO_DETECTION)")
	flags.BoolVar(&mkdir, "mkdir", false, "create the output directory when missing (LOCKON_CREATE_OUTPUT_DIR)")
	flags.StringVar(&outSubdir, "output-subdir", pipeline.DefaultOutputSubdir, "output directory name inside <dir> (LOCKON_OUTPUT_SUBDIR)")
	flags.BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func printSummary(w io.Writer, s *pipeline.Summary) {
	for _, r := range s.Results {
		switch r.Status {
		case pipeline.StatusLocked:
			fmt.Fprintf(w, "locked     %s  x=%d y=%d  -> %s\n", r.Name, r.Estimate.X, r.Estimate.Y, r.Output)
		case pipeline.StatusNoDetection:
			if r.Output != "" {
				fmt.Fprintf(w, "no target  %s  -> %s (unmarked)\n", r.Name, r.Output)
			} else {
				fmt.Fprintf(w, "no target  %s\n", r.Name)
			}
		case pipeline.StatusFailed:
			fmt.Fprintf(w, "failed     %s  %v\n", r.Name, r.Err)
		case pipeline.StatusHalted:
			fmt.Fprintf(w, "halted     %s\n", r.Name)
		case pipeline.StatusAborted:
			fmt.Fprintf(w, "aborted    %s\n", r.Name)
		}
	}
	fmt.Fprintf(w, "%d processed: %d locked, %d without target, %d failed, %d skipped\n",
		s.Processed, s.Locked, s.NoTarget, s.Failed, s.Skipped)
}
