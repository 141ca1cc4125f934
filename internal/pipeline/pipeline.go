// Package pipeline runs the lock-on over every frame of a directory.
//
// Frames are the files directly inside the input directory whose extension is
// .pgm (any case). Each one is decoded, its target located and marked, and the
// result written under the same name into the output subdirectory. A failure
// is always scoped to its frame; only the abort policy lets one frame stop the
// batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Feras-dev/track-laser-pointer/internal/detection"
	"github.com/Feras-dev/track-laser-pointer/internal/imaging"
)

// Status is the outcome of one frame.
type Status string

const (
	StatusLocked      Status = "locked"
	StatusNoDetection Status = "no_detection"
	StatusFailed      Status = "failed"
	// StatusHalted marks a frame that was never started because the run was
	// cancelled.
	StatusHalted Status = "halted"
	// StatusAborted marks a frame that was never completed because an earlier
	// decode failure stopped the run under the abort policy.
	StatusAborted Status = "aborted"
)

// FrameResult describes what happened to one frame.
type FrameResult struct {
	Name   string `json:"name"`
	Input  string `json:"input"`
	Output string `json:"output,omitempty"`
	Status Status `json:"status"`

	// Estimate is set when the target was located.
	Estimate *detection.Estimate `json:"estimate,omitempty"`

	// Err is a *FrameError for failed and untargeted frames, the context error
	// for halted ones, or the aborting *FrameError for aborted ones.
	Err error `json:"-"`
}

// Summary aggregates a batch run. Results are in frame name order.
type Summary struct {
	Dir       string        `json:"dir"`
	OutputDir string        `json:"output_dir"`
	Processed int           `json:"processed"`
	Locked    int           `json:"locked"`
	NoTarget  int           `json:"no_detection"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Halted    bool          `json:"halted"`
	Aborted   int           `json:"aborted"`
	Results   []FrameResult `json:"results"`
}

// Runner locks on to the frames of a directory. A Runner holds no per-frame
// state and can serve concurrent runs.
type Runner struct {
	est    *detection.Estimator
	marker detection.Marker
	opts   Options
	log    logrus.FieldLogger
}

// New creates a Runner. A nil log discards pipeline logging.
func New(est *detection.Estimator, marker detection.Marker, opts Options, log logrus.FieldLogger) *Runner {
	if est == nil {
		est = detection.NewEstimator()
	}
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	return &Runner{
		est:    est,
		marker: marker,
		opts:   opts.withDefaults(),
		log:    log,
	}
}

// Options returns the effective options of the runner.
func (r *Runner) Options() Options {
	return r.opts
}

// Run processes every frame directly inside dir.
//
// The returned error is non-nil only when dir cannot be listed, the output
// directory cannot be created, or a frame fails to decode under the abort
// policy (in which case it is that frame's *FrameError). A cancelled ctx stops
// the run before the next frame is loaded; frames already in flight complete
// and Summary.Halted is set. Frames left over by an abort are reported as
// StatusAborted and counted in Summary.Aborted instead.
func (r *Runner) Run(ctx context.Context, dir string) (*Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list input directory: %w", err)
	}

	outDir := filepath.Join(dir, r.opts.OutputSubdir)
	summary := &Summary{Dir: dir, OutputDir: outDir}

	var frames []string
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case entry.IsDir() && name == r.opts.OutputSubdir:
			// The output directory is expected to live here.
		case entry.IsDir():
			r.log.WithField("entry", name).Info("skipping directory")
			summary.Skipped++
		case !imaging.IsFrameFile(name):
			r.log.WithField("entry", name).Info("skipping non-frame file")
			summary.Skipped++
		default:
			frames = append(frames, name)
		}
	}

	if r.opts.CreateOutputDir && len(frames) > 0 {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return summary, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	r.log.WithFields(logrus.Fields{
		"dir":     dir,
		"frames":  len(frames),
		"workers": r.opts.Workers,
	}).Info("starting lock-on batch")

	results := make([]FrameResult, len(frames))
	for i, name := range frames {
		results[i] = FrameResult{
			Name:   name,
			Input:  filepath.Join(dir, name),
			Status: StatusHalted,
		}
	}

	var runErr error
	if r.opts.Workers > 1 {
		runErr = r.runParallel(ctx, outDir, results)
	} else {
		runErr = r.runSequential(ctx, outDir, results)
	}
	if runErr != nil {
		// The abort also cancels the errgroup context, so frames it stopped
		// come back halted.
		for i := range results {
			if results[i].Status == StatusHalted {
				results[i].Status = StatusAborted
				results[i].Err = runErr
			}
		}
	}

	for _, res := range results {
		switch res.Status {
		case StatusLocked:
			summary.Locked++
		case StatusNoDetection:
			summary.NoTarget++
		case StatusFailed:
			summary.Failed++
		case StatusHalted:
			summary.Halted = true
			continue
		case StatusAborted:
			summary.Aborted++
			continue
		}
		summary.Processed++
	}
	summary.Results = results

	entry := r.log.WithFields(logrus.Fields{
		"processed":    summary.Processed,
		"locked":       summary.Locked,
		"no_detection": summary.NoTarget,
		"failed":       summary.Failed,
		"skipped":      summary.Skipped,
	})
	switch {
	case runErr != nil:
		entry.WithError(runErr).WithField("aborted", summary.Aborted).Error("lock-on batch aborted")
	case summary.Halted:
		entry.Warn("lock-on batch halted")
	default:
		entry.Info("lock-on batch finished")
	}

	return summary, runErr
}

func (r *Runner) runSequential(ctx context.Context, outDir string, results []FrameResult) error {
	for i := range results {
		if ctx.Err() != nil {
			return nil
		}
		results[i] = r.ProcessFrame(ctx, results[i].Input, filepath.Join(outDir, results[i].Name))
		if err := r.abortErr(results[i]); err != nil {
			return err
		}
	}
	return nil
}

// runParallel fans frames out over an errgroup. Each goroutine owns exactly
// one slot of results.
func (r *Runner) runParallel(ctx context.Context, outDir string, results []FrameResult) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	for i := range results {
		if gctx.Err() != nil {
			break
		}
		in, out := results[i].Input, filepath.Join(outDir, results[i].Name)
		g.Go(func() error {
			res := r.ProcessFrame(gctx, in, out)
			results[i] = res
			return r.abortErr(res)
		})
	}
	return g.Wait()
}

func (r *Runner) abortErr(res FrameResult) error {
	if r.opts.OnDecodeFailure == DecodeAbort && IsKind(res.Err, KindDecodeFailure) {
		return res.Err
	}
	return nil
}

// ProcessFrame locks on to the frame at in and writes the marked frame to out.
//
// The frame is not touched when ctx is already done; the result then carries
// StatusHalted. Once loading has started the frame runs to completion.
func (r *Runner) ProcessFrame(ctx context.Context, in, out string) FrameResult {
	res := FrameResult{Name: filepath.Base(in), Input: in}
	log := r.log.WithField("frame", res.Name)

	if err := ctx.Err(); err != nil {
		res.Status = StatusHalted
		res.Err = err
		return res
	}

	img, err := imaging.LoadFrame(in)
	if err != nil {
		res.Status = StatusFailed
		res.Err = NewDecodeFailure(in, err)
		log.WithError(err).Error("failed to decode frame")
		return res
	}

	est, err := r.est.Locate(img)
	if errors.Is(err, detection.ErrNoDetection) {
		res.Status = StatusNoDetection
		res.Err = NewNoDetection(in, err)
		if r.opts.OnNoDetection != NoDetectionCopy {
			log.Warn("no target detected, frame skipped")
			return res
		}
		if err := imaging.SaveFrame(out, img); err != nil {
			res.Status = StatusFailed
			res.Err = NewWriteFailure(out, err)
			log.WithError(err).Error("failed to write unmarked frame")
			return res
		}
		res.Output = out
		log.Warn("no target detected, frame copied unmarked")
		return res
	}
	if err != nil {
		res.Status = StatusFailed
		res.Err = NewDecodeFailure(in, err)
		log.WithError(err).Error("failed to locate target")
		return res
	}

	marked := detection.RenderMarker(img, est.Point(), r.marker)
	if err := imaging.SaveFrame(out, marked); err != nil {
		res.Status = StatusFailed
		res.Err = NewWriteFailure(out, err)
		log.WithError(err).Error("failed to write marked frame")
		return res
	}

	res.Status = StatusLocked
	res.Output = out
	res.Estimate = &est
	log.WithFields(logrus.Fields{"x": est.X, "y": est.Y}).Info("target locked")
	return res
}
