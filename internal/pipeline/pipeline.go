package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"reelsmith/internal/audio"
	"reelsmith/internal/encode"
	"reelsmith/internal/imaging"
	"reelsmith/internal/logging"
	"reelsmith/internal/overlay"
	"reelsmith/internal/timeline"
)

// Scene is one unit of the render request: a caption shown over one image
// for a fixed duration.
type Scene struct {
	Caption  string
	Duration float64
}

// Request carries everything a single render needs. Image bytes are raw
// downloads; audio bytes are whatever the synthesizer produced.
type Request struct {
	Scenes []Scene
	// Images holds one encoded source image per scene, index-aligned.
	Images [][]byte
	// Audio is the raw narration track. Empty means a silent render.
	Audio []byte
	// Subtitle, when non-empty, is wrapped and drawn on every frame below
	// the caption band.
	Subtitle string
	// OutputPath is where the final file lands.
	OutputPath string
	// KeepWorkspace leaves intermediate files behind for debugging.
	KeepWorkspace bool
}

// Result reports a completed render.
type Result struct {
	Path     string
	Duration float64
	Warnings []string
	// BudgetMisses counts frames kept over the byte budget.
	BudgetMisses int
}

// Options assembles a Runner.
type Options struct {
	Width       int
	Height      int
	ByteBudget  int
	Ladder      []imaging.LadderLevel
	Parallelism int
	Overlay     *overlay.Renderer
	Conditioner *audio.Conditioner
	Encoder     encode.Encoder
	// WorkspaceFn creates the scratch directory for a run.
	WorkspaceFn func() (string, error)
	Logger      *slog.Logger
}

// Runner orchestrates a render: scene frames and narration are prepared
// concurrently, then handed to the encoder as one plan. Any stage failure
// aborts the run and the workspace is cleaned up either way.
type Runner struct {
	opts   Options
	logger *slog.Logger
}

// NewRunner validates wiring and builds a runner.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("pipeline: invalid frame %dx%d", opts.Width, opts.Height)
	}
	if opts.Overlay == nil {
		return nil, fmt.Errorf("pipeline: overlay renderer required")
	}
	if opts.Encoder == nil {
		return nil, fmt.Errorf("pipeline: encoder required")
	}
	if opts.WorkspaceFn == nil {
		return nil, fmt.Errorf("pipeline: workspace factory required")
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{opts: opts, logger: logger.With(logging.String(logging.FieldComponent, "pipeline"))}, nil
}

// Run executes the full render. The request's scene and image counts must
// match; narration is optional.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if len(req.Scenes) != len(req.Images) {
		return nil, fmt.Errorf("pipeline: %w: %d scenes, %d images", timeline.ErrLengthMismatch, len(req.Scenes), len(req.Images))
	}
	if len(req.Scenes) == 0 {
		return nil, fmt.Errorf("pipeline: empty request")
	}
	if req.OutputPath == "" {
		return nil, fmt.Errorf("pipeline: output path required")
	}

	workDir, err := r.opts.WorkspaceFn()
	if err != nil {
		return nil, fmt.Errorf("pipeline: create workspace: %w", err)
	}
	if !req.KeepWorkspace {
		defer func() {
			if err := os.RemoveAll(workDir); err != nil {
				r.logger.Warn("workspace cleanup failed", logging.String("dir", workDir), logging.Error(err))
			}
		}()
	}

	frames := make([]*imaging.Frame, len(req.Scenes))
	var conditioned *audio.Conditioned

	group, groupCtx := errgroup.WithContext(ctx)

	// Narration conditions in parallel with frame preparation.
	if len(req.Audio) > 0 {
		if r.opts.Conditioner == nil {
			return nil, fmt.Errorf("pipeline: audio supplied but no conditioner wired")
		}
		group.Go(func() error {
			rawPath := filepath.Join(workDir, "narration-raw")
			if err := os.WriteFile(rawPath, req.Audio, 0o644); err != nil {
				return fmt.Errorf("pipeline: stage narration: %w", err)
			}
			result, err := r.opts.Conditioner.Condition(groupCtx, rawPath, workDir)
			if err != nil {
				return err
			}
			conditioned = result
			return nil
		})
	}

	frameGroup, frameCtx := errgroup.WithContext(groupCtx)
	frameGroup.SetLimit(r.opts.Parallelism)
	for i := range req.Scenes {
		i := i
		frameGroup.Go(func() error {
			if err := frameCtx.Err(); err != nil {
				return err
			}
			frame, err := r.prepareFrame(req.Images[i], req.Scenes[i].Caption, req.Subtitle)
			if err != nil {
				return fmt.Errorf("scene %d: %w", i+1, err)
			}
			frames[i] = frame
			return nil
		})
	}
	group.Go(frameGroup.Wait)

	if err := group.Wait(); err != nil {
		return nil, err
	}

	durations := make([]float64, len(req.Scenes))
	for i, scene := range req.Scenes {
		durations[i] = scene.Duration
	}
	plan, err := timeline.Build(len(frames), durations)
	if err != nil {
		return nil, err
	}

	in := encode.Input{
		Frames:     frames,
		Timeline:   plan,
		WorkDir:    workDir,
		OutputPath: req.OutputPath,
	}
	if conditioned != nil {
		in.AudioPath = conditioned.Path
		in.AudioDuration = conditioned.Duration
	}

	r.logger.Info("encoding",
		logging.String("backend", r.opts.Encoder.Name()),
		logging.Int("scenes", len(req.Scenes)),
		logging.Float64("visual_seconds", plan.Total()))
	encoded, err := r.opts.Encoder.Encode(ctx, in)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Path:     encoded.Path,
		Duration: encoded.Duration,
		Warnings: encoded.Warnings,
	}
	for _, frame := range frames {
		if !frame.BudgetMet {
			result.BudgetMisses++
		}
	}
	if result.BudgetMisses > 0 {
		r.logger.Warn("frames kept over byte budget", logging.Int("count", result.BudgetMisses))
	}
	return result, nil
}

// prepareFrame runs one scene image through decode, crop, caption overlay
// and the compression ladder.
func (r *Runner) prepareFrame(data []byte, caption, subtitle string) (*imaging.Frame, error) {
	raster, err := imaging.Prepare(data, r.opts.Width, r.opts.Height)
	if err != nil {
		return nil, err
	}
	if err := r.opts.Overlay.Apply(raster, caption, subtitle); err != nil {
		return nil, err
	}
	return imaging.EncodeLadder(raster, imaging.Options{
		Width:      r.opts.Width,
		Height:     r.opts.Height,
		ByteBudget: r.opts.ByteBudget,
		Ladder:     r.opts.Ladder,
	})
}
