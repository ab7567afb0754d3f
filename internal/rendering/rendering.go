package rendering

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"reelsmith/internal/assets"
	"reelsmith/internal/audio"
	"reelsmith/internal/config"
	"reelsmith/internal/encode"
	"reelsmith/internal/fileutil"
	"reelsmith/internal/imaging"
	"reelsmith/internal/logging"
	"reelsmith/internal/overlay"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/services/ffmpeg"
	"reelsmith/internal/stage"
)

// Renderer drives the render pipeline for gathered jobs.
type Renderer struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	runner *pipeline.Runner
}

// NewRenderer constructs the rendering stage handler from configuration.
func NewRenderer(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Renderer, error) {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "rendering"))
	}
	runner, err := NewRunner(cfg, stageLogger)
	if err != nil {
		return nil, err
	}
	return &Renderer{store: store, cfg: cfg, logger: stageLogger, runner: runner}, nil
}

// NewRunner assembles the render pipeline from configuration. It is also
// used by the CLI for one-shot renders outside the queue.
func NewRunner(cfg *config.Config, logger *slog.Logger) (*pipeline.Runner, error) {
	renderer, err := overlay.NewRenderer(cfg.Video.Width, cfg.Video.Height, overlay.Options{
		CaptionFontSize:  cfg.Video.CaptionFontSize,
		SubtitleFontSize: cfg.Video.SubtitleFontSize,
		FontPath:         cfg.Video.FontPath,
	})
	if err != nil {
		return nil, err
	}

	cli := ffmpeg.NewCLI(
		ffmpeg.WithFFmpegBinary(cfg.FFmpegBinary()),
		ffmpeg.WithFFprobeBinary(cfg.FFprobeBinary()),
	)
	encoder, err := encode.New(cfg.Video.Backend, cli, encode.OutputSpec{
		Width:              cfg.Video.Width,
		Height:             cfg.Video.Height,
		FPS:                cfg.Video.FPS,
		Preset:             cfg.Video.Preset,
		CRF:                cfg.Video.CRF,
		MemoryCeilingBytes: cfg.Video.MemoryCeilingBytes,
	})
	if err != nil {
		return nil, err
	}

	ladder := make([]imaging.LadderLevel, 0, len(cfg.Video.Ladder))
	for _, level := range cfg.Video.Ladder {
		ladder = append(ladder, imaging.LadderLevel{MaxWidth: level.MaxWidth, Quality: level.Quality})
	}

	parallelism := cfg.Video.Parallelism
	if cfg.Video.Backend == "piped" {
		// The piped backend already holds every unique frame in memory, so
		// frame preparation stays sequential to keep the ceiling honest.
		parallelism = 1
	}

	runner, err := pipeline.NewRunner(pipeline.Options{
		Width:       cfg.Video.Width,
		Height:      cfg.Video.Height,
		ByteBudget:  cfg.Video.FrameSizeBudget,
		Ladder:      ladder,
		Parallelism: parallelism,
		Overlay:     renderer,
		Conditioner: audio.NewConditioner(cli, audio.Profile{
			Codec:      cfg.Audio.Codec,
			Bitrate:    cfg.Audio.Bitrate,
			SampleRate: cfg.Audio.SampleRate,
			Channels:   cfg.Audio.Channels,
		}),
		Encoder: encoder,
		WorkspaceFn: func() (string, error) {
			return fileutil.NewWorkspace(cfg.Paths.StagingDir, uuid.NewString())
		},
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	return runner, nil
}

// NewRendererWithRunner allows injecting the pipeline runner (used in tests).
func NewRendererWithRunner(cfg *config.Config, store *queue.Store, logger *slog.Logger, runner *pipeline.Runner) *Renderer {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "rendering"))
	}
	return &Renderer{store: store, cfg: cfg, logger: stageLogger, runner: runner}
}

func (r *Renderer) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, r.logger)
	if job.ProgressStage == "" {
		job.ProgressStage = "Rendering"
	}
	job.ProgressMessage = "Rendering video"
	job.ProgressPercent = 0
	job.ErrorMessage = ""

	if strings.TrimSpace(job.AssetDir) == "" {
		return services.Wrap(
			services.ErrValidation, "rendering", "validate inputs",
			"Job has no asset directory; rerun gathering", nil)
	}
	if _, err := os.Stat(job.AssetDir); err != nil {
		return services.Wrap(
			services.ErrValidation, "rendering", "validate inputs",
			"Asset directory is missing; rerun gathering", err)
	}
	logger.Info("starting render", logging.String("asset_dir", job.AssetDir))
	return nil
}

func (r *Renderer) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, r.logger)
	parsed, err := stage.ParseScript(job.ScriptJSON)
	if err != nil {
		return err
	}
	if len(parsed.Scenes) == 0 {
		return services.Wrap(
			services.ErrValidation, "rendering", "validate inputs",
			"Job has no scripted scenes; rerun scripting", nil)
	}

	req := pipeline.Request{
		OutputPath: filepath.Join(r.cfg.Paths.StagingDir, "render-"+job.RunID+".mp4"),
	}
	for i, scene := range parsed.Scenes {
		data, err := os.ReadFile(filepath.Join(job.AssetDir, assets.SceneImageFile(i)))
		if err != nil {
			return services.Wrap(
				services.ErrValidation, "rendering", "load assets",
				fmt.Sprintf("Scene %d image is missing from the asset directory; rerun gathering", i+1), err)
		}
		req.Scenes = append(req.Scenes, pipeline.Scene{Caption: scene.Caption, Duration: scene.Duration})
		req.Images = append(req.Images, data)
	}
	if narration, err := os.ReadFile(filepath.Join(job.AssetDir, assets.NarrationFile)); err == nil {
		req.Audio = narration
	} else {
		logger.Warn("narration missing, rendering silent video", logging.Error(err))
	}
	if r.cfg.Video.Subtitles {
		req.Subtitle = parsed.Narration
	}

	result, err := r.runner.Run(ctx, req)
	if err != nil {
		return wrapRenderFailure(err)
	}

	job.OutputFile = result.Path
	job.Status = queue.StatusRendered
	job.ProgressPercent = 100
	job.ProgressMessage = fmt.Sprintf("Rendered %.1fs video", result.Duration)
	if result.BudgetMisses > 0 {
		job.ReviewReason = fmt.Sprintf("%d frames exceeded the size budget", result.BudgetMisses)
	}
	for _, warning := range result.Warnings {
		logger.Warn("render warning", logging.String("detail", warning))
	}
	logger.Info("render complete",
		logging.String("output", result.Path),
		logging.Float64("duration_seconds", result.Duration))
	return nil
}

// wrapRenderFailure maps pipeline failure kinds onto the service error
// markers the workflow routes on: deterministic input problems go to review,
// everything else is retried as a tool failure.
func wrapRenderFailure(err error) error {
	kind := pipeline.Classify(err)
	switch kind {
	case pipeline.KindCanceled:
		return err
	case pipeline.KindDecode, pipeline.KindLengthMismatch, pipeline.KindAudioDecode:
		return services.Wrap(
			services.ErrValidation, "rendering", "render video",
			fmt.Sprintf("Render input rejected (%s); regenerate assets", kind), err)
	case pipeline.KindResourceExhausted:
		return services.Wrap(
			services.ErrValidation, "rendering", "render video",
			"Render exceeded the memory ceiling; lower resolution or switch to the exec backend", err)
	default:
		return services.Wrap(
			services.ErrExternalTool, "rendering", "render video",
			fmt.Sprintf("Render failed (%s)", kind), err)
	}
}

func (r *Renderer) HealthCheck(ctx context.Context) stage.Health {
	if r.cfg.Video.Backend == "preview" {
		return stage.Healthy("rendering")
	}
	if _, err := exec.LookPath(r.cfg.FFmpegBinary()); err != nil {
		return stage.Unhealthy("rendering", fmt.Sprintf("%s not found in PATH", r.cfg.FFmpegBinary()))
	}
	return stage.Healthy("rendering")
}
