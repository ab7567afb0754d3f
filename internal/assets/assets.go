package assets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/services/images"
	"reelsmith/internal/services/tts"
	"reelsmith/internal/stage"
)

// NarrationFile is the raw narration filename inside a job's asset directory.
const NarrationFile = "narration-raw"

// SceneImageFile names the downloaded source image for a scene index.
func SceneImageFile(index int) string {
	return fmt.Sprintf("scene-%02d.jpg", index)
}

// Searcher finds one usable image for a keyword query.
type Searcher interface {
	Search(ctx context.Context, query string) (images.Result, error)
}

// Fetcher downloads image bytes.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Synthesizer produces narration audio from text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Gatherer downloads scene images and synthesizes narration for a scripted
// job, fanning both out concurrently.
type Gatherer struct {
	store       *queue.Store
	cfg         *config.Config
	logger      *slog.Logger
	searcher    Searcher
	fetcher     Fetcher
	synthesizer Synthesizer
}

// NewGatherer constructs the asset stage handler using default dependencies.
func NewGatherer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Gatherer {
	searcher := images.NewSearcher(searchProviders(cfg)...)
	fetcher := images.NewDownloader(time.Duration(cfg.Images.FetchTimeout)*time.Second, cfg.Images.MaxDownloadBytes)
	synthesizer := tts.NewClient(tts.Config{
		APIKey:         cfg.TTS.APIKey,
		BaseURL:        cfg.TTS.BaseURL,
		VoiceID:        cfg.TTS.VoiceID,
		ModelID:        cfg.TTS.Model,
		TimeoutSeconds: cfg.TTS.TimeoutSeconds,
	})
	return NewGathererWithDependencies(cfg, store, logger, searcher, fetcher, synthesizer)
}

// searchProviders builds the image search chain in the configured fallback
// order. Unknown names are skipped; validation rejects them at load time.
func searchProviders(cfg *config.Config) []images.Provider {
	var providers []images.Provider
	for _, name := range cfg.Images.Providers {
		switch name {
		case "pexels":
			providers = append(providers, images.NewPexelsClient(cfg.Images.PexelsAPIKey))
		case "serper":
			providers = append(providers, images.NewSerperClient(cfg.Images.SerperAPIKey))
		case "imgur":
			providers = append(providers, images.NewImgurClient(cfg.Images.ImgurClientID))
		}
	}
	return providers
}

// NewGathererWithDependencies allows injecting collaborators (used in tests).
func NewGathererWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, searcher Searcher, fetcher Fetcher, synthesizer Synthesizer) *Gatherer {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "assets"))
	}
	return &Gatherer{
		store:       store,
		cfg:         cfg,
		logger:      stageLogger,
		searcher:    searcher,
		fetcher:     fetcher,
		synthesizer: synthesizer,
	}
}

func (g *Gatherer) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, g.logger)
	if job.ProgressStage == "" {
		job.ProgressStage = "Gathering"
	}
	job.ProgressMessage = "Collecting scene images and narration"
	job.ProgressPercent = 0
	job.ErrorMessage = ""

	parsed, err := stage.ParseScript(job.ScriptJSON)
	if err != nil {
		return err
	}
	if len(parsed.Scenes) == 0 {
		return services.Wrap(
			services.ErrValidation, "gathering", "validate inputs",
			"Job has no scripted scenes; rerun scripting", nil)
	}
	logger.Info("starting asset gathering", logging.Int("scenes", len(parsed.Scenes)))
	return nil
}

func (g *Gatherer) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, g.logger)
	parsed, err := stage.ParseScript(job.ScriptJSON)
	if err != nil {
		return err
	}

	assetDir := filepath.Join(g.cfg.Paths.StagingDir, "assets-"+job.RunID)
	if err := os.MkdirAll(assetDir, 0o755); err != nil {
		return services.Wrap(
			services.ErrConfiguration, "gathering", "create asset dir",
			"Could not create the asset staging directory; check staging_dir permissions", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		audio, err := g.synthesizer.Synthesize(groupCtx, parsed.Narration)
		if err != nil {
			return services.Wrap(
				services.ErrExternalTool, "gathering", "synthesize narration",
				"Narration synthesis failed; check the TTS API key", err)
		}
		path := filepath.Join(assetDir, NarrationFile)
		if err := os.WriteFile(path, audio, 0o644); err != nil {
			return services.Wrap(
				services.ErrConfiguration, "gathering", "stage narration",
				"Could not write narration audio to the asset directory", err)
		}
		logger.Debug("narration staged", logging.Int("bytes", len(audio)))
		return nil
	})

	for i, scene := range parsed.Scenes {
		i, scene := i, scene
		group.Go(func() error {
			result, err := g.searcher.Search(groupCtx, scene.Keywords)
			if err != nil {
				return services.Wrap(
					services.ErrExternalTool, "gathering", "search image",
					fmt.Sprintf("No usable image found for scene %d (%q)", i+1, scene.Keywords), err)
			}
			data, err := g.fetcher.Fetch(groupCtx, result.URL)
			if err != nil {
				return services.Wrap(
					services.ErrExternalTool, "gathering", "download image",
					fmt.Sprintf("Image download failed for scene %d", i+1), err)
			}
			path := filepath.Join(assetDir, SceneImageFile(i))
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return services.Wrap(
					services.ErrConfiguration, "gathering", "stage image",
					fmt.Sprintf("Could not write scene %d image to the asset directory", i+1), err)
			}
			logger.Debug("scene image staged",
				logging.Int("scene", i+1),
				logging.String("source", result.Source),
				logging.Int("bytes", len(data)))
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	job.AssetDir = assetDir
	job.Status = queue.StatusGathered
	job.ProgressPercent = 100
	job.ProgressMessage = fmt.Sprintf("Gathered %d images and narration", len(parsed.Scenes))
	return nil
}

func (g *Gatherer) HealthCheck(ctx context.Context) stage.Health {
	var missing []string
	if strings.TrimSpace(g.cfg.Images.PexelsAPIKey) == "" &&
		strings.TrimSpace(g.cfg.Images.SerperAPIKey) == "" &&
		strings.TrimSpace(g.cfg.Images.ImgurClientID) == "" {
		missing = append(missing, "image provider api key")
	}
	if strings.TrimSpace(g.cfg.TTS.APIKey) == "" {
		missing = append(missing, "tts api key")
	}
	if len(missing) > 0 {
		return stage.Unhealthy("assets", strings.Join(missing, ", ")+" not configured")
	}
	return stage.Healthy("assets")
}
