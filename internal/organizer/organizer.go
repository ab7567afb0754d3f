package organizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"reelsmith/internal/config"
	"reelsmith/internal/fileutil"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/stage"
)

// Organizer moves rendered files into the final library location and prunes
// expired staging artifacts.
type Organizer struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
}

// NewOrganizer constructs the organizer stage handler.
func NewOrganizer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Organizer {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "organizer"))
	}
	return &Organizer{store: store, cfg: cfg, logger: stageLogger}
}

func (o *Organizer) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, o.logger)
	if job.ProgressStage == "" {
		job.ProgressStage = "Organizing"
	}
	job.ProgressMessage = "Moving video into the library"
	job.ProgressPercent = 0
	job.ErrorMessage = ""
	logger.Info("starting organization", logging.String("output_file", strings.TrimSpace(job.OutputFile)))
	return nil
}

func (o *Organizer) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, o.logger)
	if strings.TrimSpace(job.OutputFile) == "" {
		return services.Wrap(
			services.ErrValidation, "organizing", "validate inputs",
			"No rendered file present; run rendering before organizing", nil)
	}
	if _, err := os.Stat(job.OutputFile); err != nil {
		return services.Wrap(
			services.ErrValidation, "organizing", "validate inputs",
			"Rendered file is missing from staging; rerun rendering", err)
	}

	if err := os.MkdirAll(o.cfg.Paths.LibraryDir, 0o755); err != nil {
		return services.Wrap(
			services.ErrConfiguration, "organizing", "create library dir",
			"Could not create the library directory; check library_dir permissions", err)
	}

	finalPath := o.libraryPath(job)
	if err := fileutil.MoveFile(job.OutputFile, finalPath); err != nil {
		return services.Wrap(
			services.ErrConfiguration, "organizing", "move file",
			"Could not move the rendered file into the library", err)
	}

	o.cleanupAssets(logger, job)
	o.pruneStaging(logger)

	job.FinalFile = finalPath
	job.OutputFile = finalPath
	job.Status = queue.StatusCompleted
	job.ProgressPercent = 100
	job.ProgressMessage = fmt.Sprintf("Video available at %s", filepath.Base(finalPath))
	logger.Info("organization complete", logging.String("final_file", finalPath))
	return nil
}

// libraryPath derives a stable, filesystem-safe destination from the prompt
// and run ID. Collisions are impossible in practice because the run ID is
// unique per job.
func (o *Organizer) libraryPath(job *queue.Job) string {
	slug := slugify(job.Prompt)
	if slug == "" {
		slug = "video"
	}
	name := fmt.Sprintf("%s-%s%s", slug, shortID(job.RunID), filepath.Ext(job.OutputFile))
	return filepath.Join(o.cfg.Paths.LibraryDir, name)
}

func (o *Organizer) cleanupAssets(logger *slog.Logger, job *queue.Job) {
	if strings.TrimSpace(job.AssetDir) == "" {
		return
	}
	if err := os.RemoveAll(job.AssetDir); err != nil {
		logger.Warn("asset cleanup failed", logging.String("dir", job.AssetDir), logging.Error(err))
	}
}

func (o *Organizer) pruneStaging(logger *slog.Logger) {
	retention := time.Duration(o.cfg.Workflow.TempRetentionMins) * time.Minute
	if retention <= 0 {
		return
	}
	removed, err := fileutil.PruneOlderThan(o.cfg.Paths.StagingDir, time.Now().Add(-retention))
	if err != nil {
		logger.Warn("staging prune failed", logging.Error(err))
		return
	}
	if removed > 0 {
		logger.Info("pruned expired staging artifacts", logging.Int("removed", removed))
	}
}

func (o *Organizer) HealthCheck(ctx context.Context) stage.Health {
	if strings.TrimSpace(o.cfg.Paths.LibraryDir) == "" {
		return stage.Unhealthy("organizer", "library_dir not configured")
	}
	return stage.Healthy("organizer")
}

const maxSlugLength = 48

func slugify(text string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteRune('-')
			lastDash = true
		}
		if b.Len() >= maxSlugLength {
			break
		}
	}
	return strings.Trim(b.String(), "-")
}

func shortID(runID string) string {
	cleaned := strings.ReplaceAll(runID, "-", "")
	if len(cleaned) > 8 {
		return cleaned[:8]
	}
	return cleaned
}
