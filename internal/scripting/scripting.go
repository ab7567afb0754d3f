package scripting

import (
	"context"
	"log/slog"
	"strings"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/services/script"
	"reelsmith/internal/stage"
)

// Client is the script generation surface this stage needs.
type Client interface {
	Generate(ctx context.Context, prompt string) (script.Script, error)
	HealthCheck(ctx context.Context) error
}

// Generator turns a queued prompt into a structured scene script.
type Generator struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	client Client
}

// NewGenerator constructs the scripting stage handler using default dependencies.
func NewGenerator(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Generator {
	client := script.NewClient(script.Config{
		APIKey:         cfg.Script.APIKey,
		BaseURL:        cfg.Script.BaseURL,
		Model:          cfg.Script.Model,
		Temperature:    cfg.Script.Temperature,
		TimeoutSeconds: cfg.Script.TimeoutSeconds,
		MaxScenes:      cfg.Script.MaxScenes,
	})
	return NewGeneratorWithClient(cfg, store, logger, client)
}

// NewGeneratorWithClient allows injecting the script client (used in tests).
func NewGeneratorWithClient(cfg *config.Config, store *queue.Store, logger *slog.Logger, client Client) *Generator {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "scripting"))
	}
	return &Generator{store: store, cfg: cfg, logger: stageLogger, client: client}
}

func (g *Generator) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, g.logger)
	if job.ProgressStage == "" {
		job.ProgressStage = "Scripting"
	}
	job.ProgressMessage = "Generating scene script"
	job.ProgressPercent = 0
	job.ErrorMessage = ""
	if strings.TrimSpace(job.Prompt) == "" {
		return services.Wrap(
			services.ErrValidation, "scripting", "validate inputs",
			"Job has no prompt to script from", nil)
	}
	logger.Info("starting script generation", logging.String("prompt", job.Prompt))
	return nil
}

func (g *Generator) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, g.logger)
	result, err := g.client.Generate(ctx, job.Prompt)
	if err != nil {
		return services.Wrap(
			services.ErrExternalTool, "scripting", "generate script",
			"Script generation failed; check the script API key and model", err)
	}
	encoded, err := stage.EncodeScript(result)
	if err != nil {
		return err
	}
	job.ScriptJSON = encoded
	job.Status = queue.StatusScripted
	job.ProgressPercent = 100
	job.ProgressMessage = "Script ready"
	logger.Info("script generated",
		logging.Int("scenes", len(result.Scenes)),
		logging.Float64("planned_seconds", result.TotalDuration()))
	return nil
}

func (g *Generator) HealthCheck(ctx context.Context) stage.Health {
	if strings.TrimSpace(g.cfg.Script.APIKey) == "" {
		return stage.Unhealthy("scripting", "script api key not configured")
	}
	return stage.Healthy("scripting")
}
