package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"reelsmith/internal/assets"
	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/organizer"
	"reelsmith/internal/queue"
	"reelsmith/internal/rendering"
	"reelsmith/internal/scripting"
	"reelsmith/internal/stage"
)

// PipelineStage binds a handler to the queue statuses it moves a job through.
type PipelineStage struct {
	Name             string
	Handler          stage.Handler
	StartStatus      queue.Status
	ProcessingStatus queue.Status
	DoneStatus       queue.Status
}

// Manager polls the queue and executes stages for claimed jobs.
type Manager struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	stages []PipelineStage

	pollInterval time.Duration

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewManager wires the standard stage set from configuration.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Manager, error) {
	renderer, err := rendering.NewRenderer(cfg, store, logger)
	if err != nil {
		return nil, fmt.Errorf("workflow: build renderer: %w", err)
	}
	stages := []PipelineStage{
		{
			Name:             "scripting",
			Handler:          scripting.NewGenerator(cfg, store, logger),
			StartStatus:      queue.StatusPending,
			ProcessingStatus: queue.StatusScripting,
			DoneStatus:       queue.StatusScripted,
		},
		{
			Name:             "assets",
			Handler:          assets.NewGatherer(cfg, store, logger),
			StartStatus:      queue.StatusScripted,
			ProcessingStatus: queue.StatusGathering,
			DoneStatus:       queue.StatusGathered,
		},
		{
			Name:             "rendering",
			Handler:          renderer,
			StartStatus:      queue.StatusGathered,
			ProcessingStatus: queue.StatusRendering,
			DoneStatus:       queue.StatusRendered,
		},
		{
			Name:             "organizing",
			Handler:          organizer.NewOrganizer(cfg, store, logger),
			StartStatus:      queue.StatusRendered,
			ProcessingStatus: queue.StatusOrganizing,
			DoneStatus:       queue.StatusCompleted,
		},
	}
	return NewManagerWithStages(cfg, store, logger, stages), nil
}

// NewManagerWithStages builds a manager over a caller-provided stage set.
func NewManagerWithStages(cfg *config.Config, store *queue.Store, logger *slog.Logger, stages []PipelineStage) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	interval := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		stages:       stages,
		pollInterval: interval,
	}
}

// stageForStatus resolves the stage whose start status matches the job.
func (m *Manager) stageForStatus(status queue.Status) (PipelineStage, bool) {
	for _, st := range m.stages {
		if st.StartStatus == status {
			return st, true
		}
	}
	return PipelineStage{}, false
}

// Health reports per-stage readiness plus queue connectivity.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	checks := make([]stage.Health, 0, len(m.stages)+1)
	if _, err := m.store.Health(ctx); err != nil {
		checks = append(checks, stage.Unhealthy("queue", err.Error()))
	} else {
		checks = append(checks, stage.Healthy("queue"))
	}
	for _, st := range m.stages {
		checks = append(checks, st.Handler.HealthCheck(ctx))
	}
	return checks
}
