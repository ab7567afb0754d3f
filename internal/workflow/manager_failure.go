package workflow

import (
	"context"
	"errors"
	"log/slog"

	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
)

// handleStageFailure classifies a stage error and persists the resulting
// terminal state. Cancellation is not a failure: the job is left in its
// processing status so the next daemon start rolls it back and re-runs
// the stage.
func (m *Manager) handleStageFailure(ctx context.Context, logger *slog.Logger, job *queue.Job, st PipelineStage, stageErr error) {
	if errors.Is(stageErr, context.Canceled) || errors.Is(stageErr, context.DeadlineExceeded) {
		logger.Info("stage interrupted", logging.Error(stageErr))
		return
	}

	status := services.FailureStatus(stageErr)
	job.Status = status
	job.ErrorMessage = stageErr.Error()
	if status == queue.StatusReview && job.ReviewReason == "" {
		job.ReviewReason = stageErr.Error()
	}

	logger.Error("stage failed",
		logging.String("status", string(status)),
		logging.Error(stageErr))

	// Persist with a fresh context so shutdown does not lose the failure.
	persistCtx := ctx
	if persistCtx.Err() != nil {
		persistCtx = context.Background()
	}
	if err := m.store.Update(persistCtx, job); err != nil {
		logger.Error("failed to persist stage failure", logging.Error(err))
	}
}
