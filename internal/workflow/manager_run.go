package workflow

import (
	"context"
	"errors"
	"time"

	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
)

// errorRetryInterval spaces out polling after a queue read failure so a
// broken database does not spin the loop.
const errorRetryInterval = 5 * time.Second

// Start launches the polling loop. It returns an error if the manager is
// already running. Jobs left in a processing status by a previous run are
// rolled back to the preceding stage before polling begins.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow manager already running")
	}
	m.running = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	stop, done := m.stop, m.done
	m.mu.Unlock()

	if reset, err := m.store.ResetStuckProcessing(ctx); err != nil {
		m.logger.Warn("failed to reset stuck jobs", logging.Error(err))
	} else if reset > 0 {
		m.logger.Info("rolled back interrupted jobs", logging.Int64("count", reset))
	}

	go m.run(ctx, stop, done)
	m.logger.Info("workflow manager started",
		logging.Duration("poll_interval", m.pollInterval))
	return nil
}

// Stop signals the loop to exit and waits for the in-flight job, if any,
// to finish its current stage.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stop, done := m.stop, m.done
	m.mu.Unlock()

	close(stop)
	<-done
	m.logger.Info("workflow manager stopped")
}

func (m *Manager) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		job, st, err := m.nextJob(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Error("queue poll failed", logging.Error(err))
			if !m.wait(ctx, stop, errorRetryInterval) {
				return
			}
			continue
		}
		if job == nil {
			if !m.wait(ctx, stop, m.pollInterval) {
				return
			}
			continue
		}
		m.processJob(ctx, job, st)
	}
}

// nextJob scans the stage table from the last stage back and claims the
// first job whose status matches a stage start status. Later stages win
// so in-flight jobs finish before new work is admitted.
func (m *Manager) nextJob(ctx context.Context) (*queue.Job, PipelineStage, error) {
	for i := len(m.stages) - 1; i >= 0; i-- {
		st := m.stages[i]
		job, err := m.store.NextForStatus(ctx, st.StartStatus)
		if err != nil {
			return nil, PipelineStage{}, err
		}
		if job != nil {
			return job, st, nil
		}
	}
	return nil, PipelineStage{}, nil
}

func (m *Manager) wait(ctx context.Context, stop <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-stop:
		return false
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// processJob runs one stage for one job: claim, prepare, execute, persist.
func (m *Manager) processJob(ctx context.Context, job *queue.Job, st PipelineStage) {
	logger := m.logger.With(
		logging.Int64("job_id", job.ID),
		logging.String("run_id", job.RunID),
		logging.String("stage", st.Name),
	)
	logger.Info("stage starting")

	job.Status = st.ProcessingStatus
	job.ErrorMessage = ""
	job.ProgressStage = st.Name
	job.ProgressPercent = 0
	job.ProgressMessage = ""
	if err := m.store.Update(ctx, job); err != nil {
		logger.Error("failed to claim job", logging.Error(err))
		return
	}

	if err := st.Handler.Prepare(ctx, job); err != nil {
		m.handleStageFailure(ctx, logger, job, st, err)
		return
	}
	if err := m.store.Update(ctx, job); err != nil {
		logger.Error("failed to persist prepared job", logging.Error(err))
		return
	}

	if err := st.Handler.Execute(ctx, job); err != nil {
		m.handleStageFailure(ctx, logger, job, st, err)
		return
	}

	// Handlers normally advance the status themselves; default it when
	// one leaves the job in its processing state.
	if job.Status == st.ProcessingStatus {
		job.Status = st.DoneStatus
	}
	job.ProgressPercent = 100
	if err := m.store.Update(ctx, job); err != nil {
		logger.Error("failed to persist completed stage", logging.Error(err))
		return
	}
	logger.Info("stage finished", logging.String("status", string(job.Status)))
}
