package api

import (
	"context"
	"errors"
	"strings"

	"reelsmith/internal/queue"
)

// QueueService exposes queue operations in view form for transports.
type QueueService struct {
	store *queue.Store
}

// NewQueueService wraps a queue store.
func NewQueueService(store *queue.Store) *QueueService {
	return &QueueService{store: store}
}

// ErrPromptRequired is returned when an enqueue request has no prompt.
var ErrPromptRequired = errors.New("prompt is required")

// Enqueue creates a pending job for the prompt.
func (s *QueueService) Enqueue(ctx context.Context, prompt string) (JobView, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return JobView{}, ErrPromptRequired
	}
	job, err := s.store.NewJob(ctx, prompt)
	if err != nil {
		return JobView{}, err
	}
	return FromJob(job), nil
}

// List returns jobs, optionally filtered by status.
func (s *QueueService) List(ctx context.Context, statuses ...queue.Status) ([]JobView, error) {
	jobs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, FromJob(job))
	}
	return views, nil
}

// Describe fetches one job by id.
func (s *QueueService) Describe(ctx context.Context, id int64) (JobView, error) {
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		return JobView{}, err
	}
	return FromJob(job), nil
}

// Retry resets a failed or review job back to pending.
func (s *QueueService) Retry(ctx context.Context, id int64) (JobView, error) {
	job, err := s.store.Retry(ctx, id)
	if err != nil {
		return JobView{}, err
	}
	return FromJob(job), nil
}

// Clear removes jobs, optionally restricted to the given statuses.
func (s *QueueService) Clear(ctx context.Context, statuses ...queue.Status) (int64, error) {
	return s.store.Clear(ctx, statuses...)
}

// Counts aggregates the queue health summary into view form.
func (s *QueueService) Counts(ctx context.Context) (QueueCounts, error) {
	summary, err := s.store.Health(ctx)
	if err != nil {
		return QueueCounts{}, err
	}
	return QueueCounts{
		Total:      summary.Total,
		Pending:    summary.Pending,
		Processing: summary.Processing,
		Failed:     summary.Failed,
		Review:     summary.Review,
		Completed:  summary.Completed,
	}, nil
}

// FromJob converts a queue job into its JSON view.
func FromJob(job *queue.Job) JobView {
	return JobView{
		ID:              job.ID,
		RunID:           job.RunID,
		Prompt:          job.Prompt,
		Status:          string(job.Status),
		ProgressStage:   job.ProgressStage,
		ProgressPercent: job.ProgressPercent,
		ProgressMessage: job.ProgressMessage,
		ErrorMessage:    job.ErrorMessage,
		ReviewReason:    job.ReviewReason,
		FinalFile:       job.FinalFile,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
	}
}
