package workflow

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/stage"
	"reelsmith/internal/testsupport"
)

type stubHandler struct {
	name      string
	executed  atomic.Int32
	onExecute func(*queue.Job) error
	health    stage.Health
}

func (h *stubHandler) Prepare(_ context.Context, _ *queue.Job) error { return nil }

func (h *stubHandler) Execute(_ context.Context, job *queue.Job) error {
	h.executed.Add(1)
	if h.onExecute != nil {
		return h.onExecute(job)
	}
	return nil
}

func (h *stubHandler) HealthCheck(_ context.Context) stage.Health {
	if h.health.Name != "" {
		return h.health
	}
	return stage.Healthy(h.name)
}

func twoStageSet(first, second *stubHandler) []PipelineStage {
	return []PipelineStage{
		{
			Name:             "first",
			Handler:          first,
			StartStatus:      queue.StatusPending,
			ProcessingStatus: queue.StatusScripting,
			DoneStatus:       queue.StatusScripted,
		},
		{
			Name:             "second",
			Handler:          second,
			StartStatus:      queue.StatusScripted,
			ProcessingStatus: queue.StatusGathering,
			DoneStatus:       queue.StatusCompleted,
		},
	}
}

func waitForStatus(t *testing.T, store *queue.Store, id int64, want queue.Status) *queue.Job {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		job, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if job.Status == want {
			return job
		}
		select {
		case <-deadline:
			t.Fatalf("job %d stuck in %q waiting for %q", id, job.Status, want)
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestManagerRunsJobThroughStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "volcano facts")

	first := &stubHandler{name: "first"}
	second := &stubHandler{name: "second"}
	mgr := NewManagerWithStages(cfg, store, testsupport.Logger(t), twoStageSet(first, second))

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer mgr.Stop()

	done := waitForStatus(t, store, job.ID, queue.StatusCompleted)
	if first.executed.Load() != 1 || second.executed.Load() != 1 {
		t.Fatalf("expected each stage once, got first=%d second=%d",
			first.executed.Load(), second.executed.Load())
	}
	if done.ProgressPercent != 100 {
		t.Fatalf("expected progress 100, got %v", done.ProgressPercent)
	}
}

func TestManagerStartTwiceFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := NewManagerWithStages(cfg, store, testsupport.Logger(t), twoStageSet(&stubHandler{}, &stubHandler{}))

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer mgr.Stop()
	if err := mgr.Start(context.Background()); err == nil {
		t.Fatal("expected second start to fail")
	}
}

func TestManagerValidationFailureRoutesToReview(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "empty prompt")

	first := &stubHandler{name: "first", onExecute: func(*queue.Job) error {
		return services.Wrap(services.ErrValidation, "first", "check input", "prompt is empty", nil)
	}}
	mgr := NewManagerWithStages(cfg, store, testsupport.Logger(t), twoStageSet(first, &stubHandler{}))

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer mgr.Stop()

	failed := waitForStatus(t, store, job.ID, queue.StatusReview)
	if failed.ErrorMessage == "" {
		t.Fatal("expected error message to be recorded")
	}
	if failed.ReviewReason == "" {
		t.Fatal("expected review reason to be recorded")
	}
}

func TestManagerExternalFailureRoutesToFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "flaky upstream")

	first := &stubHandler{name: "first", onExecute: func(*queue.Job) error {
		return services.Wrap(services.ErrExternalTool, "first", "call api", "upstream returned 503", nil)
	}}
	mgr := NewManagerWithStages(cfg, store, testsupport.Logger(t), twoStageSet(first, &stubHandler{}))

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer mgr.Stop()

	failed := waitForStatus(t, store, job.ID, queue.StatusFailed)
	if failed.ReviewReason != "" {
		t.Fatalf("failed jobs should not carry a review reason, got %q", failed.ReviewReason)
	}
}

func TestManagerDefaultsDoneStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "status left alone")

	// Neither handler touches job.Status, so the manager applies each
	// stage's done status.
	mgr := NewManagerWithStages(cfg, store, testsupport.Logger(t), twoStageSet(&stubHandler{}, &stubHandler{}))
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer mgr.Stop()

	waitForStatus(t, store, job.ID, queue.StatusCompleted)
}

func TestManagerRollsBackStuckJobsOnStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "interrupted mid-render")

	job.Status = queue.StatusGathering
	if err := store.Update(context.Background(), job); err != nil {
		t.Fatalf("update: %v", err)
	}

	second := &stubHandler{name: "second"}
	mgr := NewManagerWithStages(cfg, store, testsupport.Logger(t), twoStageSet(&stubHandler{}, second))
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer mgr.Stop()

	// Rollback returns the job to scripted, then the second stage runs.
	waitForStatus(t, store, job.ID, queue.StatusCompleted)
	if second.executed.Load() != 1 {
		t.Fatalf("expected interrupted stage to re-run once, got %d", second.executed.Load())
	}
}

func TestManagerCancellationLeavesJobForRestart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "canceled mid-stage")

	started := make(chan struct{})
	first := &stubHandler{name: "first", onExecute: func(*queue.Job) error {
		close(started)
		return context.Canceled
	}}
	mgr := NewManagerWithStages(cfg, store, testsupport.Logger(t), twoStageSet(first, &stubHandler{}))

	ctx, cancel := context.WithCancel(context.Background())
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-started
	cancel()
	mgr.Stop()

	got, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != queue.StatusScripting {
		t.Fatalf("expected job left in scripting for rollback, got %q", got.Status)
	}
	if got.ErrorMessage != "" {
		t.Fatalf("cancellation must not record a failure, got %q", got.ErrorMessage)
	}
}

func TestManagerHealthAggregatesStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	first := &stubHandler{name: "first"}
	second := &stubHandler{name: "second", health: stage.Unhealthy("second", "api key missing")}
	mgr := NewManagerWithStages(cfg, store, testsupport.Logger(t), twoStageSet(first, second))

	checks := mgr.Health(context.Background())
	if len(checks) != 3 {
		t.Fatalf("expected queue check plus two stages, got %d", len(checks))
	}
	if !checks[0].Ready || checks[0].Name != "queue" {
		t.Fatalf("expected healthy queue check first, got %+v", checks[0])
	}
	ready := 0
	for _, c := range checks {
		if c.Ready {
			ready++
		}
	}
	if ready != 2 {
		t.Fatalf("expected exactly one unhealthy check, got %d ready", ready)
	}
}

func TestManagerWiresRealStages(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBackend("preview"))
	store := testsupport.MustOpenStore(t, cfg)

	mgr, err := NewManager(cfg, store, testsupport.Logger(t))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if len(mgr.stages) != 4 {
		t.Fatalf("expected four stages, got %d", len(mgr.stages))
	}
	if mgr.stages[0].StartStatus != queue.StatusPending ||
		mgr.stages[3].DoneStatus != queue.StatusCompleted {
		t.Fatalf("stage table order wrong: %+v", mgr.stages)
	}
}

func TestNextJobPrefersLaterStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	pending := testsupport.NewJob(t, store, "new work")
	older := testsupport.NewJob(t, store, "in-flight work")
	older.Status = queue.StatusScripted
	if err := store.Update(context.Background(), older); err != nil {
		t.Fatalf("update: %v", err)
	}

	mgr := NewManagerWithStages(cfg, store, testsupport.Logger(t), twoStageSet(&stubHandler{}, &stubHandler{}))
	job, st, err := mgr.nextJob(context.Background())
	if err != nil {
		t.Fatalf("next job: %v", err)
	}
	if job == nil {
		t.Fatal("expected a claimable job")
	}
	if job.ID != older.ID {
		t.Fatalf("expected in-flight job %d to be claimed first, got %d (pending %d)",
			older.ID, job.ID, pending.ID)
	}
	if st.Name != "second" {
		t.Fatalf("expected second stage, got %q", st.Name)
	}
}
