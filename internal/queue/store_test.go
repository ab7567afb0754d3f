package queue_test

import (
	"context"
	"path/filepath"
	"testing"

	"reelsmith/internal/queue"
)

func openStore(t *testing.T) *queue.Store {
	t.Helper()
	store, err := queue.OpenPath(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewJobAssignsRunID(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	job, err := store.NewJob(ctx, "haunted lighthouses")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	if job.ID == 0 {
		t.Fatal("expected job ID to be assigned")
	}
	if job.RunID == "" {
		t.Fatal("expected run ID to be assigned")
	}
	if job.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}

	byRun, err := store.GetByRunID(ctx, job.RunID)
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if byRun.ID != job.ID {
		t.Fatalf("run ID lookup returned job %d, want %d", byRun.ID, job.ID)
	}
}

func TestNewJobRequiresPrompt(t *testing.T) {
	store := openStore(t)
	if _, err := store.NewJob(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestUpdateRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	job, err := store.NewJob(ctx, "prompt")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	job.Status = queue.StatusScripted
	job.ScriptJSON = `{"narration":"hello"}`
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusScripted || fetched.ScriptJSON == "" {
		t.Fatalf("unexpected job after update: %#v", fetched)
	}
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	job, err := store.NewJob(ctx, "prompt")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	job.Status = queue.Status("exploded")
	if err := store.Update(ctx, job); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestNextForStatusClaimsOldest(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first, _ := store.NewJob(ctx, "first")
	if _, err := store.NewJob(ctx, "second"); err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}

	next, err := store.NextForStatus(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("NextForStatus failed: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("expected oldest pending job %d, got %#v", first.ID, next)
	}

	idle, err := store.NextForStatus(ctx, queue.StatusRendering)
	if err != nil {
		t.Fatalf("NextForStatus failed: %v", err)
	}
	if idle != nil {
		t.Fatalf("expected nil for empty status, got %#v", idle)
	}
}

func TestResetStuckProcessing(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	cases := []struct {
		initial  queue.Status
		expected queue.Status
	}{
		{queue.StatusScripting, queue.StatusPending},
		{queue.StatusGathering, queue.StatusScripted},
		{queue.StatusRendering, queue.StatusGathered},
		{queue.StatusOrganizing, queue.StatusRendered},
	}

	var ids []int64
	for i, tc := range cases {
		job, err := store.NewJob(ctx, "stuck")
		if err != nil {
			t.Fatalf("NewJob %d failed: %v", i, err)
		}
		job.Status = tc.initial
		if err := store.Update(ctx, job); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		ids = append(ids, job.ID)
	}

	reset, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if reset != int64(len(cases)) {
		t.Fatalf("expected %d resets, got %d", len(cases), reset)
	}

	for i, tc := range cases {
		job, err := store.GetByID(ctx, ids[i])
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if job.Status != tc.expected {
			t.Fatalf("job %d: expected %s, got %s", ids[i], tc.expected, job.Status)
		}
	}
}

func TestRetryClearsArtifacts(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	job, _ := store.NewJob(ctx, "retry me")
	job.Status = queue.StatusFailed
	job.ErrorMessage = "encode blew up"
	job.OutputFile = "/tmp/x.mp4"
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	retried, err := store.Retry(ctx, job.ID)
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if retried.Status != queue.StatusPending || retried.ErrorMessage != "" || retried.OutputFile != "" {
		t.Fatalf("retry did not reset job: %#v", retried)
	}

	if _, err := store.Retry(ctx, job.ID); err == nil {
		t.Fatal("expected error retrying a pending job")
	}
}

func TestStatsAndHealth(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for range 2 {
		if _, err := store.NewJob(ctx, "p"); err != nil {
			t.Fatalf("NewJob failed: %v", err)
		}
	}
	job, _ := store.NewJob(ctx, "done")
	job.Status = queue.StatusCompleted
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[queue.StatusPending] != 2 || stats[queue.StatusCompleted] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 3 || health.Pending != 2 || health.Completed != 1 {
		t.Fatalf("unexpected health: %#v", health)
	}
}

func TestClearFiltersByStatus(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	pending, _ := store.NewJob(ctx, "keep")
	failed, _ := store.NewJob(ctx, "drop")
	failed.Status = queue.StatusFailed
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	removed, err := store.Clear(ctx, queue.StatusFailed)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := store.GetByID(ctx, pending.ID); err != nil {
		t.Fatalf("pending job should survive: %v", err)
	}
	if _, err := store.GetByID(ctx, failed.ID); err == nil {
		t.Fatal("failed job should be gone")
	}
}
