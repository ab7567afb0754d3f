package api

import (
	"context"
	"errors"
	"testing"

	"reelsmith/internal/queue"
	"reelsmith/internal/testsupport"
)

func TestQueueServiceEnqueueAndDescribe(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := NewQueueService(store)

	view, err := svc.Enqueue(context.Background(), "  ocean trivia  ")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if view.Prompt != "ocean trivia" {
		t.Fatalf("expected trimmed prompt, got %q", view.Prompt)
	}
	if view.Status != string(queue.StatusPending) {
		t.Fatalf("expected pending status, got %q", view.Status)
	}
	if view.RunID == "" {
		t.Fatal("expected run id to be assigned")
	}

	got, err := svc.Describe(context.Background(), view.ID)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if got.ID != view.ID || got.Prompt != view.Prompt {
		t.Fatalf("describe mismatch: %+v vs %+v", got, view)
	}
}

func TestQueueServiceEnqueueRejectsEmptyPrompt(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := NewQueueService(store)

	if _, err := svc.Enqueue(context.Background(), "   "); !errors.Is(err, ErrPromptRequired) {
		t.Fatalf("expected ErrPromptRequired, got %v", err)
	}
}

func TestQueueServiceDescribeMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := NewQueueService(store)

	if _, err := svc.Describe(context.Background(), 999); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestQueueServiceListFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := NewQueueService(store)

	if _, err := svc.Enqueue(context.Background(), "first"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	second, err := svc.Enqueue(context.Background(), "second")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	job, err := store.GetByID(context.Background(), second.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	job.Status = queue.StatusFailed
	if err := store.Update(context.Background(), job); err != nil {
		t.Fatalf("update: %v", err)
	}

	failed, err := svc.List(context.Background(), queue.StatusFailed)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != second.ID {
		t.Fatalf("expected only the failed job, got %+v", failed)
	}

	all, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected two jobs, got %d", len(all))
	}
}

func TestQueueServiceRetryAndCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := NewQueueService(store)

	view, err := svc.Enqueue(context.Background(), "retry me")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	job, err := store.GetByID(context.Background(), view.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	job.Status = queue.StatusFailed
	job.ErrorMessage = "upstream down"
	if err := store.Update(context.Background(), job); err != nil {
		t.Fatalf("update: %v", err)
	}

	retried, err := svc.Retry(context.Background(), view.ID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retried.Status != string(queue.StatusPending) || retried.ErrorMessage != "" {
		t.Fatalf("expected clean pending job, got %+v", retried)
	}

	counts, err := svc.Counts(context.Background())
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Total != 1 || counts.Pending != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}
