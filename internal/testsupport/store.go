package testsupport

import (
	"context"
	"log/slog"
	"testing"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob creates a queued job for tests using the provided store.
func NewJob(t testing.TB, store *queue.Store, prompt string) *queue.Job {
	t.Helper()

	job, err := store.NewJob(context.Background(), prompt)
	if err != nil {
		t.Fatalf("store.NewJob: %v", err)
	}
	return job
}

// Logger returns a discard-backed logger for tests. Verbose runs can swap
// this for a console logger without touching call sites.
func Logger(t testing.TB) *slog.Logger {
	t.Helper()
	return logging.NewNop()
}
