package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"reelsmith/internal/api"
	"reelsmith/internal/config"
	"reelsmith/internal/queue"
	"reelsmith/internal/testsupport"
	"reelsmith/internal/workflow"
)

func startTestDaemon(t *testing.T, opts ...testsupport.ConfigOption) (*Daemon, *queue.Store, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := workflow.NewManagerWithStages(cfg, store, testsupport.Logger(t), idleStages())
	d, err := New(cfg, store, testsupport.Logger(t), mgr)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, store, "http://" + d.APIAddr()
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestAPIGenerateEnqueuesJob(t *testing.T) {
	_, store, base := startTestDaemon(t)

	body := bytes.NewBufferString(`{"prompt":"deep sea creatures"}`)
	resp, err := http.Post(base+"/api/generate", "application/json", body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	payload := decodeBody[api.GenerateResponse](t, resp)
	if payload.Job.Prompt != "deep sea creatures" {
		t.Fatalf("unexpected job: %+v", payload.Job)
	}

	job, err := store.GetByID(context.Background(), payload.Job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != queue.StatusPending {
		t.Fatalf("expected pending job, got %q", job.Status)
	}
}

func TestAPIGenerateRejectsEmptyPrompt(t *testing.T) {
	_, _, base := startTestDaemon(t)

	resp, err := http.Post(base+"/api/generate", "application/json", bytes.NewBufferString(`{"prompt":"  "}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAPIQueueListAndItem(t *testing.T) {
	_, store, base := startTestDaemon(t)
	job := testsupport.NewJob(t, store, "queued work")

	resp, err := http.Get(base + "/api/queue")
	if err != nil {
		t.Fatalf("get queue: %v", err)
	}
	list := decodeBody[api.QueueListResponse](t, resp)
	if len(list.Jobs) != 1 || list.Jobs[0].ID != job.ID {
		t.Fatalf("unexpected listing: %+v", list.Jobs)
	}

	resp, err = http.Get(fmt.Sprintf("%s/api/queue/%d", base, job.ID))
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	item := decodeBody[api.QueueItemResponse](t, resp)
	if item.Job.Prompt != "queued work" {
		t.Fatalf("unexpected item: %+v", item.Job)
	}

	resp, err = http.Get(base + "/api/queue/999")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for missing job, got %d", resp.StatusCode)
	}

	resp, err = http.Get(base + "/api/queue?status=bogus")
	if err != nil {
		t.Fatalf("get filtered: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", resp.StatusCode)
	}
}

func TestAPIStatusReportsHealth(t *testing.T) {
	_, _, base := startTestDaemon(t)

	resp, err := http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	status := decodeBody[api.StatusResponse](t, resp)
	if !status.Running {
		t.Fatal("expected running daemon")
	}
	if len(status.Checks) == 0 {
		t.Fatal("expected health checks in status payload")
	}
}

func TestAPIVideoServingAndSanitization(t *testing.T) {
	d, _, base := startTestDaemon(t)

	video := filepath.Join(d.cfg.Paths.LibraryDir, "ocean-trivia-abc12345.mp4")
	if err := os.WriteFile(video, []byte("not really an mp4"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	resp, err := http.Get(base + "/api/videos/ocean-trivia-abc12345.mp4")
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(data) != "not really an mp4" {
		t.Fatalf("expected file contents, got %d %q", resp.StatusCode, data)
	}

	for _, name := range []string{"missing.mp4", "..%2F..%2Fetc%2Fpasswd", ".hidden.mp4"} {
		resp, err := http.Get(base + "/api/videos/" + name)
		if err != nil {
			t.Fatalf("get %q: %v", name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404 for %q, got %d", name, resp.StatusCode)
		}
	}
}

func TestAPIBearerTokenRequired(t *testing.T) {
	_, _, base := startTestDaemon(t, testsupport.WithConfig(func(cfg *config.Config) {
		cfg.Paths.APIToken = "sekrit"
	}))

	resp, err := http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, base+"/api/status", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer sekrit")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}

	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", resp.StatusCode)
	}
}
