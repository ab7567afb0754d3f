package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newClientFor(t *testing.T, srv *httptest.Server, token string) *Client {
	t.Helper()
	client, err := NewClient(strings.TrimPrefix(srv.URL, "http://"), token)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestClientGenerateSendsTokenAndPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/generate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sekrit" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Prompt != "moon landings" {
			t.Errorf("unexpected prompt %q", req.Prompt)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(GenerateResponse{Job: JobView{ID: 7, Prompt: req.Prompt, Status: "pending"}})
	}))
	defer srv.Close()

	client := newClientFor(t, srv, "sekrit")
	job, err := client.Generate(context.Background(), "moon landings")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if job.ID != 7 || job.Status != "pending" {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestClientListFiltersStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query()["status"]; len(got) != 2 {
			t.Errorf("expected two status filters, got %v", got)
		}
		json.NewEncoder(w).Encode(QueueListResponse{Jobs: []JobView{{ID: 1}, {ID: 2}}})
	}))
	defer srv.Close()

	client := newClientFor(t, srv, "")
	jobs, err := client.List(context.Background(), "failed", "review")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected two jobs, got %d", len(jobs))
	}
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "job not found"})
	}))
	defer srv.Close()

	client := newClientFor(t, srv, "")
	if _, err := client.Describe(context.Background(), 42); err == nil || !strings.Contains(err.Error(), "job not found") {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestClientUnavailable(t *testing.T) {
	var client *Client
	if _, err := client.Status(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from nil client, got %v", err)
	}

	unreachable, err := NewClient("127.0.0.1:1", "")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := unreachable.Status(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for refused connection, got %v", err)
	}

	none, err := NewClient("   ", "")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if none != nil {
		t.Fatal("expected nil client for empty bind")
	}
}
