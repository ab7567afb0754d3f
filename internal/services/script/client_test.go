package script

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func completionBody(t *testing.T, content string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	if err != nil {
		t.Fatalf("marshal completion: %v", err)
	}
	return body
}

const validPayload = `{"script":"Cats secretly run the internet.","scenes":[` +
	`{"duration":7,"keywords":"cat computer","caption":"CATS ONLINE"},` +
	`{"duration":7,"keywords":"cat meeting","caption":"THEY ORGANIZE"},` +
	`{"duration":6,"keywords":"cat world map","caption":"WORLD DOMINATION"}]}`

func TestGenerateParsesScript(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		w.Write(completionBody(t, validPayload))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL, Model: "test-model"})
	result, err := client.Generate(context.Background(), "cats running the internet")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(result.Scenes) != 3 {
		t.Fatalf("expected 3 scenes, got %d", len(result.Scenes))
	}
	if result.TotalDuration() != 20 {
		t.Fatalf("expected 20s total, got %g", result.TotalDuration())
	}
	if result.Scenes[0].Caption != "CATS ONLINE" {
		t.Fatalf("unexpected caption %q", result.Scenes[0].Caption)
	}
}

func TestGenerateToleratesCodeFences(t *testing.T) {
	fenced := "```json\n" + validPayload + "\n```"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(completionBody(t, fenced))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "m"})
	result, err := client.Generate(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Generate failed on fenced payload: %v", err)
	}
	if result.Narration == "" {
		t.Fatal("narration missing")
	}
}

func TestGenerateRejectsInvalidScenes(t *testing.T) {
	cases := map[string]string{
		"zero duration":  `{"script":"x","scenes":[{"duration":0,"keywords":"k","caption":"C"}]}`,
		"empty caption":  `{"script":"x","scenes":[{"duration":5,"keywords":"k","caption":" "}]}`,
		"empty keywords": `{"script":"x","scenes":[{"duration":5,"keywords":"","caption":"C"}]}`,
		"no scenes":      `{"script":"x","scenes":[]}`,
		"no narration":   `{"script":"","scenes":[{"duration":5,"keywords":"k","caption":"C"}]}`,
	}
	for name, payload := range cases {
		payload := payload
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write(completionBody(t, payload))
			}))
			defer server.Close()

			client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "m"})
			if _, err := client.Generate(context.Background(), "p"); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestGenerateRetriesServerErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write(completionBody(t, validPayload))
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "k", BaseURL: server.URL, Model: "m"},
		WithRetryMaxAttempts(3),
		WithRetryBackoff(time.Millisecond, time.Millisecond),
		WithSleeper(func(time.Duration) {}),
	)
	if _, err := client.Generate(context.Background(), "p"); err != nil {
		t.Fatalf("Generate should succeed after retries: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestGenerateDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "k", BaseURL: server.URL, Model: "m"},
		WithRetryMaxAttempts(5),
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.Generate(context.Background(), "p")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "http 401") {
		t.Fatalf("expected status in error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected single call, got %d", calls)
	}
}

func TestGenerateRequiresPromptAndKey(t *testing.T) {
	client := NewClient(Config{APIKey: "k", Model: "m"})
	if _, err := client.Generate(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty prompt")
	}
	client = NewClient(Config{Model: "m"})
	if _, err := client.Generate(context.Background(), "p"); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestDecodeModelJSONProsePrefix(t *testing.T) {
	var parsed Script
	content := "Here is your script:\n" + validPayload
	if err := decodeModelJSON(content, &parsed); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(parsed.Scenes) != 3 {
		t.Fatalf("expected 3 scenes, got %d", len(parsed.Scenes))
	}
}
