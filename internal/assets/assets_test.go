package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/services/images"
	"reelsmith/internal/services/script"
	"reelsmith/internal/stage"
	"reelsmith/internal/testsupport"
)

type stubSearcher struct {
	err error
}

func (s *stubSearcher) Search(ctx context.Context, query string) (images.Result, error) {
	if s.err != nil {
		return images.Result{}, s.err
	}
	return images.Result{URL: "https://example.com/" + query + ".jpg", Source: "stub"}, nil
}

type stubFetcher struct {
	err error
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte("image-bytes-for-" + url), nil
}

type stubSynthesizer struct {
	err error
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte("audio-bytes"), nil
}

func scriptedJob(t *testing.T, store *queue.Store) *queue.Job {
	t.Helper()
	job := testsupport.NewJob(t, store, "a test prompt")
	raw, err := stage.EncodeScript(script.Script{
		Narration: "two scenes of narration",
		Scenes: []script.Scene{
			{Duration: 10, Keywords: "first", Caption: "ONE"},
			{Duration: 10, Keywords: "second", Caption: "TWO"},
		},
	})
	if err != nil {
		t.Fatalf("encode script: %v", err)
	}
	job.ScriptJSON = raw
	return job
}

func newGatherer(t *testing.T, searcher Searcher, fetcher Fetcher, synth Synthesizer) (*Gatherer, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return NewGathererWithDependencies(cfg, store, testsupport.Logger(t), searcher, fetcher, synth), store
}

func TestSearchProvidersFollowConfiguredOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Images.Providers = []string{"imgur", "serper", "pexels"}
	cfg.Images.ImgurClientID = "id"
	cfg.Images.SerperAPIKey = "sk"
	cfg.Images.PexelsAPIKey = "pk"

	providers := searchProviders(cfg)
	if len(providers) != 3 {
		t.Fatalf("expected 3 providers, got %d", len(providers))
	}
	want := []string{"imgur", "serper", "pexels"}
	for i, p := range providers {
		if p.Name() != want[i] {
			t.Errorf("provider %d = %q, want %q", i, p.Name(), want[i])
		}
	}
}

func TestExecuteStagesAllAssets(t *testing.T) {
	g, store := newGatherer(t, &stubSearcher{}, &stubFetcher{}, &stubSynthesizer{})
	job := scriptedJob(t, store)

	if err := g.Prepare(context.Background(), job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := g.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if job.Status != queue.StatusGathered {
		t.Fatalf("unexpected status %q", job.Status)
	}
	if job.AssetDir == "" {
		t.Fatal("asset dir not recorded")
	}
	for _, name := range []string{SceneImageFile(0), SceneImageFile(1), NarrationFile} {
		if _, err := os.Stat(filepath.Join(job.AssetDir, name)); err != nil {
			t.Errorf("asset %s missing: %v", name, err)
		}
	}
}

func TestExecuteAbortsWhenSearchFails(t *testing.T) {
	g, store := newGatherer(t, &stubSearcher{err: errors.New("no results")}, &stubFetcher{}, &stubSynthesizer{})
	job := scriptedJob(t, store)

	err := g.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if job.Status == queue.StatusGathered {
		t.Fatal("job must not advance after failure")
	}
}

func TestExecuteAbortsWhenSynthesisFails(t *testing.T) {
	g, store := newGatherer(t, &stubSearcher{}, &stubFetcher{}, &stubSynthesizer{err: errors.New("quota")})
	job := scriptedJob(t, store)

	if err := g.Execute(context.Background(), job); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestPrepareRejectsUnscriptedJob(t *testing.T) {
	g, store := newGatherer(t, &stubSearcher{}, &stubFetcher{}, &stubSynthesizer{})
	job := testsupport.NewJob(t, store, "prompt")

	if err := g.Prepare(context.Background(), job); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHealthCheckReportsMissingKeys(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	g := NewGathererWithDependencies(cfg, store, testsupport.Logger(t), &stubSearcher{}, &stubFetcher{}, &stubSynthesizer{})

	if health := g.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy with test keys, got %+v", health)
	}
	cfg.Images.PexelsAPIKey = ""
	cfg.Images.SerperAPIKey = ""
	cfg.TTS.APIKey = ""
	if health := g.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy without keys")
	}
}
