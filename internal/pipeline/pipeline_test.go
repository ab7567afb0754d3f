package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"testing"

	"reelsmith/internal/audio"
	"reelsmith/internal/encode"
	"reelsmith/internal/imaging"
	"reelsmith/internal/overlay"
	"reelsmith/internal/services/images"
	"reelsmith/internal/timeline"
)

type stubEncoder struct {
	name    string
	err     error
	lastIn  encode.Input
	encoded bool
}

func (s *stubEncoder) Name() string { return s.name }

func (s *stubEncoder) Encode(ctx context.Context, in encode.Input) (*encode.Result, error) {
	s.lastIn = in
	s.encoded = true
	if s.err != nil {
		return nil, s.err
	}
	duration := in.Timeline.Total()
	if in.AudioDuration > 0 && in.AudioDuration < duration {
		duration = in.AudioDuration
	}
	return &encode.Result{Path: in.OutputPath, Duration: duration}, nil
}

type stubAudioRunner struct {
	duration float64
	err      error
}

func (s *stubAudioRunner) Run(ctx context.Context, args []string) error {
	if s.err != nil {
		return s.err
	}
	// The conditioner probes the file it just wrote; create it.
	return os.WriteFile(args[len(args)-1], []byte("aac"), 0o644)
}

func (s *stubAudioRunner) RunInput(ctx context.Context, input io.Reader, args []string) error {
	return s.Run(ctx, args)
}

func (s *stubAudioRunner) ProbeDuration(ctx context.Context, path string) (float64, error) {
	return s.duration, nil
}

func testImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func newTestRunner(t *testing.T, enc encode.Encoder, audioDuration float64) *Runner {
	t.Helper()
	renderer, err := overlay.NewRenderer(108, 192, overlay.Options{CaptionFontSize: 16, SubtitleFontSize: 10})
	if err != nil {
		t.Fatalf("overlay renderer: %v", err)
	}
	base := t.TempDir()
	runner, err := NewRunner(Options{
		Width:       108,
		Height:      192,
		ByteBudget:  64 * 1024,
		Ladder:      []imaging.LadderLevel{{MaxWidth: 108, Quality: 82}, {MaxWidth: 84, Quality: 60}},
		Parallelism: 2,
		Overlay:     renderer,
		Conditioner: audio.NewConditioner(&stubAudioRunner{duration: audioDuration}, audio.DefaultProfile()),
		Encoder:     enc,
		WorkspaceFn: func() (string, error) {
			return os.MkdirTemp(base, "run-")
		},
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return runner
}

func testRequest(t *testing.T, sceneCount int) Request {
	t.Helper()
	req := Request{
		Audio:      []byte("raw-mp3"),
		OutputPath: filepath.Join(t.TempDir(), "out.mp4"),
	}
	for i := 0; i < sceneCount; i++ {
		req.Scenes = append(req.Scenes, Scene{Caption: "caption", Duration: 7})
		req.Images = append(req.Images, testImage(t, 300, 200))
	}
	return req
}

func TestRunHappyPath(t *testing.T) {
	enc := &stubEncoder{name: "stub"}
	runner := newTestRunner(t, enc, 25)
	result, err := runner.Run(context.Background(), testRequest(t, 3))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// 3 scenes at 7s each; audio is longer so visual wins.
	if result.Duration != 21 {
		t.Fatalf("expected 21s, got %g", result.Duration)
	}
	if len(enc.lastIn.Frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(enc.lastIn.Frames))
	}
	if len(enc.lastIn.Timeline.Entries) != 4 {
		t.Fatalf("expected 4 timeline entries, got %d", len(enc.lastIn.Timeline.Entries))
	}
	if enc.lastIn.AudioPath == "" || enc.lastIn.AudioDuration != 25 {
		t.Fatalf("audio not wired: %+v", enc.lastIn)
	}
}

func TestRunShortAudioWinsDuration(t *testing.T) {
	enc := &stubEncoder{name: "stub"}
	runner := newTestRunner(t, enc, 10)
	result, err := runner.Run(context.Background(), testRequest(t, 3))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Duration != 10 {
		t.Fatalf("expected audio-bounded 10s, got %g", result.Duration)
	}
}

func TestRunSceneImageCountMismatch(t *testing.T) {
	runner := newTestRunner(t, &stubEncoder{name: "stub"}, 20)
	req := testRequest(t, 2)
	req.Images = req.Images[:1]
	_, err := runner.Run(context.Background(), req)
	if !errors.Is(err, timeline.ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
	if Classify(err) != KindLengthMismatch {
		t.Fatalf("wrong kind %q", Classify(err))
	}
}

func TestRunBadImageAborts(t *testing.T) {
	enc := &stubEncoder{name: "stub"}
	runner := newTestRunner(t, enc, 20)
	req := testRequest(t, 2)
	req.Images[1] = []byte("definitely not a jpeg")
	_, err := runner.Run(context.Background(), req)
	if !errors.Is(err, imaging.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if enc.encoded {
		t.Fatal("encoder must not run after a frame failure")
	}
}

func TestRunSilentWithoutAudio(t *testing.T) {
	enc := &stubEncoder{name: "stub"}
	runner := newTestRunner(t, enc, 0)
	req := testRequest(t, 2)
	req.Audio = nil
	result, err := runner.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if enc.lastIn.AudioPath != "" {
		t.Fatal("no audio should be wired")
	}
	if result.Duration != 14 {
		t.Fatalf("expected visual duration 14, got %g", result.Duration)
	}
}

func TestRunCancellationAborts(t *testing.T) {
	runner := newTestRunner(t, &stubEncoder{name: "stub"}, 20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := runner.Run(ctx, testRequest(t, 2))
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if Classify(err) != KindCanceled {
		t.Fatalf("wrong kind %q for %v", Classify(err), err)
	}
}

func TestRunCleansWorkspace(t *testing.T) {
	base := t.TempDir()
	var created string
	renderer, err := overlay.NewRenderer(108, 192, overlay.Options{CaptionFontSize: 16})
	if err != nil {
		t.Fatalf("overlay renderer: %v", err)
	}
	runner, err := NewRunner(Options{
		Width:   108,
		Height:  192,
		Overlay: renderer,
		Encoder: &stubEncoder{name: "stub"},
		WorkspaceFn: func() (string, error) {
			dir, err := os.MkdirTemp(base, "run-")
			created = dir
			return dir, err
		},
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	req := testRequest(t, 1)
	req.Audio = nil
	if _, err := runner.Run(context.Background(), req); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, err := os.Stat(created); !os.IsNotExist(err) {
		t.Fatalf("workspace %s not cleaned up", created)
	}
}

func TestRunKeepWorkspace(t *testing.T) {
	enc := &stubEncoder{name: "stub"}
	runner := newTestRunner(t, enc, 20)
	req := testRequest(t, 1)
	req.KeepWorkspace = true
	if _, err := runner.Run(context.Background(), req); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, err := os.Stat(enc.lastIn.WorkDir); err != nil {
		t.Fatalf("workspace should be kept: %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := map[Kind]error{
		KindDecode:            imaging.ErrDecode,
		KindFetchTimeout:      images.ErrFetchTimeout,
		KindLengthMismatch:    timeline.ErrLengthMismatch,
		KindAudioDecode:       audio.ErrAudioDecode,
		KindTranscode:         audio.ErrTranscode,
		KindEncode:            encode.ErrEncode,
		KindResourceExhausted: encode.ErrResourceExhausted,
		KindCanceled:          context.Canceled,
		KindUnknown:           errors.New("mystery"),
	}
	for want, err := range cases {
		if got := Classify(err); got != want {
			t.Errorf("Classify(%v) = %q, want %q", err, got, want)
		}
	}
	if Classify(nil) != "" {
		t.Error("nil error should classify as empty")
	}
}

func TestKindRetryable(t *testing.T) {
	if !KindFetchTimeout.Retryable() || !KindEncode.Retryable() {
		t.Fatal("transient kinds should be retryable")
	}
	if KindDecode.Retryable() || KindLengthMismatch.Retryable() || KindCanceled.Retryable() {
		t.Fatal("deterministic failures should not be retryable")
	}
}
