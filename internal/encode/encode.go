package encode

import (
	"context"
	"errors"
	"fmt"

	"reelsmith/internal/imaging"
	"reelsmith/internal/services/ffmpeg"
	"reelsmith/internal/timeline"
)

// ErrEncode reports that the video encode itself failed.
var ErrEncode = errors.New("video encode failed")

// ErrResourceExhausted reports that the in-memory backend hit its byte
// ceiling before the encode could complete.
var ErrResourceExhausted = errors.New("encoder memory ceiling exceeded")

// OutputSpec fixes the video parameters shared by every backend.
type OutputSpec struct {
	Width  int
	Height int
	FPS    int
	Preset string
	CRF    int
	// MemoryCeilingBytes bounds frame bytes held by the in-memory backend.
	// Zero means unbounded.
	MemoryCeilingBytes int64
}

func (s OutputSpec) normalized() OutputSpec {
	out := s
	if out.FPS <= 0 {
		out.FPS = 30
	}
	if out.Preset == "" {
		out.Preset = "medium"
	}
	if out.CRF <= 0 {
		out.CRF = 23
	}
	return out
}

// Input carries everything a backend needs to produce the final file. Frames
// are already normalized and captioned; audio is already conditioned to the
// mux profile.
type Input struct {
	Frames        []*imaging.Frame
	Timeline      *timeline.Timeline
	AudioPath     string
	AudioDuration float64
	WorkDir       string
	OutputPath    string
}

func (in Input) validate() error {
	if len(in.Frames) == 0 {
		return fmt.Errorf("%w: no frames", ErrEncode)
	}
	if in.Timeline == nil {
		return fmt.Errorf("%w: no timeline", ErrEncode)
	}
	if in.OutputPath == "" {
		return fmt.Errorf("%w: no output path", ErrEncode)
	}
	return nil
}

// Result describes a finished encode.
type Result struct {
	Path     string
	Duration float64
	Warnings []string
}

// Encoder produces the final video from a shared render plan. Backends
// differ only in transport: how frames reach the encoder process.
type Encoder interface {
	Name() string
	Encode(ctx context.Context, in Input) (*Result, error)
}

// New selects a backend by name.
func New(backend string, runner ffmpeg.Runner, spec OutputSpec) (Encoder, error) {
	switch backend {
	case "", "exec":
		return NewExecEncoder(runner, spec), nil
	case "piped":
		return NewPipedEncoder(runner, spec), nil
	case "preview":
		return NewPreviewEncoder(spec), nil
	default:
		return nil, fmt.Errorf("encode: unknown backend %q", backend)
	}
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, ErrResourceExhausted) {
		return err
	}
	if _, ok := ffmpeg.AsError(err); ok {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return fmt.Errorf("%w: %v", ErrEncode, err)
}

// expectedDuration is what the muxer's shortest-stream rule will produce:
// the lesser of the visual plan and the narration length. A zero audio
// duration means no audio constraint.
func expectedDuration(t *timeline.Timeline, audioDuration float64) float64 {
	visual := t.Total()
	if audioDuration > 0 && audioDuration < visual {
		return audioDuration
	}
	return visual
}
