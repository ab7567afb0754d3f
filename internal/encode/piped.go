package encode

import (
	"context"
	"fmt"
	"io"

	"reelsmith/internal/imaging"
	"reelsmith/internal/services/ffmpeg"
)

const pipedFrameQuality = 88

// PipedEncoder streams frames over ffmpeg's stdin as an image2pipe sequence,
// never touching the filesystem for video data. It holds one JPEG per unique
// frame in memory and accounts those bytes against the configured ceiling.
type PipedEncoder struct {
	runner ffmpeg.Runner
	spec   OutputSpec
}

// NewPipedEncoder builds the in-memory backend.
func NewPipedEncoder(runner ffmpeg.Runner, spec OutputSpec) *PipedEncoder {
	return &PipedEncoder{runner: runner, spec: spec.normalized()}
}

// Name implements Encoder.
func (e *PipedEncoder) Name() string { return "piped" }

// Encode implements Encoder.
func (e *PipedEncoder) Encode(ctx context.Context, in Input) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	schedule, err := in.Timeline.FrameSchedule(e.spec.FPS)
	if err != nil {
		return nil, classify(err)
	}

	// Frames are streamed raw, so every one must be the exact canvas size.
	// Re-encode from the full-resolution raster rather than reusing ladder
	// output that may have been shrunk.
	encoded := make([][]byte, len(in.Frames))
	var held int64
	for i, frame := range in.Frames {
		data, err := imaging.EncodeJPEG(frame.Raster, pipedFrameQuality)
		if err != nil {
			return nil, fmt.Errorf("%w: encode frame %d: %v", ErrEncode, i, err)
		}
		held += int64(len(data))
		if e.spec.MemoryCeilingBytes > 0 && held > e.spec.MemoryCeilingBytes {
			return nil, fmt.Errorf("%w: %d bytes held, ceiling %d", ErrResourceExhausted, held, e.spec.MemoryCeilingBytes)
		}
		encoded[i] = data
	}

	args := []string{
		"-y",
		"-f", "image2pipe",
		"-framerate", fmt.Sprintf("%d", e.spec.FPS),
		"-i", "-",
	}
	hasAudio := in.AudioPath != ""
	if hasAudio {
		args = append(args, "-i", in.AudioPath)
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", e.spec.Preset,
		"-crf", fmt.Sprintf("%d", e.spec.CRF),
	)
	if hasAudio {
		args = append(args, "-c:a", "copy", "-shortest")
	}
	args = append(args,
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		in.OutputPath,
	)

	reader, writer := io.Pipe()
	go func() {
		for _, idx := range schedule {
			if ctx.Err() != nil {
				writer.CloseWithError(ctx.Err())
				return
			}
			if _, err := writer.Write(encoded[idx]); err != nil {
				writer.CloseWithError(err)
				return
			}
		}
		writer.Close()
	}()

	if err := e.runner.RunInput(ctx, reader, args); err != nil {
		reader.CloseWithError(err)
		return nil, classify(err)
	}

	result := &Result{Path: in.OutputPath}
	if duration, err := e.runner.ProbeDuration(ctx, in.OutputPath); err == nil {
		result.Duration = duration
	} else {
		result.Duration = expectedDuration(in.Timeline, in.AudioDuration)
		result.Warnings = append(result.Warnings, fmt.Sprintf("duration probe failed: %v", err))
	}
	for i, frame := range in.Frames {
		if !frame.BudgetMet {
			result.Warnings = append(result.Warnings, fmt.Sprintf("frame %d over byte budget (%d bytes)", i, frame.ByteSize()))
		}
	}
	return result, nil
}
