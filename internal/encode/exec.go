package encode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"reelsmith/internal/services/ffmpeg"
)

// ExecEncoder materializes frames as JPEG files and drives a single ffmpeg
// invocation over the concat demuxer. This is the default backend: cheapest
// on memory and the closest match to how the output was tuned.
type ExecEncoder struct {
	runner ffmpeg.Runner
	spec   OutputSpec
}

// NewExecEncoder builds the file-based backend.
func NewExecEncoder(runner ffmpeg.Runner, spec OutputSpec) *ExecEncoder {
	return &ExecEncoder{runner: runner, spec: spec.normalized()}
}

// Name implements Encoder.
func (e *ExecEncoder) Name() string { return "exec" }

// Encode implements Encoder.
func (e *ExecEncoder) Encode(ctx context.Context, in Input) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	framePaths := make([]string, len(in.Frames))
	for i, frame := range in.Frames {
		path := filepath.Join(in.WorkDir, fmt.Sprintf("frame-%03d.jpg", i))
		if err := os.WriteFile(path, frame.Encoded, 0o644); err != nil {
			return nil, fmt.Errorf("%w: write frame %d: %v", ErrEncode, i, err)
		}
		framePaths[i] = path
	}

	list, err := in.Timeline.ConcatList(framePaths)
	if err != nil {
		return nil, classify(err)
	}
	listPath := filepath.Join(in.WorkDir, "frames.txt")
	if err := os.WriteFile(listPath, []byte(list), 0o644); err != nil {
		return nil, fmt.Errorf("%w: write concat list: %v", ErrEncode, err)
	}

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
	}
	hasAudio := in.AudioPath != ""
	if hasAudio {
		args = append(args, "-i", in.AudioPath)
	}
	// Ladder rungs may have shrunk individual frames, so scale everything
	// back to the full canvas before encoding.
	scale := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,fps=%d",
		e.spec.Width, e.spec.Height, e.spec.Width, e.spec.Height, e.spec.FPS)
	args = append(args,
		"-vf", scale,
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

	if err := e.runner.Run(ctx, args); err != nil {
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
