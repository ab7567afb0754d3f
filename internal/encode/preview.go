package encode

import (
	"context"
	"fmt"
	"strings"

	"github.com/icza/mjpeg"

	"reelsmith/internal/imaging"
)

const previewFrameQuality = 80

// PreviewEncoder writes a silent Motion-JPEG AVI without any external
// process. It exists for fast local iteration on framing and captions when
// no ffmpeg binary is installed; audio is deliberately skipped.
type PreviewEncoder struct {
	spec OutputSpec
}

// NewPreviewEncoder builds the pure-Go preview backend.
func NewPreviewEncoder(spec OutputSpec) *PreviewEncoder {
	return &PreviewEncoder{spec: spec.normalized()}
}

// Name implements Encoder.
func (e *PreviewEncoder) Name() string { return "preview" }

// Encode implements Encoder.
func (e *PreviewEncoder) Encode(ctx context.Context, in Input) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	schedule, err := in.Timeline.FrameSchedule(e.spec.FPS)
	if err != nil {
		return nil, classify(err)
	}

	outputPath := in.OutputPath
	if !strings.HasSuffix(outputPath, ".avi") {
		outputPath = strings.TrimSuffix(outputPath, ".mp4") + ".avi"
	}
	writer, err := mjpeg.New(outputPath, int32(e.spec.Width), int32(e.spec.Height), int32(e.spec.FPS))
	if err != nil {
		return nil, fmt.Errorf("%w: open avi: %v", ErrEncode, err)
	}

	encoded := make([][]byte, len(in.Frames))
	for _, idx := range schedule {
		if err := ctx.Err(); err != nil {
			writer.Close()
			return nil, err
		}
		if encoded[idx] == nil {
			data, err := imaging.EncodeJPEG(in.Frames[idx].Raster, previewFrameQuality)
			if err != nil {
				writer.Close()
				return nil, fmt.Errorf("%w: encode frame %d: %v", ErrEncode, idx, err)
			}
			encoded[idx] = data
		}
		if err := writer.AddFrame(encoded[idx]); err != nil {
			writer.Close()
			return nil, fmt.Errorf("%w: add frame: %v", ErrEncode, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%w: finalize avi: %v", ErrEncode, err)
	}

	return &Result{
		Path:     outputPath,
		Duration: in.Timeline.Total(),
		Warnings: []string{"preview backend produces silent motion-jpeg output"},
	}, nil
}
