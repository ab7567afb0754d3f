package audio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"reelsmith/internal/services/ffmpeg"
)

// ErrAudioDecode reports that the narration input could not be parsed as
// audio at all.
var ErrAudioDecode = errors.New("audio input unreadable")

// ErrTranscode reports that decodable input failed to convert to the target
// profile.
var ErrTranscode = errors.New("audio transcode failed")

// Profile is the fixed output encoding every narration track is conditioned
// to before muxing.
type Profile struct {
	Codec      string
	Bitrate    string
	SampleRate int
	Channels   int
}

// DefaultProfile returns the stock AAC stereo profile.
func DefaultProfile() Profile {
	return Profile{Codec: "aac", Bitrate: "192k", SampleRate: 44100, Channels: 2}
}

func (p Profile) normalized() Profile {
	out := p
	if out.Codec == "" {
		out.Codec = "aac"
	}
	if out.Bitrate == "" {
		out.Bitrate = "192k"
	}
	if out.SampleRate <= 0 {
		out.SampleRate = 44100
	}
	if out.Channels <= 0 {
		out.Channels = 2
	}
	return out
}

// Extension reports the container extension matching the profile codec.
func (p Profile) Extension() string {
	switch p.normalized().Codec {
	case "libmp3lame":
		return ".mp3"
	case "libopus":
		return ".opus"
	default:
		return ".m4a"
	}
}

// Conditioned is a narration track converted to the target profile.
type Conditioned struct {
	Path     string
	Duration float64
}

// Conditioner converts narration audio of whatever format the synthesizer
// produced into the fixed mux profile.
type Conditioner struct {
	runner  ffmpeg.Runner
	profile Profile
}

// NewConditioner builds a conditioner over the supplied runner.
func NewConditioner(runner ffmpeg.Runner, profile Profile) *Conditioner {
	return &Conditioner{runner: runner, profile: profile.normalized()}
}

// Condition transcodes inputPath into outDir and probes the result's
// duration. Unreadable input maps to ErrAudioDecode, conversion failures to
// ErrTranscode.
func (c *Conditioner) Condition(ctx context.Context, inputPath, outDir string) (*Conditioned, error) {
	if strings.TrimSpace(inputPath) == "" {
		return nil, fmt.Errorf("%w: no input path", ErrAudioDecode)
	}
	outPath := filepath.Join(outDir, "narration"+c.profile.Extension())
	args := []string{
		"-y",
		"-i", inputPath,
		"-vn",
		"-c:a", c.profile.Codec,
		"-b:a", c.profile.Bitrate,
		"-ar", fmt.Sprintf("%d", c.profile.SampleRate),
		"-ac", fmt.Sprintf("%d", c.profile.Channels),
		outPath,
	}
	if err := c.runner.Run(ctx, args); err != nil {
		return nil, classify(err)
	}
	duration, err := c.runner.ProbeDuration(ctx, outPath)
	if err != nil {
		return nil, fmt.Errorf("%w: probe duration: %v", ErrTranscode, err)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w: zero-length output", ErrTranscode)
	}
	return &Conditioned{Path: outPath, Duration: duration}, nil
}

// decodeMarkers are stderr fragments that indicate the input itself could
// not be read, as opposed to a failure converting it.
var decodeMarkers = []string{
	"invalid data found when processing input",
	"header missing",
	"could not find codec parameters",
	"end of file",
	"no such file or directory",
	"invalid audio stream",
	"does not contain any stream",
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if ffErr, ok := ffmpeg.AsError(err); ok {
		stderr := strings.ToLower(ffErr.Stderr)
		for _, marker := range decodeMarkers {
			if strings.Contains(stderr, marker) {
				return fmt.Errorf("%w: %v", ErrAudioDecode, err)
			}
		}
	}
	return fmt.Errorf("%w: %v", ErrTranscode, err)
}
