package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Runner defines the ffmpeg/ffprobe behaviour the pipeline needs. The CLI
// implementation shells out; tests substitute fakes.
type Runner interface {
	// Run executes ffmpeg with the given arguments.
	Run(ctx context.Context, args []string) error
	// RunInput executes ffmpeg with stdin connected to input, for piped
	// frame streaming.
	RunInput(ctx context.Context, input io.Reader, args []string) error
	// ProbeDuration returns the container duration of a media file in seconds.
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// Error captures a failed ffmpeg/ffprobe invocation with enough diagnostic
// detail for callers to classify the failure.
type Error struct {
	Binary string
	Args   []string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	tail := strings.TrimSpace(e.Stderr)
	if tail == "" {
		return fmt.Sprintf("%s: %v", e.Binary, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Binary, e.Err, lastLines(tail, 3))
}

func (e *Error) Unwrap() error { return e.Err }

// AsError unwraps err into an *Error when one is present.
func AsError(err error) (*Error, bool) {
	var ffErr *Error
	if errors.As(err, &ffErr) {
		return ffErr, true
	}
	return nil, false
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, " | ")
}
