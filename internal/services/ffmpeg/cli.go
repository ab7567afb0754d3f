package ffmpeg

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// stderrTailBytes bounds how much encoder chatter is retained for diagnostics.
const stderrTailBytes = 8 * 1024

// Option configures the CLI runner.
type Option func(*CLI)

// WithFFmpegBinary overrides the default ffmpeg binary name.
func WithFFmpegBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.ffmpegBin = binary
		}
	}
}

// WithFFprobeBinary overrides the default ffprobe binary name.
func WithFFprobeBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.ffprobeBin = binary
		}
	}
}

// CLI wraps the ffmpeg and ffprobe command-line tools.
type CLI struct {
	ffmpegBin  string
	ffprobeBin string
}

// NewCLI constructs a CLI runner using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{ffmpegBin: "ffmpeg", ffprobeBin: "ffprobe"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Run executes ffmpeg, retaining a bounded stderr tail on failure.
func (c *CLI) Run(ctx context.Context, args []string) error {
	return c.RunInput(ctx, nil, args)
}

// RunInput executes ffmpeg with stdin connected to input.
func (c *CLI) RunInput(ctx context.Context, input io.Reader, args []string) error {
	cmd := commandContext(ctx, c.ffmpegBin, args...) //nolint:gosec
	if input != nil {
		cmd.Stdin = input
	}
	tail := &tailWriter{limit: stderrTailBytes}
	cmd.Stderr = tail

	if err := cmd.Run(); err != nil {
		return &Error{Binary: c.ffmpegBin, Args: args, Stderr: tail.String(), Err: err}
	}
	return nil
}

// ProbeDuration returns the container duration of path in seconds.
func (c *CLI) ProbeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	cmd := commandContext(ctx, c.ffprobeBin, args...) //nolint:gosec
	var stdout bytes.Buffer
	tail := &tailWriter{limit: stderrTailBytes}
	cmd.Stdout = &stdout
	cmd.Stderr = tail

	if err := cmd.Run(); err != nil {
		return 0, &Error{Binary: c.ffprobeBin, Args: args, Stderr: tail.String(), Err: err}
	}

	text := strings.TrimSpace(stdout.String())
	duration, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, &Error{Binary: c.ffprobeBin, Args: args, Stderr: "unparseable duration " + strconv.Quote(text), Err: err}
	}
	return duration, nil
}

// tailWriter keeps only the last limit bytes written to it.
type tailWriter struct {
	limit int
	buf   []byte
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	if len(w.buf) > w.limit {
		w.buf = w.buf[len(w.buf)-w.limit:]
	}
	return len(p), nil
}

func (w *tailWriter) String() string {
	return string(w.buf)
}
