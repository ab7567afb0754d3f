package services

import (
	"errors"
	"fmt"
	"strings"

	"reelsmith/internal/queue"
)

// Sentinel markers for classifying stage failures. Wrap tags errors with one
// of these so the workflow manager can decide whether a failed job needs a
// human (bad prompt, missing API key) or can simply be retried after the
// underlying condition clears (flaky provider, ffmpeg crash).
var (
	// ErrExternalTool marks a spawned tool failing, ffmpeg and ffprobe
	// being the usual suspects.
	ErrExternalTool = errors.New("external tool failed")
	// ErrValidation marks job input that cannot produce a video: empty
	// scripts, zero-duration scenes, captions that sanitize to nothing.
	ErrValidation = errors.New("unusable job input")
	// ErrConfiguration marks missing or contradictory settings, such as a
	// provider listed without its API key.
	ErrConfiguration = errors.New("configuration problem")
	// ErrNotFound marks a missing job, asset, or rendered artifact.
	ErrNotFound = errors.New("not found")
	// ErrTimeout marks a deadline overrun on a provider call or download.
	ErrTimeout = errors.New("timed out")
	// ErrTransient marks failures a later attempt may clear.
	ErrTransient = errors.New("transient failure")
)

// Wrap tags err with the given marker and prefixes stage context so queue
// error messages read "scripting: parse response: ...". A nil marker
// defaults to ErrTransient.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := failureDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStatus maps a stage error to the terminal status the workflow
// manager persists. Input and setup problems land in review because
// re-running the job cannot fix them; everything else is a plain failure
// eligible for retry.
func FailureStatus(err error) queue.Status {
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrConfiguration) || errors.Is(err, ErrNotFound) {
		return queue.StatusReview
	}
	return queue.StatusFailed
}

func failureDetail(stage, operation, message string) string {
	var b strings.Builder
	for _, part := range []string{stage, operation, message} {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(part)
	}
	if b.Len() == 0 {
		return "stage failure"
	}
	return b.String()
}
