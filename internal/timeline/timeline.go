package timeline

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrLengthMismatch reports that the number of frames does not match the
// number of scene durations.
var ErrLengthMismatch = errors.New("frame and scene counts differ")

// Entry pairs a frame reference with how long it stays on screen. The final
// entry always repeats the last frame with a zero duration, which keeps the
// last image visible while trailing audio plays out.
type Entry struct {
	FrameIndex int
	Duration   float64
}

// Timeline is the ordered display plan for a render.
type Timeline struct {
	Entries []Entry
}

// Build validates frame and duration counts and produces the display plan.
// The result always has len(durations)+1 entries: one per scene plus the
// trailing repeat of the final frame.
func Build(frameCount int, durations []float64) (*Timeline, error) {
	if frameCount != len(durations) {
		return nil, fmt.Errorf("timeline: %w: %d frames, %d durations", ErrLengthMismatch, frameCount, len(durations))
	}
	if frameCount == 0 {
		return nil, errors.New("timeline: no scenes")
	}
	entries := make([]Entry, 0, frameCount+1)
	for i, d := range durations {
		if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return nil, fmt.Errorf("timeline: scene %d has invalid duration %g", i+1, d)
		}
		entries = append(entries, Entry{FrameIndex: i, Duration: d})
	}
	entries = append(entries, Entry{FrameIndex: frameCount - 1, Duration: 0})
	return &Timeline{Entries: entries}, nil
}

// Total is the visual duration in seconds: the sum of all entry durations.
func (t *Timeline) Total() float64 {
	var total float64
	for _, e := range t.Entries {
		total += e.Duration
	}
	return total
}

// ConcatList renders the timeline as an ffmpeg concat demuxer script over
// the supplied frame file paths. Every entry gets a file line; all but the
// last also get a duration line, matching the demuxer's convention that the
// final entry's duration is implied.
func (t *Timeline) ConcatList(framePaths []string) (string, error) {
	var b strings.Builder
	b.WriteString("ffconcat version 1.0\n")
	for i, entry := range t.Entries {
		if entry.FrameIndex < 0 || entry.FrameIndex >= len(framePaths) {
			return "", fmt.Errorf("timeline: entry %d references frame %d of %d", i, entry.FrameIndex, len(framePaths))
		}
		fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(framePaths[entry.FrameIndex]))
		if i < len(t.Entries)-1 {
			fmt.Fprintf(&b, "duration %g\n", entry.Duration)
		}
	}
	return b.String(), nil
}

// FrameSchedule expands the timeline into per-frame indices at the given
// frame rate, for backends that stream raw frames instead of using the
// concat demuxer. The trailing zero-duration entry contributes one frame so
// the final image is flushed.
func (t *Timeline) FrameSchedule(fps int) ([]int, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("timeline: invalid fps %d", fps)
	}
	var schedule []int
	for _, entry := range t.Entries {
		count := int(math.Round(entry.Duration * float64(fps)))
		if entry.Duration == 0 {
			count = 1
		}
		for i := 0; i < count; i++ {
			schedule = append(schedule, entry.FrameIndex)
		}
	}
	return schedule, nil
}

func escapeConcatPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}
