package timeline

import (
	"errors"
	"strings"
	"testing"
)

func TestBuildAppendsTrailingRepeat(t *testing.T) {
	tl, err := Build(3, []float64{7, 7, 6})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(tl.Entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(tl.Entries))
	}
	last := tl.Entries[3]
	if last.FrameIndex != 2 || last.Duration != 0 {
		t.Fatalf("unexpected trailing entry %+v", last)
	}
	if tl.Total() != 20 {
		t.Fatalf("expected total 20, got %g", tl.Total())
	}
}

func TestBuildSingleScene(t *testing.T) {
	tl, err := Build(1, []float64{20})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(tl.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(tl.Entries))
	}
	if tl.Entries[1].FrameIndex != 0 {
		t.Fatalf("trailing entry should repeat frame 0, got %d", tl.Entries[1].FrameIndex)
	}
}

func TestBuildLengthMismatch(t *testing.T) {
	_, err := Build(2, []float64{7, 7, 6})
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
	_, err = Build(4, []float64{7, 7, 6})
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestBuildRejectsInvalidDurations(t *testing.T) {
	for _, durations := range [][]float64{{0}, {-1}, {7, 0, 6}} {
		if _, err := Build(len(durations), durations); err == nil {
			t.Fatalf("expected error for durations %v", durations)
		}
	}
	if _, err := Build(0, nil); err == nil {
		t.Fatal("expected error for zero scenes")
	}
}

func TestConcatListFormat(t *testing.T) {
	tl, err := Build(2, []float64{7, 13})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	list, err := tl.ConcatList([]string{"/tmp/f0.jpg", "/tmp/f1.jpg"})
	if err != nil {
		t.Fatalf("ConcatList failed: %v", err)
	}
	want := "ffconcat version 1.0\n" +
		"file '/tmp/f0.jpg'\n" +
		"duration 7\n" +
		"file '/tmp/f1.jpg'\n" +
		"duration 13\n" +
		"file '/tmp/f1.jpg'\n"
	if list != want {
		t.Fatalf("unexpected concat list:\n%s\nwant:\n%s", list, want)
	}
}

func TestConcatListEscapesQuotes(t *testing.T) {
	tl, err := Build(1, []float64{5})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	list, err := tl.ConcatList([]string{"/tmp/it's.jpg"})
	if err != nil {
		t.Fatalf("ConcatList failed: %v", err)
	}
	if !strings.Contains(list, `it'\''s`) {
		t.Fatalf("quote not escaped:\n%s", list)
	}
}

func TestConcatListRejectsShortPaths(t *testing.T) {
	tl, err := Build(2, []float64{7, 13})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if _, err := tl.ConcatList([]string{"/tmp/f0.jpg"}); err == nil {
		t.Fatal("expected error for missing frame path")
	}
}

func TestFrameSchedule(t *testing.T) {
	tl, err := Build(2, []float64{1, 0.5})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	schedule, err := tl.FrameSchedule(10)
	if err != nil {
		t.Fatalf("FrameSchedule failed: %v", err)
	}
	// 10 frames of scene 0, 5 of scene 1, plus the trailing repeat.
	if len(schedule) != 16 {
		t.Fatalf("expected 16 scheduled frames, got %d", len(schedule))
	}
	if schedule[0] != 0 || schedule[9] != 0 {
		t.Fatal("scene 0 frames wrong")
	}
	if schedule[10] != 1 || schedule[15] != 1 {
		t.Fatal("scene 1 frames wrong")
	}

	if _, err := tl.FrameSchedule(0); err == nil {
		t.Fatal("expected error for zero fps")
	}
}
