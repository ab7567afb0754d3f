// Package timeline turns per-scene durations into a display plan shared by
// every encoder backend. The plan duplicates the final frame with zero
// duration, which is what makes the last image hold on screen instead of
// cutting to black when the narration outlasts the scenes.
package timeline
