// Package encode turns a render plan (captioned frames, timeline, conditioned
// narration) into the final video file. Three backends share that plan: exec
// writes frame files and uses the concat demuxer, piped streams JPEG frames
// over stdin under a memory ceiling, and preview emits a silent motion-jpeg
// AVI with no external process at all. Output parameters (libx264, yuv420p,
// faststart, shortest-stream mux) are identical for the two ffmpeg backends.
package encode
