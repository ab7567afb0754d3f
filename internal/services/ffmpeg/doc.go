// Package ffmpeg executes the ffmpeg and ffprobe command-line tools.
//
// The Runner interface is what the audio conditioner and encoder backends
// program against; CLI is the production implementation with bounded stderr
// capture so failures carry enough diagnostic detail to separate bad input
// media from resource exhaustion and encoder crashes.
package ffmpeg
