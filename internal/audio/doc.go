// Package audio conditions narration tracks into the single fixed profile
// the muxer expects, so the mux step can always stream-copy instead of
// negotiating codecs per input.
package audio
