// Package overlay rasterizes caption and subtitle bands directly onto frames,
// so every encoder backend gets identical text without depending on drawtext
// filter availability. Caption text is sanitized and uppercased; long
// captions shrink to fit, subtitles wrap, and the two bands never overlap.
package overlay
