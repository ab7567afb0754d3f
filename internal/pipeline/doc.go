// Package pipeline orchestrates a full render: normalize and caption every
// scene image, condition the narration track, build the display timeline, and
// hand the assembled plan to an encoder backend. Frame preparation and audio
// conditioning run concurrently; the first failure aborts the run, and the
// scratch workspace is removed on every exit path.
package pipeline
