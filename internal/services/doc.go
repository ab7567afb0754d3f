// Package services holds shared helpers for external collaborator clients:
// error classification sentinels, stage-aware error wrapping, and context
// annotation for job/stage/run correlation.
//
// Subpackages wrap the concrete collaborators: script (LLM script
// generation), images (search and download), tts (narration synthesis),
// and ffmpeg (encode/probe process execution).
package services
