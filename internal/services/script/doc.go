// Package script generates structured video scripts from a user prompt via a
// chat completions API. The model returns narration text plus a scene
// breakdown (duration, image search keywords, on-screen caption) which the
// rest of the pipeline consumes.
package script
