// Package tts synthesizes narration audio from script text via the ElevenLabs
// API. The returned bytes are handed to the audio conditioner, which owns
// decode and transcode, so this package treats them as opaque.
package tts
