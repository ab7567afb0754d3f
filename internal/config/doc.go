// Package config loads, normalizes, and validates Reelsmith configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PEXELS_API_KEY or ELEVENLABS_API_KEY (optionally sourced from a .env
// file). The Config type centralizes every knob the daemon and CLI need,
// from image-search credentials to the frame compression ladder.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical backend names, and clear validation errors.
package config
