package config

import (
	"errors"
	"fmt"
)

var validBackends = map[string]struct{}{
	"exec":    {},
	"piped":   {},
	"preview": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateImages(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateImages() error {
	for _, provider := range c.Images.Providers {
		switch provider {
		case "pexels", "serper", "imgur":
		default:
			return fmt.Errorf("images.providers: unknown provider %q (expected pexels, serper, or imgur)", provider)
		}
	}
	return nil
}

func (c *Config) validateVideo() error {
	if _, ok := validBackends[c.Video.Backend]; !ok {
		return fmt.Errorf("video.backend: unsupported value %q (expected exec, piped, or preview)", c.Video.Backend)
	}
	if c.Video.Width%2 != 0 || c.Video.Height%2 != 0 {
		return errors.New("video.width and video.height must be even for yuv420p output")
	}
	prevWidth, prevQuality := c.Video.Ladder[0].MaxWidth, c.Video.Ladder[0].Quality
	if prevWidth <= 0 || prevQuality <= 0 || prevQuality > 100 {
		return errors.New("video.ladder: max_width must be positive and quality in 1..100")
	}
	for _, level := range c.Video.Ladder[1:] {
		if level.MaxWidth <= 0 || level.Quality <= 0 || level.Quality > 100 {
			return errors.New("video.ladder: max_width must be positive and quality in 1..100")
		}
		if level.MaxWidth >= prevWidth || level.Quality >= prevQuality {
			return errors.New("video.ladder: levels must strictly decrease in both max_width and quality")
		}
		prevWidth, prevQuality = level.MaxWidth, level.Quality
	}
	if c.Video.CRF < 0 || c.Video.CRF > 51 {
		return errors.New("video.crf must be between 0 and 51")
	}
	return nil
}

func (c *Config) validateAudio() error {
	switch c.Audio.Codec {
	case "aac", "libmp3lame", "libopus":
	default:
		return fmt.Errorf("audio.codec: unsupported value %q", c.Audio.Codec)
	}
	if c.Audio.Channels > 2 {
		return errors.New("audio.channels must be 1 or 2")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (expected console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
