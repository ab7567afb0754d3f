package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LibraryDir string `toml:"library_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// Script contains configuration for the LLM script provider.
type Script struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MaxScenes      int     `toml:"max_scenes"`
}

// Images contains configuration for image search and download.
type Images struct {
	// Providers lists search providers ("pexels", "serper", "imgur") tried
	// in order until one returns a usable result.
	Providers        []string `toml:"providers"`
	PexelsAPIKey     string   `toml:"pexels_api_key"`
	SerperAPIKey     string   `toml:"serper_api_key"`
	ImgurClientID    string   `toml:"imgur_client_id"`
	FetchTimeout     int      `toml:"fetch_timeout"`
	MaxDownloadBytes int64    `toml:"max_download_bytes"`
}

// TTS contains configuration for the narration text-to-speech provider.
type TTS struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	VoiceID        string `toml:"voice_id"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LadderLevel is one rung of the frame compression ladder: frames are
// re-encoded at descending width/quality until one fits the size budget.
type LadderLevel struct {
	MaxWidth int `toml:"max_width"`
	Quality  int `toml:"quality"`
}

// Video contains configuration for the visual half of the pipeline.
type Video struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
	FPS    int `toml:"fps"`

	// FrameSizeBudget is the soft byte ceiling for each normalized frame.
	// Exhausting the ladder without meeting it is a warning, not a failure.
	FrameSizeBudget int           `toml:"frame_size_budget"`
	Ladder          []LadderLevel `toml:"ladder"`

	CaptionFontSize  float64 `toml:"caption_font_size"`
	SubtitleFontSize float64 `toml:"subtitle_font_size"`
	FontPath         string  `toml:"font_path"`
	Subtitles        bool    `toml:"subtitles"`

	// Backend selects the encoder: "exec" (ffmpeg with temp files), "piped"
	// (ffmpeg with frames streamed over stdin, fully sequential), or
	// "preview" (pure-Go MJPEG, no audio track).
	Backend     string `toml:"backend"`
	Preset      string `toml:"preset"`
	CRF         int    `toml:"crf"`
	Parallelism int    `toml:"parallelism"`

	// MemoryCeilingBytes bounds total input bytes accepted by the piped
	// backend before a run is rejected as resource-exhausted.
	MemoryCeilingBytes int64 `toml:"memory_ceiling_bytes"`
}

// Audio contains the fixed target profile narration audio is conditioned to.
type Audio struct {
	Codec      string `toml:"codec"`
	Bitrate    string `toml:"bitrate"`
	SampleRate int    `toml:"sample_rate"`
	Channels   int    `toml:"channels"`
}

// Workflow contains configuration for daemon timing and retention.
type Workflow struct {
	QueuePollInterval int `toml:"queue_poll_interval"`
	TempRetentionMins int `toml:"temp_retention_minutes"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Reelsmith.
//
// Configuration sections by subsystem:
//   - Paths: staging/library/log directories and API bind address
//   - Script: LLM script generation connection settings
//   - Images: image search providers and download limits
//   - TTS: narration text-to-speech provider
//   - Video: frame geometry, compression ladder, overlay fonts, encoder backend
//   - Audio: target narration profile (codec/bitrate/sample rate)
//   - Workflow: daemon polling and temp retention
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Script   Script   `toml:"script"`
	Images   Images   `toml:"images"`
	TTS      TTS      `toml:"tts"`
	Video    Video    `toml:"video"`
	Audio    Audio    `toml:"audio"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelsmith/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. A .env file in the
// working directory supplies credential fallbacks before env lookups run.
func Load(path string) (*Config, string, bool, error) {
	_ = godotenv.Load()

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelsmith.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// LibraryDir is created on a best-effort basis so the daemon can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
