package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScript()
	c.normalizeImages()
	c.normalizeTTS()
	if err := c.normalizeVideo(); err != nil {
		return err
	}
	c.normalizeAudio()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeScript() {
	if c.Script.APIKey == "" {
		if value, ok := os.LookupEnv("GROK_API_KEY"); ok {
			c.Script.APIKey = strings.TrimSpace(value)
		}
	}
	c.Script.BaseURL = strings.TrimSpace(c.Script.BaseURL)
	if c.Script.BaseURL == "" {
		c.Script.BaseURL = defaultScriptBaseURL
	}
	c.Script.Model = strings.TrimSpace(c.Script.Model)
	if c.Script.Model == "" {
		c.Script.Model = defaultScriptModel
	}
	if c.Script.TimeoutSeconds <= 0 {
		c.Script.TimeoutSeconds = defaultScriptTimeoutSeconds
	}
	if c.Script.MaxScenes <= 0 {
		c.Script.MaxScenes = defaultScriptMaxScenes
	}
}

func (c *Config) normalizeImages() {
	if c.Images.PexelsAPIKey == "" {
		if value, ok := os.LookupEnv("PEXELS_API_KEY"); ok {
			c.Images.PexelsAPIKey = strings.TrimSpace(value)
		}
	}
	if c.Images.SerperAPIKey == "" {
		if value, ok := os.LookupEnv("SERPER_API_KEY"); ok {
			c.Images.SerperAPIKey = strings.TrimSpace(value)
		}
	}
	if c.Images.ImgurClientID == "" {
		if value, ok := os.LookupEnv("IMGUR_CLIENT_ID"); ok {
			c.Images.ImgurClientID = strings.TrimSpace(value)
		}
	}
	if len(c.Images.Providers) == 0 {
		c.Images.Providers = []string{"pexels", "serper"}
	}
	for i, provider := range c.Images.Providers {
		c.Images.Providers[i] = strings.ToLower(strings.TrimSpace(provider))
	}
	if c.Images.FetchTimeout <= 0 {
		c.Images.FetchTimeout = defaultImageFetchTimeout
	}
	if c.Images.MaxDownloadBytes <= 0 {
		c.Images.MaxDownloadBytes = defaultMaxDownloadBytes
	}
}

func (c *Config) normalizeTTS() {
	if c.TTS.APIKey == "" {
		if value, ok := os.LookupEnv("ELEVENLABS_API_KEY"); ok {
			c.TTS.APIKey = strings.TrimSpace(value)
		}
	}
	c.TTS.BaseURL = strings.TrimSpace(c.TTS.BaseURL)
	if c.TTS.BaseURL == "" {
		c.TTS.BaseURL = defaultTTSBaseURL
	}
	if strings.TrimSpace(c.TTS.VoiceID) == "" {
		c.TTS.VoiceID = defaultTTSVoiceID
	}
	if strings.TrimSpace(c.TTS.Model) == "" {
		c.TTS.Model = defaultTTSModel
	}
	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeoutSeconds
	}
}

func (c *Config) normalizeVideo() error {
	if c.Video.Width <= 0 {
		c.Video.Width = defaultVideoWidth
	}
	if c.Video.Height <= 0 {
		c.Video.Height = defaultVideoHeight
	}
	if c.Video.FPS <= 0 {
		c.Video.FPS = defaultVideoFPS
	}
	if c.Video.FrameSizeBudget <= 0 {
		c.Video.FrameSizeBudget = defaultFrameSizeBudget
	}
	if len(c.Video.Ladder) == 0 {
		c.Video.Ladder = defaultLadder()
	}
	if c.Video.CaptionFontSize <= 0 {
		c.Video.CaptionFontSize = defaultCaptionFontSize
	}
	if c.Video.SubtitleFontSize <= 0 {
		c.Video.SubtitleFontSize = defaultSubtitleFontSize
	}
	if c.Video.FontPath != "" {
		expanded, err := expandPath(c.Video.FontPath)
		if err != nil {
			return fmt.Errorf("video.font_path: %w", err)
		}
		c.Video.FontPath = expanded
	}
	c.Video.Backend = strings.ToLower(strings.TrimSpace(c.Video.Backend))
	if c.Video.Backend == "" {
		c.Video.Backend = defaultVideoBackend
	}
	c.Video.Preset = strings.TrimSpace(c.Video.Preset)
	if c.Video.Preset == "" {
		c.Video.Preset = defaultVideoPreset
	}
	if c.Video.CRF <= 0 {
		c.Video.CRF = defaultVideoCRF
	}
	if c.Video.Parallelism <= 0 {
		c.Video.Parallelism = defaultParallelism
	}
	if c.Video.MemoryCeilingBytes <= 0 {
		c.Video.MemoryCeilingBytes = defaultMemoryCeilingBytes
	}
	return nil
}

func (c *Config) normalizeAudio() {
	c.Audio.Codec = strings.ToLower(strings.TrimSpace(c.Audio.Codec))
	if c.Audio.Codec == "" {
		c.Audio.Codec = defaultAudioCodec
	}
	c.Audio.Bitrate = strings.ToLower(strings.TrimSpace(c.Audio.Bitrate))
	if c.Audio.Bitrate == "" {
		c.Audio.Bitrate = defaultAudioBitrate
	}
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = defaultAudioSampleRate
	}
	if c.Audio.Channels <= 0 {
		c.Audio.Channels = defaultAudioChannels
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.TempRetentionMins <= 0 {
		c.Workflow.TempRetentionMins = defaultTempRetentionMins
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
