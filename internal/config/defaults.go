package config

const (
	defaultStagingDir = "~/.local/share/reelsmith/staging"
	defaultLibraryDir = "~/.local/share/reelsmith/videos"
	defaultLogDir     = "~/.local/share/reelsmith/logs"
	defaultAPIBind    = "127.0.0.1:7848"

	defaultScriptBaseURL        = "https://api.x.ai/v1/chat/completions"
	defaultScriptModel          = "grok-4-1-fast-non-reasoning"
	defaultScriptTemperature    = 0.9
	defaultScriptTimeoutSeconds = 60
	defaultScriptMaxScenes      = 3

	defaultImageFetchTimeout  = 20
	defaultMaxDownloadBytes   = 16 << 20
	defaultTTSBaseURL         = "https://api.elevenlabs.io/v1"
	defaultTTSVoiceID         = "IKne3meq5aSn9XLyUdCD"
	defaultTTSModel           = "eleven_turbo_v2_5"
	defaultTTSTimeoutSeconds  = 60
	defaultVideoWidth         = 1080
	defaultVideoHeight        = 1920
	defaultVideoFPS           = 30
	defaultFrameSizeBudget    = 500 * 1024
	defaultCaptionFontSize    = 80
	defaultSubtitleFontSize   = 44
	defaultVideoBackend       = "exec"
	defaultVideoPreset        = "medium"
	defaultVideoCRF           = 23
	defaultParallelism        = 3
	defaultMemoryCeilingBytes = 256 << 20

	defaultAudioCodec      = "aac"
	defaultAudioBitrate    = "128k"
	defaultAudioSampleRate = 44100
	defaultAudioChannels   = 2

	defaultQueuePollInterval = 5
	defaultTempRetentionMins = 60

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// defaultLadder mirrors the stock compression ladder: strictly decreasing
// width and quality so every retry is guaranteed to shrink.
func defaultLadder() []LadderLevel {
	return []LadderLevel{
		{MaxWidth: 1080, Quality: 82},
		{MaxWidth: 960, Quality: 74},
		{MaxWidth: 840, Quality: 66},
		{MaxWidth: 720, Quality: 58},
		{MaxWidth: 600, Quality: 50},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Script: Script{
			BaseURL:        defaultScriptBaseURL,
			Model:          defaultScriptModel,
			Temperature:    defaultScriptTemperature,
			TimeoutSeconds: defaultScriptTimeoutSeconds,
			MaxScenes:      defaultScriptMaxScenes,
		},
		Images: Images{
			Providers:        []string{"pexels", "serper"},
			FetchTimeout:     defaultImageFetchTimeout,
			MaxDownloadBytes: defaultMaxDownloadBytes,
		},
		TTS: TTS{
			BaseURL:        defaultTTSBaseURL,
			VoiceID:        defaultTTSVoiceID,
			Model:          defaultTTSModel,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
		},
		Video: Video{
			Width:              defaultVideoWidth,
			Height:             defaultVideoHeight,
			FPS:                defaultVideoFPS,
			FrameSizeBudget:    defaultFrameSizeBudget,
			Ladder:             defaultLadder(),
			CaptionFontSize:    defaultCaptionFontSize,
			SubtitleFontSize:   defaultSubtitleFontSize,
			Subtitles:          true,
			Backend:            defaultVideoBackend,
			Preset:             defaultVideoPreset,
			CRF:                defaultVideoCRF,
			Parallelism:        defaultParallelism,
			MemoryCeilingBytes: defaultMemoryCeilingBytes,
		},
		Audio: Audio{
			Codec:      defaultAudioCodec,
			Bitrate:    defaultAudioBitrate,
			SampleRate: defaultAudioSampleRate,
			Channels:   defaultAudioChannels,
		},
		Workflow: Workflow{
			QueuePollInterval: defaultQueuePollInterval,
			TempRetentionMins: defaultTempRetentionMins,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
