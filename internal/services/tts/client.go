package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.elevenlabs.io/v1"

// DefaultVoiceID is the stock narrator voice used when none is configured.
const DefaultVoiceID = "IKne3meq5aSn9XLyUdCD"

// DefaultModelID is the synthesis model used when none is configured.
const DefaultModelID = "eleven_turbo_v2_5"

// Config captures the runtime settings for speech synthesis.
type Config struct {
	APIKey         string
	BaseURL        string
	VoiceID        string
	ModelID        string
	TimeoutSeconds int
}

// Client wraps the ElevenLabs text-to-speech API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a TTS client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := 60 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			VoiceID:        strings.TrimSpace(cfg.VoiceID),
			ModelID:        strings.TrimSpace(cfg.ModelID),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.VoiceID == "" {
		client.cfg.VoiceID = DefaultVoiceID
	}
	if client.cfg.ModelID == "" {
		client.cfg.ModelID = DefaultModelID
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: timeout}
	}
	return client
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// Synthesize converts narration text to speech audio and returns the raw
// encoded bytes (MP3 unless the account is configured otherwise).
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("tts synthesize: text required")
	}
	if c.cfg.APIKey == "" {
		return nil, errors.New("tts synthesize: api key required")
	}

	payload, err := json.Marshal(synthesisRequest{
		Text:    text,
		ModelID: c.cfg.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       0.35,
			SimilarityBoost: 0.75,
			Style:           0.75,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("tts synthesize: encode body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s", c.cfg.BaseURL, c.cfg.VoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("tts synthesize: new request: %w", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts synthesize: http error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tts synthesize: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts synthesize: read body: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("tts synthesize: empty audio response")
	}
	return audio, nil
}
