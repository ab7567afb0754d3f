package images

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

const defaultSerperBaseURL = "https://google.serper.dev"

// SerperClient searches Google Images through the Serper API.
type SerperClient struct {
	apiKey     string
	baseURL    string
	resultNum  int
	httpClient *http.Client
}

// SerperOption customizes the Serper client.
type SerperOption func(*SerperClient)

// WithSerperHTTPClient overrides the default HTTP client.
func WithSerperHTTPClient(client *http.Client) SerperOption {
	return func(c *SerperClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSerperBaseURL overrides the API endpoint (useful for tests).
func WithSerperBaseURL(baseURL string) SerperOption {
	return func(c *SerperClient) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewSerperClient constructs a Serper image search provider.
func NewSerperClient(apiKey string, opts ...SerperOption) *SerperClient {
	client := &SerperClient{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    defaultSerperBaseURL,
		resultNum:  10,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Name implements Provider.
func (c *SerperClient) Name() string { return "serper" }

type serperSearchResponse struct {
	Images []struct {
		ImageURL string `json:"imageUrl"`
		Source   string `json:"source"`
	} `json:"images"`
}

// Search implements Provider. Results whose URLs do not look like decodable
// image files are filtered out before ranking.
func (c *SerperClient) Search(ctx context.Context, query string) ([]Result, error) {
	if c.apiKey == "" {
		return nil, errors.New("serper: api key required")
	}
	payload, err := json.Marshal(map[string]any{"q": query, "num": c.resultNum})
	if err != nil {
		return nil, fmt.Errorf("serper: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("serper: new request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper: http error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("serper: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed serperSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("serper: decode response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Images))
	for _, img := range parsed.Images {
		if img.ImageURL == "" || !usableImageURL(img.ImageURL) {
			continue
		}
		source := img.Source
		if source == "" {
			source = "Google"
		}
		results = append(results, Result{
			URL:          img.ImageURL,
			Photographer: source,
			Source:       "Serper",
		})
	}
	return results, nil
}

var imageURLExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".avif", ".tiff", ".tif"}

var imageURLBadPatterns = []string{
	"instagram.com/seo",
	"lookaside.instagram",
	"/crawler/",
	"/widget/",
}

// usableImageURL filters search hits down to URLs that point at files the
// decoder can actually handle.
func usableImageURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, pattern := range imageURLBadPatterns {
		if strings.Contains(lower, pattern) {
			return false
		}
	}
	for _, ext := range imageURLExtensions {
		if strings.HasSuffix(lower, ext) ||
			strings.Contains(lower, ext+"?") ||
			strings.Contains(lower, ext+"&") {
			return true
		}
	}
	return false
}
