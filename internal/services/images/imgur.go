package images

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultImgurBaseURL = "https://api.imgur.com/3"

// ImgurClient searches the Imgur gallery. Gallery hits mix single images
// and albums; albums contribute their first image.
type ImgurClient struct {
	clientID   string
	baseURL    string
	httpClient *http.Client
}

// ImgurOption customizes the Imgur client.
type ImgurOption func(*ImgurClient)

// WithImgurHTTPClient overrides the default HTTP client.
func WithImgurHTTPClient(client *http.Client) ImgurOption {
	return func(c *ImgurClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithImgurBaseURL overrides the API endpoint (useful for tests).
func WithImgurBaseURL(baseURL string) ImgurOption {
	return func(c *ImgurClient) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewImgurClient constructs an Imgur gallery search provider.
func NewImgurClient(clientID string, opts ...ImgurOption) *ImgurClient {
	client := &ImgurClient{
		clientID:   strings.TrimSpace(clientID),
		baseURL:    defaultImgurBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Name implements Provider.
func (c *ImgurClient) Name() string { return "imgur" }

type imgurGalleryItem struct {
	Type       string `json:"type"`
	Link       string `json:"link"`
	AccountURL string `json:"account_url"`
	Images     []struct {
		Type string `json:"type"`
		Link string `json:"link"`
	} `json:"images"`
}

type imgurSearchResponse struct {
	Data []imgurGalleryItem `json:"data"`
}

// Search implements Provider. Albums and non-image posts are skipped in
// favor of direct image links.
func (c *ImgurClient) Search(ctx context.Context, query string) ([]Result, error) {
	if c.clientID == "" {
		return nil, errors.New("imgur: client id required")
	}
	endpoint, err := url.Parse(c.baseURL + "/gallery/search")
	if err != nil {
		return nil, fmt.Errorf("imgur: build url: %w", err)
	}
	values := endpoint.Query()
	values.Set("q", query)
	endpoint.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("imgur: new request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.clientID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imgur: http error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("imgur: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed imgurSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("imgur: decode response: %w", err)
	}

	var results []Result
	for _, item := range parsed.Data {
		link, ok := item.imageLink()
		if !ok {
			continue
		}
		photographer := item.AccountURL
		if photographer == "" {
			photographer = "Unknown"
		}
		results = append(results, Result{
			URL:          link,
			Photographer: photographer,
			Source:       "Imgur",
		})
	}
	return results, nil
}

// imageLink resolves a gallery hit to a direct image URL. Single image
// posts use their own link; albums fall back to their first image.
func (i imgurGalleryItem) imageLink() (string, bool) {
	if strings.HasPrefix(i.Type, "image/") && i.Link != "" {
		return i.Link, true
	}
	for _, img := range i.Images {
		if strings.HasPrefix(img.Type, "image/") && img.Link != "" {
			return img.Link, true
		}
	}
	return "", false
}
