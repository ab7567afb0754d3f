package images

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultPexelsBaseURL = "https://api.pexels.com/v1"

// PexelsClient searches the Pexels photo API. Portrait orientation is
// requested so candidates crop cleanly into a 9:16 frame.
type PexelsClient struct {
	apiKey     string
	baseURL    string
	perPage    int
	httpClient *http.Client
}

// PexelsOption customizes the Pexels client.
type PexelsOption func(*PexelsClient)

// WithPexelsHTTPClient overrides the default HTTP client.
func WithPexelsHTTPClient(client *http.Client) PexelsOption {
	return func(c *PexelsClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithPexelsBaseURL overrides the API endpoint (useful for tests).
func WithPexelsBaseURL(baseURL string) PexelsOption {
	return func(c *PexelsClient) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewPexelsClient constructs a Pexels search provider.
func NewPexelsClient(apiKey string, opts ...PexelsOption) *PexelsClient {
	client := &PexelsClient{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    defaultPexelsBaseURL,
		perPage:    5,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Name implements Provider.
func (c *PexelsClient) Name() string { return "pexels" }

type pexelsSearchResponse struct {
	Photos []struct {
		Photographer string `json:"photographer"`
		Src          struct {
			Large string `json:"large"`
		} `json:"src"`
	} `json:"photos"`
}

// Search implements Provider.
func (c *PexelsClient) Search(ctx context.Context, query string) ([]Result, error) {
	if c.apiKey == "" {
		return nil, errors.New("pexels: api key required")
	}
	endpoint, err := url.Parse(c.baseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("pexels: build url: %w", err)
	}
	values := endpoint.Query()
	values.Set("query", query)
	values.Set("per_page", strconv.Itoa(c.perPage))
	values.Set("orientation", "portrait")
	endpoint.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("pexels: new request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pexels: http error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("pexels: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed pexelsSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("pexels: decode response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Photos))
	for _, photo := range parsed.Photos {
		if photo.Src.Large == "" {
			continue
		}
		results = append(results, Result{
			URL:          photo.Src.Large,
			Photographer: photo.Photographer,
			Source:       "Pexels",
		})
	}
	return results, nil
}
