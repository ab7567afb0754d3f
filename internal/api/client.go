package api

import (
	"bytes"
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

// ErrUnavailable is returned when the daemon API cannot be reached.
var ErrUnavailable = errors.New("daemon api unavailable")

// Client talks to a running daemon over its HTTP API.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// NewClient builds a client for the given bind address. An empty bind
// yields a nil client; its methods return ErrUnavailable.
func NewClient(bind, token string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base:  base,
		token: strings.TrimSpace(token),
		http:  &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// Status fetches daemon status and queue counts.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var out StatusResponse
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &out)
	return out, err
}

// Generate enqueues a prompt through the daemon.
func (c *Client) Generate(ctx context.Context, prompt string) (JobView, error) {
	var out GenerateResponse
	err := c.do(ctx, http.MethodPost, "/api/generate", GenerateRequest{Prompt: prompt}, &out)
	return out.Job, err
}

// List fetches queue jobs, optionally filtered by status values.
func (c *Client) List(ctx context.Context, statuses ...string) ([]JobView, error) {
	path := "/api/queue"
	if len(statuses) > 0 {
		values := url.Values{}
		for _, status := range statuses {
			values.Add("status", status)
		}
		path += "?" + values.Encode()
	}
	var out QueueListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// Describe fetches a single job.
func (c *Client) Describe(ctx context.Context, id int64) (JobView, error) {
	var out QueueItemResponse
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/queue/%d", id), nil, &out)
	return out.Job, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c == nil {
		return ErrUnavailable
	}
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}
	target := c.base.String() + path
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var payload struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr == nil && payload.Error != "" {
			return fmt.Errorf("daemon api: %s (%d)", payload.Error, resp.StatusCode)
		}
		return fmt.Errorf("daemon api: unexpected status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
