package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const defaultMaxDownloadBytes = 25 << 20

// Downloader fetches image bytes with a per-request deadline and a hard size
// cap. Timeouts surface as ErrFetchTimeout so callers can distinguish a slow
// host from a broken one.
type Downloader struct {
	httpClient *http.Client
	timeout    time.Duration
	maxBytes   int64
}

// DownloaderOption customizes the downloader.
type DownloaderOption func(*Downloader)

// WithDownloadHTTPClient overrides the default HTTP client.
func WithDownloadHTTPClient(client *http.Client) DownloaderOption {
	return func(d *Downloader) {
		if client != nil {
			d.httpClient = client
		}
	}
}

// NewDownloader constructs a downloader. A zero timeout means requests only
// honor the caller's context; a non-positive maxBytes falls back to 25 MiB.
func NewDownloader(timeout time.Duration, maxBytes int64, opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		httpClient: &http.Client{},
		timeout:    timeout,
		maxBytes:   maxBytes,
	}
	if d.maxBytes <= 0 {
		d.maxBytes = defaultMaxDownloadBytes
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetch downloads the image at rawURL and returns its bytes.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, errors.New("image fetch: url required")
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("image fetch: new request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; reelsmith/1.0)")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("image fetch %s: %w", rawURL, ErrFetchTimeout)
		}
		return nil, fmt.Errorf("image fetch: http error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image fetch %s: http %d", rawURL, resp.StatusCode)
	}

	// Read one byte past the cap so an at-limit payload is distinguishable
	// from an oversized one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("image fetch %s: %w", rawURL, ErrFetchTimeout)
		}
		return nil, fmt.Errorf("image fetch: read body: %w", err)
	}
	if int64(len(body)) > d.maxBytes {
		return nil, fmt.Errorf("image fetch %s: payload exceeds %d byte limit", rawURL, d.maxBytes)
	}
	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
