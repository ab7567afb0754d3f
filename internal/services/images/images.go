package images

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrFetchTimeout reports that an image download exceeded the configured
// fetch deadline.
var ErrFetchTimeout = errors.New("image fetch timed out")

// ErrNoResults reports that no provider returned a usable image for a query.
var ErrNoResults = errors.New("no image results")

// Result is a single image candidate returned by a search provider.
type Result struct {
	URL          string
	Photographer string
	Source       string
}

// Provider searches for images matching a keyword query.
type Provider interface {
	// Name identifies the provider in logs and configuration.
	Name() string
	// Search returns candidate images for the query, best first. An empty
	// slice with a nil error means the provider had no usable matches.
	Search(ctx context.Context, query string) ([]Result, error)
}

// Searcher tries a configured ordering of providers until one yields a result.
type Searcher struct {
	providers []Provider
}

// NewSearcher builds a searcher over the supplied providers, tried in order.
func NewSearcher(providers ...Provider) *Searcher {
	active := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			active = append(active, p)
		}
	}
	return &Searcher{providers: active}
}

// Providers reports the active provider names in fallback order.
func (s *Searcher) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for _, p := range s.providers {
		names = append(names, p.Name())
	}
	return names
}

// Search returns the first usable result across the provider chain. Provider
// errors are collected and only surfaced when every provider fails.
func (s *Searcher) Search(ctx context.Context, query string) (Result, error) {
	var empty Result
	query = strings.TrimSpace(query)
	if query == "" {
		return empty, errors.New("image search: query required")
	}
	if len(s.providers) == 0 {
		return empty, errors.New("image search: no providers configured")
	}

	var failures []string
	for _, provider := range s.providers {
		if err := ctx.Err(); err != nil {
			return empty, err
		}
		results, err := provider.Search(ctx, query)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", provider.Name(), err))
			continue
		}
		if len(results) > 0 {
			return results[0], nil
		}
	}
	if len(failures) > 0 {
		return empty, fmt.Errorf("image search %q: %w (%s)", query, ErrNoResults, strings.Join(failures, "; "))
	}
	return empty, fmt.Errorf("image search %q: %w", query, ErrNoResults)
}
