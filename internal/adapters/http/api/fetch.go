// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Download guards. Oversized or slow remote clips are rejected before they
// tie up the handler.
const (
	fetchTimeout  = 5 * time.Second
	fetchMaxBytes = 10 * 1024 * 1024
)

// AudioFetcher downloads clip bytes from a caller-supplied URL.
type AudioFetcher struct {
	client *http.Client
}

// NewAudioFetcher creates a fetcher with the download timeout applied.
func NewAudioFetcher() *AudioFetcher {
	return &AudioFetcher{client: &http.Client{Timeout: fetchTimeout}}
}

// Fetch downloads at most fetchMaxBytes from rawURL. Declared sizes are
// checked before the body is read so an honest server costs nothing; a
// streaming cap catches the rest.
func (f *AudioFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("audio_url must be an http or https URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building download request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading audio: unexpected status %d", resp.StatusCode)
	}
	if resp.ContentLength > fetchMaxBytes {
		return nil, fmt.Errorf("audio exceeds the %d byte download limit", fetchMaxBytes)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchMaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading audio body: %w", err)
	}
	if len(body) > fetchMaxBytes {
		return nil, fmt.Errorf("audio exceeds the %d byte download limit", fetchMaxBytes)
	}
	return body, nil
}
