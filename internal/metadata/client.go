// Package metadata proxies the station's now-playing document.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/FearlessSpiff/radio-calico/internal/metrics"
)

const userAgent = "radio-calico/1.0"

// Sentinel errors the HTTP layer maps onto 500 and 504.
var (
	ErrUpstream        = errors.New("metadata upstream failed")
	ErrUpstreamTimeout = errors.New("metadata upstream timed out")
)

// Client fetches the now-playing JSON published next to the stream.
// The document is relayed to browsers untouched; the server only
// checks that it parses as JSON.
type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch returns the raw metadata document.
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	// The CDN serves the file with long cache headers; ask for a fresh
	// copy so listeners see song changes promptly.
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			metrics.MetadataFetches.WithLabelValues("timeout").Inc()
			return nil, fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
		}
		metrics.MetadataFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.MetadataFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			metrics.MetadataFetches.WithLabelValues("timeout").Inc()
			return nil, fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
		}
		metrics.MetadataFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if !json.Valid(body) {
		metrics.MetadataFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: invalid json payload", ErrUpstream)
	}

	metrics.MetadataFetches.WithLabelValues("ok").Inc()
	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}
