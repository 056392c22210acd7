// Package collab wraps the optional external collaborators: the text generator,
// the image generator, the trends service, syndication feeds and web pages.
//
// Every call is a single attempt bounded by a timeout. Any failure, including a
// missing credential, a non-200 status or a payload that does not parse, comes back
// as an apperr ExternalServiceUnavailable error so callers can branch to their
// deterministic fallback.
package collab

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aktagon/content-pipeline/internal/apperr"
)

// DefaultTimeout applies when a collaborator is configured without one.
const DefaultTimeout = 10 * time.Second

// UserAgent identifies pipeline requests to upstream services.
const UserAgent = "calyco-bot/1.0"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 16 << 20

// HTTPError is a non-200 upstream response. It is wrapped in an
// ExternalServiceUnavailable error.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// fetch performs one request and returns the body of a 200 response.
func fetch(client *http.Client, req *http.Request, service string) ([]byte, error) {
	req.Header.Set("User-Agent", UserAgent)
	resp, err := client.Do(req)
	if err != nil {
		return nil, apperr.Unavailable(service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Unavailable(service, &HTTPError{StatusCode: resp.StatusCode, URL: req.URL.String()})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, apperr.Unavailable(service, fmt.Errorf("reading response body: %w", err))
	}
	return body, nil
}
