package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"time"

	u "pdf2html/internal/utils"
)

// ErrTooLarge signals that the remote document exceeds the configured size cap.
var ErrTooLarge = errors.New("document exceeds size limit")

// FetchError wraps any failure to retrieve the document at a URL: network
// errors, timeouts and non-success upstream statuses.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: upstream status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client retrieves documents over HTTP with an explicit timeout and a hard
// byte cap. Safe for concurrent use.
type Client struct {
	http      *http.Client
	maxBytes  int
	userAgent string
}

// New builds a Client from the service configuration.
func New(cfg u.Config) *Client {
	return &Client{
		http: &http.Client{
			Timeout: time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		},
		maxBytes:  cfg.Fetch.MaxPDFBytes,
		userAgent: cfg.Fetch.UserAgent,
	}
}

// ValidateURL checks that rawURL is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	parsed, err := neturl.ParseRequestURI(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("invalid URL: must be HTTP or HTTPS")
	}
	return nil
}

// Fetch downloads the document at rawURL. It returns a *FetchError for
// network failures and non-2xx statuses, and an error wrapping ErrTooLarge
// when the body exceeds the configured cap. One attempt, no retries.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected upstream status %d", resp.StatusCode)}
	}

	// Read one byte past the cap so we can tell "exactly at cap" from "over".
	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(c.maxBytes)+1))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	if len(data) > c.maxBytes {
		return nil, &FetchError{URL: rawURL, Err: ErrTooLarge}
	}
	return data, nil
}
