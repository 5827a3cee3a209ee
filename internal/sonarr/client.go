// Package sonarr fetches series and episode-file data from a Sonarr
// instance. The core engine performs no other network I/O; this client is
// the external collaborator that consumes credentials from the secret
// store.
package sonarr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// MaxResponseBytes caps accepted response bodies (50 MB).
const MaxResponseBytes = 50 << 20

var (
	ErrEmptyURL         = errors.New("URL cannot be empty")
	ErrUnauthorized     = errors.New("authentication failed: invalid API key")
	ErrForbidden        = errors.New("access forbidden: check API key permissions")
	ErrEndpointMissing  = errors.New("endpoint not found: check Sonarr URL and version")
	ErrServerError      = errors.New("sonarr server error")
	ErrResponseTooLarge = errors.New("response too large")
)

// Series is one series record from the Sonarr API.
type Series struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Year   int    `json:"year"`
	Status string `json:"status"`
}

// EpisodeFile is one media file record from the Sonarr API.
type EpisodeFile struct {
	ID       int64 `json:"id"`
	SeriesID int64 `json:"seriesId"`
	Size     int64 `json:"size"`
}

// httpDoer defines the HTTP client operations used by Client.
// This abstraction enables testing without a real Sonarr instance.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to one Sonarr instance.
type Client struct {
	baseURL    string
	apiKey     string
	http       httpDoer
	maxRetries uint64
	maxBody    int64
}

// NewClient creates a Sonarr client. baseURL is normalized: whitespace and
// trailing slashes are stripped and a missing scheme defaults to http.
func NewClient(baseURL, apiKey string, timeout time.Duration, maxRetries int) (*Client, error) {
	normalized, err := NormalizeURL(baseURL)
	if err != nil {
		return nil, err
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		baseURL:    normalized,
		apiKey:     apiKey,
		http:       &http.Client{Timeout: timeout},
		maxRetries: uint64(maxRetries),
		maxBody:    MaxResponseBytes,
	}, nil
}

// NormalizeURL validates and sanitizes a Sonarr base URL.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return "", ErrEmptyURL
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "http://" + raw
	}
	if _, err := url.Parse(raw); err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	return raw, nil
}

// Series fetches all series in the library.
func (c *Client) Series(ctx context.Context) ([]Series, error) {
	var series []Series
	if err := c.get(ctx, "api/v3/series", nil, &series); err != nil {
		return nil, fmt.Errorf("fetch series: %w", err)
	}
	return series, nil
}

// EpisodeFiles fetches the media files belonging to one series.
func (c *Client) EpisodeFiles(ctx context.Context, seriesID int64) ([]EpisodeFile, error) {
	params := url.Values{"seriesId": []string{strconv.FormatInt(seriesID, 10)}}
	var files []EpisodeFile
	if err := c.get(ctx, "api/v3/episodefile", params, &files); err != nil {
		return nil, fmt.Errorf("fetch episode files for series %d: %w", seriesID, err)
	}
	return files, nil
}

// get performs one authenticated GET with bounded retries on timeout-class
// failures. Other failures are terminal.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewConstant(time.Second))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.doOnce(ctx, endpoint, params, out)
		if err != nil && isTimeout(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *Client) doOnce(ctx context.Context, endpoint string, params url.Values, out any) error {
	u := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.ContentLength > c.maxBody {
		return fmt.Errorf("%w: %d bytes", ErrResponseTooLarge, resp.ContentLength)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case resp.StatusCode == http.StatusNotFound:
		return ErrEndpointMissing
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrServerError, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	// ContentLength is -1 for chunked responses, so the cap is enforced
	// on the bytes actually read.
	lr := &io.LimitedReader{R: resp.Body, N: c.maxBody + 1}
	if err := json.NewDecoder(lr).Decode(out); err != nil {
		if lr.N <= 0 {
			return fmt.Errorf("%w: body exceeds %d bytes", ErrResponseTooLarge, c.maxBody)
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
