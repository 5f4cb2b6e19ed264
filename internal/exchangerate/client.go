// Package exchangerate fetches daily rate snapshots from an
// exchangerate-api.com compatible HTTP endpoint.
package exchangerate

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

	"github.com/rs/zerolog"
)

// Default configuration values.
const (
	DefaultBaseURL     = "https://v6.exchangerate-api.com"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// ErrMissingAPIKey is returned by FetchLatest when no key was configured.
var ErrMissingAPIKey = errors.New("exchangerate: api key not configured")

// Client fetches rate snapshots.
type Client struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	log         zerolog.Logger
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API host.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a client authenticated with apiKey.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		apiKey:      apiKey,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchLatest returns the latest rates quoted against base.
// Transport failures, 429 and unexpected statuses are retried with
// exponential backoff. A body with result "error" is returned as *APIError.
func (c *Client) FetchLatest(ctx context.Context, base string) (*LatestResponse, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	endpoint := fmt.Sprintf("%s/v6/%s/latest/%s", c.baseURL, url.PathEscape(c.apiKey), url.PathEscape(base))

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.log.Debug().
				Int("attempt", attempt).
				Dur("delay", delay).
				AnErr("last_error", lastErr).
				Msg("retrying rate fetch")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("http request: %w", redact(err, c.apiKey))
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		var payload LatestResponse
		decodeErr := json.Unmarshal(body, &payload)

		// The API reports key and quota problems as result "error", sometimes
		// with a 4xx status. Those are final.
		if decodeErr == nil && payload.Result == "error" {
			return nil, &APIError{StatusCode: resp.StatusCode, Type: payload.ErrorType}
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			continue
		}

		if decodeErr != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", decodeErr)
			continue
		}

		return &payload, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// redact strips the api key from transport errors, which embed the URL.
func redact(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, "***"))
}
