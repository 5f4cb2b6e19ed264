package narration

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

	"github.com/rs/zerolog"
)

// Gemini defaults.
const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	DefaultGeminiModel   = "gemini-2.5-flash"
	DefaultTimeout       = 60 * time.Second
	DefaultMaxRetries    = 3
	DefaultRetryDelay    = 2 * time.Second
	DefaultMaxDelay      = 20 * time.Second
	DefaultBackoffMult   = 2.0
)

// ErrMissingAPIKey is returned when the Gemini key is not configured.
var ErrMissingAPIKey = errors.New("narration: gemini api key not configured")

// APIError is a non-retryable error reported by the model API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini api error (%d %s): %s", e.StatusCode, e.Status, e.Message)
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GeminiGenerator calls the generateContent endpoint.
type GeminiGenerator struct {
	baseURL     string
	apiKey      string
	model       string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	log         zerolog.Logger
}

// GeminiOption configures GeminiGenerator.
type GeminiOption func(*GeminiGenerator)

// WithGeminiBaseURL overrides the API host.
func WithGeminiBaseURL(u string) GeminiOption {
	return func(g *GeminiGenerator) {
		g.baseURL = strings.TrimRight(u, "/")
	}
}

// WithModel sets the model name.
func WithModel(model string) GeminiOption {
	return func(g *GeminiGenerator) {
		g.model = model
	}
}

// WithGeminiTimeout sets HTTP client timeout.
func WithGeminiTimeout(d time.Duration) GeminiOption {
	return func(g *GeminiGenerator) {
		g.client.Timeout = d
	}
}

// WithGeminiRetries sets maximum retry attempts and the initial delay.
func WithGeminiRetries(n int, delay time.Duration) GeminiOption {
	return func(g *GeminiGenerator) {
		g.maxRetries = n
		g.retryDelay = delay
	}
}

// WithGeminiHTTPClient sets custom http.Client.
func WithGeminiHTTPClient(client *http.Client) GeminiOption {
	return func(g *GeminiGenerator) {
		g.client = client
	}
}

// WithGeminiLogger sets the logger used for retry diagnostics.
func WithGeminiLogger(log zerolog.Logger) GeminiOption {
	return func(g *GeminiGenerator) {
		g.log = log
	}
}

// NewGeminiGenerator creates a generator authenticated with apiKey.
func NewGeminiGenerator(apiKey string, opts ...GeminiOption) *GeminiGenerator {
	g := &GeminiGenerator{
		baseURL:     DefaultGeminiBaseURL,
		apiKey:      apiKey,
		model:       DefaultGeminiModel,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns the generator label.
func (g *GeminiGenerator) Name() string { return "gemini" }

// Generate sends the prompt and returns the text of the first candidate.
// 429 and 5xx responses are retried with exponential backoff.
func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if g.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.Prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))

	delay := g.retryDelay
	var lastErr error

	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			g.log.Debug().
				Int("attempt", attempt).
				Dur("delay", delay).
				AnErr("last_error", lastErr).
				Msg("retrying generation")

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * g.backoffMult)
			if delay > g.maxDelay {
				delay = g.maxDelay
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", g.apiKey)

		resp, err := g.client.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		var payload generateResponse
		decodeErr := json.Unmarshal(respBody, &payload)

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := &APIError{StatusCode: resp.StatusCode}
			if decodeErr == nil && payload.Error != nil {
				apiErr.Status = payload.Error.Status
				apiErr.Message = payload.Error.Message
			}
			return "", apiErr
		}

		if decodeErr != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", decodeErr)
			continue
		}

		text := firstCandidateText(&payload)
		if text == "" {
			return "", ErrEmptyResponse
		}
		return text, nil
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

func firstCandidateText(resp *generateResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String())
}

var _ Generator = (*GeminiGenerator)(nil)
