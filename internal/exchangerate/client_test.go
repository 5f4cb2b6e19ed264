package exchangerate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const latestBody = `{
  "result": "success",
  "base_code": "BRL",
  "time_last_update_unix": 1704067201,
  "conversion_rates": {"BRL": 1, "USD": 0.2058, "EUR": 0.1863}
}`

func TestClient_FetchLatest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/v6/secret/latest/BRL" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(latestBody))
	}))
	defer server.Close()

	client := NewClient("secret", WithBaseURL(server.URL))

	resp, err := client.FetchLatest(context.Background(), "BRL")
	if err != nil {
		t.Fatalf("FetchLatest: %v", err)
	}

	if resp.BaseCode != "BRL" {
		t.Errorf("expected base BRL, got %s", resp.BaseCode)
	}
	if resp.TimeLastUpdateUnix != 1704067201 {
		t.Errorf("expected update 1704067201, got %d", resp.TimeLastUpdateUnix)
	}
	if len(resp.ConversionRates) != 3 {
		t.Errorf("expected 3 rates, got %d", len(resp.ConversionRates))
	}
	if string(resp.ConversionRates["USD"]) != "0.2058" {
		t.Errorf("expected raw USD 0.2058, got %s", resp.ConversionRates["USD"])
	}
}

func TestClient_Retry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := attempts.Add(1)
		switch count {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
			return
		case 2:
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(latestBody))
	}))
	defer server.Close()

	client := NewClient("secret",
		WithBaseURL(server.URL),
		WithMaxRetries(3),
		WithRetryDelay(10*time.Millisecond),
	)

	resp, err := client.FetchLatest(context.Background(), "BRL")
	if err != nil {
		t.Fatalf("FetchLatest: %v", err)
	}
	if resp.Result != ResultSuccess {
		t.Errorf("expected success, got %s", resp.Result)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestClient_MaxRetriesExceeded(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient("secret",
		WithBaseURL(server.URL),
		WithMaxRetries(2),
		WithRetryDelay(time.Millisecond),
	)

	_, err := client.FetchLatest(context.Background(), "BRL")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "max retries exceeded") {
		t.Errorf("unexpected error: %v", err)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestClient_APIError(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"result":"error","error-type":"invalid-key"}`))
	}))
	defer server.Close()

	client := NewClient("secret", WithBaseURL(server.URL), WithRetryDelay(time.Millisecond))

	_, err := client.FetchLatest(context.Background(), "BRL")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Type != "invalid-key" {
		t.Errorf("expected invalid-key, got %s", apiErr.Type)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", apiErr.StatusCode)
	}
	if attempts.Load() != 1 {
		t.Errorf("API errors must not be retried, got %d attempts", attempts.Load())
	}
	if strings.Contains(err.Error(), "secret") {
		t.Error("error message leaks the api key")
	}
}

func TestClient_MissingAPIKey(t *testing.T) {
	client := NewClient("")
	_, err := client.FetchLatest(context.Background(), "BRL")
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient("secret",
		WithBaseURL(server.URL),
		WithMaxRetries(5),
		WithRetryDelay(time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.FetchLatest(ctx, "BRL")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context deadline exceeded, got %v", err)
	}
}

func TestRedact(t *testing.T) {
	err := redact(errors.New(`Get "http://x/v6/secret/latest/BRL": refused`), "secret")
	if strings.Contains(err.Error(), "secret") {
		t.Errorf("key not redacted: %v", err)
	}
}
