package auth0

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// maxAttempts bounds one logical call: 1 initial request + 5 retries.
	maxAttempts = 6

	// baseRetryDelay is multiplied by the attempt number for the sleep
	// between attempts. The backoff is deliberately linear, not
	// exponential; see Request.
	baseRetryDelay = 800 * time.Millisecond

	defaultTimeout = 30 * time.Second
)

// retryableStatuses are the HTTP statuses worth another attempt.
var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Management is a session-scoped handle to the Auth0 Management API for one
// tenant. It carries the bearer token for its lifetime; callers create it
// once at the top of a run and pass it to every component, so there is no
// process-global token state.
//
// Management issues no concurrent requests for a single logical call and
// blocks between retry attempts.
type Management struct {
	BaseURL    string
	HTTPClient *http.Client

	// Limiter throttles outgoing calls below the management API quota.
	Limiter *rate.Limiter

	// RetryBaseDelay overrides baseRetryDelay when non-zero. Tests use
	// this to avoid real sleeps.
	RetryBaseDelay time.Duration

	token string

	// sleep is stubbed in tests to observe computed backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewManagement returns a Management handle for the tenant at domain,
// authenticated with token.
func NewManagement(domain, token string) *Management {
	return &Management{
		BaseURL:    fmt.Sprintf("https://%s/api/v2/", domain),
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		// The free-tier management API allows 2 req/s sustained; stay
		// under it with headroom for short bursts.
		Limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 4),
		token:   token,
		sleep:   sleepCtx,
	}
}

// Request performs one management API call with bounded retry.
//
// Transport failures and HTTP {429, 500, 502, 503, 504} are retried up to
// maxAttempts total; any other non-2xx status returns immediately. The sleep
// before retry n is base×n (linear; the original tooling documented this as
// exponential but never implemented it that way, and the literal behavior is
// kept). A numeric Retry-After header overrides the computed sleep for that
// attempt only.
//
// A 204 response yields a nil payload; any other success yields the raw JSON
// body.
func (m *Management) Request(
	ctx context.Context,
	method, path string,
	query url.Values,
	body any,
) (json.RawMessage, error) {
	base := m.RetryBaseDelay
	if base == 0 {
		base = baseRetryDelay
	}

	var lastErr *APIError
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if m.Limiter != nil {
			if err := m.Limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("auth0: rate limiter: %w", err)
			}
		}

		payload, apiErr := m.do(ctx, method, path, query, body)
		if apiErr == nil {
			return payload, nil
		}

		lastErr = apiErr
		if !apiErr.Retryable() || attempt == maxAttempts {
			break
		}

		delay := base * time.Duration(attempt)
		if apiErr.RetryAfter > 0 {
			delay = apiErr.RetryAfter
		}
		if err := m.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// do executes a single attempt and classifies the outcome.
func (m *Management) do(
	ctx context.Context,
	method, path string,
	query url.Values,
	body any,
) (json.RawMessage, *APIError) {
	u := m.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, &APIError{Kind: KindClient, Message: fmt.Sprintf("encode request body: %v", err)}
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, &APIError{Kind: KindClient, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+m.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return json.RawMessage(respBody), nil
	}

	apiErr := &APIError{
		Kind:       KindClient,
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		apiErr.Kind = KindRateLimited
	case retryableStatuses[resp.StatusCode]:
		apiErr.Kind = KindServer
	}

	// Auth0 error bodies are {"statusCode": n, "error": "...", "message": "..."}
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if jsonErr := json.Unmarshal(respBody, &parsed); jsonErr == nil {
		apiErr.ErrorCode = parsed.Error
		if parsed.Message != "" {
			apiErr.Message = parsed.Message
		}
	}

	// Only numeric Retry-After values are honored; HTTP-date forms fall
	// back to the computed backoff.
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, parseErr := strconv.ParseFloat(ra, 64); parseErr == nil && secs >= 0 {
			apiErr.RetryAfter = time.Duration(secs * float64(time.Second))
		}
	}

	return nil, apiErr
}

// classifyTransport maps transport-level errors (connection failures,
// timeouts, canceled contexts) to a transient APIError. A canceled context
// still aborts the attempt loop: the pre-retry sleep returns ctx.Err.
func classifyTransport(err error) *APIError {
	return &APIError{Kind: KindTransient, Err: err}
}

// sleepCtx blocks for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
