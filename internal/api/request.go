package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rickgao/nakama-client/internal/backoff"
	"github.com/rickgao/nakama-client/internal/version"
)

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Code       int // gRPC status code reported by the server, if any
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// errorBody is the JSON error shape returned by the gateway.
type errorBody struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Message:    http.StatusText(status),
		Body:       body,
	}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		apiErr.Code = eb.Code
		switch {
		case eb.Message != "":
			apiErr.Message = eb.Message
		case eb.Error != "":
			apiErr.Message = eb.Error
		}
	}
	return apiErr
}

// request describes one REST call. An empty bearer selects server key auth.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	bearer string
}

// doRequest performs a single HTTP request.
func (c *Client) doRequest(ctx context.Context, r request) ([]byte, error) {
	fullURL := c.baseURL + r.path
	if len(r.query) > 0 {
		fullURL += "?" + r.query.Encode()
	}

	var reader io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+r.bearer)
	} else if c.serverKey != "" {
		req.SetBasicAuth(c.serverKey, c.serverPassword)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, newAPIError(resp.StatusCode, body)
	}

	return body, nil
}

// retryable reports whether err is worth another attempt. Transport errors
// are retried unless the caller's context has ended.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	return true
}

// doWithRetry performs a request, backing off between retryable failures.
// Each call starts a fresh retry history.
func (c *Client) doWithRetry(ctx context.Context, r request) ([]byte, error) {
	var history backoff.History

	for {
		body, err := c.doRequest(ctx, r)
		if err == nil {
			return body, nil
		}
		if !retryable(ctx, err) {
			return nil, err
		}

		retry, berr := backoff.Backoff(ctx, c.retry, &history)
		if errors.Is(berr, backoff.ErrMaxAttempts) {
			return nil, fmt.Errorf("max retries exceeded: %w", err)
		}
		if berr != nil {
			return nil, berr
		}

		c.logger.Debug("retrying request",
			"attempt", history.Len(),
			"backoff", retry.Jittered,
			"path", r.path,
			"error", err,
		)
	}
}

// call performs a request with retries and decodes the JSON response into
// result, which may be nil.
func (c *Client) call(ctx context.Context, r request, result any) error {
	body, err := c.doWithRetry(ctx, r)
	if err != nil {
		return err
	}
	if result == nil || len(body) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}
