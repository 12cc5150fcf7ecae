package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"evcharge/backend/libs/contracts"
)

// HTTPDoer defines http.Client interface subset.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// APIError is a non-transient error response from another service.
type APIError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

// Unwrap restores the shared sentinel when the code is known.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound && e.Code == "" {
		return contracts.ErrNotFound
	}
	return sentinelFor(e.Code)
}

// BaseClient performs requests against one upstream service.
type BaseClient struct {
	baseURL string
	client  HTTPDoer
}

// NewBaseClient builds client with base URL.
func NewBaseClient(baseURL string, client HTTPDoer) *BaseClient {
	return &BaseClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// NewDefaultHTTPClient returns *http.Client with timeout.
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// Enabled reports whether an upstream URL is configured.
func (c *BaseClient) Enabled() bool {
	return c != nil && c.baseURL != ""
}

func (c *BaseClient) buildURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// Do executes HTTP request and returns status/body.
func (c *BaseClient) Do(ctx context.Context, method, path string, body []byte, headers map[string]string) (int, []byte, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), reader)
	if err != nil {
		return 0, nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}

// DoJSON sends in as JSON and decodes a 2xx body into out. Transport failures, timeouts,
// 5xx and 429 become *contracts.RemoteCallError; other 4xx become *APIError.
func (c *BaseClient) DoJSON(ctx context.Context, op, method, path string, in, out interface{}, headers map[string]string) error {
	var body []byte
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = data
	}

	status, respBody, err := c.Do(ctx, method, path, body, headers)
	if err != nil {
		return &contracts.RemoteCallError{Op: op, StatusCode: status, Err: err}
	}
	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
		return &contracts.RemoteCallError{Op: op, StatusCode: status, Err: errors.New(errorMessage(respBody, status))}
	}
	if status >= http.StatusBadRequest {
		var eb ErrorBody
		_ = json.Unmarshal(respBody, &eb)
		return &APIError{Op: op, StatusCode: status, Code: eb.Code, Message: errorMessage(respBody, status)}
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func errorMessage(body []byte, status int) string {
	var eb ErrorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != "" {
		return eb.Error
	}
	return http.StatusText(status)
}
