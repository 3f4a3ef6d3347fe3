// Package client is a Go consumer for the management API. It speaks the
// standard response envelope and turns failed envelopes into typed errors.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// APIError is the typed error returned for any non-success envelope or
// transport fault. Transport faults carry StatusCode 0 and errorType
// "network", with the underlying error reachable via Unwrap.
type APIError struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	ErrorType  string   `json:"errorType"`
	Errors     []string `json:"errors,omitempty"`

	err error
}

func (e *APIError) Unwrap() error { return e.err }

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("api error %d (%s): %s: %s", e.StatusCode, e.ErrorType, e.Message, strings.Join(e.Errors, "; "))
	}
	return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.ErrorType, e.Message)
}

// envelope mirrors the server's response format
type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Errors     []string        `json:"errors"`
	StatusCode int             `json:"statusCode"`
	ErrorType  string          `json:"errorType"`
}

// ListParams describes pagination, sorting, search and field filters for
// list endpoints.
type ListParams struct {
	Page    int
	Limit   int
	SortBy  string
	SortDir string
	Search  string
	Filters map[string]string
}

// Query encodes the params as a URL query string (empty fields are omitted)
func (p ListParams) Query() string {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.SortBy != "" {
		q.Set("sortBy", p.SortBy)
	}
	if p.SortDir != "" {
		q.Set("sortDirection", p.SortDir)
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	for key, value := range p.Filters {
		if value != "" {
			q.Set(key, value)
		}
	}
	return q.Encode()
}

// Client holds connection state for one API server. Safe for concurrent use
// once configured; SetToken is not synchronized with in-flight requests.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option customizes the client at construction time
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (e.g. for tests)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token used on every request
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token, e.g. after login or refresh
func (c *Client) SetToken(token string) {
	c.token = token
}

// do runs one request and unwraps the envelope. A transport failure, a
// non-success envelope and a malformed body all come back as errors; only a
// successful envelope's data reaches out.
func (c *Client) do(ctx context.Context, method, path, query string, body any) (json.RawMessage, error) {
	reqURL := c.baseURL + path
	if query != "" {
		reqURL += "?" + query
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Dial failures, DNS errors and timeouts are all network faults
		return nil, &APIError{
			Message:   fmt.Sprintf("request %s %s: %v", method, path, err),
			ErrorType: "network",
			err:       err,
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("read response %s %s: %v", method, path, err),
			ErrorType:  "network",
			err:        err,
		}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// Not an envelope at all (proxy error page, etc.)
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			ErrorType:  "network",
		}
	}

	if !env.Success {
		status := env.StatusCode
		if status == 0 {
			status = resp.StatusCode
		}
		return nil, &APIError{
			StatusCode: status,
			Message:    env.Message,
			ErrorType:  env.ErrorType,
			Errors:     env.Errors,
		}
	}

	return env.Data, nil
}

// Get fetches path and decodes the envelope data into out (out may be nil)
func (c *Client) Get(ctx context.Context, path string, params *ListParams, out any) error {
	query := ""
	if params != nil {
		query = params.Query()
	}
	data, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return decode(data, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	data, err := c.do(ctx, http.MethodPost, path, "", body)
	if err != nil {
		return err
	}
	return decode(data, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	data, err := c.do(ctx, http.MethodPut, path, "", body)
	if err != nil {
		return err
	}
	return decode(data, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	data, err := c.do(ctx, http.MethodPatch, path, "", body)
	if err != nil {
		return err
	}
	return decode(data, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodDelete, path, "", nil)
	return err
}

func decode(data json.RawMessage, out any) error {
	if out == nil || len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
