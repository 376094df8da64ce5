package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errdash/models"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError represents a non-2xx HTTP response.
type APIError struct {
	StatusCode int
	Body       string // first 512 bytes
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

// Client talks to the error tracking backend
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures Client behavior.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithTransport replaces the HTTP transport, e.g. one dialing through a proxy.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = rt
	}
}

// NewClient creates a client for baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend URL the client was created with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest executes an HTTP request with an optional JSON body
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}

// handleResponse turns non-2xx replies into *APIError and decodes the body into result
func (c *Client) handleResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// ListErrors fetches the error list. Empty status or source mean "all".
func (c *Client) ListErrors(ctx context.Context, status, source string) ([]models.ErrorRecord, error) {
	if status == "" {
		status = models.StatusAll
	}
	if source == "" {
		source = models.SourceAll
	}
	query := url.Values{}
	query.Set("status", status)
	query.Set("source", source)

	resp, err := c.doRequest(ctx, http.MethodGet, "/api/errors?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var records []models.ErrorRecord
	if err := c.handleResponse(resp, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.ErrorRecord{}
	}
	return records, nil
}

// ResolveError marks an error resolved with the given resolution text
func (c *Client) ResolveError(ctx context.Context, id int64, resolution string) (*models.ActionResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/api/errors/%d/resolve", id), models.ResolveRequest{Resolution: resolution})
	if err != nil {
		return nil, err
	}

	var result models.ActionResponse
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Sync asks the backend to pull errors from its upstream source
func (c *Client) Sync(ctx context.Context, force bool) (*models.SyncResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/sync", models.SyncRequest{Force: force})
	if err != nil {
		return nil, err
	}

	var result models.SyncResponse
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Stats fetches aggregate counters
func (c *Client) Stats(ctx context.Context) (*models.ErrorStats, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/errors/stats", nil)
	if err != nil {
		return nil, err
	}

	var stats models.ErrorStats
	if err := c.handleResponse(resp, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ReportError logs a new error manually
func (c *Client) ReportError(ctx context.Context, report models.ErrorReport) (*models.ActionResponse, error) {
	report.Normalize()
	if report.ErrorType == "" || report.Message == "" {
		return nil, fmt.Errorf("error type and message are required")
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/errors", report)
	if err != nil {
		return nil, err
	}

	var result models.ActionResponse
	if err := c.handleResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
