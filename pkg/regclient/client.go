// Package regclient is the Go client for the schema registration API.
// Schema owners embed it to watch a registration handshake from the
// other side: poll the status projection until a frontend claims the
// schema, or cancel the handshake.
package regclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Status is the registration status projection served by the backend.
type Status struct {
	RegistrationStatus string `json:"registration_status"`
	FrontendURL        string `json:"frontend_url,omitempty"`
}

// Registered reports whether a frontend has claimed the schema.
func (s Status) Registered() bool {
	return s.RegistrationStatus == "registered"
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

// Client talks to one CMS backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a client for the backend at baseURL (scheme and host,
// no trailing slash required).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status fetches the registration projection for a schema.
func (c *Client) Status(ctx context.Context, slug string) (Status, error) {
	var status Status
	err := c.do(ctx, http.MethodGet, "/api/schemas/"+slug+"/registration/status", nil, &status)
	return status, err
}

// StartRegistration issues a fresh code and puts the schema in waiting.
func (c *Client) StartRegistration(ctx context.Context, slug string) error {
	return c.do(ctx, http.MethodPost, "/api/schemas/"+slug+"/registration/start", nil, nil)
}

// CancelRegistration reverts a waiting schema to pending. Idempotent.
func (c *Client) CancelRegistration(ctx context.Context, slug string) error {
	return c.do(ctx, http.MethodDelete, "/api/schemas/"+slug+"/registration", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, into any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if into == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(into)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}
