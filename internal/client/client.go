// Package client is the Go SDK for the Pumpkin API.
//
// Client wraps the REST endpoints: every call takes a context and returns
// domain types. Non-2xx responses come back as *APIError, which unwraps to
// the matching sentinel from pkg/errors so callers can use errors.Is on
// both REST and realtime failures. Realtime opens the websocket, and
// Messenger layers fan-out encryption and the local store on top.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/services"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/transport/httpdto"
)

const defaultTimeout = 30 * time.Second

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Token() string { return c.token }

func (c *Client) SetToken(token string) { c.token = token }

// APIError is a non-2xx response from the API.
type APIError struct {
	Method  string
	URL     string
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.URL, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.Status, http.StatusText(e.Status))
}

// Unwrap returns the sentinel error for the response code, if any.
func (e *APIError) Unwrap() error {
	return services.ErrorForCode(e.Code)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope httpdto.Response[json.RawMessage]
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil && err != io.EOF {
		if resp.StatusCode >= 300 {
			return &APIError{Method: method, URL: target, Status: resp.StatusCode}
		}
		return fmt.Errorf("%s %s: decode response: %w", method, target, err)
	}
	if resp.StatusCode >= 300 || !envelope.Success {
		return &APIError{
			Method:  method,
			URL:     target,
			Status:  resp.StatusCode,
			Code:    envelope.Code,
			Message: envelope.Error,
		}
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("%s %s: decode data: %w", method, target, err)
		}
	}
	return nil
}
