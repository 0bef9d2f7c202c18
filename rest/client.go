// Package rest is the generic authenticated HTTP client for the credit
// backend. It injects a bearer token supplied by a callback, normalizes the
// backend's {success, data, message} envelope into a Result, and maps 401 and
// 403 answers to distinct error kinds so callers can tell "need to re-auth"
// from "wrong data".
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Error kinds surfaced by Client. Check with errors.Is.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNetwork      = errors.New("network error")
)

const defaultTimeout = 30 * time.Second

// TokenFunc supplies the current bearer token for a request. Returning an
// empty string sends the request unauthenticated.
type TokenFunc func() string

// Client performs envelope-normalized requests against one base URL.
type Client struct {
	baseURL    string
	tokenFn    TokenFunc
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (primarily for testing).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets the debug logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the given base URL. tokenFn may be nil for
// unauthenticated use.
func NewClient(baseURL string, tokenFn TokenFunc, options ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("[NewClient] baseURL is required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokenFn:    tokenFn,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Result is the normalized outcome of a request. Data holds the raw payload;
// decode it into a typed struct with Decode.
type Result struct {
	Success bool
	Data    json.RawMessage
	Message string
}

// Decode unmarshals the result data into v.
func (r *Result) Decode(v any) error {
	if len(r.Data) == 0 {
		return errors.New("[Result.Decode] empty data")
	}
	return errors.Wrap(json.Unmarshal(r.Data, v), "[Result.Decode]")
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string) (*Result, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Result, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Result, error) {
	return c.do(ctx, http.MethodPut, path, body)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Result, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*Result, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrapf(err, "[Client.do] marshal %s %s body", method, path)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errors.Wrapf(err, "[Client.do] new request %s %s", method, path)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokenFn != nil {
		if token := c.tokenFn(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(ErrNetwork, "[Client.do] %s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(ErrNetwork, "[Client.do] read %s %s: %v", method, path, err)
	}

	c.logger.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("api request")

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return nil, errors.Wrapf(ErrUnauthorized, "[Client.do] %s %s: %s", method, path, envelopeMessage(raw))
	case http.StatusForbidden:
		return nil, errors.Wrapf(ErrForbidden, "[Client.do] %s %s: %s", method, path, envelopeMessage(raw))
	}

	return normalize(raw)
}

// normalize maps a response body to a Result. Most endpoints use the
// {success, data, message} envelope; a few return a bare JSON array, which is
// treated as a successful data payload.
func normalize(raw []byte) (*Result, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return &Result{Success: true, Data: trimmed}, nil
	}

	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data,omitempty"`
		Message string          `json:"message,omitempty"`
		Error   string          `json:"error,omitempty"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, errors.Wrapf(ErrNetwork, "[normalize] non-JSON response: %v", err)
	}
	message := env.Message
	if message == "" {
		message = env.Error
	}
	return &Result{Success: env.Success, Data: env.Data, Message: message}, nil
}

func envelopeMessage(raw []byte) string {
	res, err := normalize(raw)
	if err != nil || res.Message == "" {
		return "request rejected"
	}
	return res.Message
}
