// Package gateway is the HTTP client for the DentalPro REST API.
//
// Every call is a single blocking round trip; there is no retry and no
// caching. Calls other than register and login carry the bearer token of the
// current session and fail before any I/O when there is none.
package gateway

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

	"github.com/rs/zerolog"
)

// ErrNotAuthenticated is returned when a call needs a token and the session has none.
var ErrNotAuthenticated = errors.New("Authentication token not found.")

// Error is a non-2xx response, reduced to one human-readable message.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// TokenSource returns the bearer token of the current session, or "" when
// logged out.
type TokenSource func() string

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.httpClient.Timeout = d
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(cl *Client) { cl.logger = logger }
}

func WithTokenSource(ts TokenSource) Option {
	return func(cl *Client) { cl.token = ts }
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
	token      TokenSource
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     zerolog.Nop(),
		token:      func() string { return "" },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root all routes are relative to.
func (c *Client) BaseURL() string { return c.baseURL }

type request struct {
	op     string
	method string
	path   string
	body   any
	out    any
	auth   bool
}

func (c *Client) do(ctx context.Context, r request) error {
	var token string
	if r.auth {
		token = c.token()
		if token == "" {
			return ErrNotAuthenticated
		}
	}

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", r.op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).
			Str("method", r.method).
			Str("path", r.path).
			Dur("latency", time.Since(start)).
			Msg("api call failed")
		return fmt.Errorf("%s: %w", r.op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", r.method).
		Str("path", r.path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("api call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(r.op, resp)
	}
	if resp.StatusCode == http.StatusNoContent || r.out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(r.out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: decode response: %w", r.op, err)
	}
	return nil
}

// responseError prefers the backend's {"message": ...}; a JSON body without
// one yields "API error: <status>", and a body that is not JSON yields the
// status text.
func responseError(op string, resp *http.Response) *Error {
	e := &Error{Op: op, StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var payload struct {
		Message any `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		payload.Message = http.StatusText(resp.StatusCode)
	}
	if msg, ok := payload.Message.(string); ok && msg != "" {
		e.Message = msg
	} else {
		e.Message = fmt.Sprintf("API error: %d", resp.StatusCode)
	}
	return e
}
