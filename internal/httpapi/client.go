// Package httpapi wraps outbound calls to the platform API: it merges JSON
// default headers, attaches the current bearer token at call time, and turns
// a 401 on an authorized call into a forced local logout.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	// ErrSessionExpired is returned when an authorized call comes back 401.
	// The session has already been torn down locally when this is returned.
	ErrSessionExpired = errors.New("session expired, please sign in again")
	// ErrNotAuthenticated is returned when a call requires authorization and no token is held.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// APIError is a non-2xx response carrying the server-provided message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("api: request failed with status %d", e.Status)
}

// Session is the slice of the session store the wrapper needs: the current
// token, read at call time so it always reflects the latest session, and the
// teardown hook fired on 401.
type Session interface {
	Token() string
	ForceLogout(ctx context.Context)
}

// Options configures a single request.
type Options struct {
	// Method defaults to GET.
	Method string
	// Body is JSON-encoded when non-nil; an io.Reader is passed through as-is.
	Body any
	// Headers are merged over the JSON defaults.
	Headers map[string]string
	// Public skips authorization: no token attached, no teardown on 401.
	Public bool
}

// Client performs requests against the platform API base URL.
type Client struct {
	base string
	http *http.Client

	mu   sync.RWMutex
	sess Session
}

// NewClient returns a Client for the given base URL. The transport is
// instrumented with otelhttp.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// BindSession attaches the session store. Construction order requires this
// to happen after the store exists; until then every call is public-only.
func (c *Client) BindSession(s Session) {
	c.mu.Lock()
	c.sess = s
	c.mu.Unlock()
}

func (c *Client) session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess
}

// Do performs the request and returns the raw response. Authorized calls that
// come back 401 tear the session down and return ErrSessionExpired; every
// other status is returned to the caller untouched.
func (c *Client) Do(ctx context.Context, path string, opts Options) (*http.Response, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if opts.Body != nil {
		if r, ok := opts.Body.(io.Reader); ok {
			body = r
		} else {
			raw, err := json.Marshal(opts.Body)
			if err != nil {
				return nil, fmt.Errorf("encode request body: %w", err)
			}
			body = bytes.NewReader(raw)
		}
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	sess := c.session()
	if !opts.Public {
		var token string
		if sess != nil {
			token = sess.Token()
		}
		if token == "" {
			return nil, ErrNotAuthenticated
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && !opts.Public {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if sess != nil {
			sess.ForceLogout(ctx)
		}
		return nil, ErrSessionExpired
	}
	return resp, nil
}

// DoJSON performs the request, maps non-2xx responses to *APIError carrying
// the server's message, and decodes a 2xx body into out when non-nil.
func (c *Client) DoJSON(ctx context.Context, path string, opts Options, out any) error {
	resp, err := c.Do(ctx, path, opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Get performs an authorized GET and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.DoJSON(ctx, path, Options{}, out)
}

// Post performs an authorized POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.DoJSON(ctx, path, Options{Method: http.MethodPost, Body: body}, out)
}

// Put performs an authorized PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.DoJSON(ctx, path, Options{Method: http.MethodPut, Body: body}, out)
}

// Delete performs an authorized DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.DoJSON(ctx, path, Options{Method: http.MethodDelete}, nil)
}

// decodeError extracts the server's {"message": ...} payload when present.
func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		apiErr.Message = payload.Message
	}
	return apiErr
}
