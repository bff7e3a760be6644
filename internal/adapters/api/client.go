// Package api implements the remote collaborators (authentication, plans,
// profile) over the learner HTTP API.
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
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

// Headers exchanged with the API.
const (
	HeaderAPIVersion     = "X-API-Version"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// SupportedMajor is the API major version this client speaks.
const SupportedMajor = "v1"

// DefaultTimeout bounds a single request.
const DefaultTimeout = 15 * time.Second

// maxErrorBody limits how much of an error response is read.
const maxErrorBody = 64 << 10

// ErrIncompatibleAPI is returned when the server reports a different
// major API version.
var ErrIncompatibleAPI = errors.New("incompatible API version")

// Client talks to the learner API.
type Client struct {
	base      *url.URL
	http      *http.Client
	tokens    *ports.TokenStore
	logger    ports.Logger
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets the request logger.
func WithLogger(l ports.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a client for baseURL. Authenticated calls read the bearer
// token from tokens.
func New(baseURL string, tokens *ports.TokenStore, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid API URL %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid API URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base:      base,
		http:      &http.Client{Timeout: DefaultTimeout},
		tokens:    tokens,
		userAgent: "lingoflow",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
	auth        bool
	idemKey     string
}

type requestOption func(*request)

func authenticated() requestOption {
	return func(r *request) { r.auth = true }
}

func idempotencyKey(key string) requestOption {
	return func(r *request) { r.idemKey = key }
}

func jsonBody(v any) requestOption {
	return func(r *request) {
		data, err := json.Marshal(v)
		if err != nil {
			r.body = errReader{err}
			return
		}
		r.body = bytes.NewReader(data)
		r.contentType = "application/json"
	}
}

func rawBody(contentType string, body io.Reader) requestOption {
	return func(r *request) {
		r.body = body
		r.contentType = contentType
	}
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

// call performs a request and decodes a JSON response into out (if not nil).
func (c *Client) call(ctx context.Context, method, path string, out any, opts ...requestOption) error {
	r := request{method: method, path: path}
	for _, opt := range opts {
		opt(&r)
	}

	endpoint := c.base.ResolveReference(&url.URL{Path: strings.TrimLeft(r.path, "/")})
	req, err := http.NewRequestWithContext(ctx, r.method, endpoint.String(), r.body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.idemKey != "" {
		req.Header.Set(HeaderIdempotencyKey, r.idemKey)
	}
	if r.auth {
		if c.tokens == nil {
			return ports.ErrNoToken
		}
		token, err := c.tokens.Token()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	c.debug(ctx, "api request",
		ports.F("method", r.method),
		ports.F("path", r.path),
		ports.F("status", resp.StatusCode),
		ports.F("duration", time.Since(start).Round(time.Millisecond)),
	)

	if err := CheckVersion(resp.Header.Get(HeaderAPIVersion)); err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return DecodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", r.method, r.path, err)
	}
	return nil
}

func (c *Client) debug(ctx context.Context, msg string, fields ...ports.Field) {
	if c.logger != nil {
		c.logger.Debug(ctx, msg, fields...)
	}
}

// CheckVersion accepts an empty header or any version with the supported
// major, with or without the leading "v".
func CheckVersion(header string) error {
	if header == "" {
		return nil
	}
	v := header
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return fmt.Errorf("%w: server sent malformed version %q", ErrIncompatibleAPI, header)
	}
	if semver.Major(v) != SupportedMajor {
		return fmt.Errorf("%w: server speaks %s, client supports %s", ErrIncompatibleAPI, semver.Major(v), SupportedMajor)
	}
	return nil
}

// errorBody is the API's error envelope.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// DecodeError converts an error response into a *ports.RemoteError.
func DecodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	remote := &ports.RemoteError{StatusCode: resp.StatusCode}
	var body errorBody
	if json.Unmarshal(data, &body) == nil {
		remote.Code = body.Code
		remote.Message = body.Message
		if remote.Message == "" {
			remote.Message = body.Error
		}
	}
	return remote
}
