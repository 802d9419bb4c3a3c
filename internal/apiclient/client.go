package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yenshow/ba-frontend/internal/infrastructure/logging"
)

const (
	// DefaultTimeout bounds a call when neither the request nor the client
	// sets a timeout.
	DefaultTimeout = 10 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 8 << 20
)

// SessionSource supplies the bearer token and accepts invalidations.
//
// Token returns the current token ("" when anonymous) together with the
// session epoch it belongs to. Invalidate clears the session only if it is
// still at epoch and reports whether it did.
type SessionSource interface {
	Token() (token string, epoch uint64)
	Invalidate(epoch uint64) bool
}

// Invalidation describes a session cleared because the backend answered
// Unauthorized. It is what the routing layer needs to redirect to login.
type Invalidation struct {
	ReturnPath string
	Epoch      uint64
	Method     string
	Path       string
}

// Observer receives one notification per finished call. kind is "" on
// success.
type Observer interface {
	ObserveCall(method, path string, kind Kind, elapsed time.Duration)
}

// Options configures a Client.
type Options struct {
	// BaseURL is the backend REST root, e.g. "http://host:4000/api".
	BaseURL string

	// Timeout is the default per-call timeout. Zero means DefaultTimeout.
	Timeout time.Duration

	// Session supplies tokens. Nil makes every call anonymous.
	Session SessionSource

	// IncludeCredentials keeps backend cookies in a jar across calls.
	IncludeCredentials bool

	// OnUnauthorized is invoked after the session was actually cleared.
	OnUnauthorized func(Invalidation)

	// Observer is notified of every finished call (optional).
	Observer Observer

	// HTTPClient overrides the transport (optional). Its Timeout is ignored
	// in favour of the per-call timeout.
	HTTPClient *http.Client

	// Logger receives call diagnostics. Nil discards them.
	Logger *logging.Logger
}

// Request is one gateway call.
type Request struct {
	Method string
	Path   string
	Query  Values
	Body   any
	Header http.Header

	// Timeout overrides the client default for this call.
	Timeout time.Duration

	// Unauthenticated suppresses the Authorization header and therefore
	// any session invalidation (used by login).
	Unauthenticated bool
}

// Client is the authenticated request gateway.
//
// Thread Safety:
//   - All methods are safe for concurrent use. The only shared mutable
//     state is behind SessionSource.
type Client struct {
	base           string
	timeout        time.Duration
	session        SessionSource
	http           *http.Client
	onUnauthorized func(Invalidation)
	observer       Observer
	logger         *logging.Logger
}

// New creates a Client.
//
// Returns:
//   - *Client: ready to issue calls
//   - error: ErrInvalidBaseURL if the base URL is not absolute http(s)
func New(opts Options) (*Client, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := &http.Client{}
	if opts.HTTPClient != nil {
		clone := *opts.HTTPClient
		httpClient = &clone
	}
	httpClient.Timeout = 0
	if opts.IncludeCredentials && httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Client{
		base:           strings.TrimRight(u.String(), "/"),
		timeout:        timeout,
		session:        opts.Session,
		http:           httpClient,
		onUnauthorized: opts.OnUnauthorized,
		observer:       opts.Observer,
		logger:         logger.With("component", "gateway"),
	}, nil
}

// BaseURL returns the backend root the client resolves paths against.
func (c *Client) BaseURL() string {
	return c.base
}

// Timeout returns the default per-call timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Anonymous returns a copy of c that never sends a token and never
// invalidates a session. Used for degraded deployments of the Modbus
// facade that sit outside the auth boundary.
func (c *Client) Anonymous() *Client {
	clone := *c
	clone.session = nil
	clone.onUnauthorized = nil
	return &clone
}

// WithTimeout returns a copy of c with a different default timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	clone := *c
	if d > 0 {
		clone.timeout = d
	}
	return &clone
}

// Get issues a GET and decodes the response into out (may be nil).
func (c *Client) Get(ctx context.Context, path string, query Values, out any) error {
	return c.Call(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Call(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Call(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Call(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

// Call performs one request. It produces exactly one of: a decoded result
// in out, or a *Error. The session is only touched on Unauthorized.
func (c *Client) Call(ctx context.Context, req Request, out any) error {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	start := time.Now()
	err := c.do(ctx, req, out)
	elapsed := time.Since(start)

	if c.observer != nil {
		c.observer.ObserveCall(req.Method, req.Path, KindOf(err), elapsed)
	}
	return err
}

func (c *Client) do(ctx context.Context, req Request, out any) error {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var token string
	var epoch uint64
	if c.session != nil && !req.Unauthenticated {
		token, epoch = c.session.Token()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return &Error{Kind: KindBadRequest, Message: "cannot encode request body", Method: req.Method, Path: req.Path, Err: err}
		}
		body = bytes.NewReader(data)
	}

	requestID := uuid.NewString()
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.resolve(req.Path, req.Query), body)
	if err != nil {
		return &Error{Kind: KindBadRequest, Message: "cannot build request", Method: req.Method, Path: req.Path, Err: err}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return c.fail(ctx, req, FailureFromError(err), token, epoch, err, requestID)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return c.fail(ctx, req, FailureFromError(err), token, epoch, err, requestID)
	}

	c.logger.Debug("backend call",
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", requestID,
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(ctx, req, FailureFromResponse(resp.StatusCode, data), token, epoch, nil, requestID)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{
			Kind:    KindUnknown,
			Message: "invalid response body",
			Status:  resp.StatusCode,
			Method:  req.Method,
			Path:    req.Path,
			Err:     err,
		}
	}
	return nil
}

// fail classifies a failure and applies the Unauthorized side effect.
func (c *Client) fail(ctx context.Context, req Request, f RawFailure, token string, epoch uint64, cause error, requestID string) error {
	kind, msg := Classify(f)
	e := &Error{
		Kind:    kind,
		Message: msg,
		Status:  f.Status,
		Method:  req.Method,
		Path:    req.Path,
		Err:     cause,
	}

	switch {
	case kind == KindUnauthorized:
		c.invalidate(ctx, req, token, epoch)
	case kind.Transport():
		c.logger.Warn("backend call failed",
			"kind", kind,
			"method", req.Method,
			"path", req.Path,
			"base_url", c.base,
			"request_id", requestID,
			"error", f.Message,
		)
	default:
		c.logger.Debug("backend call rejected",
			"kind", kind,
			"status", f.Status,
			"path", req.Path,
			"request_id", requestID,
		)
	}
	return e
}

// invalidate clears the session the token was read from, if it is still
// current, and then signals the routing layer.
func (c *Client) invalidate(ctx context.Context, req Request, token string, epoch uint64) {
	if token == "" || c.session == nil {
		return
	}
	if !c.session.Invalidate(epoch) {
		c.logger.Debug("stale unauthorized response ignored", "path", req.Path, "epoch", epoch)
		return
	}

	inv := Invalidation{
		ReturnPath: OriginFrom(ctx),
		Epoch:      epoch,
		Method:     req.Method,
		Path:       req.Path,
	}
	c.logger.Info("session invalidated by backend", "path", req.Path, "return_path", inv.ReturnPath)
	if c.onUnauthorized != nil {
		c.onUnauthorized(inv)
	}
}

func (c *Client) resolve(path string, query Values) string {
	return c.base + "/" + strings.TrimLeft(path, "/") + query.String()
}
