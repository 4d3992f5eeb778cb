package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"golang.org/x/time/rate"
)

// RetryPolicy controls the retry behaviour for transient failures.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     bool
	RetryIf    func(resp *http.Response, err error) bool
}

// DefaultRetryPolicy issues every request exactly once.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries: 0,
	BaseDelay:  250 * time.Millisecond,
	MaxDelay:   2 * time.Second,
	Jitter:     true,
}

// TransientRetryPolicy retries network failures, 408, 429 and 5xx responses.
var TransientRetryPolicy = RetryPolicy{
	MaxRetries: 3,
	BaseDelay:  250 * time.Millisecond,
	MaxDelay:   2 * time.Second,
	Jitter:     true,
}

// Timeouts bound the phases of a single request.
type Timeouts struct {
	Connect time.Duration
	Read    time.Duration
	Overall time.Duration
}

// DefaultTimeouts allows 5s to connect and 5s for the response headers.
var DefaultTimeouts = Timeouts{
	Connect: 5 * time.Second,
	Read:    5 * time.Second,
	Overall: 10 * time.Second,
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used by the helper. Timeouts set
// through WithTimeouts are ignored when a custom client is supplied.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithHeaders assigns default headers added to every request.
func WithHeaders(h http.Header) Option {
	return func(c *Client) {
		for k, values := range h {
			for _, v := range values {
				c.headers.Add(k, v)
			}
		}
	}
}

// WithRetryPolicy overrides the default retry configuration.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retryPolicy = policy
	}
}

// WithTimeouts overrides the connect/read/overall timeouts.
func WithTimeouts(t Timeouts) Option {
	return func(c *Client) {
		if t.Connect > 0 {
			c.timeouts.Connect = t.Connect
		}
		if t.Read > 0 {
			c.timeouts.Read = t.Read
		}
		if t.Overall > 0 {
			c.timeouts.Overall = t.Overall
		}
	}
}

// WithRateLimit caps outbound requests to rps per second with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// Client wraps http.Client providing retry and base URL utilities.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	headers     http.Header
	retryPolicy RetryPolicy
	timeouts    Timeouts
	limiter     *rate.Limiter
}

// Request describes a single outbound request. Path is either relative to the
// base URL or an absolute http(s) URL.
type Request struct {
	Method       string
	Path         string
	Query        url.Values
	Header       http.Header
	DisableRetry bool
	Body         io.Reader
	GetBody      func() (io.ReadCloser, error)
}

// NewClient creates a Client for the provided base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("httpx: base URL is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("httpx: invalid base URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("httpx: invalid base URL %q: scheme must be http or https", baseURL)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("httpx: invalid base URL %q: missing host", baseURL)
	}

	c := &Client{
		baseURL:     WithTrailingSlash(baseURL),
		headers:     make(http.Header),
		retryPolicy: DefaultRetryPolicy,
		timeouts:    DefaultTimeouts,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = newHTTPClient(c.timeouts)
	}
	if c.retryPolicy.MaxRetries < 0 {
		c.retryPolicy.MaxRetries = 0
	}
	if c.retryPolicy.BaseDelay <= 0 {
		c.retryPolicy.BaseDelay = DefaultRetryPolicy.BaseDelay
	}
	if c.retryPolicy.MaxDelay <= 0 {
		c.retryPolicy.MaxDelay = DefaultRetryPolicy.MaxDelay
	}
	return c, nil
}

// BaseURL returns the base URL with a guaranteed trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do executes the provided request and returns the response, or an HTTPError.
func (c *Client) Do(ctx context.Context, req *Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("httpx: request is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if req.Method == "" {
		return nil, errors.New("httpx: HTTP method is required")
	}

	if req.DisableRetry {
		req.GetBody = nil
	} else if req.GetBody == nil && req.Body != nil {
		// Buffer the body so it can be replayed on retries.
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("httpx: read request body: %w", err)
		}
		req.Body = bytes.NewReader(data)
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
	}

	fullURL, err := c.buildURL(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	attempt := 0
	b := &backoff.Backoff{
		Min:    c.retryPolicy.BaseDelay,
		Max:    c.retryPolicy.MaxDelay,
		Factor: 2,
		Jitter: c.retryPolicy.Jitter,
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		body, err := c.prepareBody(req, attempt == 0)
		if err != nil {
			return nil, err
		}

		httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, body)
		if err != nil {
			return nil, err
		}
		if req.GetBody != nil {
			httpReq.GetBody = req.GetBody
		}

		httpReq.Header = cloneHeader(c.headers)
		for k, values := range req.Header {
			for _, v := range values {
				httpReq.Header.Add(k, v)
			}
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			closeBody(respBody(resp))
			if !c.shouldRetry(req, attempt, nil, err) {
				return nil, err
			}
			attempt++
			if err := c.sleep(ctx, b.Duration()); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode >= 400 {
			err = c.handleError(resp)
			if !c.shouldRetry(req, attempt, resp, err) {
				return nil, err
			}
			attempt++
			if err := c.sleep(ctx, b.Duration()); err != nil {
				return nil, err
			}
			continue
		}

		return resp, nil
	}
}

func newHTTPClient(t Timeouts) *http.Client {
	dialer := &net.Dialer{Timeout: t.Connect}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.ResponseHeaderTimeout = t.Read
	return &http.Client{
		Timeout:   t.Overall,
		Transport: transport,
	}
}

// prepareBody returns the body for the next attempt. Bodies are handed to
// net/http as in-memory readers so the Content-Length is always known.
func (c *Client) prepareBody(req *Request, first bool) (io.Reader, error) {
	if first && req.Body != nil {
		body := req.Body
		req.Body = nil
		return body, nil
	}
	if req.GetBody == nil {
		return nil, nil
	}
	rc, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("httpx: replay request body: %w", err)
	}
	data, err := ReadAllAndClose(rc)
	if err != nil {
		return nil, fmt.Errorf("httpx: replay request body: %w", err)
	}
	return bytes.NewReader(data), nil
}

func (c *Client) shouldRetry(req *Request, attempt int, resp *http.Response, err error) bool {
	if req.DisableRetry {
		return false
	}
	if attempt >= c.retryPolicy.MaxRetries {
		return false
	}
	if c.retryPolicy.RetryIf != nil {
		return c.retryPolicy.RetryIf(resp, err)
	}
	if resp == nil {
		if err == nil {
			return false
		}
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}
	return false
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func closeBody(rc io.ReadCloser) {
	if rc != nil {
		_ = rc.Close()
	}
}

func respBody(resp *http.Response) io.ReadCloser {
	if resp == nil {
		return nil
	}
	return resp.Body
}

// buildURL concatenates the base URL and path. The base path is never dropped,
// so a pod rooted at https://host/alice/ resolves "notes/" to
// https://host/alice/notes/.
func (c *Client) buildURL(path string, q url.Values) (string, error) {
	full := path
	if !isAbsolute(path) {
		full = c.baseURL + strings.TrimPrefix(path, "/")
	}
	parsed, err := url.Parse(full)
	if err != nil {
		return "", fmt.Errorf("httpx: invalid request URL %q: %w", full, err)
	}
	if len(q) > 0 {
		parsed.RawQuery = q.Encode()
	}
	return parsed.String(), nil
}

func (c *Client) handleError(resp *http.Response) error {
	defer closeBody(resp.Body)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpx: read error body: %w", err)
	}
	return &HTTPError{
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header.Clone(),
	}
}

// ReadAllAndClose drains the reader and ensures it is closed.
func ReadAllAndClose(rc io.ReadCloser) ([]byte, error) {
	defer closeBody(rc)
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// WithTrailingSlash returns s with exactly one trailing "/" appended when missing.
func WithTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

func isAbsolute(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

func cloneHeader(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for k, values := range src {
		vCopy := make([]string, len(values))
		copy(vCopy, values)
		dst[k] = vCopy
	}
	return dst
}
