package pod

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Ratio1/pod_sdk_go/internal/httpx"
)

// Client talks to a single pod. It holds no per-resource state: every
// operation is a fresh round trip.
type Client struct {
	ref       Ref
	transport Transport
	logger    *slog.Logger

	conditionalAttempts int
	locks               *keyedMutex
}

type options struct {
	logger              *slog.Logger
	httpOpts            []httpx.Option
	transport           Transport
	conditionalAttempts int
	lockUpdates         bool
}

// Option configures a Client.
type Option func(*options)

// WithLogger sets the diagnostic sink. By default the client is silent.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(o *options) {
		o.httpOpts = append(o.httpOpts, httpx.WithHTTPClient(h))
	}
}

// WithHeaders adds default headers to every request.
func WithHeaders(h http.Header) Option {
	return func(o *options) {
		o.httpOpts = append(o.httpOpts, httpx.WithHeaders(h))
	}
}

// WithTimeouts bounds connection setup, waiting for response headers and the
// whole exchange. Zero values keep the defaults (5s, 5s, 10s).
func WithTimeouts(connect, read, overall time.Duration) Option {
	return func(o *options) {
		o.httpOpts = append(o.httpOpts, httpx.WithTimeouts(httpx.Timeouts{
			Connect: connect,
			Read:    read,
			Overall: overall,
		}))
	}
}

// WithRetries retries network failures and 408/429/5xx responses up to max
// times with exponential backoff. Requests are not retried by default.
func WithRetries(max int, baseDelay, maxDelay time.Duration) Option {
	return func(o *options) {
		policy := httpx.TransientRetryPolicy
		policy.MaxRetries = max
		if baseDelay > 0 {
			policy.BaseDelay = baseDelay
		}
		if maxDelay > 0 {
			policy.MaxDelay = maxDelay
		}
		o.httpOpts = append(o.httpOpts, httpx.WithRetryPolicy(policy))
	}
}

// WithRateLimit caps outbound requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		o.httpOpts = append(o.httpOpts, httpx.WithRateLimit(rps, burst))
	}
}

// WithTransport replaces the HTTP transport, e.g. with an in-memory pod.
func WithTransport(t Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithConditionalUpdates makes Update send If-Match (or If-None-Match: * for
// a new resource) and repeat the read-modify-write up to attempts times when
// the pod answers 412. attempts <= 0 disables the feature.
func WithConditionalUpdates(attempts int) Option {
	return func(o *options) {
		o.conditionalAttempts = attempts
	}
}

// WithResourceLocking serialises Update calls on the same resource made
// through this Client. It does not protect against other processes.
func WithResourceLocking() Option {
	return func(o *options) {
		o.lockUpdates = true
	}
}

// New constructs a Client for the pod rooted at podURL.
func New(podURL string, opts ...Option) (*Client, error) {
	ref, err := ParseRef(podURL)
	if err != nil {
		return nil, err
	}
	o := collect(opts)
	if o.transport == nil {
		hc, err := httpx.NewClient(ref.String(), o.httpOpts...)
		if err != nil {
			return nil, err
		}
		o.transport = NewHTTPTransport(hc, o.logger)
	}
	return newClient(ref, o), nil
}

// NewWithTransport wraps an existing Transport (e.g., mocks).
func NewWithTransport(ref Ref, t Transport, opts ...Option) *Client {
	o := collect(opts)
	o.transport = t
	return newClient(ref, o)
}

func collect(opts []Option) *options {
	o := &options{logger: discardLogger()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func newClient(ref Ref, o *options) *Client {
	c := &Client{
		ref:                 ref,
		transport:           o.transport,
		logger:              o.logger.With("pod", ref.String()),
		conditionalAttempts: o.conditionalAttempts,
	}
	if o.lockUpdates {
		c.locks = newKeyedMutex()
	}
	c.logger.Info("pod client initialised")
	return c
}

// Ref returns the pod reference the client is bound to.
func (c *Client) Ref() Ref {
	return c.ref
}

func (c *Client) opLogger(op string, args ...any) *slog.Logger {
	return c.logger.With(append([]any{"op", op, "op_id", uuid.NewString()}, args...)...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
