// Package api is the HTTP transport for the entity, session and report
// services.
//
// One Client is shared per base URL. Credentials are passed per call as
// bearer tokens; an empty credential sends no Authorization header. Every
// request waits on a client-side rate limiter before it is sent.
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Defaults used when no option overrides them.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second
	DefaultBurst     = 5
)

// Client is a JSON-over-HTTP client for the civic backend.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithRateLimit sets the client-side request rate. A non-positive rps
// disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New returns a Client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Accept", "application/json").
			SetTimeout(DefaultTimeout),
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultBurst),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.SetLogger(c.log.Named("resty").Sugar())
	return c
}

// Entities returns the entity service.
func (c *Client) Entities() *Entities { return &Entities{c: c} }

// Sessions returns the session service.
func (c *Client) Sessions() *Sessions { return &Sessions{c: c} }

// Reports returns the report service.
func (c *Client) Reports() *Reports { return &Reports{c: c} }

// call describes one request.
type call struct {
	op     string
	method string
	path   string
	cred   string
	query  map[string]string
	body   any
	out    any
}

// errorBody is the JSON error envelope the services return with non-2xx
// statuses.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e *errorBody) detail() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// do sends the request and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, cl call) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return networkError(cl.op, err)
	}

	req := c.http.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetError(&errorBody{})
	if cl.cred != "" {
		req.SetAuthToken(cl.cred)
	}
	if len(cl.query) > 0 {
		req.SetQueryParams(cl.query)
	}
	if cl.body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(cl.body)
	}
	if cl.out != nil {
		req.SetResult(cl.out)
	}

	start := time.Now()
	resp, err := req.Execute(cl.method, cl.path)
	if err != nil && (resp == nil || resp.RawResponse == nil) {
		c.log.Debug("request failed",
			zap.String("op", cl.op),
			zap.String("path", cl.path),
			zap.Error(err))
		return networkError(cl.op, err)
	}
	c.log.Debug("request",
		zap.String("op", cl.op),
		zap.String("method", cl.method),
		zap.String("path", cl.path),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("took", time.Since(start)))

	if !resp.IsSuccess() {
		eb, _ := resp.Error().(*errorBody)
		return statusError(cl.op, resp.StatusCode(), resp.String(), eb.detail())
	}
	if err != nil {
		return &TransportError{
			Op:         cl.op,
			Category:   Irrecoverable,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}
