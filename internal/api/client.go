// Package api is the HTTP collaborator of the CRM client: a JSON client core
// with session-aware authentication, and typed services for the catalog,
// party, quotation and auth endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yashgupta8707/jubilant-system/internal/metrics"
	"github.com/yashgupta8707/jubilant-system/internal/session"
)

// TracerName is the instrumentation name of client spans
const TracerName = "crmctl/api"

// RequestIDHeader carries the per-call request identifier
const RequestIDHeader = "X-Request-ID"

// Config configures a Client
type Config struct {
	BaseURL        string
	Prefix         string // default /api
	Timeout        time.Duration
	RateLimitQPS   float64 // 0 disables rate limiting
	RateLimitBurst int
	MaxRetries     int // retries for GET requests on transport errors, 5xx and 429
	RetryDelay     time.Duration
	MaxDelay       time.Duration
	Headers        map[string]string
}

// Client is the HTTP client shared by the API services.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	prefix     string
	headers    map[string]string
	session    *session.Session
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
	logger     *zap.Logger
	metrics    *metrics.Metrics
	tracerProv trace.TracerProvider
}

// Option configures a Client
type Option func(*Client)

// WithSession authenticates requests with the session token and tears the
// session down on 401 responses.
func WithSession(s *session.Session) Option {
	return func(c *Client) { c.session = s }
}

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger.Named("api") }
}

// WithMetrics records request metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTracerProvider sets the provider used for request spans.
// By default the global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracerProv = tp }
}

// NewClient creates a new API client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("api: base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("api: invalid base URL: %w", err)
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "/api"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    base,
		prefix:     "/" + strings.Trim(cfg.Prefix, "/"),
		headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
			"User-Agent":   "crmctl/1.0",
		},
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		maxDelay:   cfg.MaxDelay,
		logger:     zap.NewNop(),
	}
	for k, v := range cfg.Headers {
		c.headers[k] = v
	}
	if cfg.RateLimitQPS > 0 {
		burst := cfg.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitQPS), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Request is a single API call
type Request struct {
	Op     string // operation name used for spans and metrics, e.g. "models.search"
	Method string
	Path   string // relative to the API prefix
	Query  url.Values
	Body   any
}

// Response is a completed HTTP exchange
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
	RequestID  string

	token string
}

// Do executes req. A response outside 2xx is returned together with an *Error;
// a failure to obtain a response wraps ErrTransport.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Op == "" {
		req.Op = strings.ToLower(req.Method) + " " + req.Path
	}
	u := c.buildURL(req.Path, req.Query)

	var body []byte
	if req.Body != nil {
		var err error
		body, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("api: marshaling request body: %w", err)
		}
	}

	ctx, span := c.tracer().Start(ctx, req.Op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", u.Path),
		),
	)
	defer span.End()

	requestID := uuid.NewString()
	span.SetAttributes(attribute.String("crm.request_id", requestID))

	retries := 0
	if req.Method == http.MethodGet {
		retries = c.maxRetries
	}

	var (
		resp *Response
		err  error
	)
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt)
			c.logger.Warn("retrying request",
				zap.String("op", req.Op),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return nil, c.fail(span, fmt.Errorf("%w: %w", ErrTransport, ctx.Err()))
			case <-time.After(delay):
			}
		}

		resp, err = c.roundTrip(ctx, req, u, body, requestID)
		if attempt < retries && shouldRetry(ctx, resp, err) {
			continue
		}
		break
	}

	if err != nil {
		return nil, c.fail(span, err)
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode == http.StatusUnauthorized && c.session != nil {
		if c.session.HandleUnauthorizedFor(resp.token) {
			c.logger.Warn("unauthorized response, session cleared", zap.String("op", req.Op))
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, c.fail(span, parseError(req.Op, resp))
	}

	span.SetStatus(codes.Ok, "")
	return resp, nil
}

func (c *Client) roundTrip(ctx context.Context, req Request, u *url.URL, body []byte, requestID string) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w", ErrTransport, err)
		}
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("api: creating HTTP request: %w", err)
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	httpReq.Header.Set(RequestIDHeader, requestID)
	var token string
	if c.session != nil {
		token = c.session.Authenticate(httpReq)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		c.metrics.ObserveRequest(req.Op, 0, duration)
		c.logger.Debug("request failed",
			zap.String("op", req.Op),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		c.metrics.ObserveRequest(req.Op, 0, duration)
		return nil, fmt.Errorf("%w: reading response body: %w", ErrTransport, err)
	}

	c.metrics.ObserveRequest(req.Op, httpResp.StatusCode, duration)
	c.logger.Debug("request completed",
		zap.String("op", req.Op),
		zap.String("method", req.Method),
		zap.String("path", u.Path),
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("duration", duration),
		zap.String("request_id", requestID),
	)

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		Duration:   duration,
		RequestID:  requestID,
		token:      token,
	}, nil
}

func (c *Client) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (c *Client) tracer() trace.Tracer {
	tp := c.tracerProv
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(TracerName)
}

// buildURL joins the base URL, the API prefix and path, and encodes query.
func (c *Client) buildURL(path string, query url.Values) *url.URL {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + c.prefix + path
	u.RawPath = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return &u
}

// backoff returns the exponential delay for attempt with ±25% jitter.
func (c *Client) backoff(attempt int) time.Duration {
	delay := float64(c.retryDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.maxDelay) {
		delay = float64(c.maxDelay)
	}
	jitter := delay * 0.25
	delay += (rand.Float64()*2 - 1) * jitter
	return time.Duration(delay)
}

func shouldRetry(ctx context.Context, resp *Response, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		return errors.Is(err, ErrTransport)
	}
	return resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
}

// envelope is the {success, data, error} wrapper some backends put around payloads.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// decode unmarshals a response body into T, unwrapping a {success, data} envelope when present.
func decode[T any](resp *Response) (T, error) {
	var out T
	body := bytes.TrimSpace(resp.Body)
	if len(body) > 0 && body[0] == '{' {
		var env envelope
		if err := json.Unmarshal(body, &env); err == nil && env.Success != nil && len(env.Data) > 0 {
			body = env.Data
		}
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return out, nil
}

// call performs req and decodes the response into T.
func call[T any](ctx context.Context, c *Client, req Request) (T, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](resp)
}

func escape(id string) string {
	return url.PathEscape(id)
}
