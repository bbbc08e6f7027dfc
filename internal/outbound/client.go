package outbound

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/syncrunner/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/syncrunner/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/syncrunner/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/syncrunner/internal/payload"
)

// Config controls timeouts, retries and rate limiting.
type Config struct {
	Timeout      time.Duration
	Retries      int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	RateLimitRPS float64
	UserAgent    string
}

// DefaultConfig returns the settings used when none are supplied.
func DefaultConfig() Config {
	return Config{
		Timeout:      60 * time.Second,
		RetryWaitMin: time.Second,
		RetryWaitMax: 30 * time.Second,
		UserAgent:    "syncrunner/1.0",
	}
}

// Option customizes a Client.
type Option func(*Client)

// WithMetrics records every request on m.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger used for request and breaker events.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithBreakerSettings replaces the per-host circuit breaker settings.
func WithBreakerSettings(s resilience.Settings) Option {
	return func(c *Client) { c.breakerSettings = s }
}

// Client performs outbound requests. It is safe for concurrent use and is
// normally shared by every invocation of an engine.
type Client struct {
	resty           *resty.Client
	limiter         *rate.Limiter
	breakers        *resilience.Group
	breakerSettings resilience.Settings
	cfg             Config
	metrics         *monitoring.Metrics
	logger          *zap.Logger
}

var errServerStatus = errors.New("server error status")

// NewClient creates a client.
func NewClient(cfg Config, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RetryWaitMin <= 0 {
		cfg.RetryWaitMin = def.RetryWaitMin
	}
	if cfg.RetryWaitMax < cfg.RetryWaitMin {
		cfg.RetryWaitMax = cfg.RetryWaitMin
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}

	c := &Client{
		cfg:    cfg,
		logger: zap.NewNop(),
		breakerSettings: resilience.Settings{
			MaxRequests: 5,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			// Third-party APIs vary in reliability, so trip late.
			ReadyToTrip: func(counts resilience.Counts) bool {
				return counts.ConsecutiveFailures >= 10 ||
					(counts.Requests >= 20 && float64(counts.TotalFailures)/float64(counts.Requests) > 0.7)
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	settings := c.breakerSettings
	settings.IsSuccessful = func(err error) bool { return err == nil }
	settings.OnStateChange = func(host string, from, to resilience.State) {
		c.logger.Warn("Outbound circuit breaker changed state",
			zap.String("host", host),
			zap.Stringer("from", from),
			zap.Stringer("to", to))
		c.metrics.RecordBreakerChange(host, to.String())
	}
	c.breakers = resilience.NewGroup(settings)

	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil

	c.resty = resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(cfg.RetryWaitMin).
		SetRetryMaxWaitTime(cfg.RetryWaitMax).
		SetHeader("User-Agent", cfg.UserAgent).
		SetLogger(c.logger.Sugar()).
		SetTransport(retryClient.HTTPClient.Transport).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && (r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500)
		})

	if cfg.RateLimitRPS > 0 {
		burst := int(cfg.RateLimitRPS)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	} else {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
	}

	return c
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// BreakerStates reports the circuit breaker state per host.
func (c *Client) BreakerStates() map[string]resilience.State {
	return c.breakers.States()
}

// Do performs req. Non-2xx responses and transport errors are returned as
// *HTTPFailure; the response, when one was received, is attached to it.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	method := req.method()
	target := req.URL()
	failureCfg := c.failureConfig(method, target, req)

	resp, err := c.do(ctx, method, target, req)
	if err != nil {
		failure := transportFailure(err, failureCfg)
		c.record(method, target, failure.Code, 0, start)
		return nil, failure
	}

	out := newResponse(resp)
	if out.Status < 200 || out.Status >= 300 {
		failure := statusFailure(out, failureCfg)
		c.record(method, target, failure.Code, out.Status, start)
		return out, failure
	}

	c.record(method, target, "ok", out.Status, start)
	return out, nil
}

func (c *Client) do(ctx context.Context, method, target string, req Request) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, contentType, err := encodeBody(req.Data)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(req.Headers)+2)
	for k, v := range req.Headers {
		headers[k] = v
	}
	tracing.InjectTraceContext(ctx, headers)

	var resp *resty.Response
	err = c.breakers.Get(hostOf(target)).Execute(func() error {
		r := c.resty.R().
			SetContext(ctx).
			SetHeaders(headers).
			SetQueryParams(req.Params)
		if body != nil {
			if contentType != "" && !hasHeader(req.Headers, "Content-Type") {
				r.SetHeader("Content-Type", contentType)
			}
			r.SetBody(body)
		}

		var execErr error
		resp, execErr = r.Execute(method, target)
		if execErr != nil {
			return execErr
		}
		if resp.StatusCode() >= 500 {
			return errServerStatus
		}
		return nil
	})
	if errors.Is(err, errServerStatus) {
		return resp, nil
	}
	return resp, err
}

func (c *Client) record(method, target, outcome string, status int, start time.Time) {
	d := time.Since(start)
	c.metrics.RecordOutbound(method, outcome, d)
	c.logger.Debug("Outbound request",
		zap.String("method", method),
		zap.String("host", hostOf(target)),
		zap.Int("status", status),
		zap.String("outcome", outcome),
		zap.Duration("duration", d))
}

func (c *Client) failureConfig(method, target string, req Request) RequestConfig {
	return RequestConfig{
		Method:  strings.ToLower(method),
		URL:     target,
		Headers: req.Headers,
		Params:  req.Params,
		Timeout: c.cfg.Timeout,
		Retries: c.cfg.Retries,
	}
}

func encodeBody(data any) ([]byte, string, error) {
	switch t := data.(type) {
	case nil:
		return nil, "", nil
	case string:
		return []byte(t), "text/plain;charset=utf-8", nil
	case []byte:
		return t, "application/octet-stream", nil
	default:
		b, err := payload.Marshal(data)
		if err != nil {
			return nil, "", fmt.Errorf("encode request body: %w", err)
		}
		return b, "application/json", nil
	}
}

func hasHeader(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

func hostOf(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
