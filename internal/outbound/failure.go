package outbound

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"time"

	"github.com/GriffinCanCode/syncrunner/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/syncrunner/internal/payload"
)

// Failure codes.
const (
	CodeConnRefused  = "ECONNREFUSED"
	CodeConnReset    = "ECONNRESET"
	CodeNotFound     = "ENOTFOUND"
	CodeTimedOut     = "ETIMEDOUT"
	CodeAborted      = "ECONNABORTED"
	CodeNetwork      = "ERR_NETWORK"
	CodeBadRequest   = "ERR_BAD_REQUEST"
	CodeBadResponse  = "ERR_BAD_RESPONSE"
	CodeCircuitOpen  = "ECIRCUITOPEN"
	FailureErrorName = "HttpError"
)

// RequestConfig echoes the request that failed.
type RequestConfig struct {
	Method  string
	URL     string
	Headers map[string]string
	Params  map[string]string
	Timeout time.Duration
	Retries int
}

// HTTPFailure is the error returned for every failed outbound request.
type HTTPFailure struct {
	Code     string
	Message  string
	Status   int
	Config   RequestConfig
	Response *Response

	cause error
}

func (f *HTTPFailure) Error() string {
	return fmt.Sprintf("%s %s: %s", f.Code, f.Config.URL, f.Message)
}

func (f *HTTPFailure) Unwrap() error {
	return f.cause
}

// FailurePayload describes the failure as the object a JavaScript HTTP
// client would reject with. Request headers are included verbatim.
func (f *HTTPFailure) FailurePayload() *payload.Map {
	m := payload.MapOf(
		"code", f.Code,
		"message", f.Message,
		"name", FailureErrorName,
	)
	if f.Status > 0 {
		m.Set("status", f.Status)
	}
	m.Set("config", payload.MapOf(
		"method", f.Config.Method,
		"url", f.Config.URL,
		"headers", payload.FromGo(f.Config.Headers),
		"params", payload.FromGo(f.Config.Params),
		"timeout", f.Config.Timeout.Milliseconds(),
		"retries", f.Config.Retries,
	))
	if f.Response != nil {
		m.Set("response", f.Response.Payload())
	}
	return m
}

func statusFailure(resp *Response, cfg RequestConfig) *HTTPFailure {
	code := CodeBadResponse
	if resp.Status < 500 {
		code = CodeBadRequest
	}
	return &HTTPFailure{
		Code:     code,
		Message:  fmt.Sprintf("Request failed with status code %d", resp.Status),
		Status:   resp.Status,
		Config:   cfg,
		Response: resp,
	}
}

func transportFailure(err error, cfg RequestConfig) *HTTPFailure {
	msg := err.Error()
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		msg = urlErr.Err.Error()
	}
	return &HTTPFailure{
		Code:    transportCode(err),
		Message: msg,
		Config:  cfg,
		cause:   err,
	}
}

func transportCode(err error) string {
	var (
		dnsErr *net.DNSError
		netErr net.Error
	)
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		return CodeCircuitOpen
	case errors.Is(err, context.Canceled):
		return CodeAborted
	case errors.Is(err, syscall.ECONNREFUSED):
		return CodeConnRefused
	case errors.Is(err, syscall.ECONNRESET):
		return CodeConnReset
	case errors.As(err, &dnsErr):
		return CodeNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimedOut
	case errors.As(err, &netErr) && netErr.Timeout():
		return CodeTimedOut
	default:
		return CodeNetwork
	}
}
