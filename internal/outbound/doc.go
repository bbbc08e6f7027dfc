// Package outbound performs the HTTP requests scripts make through the host
// API.
//
// Requests go through resty on top of a pooled retryablehttp transport, wait
// on a shared rate limiter and run inside a per-host circuit breaker. Any
// failure, whether the connection could not be made or the server answered
// with a non-2xx status, is reported as an *HTTPFailure whose payload mirrors
// the error object JavaScript HTTP clients produce.
package outbound
