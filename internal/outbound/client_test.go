package outbound

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/syncrunner/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/syncrunner/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/syncrunner/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/syncrunner/internal/payload"
)

func testConfig() Config {
	return Config{
		Timeout:      2 * time.Second,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	}
}

func asFailure(t *testing.T, err error) *HTTPFailure {
	t.Helper()
	var failure *HTTPFailure
	require.ErrorAs(t, err, &failure)
	return failure
}

func TestDoSendsRequest(t *testing.T) {
	var (
		gotMethod, gotQuery, gotAuth, gotType string
		gotBody                               []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.Query().Get("page")
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":7,"tags":["a","b"],"nested":{"z":1,"a":2}}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig())
	resp, err := c.Do(context.Background(), Request{
		Method:   "post",
		BaseURL:  srv.URL + "/",
		Endpoint: "/items",
		Headers:  map[string]string{"Authorization": "Bearer token"},
		Params:   map[string]string{"page": "2"},
		Data:     payload.MapOf("b", 1, "a", "x"),
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "2", gotQuery)
	assert.Equal(t, "Bearer token", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.JSONEq(t, `{"b":1,"a":"x"}`, string(gotBody))

	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "application/json", resp.Headers["content-type"])
	data, ok := resp.Data.(*payload.Map)
	require.True(t, ok)
	assert.Equal(t, []string{"id", "tags", "nested"}, data.Keys())
	nested, _ := data.Get("nested")
	assert.Equal(t, []string{"z", "a"}, nested.(*payload.Map).Keys())
}

func TestDoTextBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("plain text"))
	}))
	defer srv.Close()

	resp, err := NewClient(testConfig()).Do(context.Background(), Request{Endpoint: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "plain text", resp.Data)
}

func TestDoStatusFailures(t *testing.T) {
	tests := []struct {
		status   int
		wantCode string
	}{
		{http.StatusNotFound, CodeBadRequest},
		{http.StatusUnauthorized, CodeBadRequest},
		{http.StatusBadGateway, CodeBadResponse},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			resp, err := NewClient(testConfig()).Do(context.Background(), Request{
				BaseURL:  srv.URL,
				Endpoint: "/thing",
				Headers:  map[string]string{"Authorization": "Bearer token"},
			})

			failure := asFailure(t, err)
			assert.Equal(t, tt.wantCode, failure.Code)
			assert.Equal(t, tt.status, failure.Status)
			require.NotNil(t, resp)
			assert.Equal(t, tt.status, resp.Status)

			p := failure.FailurePayload().ToStd()
			assert.Equal(t, tt.wantCode, p["code"])
			assert.Equal(t, "HttpError", p["name"])
			assert.Equal(t, tt.status, p["status"])
			config := p["config"].(map[string]any)
			assert.Equal(t, "get", config["method"])
			assert.Equal(t, srv.URL+"/thing", config["url"])
			assert.Equal(t, "Bearer token", config["headers"].(map[string]any)["Authorization"])
			response := p["response"].(map[string]any)
			assert.Equal(t, map[string]any{"error": "nope"}, response["data"])
		})
	}
}

func TestDoConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	resp, err := NewClient(testConfig()).Do(context.Background(), Request{BaseURL: addr, Endpoint: "/x"})

	assert.Nil(t, resp)
	failure := asFailure(t, err)
	assert.Equal(t, CodeConnRefused, failure.Code)
	assert.Zero(t, failure.Status)
	assert.Contains(t, failure.Message, "connection refused")
	assert.False(t, failure.FailurePayload().Has("response"))
	assert.False(t, failure.FailurePayload().Has("status"))
}

func TestDoTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := testConfig()
	cfg.Timeout = 50 * time.Millisecond
	_, err := NewClient(cfg).Do(context.Background(), Request{Endpoint: srv.URL})

	assert.Equal(t, CodeTimedOut, asFailure(t, err).Code)
}

func TestDoCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := NewClient(testConfig()).Do(ctx, Request{Endpoint: srv.URL})
	assert.Equal(t, CodeAborted, asFailure(t, err).Code)
}

func TestDoRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Retries = 2
	resp, err := NewClient(cfg).Do(context.Background(), Request{Endpoint: srv.URL})

	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, int32(3), hits.Load())
}

func TestDoCircuitOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	c := NewClient(testConfig(),
		WithMetrics(metrics),
		WithBreakerSettings(resilience.Settings{
			Timeout:     time.Minute,
			ReadyToTrip: func(counts resilience.Counts) bool { return counts.ConsecutiveFailures >= 2 },
		}))

	for i := 0; i < 2; i++ {
		_, err := c.Do(context.Background(), Request{Endpoint: srv.URL})
		assert.Equal(t, CodeBadResponse, asFailure(t, err).Code)
	}

	_, err := c.Do(context.Background(), Request{Endpoint: srv.URL})
	assert.Equal(t, CodeCircuitOpen, asFailure(t, err).Code)
	assert.Equal(t, int32(2), hits.Load())

	states := c.BreakerStates()
	assert.Len(t, states, 1)
	for _, s := range states {
		assert.Equal(t, resilience.StateOpen, s)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.OutboundRequests.WithLabelValues("GET", CodeCircuitOpen)))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.OutboundRequests.WithLabelValues("GET", CodeBadResponse)))
}

func TestRequestURL(t *testing.T) {
	tests := []struct {
		req  Request
		want string
	}{
		{Request{BaseURL: "https://api.x.com/", Endpoint: "/v1/a"}, "https://api.x.com/v1/a"},
		{Request{BaseURL: "https://api.x.com", Endpoint: "v1/a"}, "https://api.x.com/v1/a"},
		{Request{BaseURL: "https://api.x.com", Endpoint: "https://other.com/b"}, "https://other.com/b"},
		{Request{BaseURL: "https://api.x.com"}, "https://api.x.com"},
		{Request{Endpoint: "https://only.com"}, "https://only.com"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.req.URL())
	}
}

func TestDoPropagatesTraceContext(t *testing.T) {
	var gotTrace, gotSpan string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTrace = r.Header.Get(tracing.HeaderTraceID)
		gotSpan = r.Header.Get(tracing.HeaderSpanID)
	}))
	defer srv.Close()

	headers := map[string]string{"Accept": "application/json"}
	ctx := tracing.WithTraceContext(context.Background(), "trace-1", "span-1")
	_, err := NewClient(testConfig()).Do(ctx, Request{BaseURL: srv.URL, Endpoint: "/", Headers: headers})
	require.NoError(t, err)

	assert.Equal(t, "trace-1", gotTrace)
	assert.Equal(t, "span-1", gotSpan)
	assert.Len(t, headers, 1, "caller headers must not be modified")
}

func TestDecodeData(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d, 'I', 'H', 'D', 'R', 0xff}

	tests := []struct {
		name string
		body []byte
		want any
	}{
		{"empty", nil, ""},
		{"json", []byte(`{"id":1}`), payload.MapOf("id", float64(1))},
		{"text", []byte("plain words"), "plain words"},
		{"html", []byte("<html><body>hi</body></html>"), "<html><body>hi</body></html>"},
		{"binary", png, base64.StdEncoding.EncodeToString(png)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeData(tt.body))
		})
	}
}
