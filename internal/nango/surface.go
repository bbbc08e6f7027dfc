package nango

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/syncrunner/internal/invocation"
	"github.com/GriffinCanCode/syncrunner/internal/outbound"
	"github.com/GriffinCanCode/syncrunner/internal/payload"
)

// Header names set on every outbound call.
const (
	HeaderConnectionID      = "Connection-Id"
	HeaderProviderConfigKey = "Provider-Config-Key"
	HeaderDryRun            = "Nango-Is-Dry-Run"
)

// ErrMissingEndpoint is returned for a proxy call without an endpoint.
var ErrMissingEndpoint = errors.New("endpoint is required")

// Config holds the Nango API addresses.
type Config struct {
	APIURL   string
	ProxyURL string
}

// DefaultConfig points at a local Nango server.
func DefaultConfig() Config {
	return Config{APIURL: "http://localhost:3003", ProxyURL: "http://localhost:3003/proxy"}
}

// ProxyConfig describes a call a script makes to a third-party API.
type ProxyConfig struct {
	Method          string
	Endpoint        string
	BaseURLOverride string
	Headers         map[string]string
	Params          map[string]string
	Data            any
}

// Surface is the host API of one invocation.
type Surface struct {
	ic     *invocation.Context
	client *outbound.Client
	cfg    Config
	logger *zap.Logger
}

// NewSurface binds a surface to ic.
func NewSurface(ic *invocation.Context, client *outbound.Client, cfg Config, logger *zap.Logger) *Surface {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultConfig().APIURL
	}
	if cfg.ProxyURL == "" {
		cfg.ProxyURL = strings.TrimRight(cfg.APIURL, "/") + "/proxy"
	}
	return &Surface{
		ic:     ic,
		client: client,
		cfg:    cfg,
		logger: logger.With(zap.String("invocation_id", ic.ID().String())),
	}
}

// Context returns the invocation the surface is bound to.
func (s *Surface) Context() *invocation.Context {
	return s.ic
}

// Proxy performs pc through the Nango proxy, or directly against
// BaseURLOverride when set.
func (s *Surface) Proxy(ctx context.Context, pc ProxyConfig) (*outbound.Response, error) {
	if pc.Endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	base := s.cfg.ProxyURL
	if pc.BaseURLOverride != "" {
		base = pc.BaseURLOverride
	}
	return s.client.Do(ctx, outbound.Request{
		Method:   pc.Method,
		BaseURL:  base,
		Endpoint: pc.Endpoint,
		Headers:  s.headers(pc.Headers),
		Params:   pc.Params,
		Data:     pc.Data,
	})
}

// GetConnection fetches the connection record from the Nango API.
func (s *Surface) GetConnection(ctx context.Context) (any, error) {
	meta := s.ic.Metadata()
	resp, err := s.client.Do(ctx, outbound.Request{
		Method:   http.MethodGet,
		BaseURL:  s.cfg.APIURL,
		Endpoint: "/connection/" + url.PathEscape(meta.ConnectionID),
		Headers:  s.headers(nil),
		Params:   map[string]string{"provider_config_key": meta.ProviderConfigKey},
	})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetMetadata returns the metadata stored on the connection, or an empty
// mapping when it has none.
func (s *Surface) GetMetadata(ctx context.Context) (any, error) {
	conn, err := s.GetConnection(ctx)
	if err != nil {
		return nil, err
	}
	if m, ok := conn.(*payload.Map); ok {
		if md, ok := m.Get("metadata"); ok && md != nil {
			return md, nil
		}
	}
	return payload.NewMap(), nil
}

// Log appends a script message to the progress log.
func (s *Surface) Log(level, message string) {
	s.ic.Progress().Log(level, message)
	s.logger.Debug(message, zap.String("level", level))
}

// Record counts records reported by a batch operation.
func (s *Surface) Record(op invocation.RecordOp, n int) {
	s.ic.Progress().Record(op, n)
}

// headers merges the caller's headers with the credentials and identity of
// the invocation. The latter win on conflict.
func (s *Surface) headers(user map[string]string) map[string]string {
	meta := s.ic.Metadata()
	out := make(map[string]string, len(user)+4)
	for k, v := range user {
		out[k] = v
	}
	for k := range out {
		if strings.EqualFold(k, "Authorization") {
			delete(out, k)
		}
	}
	out["Authorization"] = "Bearer " + meta.SecretKey
	out[HeaderConnectionID] = meta.ConnectionID
	out[HeaderProviderConfigKey] = meta.ProviderConfigKey
	if meta.DryRun {
		out[HeaderDryRun] = "true"
	}
	return out
}

// ParseProxyConfig reads a proxy configuration exported from a script.
// method, when set, overrides the configuration's own method.
func ParseProxyConfig(v any, method string) (ProxyConfig, error) {
	m, ok := v.(*payload.Map)
	if !ok {
		return ProxyConfig{}, fmt.Errorf("proxy configuration must be an object")
	}
	pc := ProxyConfig{
		Method:          stringField(m, "method"),
		Endpoint:        stringField(m, "endpoint"),
		BaseURLOverride: stringField(m, "baseUrlOverride"),
		Headers:         stringMap(m, "headers"),
		Params:          stringMap(m, "params"),
	}
	if data, ok := m.Get("data"); ok {
		pc.Data = data
	}
	if method != "" {
		pc.Method = method
	}
	if pc.Endpoint == "" {
		return ProxyConfig{}, ErrMissingEndpoint
	}
	return pc, nil
}

func stringField(m *payload.Map, key string) string {
	v, _ := m.Get(key)
	s, _ := v.(string)
	return s
}

func stringMap(m *payload.Map, key string) map[string]string {
	v, _ := m.Get(key)
	inner, ok := v.(*payload.Map)
	if !ok {
		return nil
	}
	out := make(map[string]string, inner.Len())
	inner.Range(func(k string, val any) bool {
		switch t := val.(type) {
		case nil:
		case string:
			out[k] = t
		default:
			b, err := payload.Marshal(t)
			if err == nil {
				out[k] = string(b)
			}
		}
		return true
	})
	return out
}
