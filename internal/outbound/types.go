package outbound

import (
	"encoding/base64"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"

	"github.com/GriffinCanCode/syncrunner/internal/payload"
)

// Request describes one outbound call.
type Request struct {
	Method   string
	BaseURL  string
	Endpoint string
	Headers  map[string]string
	Params   map[string]string
	Data     any
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

// URL joins BaseURL and Endpoint. An absolute endpoint is used as is.
func (r Request) URL() string {
	if r.BaseURL == "" || strings.HasPrefix(r.Endpoint, "http://") || strings.HasPrefix(r.Endpoint, "https://") {
		return r.Endpoint
	}
	if r.Endpoint == "" {
		return r.BaseURL
	}
	return strings.TrimRight(r.BaseURL, "/") + "/" + strings.TrimLeft(r.Endpoint, "/")
}

// Response is a received HTTP response.
type Response struct {
	Status  int
	Headers map[string]string
	Body    []byte
	// Data is the decoded body: a payload tree for JSON, otherwise the body text.
	Data any
}

func newResponse(r *resty.Response) *Response {
	headers := make(map[string]string, len(r.Header()))
	for k, v := range r.Header() {
		if len(v) > 0 {
			headers[strings.ToLower(k)] = v[0]
		}
	}
	body := r.Body()
	return &Response{
		Status:  r.StatusCode(),
		Headers: headers,
		Body:    body,
		Data:    decodeData(body),
	}
}

// decodeData parses JSON bodies. Other text is returned as a string and
// binary content base64 encoded, so the result always serializes as JSON.
func decodeData(body []byte) any {
	if len(body) == 0 {
		return ""
	}
	if v, err := payload.Decode(body); err == nil {
		return v
	}
	if isText(mimetype.Detect(body)) && utf8.Valid(body) {
		return string(body)
	}
	return base64.StdEncoding.EncodeToString(body)
}

func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// Payload describes the response as {status, headers, data}.
func (r *Response) Payload() *payload.Map {
	return payload.MapOf(
		"status", r.Status,
		"headers", payload.FromGo(r.Headers),
		"data", r.Data,
	)
}
