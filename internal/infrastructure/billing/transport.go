// Package billing talks to the remote billing service: users, balances,
// course pricing, payments and transactions all live there.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/studyon/coursehub/internal/core/domain"
)

const defaultTimeout = 5 * time.Second

// QueryParam is a single key=value pair. Order is preserved on the wire.
type QueryParam struct {
	Key   string
	Value string
}

// Request describes one call to the billing service.
type Request struct {
	Method  string
	Path    string
	Query   []QueryParam
	Body    any
	Headers map[string]string
}

// Response is the raw status/body pair. Any status is a valid response; the
// client decides what it means.
type Response struct {
	Status int
	Body   []byte
}

// Transport executes a request. Failing to reach the service at all is the
// only error it returns, always wrapping domain.ErrTransportUnavailable.
type Transport interface {
	Execute(ctx context.Context, req Request) (*Response, error)
}

// HTTPTransport is the net/http implementation of Transport. It never
// retries; the client timeout bounds every call.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTransport returns a transport rooted at baseURL. A default timeout
// is applied when timeout is not positive.
func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Execute sends req and returns whatever status the service answered with.
func (t *HTTPTransport) Execute(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	if !isNil(req.Body) {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, t.baseURL+req.Path+encodeQuery(req.Query), body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrTransportUnavailable, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransportUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrTransportUnavailable, err)
	}

	return &Response{Status: resp.StatusCode, Body: raw}, nil
}

// isNil treats typed nil pointers, maps and slices like a missing body.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// encodeQuery renders params as "?k=v&k=v". Keys are sent verbatim so that
// bracketed filter names stay readable; values are escaped.
func encodeQuery(params []QueryParam) string {
	if len(params) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(params))
	for _, p := range params {
		pairs = append(pairs, p.Key+"="+url.QueryEscape(p.Value))
	}
	return "?" + strings.Join(pairs, "&")
}
