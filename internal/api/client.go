// Package api is the client for the remote personnel and inventory service.
//
// Every operation is an HTTP POST of a flat JSON object to
// <base URL>/<Endpoint>.php. The server answers with a JSON object carrying a
// boolean success flag plus endpoint-specific fields. Client never panics or
// returns a bare error: every failure is an *Error classified as a transport,
// decode or application failure.
//
// Send is the asynchronous primitive; the typed helpers (Login, UserInfo,
// Inventory, NewRequest, SubmitLog) block until the response arrives or the
// context is done.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/erazemk/msds/internal/model"
)

const (
	// DefaultBaseURL is the production web service.
	DefaultBaseURL = "https://msdsdb.000webhostapp.com/android_webservice"

	// DefaultTimeout bounds a single request, including reading the body.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the largest response body the client will read.
	MaxResponseSize = 1 << 20

	userAgent = "msds-client/1.0"
)

// Payload is the flat string-to-string request body.
type Payload map[string]string

// Response is the outcome of Send. Err is nil only when the server reported
// success; Fields then holds the decoded top-level JSON object.
type Response struct {
	Endpoint model.Endpoint
	Status   int
	Fields   map[string]json.RawMessage
	Err      error
}

// Client sends requests to the remote service. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	// Collected from options and applied once they have all run.
	timeout   time.Duration
	transport http.RoundTripper
}

// Option configures a Client. Options may be given in any order.
type Option func(*Client)

// WithHTTPClient uses a copy of hc as the underlying HTTP client. A nil hc
// keeps the default. WithTimeout and WithTransport still apply on top of it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithTransport replaces the round tripper of the underlying HTTP client.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client for the service rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	hc := &http.Client{
		Timeout:   DefaultTimeout,
		Transport: otelhttp.NewTransport(defaultTransport()),
	}
	if c.httpClient != nil {
		copied := *c.httpClient
		hc = &copied
	}
	if c.timeout > 0 {
		hc.Timeout = c.timeout
	}
	if c.transport != nil {
		hc.Transport = c.transport
	}
	c.httpClient = hc

	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

func defaultTransport() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}

// BaseURL returns the service root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL returns the full URL of an endpoint.
func (c *Client) URL(ep model.Endpoint) string {
	return c.baseURL + "/" + ep.Path()
}

// Send issues the request on its own goroutine and returns immediately. The
// returned channel receives exactly one Response and is buffered, so a caller
// that stops listening does not leak the goroutine. Cancelling ctx aborts the
// request and yields a transport error.
func (c *Client) Send(ctx context.Context, ep model.Endpoint, payload Payload) <-chan Response {
	ch := make(chan Response, 1)
	go func() {
		ch <- c.Do(ctx, ep, payload)
	}()
	return ch
}

// Do is the blocking form of Send.
func (c *Client) Do(ctx context.Context, ep model.Endpoint, payload Payload) Response {
	resp := Response{Endpoint: ep}

	if !ep.Valid() {
		resp.Err = transportError(ep, nil, "unknown endpoint %q", ep)
		return resp
	}

	body, err := json.Marshal(payload)
	if err != nil {
		resp.Err = transportError(ep, err, "encoding request")
		return resp
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(ep), bytes.NewReader(body))
	if err != nil {
		resp.Err = transportError(ep, err, "creating request")
		return resp
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("api request failed", "endpoint", ep, "error", err)
		resp.Err = transportError(ep, err, "sending request")
		return resp
	}
	defer httpResp.Body.Close()

	resp.Status = httpResp.StatusCode
	c.logger.Debug("api response", "endpoint", ep, "status", httpResp.StatusCode, "duration", time.Since(start).Round(time.Millisecond))

	data, err := readResponse(httpResp)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			apiErr.Endpoint = ep
			apiErr.Status = resp.Status
			resp.Err = apiErr
		} else {
			resp.Err = transportError(ep, err, "reading response")
		}
		return resp
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		resp.Err = &Error{
			Kind:     KindTransport,
			Endpoint: ep,
			Status:   httpResp.StatusCode,
			Message:  fmt.Sprintf("unexpected HTTP status %d", httpResp.StatusCode),
		}
		return resp
	}

	// The log endpoint's answer carries no information the client acts on.
	flag := ep.SuccessField()
	if flag == "" {
		return resp
	}

	fields, err := decodeObject(data)
	if err != nil {
		decErr := decodeError(ep, err, "response is not a JSON object")
		decErr.Status = resp.Status
		resp.Err = decErr
		return resp
	}

	if appErr := checkSuccess(ep, flag, fields); appErr != nil {
		appErr.Status = resp.Status
		resp.Err = appErr
		return resp
	}

	resp.Fields = fields
	return resp
}

// readResponse reads the body up to MaxResponseSize.
func readResponse(resp *http.Response) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxResponseSize {
		return nil, &Error{
			Kind:    KindDecode,
			Message: fmt.Sprintf("response exceeds %d bytes", MaxResponseSize),
		}
	}
	return data, nil
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("body is null")
	}
	return fields, nil
}

// checkSuccess inspects the endpoint's success flag. A missing flag counts as
// failure; a flag that is not a boolean means the body has the wrong shape.
func checkSuccess(ep model.Endpoint, flag string, fields map[string]json.RawMessage) *Error {
	raw, ok := fields[flag]
	if !ok || isNull(raw) {
		return &Error{
			Kind:     KindApplication,
			Endpoint: ep,
			Message:  serverReason(fields, fmt.Sprintf("response has no %s flag", flag)),
		}
	}

	var success bool
	if err := json.Unmarshal(raw, &success); err != nil {
		return decodeError(ep, err, "%s is not a boolean", flag)
	}
	if !success {
		return &Error{
			Kind:     KindApplication,
			Endpoint: ep,
			Message:  serverReason(fields, "operation failed"),
		}
	}
	return nil
}

// serverReason returns the server-supplied explanation, if any.
func serverReason(fields map[string]json.RawMessage, fallback string) string {
	for _, name := range []string{model.FieldMessage, model.FieldError} {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		var reason string
		if err := json.Unmarshal(raw, &reason); err == nil && strings.TrimSpace(reason) != "" {
			return reason
		}
	}
	return fallback
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
