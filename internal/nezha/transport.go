package nezha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/nzmon/nzmon/internal/errors"
	"github.com/nzmon/nzmon/internal/logger"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a single request to the dashboard.
	DefaultTimeout = 10 * time.Second

	// MaxBodySize caps how much of a response body is read.
	MaxBodySize = 4 << 20

	// RequestIDHeader carries a per-request ID for correlating dashboard logs.
	RequestIDHeader = "X-Request-ID"

	// MalformedError is the Response.Error value for bodies that are not JSON.
	MalformedError = "invalid response"
)

// Response is a parsed dashboard reply. The dashboard wraps everything in an
// envelope of the form {"success": bool, "data": ..., "error": "..."}; some
// deployments also echo an HTTP-like "status" field.
type Response struct {
	// HTTPStatus is the HTTP status code of the reply.
	HTTPStatus int

	// Status is the JSON "status" field, 0 when absent.
	Status int

	Success bool
	Data    json.RawMessage
	Error   string

	// Raw is the body as received. Always set.
	Raw string

	// Malformed is true when the body was not valid JSON.
	Malformed bool

	hasStatus bool
}

// Unauthorized reports whether the dashboard rejected the session token.
func (r *Response) Unauthorized() bool {
	if r.hasStatus {
		return r.Status == http.StatusUnauthorized
	}
	return r.HTTPStatus == http.StatusUnauthorized
}

type envelope struct {
	Status  *int            `json:"status"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

// Doer is the subset of *http.Client the transport needs.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// TransportOptions configures a Transport.
type TransportOptions struct {
	// Timeout for each request. Zero means DefaultTimeout.
	Timeout time.Duration

	// RateLimit caps requests per second. Zero disables the limit.
	RateLimit float64

	// HTTPClient overrides the pooled client. Timeout is not applied to it.
	HTTPClient Doer

	Logger logger.Logger
}

// Transport issues JSON requests to the dashboard API.
type Transport struct {
	client  Doer
	limiter *rate.Limiter
	log     logger.Logger
}

// NewTransport creates a transport backed by a pooled HTTP client.
func NewTransport(opts TransportOptions) *Transport {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c := cleanhttp.DefaultPooledClient()
		c.Timeout = timeout
		client = c
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &Transport{
		client:  client,
		limiter: limiter,
		log:     logger.OrDefault(opts.Logger),
	}
}

// Request sends one request and parses the reply. body is pre-serialized
// JSON and is ignored for GET. An empty token omits the Authorization header.
//
// Connection failures return an ErrTransport error. A reply that is not JSON
// is not an error: it comes back with Malformed set.
func (t *Transport) Request(ctx context.Context, method, url string, body []byte, token string) (*Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrTransport,
				"Request cancelled while rate limited", "")
		}
	}

	var reader io.Reader
	if method != http.MethodGet && len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrTransport,
			"Invalid request to "+url,
			"Check the server URL in your settings")
	}

	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, reqID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	t.log.Debug("%s %s (request %s)", method, url, reqID)
	start := time.Now()

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrTransport,
			fmt.Sprintf("Request to %s failed", url),
			"Check the dashboard is reachable from this machine")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrTransport,
			"Failed to read response from "+url, "")
	}

	t.log.Debug("%s %s -> %d in %s (request %s)", method, url, resp.StatusCode,
		time.Since(start).Round(time.Millisecond), reqID)

	return parseResponse(resp.StatusCode, data), nil
}

func parseResponse(httpStatus int, data []byte) *Response {
	r := &Response{HTTPStatus: httpStatus, Raw: string(data)}

	if !json.Valid(data) {
		r.Malformed = true
		r.Error = MalformedError
		return r
	}

	// Valid JSON that isn't an object (a bare array or number) has no
	// envelope fields; Raw still carries it.
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return r
	}

	if env.Status != nil {
		r.hasStatus = true
		r.Status = *env.Status
	}
	r.Success = env.Success
	r.Data = env.Data
	r.Error = decodeErrorField(env.Error)
	return r
}

// decodeErrorField accepts a string or any other JSON value for "error".
func decodeErrorField(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
