// Package apiclient is the request/response contract shared by every
// provider wrapper: one outbound call per Execute, failures captured into
// the Response instead of being returned as Go errors, and no retries.
package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "researchdata/1.0 (+https://github.com/briangreenhill/researchdata)"

	maxMessageBody = 512
)

type Status string

const (
	StatusSuccess      Status = "success"
	StatusClientError  Status = "client-error"
	StatusServerError  Status = "server-error"
	StatusNetworkError Status = "network-error"
	StatusNotFound     Status = "not-found"
)

// Response is the outcome of one Execute call.
type Response struct {
	Status     Status
	StatusCode int
	URL        string
	Header     http.Header
	Payload    []byte
	Message    string
}

func (r *Response) OK() bool { return r.Status == StatusSuccess }

// Err converts a failed response into an *Error. It returns nil on success.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return &Error{Status: r.Status, StatusCode: r.StatusCode, URL: r.URL, Message: r.Message}
}

type Client struct {
	http     *http.Client
	provider string
	base     *url.URL
	header   http.Header
	timeout  time.Duration
	logger   zerolog.Logger
	metrics  *Metrics
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithBaseURL sends every request to raw's scheme and host, keeping the
// endpoint path. Used to point a provider at a mirror or a test server.
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			c.base = u
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Set(key, value) }
}

func WithUserAgent(ua string) Option {
	return WithHeader("User-Agent", ua)
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New returns a client for the named provider. Provider packages pass their
// own defaults first so caller options win.
func New(provider string, opts ...Option) *Client {
	c := &Client{
		http:     http.DefaultClient,
		provider: provider,
		header:   http.Header{},
		timeout:  DefaultTimeout,
		logger:   zerolog.Nop(),
	}
	c.header.Set("User-Agent", DefaultUserAgent)
	c.header.Set("Accept", "application/json")
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With().Str("provider", provider).Logger()
	return c
}

func (c *Client) Provider() string { return c.provider }

func (c *Client) Logger() *zerolog.Logger { return &c.logger }

func (c *Client) prepare(req *Request) error {
	if req.Endpoint == "" {
		return Configf("%s: empty endpoint", c.provider)
	}
	if req.Timeout == 0 {
		req.Timeout = c.timeout
	}
	if req.Timeout <= 0 {
		return Configf("%s: timeout must be positive, got %s", c.provider, req.Timeout)
	}
	if req.Auth.Required && req.Auth.Token == "" {
		return MissingCredential(c.provider, req.Auth.Env)
	}
	return nil
}

// Execute issues exactly one HTTP call. The returned error is non-nil only for
// configuration problems detected before dispatch; transport and HTTP
// failures are captured in the Response.
func (c *Client) Execute(ctx context.Context, req Request) (*Response, error) {
	if err := c.prepare(&req); err != nil {
		return nil, err
	}
	target, err := req.wireURL(c.base)
	if err != nil {
		return nil, Configf("%s: bad endpoint %q: %v", c.provider, req.Endpoint, err)
	}

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	hreq, err := http.NewRequestWithContext(ctx, req.method(), target, nil)
	if err != nil {
		return nil, Configf("%s: build request: %v", c.provider, err)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	for k, v := range req.Header {
		hreq.Header.Set(k, v)
	}
	if req.Auth.Header != "" && req.Auth.Token != "" {
		v := req.Auth.Token
		if req.Auth.Scheme != "" {
			v = req.Auth.Scheme + " " + v
		}
		hreq.Header.Set(req.Auth.Header, v)
	}

	hc := c.http
	if req.NoRedirect {
		cp := *c.http
		cp.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
		hc = &cp
	}

	out := &Response{URL: req.displayURL()}
	start := time.Now()
	resp, err := hc.Do(hreq)
	if err != nil {
		out.Status = StatusNetworkError
		out.Message = err.Error()
		c.finish(req, out, time.Since(start))
		return out, nil
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	out.StatusCode = resp.StatusCode
	out.Header = resp.Header
	if err != nil {
		out.Status = StatusNetworkError
		out.Message = fmt.Sprintf("read body: %v", err)
		c.finish(req, out, time.Since(start))
		return out, nil
	}
	out.Payload = body
	out.Status = classify(resp.StatusCode, req.NotFound)
	if !out.OK() {
		out.Message = fmt.Sprintf("%s %s: %s: %s", req.method(), out.URL, resp.Status, truncate(body))
	}
	c.finish(req, out, time.Since(start))
	return out, nil
}

// Fetch runs Execute and returns the payload of a successful response, or
// the failure as an error.
func (c *Client) Fetch(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return resp, err
	}
	return resp, nil
}

// FetchJSON runs Execute and decodes a successful payload into v.
func (c *Client) FetchJSON(ctx context.Context, req Request, v any) error {
	resp, err := c.Fetch(ctx, req)
	if err != nil {
		return err
	}
	return resp.Decode(v)
}

func (c *Client) finish(req Request, resp *Response, d time.Duration) {
	c.metrics.observe(c.provider, resp.Status, d)
	ev := c.logger.Debug()
	if !resp.OK() {
		ev = c.logger.Warn().Str("error", resp.Message)
	}
	ev.Str("op", req.Op).
		Str("url", resp.URL).
		Str("status", string(resp.Status)).
		Int("code", resp.StatusCode).
		Dur("took", d).
		Msg("api request")
}

func classify(code int, notFound bool) Status {
	switch {
	case code >= 200 && code < 400:
		return StatusSuccess
	case code == http.StatusNotFound && notFound:
		return StatusNotFound
	case code >= 500:
		return StatusServerError
	default:
		return StatusClientError
	}
}

func truncate(b []byte) string {
	if len(b) > maxMessageBody {
		return string(b[:maxMessageBody]) + "..."
	}
	return string(b)
}
